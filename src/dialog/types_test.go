package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIntent(t *testing.T) {
	assert.Equal(t, IntentSearchOrders, NormalizeIntent(" search_orders "))
	assert.Equal(t, IntentCreateOrder, NormalizeIntent("create-order"))
	assert.Equal(t, IntentGeneral, NormalizeIntent(""))

	ext := NormalizeIntent("check inventory")
	assert.Equal(t, Intent("CHECK_INVENTORY"), ext)
	assert.False(t, ext.IsKnown())
	assert.True(t, IntentHelp.IsKnown())
}

func TestNormalizeEmotion(t *testing.T) {
	assert.Equal(t, EmotionPositive, NormalizeEmotion("Excited"))
	assert.Equal(t, EmotionFrustrated, NormalizeEmotion("frustrated"))
	assert.Equal(t, EmotionNeutral, NormalizeEmotion("sleepy"))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-2))
	assert.Equal(t, 1.0, ClampConfidence(1.4))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
}

func TestSilentResponse(t *testing.T) {
	assert.True(t, Silent().IsSilent())
	assert.False(t, Response{Text: "hi", ShouldSpeak: true}.IsSilent())
}
