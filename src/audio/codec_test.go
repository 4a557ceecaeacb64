package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulawDecodeKnownValues(t *testing.T) {
	assert.Equal(t, int16(-32124), mulawDecode(0x00))
	assert.Equal(t, int16(32124), mulawDecode(0x80))
	assert.Equal(t, int16(0), mulawDecode(0xFF))
	assert.Equal(t, int16(-8), mulawDecode(0x7E))
}

func TestAlawDecodeKnownValues(t *testing.T) {
	assert.Equal(t, int16(-5504), alawDecode(0x00))
	assert.Equal(t, int16(5504), alawDecode(0x80))
	assert.Equal(t, int16(-8), alawDecode(0x55))
	assert.Equal(t, int16(8), alawDecode(0xD5))
}

func TestNormalizeCodecName(t *testing.T) {
	assert.Equal(t, CodecMulaw, NormalizeCodecName("PCMU"))
	assert.Equal(t, CodecAlaw, NormalizeCodecName("pcma"))
	assert.Equal(t, CodecLinear16, NormalizeCodecName(""))
	assert.Equal(t, CodecOpus, NormalizeCodecName("OPUS"))
}

func TestResampleLength(t *testing.T) {
	in := make([]int16, 800)
	assert.Len(t, Resample(in, 8000, 16000), 1600)
	assert.Len(t, Resample(in, 16000, 8000), 400)
	assert.Equal(t, in, Resample(in, 16000, 16000))
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []int16{150, -50}, DownmixToMono([]int16{100, 200, -100, 0}, 2))
}

func TestDecodeToPCM(t *testing.T) {
	pcm, err := DecodeToPCM("linear16", []byte{0x01, 0x00, 0xFF, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, []int16{1, -1}, pcm)

	_, err = DecodeToPCM("linear16", []byte{1})
	assert.Error(t, err)

	_, err = DecodeToPCM("flac", []byte{1, 2})
	assert.Error(t, err)
}
