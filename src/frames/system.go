package frames

import "github.com/square-key-labs/strawgo-lisa/src/interruptions"

// SystemFrame is the base for all system-level frames
type SystemFrame struct {
	*BaseFrame
}

func (f *SystemFrame) Category() FrameCategory {
	return SystemCategory
}

func newSystemFrame(name string) *SystemFrame {
	return &SystemFrame{BaseFrame: NewBaseFrame(name)}
}

// StartFrame opens a session pipeline. It carries the session id and the
// barge-in configuration every processor reads on startup.
type StartFrame struct {
	*SystemFrame
	SessionID              string
	SampleRate             int
	AllowInterruptions     bool
	InterruptionStrategies []interruptions.InterruptionStrategy
}

func NewStartFrame(sessionID string, sampleRate int) *StartFrame {
	return &StartFrame{
		SystemFrame: newSystemFrame("StartFrame"),
		SessionID:   sessionID,
		SampleRate:  sampleRate,
	}
}

// NewStartFrameWithConfig creates a StartFrame with interruption settings
func NewStartFrameWithConfig(sessionID string, sampleRate int, allowInterruptions bool, strategies []interruptions.InterruptionStrategy) *StartFrame {
	f := NewStartFrame(sessionID, sampleRate)
	f.AllowInterruptions = allowInterruptions
	f.InterruptionStrategies = strategies
	return f
}

// EndFrame signals the client went away; processors release session state
type EndFrame struct {
	*SystemFrame
}

func NewEndFrame() *EndFrame {
	return &EndFrame{SystemFrame: newSystemFrame("EndFrame")}
}

// CancelFrame signals immediate shutdown without flushing
type CancelFrame struct {
	*SystemFrame
}

func NewCancelFrame() *CancelFrame {
	return &CancelFrame{SystemFrame: newSystemFrame("CancelFrame")}
}

// InterruptionFrame signals a user barge-in. Downstream it tells the client
// to stop playback; upstream from the conversation processor it resets STT.
type InterruptionFrame struct {
	*SystemFrame
}

func NewInterruptionFrame() *InterruptionFrame {
	return &InterruptionFrame{SystemFrame: newSystemFrame("InterruptionFrame")}
}

// ErrorFrame carries error information through the pipeline
type ErrorFrame struct {
	*SystemFrame
	Error error
}

func NewErrorFrame(err error) *ErrorFrame {
	return &ErrorFrame{SystemFrame: newSystemFrame("ErrorFrame"), Error: err}
}

// UserStartedSpeakingFrame signals VAD detected user speech
type UserStartedSpeakingFrame struct {
	*SystemFrame
}

func NewUserStartedSpeakingFrame() *UserStartedSpeakingFrame {
	return &UserStartedSpeakingFrame{SystemFrame: newSystemFrame("UserStartedSpeakingFrame")}
}

// UserStoppedSpeakingFrame signals VAD detected end of user speech
type UserStoppedSpeakingFrame struct {
	*SystemFrame
}

func NewUserStoppedSpeakingFrame() *UserStoppedSpeakingFrame {
	return &UserStoppedSpeakingFrame{SystemFrame: newSystemFrame("UserStoppedSpeakingFrame")}
}

// BotStartedSpeakingFrame is client playback feedback: a response is being spoken
type BotStartedSpeakingFrame struct {
	*SystemFrame
}

func NewBotStartedSpeakingFrame() *BotStartedSpeakingFrame {
	return &BotStartedSpeakingFrame{SystemFrame: newSystemFrame("BotStartedSpeakingFrame")}
}

// BotStoppedSpeakingFrame is client playback feedback: playback finished
type BotStoppedSpeakingFrame struct {
	*SystemFrame
}

func NewBotStoppedSpeakingFrame() *BotStoppedSpeakingFrame {
	return &BotStoppedSpeakingFrame{SystemFrame: newSystemFrame("BotStoppedSpeakingFrame")}
}
