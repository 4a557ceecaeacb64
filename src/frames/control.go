package frames

// ControlFrame is the base for control/configuration frames
type ControlFrame struct {
	*BaseFrame
}

func (f *ControlFrame) Category() FrameCategory {
	return ControlCategory
}

func newControlFrame(name string) *ControlFrame {
	return &ControlFrame{BaseFrame: NewBaseFrame(name)}
}

// StartConversationFrame asks the engine to open a conversation and greet
type StartConversationFrame struct {
	*ControlFrame
}

func NewStartConversationFrame() *StartConversationFrame {
	return &StartConversationFrame{ControlFrame: newControlFrame("StartConversationFrame")}
}

// EndConversationFrame asks the engine to close the conversation
type EndConversationFrame struct {
	*ControlFrame
}

func NewEndConversationFrame() *EndConversationFrame {
	return &EndConversationFrame{ControlFrame: newControlFrame("EndConversationFrame")}
}

// AudioFormatFrame announces the codec and rate of the audio that follows
type AudioFormatFrame struct {
	*ControlFrame
	Codec      string
	SampleRate int
	Channels   int
}

func NewAudioFormatFrame(codec string, sampleRate, channels int) *AudioFormatFrame {
	if channels <= 0 {
		channels = 1
	}
	return &AudioFormatFrame{
		ControlFrame: newControlFrame("AudioFormatFrame"),
		Codec:        codec,
		SampleRate:   sampleRate,
		Channels:     channels,
	}
}
