package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/interruptions"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
)

// Processor connects one session's pipeline to the engine. Transcripts and
// typed text become utterances, speaking frames update the session, and
// every engine response travels downstream as a ResponseFrame.
type Processor struct {
	*processors.BaseProcessor
	engine *Engine

	mu           sync.Mutex
	ctx          context.Context
	botSpeaking  bool
	userSpeaking bool
	silence      *time.Timer
}

// NewProcessor creates the conversation stage of a pipeline
func NewProcessor(engine *Engine) *Processor {
	p := &Processor{engine: engine}
	p.BaseProcessor = processors.NewBaseProcessor("Conversation", p)
	return p
}

func (p *Processor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if direction == frames.Upstream {
		return p.PushFrame(frame, direction)
	}
	id := p.SessionID()

	switch f := frame.(type) {
	case *frames.StartFrame:
		p.mu.Lock()
		p.ctx = ctx
		p.mu.Unlock()
		return p.PushFrame(frame, direction)

	case *frames.StartConversationFrame:
		p.emit(p.engine.StartConversation(ctx, id))
		p.armSilence()
		return nil

	case *frames.TranscriptionFrame:
		if p.bargeInByText(f.Text) {
			p.interrupt(id)
		}
		resp := p.engine.HandleUtterance(ctx, dialog.Utterance{
			SessionID:  id,
			Transcript: f.Text,
			IsFinal:    f.IsFinal,
			Timestamp:  f.PTS(),
		})
		p.emit(resp)
		p.armSilence()
		return p.PushFrame(frame, direction)

	case *frames.TextFrame:
		p.emit(p.engine.HandleUtterance(ctx, dialog.Utterance{
			SessionID:  id,
			Transcript: f.Text,
			IsFinal:    true,
			Timestamp:  f.PTS(),
		}))
		p.armSilence()
		return nil

	case *frames.AudioFrame:
		if p.bargeInByAudio(f) {
			p.interrupt(id)
		}
		return p.PushFrame(frame, direction)

	case *frames.UserStartedSpeakingFrame:
		p.engine.SetUserSpeaking(id, true)
		p.mu.Lock()
		p.userSpeaking = true
		p.mu.Unlock()
		p.stopSilence()
		if p.bargeInOnSpeech() {
			p.interrupt(id)
		}
		return p.PushFrame(frame, direction)

	case *frames.UserStoppedSpeakingFrame:
		p.engine.SetUserSpeaking(id, false)
		p.mu.Lock()
		p.userSpeaking = false
		p.mu.Unlock()
		p.armSilence()
		return p.PushFrame(frame, direction)

	case *frames.BotStartedSpeakingFrame:
		p.engine.SetAssistantSpeaking(id, true)
		p.mu.Lock()
		p.botSpeaking = true
		p.mu.Unlock()
		p.stopSilence()
		return p.PushFrame(frame, direction)

	case *frames.BotStoppedSpeakingFrame:
		p.engine.SetAssistantSpeaking(id, false)
		p.mu.Lock()
		p.botSpeaking = false
		p.mu.Unlock()
		interruptions.ResetAll(p.InterruptionStrategies())
		p.armSilence()
		return p.PushFrame(frame, direction)

	case *frames.InterruptionFrame:
		// explicit interrupt from the client
		p.mu.Lock()
		p.botSpeaking = false
		p.mu.Unlock()
		p.emit(p.engine.Interrupt(id))
		interruptions.ResetAll(p.InterruptionStrategies())
		return p.PushFrame(frame, direction)

	case *frames.EndConversationFrame:
		p.stopSilence()
		p.emit(p.engine.EndConversation(id))
		return nil

	case *frames.EndFrame, *frames.CancelFrame:
		p.stopSilence()
		p.engine.Disconnect(id)
		return p.PushFrame(frame, direction)

	default:
		return p.PushFrame(frame, direction)
	}
}

func (p *Processor) emit(resp dialog.Response) {
	if resp.IsSilent() {
		return
	}
	if err := p.PushFrame(frames.NewResponseFrame(resp), frames.Downstream); err != nil {
		p.Logger().Warn("Dropping response: %v", err)
	}
}

// interrupt turns a qualified barge-in into an engine interruption and tells
// the output side to stop playback
func (p *Processor) interrupt(id string) {
	p.mu.Lock()
	p.botSpeaking = false
	p.mu.Unlock()

	interruptions.ResetAll(p.InterruptionStrategies())
	p.Logger().Debug("Barge-in")
	_ = p.PushFrame(frames.NewInterruptionFrame(), frames.Downstream)
	p.emit(p.engine.Interrupt(id))
}

func (p *Processor) canBargeIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.botSpeaking && p.InterruptionsAllowed()
}

// bargeInOnSpeech interrupts on any user speech when no strategy qualifies it
func (p *Processor) bargeInOnSpeech() bool {
	return p.canBargeIn() && len(p.InterruptionStrategies()) == 0
}

func (p *Processor) bargeInByText(text string) bool {
	strategies := p.InterruptionStrategies()
	if !p.canBargeIn() || len(strategies) == 0 {
		return false
	}
	for _, s := range strategies {
		_ = s.AppendText(text)
	}
	return interruptions.Any(strategies)
}

func (p *Processor) bargeInByAudio(f *frames.AudioFrame) bool {
	strategies := p.InterruptionStrategies()
	if !p.canBargeIn() || len(strategies) == 0 {
		return false
	}
	for _, s := range strategies {
		_ = s.AppendAudio(f.Data, f.SampleRate)
	}
	return interruptions.Any(strategies)
}

// armSilence (re)starts the silence timer
func (p *Processor) armSilence() {
	timeout := p.engine.Options().SilenceTimeout
	if timeout <= 0 || !p.engine.Options().EnableFillerWords {
		return
	}
	id := p.SessionID()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.userSpeaking || p.botSpeaking || p.ctx == nil {
		return
	}
	ctx := p.ctx
	if p.silence != nil {
		p.silence.Stop()
	}
	p.silence = time.AfterFunc(timeout, func() {
		if ctx.Err() != nil {
			return
		}
		if resp, ok := p.engine.HandleSilence(ctx, id); ok {
			p.emit(resp)
		}
	})
}

func (p *Processor) stopSilence() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.silence != nil {
		p.silence.Stop()
		p.silence = nil
	}
}

// Stop stops the silence timer along with the processor goroutines
func (p *Processor) Stop() error {
	p.stopSilence()
	return p.BaseProcessor.Stop()
}
