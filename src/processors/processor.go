package processors

import (
	"context"
	"fmt"
	"sync"

	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/interruptions"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// FrameProcessor is the interface that all processors must implement
type FrameProcessor interface {
	// ProcessFrame processes a single frame
	ProcessFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error

	// QueueFrame adds a frame to this processor's queue
	QueueFrame(frame frames.Frame, direction frames.FrameDirection) error

	// PushFrame sends a frame to the next/previous processor
	PushFrame(frame frames.Frame, direction frames.FrameDirection) error

	Link(next FrameProcessor)
	SetPrev(prev FrameProcessor)

	Start(ctx context.Context) error
	Stop() error

	Name() string
}

// ProcessHandler is implemented by concrete processors
type ProcessHandler interface {
	HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error
}

type frameWithDirection struct {
	frame     frames.Frame
	direction frames.FrameDirection
}

// BaseProcessor runs two goroutines per processor: system frames are handled
// as soon as they arrive, data and control frames strictly in order.
type BaseProcessor struct {
	name string
	next FrameProcessor
	prev FrameProcessor

	systemChan chan frameWithDirection
	dataChan   chan frameWithDirection

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex

	// set from StartFrame
	sessionID              string
	allowInterruptions     bool
	interruptionStrategies []interruptions.InterruptionStrategy

	handler ProcessHandler
	log     *logger.Logger
}

// NewBaseProcessor creates a new BaseProcessor
func NewBaseProcessor(name string, handler ProcessHandler) *BaseProcessor {
	return &BaseProcessor{
		name:       name,
		systemChan: make(chan frameWithDirection, 100),
		dataChan:   make(chan frameWithDirection, 1000),
		handler:    handler,
		log:        logger.WithPrefix(name),
	}
}

func (p *BaseProcessor) Name() string {
	return p.name
}

// Logger returns the processor's prefixed logger
func (p *BaseProcessor) Logger() *logger.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.log
}

func (p *BaseProcessor) Link(next FrameProcessor) {
	p.mu.Lock()
	p.next = next
	p.mu.Unlock()
	if next != nil {
		next.SetPrev(p)
	}
}

func (p *BaseProcessor) SetPrev(prev FrameProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prev = prev
}

func (p *BaseProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		return fmt.Errorf("processor %s already started", p.name)
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(2)
	go p.systemFrameHandler()
	go p.dataFrameHandler()

	p.log.Debug("Started")
	return nil
}

func (p *BaseProcessor) Stop() error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debug("Stopped")
	return nil
}

func (p *BaseProcessor) context() context.Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ctx
}

func (p *BaseProcessor) QueueFrame(frame frames.Frame, direction frames.FrameDirection) error {
	ctx := p.context()
	if ctx == nil {
		return fmt.Errorf("processor %s not started", p.name)
	}

	fwd := frameWithDirection{frame: frame, direction: direction}
	ch := p.dataChan
	if frames.CategoryOf(frame) == frames.SystemCategory {
		ch = p.systemChan
	}

	select {
	case ch <- fwd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *BaseProcessor) PushFrame(frame frames.Frame, direction frames.FrameDirection) error {
	p.mu.RLock()
	target := p.next
	if direction == frames.Upstream {
		target = p.prev
	}
	p.mu.RUnlock()

	if target == nil {
		return nil
	}
	return target.QueueFrame(frame, direction)
}

func (p *BaseProcessor) ProcessFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if start, ok := frame.(*frames.StartFrame); ok {
		p.HandleStartFrame(start)
	}
	if p.handler != nil {
		return p.handler.HandleFrame(ctx, frame, direction)
	}
	return p.PushFrame(frame, direction)
}

// HandleStartFrame records the session id and interruption settings
func (p *BaseProcessor) HandleStartFrame(f *frames.StartFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = f.SessionID
	p.allowInterruptions = f.AllowInterruptions
	p.interruptionStrategies = f.InterruptionStrategies
	if f.SessionID != "" {
		p.log = logger.ForSession(p.name, f.SessionID)
	}
}

// SessionID returns the id announced by the StartFrame
func (p *BaseProcessor) SessionID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessionID
}

func (p *BaseProcessor) InterruptionsAllowed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.allowInterruptions
}

func (p *BaseProcessor) InterruptionStrategies() []interruptions.InterruptionStrategy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.interruptionStrategies
}

func (p *BaseProcessor) systemFrameHandler() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case fwd := <-p.systemChan:
			p.dispatch(fwd, "system")
		}
	}
}

func (p *BaseProcessor) dataFrameHandler() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case fwd := <-p.dataChan:
			p.dispatch(fwd, "data")
		}
	}
}

// dispatch keeps a panicking handler from taking the session down with it
func (p *BaseProcessor) dispatch(fwd frameWithDirection, kind string) {
	defer func() {
		if r := recover(); r != nil {
			p.Logger().Error("Panic processing %s frame %s: %v", kind, fwd.frame.Name(), r)
		}
	}()
	if err := p.ProcessFrame(p.ctx, fwd.frame, fwd.direction); err != nil {
		p.Logger().Error("Error processing %s frame %s: %v", kind, fwd.frame.Name(), err)
	}
}
