package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/interruptions"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// PipelineTaskConfig holds configuration for pipeline task
type PipelineTaskConfig struct {
	SessionID              string
	SampleRate             int
	AllowInterruptions     bool
	InterruptionStrategies []interruptions.InterruptionStrategy
}

// DefaultPipelineTaskConfig returns default configuration
func DefaultPipelineTaskConfig() *PipelineTaskConfig {
	return &PipelineTaskConfig{
		SampleRate:         16000,
		AllowInterruptions: true,
	}
}

// PipelineTask drives one pipeline: it sends the StartFrame, feeds queued
// frames in and finishes when an EndFrame or CancelFrame reaches the sink.
type PipelineTask struct {
	pipeline *Pipeline
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	config *PipelineTaskConfig
	log    *logger.Logger

	userFrameQueue chan frames.Frame

	started  bool
	finished bool
	mu       sync.RWMutex

	onStarted  func()
	onFinished func()
	onError    func(error)
}

// NewPipelineTask creates a new pipeline task with default configuration
func NewPipelineTask(pipeline *Pipeline) *PipelineTask {
	return NewPipelineTaskWithConfig(pipeline, DefaultPipelineTaskConfig())
}

// NewPipelineTaskWithConfig creates a new pipeline task with custom configuration
func NewPipelineTaskWithConfig(pipeline *Pipeline, config *PipelineTaskConfig) *PipelineTask {
	if config == nil {
		config = DefaultPipelineTaskConfig()
	}
	task := &PipelineTask{
		pipeline:       pipeline,
		config:         config,
		log:            logger.ForSession("PipelineTask", config.SessionID),
		userFrameQueue: make(chan frames.Frame, 256),
	}
	pipeline.Initialize(task)
	return task
}

// OnStarted sets a callback for when the StartFrame has crossed the pipeline
func (t *PipelineTask) OnStarted(callback func()) {
	t.onStarted = callback
}

// OnFinished sets a callback for when the pipeline finishes
func (t *PipelineTask) OnFinished(callback func()) {
	t.onFinished = callback
}

// OnError sets a callback for errors
func (t *PipelineTask) OnError(callback func(error)) {
	t.onError = callback
}

// QueueFrame adds a frame to be processed by the pipeline
func (t *PipelineTask) QueueFrame(frame frames.Frame) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.started {
		return fmt.Errorf("pipeline not started")
	}
	if t.finished {
		return fmt.Errorf("pipeline already finished")
	}

	select {
	case t.userFrameQueue <- frame:
		return nil
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}

// Start launches the pipeline without blocking. Frames may be queued as soon
// as it returns.
func (t *PipelineTask) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("pipeline already started")
	}
	t.started = true
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	if err := t.pipeline.Start(t.ctx); err != nil {
		t.Cancel()
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	t.wg.Add(1)
	go t.processUserFrames()

	start := frames.NewStartFrameWithConfig(
		t.config.SessionID,
		t.config.SampleRate,
		t.config.AllowInterruptions,
		t.config.InterruptionStrategies,
	)
	if err := t.pipeline.QueueFrame(start); err != nil {
		t.Cancel()
		return fmt.Errorf("failed to queue start frame: %w", err)
	}

	t.log.Debug("Pipeline started")
	return nil
}

// Wait blocks until the task is cancelled or finished, then stops the pipeline
func (t *PipelineTask) Wait() {
	t.wg.Wait()
	if err := t.pipeline.Stop(); err != nil {
		t.log.Error("Error stopping pipeline: %v", err)
	}
	t.markFinished()
	t.log.Debug("Pipeline finished")
}

// Run starts the pipeline and blocks until completion
func (t *PipelineTask) Run(ctx context.Context) error {
	if err := t.Start(ctx); err != nil {
		return err
	}
	t.Wait()
	return nil
}

// Cancel stops the pipeline immediately
func (t *PipelineTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *PipelineTask) processUserFrames() {
	defer t.wg.Done()
	for {
		select {
		case <-t.ctx.Done():
			return
		case frame := <-t.userFrameQueue:
			if err := t.pipeline.QueueFrame(frame); err != nil {
				t.log.Warn("Error queuing frame %s: %v", frame.Name(), err)
				if t.onError != nil {
					t.onError(err)
				}
			}
		}
	}
}

func (t *PipelineTask) handleDownstreamFrame(frame frames.Frame) error {
	switch f := frame.(type) {
	case *frames.StartFrame:
		if t.onStarted != nil {
			t.onStarted()
		}
	case *frames.EndFrame, *frames.CancelFrame:
		t.log.Debug("%s reached sink, finishing", frame.Name())
		t.markFinished()
		t.Cancel()
	case *frames.ErrorFrame:
		t.log.Warn("Error frame reached sink: %v", f.Error)
		if t.onError != nil {
			t.onError(f.Error)
		}
	}
	return nil
}

func (t *PipelineTask) handleUpstreamFrame(frame frames.Frame) error {
	if f, ok := frame.(*frames.ErrorFrame); ok {
		t.log.Warn("Upstream error: %v", f.Error)
		if t.onError != nil {
			t.onError(f.Error)
		}
	}
	return nil
}

func (t *PipelineTask) markFinished() {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.finished = true
	cb := t.onFinished
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}
