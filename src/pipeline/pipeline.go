package pipeline

import (
	"context"
	"fmt"

	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
)

// PipelineSource is the entry point for frames into the pipeline
type PipelineSource struct {
	*processors.BaseProcessor
	task *PipelineTask
}

func newPipelineSource(task *PipelineTask) *PipelineSource {
	ps := &PipelineSource{task: task}
	ps.BaseProcessor = processors.NewBaseProcessor("PipelineSource", ps)
	return ps
}

func (p *PipelineSource) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if direction == frames.Upstream {
		if p.task != nil {
			return p.task.handleUpstreamFrame(frame)
		}
		return nil
	}
	return p.PushFrame(frame, direction)
}

// PipelineSink is the exit point for frames from the pipeline
type PipelineSink struct {
	*processors.BaseProcessor
	task *PipelineTask
}

func newPipelineSink(task *PipelineTask) *PipelineSink {
	ps := &PipelineSink{task: task}
	ps.BaseProcessor = processors.NewBaseProcessor("PipelineSink", ps)
	return ps
}

func (p *PipelineSink) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if direction == frames.Downstream {
		if p.task != nil {
			return p.task.handleDownstreamFrame(frame)
		}
		return nil
	}
	return p.PushFrame(frame, direction)
}

// Pipeline connects processors in a linear chain. One pipeline serves one
// session, so a slow stage only ever delays its own session.
type Pipeline struct {
	processors []processors.FrameProcessor
	source     *PipelineSource
	sink       *PipelineSink
}

// NewPipeline creates a new pipeline with the given processors
func NewPipeline(procs []processors.FrameProcessor) *Pipeline {
	return &Pipeline{processors: procs}
}

// Initialize links source -> processors -> sink
func (p *Pipeline) Initialize(task *PipelineTask) {
	p.source = newPipelineSource(task)
	p.sink = newPipelineSink(task)

	chain := []processors.FrameProcessor{p.source}
	chain = append(chain, p.processors...)
	chain = append(chain, p.sink)

	for i := 0; i < len(chain)-1; i++ {
		chain[i].Link(chain[i+1])
	}

	logger.Debug("[Pipeline] Initialized with %d processors", len(p.processors))
}

// Start begins processing in all processors
func (p *Pipeline) Start(ctx context.Context) error {
	if p.source == nil {
		return fmt.Errorf("pipeline not initialized")
	}
	if err := p.source.Start(ctx); err != nil {
		return fmt.Errorf("failed to start source: %w", err)
	}
	for _, proc := range p.processors {
		if err := proc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start processor %s: %w", proc.Name(), err)
		}
	}
	if err := p.sink.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sink: %w", err)
	}
	logger.Debug("[Pipeline] Started all processors")
	return nil
}

// Stop stops all processors in reverse order
func (p *Pipeline) Stop() error {
	if err := p.sink.Stop(); err != nil {
		logger.Error("[Pipeline] Error stopping sink: %v", err)
	}
	for i := len(p.processors) - 1; i >= 0; i-- {
		if err := p.processors[i].Stop(); err != nil {
			logger.Error("[Pipeline] Error stopping processor %s: %v", p.processors[i].Name(), err)
		}
	}
	if err := p.source.Stop(); err != nil {
		logger.Error("[Pipeline] Error stopping source: %v", err)
	}
	logger.Debug("[Pipeline] Stopped all processors")
	return nil
}

// QueueFrame queues a frame at the source of the pipeline
func (p *Pipeline) QueueFrame(frame frames.Frame) error {
	return p.source.QueueFrame(frame, frames.Downstream)
}
