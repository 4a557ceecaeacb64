package frames

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var frameCounter uint64

// FrameDirection indicates the direction a frame is traveling
type FrameDirection int

const (
	Downstream FrameDirection = iota // transport input -> conversation -> transport output
	Upstream                         // errors and feedback back toward the source
)

func (d FrameDirection) String() string {
	switch d {
	case Downstream:
		return "downstream"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Frame is the unit that travels through a session pipeline
type Frame interface {
	ID() uint64
	Name() string
	PTS() time.Time
	Metadata() map[string]any
	SetMetadata(key string, value any)
	String() string
}

// BaseFrame provides common frame functionality
type BaseFrame struct {
	id   uint64
	name string
	pts  time.Time

	metaMu   sync.RWMutex
	metadata map[string]any
}

func NewBaseFrame(name string) *BaseFrame {
	return &BaseFrame{
		id:   atomic.AddUint64(&frameCounter, 1),
		name: name,
		pts:  time.Now(),
	}
}

func (f *BaseFrame) ID() uint64 {
	return f.id
}

func (f *BaseFrame) Name() string {
	return f.name
}

func (f *BaseFrame) PTS() time.Time {
	return f.pts
}

// Metadata returns a copy of the frame's metadata.
func (f *BaseFrame) Metadata() map[string]any {
	f.metaMu.RLock()
	defer f.metaMu.RUnlock()
	out := make(map[string]any, len(f.metadata))
	for k, v := range f.metadata {
		out[k] = v
	}
	return out
}

func (f *BaseFrame) SetMetadata(key string, value any) {
	f.metaMu.Lock()
	defer f.metaMu.Unlock()
	if f.metadata == nil {
		f.metadata = make(map[string]any)
	}
	f.metadata[key] = value
}

func (f *BaseFrame) String() string {
	return fmt.Sprintf("%s[id=%d, pts=%v]", f.name, f.id, f.pts.Format("15:04:05.000"))
}

// FrameCategory decides which processor queue a frame lands in
type FrameCategory int

const (
	SystemCategory  FrameCategory = iota // bypasses queued data, e.g. interruptions
	DataCategory                         // ordered
	ControlCategory                      // ordered with data
)

func (c FrameCategory) String() string {
	switch c {
	case SystemCategory:
		return "system"
	case DataCategory:
		return "data"
	case ControlCategory:
		return "control"
	default:
		return "unknown"
	}
}

// Categorizable frames can report their category
type Categorizable interface {
	Category() FrameCategory
}

// CategoryOf returns the category of f, defaulting to DataCategory.
func CategoryOf(f Frame) FrameCategory {
	if c, ok := f.(Categorizable); ok {
		return c.Category()
	}
	return DataCategory
}
