package processors

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// FrameLogger is a pass-through processor that logs every frame at DEBUG
type FrameLogger struct {
	*BaseProcessor
	logger            *logger.Logger
	ignoredFrameTypes map[reflect.Type]bool
	logDirection      bool
	logFrameDetails   bool
}

// FrameLoggerConfig configures the frame logger
type FrameLoggerConfig struct {
	// Prefix for log messages (e.g. "In", "Out")
	Prefix string

	// IgnoredFrameTypes are skipped, typically *frames.AudioFrame
	IgnoredFrameTypes []frames.Frame

	LogDirection    bool
	LogFrameDetails bool

	// Logger to use; defaults to the package default
	Logger *logger.Logger
}

// NewFrameLogger creates a new frame logger processor
func NewFrameLogger(config FrameLoggerConfig) *FrameLogger {
	if config.Prefix == "" {
		config.Prefix = "Frame"
	}
	log := config.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	fl := &FrameLogger{
		logger:            log.WithPrefix("Frames:" + config.Prefix),
		ignoredFrameTypes: make(map[reflect.Type]bool),
		logDirection:      config.LogDirection,
		logFrameDetails:   config.LogFrameDetails,
	}
	for _, f := range config.IgnoredFrameTypes {
		fl.ignoredFrameTypes[reflect.TypeOf(f)] = true
	}

	fl.BaseProcessor = NewBaseProcessor("FrameLogger:"+config.Prefix, fl)
	return fl
}

// HandleFrame logs and forwards the frame
func (fl *FrameLogger) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if frame == nil || reflect.ValueOf(frame).IsNil() {
		fl.logger.Warn("Received nil frame, skipping")
		return nil
	}

	if !fl.ignoredFrameTypes[reflect.TypeOf(frame)] && fl.logger.IsLevelEnabled(logger.DEBUG) {
		fl.logger.Debug("%s", fl.format(frame, direction))
	}
	return fl.PushFrame(frame, direction)
}

func (fl *FrameLogger) format(frame frames.Frame, direction frames.FrameDirection) string {
	var b strings.Builder
	if fl.logDirection {
		if direction == frames.Downstream {
			b.WriteString("→ ")
		} else {
			b.WriteString("← ")
		}
	}
	b.WriteString(frame.Name())

	if fl.logFrameDetails {
		if details := describeFrame(frame); details != "" {
			b.WriteString(" | ")
			b.WriteString(details)
		}
	}
	return b.String()
}

// describeFrame renders a frame's exported scalar fields, skipping payloads
func describeFrame(frame frames.Frame) string {
	if rf, ok := frame.(*frames.ResponseFrame); ok {
		r := rf.Response
		return fmt.Sprintf("Text: %q, Action: %q, Speak: %t, Thinking: %t, Confidence: %.2f",
			truncate(r.Text, 50), r.Action, r.ShouldSpeak, r.IsThinking, r.Confidence)
	}

	v := reflect.ValueOf(frame)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}

	t := v.Type()
	var details []string
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		name := t.Field(i).Name
		if !field.CanInterface() || t.Field(i).Anonymous || name == "Data" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			details = append(details, fmt.Sprintf("%s: %q", name, truncate(field.String(), 50)))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			details = append(details, fmt.Sprintf("%s: %d", name, field.Int()))
		case reflect.Float32, reflect.Float64:
			details = append(details, fmt.Sprintf("%s: %.2f", name, field.Float()))
		case reflect.Bool:
			details = append(details, fmt.Sprintf("%s: %t", name, field.Bool()))
		case reflect.Slice, reflect.Array:
			details = append(details, fmt.Sprintf("%s: [%d items]", name, field.Len()))
		}
	}
	return strings.Join(details, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
