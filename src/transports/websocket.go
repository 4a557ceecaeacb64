package transports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/square-key-labs/strawgo-lisa/src/frames"
	"github.com/square-key-labs/strawgo-lisa/src/interruptions"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
	"github.com/square-key-labs/strawgo-lisa/src/pipeline"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
	"github.com/square-key-labs/strawgo-lisa/src/serializers"
)

const (
	writeTimeout   = 5 * time.Second
	drainTimeout   = 5 * time.Second
	maxMessageSize = 1 << 20
)

// PipelineFactory builds the processors of one session's pipeline. The
// transport appends its own output stage.
type PipelineFactory func(sessionID string) ([]processors.FrameProcessor, error)

// WebSocketConfig holds configuration for the WebSocket server
type WebSocketConfig struct {
	Port        int           // port to listen on (e.g., 8080)
	Path        string        // websocket path (e.g., "/ws")
	IdleTimeout time.Duration // connection closes after this long without a client message
	SampleRate  int           // pipeline audio rate

	AllowInterruptions bool
	// Strategies builds fresh barge-in strategies per connection; strategies
	// carry per-session state.
	Strategies func() []interruptions.InterruptionStrategy

	// NewSerializer creates the protocol serializer of one connection
	NewSerializer func() serializers.FrameSerializer
}

// WebSocketServer accepts client connections and runs one session pipeline
// per connection
type WebSocketServer struct {
	config   WebSocketConfig
	factory  PipelineFactory
	upgrader websocket.Upgrader
	server   *http.Server
	log      *logger.Logger

	conns  map[string]*wsConnection
	connMu sync.RWMutex
	wg     sync.WaitGroup
}

type wsConnection struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	closing atomic.Bool
	log     *logger.Logger
}

// NewWebSocketServer creates a server. factory must not be nil.
func NewWebSocketServer(config WebSocketConfig, factory PipelineFactory) *WebSocketServer {
	if config.Path == "" {
		config.Path = "/ws"
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.NewSerializer == nil {
		rate := config.SampleRate
		config.NewSerializer = func() serializers.FrameSerializer {
			return serializers.NewJSONSerializer(rate)
		}
	}
	if factory == nil {
		panic("WebSocketServer requires a pipeline factory")
	}

	return &WebSocketServer{
		config:  config,
		factory: factory,
		conns:   make(map[string]*wsConnection),
		log:     logger.WithPrefix("WebSocketServer"),
		upgrader: websocket.Upgrader{
			// the browser client may be served from another origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler serves the websocket endpoint and /healthz
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down
func (s *WebSocketServer) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("Listening on %s%s", s.server.Addr, s.config.Path)
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("websocket server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops accepting connections, closes the open ones and waits for
// their sessions to finish
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	s.connMu.RLock()
	for _, c := range s.conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	s.connMu.RUnlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("All sessions closed")
	case <-ctx.Done():
		err = errors.Join(err, fmt.Errorf("waiting for sessions: %w", ctx.Err()))
	}
	return err
}

// Sessions reports the number of open connections
func (s *WebSocketServer) Sessions() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return len(s.conns)
}

func (s *WebSocketServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.Sessions(),
	})
}

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	id := uuid.NewString()
	wsConn := &wsConnection{id: id, conn: conn, log: logger.ForSession("WebSocketServer", id)}

	s.wg.Add(1)
	s.connMu.Lock()
	s.conns[id] = wsConn
	s.connMu.Unlock()

	defer func() {
		s.connMu.Lock()
		delete(s.conns, id)
		s.connMu.Unlock()
		_ = conn.Close()
		s.wg.Done()
	}()

	wsConn.log.Info("Connected from %s", r.RemoteAddr)
	if err := s.serve(wsConn); err != nil {
		wsConn.log.Error("Session failed: %v", err)
	}
	wsConn.log.Info("Disconnected")
}

// serve runs the session pipeline and the read loop of one connection
func (s *WebSocketServer) serve(c *wsConnection) error {
	procs, err := s.factory(c.id)
	if err != nil {
		c.close(websocket.CloseInternalServerErr, "session setup failed")
		return fmt.Errorf("build pipeline: %w", err)
	}

	serializer := s.config.NewSerializer()
	output := newOutputProcessor(c, serializer)
	procs = append(procs, output)

	var strategies []interruptions.InterruptionStrategy
	if s.config.Strategies != nil {
		strategies = s.config.Strategies()
	}
	task := pipeline.NewPipelineTaskWithConfig(pipeline.NewPipeline(procs), &pipeline.PipelineTaskConfig{
		SessionID:              c.id,
		SampleRate:             s.config.SampleRate,
		AllowInterruptions:     s.config.AllowInterruptions,
		InterruptionStrategies: strategies,
	})
	task.OnError(func(err error) {
		output.sendFrame(frames.NewErrorFrame(err))
	})
	started := make(chan struct{})
	task.OnStarted(func() { close(started) })

	// the pipeline outlives the request context; EndFrame finishes it
	if err := task.Start(context.Background()); err != nil {
		return err
	}
	// every stage knows the session id before the first client frame
	select {
	case <-started:
	case <-time.After(drainTimeout):
		task.Cancel()
		task.Wait()
		c.close(websocket.CloseInternalServerErr, "session setup timed out")
		return errors.New("pipeline did not start")
	}

	s.readLoop(c, serializer, task)

	if err := task.QueueFrame(frames.NewEndFrame()); err != nil {
		c.log.Debug("Pipeline already finished: %v", err)
	}
	waitOrCancel(task, drainTimeout)
	return nil
}

func (s *WebSocketServer) readLoop(c *wsConnection, serializer serializers.FrameSerializer, task *pipeline.PipelineTask) {
	for !c.closing.Load() {
		if s.config.IdleTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		// text messages are control events, binary messages are audio
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			switch {
			case c.closing.Load():
			case errors.As(err, &netErr) && netErr.Timeout():
				c.log.Info("Idle for %s, closing", s.config.IdleTimeout)
				c.close(websocket.CloseNormalClosure, "idle timeout")
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived):
				c.log.Warn("Read error: %v", err)
			}
			return
		}

		var data any = string(raw)
		if msgType == websocket.BinaryMessage {
			data = raw
		}
		frame, err := serializer.Deserialize(data)
		if err != nil {
			c.log.Warn("Bad client message: %v", err)
			c.writeData(mustSerialize(serializer, frames.NewErrorFrame(err)))
			continue
		}
		if frame == nil {
			continue
		}
		if err := task.QueueFrame(frame); err != nil {
			c.log.Warn("Dropping %s: %v", frame.Name(), err)
			return
		}
	}
}

func waitOrCancel(task *pipeline.PipelineTask, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		task.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		task.Cancel()
		<-done
	}
}

func mustSerialize(serializer serializers.FrameSerializer, frame frames.Frame) any {
	data, err := serializer.Serialize(frame)
	if err != nil {
		return nil
	}
	return data
}

// writeData sends a serialized message: string as text, []byte as binary
func (c *wsConnection) writeData(data any) {
	if data == nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	var err error
	switch v := data.(type) {
	case string:
		err = c.conn.WriteMessage(websocket.TextMessage, []byte(v))
	case []byte:
		err = c.conn.WriteMessage(websocket.BinaryMessage, v)
	default:
		err = fmt.Errorf("unsupported data type for websocket message: %T", data)
	}
	if err != nil {
		c.log.Debug("Write failed: %v", err)
	}
}

func (c *wsConnection) close(code int, reason string) {
	if c.closing.Swap(true) {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	// unblock the read loop
	_ = c.conn.SetReadDeadline(time.Now())
}

// outputProcessor is the last stage of a session pipeline: it writes every
// frame the serializer knows to the client and lets the rest reach the sink
type outputProcessor struct {
	*processors.BaseProcessor
	conn       *wsConnection
	serializer serializers.FrameSerializer
}

func newOutputProcessor(conn *wsConnection, serializer serializers.FrameSerializer) *outputProcessor {
	p := &outputProcessor{conn: conn, serializer: serializer}
	p.BaseProcessor = processors.NewBaseProcessor("WebSocketOutput", p)
	return p
}

func (p *outputProcessor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if direction == frames.Upstream {
		return p.PushFrame(frame, direction)
	}
	if start, ok := frame.(*frames.StartFrame); ok {
		if err := p.serializer.Setup(start); err != nil {
			return fmt.Errorf("serializer setup: %w", err)
		}
		return p.PushFrame(frame, direction)
	}

	p.sendFrame(frame)
	return p.PushFrame(frame, direction)
}

func (p *outputProcessor) sendFrame(frame frames.Frame) {
	data, err := p.serializer.Serialize(frame)
	if err != nil {
		p.Logger().Warn("Serialization error: %v", err)
		return
	}
	p.conn.writeData(data)
}
