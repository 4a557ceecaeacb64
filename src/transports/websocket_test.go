package transports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/compose"
	"github.com/square-key-labs/strawgo-lisa/src/conversation"
	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/intent"
	"github.com/square-key-labs/strawgo-lisa/src/processors"
	"github.com/square-key-labs/strawgo-lisa/src/serializers"
)

func newTestEngine() *conversation.Engine {
	opts := conversation.Options{
		MaxConversationLength: 30 * time.Minute,
		IdleTimeout:           10 * time.Minute,
	}
	return conversation.NewEngine(opts, conversation.NewSessionStore(0), intent.NewChain(0), compose.NewComposer(0, compose.StyleFriendly), nil)
}

func startServer(t *testing.T, config WebSocketConfig, factory PipelineFactory) (*WebSocketServer, *httptest.Server) {
	t.Helper()
	srv := NewWebSocketServer(config, factory)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until one of the given type arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) serializers.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg serializers.Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestConversationOverWebSocket(t *testing.T) {
	engine := newTestEngine()
	_, ts := startServer(t, WebSocketConfig{Path: "/ws"}, func(id string) ([]processors.FrameProcessor, error) {
		return []processors.FrameProcessor{conversation.NewProcessor(engine)}, nil
	})
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"start"}`)))
	msg := readUntil(t, conn, serializers.MsgResponse)
	require.NotNil(t, msg.Response)
	assert.Equal(t, dialog.IntentGreeting, msg.Response.Intent)
	assert.NotEmpty(t, msg.SessionID)
	sessionID := msg.SessionID

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"utterance","text":"show me pending orders","isFinal":true}`)))
	msg = readUntil(t, conn, serializers.MsgResponse)
	require.NotNil(t, msg.Response)
	assert.Equal(t, dialog.IntentSearchOrders, msg.Response.Intent)
	assert.Equal(t, "search_orders", msg.Response.Action)
	assert.Equal(t, sessionID, msg.SessionID)

	// malformed input is reported, the session keeps going
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{oops`)))
	readUntil(t, conn, serializers.MsgError)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return engine.Sessions().Len() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestSessionsAreIsolated(t *testing.T) {
	engine := newTestEngine()
	srv, ts := startServer(t, WebSocketConfig{}, func(id string) ([]processors.FrameProcessor, error) {
		return []processors.FrameProcessor{conversation.NewProcessor(engine)}, nil
	})

	a := dial(t, ts)
	b := dial(t, ts)
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"utterance","text":"hello"}`)))
	require.NoError(t, b.WriteMessage(websocket.TextMessage, []byte(`{"type":"utterance","text":"hello"}`)))

	ma := readUntil(t, a, serializers.MsgResponse)
	mb := readUntil(t, b, serializers.MsgResponse)
	assert.NotEqual(t, ma.SessionID, mb.SessionID)
	assert.Equal(t, 2, srv.Sessions())
	assert.Equal(t, 2, engine.Sessions().Len())
}

func TestIdleConnectionIsClosed(t *testing.T) {
	engine := newTestEngine()
	_, ts := startServer(t, WebSocketConfig{IdleTimeout: 100 * time.Millisecond}, func(id string) ([]processors.FrameProcessor, error) {
		return []processors.FrameProcessor{conversation.NewProcessor(engine)}, nil
	})
	conn := dial(t, ts)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "got %v", err)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
}

func TestFactoryFailureClosesConnection(t *testing.T) {
	_, ts := startServer(t, WebSocketConfig{}, func(id string) ([]processors.FrameProcessor, error) {
		return nil, errors.New("no providers")
	})
	conn := dial(t, ts)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "got %v", err)
	assert.Equal(t, websocket.CloseInternalServerErr, closeErr.Code)
}

func TestHealthz(t *testing.T) {
	_, ts := startServer(t, WebSocketConfig{}, func(id string) ([]processors.FrameProcessor, error) {
		return nil, nil
	})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}
