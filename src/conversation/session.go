package conversation

import (
	"sync"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
)

// State is where a session sits in the turn cycle
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateResponding State = "responding"
	StateEnded      State = "ended"
)

// DefaultMaxHistory bounds a session's history when no limit is configured
const DefaultMaxHistory = 50

// Session is the dialogue state of one connected client. turn serializes
// final utterances; mu guards the fields.
type Session struct {
	ID string

	turn sync.Mutex
	mu   sync.Mutex

	history    []dialog.Turn
	maxHistory int

	startedAt    time.Time
	lastSpeechAt time.Time
	lastActivity time.Time

	currentTopic        string
	awaitingUserInput   bool
	isUserSpeaking      bool
	isAssistantSpeaking bool
	interruptionCount   int
	state               State
	inFlight            bool

	pendingInterim    string
	lastAckAt         time.Time
	fillerSinceSpeech bool

	// slot filling for CREATE_ORDER
	draft        map[string]any
	awaitingSlot string
}

func newSession(id string, maxHistory int, now time.Time) *Session {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Session{
		ID:           id,
		maxHistory:   maxHistory,
		startedAt:    now,
		lastSpeechAt: now,
		lastActivity: now,
		state:        StateIdle,
	}
}

// reset starts the conversation over, keeping identity and counters
func (s *Session) reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.startedAt = now
	s.lastSpeechAt = now
	s.lastActivity = now
	s.currentTopic = ""
	s.awaitingUserInput = false
	s.pendingInterim = ""
	s.fillerSinceSpeech = false
	s.draft = nil
	s.awaitingSlot = ""
	s.state = StateIdle
}

func (s *Session) ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateEnded
}

// appendTurn adds a turn, trimming the oldest beyond maxHistory
func (s *Session) appendTurn(speaker dialog.Speaker, text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, dialog.Turn{Speaker: speaker, Text: text, At: at})
	if over := len(s.history) - s.maxHistory; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// History returns a copy of the conversation history
func (s *Session) History() []dialog.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dialog.Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) historyBefore(n int) []dialog.Turn {
	h := s.History()
	if n > len(h) {
		n = len(h)
	}
	return h[:len(h)-n]
}

// Stats is a point-in-time view of a session
type Stats struct {
	SessionID           string        `json:"sessionId"`
	State               State         `json:"state"`
	StartedAt           time.Time     `json:"startedAt"`
	LastSpeechAt        time.Time     `json:"lastSpeechAt"`
	Duration            time.Duration `json:"duration"`
	Turns               int           `json:"turns"`
	CurrentTopic        string        `json:"currentTopic,omitempty"`
	AwaitingUserInput   bool          `json:"awaitingUserInput"`
	IsUserSpeaking      bool          `json:"isUserSpeaking"`
	IsAssistantSpeaking bool          `json:"isAssistantSpeaking"`
	InterruptionCount   int           `json:"interruptionCount"`
	PendingSlot         string        `json:"pendingSlot,omitempty"`
}

func (s *Session) stats(now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		SessionID:           s.ID,
		State:               s.state,
		StartedAt:           s.startedAt,
		LastSpeechAt:        s.lastSpeechAt,
		Duration:            now.Sub(s.startedAt),
		Turns:               len(s.history),
		CurrentTopic:        s.currentTopic,
		AwaitingUserInput:   s.awaitingUserInput,
		IsUserSpeaking:      s.isUserSpeaking,
		IsAssistantSpeaking: s.isAssistantSpeaking,
		InterruptionCount:   s.interruptionCount,
		PendingSlot:         s.awaitingSlot,
	}
}

// idleSince reports whether the session has been untouched since cutoff. A
// turn in flight is never idle.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight && s.lastActivity.Before(cutoff)
}

// heardSpeech records user speech activity
func (s *Session) heardSpeech(now time.Time) {
	s.lastSpeechAt = now
	s.lastActivity = now
	s.fillerSinceSpeech = false
}
