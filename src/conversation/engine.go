// Package conversation is the dialogue state machine. It owns every session,
// serializes each session's turns and decides when LISA speaks: replies to
// final utterances, acknowledgments during interim speech, fillers during
// silence and re-engagement after a barge-in.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/actions"
	"github.com/square-key-labs/strawgo-lisa/src/compose"
	"github.com/square-key-labs/strawgo-lisa/src/config"
	"github.com/square-key-labs/strawgo-lisa/src/dialog"
	"github.com/square-key-labs/strawgo-lisa/src/intent"
	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// fillerConfidence marks backchannel responses
const fillerConfidence = 0.3

// Options tunes the engine
type Options struct {
	SilenceTimeout         time.Duration
	MaxConversationLength  time.Duration
	IdleTimeout            time.Duration
	SweepInterval          time.Duration
	EnableFillerWords      bool
	EnableThinkingSounds   bool
	InterimResults         bool
	InterimFillerMinLength int
	InterimFillerChance    float64
	InterimFillerCooldown  time.Duration
}

// OptionsFromConfig maps the conversation config section onto Options
func OptionsFromConfig(c config.Conversation) Options {
	return Options{
		SilenceTimeout:         c.SilenceTimeout(),
		MaxConversationLength:  c.MaxConversationLength(),
		IdleTimeout:            c.IdleTimeout(),
		SweepInterval:          c.SweepInterval(),
		EnableFillerWords:      c.EnableFillerWords,
		EnableThinkingSounds:   c.EnableThinkingSounds,
		InterimResults:         c.InterimResults,
		InterimFillerMinLength: c.InterimFillerMinLength,
		InterimFillerChance:    c.InterimFillerChance,
		InterimFillerCooldown:  c.InterimFillerCooldown(),
	}
}

// Engine drives every session. It is safe for concurrent use; turns of one
// session run one at a time, different sessions run in parallel.
type Engine struct {
	opts       Options
	sessions   *SessionStore
	classifier intent.Classifier
	composer   *compose.Composer
	executor   *actions.Executor
	selector   FillerSelector
	now        func() time.Time
	log        *logger.Logger
}

// NewEngine wires the engine to its collaborators. A nil executor behaves
// like an executor without a store.
func NewEngine(opts Options, sessions *SessionStore, classifier intent.Classifier, composer *compose.Composer, executor *actions.Executor) *Engine {
	if executor == nil {
		executor = actions.NewExecutor(nil, 0)
	}
	return &Engine{
		opts:       opts,
		sessions:   sessions,
		classifier: classifier,
		composer:   composer,
		executor:   executor,
		selector:   NewRandomSelector(),
		now:        time.Now,
		log:        logger.WithPrefix("Conversation"),
	}
}

// WithSelector replaces the filler selector
func (e *Engine) WithSelector(s FillerSelector) *Engine {
	e.selector = s
	return e
}

// WithClock replaces the engine clock
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Sessions() *SessionStore {
	return e.sessions
}

func (e *Engine) Options() Options {
	return e.opts
}

// StartConversation creates or restarts a session and greets the user
func (e *Engine) StartConversation(ctx context.Context, id string) dialog.Response {
	now := e.now()
	sess, created := e.lockTurn(id, now)
	defer sess.turn.Unlock()

	if !created {
		sess.reset(now)
	}
	resp := e.composer.Greeting()
	sess.appendTurn(dialog.SpeakerAssistant, resp.Text, now)
	sess.afterReply(intent.TopicGreeting, awaitsInput(resp))

	logger.ForSession("Conversation", id).Info("Conversation started")
	return resp
}

// HandleUtterance processes one transcript. Interim transcripts never reach
// the classifier and never touch history or topic.
func (e *Engine) HandleUtterance(ctx context.Context, u dialog.Utterance) dialog.Response {
	if !u.IsFinal {
		return e.handleInterim(u)
	}
	return e.handleFinal(ctx, u)
}

func (e *Engine) handleInterim(u dialog.Utterance) dialog.Response {
	if !e.opts.InterimResults {
		return dialog.Silent()
	}
	text := strings.TrimSpace(u.Transcript)
	now := e.now()
	sess, _ := e.sessions.GetOrCreate(u.SessionID, now)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// a final turn is running; this partial belongs to it
	if sess.inFlight {
		return dialog.Silent()
	}
	sess.pendingInterim = text
	sess.heardSpeech(now)
	sess.state = StateListening

	if !e.opts.EnableThinkingSounds || len([]rune(text)) < e.opts.InterimFillerMinLength {
		return dialog.Silent()
	}
	if !sess.lastAckAt.IsZero() && now.Sub(sess.lastAckAt) < e.opts.InterimFillerCooldown {
		return dialog.Silent()
	}
	if !e.selector.Chance(e.opts.InterimFillerChance) {
		return dialog.Silent()
	}

	ack := e.selector.Pick(compose.InterimAcks)
	if ack == "" {
		return dialog.Silent()
	}
	sess.lastAckAt = now
	return dialog.Response{
		Text:        ack,
		FillerWord:  ack,
		ShouldSpeak: true,
		IsThinking:  true,
		Confidence:  fillerConfidence,
	}
}

// lockTurn returns the live session for id with its turn lock held. A
// session removed while the caller waited is skipped and a fresh one is
// used, so no turn runs against an ended conversation.
func (e *Engine) lockTurn(id string, now time.Time) (*Session, bool) {
	for {
		sess, created := e.sessions.GetOrCreate(id, now)
		sess.turn.Lock()
		if !sess.ended() {
			return sess, created
		}
		sess.turn.Unlock()
	}
}

type outcome int

const (
	outcomeReply outcome = iota
	outcomeWrapUp
	outcomeEnded
)

func (e *Engine) handleFinal(ctx context.Context, u dialog.Utterance) dialog.Response {
	text := strings.TrimSpace(u.Transcript)
	if text == "" {
		return dialog.Silent()
	}

	now := e.now()
	sess, created := e.lockTurn(u.SessionID, now)
	defer sess.turn.Unlock()
	log := logger.ForSession("Conversation", sess.ID)
	if created {
		log.Info("Session created")
	}

	sess.mu.Lock()
	sess.inFlight = true
	sess.pendingInterim = ""
	sess.heardSpeech(now)
	sess.state = StateProcessing
	sess.mu.Unlock()

	sess.appendTurn(dialog.SpeakerUser, text, now)
	resp, out := e.respond(ctx, sess, text, now, created, log)
	if out == outcomeReply {
		sess.appendTurn(dialog.SpeakerAssistant, resp.Text, e.now())
	}

	sess.mu.Lock()
	sess.inFlight = false
	sess.lastActivity = e.now()
	if sess.state != StateEnded {
		sess.state = StateIdle
		if resp.ShouldSpeak {
			sess.state = StateResponding
		}
	}
	sess.mu.Unlock()
	return resp
}

// respond runs classify, act and compose for one final utterance. Any panic
// becomes an apology and the session survives. created marks a session that
// this utterance opened.
func (e *Engine) respond(ctx context.Context, sess *Session, text string, now time.Time, created bool, log *logger.Logger) (resp dialog.Response, out outcome) {
	emotion := intent.DetectEmotion(text)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Turn failed: %v", r)
			resp, out = e.composer.Apology(emotion), outcomeReply
			sess.afterReply("", awaitsInput(resp))
		}
	}()

	if e.tooLong(sess, now) {
		log.Info("Conversation exceeded %s, wrapping up", e.opts.MaxConversationLength)
		resp = e.composer.WrapUp()
		sess.afterReply("", awaitsInput(resp))
		return resp, outcomeWrapUp
	}

	prior := sess.historyBefore(1)
	result, err := e.classifier.Classify(ctx, text, prior)
	if err != nil {
		log.Error("Classification failed: %v", err)
		resp = e.composer.Apology(emotion)
		sess.afterReply("", awaitsInput(resp))
		return resp, outcomeReply
	}
	if result.Emotion != "" {
		emotion = result.Emotion
	}
	log.Debug("Classified %q as %s (%.2f via %s)", text, result.Intent, result.Confidence, result.Provider)

	if result.Intent == dialog.IntentEndConversation {
		if created {
			// nothing was open; ending again is a no-op
			e.sessions.Remove(sess.ID)
			return e.composer.NoSession(), outcomeEnded
		}
		return e.finish(ctx, sess, result, log), outcomeEnded
	}

	result = sess.fillSlots(text, result)
	if result.Intent == dialog.IntentCreateOrder && result.RequiresUserInput {
		resp = e.composer.AskSlot(sess.pendingSlot(), result)
	} else {
		resp = e.composer.Compose(ctx, compose.Request{Text: text, Intent: result, History: prior})
	}

	if resp.Action != "" {
		if e.opts.EnableThinkingSounds {
			resp.FillerWord = compose.ThinkingFiller
		}
		res := e.executor.Execute(ctx, resp.Action, result.Parameters)
		resp = e.composer.DescribeResult(resp, res)
		switch {
		case res.Action == actions.EndConversation:
			e.sessions.Remove(sess.ID)
			log.Info("Conversation ended by action")
			return resp, outcomeEnded
		case res.Type == actions.TypeOrderCreated:
			sess.clearDraft()
		}
	}

	sess.afterReply(result.Topic, awaitsInput(resp))
	return resp, outcomeReply
}

func (e *Engine) tooLong(sess *Session, now time.Time) bool {
	if e.opts.MaxConversationLength <= 0 {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return now.Sub(sess.startedAt) > e.opts.MaxConversationLength
}

func (e *Engine) finish(ctx context.Context, sess *Session, result dialog.IntentResult, log *logger.Logger) dialog.Response {
	e.sessions.Remove(sess.ID)
	log.Info("Conversation ended")
	resp := e.composer.Goodbye(result)
	return e.composer.DescribeResult(resp, e.executor.Execute(ctx, actions.EndConversation, nil))
}

// awaitsInput reports whether the reply leaves the floor to the user
func awaitsInput(resp dialog.Response) bool {
	return resp.RequiresUserInput || strings.HasSuffix(strings.TrimSpace(resp.Text), "?")
}

// HandleSilence returns a contextual filler when the user has gone quiet
// mid-thought. At most one filler is sent per stretch of silence.
func (e *Engine) HandleSilence(ctx context.Context, id string) (dialog.Response, bool) {
	if !e.opts.EnableFillerWords {
		return dialog.Silent(), false
	}
	sess, ok := e.sessions.Get(id)
	if !ok {
		return dialog.Silent(), false
	}

	now := e.now()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch {
	case sess.isAssistantSpeaking, sess.isUserSpeaking, sess.inFlight, sess.fillerSinceSpeech:
		return dialog.Silent(), false
	case now.Sub(sess.lastSpeechAt) < e.opts.SilenceTimeout:
		return dialog.Silent(), false
	case sess.pendingInterim == "" && !sess.awaitingUserInput:
		return dialog.Silent(), false
	}

	text := e.selector.Pick(compose.SilenceFillers[compose.SilencePool(sess.currentTopic)])
	if text == "" {
		return dialog.Silent(), false
	}
	sess.fillerSinceSpeech = true
	return dialog.Response{
		Text:        text,
		FillerWord:  text,
		ShouldSpeak: true,
		IsThinking:  true,
		Confidence:  fillerConfidence,
	}, true
}

// Interrupt handles a barge-in. History is left untouched.
func (e *Engine) Interrupt(id string) dialog.Response {
	resp := dialog.Response{
		Text:        e.selector.Pick(compose.InterruptionPhrases),
		ShouldSpeak: true,
		Confidence:  1,
	}
	if resp.Text == "" {
		resp.Text = compose.InterruptionPhrases[0]
	}

	sess, ok := e.sessions.Get(id)
	if !ok {
		return resp
	}
	sess.mu.Lock()
	sess.interruptionCount++
	sess.isAssistantSpeaking = false
	sess.state = StateListening
	sess.lastActivity = e.now()
	count := sess.interruptionCount
	sess.mu.Unlock()

	logger.ForSession("Conversation", id).Debug("Interrupted (%d so far)", count)
	return resp
}

// EndConversation removes the session. Ending twice is not an error.
func (e *Engine) EndConversation(id string) dialog.Response {
	if !e.sessions.Remove(id) {
		return e.composer.NoSession()
	}
	logger.ForSession("Conversation", id).Info("Conversation ended")
	return e.composer.Goodbye(dialog.IntentResult{Confidence: 1, Emotion: dialog.EmotionNeutral})
}

// Disconnect drops the session when its transport goes away
func (e *Engine) Disconnect(id string) {
	if e.sessions.Remove(id) {
		logger.ForSession("Conversation", id).Info("Disconnected")
	}
}

// SetUserSpeaking records VAD state for the session, if it exists
func (e *Engine) SetUserSpeaking(id string, speaking bool) {
	sess, ok := e.sessions.Get(id)
	if !ok {
		return
	}
	now := e.now()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.isUserSpeaking = speaking
	// both edges count as speech; silence is measured from the last one
	sess.heardSpeech(now)
	if speaking && !sess.inFlight {
		sess.state = StateListening
	}
}

// SetAssistantSpeaking records client playback state for the session
func (e *Engine) SetAssistantSpeaking(id string, speaking bool) {
	sess, ok := e.sessions.Get(id)
	if !ok {
		return
	}
	now := e.now()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.isAssistantSpeaking = speaking
	sess.lastActivity = now
	if !speaking {
		// silence before a filler is measured from the end of playback
		sess.lastSpeechAt = now
	}
	if sess.inFlight {
		return
	}
	if speaking {
		sess.state = StateResponding
	} else {
		sess.state = StateIdle
	}
}

// Stats reports a session snapshot
func (e *Engine) Stats(id string) (Stats, bool) {
	sess, ok := e.sessions.Get(id)
	if !ok {
		return Stats{}, false
	}
	return sess.stats(e.now()), true
}

// SweepIdle removes sessions idle longer than the idle timeout
func (e *Engine) SweepIdle(now time.Time) int {
	if e.opts.IdleTimeout <= 0 {
		return 0
	}
	removed := e.sessions.SweepIdle(now.Add(-e.opts.IdleTimeout))
	if len(removed) > 0 {
		e.log.Info("Swept %d idle sessions: %v", len(removed), removed)
	}
	return len(removed)
}

// RunSweeper sweeps idle sessions every SweepInterval until ctx is done
func (e *Engine) RunSweeper(ctx context.Context) error {
	interval := e.opts.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.SweepIdle(e.now())
		}
	}
}
