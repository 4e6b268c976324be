package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/concierge/internal/chat"
	"github.com/antoniostano/concierge/internal/history"
	"github.com/antoniostano/concierge/internal/observability"
	"github.com/antoniostano/concierge/internal/responder"
	"github.com/antoniostano/concierge/internal/session"
)

// FallbackText replaces the bot reply when the AI responder fails. It is a
// normal bot message; nothing but its text distinguishes it from a genuine
// reply.
const FallbackText = "Sorry, I couldn't fetch a response. Please try again."

// State tracks where a conversation is within one chat turn.
type State string

const (
	StateIdle             State = "idle"
	StateSending          State = "sending"
	StateAwaitingResponse State = "awaiting_response"
)

var ErrNotFound = errors.New("conversation not found")

// Turn is the outcome of one SendMessage call. Warning carries a non-fatal
// persistence problem; the turn is still complete when it is set.
type Turn struct {
	Skipped     bool         `json:"skipped,omitempty"`
	UserMessage chat.Message `json:"user_message,omitempty"`
	BotMessage  chat.Message `json:"bot_message,omitempty"`
	Warning     string       `json:"warning,omitempty"`
}

// Hub owns one Conversation per open session and the collaborators a turn
// needs.
type Hub struct {
	sessions     *session.Manager
	store        history.Store
	ai           responder.Responder
	metrics      *observability.Metrics
	replyTimeout time.Duration
	loc          *time.Location
	now          func() time.Time

	mu    sync.Mutex
	convs map[string]*Conversation
}

func NewHub(
	sessions *session.Manager,
	store history.Store,
	ai responder.Responder,
	metrics *observability.Metrics,
	replyTimeout time.Duration,
	loc *time.Location,
) *Hub {
	if replyTimeout <= 0 {
		replyTimeout = 30 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Hub{
		sessions:     sessions,
		store:        store,
		ai:           ai,
		metrics:      metrics,
		replyTimeout: replyTimeout,
		loc:          loc,
		now:          time.Now,
		convs:        make(map[string]*Conversation),
	}
}

// Open starts a conversation for the session and seeds it with the welcome
// message, persisted exactly like any other bot message.
func (h *Hub) Open(ctx context.Context, sess *session.Session) (*Conversation, error) {
	if sess == nil {
		return nil, ErrNotFound
	}

	c := &Conversation{
		hub:   h,
		sess:  sess,
		state: StateIdle,
	}

	h.mu.Lock()
	h.convs[sess.ID] = c
	h.mu.Unlock()

	now := h.now()
	welcome := chat.Message{
		ID:          uuid.NewString(),
		Sender:      chat.SenderBot,
		Text:        welcomeText(sess.Name),
		DisplayTime: chat.ClockTime(now, h.loc),
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, welcome)
	c.mu.Unlock()

	if err := h.store.AppendMessages(ctx, sess.UserID, []chat.Message{welcome}); err != nil {
		h.metrics.StoreWarnings.WithLabelValues("welcome").Inc()
		log.Printf("session %s: persist welcome message failed: %v", sess.ID, err)
	}
	return c, nil
}

// Get returns the conversation for an open session.
func (h *Hub) Get(sessionID string) (*Conversation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.convs[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Drop forgets the conversation for an ended session.
func (h *Hub) Drop(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.convs, sessionID)
}

func welcomeText(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Welcome %s! How can I assist you?", name)
}

// Conversation drives chat turns for one session. Each SendMessage call runs
// its own chain (persist user message, query AI, persist bot message); two
// calls issued in rapid succession may interleave their messages in the
// transcript, but within a turn the user message always precedes its reply.
type Conversation struct {
	hub  *Hub
	sess *session.Session

	mu         sync.Mutex
	state      State
	transcript []chat.Message
}

// SendMessage runs one chat turn. Blank input after trimming is a no-op.
// Responder failures degrade to the fallback reply and never surface as
// errors; persistence failures are reported in Turn.Warning but do not fail
// the turn or retract already-visible messages.
func (c *Conversation) SendMessage(ctx context.Context, text string) (Turn, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		c.hub.metrics.TurnEvents.WithLabelValues("skipped").Inc()
		return Turn{Skipped: true}, nil
	}

	started := c.hub.now()
	var warnings []string

	userMsg := chat.Message{
		ID:          uuid.NewString(),
		Sender:      chat.SenderUser,
		Text:        clean,
		DisplayTime: chat.ClockTime(started, c.hub.loc),
	}

	// Optimistic display: the message is visible before (and regardless of
	// whether) its persistence call succeeds.
	c.mu.Lock()
	c.state = StateSending
	c.transcript = append(c.transcript, userMsg)
	c.mu.Unlock()

	if err := c.hub.store.AppendMessages(ctx, c.sess.UserID, []chat.Message{userMsg}); err != nil {
		c.hub.metrics.StoreWarnings.WithLabelValues("user_message").Inc()
		log.Printf("session %s: persist user message failed: %v", c.sess.ID, err)
		warnings = append(warnings, fmt.Sprintf("persist user message: %v", err))
	}

	c.mu.Lock()
	c.state = StateAwaitingResponse
	c.mu.Unlock()

	botText := c.queryResponder(ctx, clean)

	botMsg := chat.Message{
		ID:          uuid.NewString(),
		Sender:      chat.SenderBot,
		Text:        botText,
		DisplayTime: chat.ClockTime(c.hub.now(), c.hub.loc),
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, botMsg)
	c.state = StateIdle
	c.mu.Unlock()

	if err := c.hub.store.AppendMessages(ctx, c.sess.UserID, []chat.Message{botMsg}); err != nil {
		c.hub.metrics.StoreWarnings.WithLabelValues("bot_message").Inc()
		log.Printf("session %s: persist bot message failed: %v", c.sess.ID, err)
		warnings = append(warnings, fmt.Sprintf("persist bot message: %v", err))
	}
	if err := c.hub.store.AppendQueryEntry(ctx, c.sess.UserID, clean, botText); err != nil {
		c.hub.metrics.StoreWarnings.WithLabelValues("query_log").Inc()
		log.Printf("session %s: record query log entry failed: %v", c.sess.ID, err)
		warnings = append(warnings, fmt.Sprintf("record query log entry: %v", err))
	}

	c.hub.metrics.TurnEvents.WithLabelValues("completed").Inc()
	c.hub.metrics.ObserveTurnLatency(c.hub.now().Sub(started))

	return Turn{
		UserMessage: userMsg,
		BotMessage:  botMsg,
		Warning:     strings.Join(warnings, "; "),
	}, nil
}

// queryResponder asks the AI for a reply, converting any failure into the
// fallback text. Exactly one bot reply comes back per call.
func (c *Conversation) queryResponder(ctx context.Context, userText string) string {
	replyCtx, cancel := context.WithTimeout(ctx, c.hub.replyTimeout)
	defer cancel()

	resp, err := c.hub.ai.Reply(replyCtx, responder.Request{
		UserID:    c.sess.UserID,
		SessionID: c.sess.ID,
		UserText:  userText,
	})
	if err != nil {
		c.hub.metrics.ResponderErrors.WithLabelValues(reasonOf(err)).Inc()
		c.hub.metrics.TurnEvents.WithLabelValues("fallback").Inc()
		log.Printf("session %s: responder failed, using fallback: %v", c.sess.ID, err)
		return FallbackText
	}
	if strings.TrimSpace(resp.BotText) == "" {
		c.hub.metrics.ResponderErrors.WithLabelValues("empty").Inc()
		c.hub.metrics.TurnEvents.WithLabelValues("fallback").Inc()
		return FallbackText
	}
	return resp.BotText
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// State reports where the conversation currently is in its turn machine.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns a copy of the UI-visible messages.
func (c *Conversation) Transcript() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Session returns the owning session.
func (c *Conversation) Session() *session.Session {
	return c.sess
}
