package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/concierge/internal/chat"
	"github.com/antoniostano/concierge/internal/history"
	"github.com/antoniostano/concierge/internal/observability"
	"github.com/antoniostano/concierge/internal/responder"
	"github.com/antoniostano/concierge/internal/session"
)

type scriptedResponder struct {
	reply string
	err   error
	calls int
}

func (r *scriptedResponder) Reply(_ context.Context, _ responder.Request) (responder.Response, error) {
	r.calls++
	if r.err != nil {
		return responder.Response{}, r.err
	}
	return responder.Response{BotText: r.reply}, nil
}

type failingStore struct {
	history.Store
}

func (failingStore) AppendMessages(context.Context, string, []chat.Message) error {
	return errors.New("disk on fire")
}

func (failingStore) AppendQueryEntry(context.Context, string, string, string) error {
	return errors.New("disk on fire")
}

func newTestHub(t *testing.T, store history.Store, ai responder.Responder) (*Hub, *session.Session) {
	t.Helper()
	sessions := session.NewManager(time.Minute)
	metrics := observability.NewMetrics(fmt.Sprintf("concierge_test_%d", time.Now().UnixNano()))
	hub := NewHub(sessions, store, ai, metrics, time.Second, time.UTC)
	sess := sessions.Create(uuid.NewString(), "Ada")
	return hub, sess
}

func TestOpenSeedsWelcomeMessage(t *testing.T) {
	store := history.NewMemoryStore(time.UTC)
	hub, sess := newTestHub(t, store, &scriptedResponder{reply: "Hello!"})

	conv, err := hub.Open(context.Background(), sess)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	transcript := conv.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(transcript))
	}
	welcome := transcript[0]
	if welcome.Sender != chat.SenderBot {
		t.Fatalf("welcome sender = %q, want %q", welcome.Sender, chat.SenderBot)
	}
	if welcome.Text != "Welcome Ada! How can I assist you?" {
		t.Fatalf("welcome text = %q", welcome.Text)
	}

	// The welcome message is persisted like any other bot message.
	hist, err := store.History(context.Background(), sess.UserID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(hist.Buckets) != 1 || len(hist.Buckets[0].Messages) != 1 {
		t.Fatalf("unexpected stored history: %+v", hist)
	}
}

func TestWelcomeTextFallsBackToThere(t *testing.T) {
	if got := welcomeText("  "); got != "Welcome there! How can I assist you?" {
		t.Fatalf("welcomeText = %q", got)
	}
}

func TestSendMessageBlankIsNoOp(t *testing.T) {
	store := history.NewMemoryStore(time.UTC)
	ai := &scriptedResponder{reply: "Hello!"}
	hub, sess := newTestHub(t, store, ai)
	conv, _ := hub.Open(context.Background(), sess)

	before := len(conv.Transcript())
	for _, blank := range []string{"", "   "} {
		turn, err := conv.SendMessage(context.Background(), blank)
		if err != nil {
			t.Fatalf("SendMessage(%q) error = %v", blank, err)
		}
		if !turn.Skipped {
			t.Fatalf("SendMessage(%q) Skipped = false, want true", blank)
		}
	}
	if got := len(conv.Transcript()); got != before {
		t.Fatalf("transcript length = %d, want %d", got, before)
	}
	if ai.calls != 0 {
		t.Fatalf("responder calls = %d, want 0", ai.calls)
	}
	if conv.State() != StateIdle {
		t.Fatalf("state = %q, want %q", conv.State(), StateIdle)
	}
}

func TestSendMessageHappyPath(t *testing.T) {
	store := history.NewMemoryStore(time.UTC)
	hub, sess := newTestHub(t, store, &scriptedResponder{reply: "Hello!"})
	conv, _ := hub.Open(context.Background(), sess)

	turn, err := conv.SendMessage(context.Background(), "Hi")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if turn.Warning != "" {
		t.Fatalf("Warning = %q, want empty", turn.Warning)
	}
	if turn.UserMessage.Sender != chat.SenderUser || turn.UserMessage.Text != "Hi" {
		t.Fatalf("unexpected user message: %+v", turn.UserMessage)
	}
	if turn.BotMessage.Sender != chat.SenderBot || turn.BotMessage.Text != "Hello!" {
		t.Fatalf("unexpected bot message: %+v", turn.BotMessage)
	}

	// Transcript: welcome, then user before its bot reply.
	transcript := conv.Transcript()
	if len(transcript) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(transcript))
	}
	if transcript[1].Sender != chat.SenderUser || transcript[2].Sender != chat.SenderBot {
		t.Fatalf("transcript order wrong: %+v", transcript)
	}

	// Both views of the turn are stored.
	hist, err := store.History(context.Background(), sess.UserID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	msgs := hist.Buckets[0].Messages
	if len(msgs) != 3 || msgs[1].Text != "Hi" || msgs[2].Text != "Hello!" {
		t.Fatalf("unexpected stored messages: %+v", msgs)
	}

	qlog, err := store.QueryLog(context.Background(), sess.UserID)
	if err != nil {
		t.Fatalf("QueryLog() error = %v", err)
	}
	if len(qlog.Entries) != 1 || qlog.Entries[0].Query != "Hi" || qlog.Entries[0].Response != "Hello!" {
		t.Fatalf("unexpected query log: %+v", qlog.Entries)
	}

	if conv.State() != StateIdle {
		t.Fatalf("state = %q, want %q", conv.State(), StateIdle)
	}
}

func TestSendMessageResponderFailureFallsBack(t *testing.T) {
	store := history.NewMemoryStore(time.UTC)
	hub, sess := newTestHub(t, store, &scriptedResponder{err: errors.New("connection refused")})
	conv, _ := hub.Open(context.Background(), sess)

	turn, err := conv.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendMessage() error = %v, responder failures must not surface", err)
	}
	if turn.BotMessage.Text != FallbackText {
		t.Fatalf("bot text = %q, want fallback", turn.BotMessage.Text)
	}
	if turn.BotMessage.Sender != chat.SenderBot {
		t.Fatalf("fallback sender = %q, want %q", turn.BotMessage.Sender, chat.SenderBot)
	}

	// Exactly one user and one bot message persisted for the turn.
	hist, err := store.History(context.Background(), sess.UserID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	msgs := hist.Buckets[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("stored message count = %d, want 3 (welcome + turn)", len(msgs))
	}
	if msgs[2].Text != FallbackText {
		t.Fatalf("stored bot text = %q, want fallback", msgs[2].Text)
	}

	// The fallback is still recorded as the turn's response.
	qlog, err := store.QueryLog(context.Background(), sess.UserID)
	if err != nil {
		t.Fatalf("QueryLog() error = %v", err)
	}
	if qlog.Entries[0].Response != FallbackText {
		t.Fatalf("query log response = %q, want fallback", qlog.Entries[0].Response)
	}

	if conv.State() != StateIdle {
		t.Fatalf("state = %q, want %q", conv.State(), StateIdle)
	}
}

func TestSendMessagePersistenceFailureIsNonFatal(t *testing.T) {
	hub, sess := newTestHub(t, failingStore{}, &scriptedResponder{reply: "Hello!"})
	conv, _ := hub.Open(context.Background(), sess)

	turn, err := conv.SendMessage(context.Background(), "Hi")
	if err != nil {
		t.Fatalf("SendMessage() error = %v, persistence failures are warnings", err)
	}
	if turn.Warning == "" {
		t.Fatalf("Warning is empty, want persistence failure report")
	}
	if turn.BotMessage.Text != "Hello!" {
		t.Fatalf("bot text = %q, want %q", turn.BotMessage.Text, "Hello!")
	}

	// Optimistic display: both messages stay visible despite the failures.
	transcript := conv.Transcript()
	if len(transcript) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(transcript))
	}
}

func TestHubGetAndDrop(t *testing.T) {
	store := history.NewMemoryStore(time.UTC)
	hub, sess := newTestHub(t, store, &scriptedResponder{reply: "Hello!"})
	if _, err := hub.Open(context.Background(), sess); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := hub.Get(sess.ID); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	hub.Drop(sess.ID)
	if _, err := hub.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after Drop error = %v, want %v", err, ErrNotFound)
	}
}
