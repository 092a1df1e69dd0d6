package support

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gitpusher/pushkit/internal/models"
	"github.com/gitpusher/pushkit/internal/session"
)

type fakeSupportBackend struct {
	mu       sync.Mutex
	messages []models.SupportMessage
	sendErr  error
	sent     []string
	unread   int
	presence models.Presence
	presErr  error
}

func (f *fakeSupportBackend) SupportMessages(ctx context.Context) ([]models.SupportMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SupportMessage(nil), f.messages...), nil
}

func (f *fakeSupportBackend) SendSupportMessage(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	// The server echoes the message on the next poll.
	f.messages = append(f.messages, models.SupportMessage{
		ID:        fmt.Sprintf("m%d", len(f.messages)+1),
		Role:      models.RoleUser,
		Text:      text,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeSupportBackend) UnreadCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread, nil
}

func (f *fakeSupportBackend) AdminOnline(ctx context.Context) (models.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presErr != nil {
		return models.Presence{}, f.presErr
	}
	return f.presence, nil
}

func testChannelConfig() Config {
	return Config{
		MessageInterval:  20 * time.Millisecond,
		PresenceInterval: 20 * time.Millisecond,
		PollTimeout:      time.Second,
	}
}

func authedSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New("tok", models.PlanFree)
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before timeout")
}

func TestChannel_OptimisticSendDedupedByPoll(t *testing.T) {
	backend := &fakeSupportBackend{}
	// A slow first poll so the optimistic copy is observable on its own.
	cfg := testChannelConfig()
	cfg.MessageInterval = 200 * time.Millisecond
	ch := NewChannel(backend, authedSession(t), cfg)
	ctx := context.Background()
	ch.Open(ctx)
	defer ch.Close()

	ch.Send(ctx, "my push keeps failing")

	// The optimistic copy is visible before any poll completes.
	v0 := ch.Snapshot(ctx)
	if len(v0.Messages) != 1 || !v0.Messages[0].Pending {
		t.Fatalf("expected one pending optimistic message, got %+v", v0.Messages)
	}

	// Once the poll echoes the server copy, exactly one copy remains.
	waitFor(t, 2*time.Second, func() bool {
		v := ch.Snapshot(ctx)
		return len(v.Messages) == 1 && !v.Messages[0].Pending && v.Messages[0].ID != ""
	})
	v := ch.Snapshot(ctx)
	count := 0
	for _, m := range v.Messages {
		if m.Text == "my push keeps failing" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one copy after dedupe, got %d", count)
	}
}

func TestChannel_FailedSendIsMarked(t *testing.T) {
	backend := &fakeSupportBackend{sendErr: fmt.Errorf("boom")}
	ch := NewChannel(backend, authedSession(t), testChannelConfig())
	ctx := context.Background()
	ch.Open(ctx)
	defer ch.Close()

	ch.Send(ctx, "hello")

	waitFor(t, 2*time.Second, func() bool {
		v := ch.Snapshot(ctx)
		return len(v.Messages) == 1 && strings.HasSuffix(v.Messages[0].Text, "(not delivered)")
	})
}

func TestChannel_UnauthenticatedGetsCannedReply(t *testing.T) {
	backend := &fakeSupportBackend{}
	ch := NewChannel(backend, session.Anonymous(), testChannelConfig())
	ctx := context.Background()
	ch.Open(ctx)
	defer ch.Close()

	ch.Send(ctx, "how do I buy more credits?")

	waitFor(t, time.Second, func() bool {
		return len(ch.Snapshot(ctx).Messages) == 2
	})

	v := ch.Snapshot(ctx)
	if v.Messages[1].Role != models.RoleOperator {
		t.Errorf("expected an operator reply, got %+v", v.Messages[1])
	}
	if !strings.Contains(strings.ToLower(v.Messages[1].Text), "credit") {
		t.Errorf("expected the credits canned reply, got %q", v.Messages[1].Text)
	}

	// No network send happens without a session.
	backend.mu.Lock()
	sent := len(backend.sent)
	backend.mu.Unlock()
	if sent != 0 {
		t.Errorf("unauthenticated send hit the backend %d time(s)", sent)
	}
}

func TestChannel_PresencePollAndOfflineDefault(t *testing.T) {
	backend := &fakeSupportBackend{presence: models.Presence{Online: true, Name: "sam"}}
	ch := NewChannel(backend, authedSession(t), testChannelConfig())
	ctx := context.Background()
	ch.Open(ctx)
	defer ch.Close()

	waitFor(t, 2*time.Second, func() bool {
		return ch.Snapshot(ctx).Presence.Online
	})

	// A failing poll falls back to offline rather than erroring.
	backend.mu.Lock()
	backend.presErr = fmt.Errorf("poll failed")
	backend.mu.Unlock()

	waitFor(t, 2*time.Second, func() bool {
		return !ch.Snapshot(ctx).Presence.Online
	})
}

func TestChannel_UnreadCount(t *testing.T) {
	backend := &fakeSupportBackend{
		messages: []models.SupportMessage{
			{ID: "m1", Role: models.RoleOperator, Text: "hi", CreatedAt: time.Now()},
		},
		unread: 1,
	}
	ch := NewChannel(backend, authedSession(t), testChannelConfig())
	ctx := context.Background()
	ch.Open(ctx)
	defer ch.Close()

	waitFor(t, 2*time.Second, func() bool {
		v := ch.Snapshot(ctx)
		return v.Unread == 1 && len(v.Messages) == 1
	})
}

func TestChannel_CloseThenSnapshot(t *testing.T) {
	backend := &fakeSupportBackend{
		messages: []models.SupportMessage{
			{ID: "m1", Role: models.RoleOperator, Text: "hi", CreatedAt: time.Now()},
		},
	}
	ch := NewChannel(backend, authedSession(t), testChannelConfig())
	ctx := context.Background()
	ch.Open(ctx)

	waitFor(t, 2*time.Second, func() bool {
		return len(ch.Snapshot(ctx).Messages) == 1
	})

	ch.Close()
	ch.Close() // idempotent

	v := ch.Snapshot(ctx)
	if v.Open {
		t.Error("expected closed view after Close")
	}
	if len(v.Messages) != 1 {
		t.Errorf("final view lost messages: %+v", v.Messages)
	}
}

func TestCannedReply(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"how do I create a repo?", "workflow"},
		{"where are my credits?", "credits"},
		{"cannot login", "sign"},
		{"I need support", "support@gitpusher.ai"},
		{"completely unrelated question", "sign in"},
	}
	for _, tt := range tests {
		got := CannedReply(tt.text)
		if !strings.Contains(strings.ToLower(got), strings.ToLower(tt.want)) {
			t.Errorf("CannedReply(%q) = %q, expected to contain %q", tt.text, got, tt.want)
		}
	}
}
