// Package support implements the near-real-time support conversation:
// optimistic local sends reconciled against the server's authoritative
// message list by polling.
package support

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gitpusher/pushkit/internal/models"
	"github.com/gitpusher/pushkit/internal/session"
)

// Backend is the slice of the API the channel depends on.
type Backend interface {
	SupportMessages(ctx context.Context) ([]models.SupportMessage, error)
	SendSupportMessage(ctx context.Context, text string) error
	UnreadCount(ctx context.Context) (int, error)
	AdminOnline(ctx context.Context) (models.Presence, error)
}

// Config tunes the channel's polling cadences.
type Config struct {
	MessageInterval  time.Duration // authoritative list poll (default: 5s)
	PresenceInterval time.Duration // operator presence poll (default: 3s)
	PollTimeout      time.Duration
	Verbose          bool
}

func (c *Config) setDefaults() {
	if c.MessageInterval <= 0 {
		c.MessageInterval = 5 * time.Second
	}
	if c.PresenceInterval <= 0 {
		c.PresenceInterval = 3 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 4 * time.Second
	}
}

// dedupeWindow is how close an optimistic message's timestamp must be to a
// server message with the same text to be considered the same message. The
// server does not echo a client-generated id, so content plus timestamp
// proximity is the only join key.
const dedupeWindow = 10 * time.Second

// View is a render-safe copy of the conversation state.
type View struct {
	Open     bool
	Messages []models.SupportMessage
	Presence models.Presence
	Unread   int
}

type event interface{ isEvent() }

type messagesEvent struct {
	seq      uint64
	messages []models.SupportMessage
	unread   int
}

type presenceEvent struct {
	seq      uint64
	presence models.Presence
}

type sendEvent struct {
	message models.SupportMessage
}

type ackEvent struct {
	localID string
	failed  bool
}

type viewRequest struct {
	reply chan View
}

func (messagesEvent) isEvent() {}
func (presenceEvent) isEvent() {}
func (sendEvent) isEvent()     {}
func (ackEvent) isEvent()      {}
func (viewRequest) isEvent()   {}

// Channel is the support conversation controller. State is owned by a
// single event-loop goroutine; Open starts it, Close tears down both polls.
type Channel struct {
	cfg     Config
	backend Backend
	sess    *session.Session

	events   chan event
	loopDone chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	openOnce  sync.Once
	closeOnce sync.Once

	finalMu   sync.Mutex
	finalView View
}

// NewChannel builds a closed channel for the session.
func NewChannel(backend Backend, sess *session.Session, cfg Config) *Channel {
	cfg.setDefaults()
	return &Channel{
		cfg:      cfg,
		backend:  backend,
		sess:     sess,
		events:   make(chan event, 16),
		loopDone: make(chan struct{}),
	}
}

// Open transitions closed → open and starts the message and presence polls
// on their independent cadences. No-op after the first call.
func (c *Channel) Open(ctx context.Context) {
	c.openOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)

		c.wg.Add(1)
		go c.loop(ctx)

		c.wg.Add(1)
		go c.pollPresence(ctx)

		if c.sess.Authenticated() {
			c.wg.Add(1)
			go c.pollMessages(ctx)
		}
	})
}

// Close stops both polls and the loop. Leaving the view without closing
// leaks the timers.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
	})
}

// Send appends the message optimistically so the sender sees it with zero
// latency, then posts it to the backend. Unauthenticated callers get a
// canned keyword-match reply without any network call.
func (c *Channel) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	msg := models.SupportMessage{
		LocalID:   uuid.NewString(),
		Role:      models.RoleUser,
		Text:      text,
		CreatedAt: time.Now(),
		Pending:   true,
	}
	c.emit(ctx, sendEvent{message: msg})

	if !c.sess.Authenticated() {
		reply := models.SupportMessage{
			LocalID:   uuid.NewString(),
			Role:      models.RoleOperator,
			Text:      CannedReply(text),
			CreatedAt: time.Now(),
		}
		c.emit(ctx, sendEvent{message: reply})
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		opCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		defer cancel()
		if err := c.backend.SendSupportMessage(opCtx, msg.Text); err != nil {
			c.logf("send failed: %v", err)
			c.emit(ctx, ackEvent{localID: msg.LocalID, failed: true})
		}
	}()
}

// Snapshot returns a copy of the current conversation state.
func (c *Channel) Snapshot(ctx context.Context) View {
	req := viewRequest{reply: make(chan View, 1)}
	select {
	case c.events <- req:
		select {
		case v := <-req.reply:
			return v
		case <-c.loopDone:
		case <-ctx.Done():
			return View{}
		}
	case <-c.loopDone:
	case <-ctx.Done():
		return View{}
	}
	c.finalMu.Lock()
	defer c.finalMu.Unlock()
	return c.finalView
}

func (c *Channel) loop(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.loopDone)

	var messages []models.SupportMessage
	var pending []models.SupportMessage
	var presence models.Presence
	var unread int
	var msgSeq, presSeq uint64

	makeView := func() View {
		combined := make([]models.SupportMessage, 0, len(messages)+len(pending))
		combined = append(combined, messages...)
		combined = append(combined, pending...)
		return View{Open: true, Messages: combined, Presence: presence, Unread: unread}
	}

	for {
		select {
		case <-ctx.Done():
			v := makeView()
			v.Open = false
			c.finalMu.Lock()
			c.finalView = v
			c.finalMu.Unlock()
			return
		case e := <-c.events:
			switch ev := e.(type) {
			case sendEvent:
				pending = append(pending, ev.message)
			case ackEvent:
				if ev.failed {
					for i := range pending {
						if pending[i].LocalID == ev.localID {
							pending[i].Text += " (not delivered)"
							pending[i].Pending = false
							break
						}
					}
				}
			case messagesEvent:
				if ev.seq <= msgSeq {
					continue
				}
				msgSeq = ev.seq
				// Full replace of the authoritative list, then re-append
				// optimistic sends the server has not echoed yet.
				messages = ev.messages
				pending = unmatched(pending, messages)
				unread = ev.unread
			case presenceEvent:
				if ev.seq <= presSeq {
					continue
				}
				presSeq = ev.seq
				presence = ev.presence
			case viewRequest:
				ev.reply <- makeView()
			}
		}
	}
}

// unmatched returns the optimistic messages not yet present in the
// authoritative list, matching by role, trimmed text, and timestamp
// proximity.
func unmatched(pending, authoritative []models.SupportMessage) []models.SupportMessage {
	var out []models.SupportMessage
	for _, p := range pending {
		matched := false
		for _, m := range authoritative {
			if m.Role != p.Role {
				continue
			}
			if strings.TrimSpace(m.Text) != strings.TrimSpace(p.Text) {
				continue
			}
			delta := m.CreatedAt.Sub(p.CreatedAt)
			if delta < 0 {
				delta = -delta
			}
			if delta <= dedupeWindow {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, p)
		}
	}
	return out
}

func (c *Channel) pollMessages(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.MessageInterval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			s := seq
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				opCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
				defer cancel()
				msgs, err := c.backend.SupportMessages(opCtx)
				if err != nil {
					c.logf("message poll failed: %v", err)
					return
				}
				unread, err := c.backend.UnreadCount(opCtx)
				if err != nil {
					c.logf("unread poll failed: %v", err)
				}
				c.emit(ctx, messagesEvent{seq: s, messages: msgs, unread: unread})
			}()
		}
	}
}

func (c *Channel) pollPresence(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PresenceInterval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			s := seq
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				opCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
				defer cancel()
				presence, err := c.backend.AdminOnline(opCtx)
				if err != nil {
					// Offline is the safe default when the poll fails.
					c.emit(ctx, presenceEvent{seq: s, presence: models.Presence{}})
					return
				}
				c.emit(ctx, presenceEvent{seq: s, presence: presence})
			}()
		}
	}
}

func (c *Channel) emit(ctx context.Context, e event) {
	select {
	case c.events <- e:
	case <-ctx.Done():
	case <-c.loopDone:
	}
}

func (c *Channel) logf(format string, args ...interface{}) {
	if c.cfg.Verbose {
		log.Printf("[support] "+format, args...)
	}
}
