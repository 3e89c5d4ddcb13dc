package usecase

import (
	"context"
	"sync"
	"time"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/internal/infrastructure/metrics"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

// SessionSink receives the projected view state of a Session. Calls are
// serialized per session and must not block.
type SessionSink interface {
	Conversations(convs []*entity.Conversation)
	Messages(conversationID string, msgs []*entity.Message)
	Typing(conversationID string, uids []string)
	OnlineUsers(uids []string)
}

type ViewState int

const (
	ViewClosed ViewState = iota
	ViewAttaching
	ViewLive
)

func (s ViewState) String() string {
	switch s {
	case ViewAttaching:
		return "attaching"
	case ViewLive:
		return "live"
	default:
		return "closed"
	}
}

type conversationView struct {
	id            string
	state         ViewState
	unsubMessages repository.Unsubscribe
	unsubTyping   repository.Unsubscribe
	typing        *TypingDebouncer
}

func (v *conversationView) detach() {
	v.state = ViewClosed
	if v.unsubMessages != nil {
		v.unsubMessages()
	}
	if v.unsubTyping != nil {
		v.unsubTyping()
	}
}

// Session is one signed-in user's live connection: presence, the
// conversation list, the open conversation views and a presence watch.
type Session struct {
	uc         *ChatUseCase
	uid        string
	sink       SessionSink
	typingIdle time.Duration

	mu                 sync.Mutex
	ctx                context.Context
	cancel             context.CancelFunc
	started            bool
	ended              bool
	unsubConversations repository.Unsubscribe
	unsubPresence      repository.Unsubscribe
	presenceGen        int
	views              map[string]*conversationView
}

func NewSession(uc *ChatUseCase, uid string, sink SessionSink, typingIdle time.Duration) *Session {
	if typingIdle <= 0 {
		typingIdle = 3 * time.Second
	}
	return &Session{
		uc:         uc,
		uid:        uid,
		sink:       sink,
		typingIdle: typingIdle,
		views:      make(map[string]*conversationView),
	}
}

func (s *Session) UID() string {
	return s.uid
}

// Start publishes presence and attaches the conversation list. The session
// outlives ctx only until End is called.
func (s *Session) Start(ctx context.Context) error {
	if err := required(s.uid, "User ID"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.ended {
		return errors.BadRequest("Session already ended", nil)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	unsub, err := s.uc.ListenToConversations(s.ctx, s.uid, func(convs []*entity.Conversation) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ended {
			return
		}
		s.sink.Conversations(convs)
	})
	if err != nil {
		s.cancel()
		return err
	}
	s.unsubConversations = unsub
	s.started = true

	s.uc.SetPresence(s.ctx, s.uid, true)
	metrics.SessionStarted()
	logger.Info("Chat session started: user=%s", s.uid)
	return nil
}

// End detaches everything and marks the user offline. Safe to call twice.
func (s *Session) End() {
	s.mu.Lock()
	if s.ended || !s.started {
		s.ended = true
		s.mu.Unlock()
		return
	}
	s.ended = true

	views := make([]*conversationView, 0, len(s.views))
	for id, v := range s.views {
		v.detach()
		views = append(views, v)
		delete(s.views, id)
	}
	if s.unsubConversations != nil {
		s.unsubConversations()
	}
	if s.unsubPresence != nil {
		s.unsubPresence()
	}
	s.mu.Unlock()

	for _, v := range views {
		v.typing.Stop()
	}
	metrics.SessionEnded()
	// the session context is about to be cancelled; offline must still land
	s.uc.SetPresence(context.WithoutCancel(s.ctx), s.uid, false)
	s.cancel()
	logger.Info("Chat session ended: user=%s", s.uid)
}

// EnterConversation attaches the message and typing subscriptions for one
// conversation. Entering an open view is a no-op.
func (s *Session) EnterConversation(ctx context.Context, conversationID string) error {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return err
	}
	if _, err := s.uc.authorize(ctx, conversationID, s.uid); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.ended {
		return errors.BadRequest("Session is not active", nil)
	}
	if _, ok := s.views[conversationID]; ok {
		return nil
	}

	v := &conversationView{id: conversationID, state: ViewAttaching}
	v.typing = NewTypingDebouncer(s.typingIdle, func(typing bool) {
		s.uc.SetTyping(s.ctx, conversationID, s.uid, typing)
	})

	unsubMessages, err := s.uc.ListenToMessages(s.ctx, conversationID, func(msgs []*entity.Message) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.current(v) {
			return
		}
		if v.state == ViewAttaching {
			v.state = ViewLive
		}
		s.sink.Messages(conversationID, msgs)
	})
	if err != nil {
		return err
	}
	unsubTyping, err := s.uc.ListenToTyping(s.ctx, conversationID, func(uids []string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.current(v) {
			return
		}
		others := make([]string, 0, len(uids))
		for _, uid := range uids {
			if uid != s.uid {
				others = append(others, uid)
			}
		}
		s.sink.Typing(conversationID, others)
	})
	if err != nil {
		unsubMessages()
		return err
	}

	v.unsubMessages, v.unsubTyping = unsubMessages, unsubTyping
	s.views[conversationID] = v
	return nil
}

// current reports whether v is still the open view for its conversation.
// Callbacks from a closed or replaced view are dropped. Callers hold mu.
func (s *Session) current(v *conversationView) bool {
	return !s.ended && v.state != ViewClosed && s.views[v.id] == v
}

func (s *Session) LeaveConversation(conversationID string) {
	s.mu.Lock()
	v, ok := s.views[conversationID]
	if ok {
		delete(s.views, conversationID)
		v.detach()
	}
	s.mu.Unlock()

	if ok {
		v.typing.Stop()
	}
}

func (s *Session) ViewState(conversationID string) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[conversationID]; ok {
		return v.state
	}
	return ViewClosed
}

func (s *Session) view(conversationID string) (*conversationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[conversationID]
	if !ok {
		return nil, errors.BadRequest("Conversation is not open", nil)
	}
	return v, nil
}

// Keystroke feeds the debounced typing indicator of an open conversation.
func (s *Session) Keystroke(conversationID string) error {
	v, err := s.view(conversationID)
	if err != nil {
		return err
	}
	v.typing.Keystroke()
	return nil
}

// StopTyping clears the typing indicator right away, e.g. after a send.
func (s *Session) StopTyping(conversationID string) error {
	v, err := s.view(conversationID)
	if err != nil {
		return err
	}
	v.typing.Stop()
	return nil
}

// WatchPresence replaces the session's presence watch with one over uids.
func (s *Session) WatchPresence(uids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.ended {
		return errors.BadRequest("Session is not active", nil)
	}
	if s.unsubPresence != nil {
		s.unsubPresence()
		s.unsubPresence = nil
	}
	if len(uids) == 0 {
		return nil
	}

	s.presenceGen++
	gen := s.presenceGen
	unsub, err := s.uc.ListenToOnlineUsers(s.ctx, uids, func(online []string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ended || gen != s.presenceGen {
			return
		}
		s.sink.OnlineUsers(online)
	})
	if err != nil {
		return err
	}
	s.unsubPresence = unsub
	return nil
}

func (s *Session) SendMessage(ctx context.Context, conversationID, text string) (string, error) {
	id, err := s.uc.SendMessageToConversation(ctx, conversationID, s.uid, text)
	if err != nil {
		return "", err
	}
	if v, verr := s.view(conversationID); verr == nil {
		v.typing.Stop()
	}
	return id, nil
}

func (s *Session) MarkAsRead(ctx context.Context, conversationID string) error {
	return s.uc.MarkAsRead(ctx, conversationID, s.uid)
}

func (s *Session) EditMessage(ctx context.Context, conversationID, messageID, text string) error {
	return s.uc.EditMessage(ctx, conversationID, messageID, s.uid, text)
}

func (s *Session) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	return s.uc.DeleteMessage(ctx, conversationID, messageID, s.uid)
}
