package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/internal/domain/service"
	"portfoliochat/internal/infrastructure/metrics"
	"portfoliochat/internal/infrastructure/ratelimit"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

const (
	searchLimit      = 10
	defaultUserLimit = 50
	maxUserLimit     = 50
)

type ChatOptions struct {
	GeneralChatID    string
	GeneralChatTitle string
	PageSize         int
}

// ChatUseCase is the stateless chat surface shared by REST handlers and live
// sessions. Inputs are validated before any store call.
type ChatUseCase struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	reports       repository.ReportRepository
	presence      repository.PresenceRepository
	rateLimiter   *ratelimit.RateLimiter
	opts          ChatOptions
}

func NewChatUseCase(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	reports repository.ReportRepository,
	presence repository.PresenceRepository,
	rateLimiter *ratelimit.RateLimiter,
	opts ChatOptions,
) *ChatUseCase {
	if opts.GeneralChatID == "" {
		opts.GeneralChatID = service.GeneralChatID
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	return &ChatUseCase{
		conversations: conversations,
		messages:      messages,
		users:         users,
		reports:       reports,
		presence:      presence,
		rateLimiter:   rateLimiter,
		opts:          opts,
	}
}

func (uc *ChatUseCase) throttle(uid, action string) error {
	if uc.rateLimiter == nil {
		return nil
	}
	if allowed, wait := uc.rateLimiter.Allow(uid, action); !allowed {
		logger.Warn("Rate limited: user=%s, action=%s, retry_after=%v", uid, action, wait)
		metrics.RecordRateLimited(action)
		return errors.TooManyRequests("Rate limit exceeded. Please slow down", fmt.Errorf("retry after %v", wait))
	}
	return nil
}

// authorize loads the conversation and checks uid may use it. Broadcast rooms
// are open to every authenticated user.
func (uc *ChatUseCase) authorize(ctx context.Context, conversationID, uid string) (*entity.Conversation, error) {
	conv, err := uc.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsBroadcast() && !conv.HasParticipant(uid) {
		return nil, errors.PermissionDenied("You are not a participant in this conversation")
	}
	return conv, nil
}

func required(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Validation(field + " is required")
	}
	return nil
}

func (uc *ChatUseCase) GeneralChatID() string {
	return uc.opts.GeneralChatID
}

func (uc *ChatUseCase) GetGeneralChat(ctx context.Context) (*entity.Conversation, error) {
	return uc.conversations.GetOrCreateBroadcastRoom(ctx, uc.opts.GeneralChatID, uc.opts.GeneralChatTitle)
}

// GetConversation also reports whether any message was ever sent, so clients
// can hide direct conversations that were opened but never used.
func (uc *ChatUseCase) GetConversation(ctx context.Context, conversationID, uid string) (*entity.Conversation, bool, error) {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return nil, false, err
	}
	if err := required(uid, "User ID"); err != nil {
		return nil, false, err
	}
	conv, err := uc.authorize(ctx, conversationID, uid)
	if err != nil {
		return nil, false, err
	}
	hasMessages, err := uc.messages.Exists(ctx, conversationID)
	if err != nil {
		return nil, false, err
	}
	return conv, hasMessages, nil
}

// ListenToConversations delivers the merged conversation list for uid: the
// general room pinned on top, then uid's conversations, newest first. The
// first snapshot waits until both underlying watches reported once.
func (uc *ChatUseCase) ListenToConversations(ctx context.Context, uid string, onChange func([]*entity.Conversation)) (repository.Unsubscribe, error) {
	if err := required(uid, "User ID"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	listener := repository.NewListener(onChange, cancel)

	var (
		mu                  sync.Mutex
		own                 []*entity.Conversation
		room                *entity.Conversation
		ownReady, roomReady bool
	)
	publish := func() {
		if !ownReady || !roomReady {
			return
		}
		var rooms []*entity.Conversation
		if room != nil {
			rooms = append(rooms, room)
		}
		listener.Deliver(MergeConversations(own, rooms))
	}

	unsubOwn := uc.conversations.SubscribeByParticipant(ctx, uid, func(convs []*entity.Conversation) {
		mu.Lock()
		defer mu.Unlock()
		own, ownReady = convs, true
		publish()
	})
	unsubRoom := uc.conversations.SubscribeOne(ctx, uc.opts.GeneralChatID, func(conv *entity.Conversation) {
		mu.Lock()
		defer mu.Unlock()
		room, roomReady = conv, true
		publish()
	})

	return func() {
		listener.Close()
		unsubOwn()
		unsubRoom()
	}, nil
}

func (uc *ChatUseCase) ListenToMessages(ctx context.Context, conversationID string, onChange func([]*entity.Message)) (repository.Unsubscribe, error) {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return nil, err
	}
	return uc.messages.Subscribe(ctx, conversationID, uc.opts.PageSize, onChange), nil
}

func (uc *ChatUseCase) ListenToTyping(ctx context.Context, conversationID string, onChange func([]string)) (repository.Unsubscribe, error) {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return nil, err
	}
	return uc.presence.SubscribeTyping(ctx, conversationID, onChange), nil
}

// ListenToOnlineUsers delivers the online subset of uids, in input order.
func (uc *ChatUseCase) ListenToOnlineUsers(ctx context.Context, uids []string, onChange func([]string)) (repository.Unsubscribe, error) {
	for _, uid := range uids {
		if err := required(uid, "User ID"); err != nil {
			return nil, err
		}
	}
	uids = append([]string(nil), uids...)
	return uc.presence.SubscribePresence(ctx, uids, func(snapshot map[string]entity.Presence) {
		onChange(entity.OnlineIDs(uids, snapshot))
	}), nil
}

func (uc *ChatUseCase) SendMessageToConversation(ctx context.Context, conversationID, uid, text string) (string, error) {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return "", err
	}
	if err := required(uid, "User ID"); err != nil {
		return "", err
	}
	if entity.NormalizeText(text) == "" {
		return "", errors.Validation("Message text cannot be empty")
	}
	if err := uc.throttle(uid, ratelimit.ActionSendMessage); err != nil {
		return "", err
	}
	if _, err := uc.authorize(ctx, conversationID, uid); err != nil {
		return "", err
	}

	id, err := uc.messages.Send(ctx, conversationID, uid, text)
	metrics.RecordMessage("send", err)
	if err != nil {
		logger.Error("SendMessage failed: conversation=%s, user=%s, error=%v", conversationID, uid, err)
		return "", err
	}
	return id, nil
}

func (uc *ChatUseCase) MarkAsRead(ctx context.Context, conversationID, uid string) error {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return err
	}
	if err := required(uid, "User ID"); err != nil {
		return err
	}
	if _, err := uc.authorize(ctx, conversationID, uid); err != nil {
		return err
	}
	if err := uc.conversations.MarkRead(ctx, conversationID, uid); err != nil {
		logger.Error("MarkAsRead failed: conversation=%s, user=%s, error=%v", conversationID, uid, err)
		return err
	}
	return nil
}

// SetTyping is fire-and-forget: failures are logged and never returned.
func (uc *ChatUseCase) SetTyping(ctx context.Context, conversationID, uid string, typing bool) {
	if strings.TrimSpace(conversationID) == "" || strings.TrimSpace(uid) == "" {
		return
	}
	if typing {
		if err := uc.throttle(uid, ratelimit.ActionTyping); err != nil {
			return
		}
	}
	if err := uc.presence.SetTyping(ctx, conversationID, uid, typing); err != nil {
		logger.LogBestEffort("typing", conversationID+"/"+uid, err)
		metrics.RecordBestEffortDropped("typing")
	}
}

// SetPresence is fire-and-forget like SetTyping.
func (uc *ChatUseCase) SetPresence(ctx context.Context, uid string, online bool) {
	if strings.TrimSpace(uid) == "" {
		return
	}
	if err := uc.presence.SetPresence(ctx, uid, online); err != nil {
		logger.LogBestEffort("presence", uid, err)
		metrics.RecordBestEffortDropped("presence")
	}
}

// SearchForUsers returns at most ten users whose display name starts with
// query, never including uid. A blank query yields no results.
func (uc *ChatUseCase) SearchForUsers(ctx context.Context, query, uid string) ([]*entity.User, error) {
	if err := required(uid, "User ID"); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []*entity.User{}, nil
	}
	if err := uc.throttle(uid, ratelimit.ActionSearchUsers); err != nil {
		return nil, err
	}
	return uc.users.Search(ctx, query, uid, searchLimit)
}

func (uc *ChatUseCase) ListUsers(ctx context.Context, uid string, limit int) ([]*entity.User, error) {
	if err := required(uid, "User ID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultUserLimit
	}
	if limit > maxUserLimit {
		limit = maxUserLimit
	}
	return uc.users.List(ctx, uid, limit)
}

// CreateDMConversation returns the direct conversation between a and b,
// creating it on first contact. Only creation counts against the rate limit.
func (uc *ChatUseCase) CreateDMConversation(ctx context.Context, a, b string) (*entity.Conversation, error) {
	if err := required(a, "User ID"); err != nil {
		return nil, err
	}
	if err := required(b, "Recipient ID"); err != nil {
		return nil, err
	}
	if a == b {
		return nil, errors.Validation("Cannot start a conversation with yourself")
	}

	existing, err := uc.conversations.Get(ctx, service.ConversationID(a, b))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	if err := uc.throttle(a, ratelimit.ActionCreateChat); err != nil {
		return nil, err
	}
	conv, err := uc.conversations.GetOrCreateDirect(ctx, a, b)
	if err != nil {
		logger.Error("CreateDMConversation failed: users=%s,%s, error=%v", a, b, err)
		return nil, err
	}
	logger.Info("Direct conversation ready: %s", conv.ID)
	return conv, nil
}

// RecentMessages is the one-shot read of the live window, with display
// status derived from the readers' lastReadAt.
func (uc *ChatUseCase) RecentMessages(ctx context.Context, conversationID, uid string, limit int) ([]*entity.Message, error) {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return nil, err
	}
	if err := required(uid, "User ID"); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > uc.opts.PageSize {
		limit = uc.opts.PageSize
	}
	conv, err := uc.authorize(ctx, conversationID, uid)
	if err != nil {
		return nil, err
	}
	msgs, err := uc.messages.Recent(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		m.Status = m.StatusFor(conv)
	}
	return msgs, nil
}

func (uc *ChatUseCase) EditMessage(ctx context.Context, conversationID, messageID, uid, text string) error {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return err
	}
	if err := required(uid, "User ID"); err != nil {
		return err
	}
	if err := required(messageID, "Message ID"); err != nil {
		return err
	}
	if entity.NormalizeText(text) == "" {
		return errors.Validation("Message text cannot be empty")
	}
	if err := uc.throttle(uid, ratelimit.ActionEditMessage); err != nil {
		return err
	}
	err := uc.messages.Edit(ctx, conversationID, messageID, text, uid)
	metrics.RecordMessage("edit", err)
	return err
}

func (uc *ChatUseCase) DeleteMessage(ctx context.Context, conversationID, messageID, uid string) error {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return err
	}
	if err := required(uid, "User ID"); err != nil {
		return err
	}
	if err := required(messageID, "Message ID"); err != nil {
		return err
	}
	err := uc.messages.SoftDelete(ctx, conversationID, messageID, uid)
	metrics.RecordMessage("delete", err)
	return err
}

func (uc *ChatUseCase) DeleteConversation(ctx context.Context, conversationID, uid string) error {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return err
	}
	if err := required(uid, "User ID"); err != nil {
		return err
	}
	if err := uc.conversations.Delete(ctx, conversationID, uid); err != nil {
		logger.Error("DeleteConversation failed: conversation=%s, user=%s, error=%v", conversationID, uid, err)
		return err
	}
	logger.Info("Conversation %s deleted by %s", conversationID, uid)
	return nil
}

func (uc *ChatUseCase) ReportMessage(ctx context.Context, conversationID, messageID, uid, reason string) (*entity.Report, error) {
	if err := required(conversationID, "Conversation ID"); err != nil {
		return nil, err
	}
	if err := required(uid, "User ID"); err != nil {
		return nil, err
	}
	if err := required(messageID, "Message ID"); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.Validation("Report reason is required")
	}
	if err := uc.throttle(uid, ratelimit.ActionReportMessage); err != nil {
		return nil, err
	}
	if _, err := uc.authorize(ctx, conversationID, uid); err != nil {
		return nil, err
	}

	report := &entity.Report{
		ConversationID: conversationID,
		MessageID:      messageID,
		ReporterID:     uid,
		Reason:         reason,
		Status:         entity.ReportPending,
	}
	if err := uc.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}
