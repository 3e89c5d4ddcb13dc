package presence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

const (
	presenceKeyPrefix = "presence:"
	lastSeenKeyPrefix = "lastseen:"
	typingKeyPrefix   = "typing:"
	presenceChannel   = "presence:events"
)

func presenceKey(uid string) string { return presenceKeyPrefix + uid }

func lastSeenKey(uid string) string { return lastSeenKeyPrefix + uid }

func typingKey(conversationID string) string { return typingKeyPrefix + conversationID }

// RedisPresence keeps presence:{uid} alive with a TTL refreshed by this
// process. If the process dies the key expires, which is the disconnect
// cleanup. Typing indicators live in a sorted set scored by their deadline.
type RedisPresence struct {
	cli         *redis.Client
	presenceTTL time.Duration
	typingTTL   time.Duration
	now         func() time.Time

	mu         sync.Mutex
	keepalives map[string]*keepalive
	ctx        context.Context
	cancel     context.CancelFunc
}

type keepalive struct {
	sessions int
	stop     context.CancelFunc
}

var _ repository.PresenceRepository = (*RedisPresence)(nil)

func NewRedisPresence(ctx context.Context, url string, presenceTTL, typingTTL time.Duration) (*RedisPresence, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisPresence(cli, presenceTTL, typingTTL), nil
}

func newRedisPresence(cli *redis.Client, presenceTTL, typingTTL time.Duration) *RedisPresence {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisPresence{
		cli:         cli,
		presenceTTL: presenceTTL,
		typingTTL:   typingTTL,
		now:         time.Now,
		keepalives:  make(map[string]*keepalive),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetPresence counts sessions per uid; the user reads as offline once the
// last session of this process goes away. A session is counted even when its
// first write fails, since the keepalive retries it and the matching offline
// call will decrement it.
func (p *RedisPresence) SetPresence(ctx context.Context, uid string, online bool) error {
	if online {
		p.startKeepalive(uid)
		if err := p.touch(ctx, uid); err != nil {
			return errors.WriteFailed("Failed to set presence", err)
		}
	} else {
		if !p.stopKeepalive(uid) {
			return nil
		}
		pipe := p.cli.TxPipeline()
		pipe.Del(ctx, presenceKey(uid))
		pipe.Set(ctx, lastSeenKey(uid), p.now().UnixMilli(), 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return errors.WriteFailed("Failed to set presence", err)
		}
	}
	if err := p.cli.Publish(ctx, presenceChannel, uid).Err(); err != nil {
		logger.LogBestEffort("presence.publish", uid, err)
	}
	return nil
}

func (p *RedisPresence) touch(ctx context.Context, uid string) error {
	now := p.now().UnixMilli()
	pipe := p.cli.TxPipeline()
	pipe.Set(ctx, presenceKey(uid), now, p.presenceTTL)
	pipe.Set(ctx, lastSeenKey(uid), now, 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPresence) startKeepalive(uid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ka, ok := p.keepalives[uid]; ok {
		ka.sessions++
		return
	}
	ctx, stop := context.WithCancel(p.ctx)
	p.keepalives[uid] = &keepalive{sessions: 1, stop: stop}

	go func() {
		ticker := time.NewTicker(p.presenceTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.touch(ctx, uid); err != nil && ctx.Err() == nil {
					logger.LogBestEffort("presence.keepalive", uid, err)
				}
			}
		}
	}()
}

// stopKeepalive reports whether this was the last session for uid.
func (p *RedisPresence) stopKeepalive(uid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ka, ok := p.keepalives[uid]
	if !ok {
		return true
	}
	ka.sessions--
	if ka.sessions > 0 {
		return false
	}
	ka.stop()
	delete(p.keepalives, uid)
	return true
}

func (p *RedisPresence) SubscribePresence(ctx context.Context, uids []string, onChange func(map[string]entity.Presence)) repository.Unsubscribe {
	uids = append([]string(nil), uids...)
	return watch(ctx, p, presenceChannel, p.presenceTTL/2, func(ctx context.Context) (map[string]entity.Presence, error) {
		return p.readPresence(ctx, uids)
	}, onChange)
}

func (p *RedisPresence) readPresence(ctx context.Context, uids []string) (map[string]entity.Presence, error) {
	out := make(map[string]entity.Presence, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, 2*len(uids))
	for _, uid := range uids {
		keys = append(keys, presenceKey(uid), lastSeenKey(uid))
	}
	values, err := p.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, uid := range uids {
		presence := entity.Presence{UID: uid, Online: values[2*i] != nil}
		if raw, ok := values[2*i+1].(string); ok {
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
				presence.LastSeenAt = time.UnixMilli(ms).UTC()
			}
		}
		out[uid] = presence
	}
	return out, nil
}

func (p *RedisPresence) SetTyping(ctx context.Context, conversationID, uid string, typing bool) error {
	key := typingKey(conversationID)
	pipe := p.cli.TxPipeline()
	if typing {
		deadline := p.now().Add(p.typingTTL)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(deadline.UnixMilli()), Member: uid})
		pipe.Expire(ctx, key, p.typingTTL)
	} else {
		pipe.ZRem(ctx, key, uid)
	}
	pipe.Publish(ctx, key, uid)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WriteFailed("Failed to set typing", err)
	}
	return nil
}

func (p *RedisPresence) SubscribeTyping(ctx context.Context, conversationID string, onChange func([]string)) repository.Unsubscribe {
	key := typingKey(conversationID)
	return watch(ctx, p, key, p.typingTTL/2, func(ctx context.Context) ([]string, error) {
		from := strconv.FormatInt(p.now().UnixMilli(), 10)
		uids, err := p.cli.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "(" + from, Max: "+inf"}).Result()
		if err != nil {
			return nil, err
		}
		sort.Strings(uids)
		return uids, nil
	}, onChange)
}

// watch re-reads on every publish on channel and on a fixed tick, which
// catches keys that expired without a publish.
func watch[T any](ctx context.Context, p *RedisPresence, channel string, every time.Duration, read func(context.Context) (T, error), onChange func(T)) repository.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	listener := repository.NewListener(onChange, cancel)
	pubsub := p.cli.Subscribe(ctx, channel)

	go func() {
		defer pubsub.Close()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		events := pubsub.Channel()

		var last string
		refresh := func() bool {
			snapshot, err := read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("%v", errors.SubscriptionError(channel, err))
				}
				return true
			}
			key := fmt.Sprint(snapshot)
			if key == last {
				return true
			}
			last = key
			return listener.Deliver(snapshot)
		}

		if !refresh() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
			case <-ticker.C:
			}
			if !refresh() {
				return
			}
		}
	}()

	return listener.Unsubscribe()
}

func (p *RedisPresence) Close() error {
	p.cancel()
	return p.cli.Close()
}
