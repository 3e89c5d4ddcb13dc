package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
)

// MemoryPresence is the in-process channel for PRESENCE_DRIVER=memory.
// Typing entries carry a deadline so a client that vanished mid-word drops
// out of the list after the typing TTL.
type MemoryPresence struct {
	mu        sync.Mutex
	sessions  map[string]int
	lastSeen  map[string]time.Time
	typing    map[string]map[string]time.Time
	typingTTL time.Duration
	now       func() time.Time

	watchers map[int]chan struct{}
	nextID   int
}

var _ repository.PresenceRepository = (*MemoryPresence)(nil)

func NewMemoryPresence(typingTTL time.Duration) *MemoryPresence {
	return &MemoryPresence{
		sessions:  make(map[string]int),
		lastSeen:  make(map[string]time.Time),
		typing:    make(map[string]map[string]time.Time),
		typingTTL: typingTTL,
		now:       time.Now,
		watchers:  make(map[int]chan struct{}),
	}
}

func (p *MemoryPresence) SetPresence(ctx context.Context, uid string, online bool) error {
	p.mu.Lock()
	if online {
		p.sessions[uid]++
	} else if p.sessions[uid] > 0 {
		p.sessions[uid]--
	}
	if p.sessions[uid] == 0 {
		delete(p.sessions, uid)
	}
	p.lastSeen[uid] = p.now().UTC()
	p.mu.Unlock()
	p.notify()
	return nil
}

func (p *MemoryPresence) SubscribePresence(ctx context.Context, uids []string, onChange func(map[string]entity.Presence)) repository.Unsubscribe {
	uids = append([]string(nil), uids...)
	return memoryWatch(ctx, p, func() map[string]entity.Presence {
		out := make(map[string]entity.Presence, len(uids))
		for _, uid := range uids {
			out[uid] = entity.Presence{UID: uid, Online: p.sessions[uid] > 0, LastSeenAt: p.lastSeen[uid]}
		}
		return out
	}, samePresence, onChange)
}

func (p *MemoryPresence) SetTyping(ctx context.Context, conversationID, uid string, typing bool) error {
	p.mu.Lock()
	if typing {
		if p.typing[conversationID] == nil {
			p.typing[conversationID] = make(map[string]time.Time)
		}
		p.typing[conversationID][uid] = p.now().Add(p.typingTTL)
	} else {
		delete(p.typing[conversationID], uid)
	}
	p.mu.Unlock()
	p.notify()
	return nil
}

func (p *MemoryPresence) SubscribeTyping(ctx context.Context, conversationID string, onChange func([]string)) repository.Unsubscribe {
	return memoryWatch(ctx, p, func() []string {
		now := p.now()
		uids := []string{}
		for uid, deadline := range p.typing[conversationID] {
			if deadline.After(now) {
				uids = append(uids, uid)
			}
		}
		sort.Strings(uids)
		return uids
	}, sameStrings, onChange)
}

func (p *MemoryPresence) notify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, signal := range p.watchers {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

// memoryWatch re-reads on every write and once per typing TTL so expired
// typing entries disappear without a write. Unchanged snapshots are skipped.
func memoryWatch[T any](ctx context.Context, p *MemoryPresence, read func() T, same func(a, b T) bool, onChange func(T)) repository.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	listener := repository.NewListener(onChange, cancel)
	signal := make(chan struct{}, 1)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = signal
	p.mu.Unlock()
	signal <- struct{}{}

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.watchers, id)
			p.mu.Unlock()
		}()
		ticker := time.NewTicker(p.typingTTL)
		defer ticker.Stop()

		var last T
		delivered := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
			case <-ticker.C:
			}
			p.mu.Lock()
			snapshot := read()
			p.mu.Unlock()
			if delivered && same(last, snapshot) {
				continue
			}
			last, delivered = snapshot, true
			if !listener.Deliver(snapshot) {
				return
			}
		}
	}()

	return listener.Unsubscribe()
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func samePresence(a, b map[string]entity.Presence) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w.Online != v.Online || !w.LastSeenAt.Equal(v.LastSeenAt) {
			return false
		}
	}
	return true
}

func (p *MemoryPresence) Close() error {
	return nil
}
