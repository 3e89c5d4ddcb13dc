package websocket

import (
	"context"
	"sync"

	"portfoliochat/internal/infrastructure/metrics"
	"portfoliochat/pkg/logger"
)

// Manager tracks every live connection. A user may hold several at once,
// one per tab or device.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the registration loop until ctx is done, then closes every
// remaining connection so their sessions end and presence goes offline.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[*Client]struct{})
				}
				m.clients[client.UserID][client] = struct{}{}
				m.mutex.Unlock()
				metrics.ConnectionOpened()
				logger.Info("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if conns, ok := m.clients[client.UserID]; ok {
					if _, registered := conns[client]; registered {
						delete(conns, client)
						metrics.ConnectionClosed()
					}
					if len(conns) == 0 {
						delete(m.clients, client.UserID)
					}
				}
				m.mutex.Unlock()
				logger.Info("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				m.closeAll()
				return
			}
		}
	}()
}

func (m *Manager) closeAll() {
	m.mutex.RLock()
	var all []*Client
	for _, conns := range m.clients {
		for c := range conns {
			all = append(all, c)
		}
	}
	m.mutex.RUnlock()
	for _, c := range all {
		c.Close()
	}
}

// Stats returns the number of connected users and open connections.
func (m *Manager) Stats() (users int, connections int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, conns := range m.clients {
		connections += len(conns)
	}
	return len(m.clients), connections
}
