package drafts

import (
	"context"
	"sync"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

// Memory is a process-local draft store, used when nothing durable is configured.
type Memory struct {
	mu     sync.Mutex
	drafts map[string]model.Draft
}

func NewMemory() *Memory {
	return &Memory{drafts: make(map[string]model.Draft)}
}

func (m *Memory) Save(_ context.Context, d model.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Schedule = d.Schedule.Clone()
	m.drafts[d.ClientID] = d
	return nil
}

func (m *Memory) Load(_ context.Context, clientID string) (*model.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[clientID]
	if !ok {
		return nil, nil
	}
	d.Schedule = d.Schedule.Clone()
	return &d, nil
}

func (m *Memory) Clear(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, clientID)
	return nil
}
