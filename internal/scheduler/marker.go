package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const (
	DefaultMarkerInterval = 30 * time.Second
	MaxMarkerInterval     = 60 * time.Second
)

// Marker keeps the current-time position on the timeline fresh on a fixed tick.
// Refresh is idempotent; calling it between ticks is harmless.
type Marker struct {
	interval time.Duration
	zone     clock.Zone
	now      func() time.Time
	onTick   func(model.Marker)

	mu   sync.RWMutex
	last model.Marker
}

// NewMarker rejects intervals outside (0, 60s]. onTick may be nil.
func NewMarker(interval time.Duration, zone clock.Zone, onTick func(model.Marker)) (*Marker, error) {
	if interval <= 0 || interval > MaxMarkerInterval {
		return nil, fmt.Errorf("marker interval %s must be in (0, %s]", interval, MaxMarkerInterval)
	}
	if zone == nil {
		zone = clock.Local{}
	}
	m := &Marker{interval: interval, zone: zone, now: time.Now, onTick: onTick}
	m.Refresh()
	return m, nil
}

// Refresh recomputes the marker from the wall clock.
func (m *Marker) Refresh() model.Marker {
	now := m.now()
	utc := clock.MinuteOfDay(now.UTC())
	minute := clock.Wrap(utc + m.zone.Offset())
	pos := model.Marker{Minute: minute, UTCMinute: utc, LeftPercent: percentOfDay(minute), At: now}

	m.mu.Lock()
	m.last = pos
	m.mu.Unlock()

	if m.onTick != nil {
		m.onTick(pos)
	}
	return pos
}

// Position is the value computed by the last refresh.
func (m *Marker) Position() model.Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// MarkerIn re-expresses pos on conv's wall clock.
func MarkerIn(pos model.Marker, conv clock.Converter) model.Marker {
	pos.Minute = conv.LocalMinute(pos.UTCMinute)
	pos.LeftPercent = percentOfDay(pos.Minute)
	return pos
}

// Run refreshes every interval until ctx is done.
func (m *Marker) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh()
		}
	}
}
