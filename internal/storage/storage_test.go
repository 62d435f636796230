package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

func TestLocalArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(dir)
	at := time.Date(2024, 7, 4, 9, 15, 30, 0, time.FixedZone("x", 3600))

	st := model.SchedulerState{CurrentScheduleIndex: 0, Schedules: []model.Schedule{{
		Name: "Veg", RelayMask: 1, LightsOnTime: "06:00", LightsOffTime: "18:00",
		Events: []model.Event{{ID: "1_0", Time: "07:00", Duration: 30}},
	}}}
	key, err := ls.Archive(context.Background(), st, at)
	require.NoError(t, err)
	assert.Equal(t, "scheduler/state_20240704_081530.000.json", key)

	_, err = os.Stat(filepath.Join(dir, "scheduler", "state_20240704_081530.000.json"))
	require.NoError(t, err)

	got, err := ls.Read(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, got.Schedules, 1)
	assert.Equal(t, "Veg", got.Schedules[0].Name)
	assert.Equal(t, 1, got.Schedules[0].EventCount())
}

func TestLocalReadMissing(t *testing.T) {
	_, err := NewLocalStorage(t.TempDir()).Read(context.Background(), "scheduler/nope.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
