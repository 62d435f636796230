package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/device"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

type fakeDevice struct {
	mu       sync.Mutex
	doc      model.SchedulerState
	manual   []model.ManualRelay
	failSave bool
}

func (f *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.URL.Path {
	case "/api/scheduler/load":
		json.NewEncoder(w).Encode(f.doc)
	case "/api/scheduler/save":
		if f.failSave {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(model.SaveResult{Status: "error", Message: "flash write failed"})
			return
		}
		var st model.SchedulerState
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.doc = st
		json.NewEncoder(w).Encode(model.SaveResult{Status: "success", Message: "Schedule saved"})
	case "/api/scheduler/status":
		w.Write([]byte(`{"isActive":false}`))
	case "/api/scheduler/activate", "/api/scheduler/deactivate":
		json.NewEncoder(w).Encode(model.SaveResult{Status: "success"})
	case "/api/relay/manual":
		var m model.ManualRelay
		json.NewDecoder(r.Body).Decode(&m)
		f.manual = append(f.manual, m)
		json.NewEncoder(w).Encode(model.SaveResult{Status: "success"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeDevice) state() model.SchedulerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.Clone()
}

type harness struct {
	dev    *fakeDevice
	url    string
	drafts string
}

func newHarness(t *testing.T, doc model.SchedulerState) *harness {
	t.Helper()
	color.NoColor = true
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCHEDCTL_DEVICE", "")

	dev := &fakeDevice{doc: doc}
	srv := httptest.NewServer(dev)
	t.Cleanup(srv.Close)
	return &harness{dev: dev, url: srv.URL, drafts: t.TempDir()}
}

// run executes schedctl with the harness device, a GMT-5 wall clock and the
// given arguments.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	base := []string{"--device", h.url, "--drafts", h.drafts, "--client", "cli-test", "--zone", "-300", "--timeout", "2s"}
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func twoSchedules() model.SchedulerState {
	return model.SchedulerState{Schedules: []model.Schedule{
		{Name: "Alpha", RelayMask: 0b011, LightsOnTime: "11:00", LightsOffTime: "23:00", Events: []model.Event{{ID: "a1", Time: "12:00", Duration: 60}}},
		{Name: "Beta", RelayMask: 0b001, LightsOnTime: "06:00", LightsOffTime: "18:00", Events: []model.Event{}},
	}}
}

func TestCreateThenAddEvent(t *testing.T) {
	h := newHarness(t, model.SchedulerState{Schedules: []model.Schedule{}})

	out, err := h.run(t, "new", "--name", "Tomatoes", "--lights-on", "20:00", "--lights-off", "08:00", "--relays", "1,3")
	require.NoError(t, err)
	assert.Contains(t, out, `saved "Tomatoes"`)

	doc := h.dev.state()
	require.Len(t, doc.Schedules, 1)
	assert.Equal(t, "01:00", doc.Schedules[0].LightsOnTime)
	assert.Equal(t, "13:00", doc.Schedules[0].LightsOffTime)
	assert.Equal(t, uint8(0b101), doc.Schedules[0].RelayMask)

	out, err = h.run(t, "add-event", "--schedule", "Tomatoes", "--time", "21:00", "--duration", "90", "--repeat", "2", "--interval", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "added 3 event(s)")

	doc = h.dev.state()
	var times []string
	for _, e := range doc.Schedules[0].Events {
		times = append(times, e.Time)
		assert.Equal(t, 90, e.Duration)
	}
	assert.Equal(t, []string{"02:00", "02:30", "03:00"}, times)

	out, err = h.run(t, "-o", "json", "draft", "show")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
}

func TestAddEventValidation(t *testing.T) {
	h := newHarness(t, twoSchedules())

	_, err := h.run(t, "add-event", "--schedule", "Missing", "--time", "10:00", "--duration", "5")
	assert.ErrorContains(t, err, `schedule "Missing" not found`)

	_, err = h.run(t, "add-event", "--schedule", "Alpha", "--time", "25:00", "--duration", "5")
	assert.ErrorIs(t, err, scheduler.ErrInvalidTime)

	_, err = h.run(t, "add-event", "--schedule", "Alpha", "--time", "10:00", "--duration", "0")
	assert.ErrorIs(t, err, scheduler.ErrInvalidDuration)

	// rejected edits leave neither a draft nor a change on the device
	out, err := h.run(t, "-o", "json", "draft", "show")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
	assert.Equal(t, twoSchedules(), h.dev.state())

	_, err = h.run(t, "new", "--name", "Beta")
	assert.ErrorIs(t, err, scheduler.ErrDuplicateName)

	_, err = h.run(t, "new", "--name", "Gamma", "--relays", "9")
	assert.ErrorIs(t, err, scheduler.ErrInvalidRelay)
}

func TestFailedSaveKeepsDraft(t *testing.T) {
	h := newHarness(t, twoSchedules())
	h.dev.failSave = true

	_, err := h.run(t, "add-event", "--schedule", "Beta", "--time", "07:00", "--duration", "30")
	require.Error(t, err)
	var status *device.StatusError
	assert.ErrorAs(t, err, &status)
	assert.Contains(t, err.Error(), "schedctl draft commit")

	out, err := h.run(t, "-o", "json", "draft", "show")
	require.NoError(t, err)
	var draft model.Draft
	require.NoError(t, json.Unmarshal([]byte(out), &draft))
	assert.Equal(t, model.ModeEditing, draft.Mode)
	assert.Equal(t, "Beta", draft.Original)
	require.Len(t, draft.Schedule.Events, 1)
	assert.Equal(t, "12:00", draft.Schedule.Events[0].Time)

	out, err = h.run(t, "draft", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "07:00 for 30s")

	h.dev.mu.Lock()
	h.dev.failSave = false
	h.dev.mu.Unlock()

	_, err = h.run(t, "draft", "commit")
	require.NoError(t, err)
	doc := h.dev.state()
	require.Len(t, doc.Schedules[1].Events, 1)
	assert.Equal(t, "12:00", doc.Schedules[1].Events[0].Time)

	_, err = h.run(t, "draft", "commit")
	assert.ErrorIs(t, err, scheduler.ErrNoDraft)
}

func TestAddEventRefusedWhileDraftPending(t *testing.T) {
	h := newHarness(t, twoSchedules())
	h.dev.failSave = true
	_, err := h.run(t, "add-event", "--schedule", "Beta", "--time", "07:00", "--duration", "30", "--repeat", "4")
	require.Error(t, err)

	h.dev.mu.Lock()
	h.dev.failSave = false
	h.dev.mu.Unlock()
	for _, args := range [][]string{
		{"add-event", "--schedule", "Alpha", "--time", "09:00", "--duration", "10"},
		{"new", "--name", "Gamma"},
	} {
		_, err = h.run(t, args...)
		require.Error(t, err)
		assert.ErrorIs(t, err, scheduler.ErrDraftPending)
		assert.Contains(t, err.Error(), "schedctl draft commit")
	}
	assert.Len(t, h.dev.state().Schedules[0].Events, 1)

	out, err := h.run(t, "-o", "json", "draft", "show")
	require.NoError(t, err)
	var draft model.Draft
	require.NoError(t, json.Unmarshal([]byte(out), &draft))
	assert.Equal(t, "Beta", draft.Original)
	assert.Len(t, draft.Schedule.Events, 5)

	_, err = h.run(t, "draft", "commit")
	require.NoError(t, err)
	_, err = h.run(t, "add-event", "--schedule", "Alpha", "--time", "09:00", "--duration", "10")
	require.NoError(t, err)
	assert.Len(t, h.dev.state().Schedules[0].Events, 2)
}

func TestShowMalformedDeviceTimes(t *testing.T) {
	doc := twoSchedules()
	doc.Schedules[1].LightsOnTime = "6:00"
	doc.Schedules[1].Events = []model.Event{{ID: "b1", Time: "25:00", Duration: 5}}
	h := newHarness(t, doc)

	out, err := h.run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "6:00-13:00")

	out, err = h.run(t, "-o", "json", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"lightsOn": "6:00"`)

	tbl := uitable.New()
	draft := &model.Draft{Mode: model.ModeEditing, Original: "Beta", Schedule: doc.Schedules[1]}
	draftTable(draft, clock.NewConverter(clock.Fixed(-300)))(tbl)
	assert.Contains(t, tbl.String(), "6:00-13:00")
	assert.Contains(t, tbl.String(), "#0 25:00 for 5s")
}

func TestDraftDiscard(t *testing.T) {
	h := newHarness(t, twoSchedules())
	h.dev.failSave = true
	_, err := h.run(t, "new", "--name", "Gamma")
	require.Error(t, err)

	out, err := h.run(t, "draft", "discard")
	require.NoError(t, err)
	assert.Contains(t, out, "draft discarded")

	out, err = h.run(t, "draft", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no pending draft for cli-test")
}

func TestShowFormats(t *testing.T) {
	h := newHarness(t, twoSchedules())

	out, err := h.run(t, "-o", "json", "show")
	require.NoError(t, err)
	var rows []scheduleRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Current)
	assert.Equal(t, []int{1, 2}, rows[0].Relays)
	assert.Equal(t, "06:00", rows[0].LightsOn)
	assert.Equal(t, "18:00", rows[0].LightsOff)
	assert.Equal(t, 1, rows[0].Events)

	out, err = h.run(t, "-o", "yaml", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Alpha")
	assert.Contains(t, out, "relays:")

	out, err = h.run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "1,2")
	assert.Contains(t, out, "06:00-18:00")
}

func TestTimelineAndConflicts(t *testing.T) {
	h := newHarness(t, twoSchedules())

	out, err := h.run(t, "-o", "json", "timeline", "0")
	require.NoError(t, err)
	var proj scheduler.Projection
	require.NoError(t, json.Unmarshal([]byte(out), &proj))
	assert.Equal(t, "Alpha", proj.Schedule)
	require.Len(t, proj.Events, 1)
	assert.Equal(t, "07:00", proj.Events[0].Time)

	out, err = h.run(t, "timeline", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "07:00")
	assert.Contains(t, out, "1m 0s")

	_, err = h.run(t, "timeline", "4")
	assert.ErrorIs(t, err, scheduler.ErrIndexOutOfRange)

	out, err = h.run(t, "conflicts")
	require.NoError(t, err)
	assert.Contains(t, out, "1 relay(s) are assigned to more than one schedule")
	assert.Contains(t, out, "Alpha, Beta")

	out, err = h.run(t, "-o", "json", "conflicts")
	require.NoError(t, err)
	var conflicts []model.Conflict
	require.NoError(t, json.Unmarshal([]byte(out), &conflicts))
	assert.Equal(t, []model.Conflict{{Relay: 1, Schedules: []string{"Alpha", "Beta"}}}, conflicts)
}

func TestRemove(t *testing.T) {
	h := newHarness(t, twoSchedules())

	_, err := h.run(t, "rm", "5")
	assert.ErrorIs(t, err, scheduler.ErrIndexOutOfRange)

	out, err := h.run(t, "rm", "0")
	require.NoError(t, err)
	assert.Contains(t, out, `deleted schedule "Alpha"`)
	doc := h.dev.state()
	require.Len(t, doc.Schedules, 1)
	assert.Equal(t, "Beta", doc.Schedules[0].Name)

	_, err = h.run(t, "rm", "x")
	assert.Error(t, err)
}

func TestDeviceCommands(t *testing.T) {
	h := newHarness(t, twoSchedules())

	out, err := h.run(t, "water", "--relay", "3", "--duration", "45")
	require.NoError(t, err)
	assert.Contains(t, out, "relay 3 on for 45s")
	require.Len(t, h.dev.manual, 1)
	assert.Equal(t, model.ManualRelay{Relay: 2, Duration: 45}, h.dev.manual[0])

	_, err = h.run(t, "water", "--relay", "9", "--duration", "45")
	assert.ErrorIs(t, err, device.ErrInvalidManual)

	out, err = h.run(t, "activate")
	require.NoError(t, err)
	assert.Contains(t, out, "scheduler activated")

	out, err = h.run(t, "-o", "json", "status")
	require.NoError(t, err)
	var st model.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.False(t, st.IsActive)
	require.NotNil(t, st.ScheduleCount)
	assert.Equal(t, 2, *st.ScheduleCount)
	assert.Contains(t, []string{"on", "off"}, st.LightCondition)
	assert.NotNil(t, st.NextEvent)
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t, twoSchedules())
	dir := t.TempDir()
	cfg := "device: " + h.url + "\nclient: from-file\noutput: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".schedctl.yaml"), []byte(cfg), 0o644))
	t.Setenv("SCHEDCTL_CONFIG_PATH", dir)

	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--drafts", h.drafts, "show"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var rows []scheduleRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	assert.Len(t, rows, 2)
}

func TestConfigErrors(t *testing.T) {
	newHarness(t, twoSchedules())

	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"show"})
	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "no device configured")

	h := newHarness(t, twoSchedules())
	_, err := h.run(t, "-o", "xml", "show")
	assert.ErrorContains(t, err, `unknown output format "xml"`)

	_, err = h.run(t, "--zone", "abc", "show")
	assert.ErrorContains(t, err, `invalid zone "abc"`)

	_, err = h.run(t, "--zone", "900", "show")
	assert.ErrorContains(t, err, `invalid zone "900"`)
	_, err = h.run(t, "--zone", "-720", "show")
	assert.NoError(t, err)
}
