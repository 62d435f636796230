package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleJSONCarriesDerivedEventCount(t *testing.T) {
	s := Schedule{
		Name:          "Veg",
		RelayMask:     0b101,
		LightsOnTime:  "06:00",
		LightsOffTime: "18:00",
		Events:        []Event{{ID: "1_0", Time: "08:00", Duration: 30}},
	}
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.EqualValues(t, 1, doc["eventCount"])
	assert.EqualValues(t, 5, doc["relayMask"])
	_, hasMask := doc["events"].([]any)[0].(map[string]any)["executedMask"]
	assert.False(t, hasMask)
}

func TestStaleEventCountIsIgnoredOnLoad(t *testing.T) {
	raw := `{"scheduleCount":9,"currentScheduleIndex":0,"schedules":[
		{"name":"a","relayMask":1,"lightsOnTime":"06:00","lightsOffTime":"18:00","eventCount":7,
		 "events":[{"id":"x","time":"01:00","duration":10,"executedMask":3}]}]}`
	var st SchedulerState
	require.NoError(t, json.Unmarshal([]byte(raw), &st))
	require.Len(t, st.Schedules, 1)
	assert.Equal(t, 1, st.Schedules[0].EventCount())
	require.NotNil(t, st.Schedules[0].Events[0].ExecutedMask)
	assert.EqualValues(t, 3, *st.Schedules[0].Events[0].ExecutedMask)

	out, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"scheduleCount":1`)
	assert.Contains(t, string(out), `"executedMask":3`)
}

func TestEmptyStateMarshalsEmptyArrays(t *testing.T) {
	out, err := json.Marshal(SchedulerState{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scheduleCount":0,"currentScheduleIndex":0,"schedules":[]}`, string(out))
}

func TestCloneIsDeep(t *testing.T) {
	mask := uint32(1)
	s := Schedule{Name: "a", Events: []Event{{ID: "e", ExecutedMask: &mask}}}
	c := s.Clone()
	c.Events[0].ID = "changed"
	*c.Events[0].ExecutedMask = 9
	assert.Equal(t, "e", s.Events[0].ID)
	assert.EqualValues(t, 1, *s.Events[0].ExecutedMask)
}
