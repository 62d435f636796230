package scheduler

import "github.com/Nixie-Tech-LLC/irrigo/internal/model"

// FindRelayConflicts reports every schedule that claims a relay already claimed
// by an earlier schedule. Each record names the first claimant and the later one.
// The result is advisory and derived only from relay masks.
func FindRelayConflicts(schedules []model.Schedule) []model.Conflict {
	conflicts := []model.Conflict{}
	for bit := 0; bit < RelayCount; bit++ {
		first := -1
		for i, s := range schedules {
			if s.RelayMask&(1<<bit) == 0 {
				continue
			}
			if first < 0 {
				first = i
				continue
			}
			conflicts = append(conflicts, model.Conflict{
				Relay:     bit + 1,
				Schedules: []string{schedules[first].Name, s.Name},
			})
		}
	}
	return conflicts
}
