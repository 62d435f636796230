package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

type scheduleRow struct {
	Index     int    `json:"index"`
	Current   bool   `json:"current"`
	Name      string `json:"name"`
	Relays    []int  `json:"relays"`
	LightsOn  string `json:"lightsOn"`
	LightsOff string `json:"lightsOff"`
	Events    int    `json:"events"`
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the schedules stored on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			st := s.State()
			conv := s.Converter()
			rows := make([]scheduleRow, 0, len(st.Schedules))
			for i, sc := range st.Schedules {
				rows = append(rows, scheduleRow{
					Index:     i,
					Current:   i == st.CurrentScheduleIndex,
					Name:      sc.Name,
					Relays:    scheduler.RelaysFromMask(sc.RelayMask),
					LightsOn:  scheduler.DisplayTime(conv, sc.LightsOnTime),
					LightsOff: scheduler.DisplayTime(conv, sc.LightsOffTime),
					Events:    sc.EventCount(),
				})
			}
			if len(rows) == 0 {
				a.out.Message("no schedules on the device")
			}
			return a.out.Print(rows, func(tbl *uitable.Table) {
				tbl.AddRow(header("", "#", "NAME", "RELAYS", "LIGHTS", "EVENTS")...)
				for _, r := range rows {
					mark := ""
					if r.Current {
						mark = "*"
					}
					tbl.AddRow(mark, r.Index, r.Name, joinInts(r.Relays), r.LightsOn+"-"+r.LightsOff, r.Events)
				}
			})
		},
	}
}

func (a *app) timelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <index>",
		Short: "Project one schedule onto the 24h axis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			proj, err := s.Timeline(index)
			if err != nil {
				return err
			}
			a.out.Message("%s  lights %s-%s", color.New(color.Bold).Sprint(proj.Schedule), proj.LightsOn, proj.LightsOff)
			return a.out.Print(proj, func(tbl *uitable.Table) {
				tbl.AddRow(header("#", "TIME", "DURATION", "LIGHTS", "LEFT", "WIDTH")...)
				for _, b := range proj.Events {
					lights := "off"
					if lightsAt(proj.Background, b.Minute) {
						lights = "on"
					}
					tbl.AddRow(b.Index, b.Time, scheduler.FormatDuration(b.Duration), lights,
						fmt.Sprintf("%.2f%%", b.LeftPercent), fmt.Sprintf("%.2f%%", b.WidthPercent))
				}
			})
		},
	}
}

func (a *app) conflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "Show relays claimed by more than one schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			conflicts := s.Conflicts()
			if len(conflicts) == 0 {
				a.out.Message("no relay conflicts")
				if a.out.Format == "table" {
					return nil
				}
			} else {
				a.out.Warn("%d relay(s) are assigned to more than one schedule", len(conflicts))
			}
			return a.out.Print(conflicts, conflictTable(conflicts))
		},
	}
}

type addEventOptions struct {
	schedule string
	time     string
	duration int
	repeat   int
	interval int
}

func (a *app) addEventCmd() *cobra.Command {
	o := addEventOptions{}
	cmd := &cobra.Command{
		Use:   "add-event",
		Short: "Add an event, or a repeated series, to a schedule and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			index := scheduleIndex(s.State(), o.schedule)
			if index < 0 {
				return fmt.Errorf("schedule %q not found", o.schedule)
			}
			if err := s.StartEdit(ctx, index); err != nil {
				return startErr(err)
			}
			added, err := s.AddEvent(ctx, o.time, o.duration, o.repeat, o.interval)
			if err != nil {
				_ = s.Cancel(ctx)
				return err
			}
			a.out.Message("added %d event(s) to %q", added, o.schedule)
			return a.commit(ctx, s)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.schedule, "schedule", "", "Name of the schedule to edit.")
	f.StringVar(&o.time, "time", "", "Start time HH:MM in the configured zone.")
	f.IntVar(&o.duration, "duration", 0, "Seconds the relays stay on.")
	f.IntVar(&o.repeat, "repeat", 0, "Additional repetitions after the first event.")
	f.IntVar(&o.interval, "interval", 60, "Minutes between repetitions.")
	_ = cmd.MarkFlagRequired("schedule")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

type newOptions struct {
	name      string
	lightsOn  string
	lightsOff string
	relays    []int
}

func (a *app) newCmd() *cobra.Command {
	o := newOptions{}
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a schedule and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := s.StartCreate(ctx, o.name); err != nil {
				return startErr(err)
			}
			update := scheduler.PendingUpdate{}
			if cmd.Flags().Changed("lights-on") {
				update.LightsOnTime = &o.lightsOn
			}
			if cmd.Flags().Changed("lights-off") {
				update.LightsOffTime = &o.lightsOff
			}
			if len(o.relays) > 0 {
				mask, err := scheduler.MaskFromRelays(o.relays)
				if err != nil {
					_ = s.Cancel(ctx)
					return err
				}
				update.RelayMask = &mask
			}
			if err := s.UpdatePending(ctx, update); err != nil {
				_ = s.Cancel(ctx)
				return err
			}
			return a.commit(ctx, s)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.name, "name", "", "Schedule name, unique on the device.")
	f.StringVar(&o.lightsOn, "lights-on", "", "Lights-on time HH:MM in the configured zone.")
	f.StringVar(&o.lightsOff, "lights-off", "", "Lights-off time HH:MM in the configured zone.")
	f.IntSliceVar(&o.relays, "relays", nil, "Relays (1-8) driven by the schedule, e.g. 1,3.")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Delete a schedule and save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			st := s.State()
			if index >= len(st.Schedules) {
				return fmt.Errorf("schedule %d: %w", index, scheduler.ErrIndexOutOfRange)
			}
			name := st.Schedules[index].Name
			if err := s.DeleteSchedule(cmd.Context(), index); err != nil {
				return err
			}
			a.out.Message("deleted schedule %q", name)
			if a.out.Format == "table" {
				return nil
			}
			return a.out.Print(s.State(), nil)
		},
	}
}

// commit saves the open draft. A failed save leaves the draft on disk so that
// "draft commit" can retry it.
func (a *app) commit(ctx context.Context, s *scheduler.Session) error {
	res, err := s.Commit(ctx)
	if err != nil {
		if scheduler.IsValidation(err) {
			_ = s.Cancel(ctx)
			return err
		}
		return fmt.Errorf("%w (draft kept, retry with: schedctl draft commit)", err)
	}
	st := s.State()
	a.out.Message("saved %q (device: %s)", st.Schedules[res.Index].Name, res.Device.Status)
	for _, c := range res.Conflicts {
		a.out.Warn("relay %d is shared by %s", c.Relay, strings.Join(c.Schedules, ", "))
	}
	if a.out.Format == "table" {
		return nil
	}
	return a.out.Print(res, nil)
}

// startErr points at the draft commands when an earlier run left a draft behind.
func startErr(err error) error {
	if errors.Is(err, scheduler.ErrDraftPending) {
		return fmt.Errorf("%w (run \"schedctl draft commit\" or \"schedctl draft discard\")", err)
	}
	return err
}

func conflictTable(conflicts []model.Conflict) func(tbl *uitable.Table) {
	return func(tbl *uitable.Table) {
		red := color.New(color.FgRed)
		tbl.AddRow(header("RELAY", "SCHEDULES")...)
		for _, c := range conflicts {
			tbl.AddRow(red.Sprint(c.Relay), strings.Join(c.Schedules, ", "))
		}
	}
}

func scheduleIndex(st model.SchedulerState, name string) int {
	for i, sc := range st.Schedules {
		if sc.Name == name {
			return i
		}
	}
	return -1
}

func lightsAt(background []scheduler.Segment, minute int) bool {
	for _, seg := range background {
		if minute >= seg.Start && minute < seg.End {
			return seg.LightsOn
		}
	}
	return false
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("index must be a non-negative integer")
	}
	return n, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}
