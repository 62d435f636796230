package cli

import (
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the scheduler is running and what fires next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.client.Status(ctx)
			if err != nil {
				return err
			}
			// fields the device leaves out are derived from its schedules
			if s, err := a.session(ctx); err == nil {
				st = s.EnrichStatus(st)
			} else {
				log.Debug().Err(err).Msg("status not enriched")
			}
			return a.out.Print(st, func(tbl *uitable.Table) {
				state := "stopped"
				if st.IsActive {
					state = "running"
				}
				tbl.AddRow(label("SCHEDULER"), state)
				if st.ScheduleCount != nil {
					tbl.AddRow(label("SCHEDULES"), *st.ScheduleCount)
				}
				if st.LightCondition != "" {
					tbl.AddRow(label("LIGHTS"), st.LightCondition)
				}
				if n := st.NextEvent; n != nil {
					tbl.AddRow(label("NEXT"), n.Schedule+" at "+n.Time+" GMT for "+scheduler.FormatDuration(n.Duration)+", relays "+joinInts(n.Relays))
				}
			})
		},
	}
}

func (a *app) activateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Start running the stored schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.Activate(cmd.Context())
			if err != nil {
				return err
			}
			return a.printResult("scheduler activated", res)
		},
	}
}

func (a *app) deactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Stop running the stored schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.Deactivate(cmd.Context())
			if err != nil {
				return err
			}
			return a.printResult("scheduler deactivated", res)
		},
	}
}

type waterOptions struct {
	relay    int
	duration int
}

func (a *app) waterCmd() *cobra.Command {
	o := waterOptions{}
	cmd := &cobra.Command{
		Use:   "water",
		Short: "Open one relay for a number of seconds, outside any schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// relays are numbered 1-8 on the command line and 0-7 on the wire
			res, err := a.client.ManualRelay(cmd.Context(), model.ManualRelay{Relay: o.relay - 1, Duration: o.duration})
			if err != nil {
				return err
			}
			return a.printResult("relay "+strconv.Itoa(o.relay)+" on for "+scheduler.FormatDuration(o.duration), res)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.relay, "relay", 0, "Relay number (1-8).")
	f.IntVar(&o.duration, "duration", 0, "Seconds to keep the relay on.")
	_ = cmd.MarkFlagRequired("relay")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func (a *app) printResult(msg string, res model.SaveResult) error {
	if a.out.Format == "table" {
		a.out.Message("%s (device: %s)", msg, res.Status)
		return nil
	}
	return a.out.Print(res, nil)
}
