package cli

import (
	"strconv"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

func (a *app) draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect the pending draft left by an interrupted edit",
	}
	cmd.AddCommand(a.draftShowCmd(), a.draftDiscardCmd(), a.draftCommitCmd())
	return cmd
}

// idle builds a session without touching the device.
func (a *app) idle() *scheduler.Session {
	return scheduler.NewSession(scheduler.Options{
		ClientID: a.cfg.Client,
		Gateway:  a.client,
		Drafts:   a.drafts,
		Zone:     a.cfg.Zone,
	})
}

func (a *app) draftShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the pending draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.idle()
			draft, err := s.PendingDraft(cmd.Context())
			if err != nil {
				return err
			}
			if draft == nil {
				a.out.Message("no pending draft for %s", a.cfg.Client)
				if a.out.Format == "table" {
					return nil
				}
			}
			return a.out.Print(draft, draftTable(draft, s.Converter()))
		},
	}
}

func (a *app) draftDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Delete the pending draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.idle().Discard(cmd.Context()); err != nil {
				return err
			}
			a.out.Message("draft discarded")
			return nil
		},
	}
}

func (a *app) draftCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Reopen the pending draft and save it to the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := s.Resume(ctx); err != nil {
				return err
			}
			return a.commit(ctx, s)
		},
	}
}

func draftTable(d *model.Draft, conv clock.Converter) func(tbl *uitable.Table) {
	return func(tbl *uitable.Table) {
		sc := d.Schedule
		tbl.AddRow(label("MODE"), d.Mode)
		if d.Original != "" {
			tbl.AddRow(label("EDITING"), d.Original)
		}
		tbl.AddRow(label("NAME"), sc.Name)
		tbl.AddRow(label("RELAYS"), joinInts(scheduler.RelaysFromMask(sc.RelayMask)))
		tbl.AddRow(label("LIGHTS"), scheduler.DisplayTime(conv, sc.LightsOnTime)+"-"+scheduler.DisplayTime(conv, sc.LightsOffTime))
		tbl.AddRow(label("SAVED"), d.SavedAt.Local().Format(time.DateTime))
		for i, e := range sc.Events {
			tbl.AddRow(label("EVENT"), "#"+strconv.Itoa(i)+" "+scheduler.DisplayTime(conv, e.Time)+" for "+scheduler.FormatDuration(e.Duration))
		}
	}
}
