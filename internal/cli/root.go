package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nixie-Tech-LLC/irrigo/internal/device"
	"github.com/Nixie-Tech-LLC/irrigo/internal/drafts"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

// app is shared by every command of one invocation.
type app struct {
	v      *viper.Viper
	cfg    Config
	out    *Printer
	client *device.Client
	drafts *drafts.Disk
}

// New builds the schedctl command tree.
func New() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "schedctl",
		Short:         "Inspect and edit the relay controller's irrigation schedules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	bindFlags(a.v, root)

	root.AddCommand(
		a.showCmd(),
		a.timelineCmd(),
		a.conflictsCmd(),
		a.statusCmd(),
		a.activateCmd(),
		a.deactivateCmd(),
		a.waterCmd(),
		a.addEventCmd(),
		a.newCmd(),
		a.rmCmd(),
		a.draftCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.out = &Printer{Out: cmd.OutOrStdout(), Format: cfg.Output}
	a.client = device.NewClient(cfg.Device, nil).WithTimeout(cfg.Timeout)
	a.drafts = drafts.NewDisk(cfg.Drafts)
	return nil
}

// session opens a session and loads the device document into it.
func (a *app) session(ctx context.Context) (*scheduler.Session, error) {
	s := scheduler.NewSession(scheduler.Options{
		ID:       "cli-" + uuid.NewString(),
		ClientID: a.cfg.Client,
		Gateway:  a.client,
		Drafts:   a.drafts,
		Zone:     a.cfg.Zone,
	})
	if err := s.Load(ctx); err != nil {
		return nil, fmt.Errorf("load schedules from %s: %w", a.cfg.Device, err)
	}
	return s, nil
}
