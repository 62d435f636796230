// Package cli implements schedctl, the operator command line for the
// scheduler. Every command runs a short-lived session against the device.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
)

const (
	configName = ".schedctl"
	envPrefix  = "SCHEDCTL"
)

// Config is resolved from flags, SCHEDCTL_* variables and .schedctl.yaml, in
// that order of precedence.
type Config struct {
	Device  string
	Timeout time.Duration
	Drafts  string
	Client  string
	Zone    clock.Zone
	Output  string
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("device", "", "Base URL of the controller, e.g. http://192.168.4.1.")
	f.Duration("timeout", 10*time.Second, "Per-request timeout.")
	f.String("drafts", defaultDraftPath(), "Directory for pending drafts.")
	f.String("client", "", "Client id owning the pending draft (default: user@host).")
	f.String("zone", "local", `Wall clock for times: "local" or minutes east of GMT, e.g. -300.`)
	f.StringP("output", "o", "table", "Output format (table, json, yaml).")

	for _, name := range []string{"device", "timeout", "drafts", "client", "zone", "output"} {
		_ = v.BindPFlag(name, f.Lookup(name))
	}
}

func loadConfig(v *viper.Viper) (Config, error) {
	v.SetConfigName(configName) // .yaml is implicit
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if override := os.Getenv(envPrefix + "_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := Config{
		Device:  v.GetString("device"),
		Timeout: v.GetDuration("timeout"),
		Drafts:  v.GetString("drafts"),
		Client:  v.GetString("client"),
		Output:  v.GetString("output"),
	}
	if cfg.Device == "" {
		return cfg, errors.New("no device configured: pass --device or set SCHEDCTL_DEVICE")
	}
	if cfg.Client == "" {
		cfg.Client = defaultClient()
	}
	zone, err := parseZone(v.GetString("zone"))
	if err != nil {
		return cfg, err
	}
	cfg.Zone = zone
	switch cfg.Output {
	case "table", "json", "yaml":
	default:
		return cfg, fmt.Errorf("unknown output format %q", cfg.Output)
	}
	return cfg, nil
}

func parseZone(s string) (clock.Zone, error) {
	if s == "" || s == "local" {
		return clock.Local{}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || !clock.ValidOffset(n) {
		return nil, fmt.Errorf("invalid zone %q: want \"local\" or minutes east of GMT in [%d, %d]", s, clock.MinOffset, clock.MaxOffset)
	}
	return clock.Fixed(n), nil
}

func defaultDraftPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.schedctl/drafts"
	}
	return ".schedctl-drafts"
}

func defaultClient() string {
	host, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = "operator"
	}
	return "cli:" + user + "@" + host
}
