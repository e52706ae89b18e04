// Package cli implements the cartable command-line interface. Commands build
// a client from the loaded configuration, restore any persisted session
// silently and print the requested records.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cartable-app/cartable/internal/config"
	"github.com/cartable-app/cartable/internal/monitoring"
	"github.com/cartable-app/cartable/internal/roster"
	"github.com/cartable-app/cartable/pkg/client"
	"github.com/cartable-app/cartable/pkg/logger"
)

var verbose bool

// rootCmd is the base command when the `cartable` binary is called without
// any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cartable",
	Short: "A command-line client for the École Directe school platform",
	Long: `cartable talks to the École Directe API: log in, then read homework,
timetables, grades, messages and (for teacher accounts) class rosters.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "enable debug logging")
}

// Execute is the main entry point for the CLI application. It parses the
// command-line arguments and executes the matching command, printing the
// error and exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newClient assembles a client from the loaded configuration.
func newClient() (*client.Client, error) {
	log := logger.NewNoopLogger()
	if verbose {
		log = logger.NewZapLogger("debug")
	}

	cfg, v, err := config.LoadConfig(log)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithConfig(cfg),
		client.WithLogger(log),
	}
	if cfg.Tracing.Enabled {
		tm, err := monitoring.NewTracingManager(cfg, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithTracing(tm))
	}
	if cfg.Roster.Path != "" {
		cache, err := roster.Open(cfg.Roster.Path, cfg.Roster.MaxAge, cfg.Roster.SweepInterval)
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithRosterCache(cache))
	}

	c, err := client.New(opts...)
	if err != nil {
		return nil, err
	}
	config.Watch(v, log, c.ApplyConfig)
	return c, nil
}

// connectedClient builds a client and restores the persisted session. Every
// data command goes through here; only `login` builds an unconnected client.
func connectedClient(cmd *cobra.Command) (*client.Client, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}
	if !c.SilentReconnect(cmd.Context()) {
		c.Close()
		return nil, fmt.Errorf("no usable session, run `cartable login` first")
	}
	return c, nil
}
