// Package demo wires configuration and lifecycle for the demo server
// command.
package demo

import (
	"context"
	"flag"

	demoserver "github.com/mamala42/remix/internal/demo"
	platformcmd "github.com/mamala42/remix/internal/platform/cmd"
)

// ParseConfig loads env defaults and applies flag overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (demoserver.Config, error) {
	var cfg demoserver.Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return demoserver.Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return demoserver.Config{}, err
	}
	return cfg, nil
}

// Run starts the demo server with telemetry and serves until ctx ends.
func Run(ctx context.Context, cfg demoserver.Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceDemo, func(ctx context.Context) error {
		srv, err := demoserver.NewServer(ctx, cfg)
		if err != nil {
			return err
		}
		defer srv.Close()
		return srv.ListenAndServe(ctx)
	})
}
