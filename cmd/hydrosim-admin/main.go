package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/target/hydrosim/internal/bootstrap"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger()
	if err := App().Run(ctx, os.Args); err != nil {
		logger.ErrorContext(ctx, "command failed", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

// App builds the admin command tree. Configuration comes from the same
// environment variables as the server.
func App() *cli.Command {
	return &cli.Command{
		Name:    "hydrosim-admin",
		Version: version,
		Usage:   "Operate the hydrosim simulation store from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "owner",
				Usage:   "Owner id commands act for (defaults to DEV_OWNER_ID)",
				Sources: cli.EnvVars("HYDROSIM_OWNER"),
			},
		},
		Commands: []*cli.Command{
			migrateCmd(),
			createCmd(),
			runCmd(),
			stopCmd(),
			listCmd(),
			resultsCmd(),
			exportCmd(),
			reapCmd(),
		},
	}
}
