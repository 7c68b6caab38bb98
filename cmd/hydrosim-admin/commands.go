package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/target/hydrosim/internal/bootstrap"
	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/migrate"
	"github.com/target/hydrosim/internal/results"
	"github.com/target/hydrosim/internal/service"
)

// session is what a command sees once storage and services are wired.
type session struct {
	owner    string
	out      io.Writer
	store    *bootstrap.Storage
	services bootstrap.ServiceContainer
	reaper   func(ctx context.Context) error
}

// withServices opens storage and wires inline services for one command.
func withServices(ctx context.Context, cmd *cli.Command, migrateOnOpen bool, fn func(*session) error) (err error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	store, err := bootstrap.OpenStorage(ctx, bootstrap.StorageOptions{
		Config:  &cfg,
		Logger:  logger,
		Migrate: migrateOnOpen,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
		}
	}()

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config: &cfg,
		Store:  store,
		Logger: logger,
		Inline: true,
	})
	if err != nil {
		return err
	}
	defer func() { _ = services.Observability.Close() }()

	owner := strings.TrimSpace(cmd.Root().String("owner"))
	if owner == "" {
		owner = cfg.Owner.DevOwnerID
	}

	return fn(&session{
		owner:    owner,
		out:      cmd.Root().Writer,
		store:    store,
		services: services,
		reaper: func(ctx context.Context) error {
			runner, err := bootstrap.NewReaperRunner(bootstrap.ReaperConfig{
				Services: services,
				Config:   cfg.Reaper,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			return runner.RunOnce(ctx)
		},
	})
}

func requireID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return "", errors.New("simulation id argument is required")
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply schema migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reset", Usage: "Drop all tables before migrating"},
			&cli.BoolFlag{Name: "yes", Usage: "Confirm --reset"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("reset") && !cmd.Bool("yes") {
				return errors.New("--reset drops every simulation; pass --yes to confirm")
			}
			return withServices(ctx, cmd, true, func(s *session) error {
				if cmd.Bool("reset") {
					if err := s.store.Reset(ctx); err != nil {
						return err
					}
					fmt.Fprintln(s.out, "schema reset")
				}
				versions, err := migrate.Versions(s.store.Dialect())
				if err != nil {
					return err
				}
				for _, v := range versions {
					fmt.Fprintf(s.out, "applied %s (%s)\n", v, s.store.Dialect())
				}
				return nil
			})
		},
	}
}

func createCmd() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a simulation from a JSON request and run it to completion",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Value: "-", Usage: "Request file, - for stdin"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := readRequest(cmd)
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, false, func(s *session) error {
				sim, err := s.services.Simulations.Create(ctx, s.owner, req)
				if err != nil {
					return err
				}
				final, err := s.services.Simulations.Get(ctx, s.owner, sim.ID)
				if err != nil {
					return err
				}
				return printJSON(s.out, final)
			})
		},
	}
}

func readRequest(cmd *cli.Command) (*model.CreateSimulationRequest, error) {
	var r io.Reader
	if path := cmd.String("file"); path == "-" {
		r = cmd.Root().Reader
	} else {
		f, err := os.Open(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		r = f
	}
	if r == nil {
		r = os.Stdin
	}

	var req model.CreateSimulationRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Start a new attempt of a simulation",
		ArgsUsage: "ID",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, false, func(s *session) error {
				if _, err := s.services.Simulations.Run(ctx, s.owner, id); err != nil {
					return err
				}
				sim, err := s.services.Simulations.Get(ctx, s.owner, id)
				if err != nil {
					return err
				}
				return printJSON(s.out, sim)
			})
		},
	}
}

func stopCmd() *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "Cancel a running simulation",
		ArgsUsage: "ID",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, false, func(s *session) error {
				sim, err := s.services.Simulations.Stop(ctx, s.owner, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "%s %s\n", sim.ID, sim.Status)
				return nil
			})
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List simulations, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "Only simulations in this status"},
			&cli.StringFlag{Name: "limit", Value: "100", Usage: "Page size"},
			&cli.StringFlag{Name: "skip", Value: "0", Usage: "Rows to skip"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := listOptions(cmd)
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, false, func(s *session) error {
				page, err := s.services.Simulations.List(ctx, s.owner, opts)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tMODEL\tATTEMPT\tPROGRESS")
				for _, sim := range page.Simulations {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.0f%%\n",
						sim.ID, sim.Name, sim.Status, sim.ModelType, sim.Attempt, sim.Progress)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "%d of %d\n", len(page.Simulations), page.Total)
				return nil
			})
		},
	}
}

func listOptions(cmd *cli.Command) (model.SimulationListOptions, error) {
	var opts model.SimulationListOptions
	if raw := cmd.String("status"); raw != "" {
		var st model.SimulationStatus
		if err := st.UnmarshalText([]byte(raw)); err != nil {
			return opts, err
		}
		opts.Status = &st
	}
	limit, err := strconv.Atoi(cmd.String("limit"))
	if err != nil {
		return opts, fmt.Errorf("invalid --limit: %w", err)
	}
	skip, err := strconv.Atoi(cmd.String("skip"))
	if err != nil {
		return opts, fmt.Errorf("invalid --skip: %w", err)
	}
	opts.Limit, opts.Offset = limit, skip
	return opts, nil
}

func resultsCmd() *cli.Command {
	return &cli.Command{
		Name:      "results",
		Usage:     "Print stored results of a simulation",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "daily, monthly, annual or indicators"},
			&cli.StringFlag{Name: "query", Usage: "JMESPath projection over the result sets"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			var q service.ResultQuery
			if raw := cmd.String("type"); raw != "" {
				if err := q.Type.UnmarshalText([]byte(raw)); err != nil {
					return err
				}
			}
			q.Expression = cmd.String("query")
			return withServices(ctx, cmd, false, func(s *session) error {
				out, err := s.services.Simulations.Results(ctx, s.owner, id, q)
				if err != nil {
					return err
				}
				return printJSON(s.out, out)
			})
		},
	}
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export all results of a simulation",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv or json"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, - for stdout (default simulation_<id>_results.<format>)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			format, err := results.ParseExportFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, false, func(s *session) error {
				body, err := s.services.Simulations.Export(ctx, s.owner, id, format)
				if err != nil {
					return err
				}
				path := cmd.String("out")
				if path == "-" {
					_, err = s.out.Write(body)
					return err
				}
				if path == "" {
					path = format.Filename(id)
				}
				if err := os.WriteFile(path, body, 0o600); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(s.out, "wrote %s (%d bytes)\n", path, len(body))
				return nil
			})
		},
	}
}

func reapCmd() *cli.Command {
	return &cli.Command{
		Name:  "reap",
		Usage: "Fail stale running simulations and delete expired ones once",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withServices(ctx, cmd, false, func(s *session) error {
				if err := s.reaper(ctx); err != nil {
					return err
				}
				fmt.Fprintln(s.out, "reap complete")
				return nil
			})
		},
	}
}
