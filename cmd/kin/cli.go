package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/errors"
	"github.com/hpungsan/kin/internal/ops"
	"github.com/hpungsan/kin/internal/tui"
	"github.com/hpungsan/kin/internal/web"
	"github.com/hpungsan/kin/internal/widget"
)

func surfaceFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "surface",
		Aliases: []string{"s"},
		Value:   widget.DefaultSurface,
		Usage:   "Surface id",
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:    "kin",
		Usage:   "Keep in touch with the people in your address book",
		Version: Version,
		Commands: []*cli.Command{
			nextCmd(rt),
			engageCmd(rt),
			countersCmd(rt),
			statsCmd(rt),
			exportCmd(rt),
			importCmd(rt),
			serveCmd(rt),
			widgetCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func nextCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "Pick the next contact to show",
		Flags: []cli.Flag{
			surfaceFlag(),
			&cli.StringFlag{Name: "last", Aliases: []string{"l"}, Usage: "Contact id shown last, excluded from this pick"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Next(c.Context, rt.host, ops.NextInput{
				Surface:   c.String("surface"),
				LastShown: c.String("last"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func engageCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "engage",
		Usage:     "Record that you got in touch with a contact, then pick the next one",
		ArgsUsage: "[contact-id]",
		Flags: []cli.Flag{
			surfaceFlag(),
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Contact display name instead of id"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if name := c.String("name"); name != "" {
				if id != "" {
					return outputError(errors.NewInvalidRequest("pass either a contact id or --name, not both"))
				}
				resolved, err := resolveName(c.Context, rt.source, name)
				if err != nil {
					return outputError(err)
				}
				id = resolved
			}
			if strings.TrimSpace(id) == "" {
				return outputError(errors.NewInvalidRequest("contact id or --name is required"))
			}

			output, err := ops.Engage(c.Context, rt.host, ops.EngageInput{
				Surface:   c.String("surface"),
				ContactID: id,
			})
			if err != nil {
				return outputError(err)
			}
			if output.RecordError != "" {
				rt.logger.Warn("engagement not recorded", "contact_id", id, "error", output.RecordError)
			}
			return outputJSON(c, output)
		},
	}
}

// resolveName maps a display name to a contact id. On a miss the error
// carries the closest names as suggestions.
func resolveName(ctx context.Context, source contact.Source, name string) (string, error) {
	contacts, err := source.ListContacts(ctx)
	if err != nil {
		return "", errors.NewContactSourceFailure(err)
	}
	c, suggestions, ok := contact.FindByName(contacts, name)
	if ok {
		return c.ID, nil
	}
	nf := errors.NewNotFound(name)
	if len(suggestions) > 0 {
		nf.Message += fmt.Sprintf(" (did you mean: %s?)", strings.Join(suggestions, ", "))
		nf.Details["suggestions"] = suggestions
	}
	return "", nf
}

func countersCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "counters",
		Usage:     "Show the proposed and engaged counters of a contact",
		ArgsUsage: "<contact-id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Counters(c.Context, rt.db, ops.CountersInput{ContactID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func statsCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "List counter records, most engaged first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: ops.DefaultStatsLimit, Usage: "Max records (max 100)"},
			&cli.IntFlag{Name: "offset", Usage: "Records to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, rt.db, rt.source, ops.StatsInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func exportCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export counters to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.kin/exports/counters-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, rt.db, rt.cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func importCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import counters from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|add"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, rt.db, rt.cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web widget and run the refresh scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default from config, 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Usage: "Port (default from config, 8732)"},
		},
		Action: func(c *cli.Context) error {
			bind := rt.cfg.WebBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := rt.cfg.WebPort
			if c.IsSet("port") {
				port = c.Int("port")
			}

			srv, err := web.NewServer(rt.webDeps(), Version, bind, port)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := widget.NewScheduler(rt.host, rt.schedulerConfig(), rt.logger)
			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = sched.Run(ctx)
			}()

			err = web.Run(ctx, srv, rt.logger)
			stop()
			<-done
			if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

func widgetCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "widget",
		Usage: "Show the terminal widget",
		Flags: []cli.Flag{
			surfaceFlag(),
			&cli.DurationFlag{Name: "interval", Usage: "Refresh period (default from config)"},
		},
		Action: func(c *cli.Context) error {
			interval := time.Duration(rt.cfg.RefreshIntervalSeconds) * time.Second
			if c.IsSet("interval") {
				interval = c.Duration("interval")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// The timer lives in the model; the scheduler only watches the address book.
			cfg := rt.schedulerConfig()
			cfg.Interval = 0
			go func() { _ = widget.NewScheduler(rt.host, cfg, rt.logger).Run(ctx) }()

			// A running terminal is a real display, configured or not.
			surface := c.String("surface")
			rt.host.Register(surface)

			model := tui.New(rt.host, surface, interval)
			if err := tui.Run(ctx, model, rt.sink.attach); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats an error for the CLI as "[CODE] message".
func outputError(err error) error {
	var kErr *errors.KinError
	if stderrors.As(err, &kErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", kErr.Code, kErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
