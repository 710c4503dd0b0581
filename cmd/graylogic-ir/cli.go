package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/gray-logic-ir/internal/audit"
	"github.com/nerrad567/gray-logic-ir/internal/auth"
	"github.com/nerrad567/gray-logic-ir/internal/command"
	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-ir/internal/kvstore"
	"github.com/nerrad567/gray-logic-ir/internal/provisioning"
	"github.com/nerrad567/gray-logic-ir/migrations"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(out io.Writer) *cli.App {
	app := &cli.App{
		Name:    "graylogic-ir",
		Usage:   "Infrared learn, store and replay bridge",
		Version: fmt.Sprintf("%s (%s, %s)", version, commit, date),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigPath,
				EnvVars: []string{"GRAYLOGIC_IR_CONFIG"},
				Usage:   "Configuration file path",
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			commandsCmd(),
			historyCmd(),
			provisionCmd(),
			resetCmd(),
			tokenCmd(),
		},
	}
	// Errors are returned to main instead of exiting inside the library.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// loadConfig reads the file named by the global --config flag.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// offline is the storage stack used by the maintenance commands. They run
// against the same database as serve; stop the service first so its
// in-memory copy does not overwrite the change.
type offline struct {
	db       *database.DB
	commands *command.Store
	creds    *provisioning.Store
	history  *audit.SQLiteRepository
}

func openOffline(ctx context.Context, cfg *config.Config) (*offline, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	kv := kvstore.NewSQLite(db)
	store := command.NewStore(kv)
	if err := store.Load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("loading commands: %w", err)
	}
	return &offline{
		db:       db,
		commands: store,
		creds:    provisioning.NewStore(kv),
		history:  audit.NewSQLiteRepository(db.DB),
	}, nil
}

// record adds an offline change to the outcome history.
func (o *offline) record(ctx context.Context, action dispatch.Action, name, message string) error {
	return o.history.Create(ctx, &audit.AuditLog{
		Action:  string(action),
		Kind:    string(dispatch.KindOK),
		Name:    name,
		Source:  string(dispatch.SourceCLI),
		Message: message,
	})
}

// withOffline loads config, opens storage and runs fn.
func withOffline(fn func(c *cli.Context, o *offline) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return outputError(err)
		}
		o, err := openOffline(c.Context, cfg)
		if err != nil {
			return outputError(err)
		}
		defer o.db.Close()

		if err := fn(c, o); err != nil {
			return outputError(err)
		}
		return nil
	}
}

// commandsCmd groups the stored-command maintenance commands.
func commandsCmd() *cli.Command {
	return &cli.Command{
		Name:  "commands",
		Usage: "Inspect and edit stored IR commands",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print the command document",
				Action: withOffline(func(c *cli.Context, o *offline) error {
					doc, err := o.commands.Document()
					if err != nil {
						return err
					}
					return outputDocument(c.App.Writer, doc)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a stored command",
				ArgsUsage: "<name>",
				Action: withOffline(func(c *cli.Context, o *offline) error {
					name := c.Args().First()
					if err := o.commands.Delete(c.Context, name); err != nil {
						return err
					}
					msg := "Deleted " + name
					if err := o.record(c.Context, dispatch.ActionDelete, name, msg); err != nil {
						return err
					}
					_, err := fmt.Fprintln(c.App.Writer, msg)
					return err
				}),
			},
			{
				Name:      "rename",
				Usage:     "Rename a stored command",
				ArgsUsage: "<old> <new>",
				Action: withOffline(func(c *cli.Context, o *offline) error {
					if c.NArg() != 2 {
						return fmt.Errorf("rename needs <old> <new>")
					}
					old, newName := c.Args().Get(0), c.Args().Get(1)
					if err := o.commands.Rename(c.Context, old, newName); err != nil {
						return err
					}
					msg := fmt.Sprintf("Renamed %s to %s", old, newName)
					if err := o.record(c.Context, dispatch.ActionRename, newName, msg); err != nil {
						return err
					}
					_, err := fmt.Fprintln(c.App.Writer, msg)
					return err
				}),
			},
			{
				Name:  "export",
				Usage: "Write the command document to a file or stdout",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file (default: stdout)"},
				},
				Action: withOffline(func(c *cli.Context, o *offline) error {
					doc, err := o.commands.Document()
					if err != nil {
						return err
					}
					path := c.String("path")
					if path == "" {
						return outputDocument(c.App.Writer, doc)
					}
					return os.WriteFile(path, doc, 0o600)
				}),
			},
			{
				Name:  "import",
				Usage: "Merge a command document into the store",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Document to import"},
				},
				Action: withOffline(func(c *cli.Context, o *offline) error {
					data, err := os.ReadFile(c.String("path"))
					if err != nil {
						return fmt.Errorf("reading %s: %w", c.String("path"), err)
					}
					imported, skipped, err := o.commands.Import(c.Context, data)
					if err != nil {
						return err
					}
					return outputJSON(c.App.Writer, map[string]any{
						"imported": imported,
						"skipped":  skipped,
						"total":    o.commands.Len(),
					})
				}),
			},
		},
	}
}

// historyCmd prints recorded request outcomes, newest first.
func historyCmd() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded learn, send and edit outcomes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "action", Aliases: []string{"a"}, Usage: "Filter by action"},
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Filter by outcome kind"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Filter by command name"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Maximum entries (max 200)"},
			&cli.IntFlag{Name: "offset", Usage: "Entries to skip"},
		},
		Action: withOffline(func(c *cli.Context, o *offline) error {
			res, err := o.history.List(c.Context, audit.Filter{
				Action: c.String("action"),
				Kind:   c.String("kind"),
				Name:   c.String("name"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return err
			}
			return outputJSON(c.App.Writer, res)
		}),
	}
}

// provisionCmd stores network credentials.
func provisionCmd() *cli.Command {
	return &cli.Command{
		Name:  "provision",
		Usage: "Store network credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ssid", Required: true, Usage: "Network name"},
			&cli.StringFlag{Name: "pass", EnvVars: []string{"GRAYLOGIC_IR_WIFI_PASS"}, Usage: "Network passphrase"},
		},
		Action: withOffline(func(c *cli.Context, o *offline) error {
			if err := o.creds.Save(c.Context, c.String("ssid"), c.String("pass")); err != nil {
				return err
			}
			_, err := fmt.Fprintf(c.App.Writer, "Provisioned %s\n", c.String("ssid"))
			return err
		}),
	}
}

// resetCmd is the offline factory reset: every command and the network
// credentials are erased.
func resetCmd() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Erase all commands and network credentials",
		Action: withOffline(func(c *cli.Context, o *offline) error {
			if err := o.commands.EraseAll(c.Context); err != nil {
				return err
			}
			if err := o.creds.Clear(c.Context); err != nil {
				return err
			}
			if err := o.record(c.Context, dispatch.ActionReset, "", "Reset complete"); err != nil {
				return err
			}
			_, err := fmt.Fprintln(c.App.Writer, "Reset complete")
			return err
		}),
	}
}

// tokenCmd issues a bearer token for the HTTP surface.
func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an HTTP bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Required: true, Usage: "Token subject (client name)"},
			&cli.DurationFlag{Name: "ttl", Usage: "Lifetime (default: security.jwt.access_token_ttl)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return outputError(err)
			}
			ttl := c.Duration("ttl")
			if ttl <= 0 {
				ttl = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
			}
			token, err := auth.GenerateToken(c.String("subject"), cfg.Security.JWT.Secret, ttl, time.Now())
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprintln(c.App.Writer, token)
			return err
		},
	}
}

// outputDocument pretty-prints a command document, keeping key order.
func outputDocument(w io.Writer, doc []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats an error for the CLI.
func outputError(err error) error {
	return cli.Exit(err.Error(), 1)
}
