package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/oarkflow/log"
	"github.com/urfave/cli/v2"

	"github.com/oarkflow/script"
	"github.com/oarkflow/script/pkg/config"
	"github.com/oarkflow/script/pkg/fileutil"
	"github.com/oarkflow/script/pkg/server"
	"github.com/oarkflow/script/pkg/session"
	"github.com/oarkflow/script/pkg/storage"
)

var (
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	infoColor = color.New(color.FgCyan)
)

func main() {
	app := &cli.App{
		Name:  "scriptctl",
		Usage: "Run, explore and serve scripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a configuration file (YAML, JSON or BCL)",
				EnvVars: []string{"SCRIPT_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Execute a script file",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the script file",
						Required: true,
					},
				}, runFlags()...),
				Action: runFile,
			},
			{
				Name:  "eval",
				Usage: "Execute source given on the command line",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "expr",
						Aliases:  []string{"e"},
						Usage:    "Source to execute",
						Required: true,
					},
				}, runFlags()...),
				Action: evalSource,
			},
			{
				Name:  "repl",
				Usage: "Start an interactive session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "history",
						Usage: "Line history file (defaults to ~/.scriptctl_history)",
					},
					&cli.StringFlag{
						Name:  "transcript",
						Usage: "Append every run to this JSON transcript",
					},
				},
				Action: startRepl,
			},
			{
				Name:  "serve",
				Usage: "Start the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "address",
						Usage: "Address to listen on (overrides the config)",
					},
					&cli.StringFlag{
						Name:  "database-path",
						Usage: "SQLite database for saved scripts and history",
					},
					&cli.StringFlag{
						Name:  "transcript",
						Usage: "Append every run to this JSON transcript",
					},
					&cli.StringFlag{
						Name:  "version",
						Value: "1.0.0",
						Usage: "Server version",
					},
					&cli.BoolFlag{
						Name:  "access-log",
						Usage: "Log every HTTP request",
					},
				},
				Action: startServer,
			},
			scriptsCommand(),
			historyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger.Error().Err(err).Msg("scriptctl failed")
		os.Exit(1)
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "continue-on-errors",
			Usage: "Keep executing after a failed statement",
		},
		&cli.IntFlag{
			Name:  "max-loops",
			Usage: "Iteration cap of every loop",
		},
		&cli.StringFlag{
			Name:  "transcript",
			Usage: "Append the run to this JSON transcript",
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// runtimeOverride collects the command line runtime flags that were set.
func runtimeOverride(c *cli.Context) script.RuntimeConfigOverride {
	var override script.RuntimeConfigOverride
	if c.IsSet("continue-on-errors") {
		v := c.Bool("continue-on-errors")
		override.ContinueOnErrors = &v
	}
	if c.IsSet("max-loops") {
		v := c.Int("max-loops")
		override.MaxLoops = &v
	}
	return override
}

func openTranscript(path string) (*fileutil.JSONAppender[storage.RunRecord], error) {
	if path == "" {
		return nil, nil
	}
	return fileutil.NewJSONAppender[storage.RunRecord](path)
}

type colorWriter struct {
	color *color.Color
	w     io.Writer
}

func (cw colorWriter) Write(p []byte) (int, error) {
	if _, err := cw.color.Fprint(cw.w, string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// streamingContext builds a context whose output goes straight to the
// terminal while still being captured.
func streamingContext(cfg *config.Config) (*script.Context, error) {
	opts := append(cfg.ContextOptions(), script.WithOutput(
		script.NewOutput(os.Stdout),
		script.NewOutput(colorWriter{color: warnColor, w: os.Stderr}),
	))
	return script.NewContext(opts...)
}

// runSource executes src with the terminal as output and appends the run to
// the transcript when one is configured.
func runSource(c *cli.Context, src, scriptID string) (*session.Result, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	cfg.Apply()
	transcriptPath := c.String("transcript")
	if transcriptPath == "" {
		transcriptPath = cfg.History.Transcript
	}
	transcript, err := openTranscript(transcriptPath)
	if err != nil {
		return nil, err
	}
	if transcript != nil {
		defer transcript.Close()
	}

	sc, err := streamingContext(cfg)
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = script.WithRuntimeConfigOverride(ctx, runtimeOverride(c))

	res := session.Run(ctx, script.NewRunner(sc), src)
	if transcript != nil {
		if err := transcript.Append(res.Record(src, scriptID)); err != nil {
			warnColor.Fprintf(os.Stderr, "transcript: %v\n", err)
		}
	}
	return res, nil
}

func execute(c *cli.Context, src string) error {
	res, err := runSource(c, src, "")
	if err != nil {
		return err
	}
	return report(res)
}

// report prints the value or the failure of a run. Output and warnings were
// already streamed.
func report(res *session.Result) error {
	if !res.Success() {
		errColor.Fprintln(os.Stderr, res.Error)
		return cli.Exit("", 1)
	}
	if res.Result != "" {
		infoColor.Println(res.Result)
	}
	return nil
}

func runFile(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	return execute(c, string(data))
}

func evalSource(c *cli.Context) error {
	return execute(c, c.String("expr"))
}

func startServer(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("address"); addr != "" {
		cfg.Server.Address = addr
	}
	if dbPath := c.String("database-path"); dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if transcript := c.String("transcript"); transcript != "" {
		cfg.History.Transcript = transcript
	}
	return serve(cfg, c.String("version"), c.Bool("access-log"))
}

func serve(cfg *config.Config, version string, accessLog bool) error {
	cfg.Apply()
	store, err := storage.New(storage.Config{Path: cfg.Storage.Path})
	if err != nil {
		return err
	}
	defer store.Close()
	transcript, err := openTranscript(cfg.History.Transcript)
	if err != nil {
		return err
	}
	if transcript != nil {
		defer transcript.Close()
	}

	srv := server.NewServer(server.Config{
		Version:        version,
		RequestTimeout: cfg.Server.Timeout(),
		ContextOptions: cfg.ContextOptions(),
		Store:          store,
		Transcript:     transcript,
		AccessLog:      accessLog,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("Server listening on %s\n", cfg.Server.Address)
		serverErr <- srv.Start(cfg.Server.Address)
	}()

	select {
	case err := <-serverErr:
		return err
	case sig := <-sigChan:
		fmt.Printf("Received signal: %v. Initiating graceful shutdown...\n", sig)
		if err := srv.Shutdown(); err != nil {
			return err
		}
		select {
		case err := <-serverErr:
			if err != nil {
				return err
			}
			fmt.Println("Server shut down gracefully")
			return nil
		case <-time.After(30 * time.Second):
			return cli.Exit("Shutdown timeout reached, forcing exit", 1)
		}
	}
}

func withStore(c *cli.Context, fn func(context.Context, *storage.Store) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	path := cfg.Storage.Path
	if p := c.String("database-path"); p != "" {
		path = p
	}
	store, err := storage.New(storage.Config{Path: path})
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(c.Context, store)
}
