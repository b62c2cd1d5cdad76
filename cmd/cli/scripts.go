package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/oarkflow/script/pkg/storage"
)

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "database-path",
		Usage: "SQLite database for saved scripts and history",
	}
}

func scriptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "scripts",
		Usage: "Manage saved scripts",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved scripts",
				Flags:  []cli.Flag{databaseFlag()},
				Action: listScripts,
			},
			{
				Name:      "save",
				Usage:     "Save a script file under a name",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					databaseFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the script file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Short description",
					},
				},
				Action: saveScript,
			},
			{
				Name:      "show",
				Usage:     "Print a saved script",
				ArgsUsage: "<id|name>",
				Flags:     []cli.Flag{databaseFlag()},
				Action:    showScript,
			},
			{
				Name:      "run",
				Usage:     "Execute a saved script",
				ArgsUsage: "<id|name>",
				Flags:     append([]cli.Flag{databaseFlag()}, runFlags()...),
				Action:    runSavedScript,
			},
			{
				Name:      "delete",
				Usage:     "Delete a saved script",
				ArgsUsage: "<id|name>",
				Flags:     []cli.Flag{databaseFlag()},
				Action:    deleteScript,
			},
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent runs",
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Number of runs to show",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Delete the whole history",
			},
		},
		Action: showHistory,
	}
}

func requireArg(c *cli.Context, what string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", cli.Exit(fmt.Sprintf("missing %s", what), 2)
	}
	return arg, nil
}

func listScripts(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, store *storage.Store) error {
		scripts, err := store.ListScripts(ctx)
		if err != nil {
			return err
		}
		if len(scripts) == 0 {
			fmt.Println("No saved scripts")
			return nil
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Name", "Description", "Updated"})
		for _, s := range scripts {
			table.Append([]string{s.ID, s.Name, s.Description, s.UpdatedAt.Local().Format(time.DateTime)})
		}
		table.Render()
		return nil
	})
}

func saveScript(c *cli.Context) error {
	name, err := requireArg(c, "script name")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, store *storage.Store) error {
		rec, err := store.SaveScript(ctx, name, c.String("description"), string(data))
		if err != nil {
			return err
		}
		infoColor.Printf("Saved %s (%s)\n", rec.Name, rec.ID)
		return nil
	})
}

func showScript(c *cli.Context) error {
	ref, err := requireArg(c, "script id or name")
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, store *storage.Store) error {
		rec, err := store.GetScript(ctx, ref)
		if err != nil {
			return err
		}
		infoColor.Printf("# %s", rec.Name)
		if rec.Description != "" {
			infoColor.Printf(": %s", rec.Description)
		}
		fmt.Println()
		fmt.Println(rec.Source)
		return nil
	})
}

func runSavedScript(c *cli.Context) error {
	ref, err := requireArg(c, "script id or name")
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, store *storage.Store) error {
		rec, err := store.GetScript(ctx, ref)
		if err != nil {
			return err
		}
		res, err := runSource(c, rec.Source, rec.ID)
		if err != nil {
			return err
		}
		if _, err := store.RecordRun(ctx, res.Record(rec.Source, rec.ID)); err != nil {
			warnColor.Fprintf(os.Stderr, "history: %v\n", err)
		}
		return report(res)
	})
}

func deleteScript(c *cli.Context) error {
	ref, err := requireArg(c, "script id or name")
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, store *storage.Store) error {
		rec, err := store.GetScript(ctx, ref)
		if err != nil {
			return err
		}
		if err := store.DeleteScript(ctx, rec.ID); err != nil {
			return err
		}
		infoColor.Printf("Deleted %s\n", rec.Name)
		return nil
	})
}

func showHistory(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, store *storage.Store) error {
		if c.Bool("clear") {
			if err := store.ClearRuns(ctx); err != nil {
				return err
			}
			fmt.Println("History cleared")
			return nil
		}
		runs, err := store.ListRuns(ctx, c.Int("limit"))
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"When", "Script", "Status", "Duration", "Source"})
		for _, run := range runs {
			status := "ok"
			if !run.Success {
				status = "failed"
			}
			table.Append([]string{
				run.CreatedAt.Local().Format(time.DateTime),
				run.ScriptName,
				status,
				strconv.FormatFloat(run.DurationMs, 'f', 2, 64) + "ms",
				summarize(run.Source, 40),
			})
		}
		table.Render()
		return nil
	})
}

// summarize flattens src to one line of at most n runes.
func summarize(src string, n int) string {
	line := strings.Join(strings.Fields(src), " ")
	runes := []rune(line)
	if len(runes) <= n {
		return line
	}
	return string(runes[:n-3]) + "..."
}
