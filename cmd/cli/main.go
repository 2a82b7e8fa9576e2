// Command tk is a command-line client for the timekeeper API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	"github.com/and161185/timekeeper/internal/client"
	"github.com/and161185/timekeeper/internal/model"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type app struct {
	api     string
	token   string
	asJSON  bool
	timeout time.Duration
	out     io.Writer
}

func (a *app) client() (*client.Client, error) {
	tok, err := resolveToken(a.token)
	if err != nil {
		return nil, err
	}
	return client.New(a.api, tok, client.WithTimeout(a.timeout), client.WithRetries(2, 200*time.Millisecond)), nil
}

func (a *app) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func parseUUIDArg(name, s string) (uuid.UUID, error) {
	id, err := uuid.FromString(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: not a UUID: %q", name, s)
	}
	return id, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	defAPI := os.Getenv("TIMEKEEPER_API")
	if defAPI == "" {
		defAPI = "http://localhost:8080"
	}

	root := &cobra.Command{
		Use:           "tk",
		Short:         "Track time against tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&a.api, "api", "a", defAPI, "timekeeper base URL")
	root.PersistentFlags().StringVar(&a.token, "token", "", "bearer token (default: TIMEKEEPER_TOKEN or saved token)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print JSON instead of a table")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(a.out, "tk %s (%s)\n", version, buildDate)
			},
		},
		loginCmd(a),
		startCmd(a),
		stopCmd(a),
		updateCmd(a),
		listCmd(a),
		activeCmd(a),
		deleteCmd(a),
		healthCmd(a),
	)
	return root
}

func loginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login TOKEN",
		Short: "Save a bearer token for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := saveToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "token saved, expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func startCmd(a *app) *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:   "start TASK_ID",
		Short: "Start tracking a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := parseUUIDArg("task_id", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			var d *string
			if cmd.Flags().Changed("description") {
				d = &desc
			}
			e, err := c.Start(ctx, task, d)
			if err != nil {
				return err
			}
			return printEntry(a.out, a.asJSON, e)
		},
	}
	cmd.Flags().StringVarP(&desc, "description", "d", "", "what you are working on")
	return cmd
}

func stopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [ENTRY_ID]",
		Short: "Stop an entry (the active one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			var id uuid.UUID
			if len(args) == 1 {
				if id, err = parseUUIDArg("entry_id", args[0]); err != nil {
					return err
				}
			} else {
				active, err := c.Active(ctx)
				if err != nil {
					return err
				}
				if active == nil {
					return errors.New("nothing is running")
				}
				id = active.ID
			}
			e, err := c.Stop(ctx, id)
			if err != nil {
				return err
			}
			return printEntry(a.out, a.asJSON, e)
		},
	}
}

func updateCmd(a *app) *cobra.Command {
	var (
		desc string
		end  string
	)
	cmd := &cobra.Command{
		Use:   "update ENTRY_ID",
		Short: "Change description or end time of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUIDArg("entry_id", args[0])
			if err != nil {
				return err
			}
			var patch model.EntryPatch
			if cmd.Flags().Changed("description") {
				patch.Description = &desc
			}
			if end != "" {
				t, err := time.Parse(time.RFC3339, end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				patch.EndTime = &t
			}
			if patch.Empty() {
				return errors.New("nothing to update: pass --description and/or --end")
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			e, err := c.Update(ctx, id, patch)
			if err != nil {
				return err
			}
			return printEntry(a.out, a.asJSON, e)
		},
	}
	cmd.Flags().StringVarP(&desc, "description", "d", "", "new description")
	cmd.Flags().StringVar(&end, "end", "", "end time, RFC 3339")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	var task string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			var entries []model.TimeEntry
			if task != "" {
				id, err := parseUUIDArg("task", task)
				if err != nil {
					return err
				}
				entries, err = c.ListByTask(ctx, id)
				if err != nil {
					return err
				}
			} else if entries, err = c.List(ctx); err != nil {
				return err
			}
			return printList(a.out, a.asJSON, entries)
		},
	}
	cmd.Flags().StringVarP(&task, "task", "t", "", "only entries of this task")
	return cmd
}

func activeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show the running entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			e, err := c.Active(ctx)
			if err != nil {
				return err
			}
			if e == nil {
				fmt.Fprintln(a.out, "nothing is running")
				return nil
			}
			return printEntry(a.out, a.asJSON, *e)
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ENTRY_ID",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUIDArg("entry_id", args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if err := c.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", id)
			return nil
		},
	}
}

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			// health needs no token
			if err := client.New(a.api, "", client.WithTimeout(a.timeout)).Health(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tk:", err)
		os.Exit(1)
	}
}
