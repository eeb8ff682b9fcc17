package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/property-cli/internal/history"
	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/internal/report"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved analyses",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent queries, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, historyCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		refresh, _ := cmd.Flags().GetBool("refresh")
		entries, err := listHistory(ctx, env.History, refresh)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd.OutOrStdout(), format, entries, func(w io.Writer) error {
			return printHistory(w, entries, time.Now())
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the saved analysis for a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, historyCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		rec, err := env.History.Detail(ctx, args[0])
		if err != nil {
			return detailError(err)
		}
		format, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd.OutOrStdout(), format, rec, func(w io.Writer) error {
			_, err := io.WriteString(w, report.FormatSummary(*rec, nil))
			return err
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a query and its analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, historyCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		if err := env.History.Delete(ctx, args[0]); err != nil {
			return eris.New(propertyapi.Message(err, "could not delete entry"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export saved analyses as PDF reports",
	Args: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all && len(args) > 0 {
			return eris.New("pass an id or --all, not both")
		}
		if !all && len(args) != 1 {
			return eris.New("an id is required unless --all is set")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("report"); err != nil {
			return err
		}
		env, err := initApp(ctx, historyCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if all, _ := cmd.Flags().GetBool("all"); all {
			results, err := env.History.ExportAll(ctx, env.Exporter, cfg.History.ExportConcurrency)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "%s: %s\n", r.ID, propertyapi.Message(r.Err, r.Err.Error()))
					continue
				}
				fmt.Fprintf(out, "%s: %s (%s)\n", r.ID, r.Path, fileSize(r.Path))
			}
			if failed > 0 {
				return eris.Errorf("%d of %d exports failed", failed, len(results))
			}
			return nil
		}

		if _, err := env.History.List(ctx); err != nil {
			return eris.New(propertyapi.Message(err, "could not load history"))
		}
		path, err := env.History.Export(ctx, args[0], env.Exporter)
		if err != nil {
			return detailError(err)
		}
		fmt.Fprintf(out, "Report saved to %s (%s)\n", path, fileSize(path))
		return nil
	},
}

// listHistory returns the entries, bypassing the list cache when refresh
// is set.
func listHistory(ctx context.Context, h *history.Service, refresh bool) ([]model.HistoryEntry, error) {
	list := h.List
	if refresh {
		list = h.Refresh
	}
	entries, err := list(ctx)
	if err != nil {
		return nil, eris.New(propertyapi.Message(err, "could not load history"))
	}
	return entries, nil
}

func printHistory(w io.Writer, entries []model.HistoryEntry, now time.Time) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No queries yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tCITY\tQUERY")
	for _, e := range entries {
		when := "-"
		if !e.CreatedAt.IsZero() {
			when = humanize.RelTime(e.CreatedAt.Time, now, "ago", "from now")
		}
		city := e.City
		if city == "" {
			city = "-"
		}
		query := e.QueryText
		if !e.HasResponse {
			query += " (no analysis)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, when, city, truncate(query, 60))
	}
	return tw.Flush()
}

func detailError(err error) error {
	switch {
	case errors.Is(err, history.ErrDeleted):
		return eris.New("that entry was deleted")
	case propertyapi.IsNotFound(err):
		return eris.New("analysis not found")
	}
	return eris.New(propertyapi.Message(err, "could not load analysis"))
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "size unknown"
	}
	return humanize.Bytes(uint64(fi.Size()))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	historyListCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	historyListCmd.Flags().Bool("refresh", false, "refetch the list even if a cached copy is current")
	historyShowCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	historyExportCmd.Flags().Bool("all", false, "export every listed entry")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
