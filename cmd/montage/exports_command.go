package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"montage/internal/registry"
)

type exportView struct {
	JobID           string  `json:"job_id"`
	Project         string  `json:"project"`
	Status          string  `json:"status"`
	Engine          string  `json:"engine"`
	Format          string  `json:"format"`
	Resolution      string  `json:"resolution"`
	OutputPath      string  `json:"output_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	FileSizeBytes   int64   `json:"file_size_bytes"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	FinishedAt      string  `json:"finished_at"`
	Error           string  `json:"error,omitempty"`
}

func newExportsCommand(ctx *commandContext) *cobra.Command {
	exportsCmd := &cobra.Command{
		Use:   "exports",
		Short: "Inspect past exports",
	}
	exportsCmd.AddCommand(newExportsListCommand(ctx))
	return exportsCmd
}

func newExportsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded exports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]registry.Status, 0, len(statusFlags))
			for _, raw := range statusFlags {
				status, ok := registry.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (want done, failed, cancelled)", raw)
				}
				statuses = append(statuses, status)
			}

			store, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit, statuses...)
			if err != nil {
				return fmt.Errorf("list exports: %w", err)
			}
			views := make([]exportView, 0, len(records))
			for _, rec := range records {
				views = append(views, newExportView(rec))
			}
			if asJSON {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No exports recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Project", "Status", "Engine", "Format", "Length", "Size", "Finished"},
				buildExportRows(views),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of exports to show (0 for all)")
	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (done, failed, cancelled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newExportView(rec registry.Record) exportView {
	return exportView{
		JobID:           rec.JobID,
		Project:         rec.Project,
		Status:          string(rec.Status),
		Engine:          rec.Engine,
		Format:          rec.Format,
		Resolution:      rec.Resolution,
		OutputPath:      rec.OutputPath,
		DurationSeconds: rec.DurationSeconds,
		FileSizeBytes:   rec.FileSizeBytes,
		ElapsedSeconds:  rec.Elapsed().Seconds(),
		FinishedAt:      rec.FinishedAt.UTC().Format(time.RFC3339),
		Error:           rec.ErrorMessage,
	}
}

func buildExportRows(views []exportView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		length, size := "-", "-"
		if v.Status == string(registry.StatusDone) {
			length = formatSeconds(v.DurationSeconds)
			size = humanBytes(v.FileSizeBytes)
		}
		rows = append(rows, []string{
			shortID(v.JobID),
			v.Project,
			formatStatusLabel(v.Status),
			v.Engine,
			v.Format,
			length,
			size,
			formatDisplayTime(v.FinishedAt),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return strings.ToUpper(status[:1]) + strings.ToLower(status[1:])
}

func formatDisplayTime(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.Local().Format("2006-01-02 15:04")
}
