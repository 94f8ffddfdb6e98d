package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"montage/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, disk space, and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			color := isTerminal(out)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, doctorStatus(r, color), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}
}

func doctorStatus(r preflight.Result, color bool) string {
	switch {
	case r.Passed:
		return colorize("OK", ansiGreen, color)
	case r.Optional:
		return colorize("WARN", ansiYellow, color)
	default:
		return colorize("FAIL", ansiRed, color)
	}
}
