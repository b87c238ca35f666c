package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
	"kakeibo/internal/services"
)

func newReportCommand() *cobra.Command {
	var focus string

	cmd := &cobra.Command{
		Use:   "report [year month]",
		Short: "Print a monthly summary (defaults to the current month)",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args, focus)
		},
	}

	cmd.Flags().StringVar(&focus, "focus", string(core.Expense), "category breakdown side: income or expense")

	return cmd
}

func runReport(cmd *cobra.Command, args []string, focus string) error {
	flowType := core.FlowType(focus)
	if !flowType.Valid() {
		return core.ErrInvalidFlowType
	}
	if len(args) == 1 {
		return fmt.Errorf("expected both year and month, got only %q", args[0])
	}

	_, _, repo, err := setup()
	if err != nil {
		return err
	}
	defer repo.Close()

	reports := services.NewReportService(repo, repo)

	var rep report.Report
	year, month := 0, 0
	if len(args) == 2 {
		year, err = strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[0])
		}
		month, err = strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid month %q", args[1])
		}
		rep, err = reports.Monthly(cmd.Context(), year, month, flowType)
	} else {
		now := time.Now().UTC()
		year, month = now.Year(), int(now.Month())
		rep, err = reports.CurrentMonth(cmd.Context(), now, flowType)
	}
	if err != nil {
		return err
	}

	cmd.Printf("%04d-%02d\n", year, month)
	cmd.Printf("  income:  %s\n", rep.TotalIncome.StringFixed(2))
	cmd.Printf("  expense: %s\n", rep.TotalExpense.StringFixed(2))
	cmd.Printf("  net:     %s\n", rep.Net.StringFixed(2))
	if len(rep.ByCategory) > 0 {
		cmd.Printf("  by %s category:\n", flowType)
		for _, line := range rep.ByCategory {
			cmd.Printf("    %-12s %10s  %3d txns  %s%%\n",
				line.CategoryName, line.Total.StringFixed(2), line.Count, line.Percentage.StringFixed(1))
		}
	}
	return nil
}
