package cmd

import (
	"github.com/jmehdipour/worktimer/internal/command"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/spf13/cobra"
)

var (
	reportPeriod string
	reportFrom   string
	reportTo     string
	reportTotals bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Per-project hours, cost and bonus for a period",
	RunE: func(c *cobra.Command, args []string) error {
		cmd := command.CustomerReport{Period: reportPeriod, Totals: reportTotals}
		if reportFrom != "" || reportTo != "" {
			var v model.Validator
			from, errFrom := model.ParseDate(reportFrom)
			v.Check(errFrom == nil, "from", "must be a date (YYYY-MM-DD)")
			to, errTo := model.ParseDate(reportTo)
			v.Check(errTo == nil, "to", "must be a date (YYYY-MM-DD)")
			if err := v.Err(); err != nil {
				return err
			}
			cmd.From, cmd.To = &from, &to
		}
		return runCommand(c, cmd)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportPeriod, "period", "week", "week | month (ignored when --from/--to are set)")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "first day, YYYY-MM-DD")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "last day, YYYY-MM-DD")
	reportCmd.Flags().BoolVar(&reportTotals, "totals", false, "print per-customer totals instead of project rows")
	addFormatFlag(reportCmd)
}
