package cmd

import (
	"github.com/jmehdipour/worktimer/internal/command"
	"github.com/spf13/cobra"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Start, stop or abort a timer",
}

var (
	timerCustomer string
	timerProject  string
	timerRef      int64
	timerComment  string
)

var timerToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Start the timer of a customer/project pair, or stop it when running",
	RunE: func(c *cobra.Command, args []string) error {
		cmd := command.ToggleTimer{Customer: timerCustomer, Project: timerProject}
		if c.Flags().Changed("ref") {
			cmd.ExternalRef = &timerRef
		}
		if c.Flags().Changed("comment") {
			cmd.Comment = &timerComment
		}
		return runCommand(c, cmd)
	},
}

var timerAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Discard the running timer of a pair",
	RunE: func(c *cobra.Command, args []string) error {
		return runCommand(c, command.AbortTimer{Customer: timerCustomer, Project: timerProject})
	},
}

var timerRunningCmd = &cobra.Command{
	Use:   "running",
	Short: "List running timers",
	RunE: func(c *cobra.Command, args []string) error {
		return runCommand(c, command.RunningEntries{})
	},
}

func init() {
	for _, c := range []*cobra.Command{timerToggleCmd, timerAbortCmd} {
		c.Flags().StringVar(&timerCustomer, "customer", "", "customer name")
		c.Flags().StringVar(&timerProject, "project", "", "project name")
		_ = c.MarkFlagRequired("customer")
		_ = c.MarkFlagRequired("project")
	}
	timerToggleCmd.Flags().Int64Var(&timerRef, "ref", 0, "work item id")
	timerToggleCmd.Flags().StringVar(&timerComment, "comment", "", "comment stored on stop")

	for _, c := range []*cobra.Command{timerToggleCmd, timerAbortCmd, timerRunningCmd} {
		addFormatFlag(c)
		timerCmd.AddCommand(c)
	}
}
