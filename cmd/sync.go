package cmd

import (
	"github.com/jmehdipour/worktimer/internal/command"
	"github.com/jmehdipour/worktimer/internal/service/devsync"
	"github.com/spf13/cobra"
)

var syncMode string

var syncCmd = &cobra.Command{
	Use:   "sync [customer]",
	Short: "Mirror remote work items for one customer, or for all when omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		mode := devsync.Mode(syncMode)
		if len(args) == 1 {
			return runCommand(c, command.SyncCustomer{Customer: args[0], Mode: mode})
		}
		return runCommand(c, command.SyncAll{Mode: mode})
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncMode, "mode", string(devsync.ModeIncremental), "full | incremental")
	addFormatFlag(syncCmd)
}
