package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <command> [json-params]",
	Short: "Run any named command with JSON parameters",
	Long:  "Run any named command with JSON parameters. Use \"exec list\" to print the available names.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(c *cobra.Command, args []string) error {
		a, err := loadApp(c)
		if err != nil {
			return err
		}
		defer a.Close()

		if args[0] == "list" {
			fmt.Fprintln(c.OutOrStdout(), strings.Join(a.Bus.Names(), "\n"))
			return nil
		}

		params := "{}"
		if len(args) == 2 {
			params = args[1]
		}
		out, err := a.Bus.Exec(c.Context(), args[0], []byte(params))
		if err != nil {
			return err
		}
		return printTable(c.OutOrStdout(), out, outputFormat)
	},
}

func init() {
	addFormatFlag(execCmd)
}
