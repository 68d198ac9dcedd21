package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmehdipour/worktimer/internal/command"
	"github.com/spf13/cobra"
)

var outputFormat string

func addFormatFlag(c *cobra.Command) {
	c.Flags().StringVar(&outputFormat, "format", "text", "output format: text | csv | json")
}

func printTable(w io.Writer, t *command.Table, format string) error {
	if t == nil {
		fmt.Fprintln(w, "ok")
		return nil
	}
	switch format {
	case "", "text":
		return t.WriteText(w)
	case "csv":
		return t.WriteCSV(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// runCommand loads the app, dispatches cmd on its bus and prints the result.
func runCommand(c *cobra.Command, cmd command.Command) error {
	a, err := loadApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Bus.Dispatch(c.Context(), cmd)
	if err != nil {
		return err
	}
	return printTable(c.OutOrStdout(), out, outputFormat)
}
