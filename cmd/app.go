package cmd

import (
	"github.com/jmehdipour/worktimer/internal/app"
	"github.com/spf13/cobra"
)

func loadApp(c *cobra.Command) (*app.App, error) {
	return app.Load(c.Context(), cfgPath)
}
