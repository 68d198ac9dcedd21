package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/worktimer/internal/app"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/service/versions"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo customers, projects and a bonus rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := app.Load(ctx, cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		a.Log.Info("seeding demo data")
		if err := seed(ctx, a); err != nil {
			return err
		}
		a.Log.Info("seed completed")
		return nil
	},
}

type demoCustomer struct {
	name     string
	wage     float64
	projects []string
}

var demoCustomers = []demoCustomer{
	{name: "Acme Corp", wage: 95, projects: []string{"Portal", "Support"}},
	{name: "Foobar LLC", wage: 120, projects: []string{"Migration"}},
	{name: "Beta Testers", wage: 80, projects: []string{"QA"}},
}

// seed is idempotent: entities that already exist are left alone.
func seed(ctx context.Context, a *app.App) error {
	start := model.NewDate(2024, 1, 1)

	for _, c := range demoCustomers {
		_, err := a.Customers.GetCurrent(ctx, nil, c.name)
		switch {
		case err == nil:
			a.Log.Debug("customer exists", zap.String("customer", c.name))
		case errors.Is(err, model.ErrNotFound):
			if _, err := a.Versions.CreateCustomerVersion(ctx, versions.CustomerInput{
				Name:      c.name,
				Wage:      c.wage,
				StartDate: start,
			}); err != nil {
				return fmt.Errorf("seed customer %q: %w", c.name, err)
			}
		default:
			return err
		}

		for _, p := range c.projects {
			_, err := a.Versions.CreateProjectVersion(ctx, versions.ProjectInput{CustomerName: c.name, Name: p})
			if err != nil && !errors.Is(err, model.ErrConflict) {
				return fmt.Errorf("seed project %q/%q: %w", c.name, p, err)
			}
		}
	}

	rates, err := a.Bonus.List(ctx)
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		if _, err := a.Bonus.SetBonusRate(ctx, start, 0.1); err != nil {
			return fmt.Errorf("seed bonus rate: %w", err)
		}
	}
	return nil
}
