package bonus_test

import (
	"context"
	"testing"

	"github.com/jmehdipour/worktimer/internal/db/dbtest"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmehdipour/worktimer/internal/service/bonus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *bonus.Service {
	dbx := dbtest.Open(t)
	return bonus.New(dbx, repository.NewBonusRepository(dbx), zap.NewNop())
}

func TestSetBonusRate_Timeline(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.RateAt(ctx, model.NewDate(2024, 1, 1))
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.SetBonusRate(ctx, model.NewDate(2024, 1, 1), 0.10)
	require.NoError(t, err)
	_, err = svc.SetBonusRate(ctx, model.NewDate(2024, 6, 1), 0.15)
	require.NoError(t, err)

	rates, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	require.NotNil(t, rates[0].EndDate)
	assert.Equal(t, "2024-05-31", rates[0].EndDate.String())
	assert.Nil(t, rates[1].EndDate)

	cases := []struct {
		day  model.Date
		want float64
	}{
		{model.NewDate(2024, 1, 1), 0.10},
		{model.NewDate(2024, 5, 31), 0.10},
		{model.NewDate(2024, 6, 1), 0.15},
		{model.NewDate(2030, 1, 1), 0.15},
	}
	for _, tc := range cases {
		got, err := svc.RateAt(ctx, tc.day)
		require.NoError(t, err, tc.day.String())
		assert.Equal(t, tc.want, got, tc.day.String())
	}

	_, err = svc.RateAt(ctx, model.NewDate(2023, 12, 31))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetBonusRate_StartMustAdvance(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.SetBonusRate(ctx, model.NewDate(2024, 6, 1), 0.1)
	require.NoError(t, err)

	_, err = svc.SetBonusRate(ctx, model.NewDate(2024, 6, 1), 0.2)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.SetBonusRate(ctx, model.NewDate(2024, 1, 1), 0.2)
	assert.ErrorIs(t, err, model.ErrValidation)

	rates, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rates, 1, "rejected changes leave the timeline untouched")
}

func TestSetBonusRate_Clamps(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.SetBonusRate(ctx, model.NewDate(2024, 1, 1), 1.7)
	require.NoError(t, err)
	got, err := svc.RateAt(ctx, model.NewDate(2024, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	_, err = svc.SetBonusRate(ctx, model.NewDate(2024, 2, 1), -0.3)
	require.NoError(t, err)
	got, err = svc.RateAt(ctx, model.NewDate(2024, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}
