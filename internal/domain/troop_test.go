package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyStats(t *testing.T) {
	tr := &Troop{GoalAmount: 1000}
	tr.ApplyStats(TroopSalesTotals{TotalScouts: 3, ActiveScouts: 2, CardsSold: 7, TotalSalesCents: 20993})

	require.Equal(t, 3, tr.TotalScouts)
	require.Equal(t, 2, tr.ActiveScouts)
	require.Equal(t, 7, tr.CardsSold)
	require.InDelta(t, 209.93, tr.TotalSales, 1e-9)
	require.InDelta(t, 20.99, tr.GoalProgress, 1e-9)
	require.InDelta(t, 69.98, tr.AverageSalesPerScout, 1e-9)
}

func TestApplyStats_ZeroDenominators(t *testing.T) {
	tr := &Troop{GoalProgress: 55, AverageSalesPerScout: 12}
	tr.ApplyStats(TroopSalesTotals{TotalSalesCents: 5000})

	require.Equal(t, 50.0, tr.TotalSales)
	require.Zero(t, tr.GoalProgress)
	require.Zero(t, tr.AverageSalesPerScout)
}

func TestRecomputeRatiosAfterGoalChange(t *testing.T) {
	tr := &Troop{TotalSales: 300, TotalScouts: 4, GoalAmount: 600}
	tr.RecomputeRatios()
	require.Equal(t, 50.0, tr.GoalProgress)
	require.Equal(t, 75.0, tr.AverageSalesPerScout)

	tr.GoalAmount = 0
	tr.RecomputeRatios()
	require.Zero(t, tr.GoalProgress)
}
