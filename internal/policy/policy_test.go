package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequiredLevelBoundaries(t *testing.T) {
	cases := []struct {
		amount int64
		want   Level
	}{
		{1, LevelDepartmentHead},
		{499_999, LevelDepartmentHead},
		{500_000, LevelDepartmentHead},
		{500_001, LevelUnitManager},
		{1_500_000, LevelUnitManager},
		{1_500_001, LevelFinanceManager},
		{5_000_000, LevelFinanceManager},
		{5_000_001, LevelCEO},
		{100_000_000, LevelCEO},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, RequiredLevel(tc.amount), "amount %d", tc.amount)
	}
}

func TestRequiredLevelMonotonic(t *testing.T) {
	prev := RequiredLevel(1)
	for amount := int64(1); amount <= 6_000_000; amount += 1_000 {
		level := RequiredLevel(amount)
		require.GreaterOrEqual(t, level, prev, "amount %d", amount)
		prev = level
	}
}

func TestLevelTitles(t *testing.T) {
	require.Equal(t, "Department Head", LevelDepartmentHead.Title())
	require.Equal(t, "Unit Manager", LevelUnitManager.Title())
	require.Equal(t, "Finance Manager", LevelFinanceManager.Title())
	require.Equal(t, "CEO Approval", LevelCEO.Title())
	require.Equal(t, "Unknown", Level(9).Title())
}

func TestAuthorises(t *testing.T) {
	require.True(t, LevelUnitManager.Authorises(LevelDepartmentHead))
	require.True(t, LevelUnitManager.Authorises(LevelUnitManager))
	require.False(t, LevelDepartmentHead.Authorises(LevelUnitManager))
	require.True(t, LevelCEO.Authorises(LevelFinanceManager))
}
