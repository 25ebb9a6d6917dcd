package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesGeneratorReturnsFixedDataset(t *testing.T) {
	gen := &SalesGenerator{}
	series, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}, series.Labels)
	assert.Equal(t, []float64{45000, 52000, 48000, 61000, 55000, 67000, 72000, 68000, 75000, 82000, 79000, 88000}, series.Revenue)
	assert.Len(t, series.Expenses, len(series.Revenue))

	// callers get copies
	series.Revenue[0] = 1
	again, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(45000), again.Revenue[0])
}

func TestSalesGeneratorHonoursCancellation(t *testing.T) {
	gen := &SalesGenerator{Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActivityGeneratorGridShape(t *testing.T) {
	gen := &ActivityGenerator{}
	cells, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, cells, 84)

	names := map[string]bool{}
	for _, name := range DayNames {
		names[name] = true
	}
	for i, cell := range cells {
		assert.Equal(t, i/7, cell.Week)
		assert.Equal(t, i%7, cell.Day)
		assert.True(t, names[cell.DayName], cell.DayName)
		assert.Equal(t, DayNames[cell.Day], cell.DayName)
		assert.GreaterOrEqual(t, cell.Value, 0)
		assert.LessOrEqual(t, cell.Value, 99)
		if cell.DayName == "Sun" || cell.DayName == "Sat" {
			assert.LessOrEqual(t, cell.Value, 29)
		}
	}
}

func TestActivityGeneratorFixedSeedsAreReproducible(t *testing.T) {
	gen := &ActivityGenerator{Seeds: FixedSeeds(7, 11)}
	first, err := gen.Generate(context.Background())
	require.NoError(t, err)
	second, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other := &ActivityGenerator{Seeds: FixedSeeds(8, 11)}
	third, err := other.Generate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestActivityGeneratorWeekendBoundHoldsAcrossSeeds(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		gen := &ActivityGenerator{Seeds: FixedSeeds(seed, seed*31+1)}
		cells, err := gen.Generate(context.Background())
		require.NoError(t, err)
		for _, cell := range cells {
			if isWeekend(cell.Day) {
				require.Less(t, cell.Value, 30)
			} else {
				require.Less(t, cell.Value, 100)
			}
		}
	}
}
