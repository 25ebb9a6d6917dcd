package dashboard

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

const (
	DefaultSalesDelay    = 800 * time.Millisecond
	DefaultActivityDelay = 600 * time.Millisecond

	activityWeeks = 12
	activityDays  = 7
)

var (
	salesLabels   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	salesRevenue  = []float64{45000, 52000, 48000, 61000, 55000, 67000, 72000, 68000, 75000, 82000, 79000, 88000}
	salesExpenses = []float64{32000, 35000, 33000, 41000, 38000, 45000, 48000, 46000, 50000, 54000, 52000, 58000}

	// DayNames indexes weekday names by day index, Sunday first.
	DayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// SalesGenerator serves the fixed yearly sales dataset after Delay.
type SalesGenerator struct {
	Delay time.Duration
}

// NewSalesGenerator returns a generator using DefaultSalesDelay.
func NewSalesGenerator() *SalesGenerator {
	return &SalesGenerator{Delay: DefaultSalesDelay}
}

// Generate returns a fresh copy of the dataset.
func (g *SalesGenerator) Generate(ctx context.Context) (SalesSeries, error) {
	if err := sleepContext(ctx, g.Delay); err != nil {
		return SalesSeries{}, err
	}
	return SalesSeries{
		Labels:   append([]string(nil), salesLabels...),
		Revenue:  append([]float64(nil), salesRevenue...),
		Expenses: append([]float64(nil), salesExpenses...),
	}, nil
}

// SeedSource yields the two PCG seeds for one activity grid.
type SeedSource func() (uint64, uint64)

// ActivityGenerator builds a 12 week by 7 day grid of random intensities.
// Weekend cells are drawn from [0,29], weekdays from [0,99].
type ActivityGenerator struct {
	Delay time.Duration
	Seeds SeedSource
}

// NewActivityGenerator returns a generator seeded from crypto/rand.
func NewActivityGenerator() *ActivityGenerator {
	return &ActivityGenerator{Delay: DefaultActivityDelay, Seeds: CryptoSeeds}
}

// FixedSeeds always returns the same pair, for reproducible grids.
func FixedSeeds(seed1, seed2 uint64) SeedSource {
	return func() (uint64, uint64) { return seed1, seed2 }
}

// CryptoSeeds reads both seeds from crypto/rand.
func CryptoSeeds() (uint64, uint64) {
	var buf [16]byte
	_, _ = crand.Read(buf[:])
	return binary.LittleEndian.Uint64(buf[:8]), binary.LittleEndian.Uint64(buf[8:])
}

// Generate reseeds the PRNG on every call.
func (g *ActivityGenerator) Generate(ctx context.Context) ([]ActivityCell, error) {
	if err := sleepContext(ctx, g.Delay); err != nil {
		return nil, err
	}
	seeds := g.Seeds
	if seeds == nil {
		seeds = CryptoSeeds
	}
	rng := rand.New(rand.NewPCG(seeds()))

	cells := make([]ActivityCell, 0, activityWeeks*activityDays)
	for week := range activityWeeks {
		for day := range activityDays {
			limit := 100
			if isWeekend(day) {
				limit = 30
			}
			cells = append(cells, ActivityCell{
				Week:    week,
				Day:     day,
				DayName: DayNames[day],
				Value:   rng.IntN(limit),
			})
		}
	}
	return cells, nil
}

func isWeekend(day int) bool {
	return day == 0 || day == 6
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
