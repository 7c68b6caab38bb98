package hydromodel

import (
	"math"
	"math/rand/v2"

	"github.com/target/hydrosim/internal/domain/model"
)

// Weather is the synthetic meteorological forcing shared by every sub-model.
type Weather struct {
	Dates         []model.Date
	Precipitation []float64 // mm/day
	Temperature   []float64 // °C
}

// Len returns the number of days.
func (w Weather) Len() int { return len(w.Dates) }

// NewRand returns the deterministic generator for a seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// DayOfYearCycle returns sin(2π(doy−80)/365), the annual temperature cycle.
func DayOfYearCycle(d model.Date) float64 {
	return math.Sin(2 * math.Pi * float64(d.YearDay()-80) / 365)
}

// GenerateWeather draws daily precipitation and temperature for the period.
// Precipitation is exponential with mean annual/365; temperature follows a
// ±10 °C seasonal cycle with N(0,2) noise.
func GenerateWeather(p Params, rng *rand.Rand) Weather {
	n := p.Period.Len()
	w := Weather{
		Dates:         make([]model.Date, n),
		Precipitation: make([]float64, n),
		Temperature:   make([]float64, n),
	}
	mean := p.Physical.AnnualPrecipitation / 365
	for i := range n {
		d := p.Period.Start.AddDays(i)
		w.Dates[i] = d
		w.Precipitation[i] = rng.ExpFloat64() * mean
		w.Temperature[i] = p.Physical.MeanTemperature + 10*DayOfYearCycle(d) + rng.NormFloat64()*2
	}
	return w
}
