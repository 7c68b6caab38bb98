// Package results turns model output into the canonical daily series and
// derives the monthly, annual and indicator views stored for a simulation.
package results

import (
	"math"
	"math/rand/v2"

	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/hydromodel"
)

// Fallback defaults used when the configuration does not say otherwise.
const (
	DefaultDailyPrecipitation = 3.3 // mm/day
	DefaultMeanTemperature    = 18.0
)

// SynthesisInput carries the user supplied climate hints for the fallback series.
type SynthesisInput struct {
	AnnualPrecipitation *float64
	MeanTemperature     *float64
}

// SynthesisInputFor extracts the climate hints from a simulation's configuration.
func SynthesisInputFor(sim *model.Simulation) SynthesisInput {
	return SynthesisInput{
		AnnualPrecipitation: sim.Configuration.Physical.AnnualPrecipitation,
		MeanTemperature:     sim.Configuration.Physical.MeanTemperature,
	}
}

// Synthesize builds a plausible daily series for period.
//
// Every day: precipitation ~ Exp(mean); runoff is 0.32·P[t] + 0.06·P[t−1] +
// 0.02·P[t−2] plus N(0,0.3) noise, floored at zero; temperature follows a ±9 °C
// seasonal cycle with N(0,1.5) noise; evapotranspiration scales with
// temperature and is raised 15% on wet days; infiltration is max(0, P−R−ET).
func Synthesize(period model.Period, in SynthesisInput, rng *rand.Rand) *model.DailySeries {
	meanP := DefaultDailyPrecipitation
	if in.AnnualPrecipitation != nil && *in.AnnualPrecipitation > 0 {
		meanP = *in.AnnualPrecipitation / 365
	}
	meanT := DefaultMeanTemperature
	if in.MeanTemperature != nil {
		meanT = *in.MeanTemperature
	}

	n := period.Len()
	d := &model.DailySeries{
		Dates:              period.Dates(),
		Precipitation:      make([]float64, n),
		Runoff:             make([]float64, n),
		Evapotranspiration: make([]float64, n),
		Infiltration:       make([]float64, n),
		Temperature:        make([]float64, n),
	}
	for i := range n {
		d.Precipitation[i] = rng.ExpFloat64() * meanP
	}
	for i := range n {
		p := d.Precipitation[i]
		runoff := 0.32 * p
		if i >= 1 {
			runoff += 0.06 * d.Precipitation[i-1]
		}
		if i >= 2 {
			runoff += 0.02 * d.Precipitation[i-2]
		}
		runoff = math.Max(0, runoff+rng.NormFloat64()*0.3)

		temp := meanT + 9*hydromodel.DayOfYearCycle(period.Start.AddDays(i)) + rng.NormFloat64()*1.5

		wet := 1.0
		if p > 0 {
			wet = 1.15
		}
		et := math.Max(0, (0.8+0.12*temp)*wet+rng.NormFloat64()*0.3)

		d.Runoff[i] = runoff
		d.Temperature[i] = temp
		d.Evapotranspiration[i] = et
		d.Infiltration[i] = math.Max(0, p-runoff-et)
	}
	return d
}
