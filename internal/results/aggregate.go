package results

import (
	"fmt"
	"math"

	"github.com/target/hydrosim/internal/domain/model"
)

const (
	// BucketDays is the width of a "month" bucket.
	BucketDays = 30
	// MaxBuckets is the number of buckets reported for runs of 360 days or more.
	MaxBuckets = 12
	// DroughtThreshold is the daily precipitation (mm) below which a day is dry.
	DroughtThreshold = 0.1
	// FloodThreshold is the daily precipitation (mm) above which a day is a flood day.
	FloodThreshold = 50.0
)

// Aggregates are the derived views of a daily series.
type Aggregates struct {
	Monthly model.MonthlySeries
	Annual  model.AnnualSummary
}

// Aggregate computes the monthly and annual views of d.
func Aggregate(d *model.DailySeries) Aggregates {
	return Aggregates{Monthly: Monthly(d), Annual: Annual(d)}
}

// at returns xs[i], or 0 for variables the series does not carry.
func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

// bucketBounds splits n days into fixed 30-day buckets. Past 360 days the
// remainder is folded into the twelfth bucket so bucket sums always add up
// to the series totals.
func bucketBounds(n int) [][2]int {
	if n <= 0 {
		return nil
	}
	count := (n + BucketDays - 1) / BucketDays
	if count > MaxBuckets {
		count = MaxBuckets
	}
	bounds := make([][2]int, count)
	for k := range count {
		start := k * BucketDays
		end := min(start+BucketDays, n)
		if k == count-1 {
			end = n
		}
		bounds[k] = [2]int{start, end}
	}
	return bounds
}

// Monthly aggregates d into 30-day buckets labelled "Month 01", "Month 02", ...
func Monthly(d *model.DailySeries) model.MonthlySeries {
	bounds := bucketBounds(d.Len())
	m := model.MonthlySeries{
		Months:                  make([]string, len(bounds)),
		TotalPrecipitation:      make([]float64, len(bounds)),
		TotalEvapotranspiration: make([]float64, len(bounds)),
		TotalRunoff:             make([]float64, len(bounds)),
		TotalInfiltration:       make([]float64, len(bounds)),
		MeanTemperature:         make([]float64, len(bounds)),
	}
	for k, b := range bounds {
		m.Months[k] = fmt.Sprintf("Month %02d", k+1)
		var tempSum float64
		var tempDays int
		for i := b[0]; i < b[1]; i++ {
			m.TotalPrecipitation[k] += at(d.Precipitation, i)
			m.TotalEvapotranspiration[k] += at(d.Evapotranspiration, i)
			m.TotalRunoff[k] += at(d.Runoff, i)
			m.TotalInfiltration[k] += at(d.Infiltration, i)
			if i < len(d.Temperature) {
				tempSum += d.Temperature[i]
				tempDays++
			}
		}
		if tempDays > 0 {
			m.MeanTemperature[k] = tempSum / float64(tempDays)
		}
	}
	return m
}

// Annual computes whole-series totals and diagnostics.
func Annual(d *model.DailySeries) model.AnnualSummary {
	var a model.AnnualSummary
	n := d.Len()
	var tempSum float64
	var tempDays int
	for i := range n {
		p := at(d.Precipitation, i)
		r := at(d.Runoff, i)
		a.TotalPrecipitation += p
		a.TotalEvapotranspiration += at(d.Evapotranspiration, i)
		a.TotalRunoff += r
		a.TotalInfiltration += at(d.Infiltration, i)
		if i < len(d.Temperature) {
			tempSum += d.Temperature[i]
			tempDays++
		}
		if i < len(d.Precipitation) {
			a.MaxDailyPrecipitation = math.Max(a.MaxDailyPrecipitation, p)
			if p < DroughtThreshold {
				a.DroughtDays++
			}
			if p > FloodThreshold {
				a.FloodDays++
			}
		}
		if i < len(d.Runoff) {
			a.MaxDailyRunoff = math.Max(a.MaxDailyRunoff, r)
		}
	}
	if tempDays > 0 {
		a.MeanTemperature = tempSum / float64(tempDays)
	}
	a.WaterBalanceError = WaterBalanceError(
		a.TotalPrecipitation, a.TotalEvapotranspiration, a.TotalRunoff, a.TotalInfiltration)
	if a.TotalPrecipitation > 0 {
		a.RunoffCoefficient = a.TotalRunoff / a.TotalPrecipitation
	}
	a.WaterBalance = model.WaterBalance{
		InputPrecipitation:       a.TotalPrecipitation,
		OutputEvapotranspiration: a.TotalEvapotranspiration,
		OutputRunoff:             a.TotalRunoff,
		OutputInfiltration:       a.TotalInfiltration,
		BalanceError:             a.WaterBalanceError,
	}
	return a
}

// WaterBalanceError returns |P − ET − R − I| / P × 100, or 0 when P is 0.
func WaterBalanceError(p, et, r, i float64) float64 {
	if p <= 0 {
		return 0
	}
	return math.Abs(p-et-r-i) / p * 100
}
