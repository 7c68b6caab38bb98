package hydromodel

import (
	"context"
	"math"
)

// PhysicalModel is a daily single-bucket soil water balance.
//
// Impervious (urban) area turns rain directly into runoff; the pervious part
// fills a soil store of depth×porosity, spills saturation excess, loses
// evapotranspiration limited by soil moisture and drains to deep infiltration.
type PhysicalModel struct{}

// Name implements SubModel.
func (PhysicalModel) Name() string { return StagePhysical }

// Run implements SubModel.
func (PhysicalModel) Run(ctx context.Context, in Inputs) (Output, error) {
	p := in.Params.Physical
	w := in.Weather
	n := w.Len()
	d := &DailyState{
		Dates:              w.Dates,
		Precipitation:      w.Precipitation,
		Temperature:        w.Temperature,
		Evapotranspiration: make([]float64, n),
		Runoff:             make([]float64, n),
		Infiltration:       make([]float64, n),
		SoilMoisture:       make([]float64, n),
	}

	capacity := p.SoilDepth * p.Porosity * 1000 // mm
	impervious := p.UrbanPercent / 100
	forest := p.ForestPercent / 100
	baseCoeff := clamp(0.3+p.MeanSlope/100*0.5-forest*0.2, 0.05, 0.9)
	drainage := 10 * p.HydraulicConductivity // mm/day at saturation
	storage := capacity / 2

	for i := range n {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return Output{}, err
			}
		}
		rain := w.Precipitation[i]
		direct := rain * impervious * 0.85
		pervious := rain - direct

		sat := storage / capacity
		surface := pervious * baseCoeff * sat * sat
		storage += pervious - surface
		if storage > capacity {
			surface += storage - capacity
			storage = capacity
		}

		pet := math.Max(0, 0.6+0.17*w.Temperature[i]) * (1 + 0.3*forest)
		et := math.Min(pet*clamp(storage/capacity, 0.2, 1), storage)
		storage -= et

		perc := math.Min(storage, drainage*math.Pow(storage/capacity, 3))
		storage -= perc

		d.Runoff[i] = direct + surface
		d.Evapotranspiration[i] = et
		d.Infiltration[i] = perc
		d.SoilMoisture[i] = storage / capacity
	}

	data, err := EncodeDaily(d)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: StagePhysical, Daily: d, Files: []File{{Name: DailyFile, Data: data}}}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
