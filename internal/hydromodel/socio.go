package hydromodel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// errNoDaily is returned by sub-models that need the physical water balance.
var errNoDaily = errors.New("physical water balance is unavailable")

// floodThreshold is the daily precipitation (mm) counted as a flood day.
const floodThreshold = 50.0

// SocioModel tracks population, water demand and collective flood memory per year.
type SocioModel struct{}

// Name implements SubModel.
func (SocioModel) Name() string { return StageSocio }

// Run implements SubModel.
func (SocioModel) Run(ctx context.Context, in Inputs) (Output, error) {
	daily := in.Daily()
	if daily == nil {
		return Output{}, errNoDaily
	}
	s := in.Params.Socio
	area := in.Params.Physical.BasinArea

	memory := s.InitialMemory
	risk := s.InitialRiskPerception
	header := []string{
		"Year", "Population", "Domestic_Demand", "Total_Demand",
		"Water_Availability", "Water_Stress", "Social_Memory", "Risk_Perception",
	}
	var rows [][]string
	for k, span := range splitYears(daily.Dates) {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		days := float64(span.End - span.Start)
		population := s.Population * math.Pow(1+s.PopulationGrowthRate/100, float64(k))
		domestic := population * s.WaterDemandPerCapita / 1000 // m³/day
		total := domestic + s.AgriculturalDemand + s.IndustrialDemand
		// 1 mm over 1 km² is 1000 m³.
		availability := sumRange(daily.Runoff, span.Start, span.End) / days * area * 1000
		stress := 10.0
		if availability > 0 {
			stress = math.Min(10, total/availability)
		}

		floods := 0
		for _, p := range daily.Precipitation[span.Start:span.End] {
			if p > floodThreshold {
				floods++
			}
		}
		memory = clamp(memory*0.8+0.1*float64(floods), 0, 1)
		risk = clamp(risk*0.9+0.1*memory+0.05*math.Min(stress, 1), 0, 1)

		rows = append(rows, []string{
			strconv.Itoa(span.Year),
			formatFloat(population),
			formatFloat(domestic),
			formatFloat(total),
			formatFloat(availability),
			formatFloat(stress),
			formatFloat(memory),
			formatFloat(risk),
		})
	}

	data, err := encodeCSV(header, rows)
	if err != nil {
		return Output{}, fmt.Errorf("encode socio state: %w", err)
	}
	return Output{Name: StageSocio, Files: []File{{Name: SocioFile, Data: data}}}, nil
}
