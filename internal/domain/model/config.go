package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	apperrors "github.com/target/hydrosim/internal/errors"
)

// SimulationConfig is the user supplied model configuration. Every field is
// optional; missing values are resolved from the model defaults table.
type SimulationConfig struct {
	Physical PhysicalConfig `json:"physical"`
	Socio    SocioConfig    `json:"socio"`
	Aquifer  *AquiferConfig `json:"aquifer,omitempty"`
}

// PhysicalConfig describes the basin.
type PhysicalConfig struct {
	BasinArea             *float64 `json:"basin_area,omitempty"`
	MeanElevation         *float64 `json:"mean_elevation,omitempty"`
	MeanSlope             *float64 `json:"mean_slope,omitempty"`
	SoilDepth             *float64 `json:"soil_depth,omitempty"`
	Porosity              *float64 `json:"porosity,omitempty"`
	HydraulicConductivity *float64 `json:"hydraulic_conductivity,omitempty"`
	ForestPercent         *float64 `json:"forest_percent,omitempty"`
	AgriculturalPercent   *float64 `json:"agricultural_percent,omitempty"`
	UrbanPercent          *float64 `json:"urban_percent,omitempty"`
	WaterPercent          *float64 `json:"water_percent,omitempty"`
	AnnualPrecipitation   *float64 `json:"annual_precipitation,omitempty"`
	MeanTemperature       *float64 `json:"mean_temperature,omitempty"`
}

// SocioConfig describes the population and governance of the basin.
type SocioConfig struct {
	Population            *float64 `json:"population,omitempty"`
	PopulationGrowthRate  *float64 `json:"population_growth_rate,omitempty"`
	WaterDemandPerCapita  *float64 `json:"water_demand_per_capita,omitempty"`
	GDPPerCapita          *float64 `json:"gdp_per_capita,omitempty"`
	AgriculturalDemand    *float64 `json:"agricultural_demand,omitempty"`
	IndustrialDemand      *float64 `json:"industrial_demand,omitempty"`
	GovernanceIndex       *float64 `json:"governance_index,omitempty"`
	WaterPrice            *float64 `json:"water_price,omitempty"`
	InitialRiskPerception *float64 `json:"initial_risk_perception,omitempty"`
	InitialMemory         *float64 `json:"initial_memory,omitempty"`
}

// AquiferConfig enables the managed aquifer recharge sub-model.
type AquiferConfig struct {
	IncludeAquifer  bool     `json:"include_aquifer"`
	AquiferCapacity *float64 `json:"aquifer_capacity,omitempty"`
	RechargeRate    *float64 `json:"recharge_rate,omitempty"`
	ExtractionRate  *float64 `json:"extraction_rate,omitempty"`
}

// IncludesAquifer reports whether the aquifer sub-model should run.
func (c SimulationConfig) IncludesAquifer() bool {
	return c.Aquifer != nil && c.Aquifer.IncludeAquifer
}

// Value implements driver.Valuer for text/JSON columns.
func (c SimulationConfig) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for text/JSON columns.
func (c *SimulationConfig) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = SimulationConfig{}
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into SimulationConfig", src)
	}
}

// ParameterBound is the accepted range of one numeric configuration field.
// Field is the section-qualified JSON name, e.g. "physical.basin_area".
type ParameterBound struct {
	Field   string
	Min     float64
	Max     float64
	MinOpen bool
}

// ParameterBounds returns the range table every configuration is validated
// against, in section order.
func ParameterBounds() []ParameterBound {
	inf := math.Inf(1)
	return []ParameterBound{
		{Field: "physical.basin_area", Min: 0, Max: inf, MinOpen: true},
		{Field: "physical.mean_elevation", Min: 0, Max: inf, MinOpen: true},
		{Field: "physical.mean_slope", Min: 0, Max: 100},
		{Field: "physical.soil_depth", Min: 0, Max: inf, MinOpen: true},
		{Field: "physical.porosity", Min: 0, Max: 1, MinOpen: true},
		{Field: "physical.hydraulic_conductivity", Min: 0, Max: inf, MinOpen: true},
		{Field: "physical.forest_percent", Min: 0, Max: 100},
		{Field: "physical.agricultural_percent", Min: 0, Max: 100},
		{Field: "physical.urban_percent", Min: 0, Max: 100},
		{Field: "physical.water_percent", Min: 0, Max: 100},
		{Field: "physical.annual_precipitation", Min: 0, Max: inf, MinOpen: true},
		{Field: "physical.mean_temperature", Min: -60, Max: 60},
		{Field: "socio.population", Min: 0, Max: inf, MinOpen: true},
		{Field: "socio.population_growth_rate", Min: 0, Max: inf},
		{Field: "socio.water_demand_per_capita", Min: 0, Max: inf, MinOpen: true},
		{Field: "socio.gdp_per_capita", Min: 0, Max: inf, MinOpen: true},
		{Field: "socio.agricultural_demand", Min: 0, Max: inf},
		{Field: "socio.industrial_demand", Min: 0, Max: inf},
		{Field: "socio.governance_index", Min: 0, Max: 1},
		{Field: "socio.water_price", Min: 0, Max: inf},
		{Field: "socio.initial_risk_perception", Min: 0, Max: 1},
		{Field: "socio.initial_memory", Min: 0, Max: 1},
		{Field: "aquifer.aquifer_capacity", Min: 0, Max: inf},
		{Field: "aquifer.recharge_rate", Min: 0, Max: inf},
		{Field: "aquifer.extraction_rate", Min: 0, Max: inf},
	}
}

func (b ParameterBound) check(value *float64) error {
	if value == nil {
		return nil
	}
	v := *value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperrors.ValidationField(b.Field, b.Field+" must be a finite number")
	}
	if b.MinOpen && v <= b.Min {
		return apperrors.ValidationField(b.Field, fmt.Sprintf("%s must be greater than %g", b.Field, b.Min))
	}
	if v < b.Min || v > b.Max {
		return apperrors.ValidationField(b.Field, fmt.Sprintf("%s must be between %g and %g", b.Field, b.Min, b.Max))
	}
	return nil
}

// fieldValues indexes the supplied numeric fields by their bound name.
func (c SimulationConfig) fieldValues() map[string]*float64 {
	p, s := c.Physical, c.Socio
	values := map[string]*float64{
		"physical.basin_area":             p.BasinArea,
		"physical.mean_elevation":         p.MeanElevation,
		"physical.mean_slope":             p.MeanSlope,
		"physical.soil_depth":             p.SoilDepth,
		"physical.porosity":               p.Porosity,
		"physical.hydraulic_conductivity": p.HydraulicConductivity,
		"physical.forest_percent":         p.ForestPercent,
		"physical.agricultural_percent":   p.AgriculturalPercent,
		"physical.urban_percent":          p.UrbanPercent,
		"physical.water_percent":          p.WaterPercent,
		"physical.annual_precipitation":   p.AnnualPrecipitation,
		"physical.mean_temperature":       p.MeanTemperature,
		"socio.population":                s.Population,
		"socio.population_growth_rate":    s.PopulationGrowthRate,
		"socio.water_demand_per_capita":   s.WaterDemandPerCapita,
		"socio.gdp_per_capita":            s.GDPPerCapita,
		"socio.agricultural_demand":       s.AgriculturalDemand,
		"socio.industrial_demand":         s.IndustrialDemand,
		"socio.governance_index":          s.GovernanceIndex,
		"socio.water_price":               s.WaterPrice,
		"socio.initial_risk_perception":   s.InitialRiskPerception,
		"socio.initial_memory":            s.InitialMemory,
	}
	if a := c.Aquifer; a != nil {
		values["aquifer.aquifer_capacity"] = a.AquiferCapacity
		values["aquifer.recharge_rate"] = a.RechargeRate
		values["aquifer.extraction_rate"] = a.ExtractionRate
	}
	return values
}

// Validate checks the supplied fields against their documented ranges.
func (c SimulationConfig) Validate() error {
	values := c.fieldValues()
	for _, b := range ParameterBounds() {
		if err := b.check(values[b.Field]); err != nil {
			return err
		}
	}
	return c.Physical.validateLandUse()
}

// landUseTolerance is the allowed deviation of the land use shares from 100%.
const landUseTolerance = 0.1

// validateLandUse only applies when all four shares are supplied.
func (p PhysicalConfig) validateLandUse() error {
	shares := []*float64{p.ForestPercent, p.AgriculturalPercent, p.UrbanPercent, p.WaterPercent}
	var total float64
	for _, v := range shares {
		if v == nil {
			return nil
		}
		total += *v
	}
	if math.Abs(total-100) > landUseTolerance {
		return apperrors.ValidationField(
			"physical.land_use",
			fmt.Sprintf("land use percentages must sum to 100, got %.2f", total),
		)
	}
	return nil
}
