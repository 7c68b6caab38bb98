package hydromodel

import (
	"math"
	"slices"
	"strings"

	"github.com/target/hydrosim/internal/domain/model"
)

// Parameter value kinds.
const (
	KindNumber  = "number"
	KindInteger = "integer"
	KindBoolean = "boolean"
)

// Configuration sections.
const (
	SectionPhysical = "physical"
	SectionSocio    = "socio"
	SectionAquifer  = "aquifer"
)

// ParameterSchema describes one configurable parameter: its range, unit and
// the default used when a configuration omits it.
type ParameterSchema struct {
	Name         string   `json:"name"`
	Kind         string   `json:"type"`
	Unit         string   `json:"unit,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	ExclusiveMin bool     `json:"exclusive_min,omitempty"`
	Default      any      `json:"default"`
}

// SectionSchema groups the parameters of one configuration section.
type SectionSchema struct {
	Section    string            `json:"section"`
	Parameters []ParameterSchema `json:"parameters"`
}

// ModelSchema is the configurable surface of one model type.
type ModelSchema struct {
	ModelType model.ModelType `json:"model_type"`
	Stages    []string        `json:"stages"`
	Sections  []SectionSchema `json:"sections"`
}

// ModelInfo names a model type and the sub-models it runs.
type ModelInfo struct {
	ModelType   model.ModelType `json:"model_type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Stages      []string        `json:"stages"`
}

// Models lists every supported model type. Stages are the ones Run executes
// without an explicitly enabled aquifer.
func Models() []ModelInfo {
	infos := []ModelInfo{
		{
			ModelType:   model.ModelTypePhysical,
			Name:        "Physical Hydrological Model",
			Description: "Water balance, evapotranspiration, runoff and infiltration",
		},
		{
			ModelType:   model.ModelTypeSociohydrological,
			Name:        "Socio-hydrological Model",
			Description: "Water demand, risk perception and social memory driven by the physical balance",
		},
		{
			ModelType:   model.ModelTypeAnthropocene,
			Name:        "Anthropocene Transformation Model",
			Description: "Land use change and climate impacts on top of the socio-hydrological run",
		},
		{
			ModelType:   model.ModelTypeArtificialAquifer,
			Name:        "Artificial Aquifer Model",
			Description: "Managed aquifer recharge and extraction over the physical balance",
		},
		{
			ModelType:   model.ModelTypeIntegrated,
			Name:        "Integrated Model",
			Description: "All sub-models coupled, with the aquifer when enabled",
		},
	}
	for i := range infos {
		infos[i].Stages = defaultStages(infos[i].ModelType)
	}
	return infos
}

func defaultStages(mt model.ModelType) []string {
	return Stages(mt, mt == model.ModelTypeArtificialAquifer)
}

// Schema returns the parameter schema of a model type. The bool is false for
// unknown model types.
func Schema(mt model.ModelType) (ModelSchema, bool) {
	if !mt.Valid() {
		return ModelSchema{}, false
	}
	stages := defaultStages(mt)

	bySection := map[string][]ParameterSchema{}
	defaults := defaultValues()
	units := parameterUnits()
	for _, b := range model.ParameterBounds() {
		section, name, ok := strings.Cut(b.Field, ".")
		if !ok {
			continue
		}
		p := ParameterSchema{
			Name:         name,
			Kind:         KindNumber,
			Unit:         units[b.Field],
			Min:          finite(b.Min),
			Max:          finite(b.Max),
			ExclusiveMin: b.MinOpen,
			Default:      defaults[b.Field],
		}
		if b.Field == "socio.population" {
			p.Kind = KindInteger
		}
		bySection[section] = append(bySection[section], p)
	}

	schema := ModelSchema{ModelType: mt, Stages: stages}
	schema.Sections = append(schema.Sections, SectionSchema{Section: SectionPhysical, Parameters: bySection[SectionPhysical]})
	if slices.Contains(stages, StageSocio) {
		schema.Sections = append(schema.Sections, SectionSchema{Section: SectionSocio, Parameters: bySection[SectionSocio]})
	}
	// Every model type can opt into the aquifer; the aquifer model always runs it.
	include := ParameterSchema{
		Name:    "include_aquifer",
		Kind:    KindBoolean,
		Default: mt == model.ModelTypeArtificialAquifer,
	}
	schema.Sections = append(schema.Sections, SectionSchema{
		Section:    SectionAquifer,
		Parameters: append([]ParameterSchema{include}, bySection[SectionAquifer]...),
	})
	return schema, true
}

// defaultValues indexes the defaults tables by section-qualified field name.
func defaultValues() map[string]any {
	p, s, a := DefaultPhysical(), DefaultSocio(), DefaultAquifer()
	return map[string]any{
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
		"socio.population":                int64(s.Population),
		"socio.population_growth_rate":    s.PopulationGrowthRate,
		"socio.water_demand_per_capita":   s.WaterDemandPerCapita,
		"socio.gdp_per_capita":            s.GDPPerCapita,
		"socio.agricultural_demand":       s.AgriculturalDemand,
		"socio.industrial_demand":         s.IndustrialDemand,
		"socio.governance_index":          s.GovernanceIndex,
		"socio.water_price":               s.WaterPrice,
		"socio.initial_risk_perception":   s.InitialRiskPerception,
		"socio.initial_memory":            s.InitialMemory,
		"aquifer.aquifer_capacity":        a.Capacity,
		"aquifer.recharge_rate":           a.RechargeRate,
		"aquifer.extraction_rate":         a.ExtractionRate,
	}
}

func parameterUnits() map[string]string {
	return map[string]string{
		"physical.basin_area":             "km²",
		"physical.mean_elevation":         "m",
		"physical.mean_slope":             "%",
		"physical.soil_depth":             "m",
		"physical.hydraulic_conductivity": "m/day",
		"physical.forest_percent":         "%",
		"physical.agricultural_percent":   "%",
		"physical.urban_percent":          "%",
		"physical.water_percent":          "%",
		"physical.annual_precipitation":   "mm",
		"physical.mean_temperature":       "°C",
		"socio.population_growth_rate":    "%",
		"socio.water_demand_per_capita":   "L/day",
		"socio.gdp_per_capita":            "USD",
		"socio.agricultural_demand":       "m³/day",
		"socio.industrial_demand":         "m³/day",
		"socio.water_price":               "USD/m³",
		"aquifer.aquifer_capacity":        "m³",
		"aquifer.recharge_rate":           "m³/day",
		"aquifer.extraction_rate":         "m³/day",
	}
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
