// Package hydromodel wraps the physical, socio-hydrological, anthropocene and
// artificial aquifer sub-models behind a single Configure/Run contract.
package hydromodel

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
)

// PhysicalParams describes the basin and its climate.
type PhysicalParams struct {
	BasinArea             float64 // km²
	MeanElevation         float64 // m
	MeanSlope             float64 // %
	SoilDepth             float64 // m
	Porosity              float64
	HydraulicConductivity float64 // m/day
	ForestPercent         float64
	AgriculturalPercent   float64
	UrbanPercent          float64
	WaterPercent          float64
	AnnualPrecipitation   float64 // mm/year
	MeanTemperature       float64 // °C
}

// SocioParams describes population, demand and governance.
type SocioParams struct {
	Population            float64
	PopulationGrowthRate  float64 // %/year
	WaterDemandPerCapita  float64 // L/day
	GDPPerCapita          float64
	AgriculturalDemand    float64 // m³/day
	IndustrialDemand      float64 // m³/day
	GovernanceIndex       float64
	WaterPrice            float64
	InitialRiskPerception float64
	InitialMemory         float64
}

// AquiferParams configures managed aquifer recharge.
type AquiferParams struct {
	Capacity       float64 // m³
	RechargeRate   float64 // m³/day
	ExtractionRate float64 // m³/day
}

// AnthropoceneParams holds the derived human-impact rates.
type AnthropoceneParams struct {
	LandUseChangeRate        float64
	UrbanizationRate         float64
	DeforestationRate        float64
	ClimateChangeFactor      float64
	AnthropogenicImpactIndex float64
}

// Params is the immutable, fully resolved input of one model run.
type Params struct {
	ModelType    model.ModelType
	Period       model.Period
	Physical     PhysicalParams
	Socio        SocioParams
	Anthropocene AnthropoceneParams
	// Aquifer is nil when the aquifer sub-model does not participate.
	Aquifer *AquiferParams
	// Seed drives every random draw of the run.
	Seed uint64
}

// DefaultPhysical returns the physical defaults table.
func DefaultPhysical() PhysicalParams {
	return PhysicalParams{
		BasinArea:             100,
		MeanElevation:         500,
		MeanSlope:             5,
		SoilDepth:             2,
		Porosity:              0.4,
		HydraulicConductivity: 0.5,
		ForestPercent:         30,
		AgriculturalPercent:   40,
		UrbanPercent:          20,
		WaterPercent:          10,
		AnnualPrecipitation:   1200,
		MeanTemperature:       18,
	}
}

// DefaultSocio returns the socio-hydrological defaults table.
func DefaultSocio() SocioParams {
	return SocioParams{
		Population:            100000,
		PopulationGrowthRate:  1.5,
		WaterDemandPerCapita:  150,
		GDPPerCapita:          10000,
		AgriculturalDemand:    20000,
		IndustrialDemand:      15000,
		GovernanceIndex:       0.6,
		WaterPrice:            0.5,
		InitialRiskPerception: 0.3,
		InitialMemory:         0.2,
	}
}

// DefaultAquifer returns the aquifer defaults table.
func DefaultAquifer() AquiferParams {
	return AquiferParams{Capacity: 1000000, RechargeRate: 100, ExtractionRate: 50}
}

// DefaultAnthropocene returns the anthropocene rates. They are not user supplied.
func DefaultAnthropocene() AnthropoceneParams {
	return AnthropoceneParams{
		LandUseChangeRate:        0.02,
		UrbanizationRate:         0.01,
		DeforestationRate:        0.005,
		ClimateChangeFactor:      1.0,
		AnthropogenicImpactIndex: 0.5,
	}
}

func or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// landUseTolerance is the allowed deviation of the resolved land use shares from 100%.
const landUseTolerance = 0.1

// Configure resolves a simulation's configuration against the defaults table.
// It is pure: the same simulation and attempt always yield the same Params.
func Configure(sim *model.Simulation) (Params, error) {
	if sim == nil {
		return Params{}, apperrors.Validation("simulation is required")
	}
	if err := sim.Period().Validate(); err != nil {
		return Params{}, apperrors.ValidationField("end_date", err.Error())
	}
	cfg := sim.Configuration
	if err := cfg.Validate(); err != nil {
		return Params{}, err
	}

	d := DefaultPhysical()
	p := cfg.Physical
	physical := PhysicalParams{
		BasinArea:             or(p.BasinArea, d.BasinArea),
		MeanElevation:         or(p.MeanElevation, d.MeanElevation),
		MeanSlope:             or(p.MeanSlope, d.MeanSlope),
		SoilDepth:             or(p.SoilDepth, d.SoilDepth),
		Porosity:              or(p.Porosity, d.Porosity),
		HydraulicConductivity: or(p.HydraulicConductivity, d.HydraulicConductivity),
		ForestPercent:         or(p.ForestPercent, d.ForestPercent),
		AgriculturalPercent:   or(p.AgriculturalPercent, d.AgriculturalPercent),
		UrbanPercent:          or(p.UrbanPercent, d.UrbanPercent),
		WaterPercent:          or(p.WaterPercent, d.WaterPercent),
		AnnualPrecipitation:   or(p.AnnualPrecipitation, d.AnnualPrecipitation),
		MeanTemperature:       or(p.MeanTemperature, d.MeanTemperature),
	}
	landUse := physical.ForestPercent + physical.AgriculturalPercent + physical.UrbanPercent + physical.WaterPercent
	if math.Abs(landUse-100) > landUseTolerance {
		return Params{}, apperrors.ValidationField(
			"physical.land_use",
			fmt.Sprintf("land use percentages must sum to 100, got %.2f", landUse),
		)
	}

	ds := DefaultSocio()
	s := cfg.Socio
	socio := SocioParams{
		Population:            or(s.Population, ds.Population),
		PopulationGrowthRate:  or(s.PopulationGrowthRate, ds.PopulationGrowthRate),
		WaterDemandPerCapita:  or(s.WaterDemandPerCapita, ds.WaterDemandPerCapita),
		GDPPerCapita:          or(s.GDPPerCapita, ds.GDPPerCapita),
		AgriculturalDemand:    or(s.AgriculturalDemand, ds.AgriculturalDemand),
		IndustrialDemand:      or(s.IndustrialDemand, ds.IndustrialDemand),
		GovernanceIndex:       or(s.GovernanceIndex, ds.GovernanceIndex),
		WaterPrice:            or(s.WaterPrice, ds.WaterPrice),
		InitialRiskPerception: or(s.InitialRiskPerception, ds.InitialRiskPerception),
		InitialMemory:         or(s.InitialMemory, ds.InitialMemory),
	}

	modelType := sim.ModelType
	if modelType == "" {
		modelType = model.ModelTypeIntegrated
	}

	params := Params{
		ModelType:    modelType,
		Period:       sim.Period(),
		Physical:     physical,
		Socio:        socio,
		Anthropocene: DefaultAnthropocene(),
		Seed:         Seed(sim.ID, sim.Attempt),
	}
	if cfg.IncludesAquifer() || modelType == model.ModelTypeArtificialAquifer {
		da := DefaultAquifer()
		aq := &AquiferParams{Capacity: da.Capacity, RechargeRate: da.RechargeRate, ExtractionRate: da.ExtractionRate}
		if a := cfg.Aquifer; a != nil {
			aq.Capacity = or(a.AquiferCapacity, da.Capacity)
			aq.RechargeRate = or(a.RechargeRate, da.RechargeRate)
			aq.ExtractionRate = or(a.ExtractionRate, da.ExtractionRate)
		}
		params.Aquifer = aq
	}
	return params, nil
}

// Seed derives a stable random seed for one attempt of a simulation.
func Seed(simulationID string, attempt int) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s/%d", simulationID, attempt)
	return h.Sum64()
}

// Stages lists the sub-models that participate for a model type, in run order.
func Stages(mt model.ModelType, withAquifer bool) []string {
	var stages []string
	switch mt {
	case model.ModelTypePhysical:
		stages = []string{StagePhysical}
	case model.ModelTypeSociohydrological:
		stages = []string{StagePhysical, StageSocio}
	case model.ModelTypeAnthropocene:
		stages = []string{StagePhysical, StageSocio, StageAnthropocene}
	case model.ModelTypeArtificialAquifer:
		stages = []string{StagePhysical}
	default:
		stages = []string{StagePhysical, StageSocio, StageAnthropocene}
	}
	if withAquifer {
		stages = append(stages, StageAquifer)
	}
	return stages
}

// Sub-model names.
const (
	StagePhysical     = "physical"
	StageSocio        = "socio"
	StageAnthropocene = "anthropocene"
	StageAquifer      = "aquifer"
)
