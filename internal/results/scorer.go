package results

import (
	"math"

	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/hydromodel"
)

// Indicator names.
const (
	IndicatorWaterStress             = "water_stress_index"
	IndicatorSustainability          = "sustainability_index"
	IndicatorResilience              = "resilience_index"
	IndicatorVulnerability           = "vulnerability_index"
	IndicatorAdaptationCapacity      = "adaptation_capacity"
	IndicatorSocialMemory            = "social_memory"
	IndicatorRiskPerception          = "risk_perception"
	IndicatorGovernanceEffectiveness = "governance_effectiveness"
)

// IndicatorNames lists every indicator in output order.
func IndicatorNames() []string {
	return []string{
		IndicatorWaterStress,
		IndicatorSustainability,
		IndicatorResilience,
		IndicatorVulnerability,
		IndicatorAdaptationCapacity,
		IndicatorSocialMemory,
		IndicatorRiskPerception,
		IndicatorGovernanceEffectiveness,
	}
}

// ScoreInput is what an IndicatorScorer sees of a run.
type ScoreInput struct {
	Annual   model.AnnualSummary
	Days     int
	Physical hydromodel.PhysicalParams
	Socio    hydromodel.SocioParams
}

// IndicatorScorer derives the indicator scores of a run.
type IndicatorScorer interface {
	Score(in ScoreInput) model.Indicators
}

// ConstantScorer returns a fixed score for every run.
type ConstantScorer struct{}

// Score implements IndicatorScorer.
func (ConstantScorer) Score(ScoreInput) model.Indicators {
	return model.Indicators{
		IndicatorWaterStress:             0.35,
		IndicatorSustainability:          0.68,
		IndicatorResilience:              0.72,
		IndicatorVulnerability:           0.28,
		IndicatorAdaptationCapacity:      0.65,
		IndicatorSocialMemory:            0.42,
		IndicatorRiskPerception:          0.38,
		IndicatorGovernanceEffectiveness: 0.63,
	}
}

// FormulaScorer derives scores from the annual water balance and the socio parameters.
// Every score is in [0,1].
type FormulaScorer struct{}

// Score implements IndicatorScorer.
func (FormulaScorer) Score(in ScoreInput) model.Indicators {
	a := in.Annual
	days := float64(max(in.Days, 1))

	// Renewable supply is runoff plus infiltration over the basin, in m³/day
	// (mm × km² = 1000 m³).
	supply := (a.TotalRunoff + a.TotalInfiltration) * in.Physical.BasinArea * 1000 / days
	demand := in.Socio.Population*in.Socio.WaterDemandPerCapita/1000 +
		in.Socio.AgriculturalDemand + in.Socio.IndustrialDemand
	stress := 1.0
	if supply > 0 {
		stress = demand / (demand + supply)
	}

	droughtShare := float64(a.DroughtDays) / days
	floodShare := float64(a.FloodDays) / days
	governance := clamp01(in.Socio.GovernanceIndex)
	wealth := clamp01(math.Log10(1+in.Socio.GDPPerCapita) / 5)

	resilience := clamp01((1 - droughtShare) * (1 - 5*floodShare) * (0.5 + 0.5*in.Physical.ForestPercent/100))
	vulnerability := clamp01(0.5*stress + 0.3*droughtShare + 0.2*in.Physical.UrbanPercent/100)
	adaptation := clamp01(0.5*governance + 0.5*wealth)
	sustainability := clamp01((1 - stress) * (1 - math.Min(a.WaterBalanceError, 100)/100))
	memory := clamp01(in.Socio.InitialMemory + 0.5*droughtShare + 2*floodShare)
	risk := clamp01(in.Socio.InitialRiskPerception + 0.4*(memory-in.Socio.InitialMemory) + 0.2*stress)
	effectiveness := clamp01(governance * (1 - 0.5*stress))

	return model.Indicators{
		IndicatorWaterStress:             clamp01(stress),
		IndicatorSustainability:          sustainability,
		IndicatorResilience:              resilience,
		IndicatorVulnerability:           vulnerability,
		IndicatorAdaptationCapacity:      adaptation,
		IndicatorSocialMemory:            memory,
		IndicatorRiskPerception:          risk,
		IndicatorGovernanceEffectiveness: effectiveness,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
