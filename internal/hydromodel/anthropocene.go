package hydromodel

import (
	"context"
	"fmt"
	"strconv"
)

// AnthropoceneModel projects land use change and the human impact index per year.
type AnthropoceneModel struct{}

// Name implements SubModel.
func (AnthropoceneModel) Name() string { return StageAnthropocene }

// Run implements SubModel.
func (AnthropoceneModel) Run(ctx context.Context, in Inputs) (Output, error) {
	daily := in.Daily()
	if daily == nil {
		return Output{}, errNoDaily
	}
	a := in.Params.Anthropocene
	p := in.Params.Physical

	forest, urban, agri := p.ForestPercent, p.UrbanPercent, p.AgriculturalPercent
	header := []string{
		"Year", "Forest_Percent", "Urban_Percent", "Agricultural_Percent", "Climate_Factor", "Impact_Index",
	}
	var rows [][]string
	for k, span := range splitYears(daily.Dates) {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		if k > 0 {
			lostForest := forest * a.DeforestationRate
			newUrban := urban * a.UrbanizationRate
			forest -= lostForest
			urban += newUrban
			agri = clamp(agri+lostForest-newUrban, 0, 100)
		}
		climate := a.ClimateChangeFactor * (1 + a.LandUseChangeRate*float64(k))
		impact := clamp(a.AnthropogenicImpactIndex*(urban+agri)/(p.UrbanPercent+p.AgriculturalPercent+1e-9), 0, 1)

		rows = append(rows, []string{
			strconv.Itoa(span.Year),
			formatFloat(forest),
			formatFloat(urban),
			formatFloat(agri),
			formatFloat(climate),
			formatFloat(impact),
		})
	}

	data, err := encodeCSV(header, rows)
	if err != nil {
		return Output{}, fmt.Errorf("encode anthropocene state: %w", err)
	}
	return Output{Name: StageAnthropocene, Files: []File{{Name: AnthropoceneFile, Data: data}}}, nil
}
