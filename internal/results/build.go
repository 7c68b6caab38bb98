package results

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/hydromodel"
)

// BuildInput is everything needed to turn one run's daily series into result sets.
type BuildInput struct {
	Simulation *model.Simulation
	Series     *Series
	Params     hydromodel.Params
	Scorer     IndicatorScorer
	StartedAt  time.Time
	FinishedAt time.Time
}

// Build derives the daily, monthly, annual and indicator result sets of a run.
// The synthetic flag of the series is stamped on every set.
func Build(in BuildInput) ([]*model.ResultSet, error) {
	scorer := in.Scorer
	if scorer == nil {
		scorer = FormulaScorer{}
	}
	daily := in.Series.Daily
	agg := Aggregate(daily)
	indicators := scorer.Score(ScoreInput{
		Annual:   agg.Annual,
		Days:     daily.Len(),
		Physical: in.Params.Physical,
		Socio:    in.Params.Socio,
	})

	meta := model.ResultMetadata{
		Synthetic:             in.Series.Synthetic,
		ProcessingTimeSeconds: in.FinishedAt.Sub(in.StartedAt).Seconds(),
		ModelVersion:          model.ModelVersion,
		RunTimestamp:          in.FinishedAt.UTC(),
		Attempt:               in.Simulation.Attempt,
	}
	payloads := []struct {
		rt   model.ResultType
		data any
	}{
		{model.ResultTypeDaily, daily},
		{model.ResultTypeMonthly, agg.Monthly},
		{model.ResultTypeAnnual, agg.Annual},
		{model.ResultTypeIndicators, indicators},
	}

	sets := make([]*model.ResultSet, 0, len(payloads))
	for _, p := range payloads {
		raw, err := json.Marshal(p.data)
		if err != nil {
			return nil, fmt.Errorf("encode %s results: %w", p.rt, err)
		}
		sets = append(sets, &model.ResultSet{
			ID:           uuid.NewString(),
			SimulationID: in.Simulation.ID,
			ResultType:   p.rt,
			Data:         raw,
			Metadata:     meta,
			CreatedAt:    in.FinishedAt.UTC(),
		})
	}
	return sets, nil
}
