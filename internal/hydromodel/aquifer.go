package hydromodel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// AquiferModel routes deep infiltration and managed recharge into a bounded aquifer.
type AquiferModel struct{}

// Name implements SubModel.
func (AquiferModel) Name() string { return StageAquifer }

// Run implements SubModel.
func (AquiferModel) Run(ctx context.Context, in Inputs) (Output, error) {
	daily := in.Daily()
	if daily == nil {
		return Output{}, errNoDaily
	}
	aq := in.Params.Aquifer
	if aq == nil {
		return Output{}, errors.New("aquifer parameters are not configured")
	}
	area := in.Params.Physical.BasinArea

	storage := aq.Capacity / 2
	header := []string{"Year", "Storage", "Natural_Recharge", "Managed_Recharge", "Extraction", "Fill_Fraction"}
	var rows [][]string
	for _, span := range splitYears(daily.Dates) {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		var natural, managed, extracted float64
		for i := span.Start; i < span.End; i++ {
			// Only a small share of deep drainage reaches the managed aquifer.
			inflow := daily.Infiltration[i] * area * 1000 * 0.001
			room := aq.Capacity - storage
			recharge := math.Min(inflow+aq.RechargeRate, room)
			storage += recharge
			take := math.Min(aq.ExtractionRate, storage)
			storage -= take

			fromDrainage := math.Min(inflow, recharge)
			natural += fromDrainage
			managed += recharge - fromDrainage
			extracted += take
		}
		fill := 0.0
		if aq.Capacity > 0 {
			fill = storage / aq.Capacity
		}
		rows = append(rows, []string{
			strconv.Itoa(span.Year),
			formatFloat(storage),
			formatFloat(natural),
			formatFloat(managed),
			formatFloat(extracted),
			formatFloat(fill),
		})
	}

	data, err := encodeCSV(header, rows)
	if err != nil {
		return Output{}, fmt.Errorf("encode aquifer state: %w", err)
	}
	return Output{Name: StageAquifer, Files: []File{{Name: AquiferFile, Data: data}}}, nil
}
