package hydromodel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/target/hydrosim/internal/domain/model"
)

// SubModel is one component of the composite model.
type SubModel interface {
	Name() string
	Run(ctx context.Context, in Inputs) (Output, error)
}

// Inputs is what a sub-model sees: the resolved parameters, the shared
// weather and the outputs of every sub-model that ran before it.
type Inputs struct {
	Params  Params
	Weather Weather
	Prior   []Output
}

// Daily returns the daily water balance produced by the physical model, if it ran.
func (in Inputs) Daily() *DailyState {
	for _, out := range in.Prior {
		if out.Daily != nil {
			return out.Daily
		}
	}
	return nil
}

// Output is the result of one sub-model invocation.
type Output struct {
	Name  string
	Daily *DailyState
	// Files are staged artifacts, written to the sink only after every sub-model succeeded.
	Files []File
}

// File is a named artifact payload.
type File struct {
	Name string
	Data []byte
}

// DailyState is the per-day water balance of the basin.
type DailyState struct {
	Dates              []model.Date
	Precipitation      []float64
	Evapotranspiration []float64
	Runoff             []float64
	Infiltration       []float64
	Temperature        []float64
	SoilMoisture       []float64
}

// Artifact file names.
const (
	DailyFile        = "daily_results.csv"
	SocioFile        = "socio_state.csv"
	AnthropoceneFile = "anthropocene_state.csv"
	AquiferFile      = "aquifer_state.csv"
)

// DailyColumns is the header of the daily artifact.
var DailyColumns = []string{
	"Date", "Precipitation", "Evapotranspiration", "Runoff", "Infiltration", "Temperature", "Soil_Moisture",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDaily renders a daily state as the daily artifact CSV.
func EncodeDaily(d *DailyState) ([]byte, error) {
	rows := make([][]string, len(d.Dates))
	for i, date := range d.Dates {
		rows[i] = []string{
			date.String(),
			formatFloat(d.Precipitation[i]),
			formatFloat(d.Evapotranspiration[i]),
			formatFloat(d.Runoff[i]),
			formatFloat(d.Infiltration[i]),
			formatFloat(d.Temperature[i]),
			formatFloat(d.SoilMoisture[i]),
		}
	}
	b, err := encodeCSV(DailyColumns, rows)
	if err != nil {
		return nil, fmt.Errorf("encode daily results: %w", err)
	}
	return b, nil
}

// yearSpan is a contiguous run of days within one calendar year.
type yearSpan struct {
	Year       int
	Start, End int // [Start, End) indices into the daily arrays
}

func splitYears(dates []model.Date) []yearSpan {
	var spans []yearSpan
	for i, d := range dates {
		if len(spans) == 0 || spans[len(spans)-1].Year != d.Year() {
			spans = append(spans, yearSpan{Year: d.Year(), Start: i, End: i + 1})
			continue
		}
		spans[len(spans)-1].End = i + 1
	}
	return spans
}

func sumRange(xs []float64, start, end int) float64 {
	var s float64
	for _, v := range xs[start:end] {
		s += v
	}
	return s
}
