package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
)

// ExportFormat is a download format for a simulation's results.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// ParseExportFormat accepts "csv" or "json", case-insensitively.
func ParseExportFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case ExportCSV, ExportJSON:
		return f, nil
	}
	return "", apperrors.ValidationField("format",
		fmt.Sprintf("export format '%s' not supported, use 'csv' or 'json'", s))
}

// ContentType returns the media type of the format.
func (f ExportFormat) ContentType() string {
	if f == ExportCSV {
		return "text/csv"
	}
	return "application/json"
}

// Filename returns the attachment name for a simulation's export.
func (f ExportFormat) Filename(simulationID string) string {
	return fmt.Sprintf("simulation_%s_results.%s", simulationID, f)
}

// Export writes sets to w in format f.
func Export(w io.Writer, f ExportFormat, sets []*model.ResultSet) error {
	switch f {
	case ExportCSV:
		return WriteCSV(w, sets)
	case ExportJSON:
		return WriteJSON(w, sets)
	}
	return apperrors.ValidationField("format", fmt.Sprintf("export format '%s' not supported", f))
}

// WriteJSON writes an indented object mapping result type to payload.
func WriteJSON(w io.Writer, sets []*model.ResultSet) error {
	out := make(map[model.ResultType]json.RawMessage, len(sets))
	for _, s := range sets {
		out[s.ResultType] = s.Data
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV writes one table per daily, monthly and annual set, separated by a
// blank line. The annual summary is a single row with the water balance
// block flattened into prefixed columns. Indicators are not part of the CSV.
func WriteCSV(w io.Writer, sets []*model.ResultSet) error {
	first := true
	for _, s := range sets {
		var table [][]string
		var err error
		switch s.ResultType {
		case model.ResultTypeDaily:
			table, err = dailyTable(s.Data)
		case model.ResultTypeMonthly:
			table, err = monthlyTable(s.Data)
		case model.ResultTypeAnnual:
			table, err = annualTable(s.Data)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("export %s results: %w", s.ResultType, err)
		}
		if !first {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		first = false
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(table); err != nil {
			return err
		}
	}
	return nil
}

// ExportBytes renders sets into memory.
func ExportBytes(f ExportFormat, sets []*model.ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Export(&buf, f, sets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type column struct {
	name   string
	values []float64
}

func seriesTable(keyName string, keys []string, cols []column) [][]string {
	header := make([]string, 0, len(cols)+1)
	header = append(header, keyName)
	for _, c := range cols {
		header = append(header, c.name)
	}
	table := make([][]string, 0, len(keys)+1)
	table = append(table, header)
	for i, k := range keys {
		row := make([]string, 0, len(header))
		row = append(row, k)
		for _, c := range cols {
			if i < len(c.values) {
				row = append(row, formatValue(c.values[i]))
			} else {
				row = append(row, "")
			}
		}
		table = append(table, row)
	}
	return table
}

func dailyTable(raw json.RawMessage) ([][]string, error) {
	var d model.DailySeries
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return seriesTable("dates", d.Dates, []column{
		{"precipitation", d.Precipitation},
		{"runoff", d.Runoff},
		{"evapotranspiration", d.Evapotranspiration},
		{"infiltration", d.Infiltration},
		{"temperature", d.Temperature},
	}), nil
}

func monthlyTable(raw json.RawMessage) ([][]string, error) {
	var m model.MonthlySeries
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return seriesTable("months", m.Months, []column{
		{"total_precipitation", m.TotalPrecipitation},
		{"total_evapotranspiration", m.TotalEvapotranspiration},
		{"total_runoff", m.TotalRunoff},
		{"total_infiltration", m.TotalInfiltration},
		{"mean_temperature", m.MeanTemperature},
	}), nil
}

func annualTable(raw json.RawMessage) ([][]string, error) {
	var a model.AnnualSummary
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	wb := a.WaterBalance
	pairs := []struct {
		name  string
		value string
	}{
		{"total_precipitation", formatValue(a.TotalPrecipitation)},
		{"total_evapotranspiration", formatValue(a.TotalEvapotranspiration)},
		{"total_runoff", formatValue(a.TotalRunoff)},
		{"total_infiltration", formatValue(a.TotalInfiltration)},
		{"mean_temperature", formatValue(a.MeanTemperature)},
		{"water_balance_error", formatValue(a.WaterBalanceError)},
		{"runoff_coefficient", formatValue(a.RunoffCoefficient)},
		{"max_daily_precipitation", formatValue(a.MaxDailyPrecipitation)},
		{"max_daily_runoff", formatValue(a.MaxDailyRunoff)},
		{"drought_days", strconv.Itoa(a.DroughtDays)},
		{"flood_days", strconv.Itoa(a.FloodDays)},
		{"water_balance.input_precipitation", formatValue(wb.InputPrecipitation)},
		{"water_balance.output_evapotranspiration", formatValue(wb.OutputEvapotranspiration)},
		{"water_balance.output_runoff", formatValue(wb.OutputRunoff)},
		{"water_balance.output_infiltration", formatValue(wb.OutputInfiltration)},
		{"water_balance.balance_error", formatValue(wb.BalanceError)},
	}
	header := make([]string, len(pairs))
	row := make([]string, len(pairs))
	for i, p := range pairs {
		header[i] = p.name
		row[i] = p.value
	}
	return [][]string{header, row}, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
