package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ResultType names one of the views stored for a completed simulation.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ResultType string

const (
	ResultTypeDaily      ResultType = "daily"
	ResultTypeMonthly    ResultType = "monthly"
	ResultTypeAnnual     ResultType = "annual"
	ResultTypeIndicators ResultType = "indicators"
)

// ResultTypes lists every result type in storage and export order.
func ResultTypes() []ResultType {
	return []ResultType{ResultTypeDaily, ResultTypeMonthly, ResultTypeAnnual, ResultTypeIndicators}
}

// Valid returns true if the result type is known.
func (t ResultType) Valid() bool {
	switch t {
	case ResultTypeDaily, ResultTypeMonthly, ResultTypeAnnual, ResultTypeIndicators:
		return true
	}
	return false
}

// UnmarshalText accepts both "daily" and the legacy "daily_results" spelling.
func (t *ResultType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	v = strings.TrimSuffix(v, "_results")
	rt := ResultType(v)
	if !rt.Valid() {
		return fmt.Errorf("invalid result type: %q", string(text))
	}
	*t = rt
	return nil
}

// ModelVersion is stamped into every result set.
const ModelVersion = "1.0.0"

// ResultSet is one persisted view of a simulation's output.
type ResultSet struct {
	ID           string          `json:"id"`
	SimulationID string          `json:"simulation_id"`
	ResultType   ResultType      `json:"result_type"`
	Data         json.RawMessage `json:"data"`
	Metadata     ResultMetadata  `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ResultMetadata describes how a result set was produced.
type ResultMetadata struct {
	Synthetic             bool      `json:"synthetic"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	ModelVersion          string    `json:"model_version"`
	RunTimestamp          time.Time `json:"run_timestamp"`
	Attempt               int       `json:"attempt"`
}

// Value implements driver.Valuer for text/JSON columns.
func (m ResultMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for text/JSON columns.
func (m *ResultMetadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = ResultMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into ResultMetadata", src)
	}
}

// DailySeries is the per-day output of a run. All slices share the length of Dates,
// except variables the model did not produce, which are empty.
type DailySeries struct {
	Dates              []string  `json:"dates"`
	Precipitation      []float64 `json:"precipitation"`
	Runoff             []float64 `json:"runoff"`
	Evapotranspiration []float64 `json:"evapotranspiration"`
	Infiltration       []float64 `json:"infiltration"`
	Temperature        []float64 `json:"temperature"`
}

// Len returns the number of days in the series.
func (d *DailySeries) Len() int {
	return len(d.Dates)
}

// MonthlySeries holds fixed 30-day bucket aggregates.
type MonthlySeries struct {
	Months                  []string  `json:"months"`
	TotalPrecipitation      []float64 `json:"total_precipitation"`
	TotalEvapotranspiration []float64 `json:"total_evapotranspiration"`
	TotalRunoff             []float64 `json:"total_runoff"`
	TotalInfiltration       []float64 `json:"total_infiltration"`
	MeanTemperature         []float64 `json:"mean_temperature"`
}

// WaterBalance itemises the terms of the water balance closure.
type WaterBalance struct {
	InputPrecipitation       float64 `json:"input_precipitation"`
	OutputEvapotranspiration float64 `json:"output_evapotranspiration"`
	OutputRunoff             float64 `json:"output_runoff"`
	OutputInfiltration       float64 `json:"output_infiltration"`
	BalanceError             float64 `json:"balance_error"`
}

// AnnualSummary aggregates the whole run.
type AnnualSummary struct {
	TotalPrecipitation      float64      `json:"total_precipitation"`
	TotalEvapotranspiration float64      `json:"total_evapotranspiration"`
	TotalRunoff             float64      `json:"total_runoff"`
	TotalInfiltration       float64      `json:"total_infiltration"`
	MeanTemperature         float64      `json:"mean_temperature"`
	WaterBalanceError       float64      `json:"water_balance_error"`
	RunoffCoefficient       float64      `json:"runoff_coefficient"`
	MaxDailyPrecipitation   float64      `json:"max_daily_precipitation"`
	MaxDailyRunoff          float64      `json:"max_daily_runoff"`
	DroughtDays             int          `json:"drought_days"`
	FloodDays               int          `json:"flood_days"`
	WaterBalance            WaterBalance `json:"water_balance"`
}

// Indicators maps indicator names to scores.
type Indicators map[string]float64

// ResultSummary is the condensed view returned by the summary endpoint.
type ResultSummary struct {
	SimulationID string             `json:"simulation_id"`
	Status       SimulationStatus   `json:"status"`
	Synthetic    bool               `json:"synthetic"`
	KeyMetrics   map[string]float64 `json:"key_metrics"`
	Indicators   Indicators         `json:"indicators"`
	AvailableAt  *time.Time         `json:"available_at,omitempty"`
}
