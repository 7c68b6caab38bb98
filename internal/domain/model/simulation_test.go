package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/hydrosim/internal/errors"
)

func float64Ptr(v float64) *float64 { return &v }

func validCreateRequest() *CreateSimulationRequest {
	return &CreateSimulationRequest{
		Name:      "Basin A",
		StartDate: MustDate("2023-01-01"),
		EndDate:   MustDate("2023-12-31"),
		Configuration: SimulationConfig{
			Physical: PhysicalConfig{BasinArea: float64Ptr(1000)},
		},
	}
}

func TestSimulationStatus_UnmarshalText(t *testing.T) {
	var s SimulationStatus
	require.NoError(t, s.UnmarshalText([]byte(" RUNNING ")))
	assert.Equal(t, SimulationStatusRunning, s)
	assert.Error(t, s.UnmarshalText([]byte("paused")))
	assert.True(t, SimulationStatusCancelled.Terminal())
	assert.False(t, SimulationStatusPending.Terminal())
}

func TestModelTypeAndTimeStep(t *testing.T) {
	var m ModelType
	require.NoError(t, m.UnmarshalText([]byte("integrated")))
	assert.Equal(t, ModelTypeIntegrated, m)
	assert.Error(t, m.UnmarshalText([]byte("quantum")))

	var ts TimeStep
	require.NoError(t, ts.UnmarshalText([]byte("monthly")))
	assert.Equal(t, TimeStepMonthly, ts)
}

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2023-03-05"`), &d))
	assert.Equal(t, "2023-03-05", d.String())

	require.NoError(t, json.Unmarshal([]byte(`"2023-03-05T15:04:05Z"`), &d))
	assert.Equal(t, "2023-03-05", d.String())

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2023-03-05"`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`"03/05/2023"`), &d))
}

func TestPeriod(t *testing.T) {
	p := Period{Start: MustDate("2023-01-01"), End: MustDate("2023-12-31")}
	assert.Equal(t, 364, p.Days())
	assert.Equal(t, 365, p.Len())
	dates := p.Dates()
	require.Len(t, dates, 365)
	assert.Equal(t, "2023-01-01", dates[0])
	assert.Equal(t, "2023-12-31", dates[364])
	require.NoError(t, p.Validate())

	leap := Period{Start: MustDate("2024-01-01"), End: MustDate("2024-12-31")}
	assert.Equal(t, 366, leap.Len())

	tests := []struct {
		name string
		p    Period
	}{
		{"end before start", Period{Start: MustDate("2023-02-01"), End: MustDate("2023-01-01")}},
		{"same day", Period{Start: MustDate("2023-01-01"), End: MustDate("2023-01-01")}},
		{"too long", Period{Start: MustDate("2000-01-01"), End: MustDate("2010-01-02")}},
		{"missing", Period{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.p.Validate())
		})
	}

	maxLen := Period{Start: MustDate("2000-01-01"), End: MustDate("2000-01-01").AddDays(MaxSimulationDays)}
	assert.NoError(t, maxLen.Validate())
}

func TestCreateSimulationRequest_Validate(t *testing.T) {
	t.Run("valid with defaults", func(t *testing.T) {
		req := validCreateRequest()
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, ModelTypeIntegrated, req.ModelType)
		assert.Equal(t, TimeStepDaily, req.TimeStep)
	})

	tests := []struct {
		name  string
		mut   func(*CreateSimulationRequest)
		field string
	}{
		{"empty name", func(r *CreateSimulationRequest) { r.Name = "  " }, "name"},
		{"end before start", func(r *CreateSimulationRequest) { r.EndDate = MustDate("2022-01-01") }, "end_date"},
		{"negative area", func(r *CreateSimulationRequest) {
			r.Configuration.Physical.BasinArea = float64Ptr(-1)
		}, "physical.basin_area"},
		{"porosity above one", func(r *CreateSimulationRequest) {
			r.Configuration.Physical.Porosity = float64Ptr(1.5)
		}, "physical.porosity"},
		{"governance out of range", func(r *CreateSimulationRequest) {
			r.Configuration.Socio.GovernanceIndex = float64Ptr(2)
		}, "socio.governance_index"},
		{"land use does not sum", func(r *CreateSimulationRequest) {
			r.Configuration.Physical.ForestPercent = float64Ptr(50)
			r.Configuration.Physical.AgriculturalPercent = float64Ptr(50)
			r.Configuration.Physical.UrbanPercent = float64Ptr(20)
			r.Configuration.Physical.WaterPercent = float64Ptr(10)
		}, "physical.land_use"},
		{"negative extraction", func(r *CreateSimulationRequest) {
			r.Configuration.Aquifer = &AquiferConfig{IncludeAquifer: true, ExtractionRate: float64Ptr(-5)}
		}, "aquifer.extraction_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mut(req)
			req.Normalize()
			err := req.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestUpdateSimulationRequest_Validate(t *testing.T) {
	assert.Error(t, (&UpdateSimulationRequest{}).Validate())

	name := "  renamed "
	req := &UpdateSimulationRequest{Name: &name}
	require.NoError(t, req.Validate())
	assert.Equal(t, "renamed", *req.Name)
}

func TestSimulationConfig_ScanValue(t *testing.T) {
	cfg := SimulationConfig{
		Physical: PhysicalConfig{BasinArea: float64Ptr(250)},
		Aquifer:  &AquiferConfig{IncludeAquifer: true},
	}
	v, err := cfg.Value()
	require.NoError(t, err)

	var out SimulationConfig
	require.NoError(t, out.Scan(v))
	assert.Equal(t, 250.0, *out.Physical.BasinArea)
	assert.True(t, out.IncludesAquifer())

	require.NoError(t, out.Scan(nil))
	assert.False(t, out.IncludesAquifer())
	assert.Error(t, out.Scan(42))
}

func TestResultType_UnmarshalText(t *testing.T) {
	var rt ResultType
	require.NoError(t, rt.UnmarshalText([]byte("monthly_results")))
	assert.Equal(t, ResultTypeMonthly, rt)
	require.NoError(t, rt.UnmarshalText([]byte("Indicators")))
	assert.Equal(t, ResultTypeIndicators, rt)
	assert.Error(t, rt.UnmarshalText([]byte("hourly")))
}
