package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/hydromodel"
	apperrors "github.com/target/hydrosim/internal/errors"
)

func buildSets(t *testing.T, days int, synthetic bool) []*model.ResultSet {
	t.Helper()
	sim := testSimulation()
	sim.EndDate = sim.StartDate.AddDays(days - 1)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sets, err := Build(BuildInput{
		Simulation: sim,
		Series:     &Series{Daily: constantSeries(days, 2), Synthetic: synthetic},
		Params:     hydromodel.Params{Physical: hydromodel.DefaultPhysical(), Socio: hydromodel.DefaultSocio()},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	})
	require.NoError(t, err)
	return sets
}

func TestBuild(t *testing.T) {
	sets := buildSets(t, 40, true)
	require.Len(t, sets, 4)
	for i, rt := range model.ResultTypes() {
		assert.Equal(t, rt, sets[i].ResultType)
		assert.True(t, sets[i].Metadata.Synthetic)
		assert.Equal(t, 1, sets[i].Metadata.Attempt)
		assert.Equal(t, model.ModelVersion, sets[i].Metadata.ModelVersion)
		assert.InDelta(t, 1.5, sets[i].Metadata.ProcessingTimeSeconds, 1e-9)
		assert.NotEmpty(t, sets[i].ID)
	}

	var monthly model.MonthlySeries
	require.NoError(t, json.Unmarshal(sets[1].Data, &monthly))
	assert.Equal(t, []string{"Month 01", "Month 02"}, monthly.Months)

	var indicators model.Indicators
	require.NoError(t, json.Unmarshal(sets[3].Data, &indicators))
	assert.Len(t, indicators, len(IndicatorNames()))
}

func TestWriteCSV(t *testing.T) {
	sets := buildSets(t, 3, false)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sets))

	tables := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n\n")
	require.Len(t, tables, 3)

	daily, err := csv.NewReader(strings.NewReader(tables[0])).ReadAll()
	require.NoError(t, err)
	require.Len(t, daily, 4)
	assert.Equal(t, []string{"dates", "precipitation", "runoff", "evapotranspiration", "infiltration", "temperature"}, daily[0])
	assert.Equal(t, []string{"2023-01-01", "2", "0.5", "1", "0.5", "10"}, daily[1])

	monthly, err := csv.NewReader(strings.NewReader(tables[1])).ReadAll()
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, "Month 01", monthly[1][0])

	annual, err := csv.NewReader(strings.NewReader(tables[2])).ReadAll()
	require.NoError(t, err)
	require.Len(t, annual, 2)
	assert.Equal(t, "total_precipitation", annual[0][0])
	assert.Equal(t, "6", annual[1][0])
	assert.Contains(t, annual[0], "water_balance.balance_error")
}

func TestWriteCSV_EmptyColumn(t *testing.T) {
	d := constantSeries(2, 1)
	d.Runoff = []float64{}
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []*model.ResultSet{{ResultType: model.ResultTypeDaily, Data: raw}}))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-01-01", "1", "", "0.5", "0.25", "10"}, rows[1])
}

func TestWriteJSON(t *testing.T) {
	sets := buildSets(t, 3, false)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sets))
	assert.Contains(t, buf.String(), "\n  \"annual\": {")

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, 4)

	var daily model.DailySeries
	require.NoError(t, json.Unmarshal(out["daily"], &daily))
	assert.Equal(t, 3, daily.Len())
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, ExportCSV, f)
	assert.Equal(t, "simulation_abc_results.csv", f.Filename("abc"))
	assert.Equal(t, "text/csv", f.ContentType())

	_, err = ParseExportFormat("pdf")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestProject(t *testing.T) {
	sets := buildSets(t, 3, false)

	out, err := Project(nil, "[?result_type=='annual'].data.total_precipitation | [0]", sets)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, out, 1e-9)

	same, err := Project(nil, "  ", sets)
	require.NoError(t, err)
	assert.Equal(t, sets, same)

	_, err = Project(nil, "[?result_type==", sets)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "query", apperrors.GetField(err))
}

func TestScorers(t *testing.T) {
	in := ScoreInput{
		Annual:   Annual(constantSeries(365, 3)),
		Days:     365,
		Physical: hydromodel.DefaultPhysical(),
		Socio:    hydromodel.DefaultSocio(),
	}
	formula := FormulaScorer{}.Score(in)
	for _, name := range IndicatorNames() {
		v, ok := formula[name]
		require.True(t, ok, name)
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}

	dry := in
	dry.Annual = Annual(constantSeries(365, 0))
	assert.InDelta(t, 1.0, FormulaScorer{}.Score(dry)[IndicatorWaterStress], 1e-9)

	constant := ConstantScorer{}.Score(in)
	assert.InDelta(t, 0.35, constant[IndicatorWaterStress], 1e-9)
	assert.InDelta(t, 0.63, constant[IndicatorGovernanceEffectiveness], 1e-9)
}
