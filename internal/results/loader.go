package results

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/target/hydrosim/internal/artifact"
	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/hydromodel"
)

// ErrMalformedArtifact marks daily artifacts that cannot be used as-is.
var ErrMalformedArtifact = errors.New("malformed daily artifact")

// Source locates a daily artifact in a sink.
type Source struct {
	Sink artifact.Sink
	Key  string
}

// SourceFor returns the daily artifact of a model run, or nil when the run produced none.
func SourceFor(arts *hydromodel.Artifacts) *Source {
	key, ok := arts.Key(hydromodel.DailyFile)
	if !ok || arts.Sink == nil {
		return nil
	}
	return &Source{Sink: arts.Sink, Key: key}
}

// Series is a loaded daily series and where it came from.
type Series struct {
	Daily     *model.DailySeries
	Synthetic bool
	// FallbackReason is set when the series was synthesized.
	FallbackReason error
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Logger *slog.Logger
	// Rand returns the generator for a simulation's fallback series.
	// Defaults to one seeded from the simulation id and attempt.
	Rand func(sim *model.Simulation) *rand.Rand
}

// Loader reconciles model artifacts with the synthetic fallback. It never fails:
// an absent, unreadable or malformed artifact yields a synthetic series.
type Loader struct {
	logger  *slog.Logger
	newRand func(sim *model.Simulation) *rand.Rand
}

// NewLoader creates a Loader.
func NewLoader(opts LoaderOptions) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newRand := opts.Rand
	if newRand == nil {
		newRand = func(sim *model.Simulation) *rand.Rand {
			// Offset from the model seed so the fallback is not a replay of the model's weather.
			return hydromodel.NewRand(hydromodel.Seed(sim.ID, sim.Attempt) + 1)
		}
	}
	return &Loader{logger: logger.With("component", "result_loader"), newRand: newRand}
}

// Load reads the daily series from src, falling back to synthesis when src is nil or unusable.
func (l *Loader) Load(ctx context.Context, src *Source, sim *model.Simulation) *Series {
	if src == nil {
		return l.Fallback(ctx, sim, errors.New("no daily artifact"))
	}
	daily, err := ReadDaily(ctx, src, sim.Period())
	if err != nil {
		return l.Fallback(ctx, sim, err)
	}
	return &Series{Daily: daily}
}

// Fallback synthesizes the series for sim, recording why.
func (l *Loader) Fallback(ctx context.Context, sim *model.Simulation, reason error) *Series {
	l.logger.WarnContext(ctx, "using synthetic daily series",
		"simulation_id", sim.ID, "attempt", sim.Attempt, "reason", reason)
	return &Series{
		Daily:          Synthesize(sim.Period(), SynthesisInputFor(sim), l.newRand(sim)),
		Synthetic:      true,
		FallbackReason: reason,
	}
}

// Header names of the daily artifact, matched case-insensitively.
const (
	colDate               = "date"
	colPrecipitation      = "precipitation"
	colRunoff             = "runoff"
	colEvapotranspiration = "evapotranspiration"
	colInfiltration       = "infiltration"
	colTemperature        = "temperature"
)

// ReadDaily parses the daily artifact at src for period.
//
// Columns are located by header name. A missing variable column becomes an
// empty series; a missing Date column is regenerated from the period. Rows
// past the period are ignored; too few rows or an unparseable number is an error.
func ReadDaily(ctx context.Context, src *Source, period model.Period) (*model.DailySeries, error) {
	rc, err := src.Sink.Open(ctx, src.Key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedArtifact, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	want := period.Len()
	columns := []string{colPrecipitation, colRunoff, colEvapotranspiration, colInfiltration, colTemperature}
	values := make(map[string][]float64, len(columns))
	for _, c := range columns {
		if _, ok := index[c]; ok {
			values[c] = make([]float64, 0, want)
		} else {
			values[c] = []float64{}
		}
	}
	dateCol, hasDates := index[colDate]
	var dates []string
	if hasDates {
		dates = make([]string, 0, want)
	}

	rows := 0
	for rows < want {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedArtifact, rows+1, err)
		}
		if hasDates {
			d, perr := model.ParseDate(field(record, dateCol))
			if perr != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedArtifact, rows+1, perr)
			}
			dates = append(dates, d.String())
		}
		for _, c := range columns {
			i, ok := index[c]
			if !ok {
				continue
			}
			v, perr := strconv.ParseFloat(strings.TrimSpace(field(record, i)), 64)
			if perr != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %v", ErrMalformedArtifact, rows+1, c, perr)
			}
			values[c] = append(values[c], v)
		}
		rows++
	}
	if rows != want {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", ErrMalformedArtifact, want, rows)
	}
	if !hasDates {
		dates = period.Dates()
	}

	return &model.DailySeries{
		Dates:              dates,
		Precipitation:      values[colPrecipitation],
		Runoff:             values[colRunoff],
		Evapotranspiration: values[colEvapotranspiration],
		Infiltration:       values[colInfiltration],
		Temperature:        values[colTemperature],
	}, nil
}

func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}
