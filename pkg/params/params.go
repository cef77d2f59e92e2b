// Package params loads the learned factorization-machine weight files that
// parameterize the playout policy and the UCT prior (spec.md 6, "Parameter
// files"), aggregating every malformed line into a single reported error
// rather than failing on the first one.
package params

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/igoengine/ishi/pkg/pattern"
	"github.com/igoengine/ishi/pkg/simulation"
	"github.com/pkg/errors"
)

// Record is one parsed weight line: a feature key plus its scalar weight and
// latent vector. The on-disk grammar accepts, per line:
//
//	<weight>                          (key is the line's ordinal)
//	<key> <weight>                    (simulation gammas, "index weight" pairs)
//	<weight> <v0> <v1> <v2> <v3> <v4> (ordinal key plus latent vector)
//	<key> <weight> <v0> .. <v4>       (fully keyed factorization-machine row)
//
// matching spec.md 6's "one weight per line or index weight pairs" for the
// simulation files and the scalar-plus-latent rows of the UCT files.
type Record struct {
	Key    uint64
	Weight float64
	Latent [5]float64
}

// Parse reads one parameter file's lines into Records. Parse errors on
// individual lines are aggregated via multierror so a single malformed line
// in a large file doesn't hide every other problem; Parse still returns every
// successfully parsed Record alongside the aggregated error, so a caller that
// wants best-effort loading can proceed with partial data.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record
	var errs *multierror.Error

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rec, err := parseLine(text, uint64(len(records)))
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "line %d", line))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "scanning parameter file"))
	}
	return records, errs.ErrorOrNil()
}

func parseLine(text string, ordinal uint64) (Record, error) {
	fields := strings.Fields(text)
	rec := Record{Key: ordinal}

	keyed := len(fields) == 2 || len(fields) == 7
	switch len(fields) {
	case 1, 2, 6, 7:
	default:
		return Record{}, fmt.Errorf("expected 1, 2, 6, or 7 fields, got %d", len(fields))
	}

	if keyed {
		key, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return Record{}, errors.Wrap(err, "parsing key")
		}
		rec.Key = key
		fields = fields[1:]
	}
	weight, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Record{}, errors.Wrap(err, "parsing weight")
	}
	rec.Weight = weight
	for i := 0; i < len(fields)-1; i++ {
		v, err := strconv.ParseFloat(fields[1+i], 64)
		if err != nil {
			return Record{}, errors.Wrapf(err, "parsing latent[%d]", i)
		}
		rec.Latent[i] = v
	}
	return rec, nil
}

// LoadPattern3x3 parses r as a 3x3-pattern weight file and installs every
// record into w.
func LoadPattern3x3(r io.Reader, w *simulation.Weights) error {
	records, err := Parse(r)
	for _, rec := range records {
		w.SetPattern3x3(pattern.Code3x3(rec.Key), rec.Weight, rec.Latent)
	}
	return err
}

// LoadShell parses r as an MDk-shell weight file (shellIdx in [0,3] for
// MD2..MD5) and installs every record into w. MD2 rows are keyed by raw shell
// code; MD3..MD5 rows by the canonical pattern hash the training tool emits.
func LoadShell(r io.Reader, shellIdx int, w *simulation.Weights) error {
	records, err := Parse(r)
	for _, rec := range records {
		w.SetShell(shellIdx, rec.Key, rec.Weight, rec.Latent)
	}
	return err
}

// LoadTactical parses r as the combined tactical-feature weight file (one
// record per simulation.Feature, in enum order) and installs every record.
func LoadTactical(r io.Reader, w *simulation.Weights) error {
	records, err := Parse(r)
	for i, rec := range records {
		w.SetTactical(simulation.Feature(i), rec.Weight, rec.Latent)
	}
	return err
}

// LoadTacticalCategory parses r as one tactical category's weight file (the
// per-category sim_params files) and installs its lead record under f. Files
// with finer sub-feature rows contribute their first row, which the training
// tool writes as the category's base weight.
func LoadTacticalCategory(r io.Reader, f simulation.Feature, w *simulation.Weights) error {
	records, err := Parse(r)
	if len(records) > 0 {
		w.SetTactical(f, records[0].Weight, records[0].Latent)
	}
	return err
}

// LoadDistance parses r as the PreviousDistance gamma file: one multiplier
// per Manhattan distance from the previous move.
func LoadDistance(r io.Reader, w *simulation.Weights) error {
	records, err := Parse(r)
	for _, rec := range records {
		w.SetDistance(int(rec.Key), rec.Weight)
	}
	return err
}

// LoadMoveDistance parses r as a UCT move-distance feature file; which
// selects distance-from-latest-move (0) or distance-from-second-latest (1).
func LoadMoveDistance(r io.Reader, which int, w *simulation.Weights) error {
	records, err := Parse(r)
	for _, rec := range records {
		w.SetMoveDistance(which, int(rec.Key), rec.Weight, rec.Latent)
	}
	return err
}

// LoadPosID parses r as the board-position-class weight file.
func LoadPosID(r io.Reader, w *simulation.Weights) error {
	records, err := Parse(r)
	for _, rec := range records {
		w.SetPosID(int(rec.Key), rec.Weight, rec.Latent)
	}
	return err
}

// LoadPass parses r as the single-record pass-prior file.
func LoadPass(r io.Reader, w *simulation.Weights) error {
	records, err := Parse(r)
	if len(records) > 0 {
		w.SetPass(records[0].Weight, records[0].Latent)
	}
	return err
}

// LoadBias parses r as the single-record global-bias (WeightZero) file.
func LoadBias(r io.Reader, w *simulation.Weights) error {
	records, err := Parse(r)
	if len(records) > 0 {
		w.SetBias(records[0].Weight, records[0].Latent)
	}
	return err
}

// LoadNakade parses r as the single-record nakade vital-point weight file and
// installs it into w. Only the first record is used; the nakade bonus is one
// scalar/latent pair, not keyed by pattern code.
func LoadNakade(r io.Reader, w *simulation.Weights) error {
	records, err := Parse(r)
	if len(records) > 0 {
		w.SetNakade(records[0].Weight, records[0].Latent)
	}
	return err
}

// LoadAll loads every configured source into a fresh Weights set, aggregating
// every source's parse error (malformed line) via multierror so a caller sees
// the complete picture of what failed to load in one report. A nil source is
// skipped without error.
func LoadAll(sources Sources) (*simulation.Weights, error) {
	w := simulation.NewWeights()
	var errs *multierror.Error

	load := func(name string, r io.Reader, fn func(io.Reader, *simulation.Weights) error) {
		if r == nil {
			return
		}
		if err := fn(r, w); err != nil {
			errs = multierror.Append(errs, errors.Wrap(err, name))
		}
	}
	load("pattern3x3", sources.Pattern3x3, LoadPattern3x3)
	for i, r := range sources.Shells {
		idx := i
		load(fmt.Sprintf("shell[%d]", i), r, func(r io.Reader, w *simulation.Weights) error {
			return LoadShell(r, idx, w)
		})
	}
	load("tactical", sources.Tactical, LoadTactical)
	load("nakade", sources.Nakade, LoadNakade)
	load("distance", sources.Distance, LoadDistance)
	load("pass", sources.Pass, LoadPass)
	return w, errs.ErrorOrNil()
}

// Sources names the optional readers LoadAll draws from. A nil reader skips
// that source, leaving its table empty (every lookup falls back to the
// zero-value feature -- see simulation.Weights).
type Sources struct {
	Pattern3x3 io.Reader
	Shells     [4]io.Reader
	Tactical   io.Reader
	Nakade     io.Reader
	Distance   io.Reader
	Pass       io.Reader
}
