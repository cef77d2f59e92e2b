package params

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/igoengine/ishi/pkg/simulation"
	"github.com/pkg/errors"
	"github.com/seekerror/logw"
)

// On-disk layout (spec.md 6, "Parameter files"): a base directory holding
// sim_params/ (playout-policy gammas) and uct_params/ (child-prior
// factorization-machine rows), each file named for the feature family it
// carries. A directory missing one or more files simply leaves those tables
// unloaded; the loaders log what they found.
const (
	SimDirName = "sim_params"
	UctDirName = "uct_params"
)

// Simulation parameter files.
const (
	FilePreviousDistance = "PreviousDistance.txt"
	FileCapture          = "CaptureFeature.txt"
	FileSaveExtension    = "SaveExtensionFeature.txt"
	FileAtari            = "AtariFeature.txt"
	FileExtension        = "ExtensionFeature.txt"
	FileDame             = "DameFeature.txt"
	FileThrowIn          = "ThrowInFeature.txt"
	FilePat3             = "Pat3.txt"
	FileMD2              = "MD2.txt"
	FileNakade           = "Nakade.txt"
)

// UCT parameter files (beyond those shared with the simulation set).
const (
	FileWeightZero    = "WeightZero.txt"
	FileTactical      = "TacticalFeature.txt"
	FilePosID         = "PosID.txt"
	FilePass          = "Pass.txt"
	FileMoveDistance1 = "MoveDistance1.txt"
	FileMoveDistance2 = "MoveDistance2.txt"
	FileMD3           = "MD3.txt"
	FileMD4           = "MD4.txt"
	FileMD5           = "MD5.txt"
)

// tacticalCategoryFiles maps each per-category simulation file to the
// tactical feature it parameterizes.
var tacticalCategoryFiles = []struct {
	name    string
	feature simulation.Feature
}{
	{FileCapture, simulation.FeatureCapture},
	{FileSaveExtension, simulation.FeatureSaveExtension},
	{FileAtari, simulation.FeatureAtari},
	{FileExtension, simulation.FeatureExtension},
	{FileDame, simulation.FeatureDameFill},
	{FileThrowIn, simulation.FeatureThrowIn},
}

// LoadSimDir loads the playout-policy weight set from dir (typically
// <base>/sim_params), aggregating per-file errors.
func LoadSimDir(ctx context.Context, dir string) (*simulation.Weights, error) {
	w := simulation.NewWeights()
	var errs *multierror.Error

	loadFile(ctx, dir, FilePat3, &errs, func(r io.Reader) error { return LoadPattern3x3(r, w) })
	loadFile(ctx, dir, FileMD2, &errs, func(r io.Reader) error { return LoadShell(r, 0, w) })
	loadFile(ctx, dir, FilePreviousDistance, &errs, func(r io.Reader) error { return LoadDistance(r, w) })
	loadFile(ctx, dir, FileNakade, &errs, func(r io.Reader) error { return LoadNakade(r, w) })
	for _, tc := range tacticalCategoryFiles {
		feature := tc.feature
		loadFile(ctx, dir, tc.name, &errs, func(r io.Reader) error { return LoadTacticalCategory(r, feature, w) })
	}
	return w, errs.ErrorOrNil()
}

// LoadUctDir loads the child-prior weight set from dir (typically
// <base>/uct_params), aggregating per-file errors.
func LoadUctDir(ctx context.Context, dir string) (*simulation.Weights, error) {
	w := simulation.NewWeights()
	var errs *multierror.Error

	loadFile(ctx, dir, FileWeightZero, &errs, func(r io.Reader) error { return LoadBias(r, w) })
	loadFile(ctx, dir, FileTactical, &errs, func(r io.Reader) error { return LoadTactical(r, w) })
	loadFile(ctx, dir, FilePosID, &errs, func(r io.Reader) error { return LoadPosID(r, w) })
	loadFile(ctx, dir, FilePass, &errs, func(r io.Reader) error { return LoadPass(r, w) })
	loadFile(ctx, dir, FileMoveDistance1, &errs, func(r io.Reader) error { return LoadMoveDistance(r, 0, w) })
	loadFile(ctx, dir, FileMoveDistance2, &errs, func(r io.Reader) error { return LoadMoveDistance(r, 1, w) })
	loadFile(ctx, dir, FilePat3, &errs, func(r io.Reader) error { return LoadPattern3x3(r, w) })
	loadFile(ctx, dir, FileMD2, &errs, func(r io.Reader) error { return LoadShell(r, 0, w) })
	loadFile(ctx, dir, FileMD3, &errs, func(r io.Reader) error { return LoadShell(r, 1, w) })
	loadFile(ctx, dir, FileMD4, &errs, func(r io.Reader) error { return LoadShell(r, 2, w) })
	loadFile(ctx, dir, FileMD5, &errs, func(r io.Reader) error { return LoadShell(r, 3, w) })
	loadFile(ctx, dir, FileNakade, &errs, func(r io.Reader) error { return LoadNakade(r, w) })
	return w, errs.ErrorOrNil()
}

// LoadRoot loads both weight sets from base/sim_params and base/uct_params.
// A missing base directory is an error (spec.md 7, "Configuration error");
// missing individual files within it are not, since a fresh install may only
// ship a subset of the learned tables.
func LoadRoot(ctx context.Context, base string) (sim, uct *simulation.Weights, err error) {
	if _, statErr := os.Stat(base); statErr != nil {
		return nil, nil, errors.Wrap(statErr, "parameter directory")
	}
	var errs *multierror.Error
	sim, err = LoadSimDir(ctx, filepath.Join(base, SimDirName))
	if err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, SimDirName))
	}
	uct, err = LoadUctDir(ctx, filepath.Join(base, UctDirName))
	if err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, UctDirName))
	}
	return sim, uct, errs.ErrorOrNil()
}

func loadFile(ctx context.Context, dir, name string, errs **multierror.Error, fn func(io.Reader) error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return // optional file; leave the table empty
	}
	defer f.Close()
	if err := fn(f); err != nil {
		*errs = multierror.Append(*errs, errors.Wrap(err, name))
		return
	}
	logw.Infof(ctx, "Loaded %v", filepath.Join(dir, name))
}
