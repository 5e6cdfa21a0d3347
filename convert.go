package biteen

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/biteenlab/biteen-utilities/formatter"
	"github.com/biteenlab/biteen-utilities/imageio"
	"github.com/biteenlab/biteen-utilities/locdb"
	"github.com/biteenlab/biteen-utilities/segmentation"
	"github.com/biteenlab/biteen-utilities/smalllabs"
	"github.com/biteenlab/biteen-utilities/spoton"
	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/tracks"
	"github.com/biteenlab/biteen-utilities/utils"
)

// Options decide where converted files go. Empty fields take the defaults
// of each conversion.
type Options struct {
	// Dest is an explicit output path. Single-file conversions only.
	Dest string
	// DestFolder collects outputs; the source folder when empty.
	DestFolder string
	// Ext replaces the source extension (or StripSuffix) in output names.
	Ext string
	// Pattern selects batch inputs inside a folder.
	Pattern string
	// StripSuffix is cut from source names instead of the extension.
	StripSuffix string
	// Reference is a movie that segmentation masks were drawn on. When set,
	// masks whose frame size disagrees with it are rejected.
	Reference string
}

func (o Options) or(ext, pattern, strip string) Options {
	if o.Ext == "" {
		o.Ext = ext
	}
	if o.Pattern == "" {
		o.Pattern = pattern
	}
	if o.StripSuffix == "" {
		o.StripSuffix = strip
	}
	return o
}

type convertFunc func(src, dst string) error

func convertOne(src string, opts Options, fn convertFunc) (string, error) {
	dst, err := utils.DestPath(src, opts.Dest, opts.DestFolder, opts.Ext, opts.StripSuffix)
	if err != nil {
		return "", err
	}
	if filepath.Clean(dst) == filepath.Clean(src) {
		return "", fmt.Errorf("%w: output %s would overwrite its source", utils.ErrInvalidParameter, dst)
	}
	if err := fn(src, dst); err != nil {
		return "", fmt.Errorf("%s: %w", src, err)
	}
	log.Info().Str("component", "biteen").Str("src", src).Str("dst", dst).Msg("converted")
	return dst, nil
}

// convertFolder converts every match and keeps going past failures; the
// returned error joins them all.
func convertFolder(folder string, opts Options, fn convertFunc) ([]string, error) {
	if opts.Dest != "" {
		return nil, fmt.Errorf("%w: explicit destination given for a batch", utils.ErrInvalidParameter)
	}
	files, err := utils.Glob(folder, opts.Pattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn().Str("component", "biteen").Str("folder", folder).Str("pattern", opts.Pattern).Msg("no files matched")
	}

	var outs []string
	var errs []error
	for _, f := range files {
		dst, err := convertOne(f, opts, fn)
		if err != nil {
			log.Error().Str("component", "biteen").Err(err).Msg("conversion failed")
			errs = append(errs, err)
			continue
		}
		outs = append(outs, dst)
	}
	return outs, errors.Join(errs...)
}

func smallLabsToCSV(src, dst string) error {
	t, err := smalllabs.ReadFile(src, smalllabs.Options{})
	if err != nil {
		return err
	}
	return formatter.WriteCSVFile(dst, t)
}

// SmallLabsFileToCSV writes the localizations of a SMALL-LABS container as
// CSV, next to the source by default.
func SmallLabsFileToCSV(src string, opts Options) (string, error) {
	return convertOne(src, opts.or(".csv", "", ""), smallLabsToCSV)
}

// SmallLabsFolderToCSV converts every "*_fits.mat" in folder.
func SmallLabsFolderToCSV(folder string, opts Options) ([]string, error) {
	return convertFolder(folder, opts.or(".csv", "*_fits.mat", ""), smallLabsToCSV)
}

// CSVToSmallLabs writes a localization CSV as a SMALL-LABS container.
func CSVToSmallLabs(src string, opts Options) (string, error) {
	return convertOne(src, opts.or("_fits.mat", "", ""), func(src, dst string) error {
		t, err := formatter.ReadCSVFile(src)
		if err != nil {
			return err
		}
		return smalllabs.WriteFile(dst, t, smalllabs.Options{})
	})
}

// ConvertImage converts a movie to the format named by opts.Ext (".tif" by
// default).
func ConvertImage(src string, opts Options) (string, error) {
	return convertOne(src, opts.or(".tif", "", ""), imageio.Convert)
}

// ConvertImageBatch converts every "*.nd2" (or opts.Pattern) in folder.
func ConvertImageBatch(folder string, opts Options) ([]string, error) {
	return convertFolder(folder, opts.or(".tif", "*.nd2", ""), imageio.Convert)
}

func readMask(path, reference string) (*segmentation.Labels, error) {
	if reference == "" {
		return segmentation.ReadNPY(path)
	}
	ref, err := imageio.ReadFile(reference)
	if err != nil {
		return nil, err
	}
	return segmentation.ReadNPYFor(path, ref)
}

func cellposeToPhaseMask(reference string) convertFunc {
	return func(src, dst string) error {
		l, err := readMask(src, reference)
		if err != nil {
			return err
		}
		return segmentation.ToPhaseMask(l, dst)
	}
}

// CellposeToPhaseMask writes a segmentation mask as a SMALL-LABS PhaseMask
// container: "cell1_seg.npy" becomes "cell1_PhaseMask.mat".
func CellposeToPhaseMask(src string, opts Options) (string, error) {
	return convertOne(src, opts.or("_PhaseMask.mat", "", "_seg.npy"), cellposeToPhaseMask(opts.Reference))
}

// CellposeToPhaseMaskBatch converts every "*_seg.npy" in folder.
func CellposeToPhaseMaskBatch(folder string, opts Options) ([]string, error) {
	return convertFolder(folder, opts.or("_PhaseMask.mat", "*_seg.npy", "_seg.npy"), cellposeToPhaseMask(opts.Reference))
}

// TagCSV adds the cell label under every localization of a CSV, read from
// the mask at maskPath. With opts.Reference set the mask must match that
// movie's frame size.
func TagCSV(src, maskPath string, opts Options) (string, error) {
	return convertOne(src, opts.or("_tagged.csv", "", ""), func(src, dst string) error {
		t, err := formatter.ReadCSVFile(src)
		if err != nil {
			return err
		}
		l, err := readMask(maskPath, opts.Reference)
		if err != nil {
			return err
		}
		tagged, err := segmentation.Tag(t, l)
		if err != nil {
			return err
		}
		return formatter.WriteFile(dst, tagged)
	})
}

// MaskRegionsCSV writes one row per cell of a mask: label, frame, centroid
// and pixel count.
func MaskRegionsCSV(src string, opts Options) (string, error) {
	return convertOne(src, opts.or("_regions.csv", "", "_seg.npy"), func(src, dst string) error {
		l, err := readMask(src, opts.Reference)
		if err != nil {
			return err
		}
		regions, err := segmentation.Regions(l)
		if err != nil {
			return err
		}
		return formatter.WriteFile(dst, regions)
	})
}

// SmallLabsToSpotOn writes the linked tracks of a SMALL-LABS container as
// Spot-On CSV. Localizations SMALL-LABS did not link are left out.
func SmallLabsToSpotOn(src string, opts Options) (string, error) {
	return convertOne(src, opts.or("_spoton.csv", "", ""), func(src, dst string) error {
		t, err := smalllabs.ReadFile(src, smalllabs.Options{})
		if err != nil {
			return err
		}
		return spoton.WriteFile(dst, linkedOnly(t), spoton.Options{})
	})
}

func linkedOnly(t *table.Table) *table.Table {
	flags := t.Column(table.Tracked)
	if flags == nil {
		return t
	}
	rows := make([]int, 0, len(flags))
	for i, f := range flags {
		if f == 1 {
			rows = append(rows, i)
		}
	}
	return t.Select(rows)
}

// FilterCSV keeps tracks with minLocs..maxLocs localizations (maxLocs = 0
// for no limit) and adds each track's median step size. An Ext ending in
// ".json" writes JSON records instead of CSV.
func FilterCSV(src string, minLocs, maxLocs int, opts Options) (string, error) {
	return convertOne(src, opts.or("_filtered.csv", "", ""), func(src, dst string) error {
		t, err := formatter.ReadCSVFile(src)
		if err != nil {
			return err
		}
		kept, err := tracks.FilterByLengthRange(t, minLocs, maxLocs)
		if err != nil {
			return err
		}
		steps, err := tracks.MedianStepSize(kept, tracks.StepOptions{})
		if err != nil {
			return err
		}
		joined, err := tracks.JoinStepSizes(kept, steps, "")
		if err != nil {
			return err
		}
		return formatter.WriteFile(dst, joined)
	})
}

// TrackSummaryCSV writes one row per track of a localization CSV, as JSON
// when Ext ends in ".json".
func TrackSummaryCSV(src string, opts Options) (string, error) {
	return convertOne(src, opts.or("_tracks.csv", "", ""), func(src, dst string) error {
		t, err := formatter.ReadCSVFile(src)
		if err != nil {
			return err
		}
		sums, err := tracks.Summarize(t, tracks.StepOptions{})
		if err != nil {
			return err
		}
		return formatter.WriteFile(dst, tracks.SummaryTable(sums))
	})
}

// SmallLabsFolderToDB stores every "*_fits.mat" in folder as a dataset of
// the SQLite database at dbPath and returns the new dataset ids.
func SmallLabsFolderToDB(folder, dbPath string, opts Options) ([]string, error) {
	opts = opts.or("", "*_fits.mat", "")
	files, err := utils.Glob(folder, opts.Pattern)
	if err != nil {
		return nil, err
	}
	db, err := locdb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var ids []string
	var errs []error
	for _, f := range files {
		t, err := smalllabs.ReadFile(f, smalllabs.Options{})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id, err := db.Save(filepath.Base(f), t)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
			continue
		}
		log.Info().Str("component", "biteen").Str("src", f).Str("dataset", id).Msg("stored")
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...)
}
