package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	lib "github.com/biteenlab/biteen-utilities"
	"github.com/biteenlab/biteen-utilities/config"
)

func main() {
	call := flag.String("call", "sl2csv", "sl2csv|csv2sl|image|mask|tag|regions|spoton|filter|summary|sl2db")
	src := flag.String("src", "", "source file (single conversion)")
	folder := flag.String("folder", "", "source folder (batch conversion)")
	dest := flag.String("dest", "", "explicit output path (single conversion only)")
	destFolder := flag.String("destFolder", "", "output folder (default: next to the source)")
	ext := flag.String("ext", "", "output extension or suffix (default depends on -call); a .json suffix writes JSON for filter, summary, tag and regions")
	pattern := flag.String("pattern", "", "batch glob pattern (default depends on -call)")
	stripSuffix := flag.String("stripSuffix", "", "source suffix replaced by -ext")
	minLocs := flag.Int("minLocs", 2, "filter: minimum localizations per track")
	maxLocs := flag.Int("maxLocs", 0, "filter: maximum localizations per track (0 = no limit)")
	dbPath := flag.String("db", "localizations.db", "sl2db: SQLite database path")
	maskPath := flag.String("mask", "", "tag: segmentation mask (.npy)")
	reference := flag.String("image", "", "mask, tag, regions: movie the masks were drawn on")
	configPath := flag.String("config", "", "config file (default: biteen.yml or config.yml if present)")
	logLevel := flag.String("log", "info", "debug|info|warn|error")
	flag.Parse()

	if err := lib.InitLogging(*logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := loadConfig(*configPath); err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	if (*src == "") == (*folder == "") {
		log.Fatal().Msg("exactly one of -src or -folder is required")
	}

	opts := lib.Options{
		Dest:        *dest,
		DestFolder:  *destFolder,
		Ext:         *ext,
		Pattern:     *pattern,
		StripSuffix: *stripSuffix,
		Reference:   *reference,
	}

	var outs []string
	var err error
	switch *call {
	case "sl2csv":
		outs, err = run(*src, *folder, opts, lib.SmallLabsFileToCSV, lib.SmallLabsFolderToCSV)
	case "csv2sl":
		outs, err = run(*src, *folder, opts, lib.CSVToSmallLabs, nil)
	case "image":
		outs, err = run(*src, *folder, opts, lib.ConvertImage, lib.ConvertImageBatch)
	case "mask":
		outs, err = run(*src, *folder, opts, lib.CellposeToPhaseMask, lib.CellposeToPhaseMaskBatch)
	case "tag":
		if *maskPath == "" {
			log.Fatal().Msg("tag needs -mask")
		}
		outs, err = run(*src, *folder, opts, func(src string, o lib.Options) (string, error) {
			return lib.TagCSV(src, *maskPath, o)
		}, nil)
	case "regions":
		outs, err = run(*src, *folder, opts, lib.MaskRegionsCSV, nil)
	case "spoton":
		outs, err = run(*src, *folder, opts, lib.SmallLabsToSpotOn, nil)
	case "filter":
		outs, err = run(*src, *folder, opts, func(src string, o lib.Options) (string, error) {
			return lib.FilterCSV(src, *minLocs, *maxLocs, o)
		}, nil)
	case "summary":
		outs, err = run(*src, *folder, opts, lib.TrackSummaryCSV, nil)
	case "sl2db":
		if *folder == "" {
			log.Fatal().Msg("sl2db needs -folder")
		}
		outs, err = lib.SmallLabsFolderToDB(*folder, *dbPath, opts)
	default:
		log.Fatal().Str("call", *call).Msg("unknown call")
	}

	for _, o := range outs {
		fmt.Println(o)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("conversion failed")
	}
}

func loadConfig(path string) error {
	if path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return err
		}
		config.Config = cfg
		return nil
	}
	if err := config.LoadAppConfig(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

type singleFunc func(string, lib.Options) (string, error)
type batchFunc func(string, lib.Options) ([]string, error)

func run(src, folder string, opts lib.Options, single singleFunc, batch batchFunc) ([]string, error) {
	if src != "" {
		out, err := single(src, opts)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	}
	if batch == nil {
		return nil, fmt.Errorf("this call converts one -src file at a time")
	}
	return batch(folder, opts)
}
