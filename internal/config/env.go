package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable that overrides a setting.
const EnvPrefix = "TILEPREP_"

// LoadDotEnv loads environment variables from the given .env files. Missing
// files are ignored and variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from TILEPREP_* environment variables, for
// example TILEPREP_NUM_THREADS=4 or TILEPREP_TILE_SHAPE=128,128. Values
// that fail to parse are reported together.
func (s *Settings) ApplyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]int) {
		if v, ok := lookup(key); ok {
			l, err := parseInts(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = l
		}
	}

	if v, ok := lookup("SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSEED: %w", EnvPrefix, err))
		} else {
			s.General.Seed = n
		}
	}
	num("NUM_THREADS", &s.General.NumThreads)
	str("LOG_LEVEL", &s.General.LogLevel)
	str("LOG_FILE", &s.General.LogFile)

	str("DATA_DIR", &s.Split.DataDir)
	str("OUT_DIR", &s.Split.OutDir)
	str("SENSOR", &s.Split.Sensor)
	list("TILE_SHAPE", &s.Split.TileShape)
	list("IMG_BANDS_IDX", &s.Split.ImgBandsIdx)
	flag("SLOPE", &s.Split.Slope)
	flag("EXCLUDE_NODATA", &s.Split.ExcludeNodata)
	if v, ok := lookup("OVERLAP"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sOVERLAP: %w", EnvPrefix, err))
		} else {
			s.Split.Overlap = f
		}
	}
	flag("PADDING", &s.Split.Padding)
	flag("COMPRESS", &s.Split.Compress)
	flag("QUICKLOOK", &s.Split.Quicklook)

	str("IMG_DIR", &s.Augment.ImgDir)
	str("MSK_DIR", &s.Augment.MskDir)
	str("FDA_REF_DIR", &s.Augment.FDARefDir)
	num("NAUGS", &s.Augment.NAugs)
	flag("DEM_IN_BANDS", &s.Augment.DEMInBands)

	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// parseInts parses a comma separated list such as "0,1,2".
func parseInts(v string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
