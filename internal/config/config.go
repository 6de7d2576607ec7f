// Package config loads tileprep settings from TOML or YAML files with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/s1s2water/tileprep/internal/tiling"
)

// ErrUnknownSensor is returned for sensors without a scaling range.
var ErrUnknownSensor = errors.New("unknown sensor")

// Settings holds all run settings, grouped the way settings files are.
type Settings struct {
	General General `toml:"GENERAL" yaml:"GENERAL"`
	Split   Split   `toml:"SPLIT" yaml:"SPLIT"`
	Augment Augment `toml:"AUGMENT" yaml:"AUGMENT"`
}

// General holds settings shared by all stages.
type General struct {
	Seed       int64  `toml:"SEED" yaml:"SEED"`
	NumThreads int    `toml:"NUM_THREADS" yaml:"NUM_THREADS"`
	LogLevel   string `toml:"LOG_LEVEL" yaml:"LOG_LEVEL"`
	LogFile    string `toml:"LOG_FILE" yaml:"LOG_FILE"`
}

// Split holds settings of the split stage.
type Split struct {
	DataDir string `toml:"DATA_DIR" yaml:"DATA_DIR"`
	OutDir  string `toml:"OUT_DIR" yaml:"OUT_DIR"`
	Sensor  string `toml:"SENSOR" yaml:"SENSOR"`

	// TileShape is (rows, cols) of the output tiles.
	TileShape   []int `toml:"TILE_SHAPE" yaml:"TILE_SHAPE"`
	ImgBandsIdx []int `toml:"IMG_BANDS_IDX" yaml:"IMG_BANDS_IDX"`

	Slope         bool    `toml:"SLOPE" yaml:"SLOPE"`
	ExcludeNodata bool    `toml:"EXCLUDE_NODATA" yaml:"EXCLUDE_NODATA"`
	Overlap       float64 `toml:"OVERLAP" yaml:"OVERLAP"`
	Padding       bool    `toml:"PADDING" yaml:"PADDING"`
	Compress      bool    `toml:"COMPRESS" yaml:"COMPRESS"`
	Quicklook     bool    `toml:"QUICKLOOK" yaml:"QUICKLOOK"`
}

// Augment holds settings of the augment stage.
type Augment struct {
	ImgDir     string `toml:"IMG_DIR" yaml:"IMG_DIR"`
	MskDir     string `toml:"MSK_DIR" yaml:"MSK_DIR"`
	FDARefDir  string `toml:"FDA_REF_DIR" yaml:"FDA_REF_DIR"`
	NAugs      int    `toml:"NAUGS" yaml:"NAUGS"`
	DEMInBands bool   `toml:"DEM_IN_BANDS" yaml:"DEM_IN_BANDS"`
}

// Default returns the settings used for anything a file leaves out.
func Default() *Settings {
	return &Settings{
		General: General{
			NumThreads: runtime.GOMAXPROCS(0),
			LogLevel:   "info",
		},
		Split: Split{
			Sensor:      "s1",
			TileShape:   []int{256, 256},
			ImgBandsIdx: []int{0, 1},
		},
		Augment: Augment{
			NAugs: 1,
		},
	}
}

// Load reads the settings file at path on top of Default. The format is
// chosen by extension: .toml, or .yaml/.yml.
func Load(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(b), s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings format %q", ext)
	}
	return s, nil
}

// SensorRange returns the raw value range that image bands of sensor are
// scaled from.
func SensorRange(sensor string) (lo, hi float64, err error) {
	switch sensor {
	case "s1":
		return 0, 100, nil
	case "s2":
		return 0, 10000, nil
	}
	return 0, 0, fmt.Errorf("%w: %q (supported: s1, s2)", ErrUnknownSensor, sensor)
}

// TileOptions returns the tiling options of the split stage.
func (s *Split) TileOptions() tiling.Options {
	o := tiling.Options{Overlap: s.Overlap, Padding: s.Padding}
	if len(s.TileShape) == 2 {
		o.XSize, o.YSize = s.TileShape[0], s.TileShape[1]
	}
	return o
}
