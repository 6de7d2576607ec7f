package config

import (
	"errors"
	"fmt"
)

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// ValidateSplit checks the settings the split stage needs. All offending
// fields are reported together.
func (s *Settings) ValidateSplit() error {
	errs := s.General.validate()
	sp := s.Split

	if sp.DataDir == "" {
		errs = append(errs, fieldError("SPLIT.DATA_DIR", "must be set"))
	}
	if sp.OutDir == "" {
		errs = append(errs, fieldError("SPLIT.OUT_DIR", "must be set"))
	}
	if _, _, err := SensorRange(sp.Sensor); err != nil {
		errs = append(errs, fieldError("SPLIT.SENSOR", err.Error()))
	}
	if len(sp.TileShape) != 2 {
		errs = append(errs, fieldError("SPLIT.TILE_SHAPE", fmt.Sprintf("want 2 values, got %v", sp.TileShape)))
	} else if err := sp.TileOptions().Validate(); err != nil {
		errs = append(errs, fieldError("SPLIT.TILE_SHAPE/OVERLAP", err.Error()))
	}
	if len(sp.ImgBandsIdx) == 0 {
		errs = append(errs, fieldError("SPLIT.IMG_BANDS_IDX", "must list at least one band"))
	}
	for _, b := range sp.ImgBandsIdx {
		if b < 0 {
			errs = append(errs, fieldError("SPLIT.IMG_BANDS_IDX", fmt.Sprintf("negative band %d", b)))
			break
		}
	}
	return join(errs)
}

// ValidateAugment checks the settings the augment stage needs.
func (s *Settings) ValidateAugment() error {
	errs := s.General.validate()
	a := s.Augment

	if a.ImgDir == "" {
		errs = append(errs, fieldError("AUGMENT.IMG_DIR", "must be set"))
	}
	if a.MskDir == "" {
		errs = append(errs, fieldError("AUGMENT.MSK_DIR", "must be set"))
	}
	if a.NAugs < 1 {
		errs = append(errs, fieldError("AUGMENT.NAUGS", fmt.Sprintf("must be at least 1, got %d", a.NAugs)))
	}
	return join(errs)
}

func (g General) validate() []error {
	var errs []error
	if g.NumThreads < 1 {
		errs = append(errs, fieldError("GENERAL.NUM_THREADS", fmt.Sprintf("must be at least 1, got %d", g.NumThreads)))
	}
	switch g.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fieldError("GENERAL.LOG_LEVEL", fmt.Sprintf("unknown level %q", g.LogLevel)))
	}
	return errs
}

func fieldError(field, msg string) error {
	return fmt.Errorf("%s: %s", field, msg)
}

func join(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}
