package catalog

import (
	"fmt"
	"path"
	"path/filepath"
)

// Asset keys of one scene. Sensor specific keys are prefixed with the
// sensor name, for example "s1_img".
const (
	suffixImage    = "_img"
	suffixMask     = "_msk"
	suffixValidity = "_valid"

	// KeySlope is the slope band derived from the Copernicus DEM.
	KeySlope = "copdem30_slope"
)

// Scene lists the files of one item for one sensor.
type Scene struct {
	ID    string
	Split string

	Image    string
	Mask     string
	Validity string
	Slope    string
}

// Scene resolves the image, mask, validity and slope files of the item for
// sensor under dataDir. Validity and slope are only required when asked for.
//
// Scenes live in one directory per scene, named after the directory that
// holds the image asset. Every file of the scene is looked up by its base
// name inside that directory, wherever its href points.
func (it *Item) Scene(dataDir, sensor string, validity, slope bool) (*Scene, error) {
	split, err := it.Split()
	if err != nil {
		return nil, err
	}
	img, err := it.Href(sensor + suffixImage)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(dataDir, parentName(img))
	file := func(key string) (string, error) {
		href, err := it.Href(key)
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, path.Base(filepath.ToSlash(href))), nil
	}

	s := &Scene{ID: it.ID, Split: split}
	if s.Image, err = file(sensor + suffixImage); err != nil {
		return nil, err
	}
	if s.Mask, err = file(sensor + suffixMask); err != nil {
		return nil, err
	}
	if validity {
		if s.Validity, err = file(sensor + suffixValidity); err != nil {
			return nil, err
		}
	}
	if slope {
		if s.Slope, err = file(KeySlope); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// parentName returns the name of the directory holding href, or "" for a
// bare file name.
func parentName(href string) string {
	dir := path.Dir(filepath.ToSlash(href))
	if dir == "." || dir == "/" {
		return ""
	}
	return path.Base(dir)
}

func (s *Scene) String() string {
	return fmt.Sprintf("%s (%s)", s.ID, s.Split)
}
