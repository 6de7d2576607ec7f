package catalog

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

// SampleQuery selects samples from a GeoJSON sample file.
type SampleQuery struct {
	// ImageKey and MaskKey name the properties holding image and mask ids.
	ImageKey, MaskKey string

	// SplitKey names the property listing the splits of a sample; a sample
	// matches when it contains SplitValue.
	SplitKey, SplitValue string

	// Exclude drops samples whose image id contains any of these substrings.
	Exclude []string
}

type featureCollection struct {
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

// SplitSamples reads the GeoJSON feature collection at path and returns the
// image and mask file names ("<id>.tif") of matching samples. Image and mask
// of a sample share an index, and both lists are shuffled together with rng.
// Samples missing either id are skipped.
func SplitSamples(path string, q SampleQuery, rng *rand.Rand) (images, masks []string, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read samples: %w", err)
	}
	var fc featureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, f := range fc.Features {
		p := f.Properties
		if !contains(p[q.SplitKey], q.SplitValue) {
			continue
		}
		img, ok := p[q.ImageKey].(string)
		if !ok {
			continue
		}
		msk, ok := p[q.MaskKey].(string)
		if !ok {
			continue
		}
		if excluded(img, q.Exclude) {
			continue
		}
		images = append(images, img+".tif")
		masks = append(masks, msk+".tif")
	}

	if rng != nil {
		rng.Shuffle(len(images), func(i, j int) {
			images[i], images[j] = images[j], images[i]
			masks[i], masks[j] = masks[j], masks[i]
		})
	}
	return images, masks, nil
}

// contains reports whether a split property holds value. The property is
// either a string ("train_val") or a list of strings.
func contains(prop any, value string) bool {
	switch v := prop.(type) {
	case string:
		return strings.Contains(v, value)
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == value {
				return true
			}
		}
	}
	return false
}

func excluded(id string, substrs []string) bool {
	for _, s := range substrs {
		if strings.Contains(id, s) {
			return true
		}
	}
	return false
}
