// Package catalog reads the STAC catalog that indexes the scenes of a
// dataset and the GeoJSON sample files that assign scenes to splits.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrMissingAsset is returned when an item lacks a requested asset.
	ErrMissingAsset = errors.New("asset not found")

	// ErrMissingProperty is returned when an item lacks a required property.
	ErrMissingProperty = errors.New("property not found")
)

// Link is a STAC link object.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Catalog is a STAC catalog or collection.
type Catalog struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Links       []Link `json:"links"`

	path string
}

// Asset is a file referenced by an item.
type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type,omitempty"`
	Title string   `json:"title,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Item is a STAC item, one scene of the dataset.
type Item struct {
	Type       string           `json:"type"`
	ID         string           `json:"id"`
	Properties map[string]any   `json:"properties"`
	Assets     map[string]Asset `json:"assets"`
	Links      []Link           `json:"links"`

	path string
}

// Open reads the catalog file at path, typically DATA_DIR/catalog.json.
func Open(path string) (*Catalog, error) {
	c := &Catalog{}
	if err := readJSON(path, c); err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	c.path = path
	return c, nil
}

// Path returns the file the catalog was read from.
func (c *Catalog) Path() string { return c.path }

// Items returns every item reachable from c through child and item links,
// depth first in link order. Each file is visited once.
func (c *Catalog) Items() ([]*Item, error) {
	var items []*Item
	seen := map[string]bool{}
	if err := c.walk(seen, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Catalog) walk(seen map[string]bool, items *[]*Item) error {
	abs, err := filepath.Abs(c.path)
	if err != nil {
		return err
	}
	if seen[abs] {
		return nil
	}
	seen[abs] = true

	for _, l := range c.Links {
		target := resolve(c.path, l.Href)
		switch l.Rel {
		case "child":
			child, err := Open(target)
			if err != nil {
				return err
			}
			if err := child.walk(seen, items); err != nil {
				return err
			}
		case "item":
			abs, err := filepath.Abs(target)
			if err != nil {
				return err
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			it := &Item{}
			if err := readJSON(target, it); err != nil {
				return fmt.Errorf("failed to read item: %w", err)
			}
			it.path = target
			*items = append(*items, it)
		}
	}
	return nil
}

// Split returns the split ("train", "val" or "test") the item belongs to.
func (it *Item) Split() (string, error) {
	v, ok := it.Properties["split"].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: item %s has no split", ErrMissingProperty, it.ID)
	}
	return v, nil
}

// Href returns the href of asset key.
func (it *Item) Href(key string) (string, error) {
	a, ok := it.Assets[key]
	if !ok || a.Href == "" {
		return "", fmt.Errorf("%w: item %s has no %q asset", ErrMissingAsset, it.ID, key)
	}
	return a.Href, nil
}

func resolve(from, href string) string {
	href = filepath.FromSlash(href)
	if filepath.IsAbs(href) {
		return href
	}
	return filepath.Join(filepath.Dir(from), href)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
