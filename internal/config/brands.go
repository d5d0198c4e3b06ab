package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Brand folders the scanner recognizes under the sync root.
const (
	FolderTech    = "tech"
	FolderRecords = "records"
)

// Brand seeds one brand row and maps its scan folder to its slug.
type Brand struct {
	Name   string `yaml:"name"`
	Slug   string `yaml:"slug"`
	Folder string `yaml:"folder"`
}

type brandsFile struct {
	Brands []Brand `yaml:"brands"`
}

// DefaultBrands returns the built-in brand seed.
func DefaultBrands() []Brand {
	return []Brand{
		{Name: "43v3r Technology", Slug: "tech", Folder: FolderTech},
		{Name: "43v3r Records", Slug: "records", Folder: FolderRecords},
	}
}

// LoadBrands reads the brand seed from a YAML file. An empty path yields DefaultBrands.
//
//	brands:
//	  - name: 43v3r Technology
//	    slug: 43v3r_technology
//	    folder: tech
func LoadBrands(path string) ([]Brand, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultBrands(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading brands file: %w", err)
	}
	var f brandsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing brands file %s: %w", path, err)
	}
	if err := validateBrands(f.Brands); err != nil {
		return nil, fmt.Errorf("brands file %s: %w", path, err)
	}
	return f.Brands, nil
}

// BrandSlugs maps scan folder to brand slug.
func BrandSlugs(brands []Brand) map[string]string {
	out := make(map[string]string, len(brands))
	for _, b := range brands {
		out[b.Folder] = b.Slug
	}
	return out
}

func validateBrands(brands []Brand) error {
	if len(brands) == 0 {
		return fmt.Errorf("no brands defined")
	}
	slugs := make(map[string]bool, len(brands))
	folders := make(map[string]bool, len(brands))
	for _, b := range brands {
		if b.Name == "" || b.Slug == "" {
			return fmt.Errorf("brand %+v: name and slug are required", b)
		}
		if b.Folder != FolderTech && b.Folder != FolderRecords {
			return fmt.Errorf("brand %q: folder must be %q or %q, got %q", b.Slug, FolderTech, FolderRecords, b.Folder)
		}
		if slugs[b.Slug] {
			return fmt.Errorf("duplicate brand slug %q", b.Slug)
		}
		if folders[b.Folder] {
			return fmt.Errorf("duplicate brand folder %q", b.Folder)
		}
		slugs[b.Slug] = true
		folders[b.Folder] = true
	}
	return nil
}
