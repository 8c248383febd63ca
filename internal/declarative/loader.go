package declarative

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"fireant/dataset"
)

// LoadOptions configures YAML loading behavior.
type LoadOptions struct {
	AllowUnknownFields bool
}

// Catalog holds the datasets and blends of one document by name.
type Catalog struct {
	byName map[string]*dataset.DataSet
	order  []string
}

// Get looks up a dataset or blend by name.
func (c *Catalog) Get(name string) (*dataset.DataSet, bool) {
	ds, ok := c.byName[name]
	return ds, ok
}

// Names lists the dataset and blend names in declaration order.
func (c *Catalog) Names() []string {
	return append([]string{}, c.order...)
}

// Load reads and builds the catalog in path. Every dataset executes on db.
func Load(path string, db *dataset.Database, opts LoadOptions) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified config files
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cat, err := Build(doc, db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a document and checks its apiVersion and kind.
func Parse(data []byte, opts LoadOptions) (*Document, error) {
	var doc Document
	if opts.AllowUnknownFields {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil {
			return nil, err
		}
	}
	if doc.APIVersion != SupportedAPIVersion {
		return nil, fmt.Errorf("unsupported apiVersion %q (expected %q)", doc.APIVersion, SupportedAPIVersion)
	}
	if doc.Kind != KindDatasetCatalog {
		return nil, fmt.Errorf("unsupported kind %q (expected %q)", doc.Kind, KindDatasetCatalog)
	}
	return &doc, nil
}

// Marshal renders a document back to YAML with stable dataset ordering.
func Marshal(doc *Document) ([]byte, error) {
	out := *doc
	out.Datasets = append([]DatasetSpec{}, doc.Datasets...)
	sort.SliceStable(out.Datasets, func(i, j int) bool { return out.Datasets[i].Name < out.Datasets[j].Name })

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
