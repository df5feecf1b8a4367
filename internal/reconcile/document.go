// Package reconcile computes and applies create/update/delete plans that
// bring the catalogue in line with a desired-state document and the actual
// state of physical storage.
package reconcile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"datagate/internal/domain"
)

// Document is the desired state of the catalogue: dataset definitions plus
// defaults applied to every definition that leaves a field empty.
type Document struct {
	Defaults Defaults      `yaml:"defaults"`
	Datasets []DatasetSpec `yaml:"datasets"`
	Filters  []string      `yaml:"filters"`
}

// Defaults fills unset fields of every dataset definition.
type Defaults struct {
	Namespace      string            `yaml:"namespace"`
	AccessLevel    string            `yaml:"access_level"`
	Owner          string            `yaml:"owner"`
	Retention      string            `yaml:"retention"`
	Classification string            `yaml:"classification"`
	Tags           map[string]string `yaml:"tags"`
}

// DatasetSpec is one desired dataset definition.
type DatasetSpec struct {
	DatasetID      string            `yaml:"dataset_id"`
	PhysicalRef    string            `yaml:"physical_ref"`
	Namespace      string            `yaml:"namespace"`
	AccessLevel    string            `yaml:"access_level"`
	Title          string            `yaml:"title"`
	Description    string            `yaml:"description"`
	Classification string            `yaml:"classification"`
	Owner          string            `yaml:"owner"`
	Retention      string            `yaml:"retention"`
	Tags           map[string]string `yaml:"tags"`
}

// LoadFile reads and validates a desired-state document from a YAML file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read desired state: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a desired-state document. Unknown fields are
// rejected so a typo in a governance attribute cannot silently drop it.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode desired state: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks structural requirements of the document.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Datasets))
	for i, spec := range d.Datasets {
		if spec.DatasetID == "" {
			return fmt.Errorf("dataset %d: dataset_id is required", i)
		}
		if spec.PhysicalRef == "" {
			return fmt.Errorf("dataset %s: physical_ref is required", spec.DatasetID)
		}
		key := strings.ToLower(spec.DatasetID)
		if seen[key] {
			return fmt.Errorf("dataset %s: duplicate dataset_id", spec.DatasetID)
		}
		seen[key] = true

		level := spec.AccessLevel
		if level == "" {
			level = d.Defaults.AccessLevel
		}
		switch level {
		case "", domain.AccessOpen, domain.AccessInternal, domain.AccessRestricted:
		default:
			return fmt.Errorf("dataset %s: unknown access_level %q", spec.DatasetID, level)
		}
	}
	if _, err := ParseFilters(d.Filters); err != nil {
		return err
	}
	return nil
}

// Entry materializes the spec into a catalogue entry, applying defaults.
// Spec fields win over defaults; tags merge with spec keys winning.
func (s *DatasetSpec) Entry(defaults Defaults) *domain.DatasetEntry {
	entry := &domain.DatasetEntry{
		DatasetID:      s.DatasetID,
		PhysicalRef:    s.PhysicalRef,
		Namespace:      pick(s.Namespace, defaults.Namespace),
		AccessLevel:    pick(s.AccessLevel, defaults.AccessLevel),
		Title:          s.Title,
		Description:    s.Description,
		Classification: pick(s.Classification, defaults.Classification),
		Owner:          pick(s.Owner, defaults.Owner),
		Retention:      pick(s.Retention, defaults.Retention),
		Status:         domain.StatusActive,
	}
	if entry.AccessLevel == "" {
		entry.AccessLevel = domain.AccessInternal
	}

	if len(defaults.Tags) > 0 || len(s.Tags) > 0 {
		entry.Tags = make(map[string]string, len(defaults.Tags)+len(s.Tags))
		for k, v := range defaults.Tags {
			entry.Tags[k] = v
		}
		for k, v := range s.Tags {
			entry.Tags[k] = v
		}
	}
	return entry
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
