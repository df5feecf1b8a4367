package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagate/internal/domain"
)

const sampleDocument = `
defaults:
  namespace: gold
  access_level: internal
  owner: data-platform
  tags:
    managed: "true"
datasets:
  - dataset_id: datasets.gold.sales
    physical_ref: main.sales_fact
    title: Daily sales
  - dataset_id: datasets.raw.events
    physical_ref: main.raw_events
    namespace: raw
    access_level: restricted
    tags:
      pii: "true"
filters:
  - "-datasets.gold.tmp_*"
`

func TestParse_Document(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)
	require.Len(t, doc.Datasets, 2)
	assert.Equal(t, "gold", doc.Defaults.Namespace)
	assert.Equal(t, []string{"-datasets.gold.tmp_*"}, doc.Filters)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
datasets:
  - dataset_id: a
    physical_ref: t
    acces_level: internal
`))
	require.Error(t, err)
}

func TestParse_RequiresDatasetID(t *testing.T) {
	_, err := Parse([]byte(`
datasets:
  - physical_ref: t
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset_id is required")
}

func TestParse_RequiresPhysicalRef(t *testing.T) {
	_, err := Parse([]byte(`
datasets:
  - dataset_id: datasets.gold.sales
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "physical_ref is required")
}

func TestParse_RejectsDuplicateIDs(t *testing.T) {
	_, err := Parse([]byte(`
datasets:
  - dataset_id: datasets.gold.sales
    physical_ref: a
  - dataset_id: DATASETS.GOLD.SALES
    physical_ref: b
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestParse_RejectsUnknownAccessLevel(t *testing.T) {
	_, err := Parse([]byte(`
datasets:
  - dataset_id: a
    physical_ref: t
    access_level: secret
`))
	require.Error(t, err)
}

func TestDatasetSpec_EntryAppliesDefaults(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	sales := doc.Datasets[0].Entry(doc.Defaults)
	assert.Equal(t, "gold", sales.Namespace)
	assert.Equal(t, domain.AccessInternal, sales.AccessLevel)
	assert.Equal(t, "data-platform", sales.Owner)
	assert.Equal(t, "true", sales.Tags["managed"])
	assert.Equal(t, domain.StatusActive, sales.Status)

	events := doc.Datasets[1].Entry(doc.Defaults)
	assert.Equal(t, "raw", events.Namespace)
	assert.Equal(t, domain.AccessRestricted, events.AccessLevel)
	// Default tags merge with spec tags.
	assert.Equal(t, "true", events.Tags["managed"])
	assert.Equal(t, "true", events.Tags["pii"])
}

func TestDatasetSpec_EntryFallsBackToInternal(t *testing.T) {
	spec := DatasetSpec{DatasetID: "a", PhysicalRef: "t"}
	entry := spec.Entry(Defaults{})
	assert.Equal(t, domain.AccessInternal, entry.AccessLevel)
}
