package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters_Invalid(t *testing.T) {
	_, err := ParseFilters([]string{""})
	require.Error(t, err)

	_, err = ParseFilters([]string{"+"})
	require.Error(t, err)

	_, err = ParseFilters([]string{"+datasets.[bad"})
	require.Error(t, err)
}

func TestFilters_NoFiltersSelectsEverything(t *testing.T) {
	filters, err := ParseFilters(nil)
	require.NoError(t, err)
	assert.True(t, filters.Selected("datasets.gold.sales"))
}

func TestFilters_IncludeOnly(t *testing.T) {
	filters, err := ParseFilters([]string{"+datasets.gold.*"})
	require.NoError(t, err)

	assert.True(t, filters.Selected("datasets.gold.sales"))
	assert.False(t, filters.Selected("datasets.raw.events"))
}

func TestFilters_ExcludeWins(t *testing.T) {
	filters, err := ParseFilters([]string{"+datasets.gold.*", "-datasets.gold.tmp_*"})
	require.NoError(t, err)

	assert.True(t, filters.Selected("datasets.gold.sales"))
	assert.False(t, filters.Selected("datasets.gold.tmp_scratch"))
}

func TestFilters_ExcludeWinsRegardlessOfOrder(t *testing.T) {
	filters, err := ParseFilters([]string{"-datasets.gold.sales", "+datasets.gold.sales"})
	require.NoError(t, err)
	assert.False(t, filters.Selected("datasets.gold.sales"))
}

func TestFilters_BareSignlessPatternIsInclude(t *testing.T) {
	filters, err := ParseFilters([]string{"datasets.silver.*"})
	require.NoError(t, err)
	assert.True(t, filters.Selected("datasets.silver.clicks"))
	assert.False(t, filters.Selected("datasets.gold.sales"))
}

func TestFilters_ExcludeOnlyKeepsRest(t *testing.T) {
	filters, err := ParseFilters([]string{"-datasets.raw.*"})
	require.NoError(t, err)
	assert.True(t, filters.Selected("datasets.gold.sales"))
	assert.False(t, filters.Selected("datasets.raw.events"))
}

func TestFilters_CaseInsensitive(t *testing.T) {
	filters, err := ParseFilters([]string{"+Datasets.Gold.*"})
	require.NoError(t, err)
	assert.True(t, filters.Selected("datasets.gold.sales"))
}
