package titration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	all := c.All()
	require.NotEmpty(t, all)
	assert.Equal(t, "semaglutide-standard", all[0].ID)

	p, err := c.Get("bpc157-recovery")
	require.NoError(t, err)
	assert.Equal(t, FrequencyDaily, p.Frequency)

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownProtocol)

	assert.Contains(t, c.ByCategory()["GLP-1"], "tirzepatide-standard")
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := DefaultCatalog()

	p, err := c.Get("semaglutide-standard")
	require.NoError(t, err)
	p.Steps[0].Dose = 99

	again, err := c.Get("semaglutide-standard")
	require.NoError(t, err)
	assert.Equal(t, 0.25, again.Steps[0].Dose)
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	data := []byte(`
protocols:
  - id: a
    name: A
    frequency: daily
    steps: [{start_week: 1, duration_weeks: 1, dose: 1, unit: mg}]
  - id: a
    name: B
    frequency: daily
    steps: [{start_week: 1, duration_weeks: 1, dose: 1, unit: mg}]
`)

	_, err := LoadCatalog(data)
	assert.Error(t, err)
}
