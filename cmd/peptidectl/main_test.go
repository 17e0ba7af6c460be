package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideTrackAPI/internal/titration"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProtocols(t *testing.T) {
	out, err := run(t, "protocols")
	require.NoError(t, err)
	assert.Contains(t, out, "semaglutide-standard")
	assert.Contains(t, out, "bpc157-recovery")
}

func TestExport(t *testing.T) {
	out, err := run(t, "export", "semaglutide-standard", "--start", "2025-01-01")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Week 1: 0.25mg - Starting Jan 1, 2025 to Jan 28, 2025\n"))
}

func TestScheduleJSON(t *testing.T) {
	out, err := run(t, "schedule", "semaglutide-standard", "--start", "2025-01-01", "--json")
	require.NoError(t, err)

	var phases []titration.PhaseView
	require.NoError(t, json.Unmarshal([]byte(out), &phases))
	require.Len(t, phases, 5)
	assert.Equal(t, "2025-01-29", phases[1].StartDate.Format("2006-01-02"))
}

func TestCalendar(t *testing.T) {
	_, err := run(t, "calendar", "semaglutide-standard", "--start", "2025-01-01")
	assert.ErrorIs(t, err, titration.ErrWeekdayRequired)

	out, err := run(t, "calendar", "semaglutide-standard", "--start", "2025-01-01", "--weekday", "wed")
	require.NoError(t, err)

	var entries []titration.CalendarEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 5)
	assert.Equal(t, "2025-05-21", entries[4].EndDate.Format("2006-01-02"))
}

func TestErrors(t *testing.T) {
	_, err := run(t, "export", "nope")
	assert.ErrorIs(t, err, titration.ErrUnknownProtocol)

	_, err = run(t, "export", "semaglutide-standard", "--start", "01/01/2025")
	assert.ErrorContains(t, err, "--start")
}

func TestCustomCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`protocols:
  - id: custom
    name: Custom
    frequency: daily
    steps:
      - start_week: 1
        duration_weeks: 1
        dose: 100
        unit: mcg
`), 0o600))

	out, err := run(t, "--catalog", path, "export", "custom", "--start", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, "Week 1: 100mcg - Starting Jan 1, 2025 to Jan 7, 2025\n  Notes:\n", out)
}
