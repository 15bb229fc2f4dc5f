package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubenCid35/rossete"
	"github.com/RubenCid35/rossete/internal/config"
	"github.com/RubenCid35/rossete/internal/staging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCSVScenarioB(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f.csv", "id,n\n1,A\n2,B\n1,A\n")

	store, err := staging.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	job := Job{
		Table:   "db-f-CSV",
		Source:  rossete.LogicalSource{Source: path, Formulation: rossete.FormulationCSV},
		Raw:     []string{"id", "n"},
		Columns: []string{"id", "n"},
	}
	require.NoError(t, Run(store, []Job{job}, func(string) config.FileSpecs { return config.NewFileSpecs() }, 2))

	it, err := store.Scan("db-f-CSV", []string{"id", "n"})
	require.NoError(t, err)
	defer it.Close()

	var rows [][]string
	for {
		row, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row.Values)
	}
	assert.Equal(t, [][]string{{"1", "A"}, {"2", "B"}}, rows)
}

func TestRunJSONScenarioD(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "users.json", `{"users":[{"id":1,"n":"A"},{"id":2,"n":"B"}]}`)

	store, err := staging.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	job := Job{
		Table: "db-users-JSON-$.users[*]",
		Source: rossete.LogicalSource{
			Source: path, Formulation: rossete.FormulationJSON, Iterator: "$.users[*]",
		},
		Raw:     []string{"id", "n"},
		Columns: []string{"$.users[*]||id", "$.users[*]||n"},
	}
	require.NoError(t, Run(store, []Job{job}, func(string) config.FileSpecs { return config.NewFileSpecs() }, 1))

	it, err := store.Scan(job.Table, job.Columns)
	require.NoError(t, err)
	defer it.Close()

	var rows [][]string
	for {
		row, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row.Values)
	}
	assert.Equal(t, [][]string{{"1", "A"}, {"2", "B"}}, rows)
}

func TestRunXMLIteration(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stops.xml", `<stops><stop id="1"><name>North</name></stop><stop id="2"><name>South</name></stop></stops>`)

	store, err := staging.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	job := Job{
		Table: "db-stops-XML-stops/stop",
		Source: rossete.LogicalSource{
			Source: path, Formulation: rossete.FormulationXML, Iterator: "stops/stop",
		},
		Raw:     []string{"@id", "name"},
		Columns: []string{"stops/stop||@id", "stops/stop||name"},
	}
	require.NoError(t, Run(store, []Job{job}, func(string) config.FileSpecs { return config.NewFileSpecs() }, 1))

	it, err := store.Scan(job.Table, job.Columns)
	require.NoError(t, err)
	defer it.Close()

	var rows [][]string
	for {
		row, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row.Values)
	}
	assert.Equal(t, [][]string{{"1", "North"}, {"2", "South"}}, rows)
}

func TestMissingColumnIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f.csv", "id\n1\n")

	store, err := staging.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	job := Job{
		Table:   "db-f-CSV",
		Source:  rossete.LogicalSource{Source: path, Formulation: rossete.FormulationCSV},
		Raw:     []string{"id", "missing"},
		Columns: []string{"id", "missing"},
	}
	err = Run(store, []Job{job}, func(string) config.FileSpecs { return config.NewFileSpecs() }, 1)
	require.Error(t, err)
	rerr, ok := err.(*rossete.Error)
	require.True(t, ok)
	assert.Equal(t, rossete.KindMissingColumn, rerr.Kind)
}
