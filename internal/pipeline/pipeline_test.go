package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubenCid35/rossete/internal/config"
	"github.com/RubenCid35/rossete/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunScenarioBMinimalMapping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.csv", "id,n\n1,A\n2,B\n1,A\n")
	mappingPath := writeFile(t, dir, "m.ttl", `@prefix ex: <http://ex.com/>.
<#M1>
  rml:logicalSource [ rml:source "`+filepath.Join(dir, "f.csv")+`"; rml:referenceFormulation ql:CSV ];
  rr:subjectMap [ rr:template "http://e/{id}" ];
  rr:predicateObjectMap [ rr:predicate ex:name; rr:objectMap [ rml:reference "n" ] ].`)

	outputPath := filepath.Join(dir, "out.nt")
	cfg := config.New(outputPath)
	cfg.MappingsPath = mappingPath

	logger, err := logging.New(os.Stderr, "error", false)
	require.NoError(t, err)

	result, err := Run(cfg, logging.NewWarnOnce(logger))
	require.NoError(t, err)
	assert.Equal(t, Done, result.State)
	assert.Equal(t, int64(2), result.TriplesCount)

	out, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t,
		"<http://e/1> <http://ex.com/name> \"A\"^^<http://www.w3.org/2001/XMLSchema#string> .\n"+
			"<http://e/2> <http://ex.com/name> \"B\"^^<http://www.w3.org/2001/XMLSchema#string> .\n",
		string(out))
}

func TestRunTurtleOutputGroupsPredicateObjectPairsPerSubject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.csv", "id,n,age\n1,A,30\n")
	mappingPath := writeFile(t, dir, "m.ttl", `@prefix ex: <http://ex.com/>.
<#M1>
  rml:logicalSource [ rml:source "`+filepath.Join(dir, "f.csv")+`"; rml:referenceFormulation ql:CSV ];
  rr:subjectMap [ rr:template "http://e/{id}"; rr:class ex:Person ];
  rr:predicateObjectMap [ rr:predicate ex:name; rr:objectMap [ rml:reference "n" ] ];
  rr:predicateObjectMap [ rr:predicate ex:age; rr:objectMap [ rml:reference "age" ] ].`)

	outputPath := filepath.Join(dir, "out.ttl")
	cfg := config.New(outputPath)
	cfg.MappingsPath = mappingPath

	logger, err := logging.New(os.Stderr, "error", false)
	require.NoError(t, err)

	result, err := Run(cfg, logging.NewWarnOnce(logger))
	require.NoError(t, err)
	assert.Equal(t, Done, result.State)
	assert.Equal(t, int64(3), result.TriplesCount)

	out, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	want := `<http://e/1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex.com/Person> ;` + "\n\t\t" +
		`<http://ex.com/name> "A"^^<http://www.w3.org/2001/XMLSchema#string> ;` + "\n\t\t" +
		`<http://ex.com/age> "30"^^<http://www.w3.org/2001/XMLSchema#string> .` + "\n"
	assert.Equal(t, want, string(out))
}

func TestRunMissingMappingsPathFails(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New(filepath.Join(dir, "out.nt"))
	cfg.MappingsPath = filepath.Join(dir, "does-not-exist.ttl")

	logger, err := logging.New(os.Stderr, "error", false)
	require.NoError(t, err)

	result, err := Run(cfg, logging.NewWarnOnce(logger))
	require.Error(t, err)
	assert.Equal(t, Failed, result.State)
}
