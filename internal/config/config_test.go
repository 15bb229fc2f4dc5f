package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New("out.nt")
	assert.Equal(t, NTriples, cfg.OutputFormat)
	assert.EqualValues(t, 500, cfg.MemoryThresholdMB)
	assert.Equal(t, Threads{Parsing: 3, Reading: 3, Writing: 3}, cfg.Threads)
}

func TestFormatFromExt(t *testing.T) {
	assert.Equal(t, NTriples, FormatFromExt(".nt"))
	assert.Equal(t, Turtle, FormatFromExt("ttl"))
	assert.Equal(t, UnknownFormat, FormatFromExt(".rdf"))
}

func TestMergeFrom(t *testing.T) {
	doc := `{
		"max-memory-usage": 1000,
		"threads": {"parsing": 2, "reading": 5},
		"files-data": [
			{"path": "a.csv", "delimiter": ";", "header": 1},
			{"path": "b.tsv"}
		]
	}`
	cfg, err := mergeFrom(New("out.nt"), strings.NewReader(doc))
	require.NoError(t, err)
	assert.EqualValues(t, 1000, cfg.MemoryThresholdMB)
	assert.Equal(t, 2, cfg.Threads.Parsing)
	assert.Equal(t, 5, cfg.Threads.Reading)
	assert.Equal(t, 3, cfg.Threads.Writing) // untouched default

	specA := cfg.SpecFor("a.csv")
	assert.Equal(t, ';', specA.Delimiter)
	assert.EqualValues(t, 1, specA.Header)

	specB := cfg.SpecFor("b.tsv")
	assert.Equal(t, '\t', specB.Delimiter)
}

func TestMergeFromMissingPath(t *testing.T) {
	doc := `{"files-data": [{"delimiter": ";"}]}`
	_, err := mergeFrom(New("out.nt"), strings.NewReader(doc))
	require.Error(t, err)
}

func TestInMemory(t *testing.T) {
	cfg := New("out.nt")
	assert.True(t, cfg.InMemory(10*1024*1024))
	assert.False(t, cfg.InMemory(1000*1024*1024))
}
