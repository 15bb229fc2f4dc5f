package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubenCid35/rossete"
)

func ref(s string) *string { return &s }

func TestAnalyzeSimpleMapping(t *testing.T) {
	tmpl := rossete.CompileTemplate("http://ex.org/stop/{id}")
	mappings := []rossete.Mapping{
		{
			ID:            "M1",
			LogicalSource: rossete.LogicalSource{Source: "stops.csv", Formulation: rossete.FormulationCSV},
			SubjectMap:    rossete.SubjectMap{Template: &tmpl},
			PredicateObjectMaps: []rossete.PredicateObjectMap{
				{Object: rossete.ObjectMap{Reference: ref("name")}},
			},
		},
	}

	fields, err := Analyze(mappings)
	require.NoError(t, err)
	got := fields["M1"]
	assert.Equal(t, []string{"id", "name"}, got.Raw)
	assert.Equal(t, []string{"id", "name"}, got.Columns)
}

func TestAnalyzeJoinPropagatesParentFields(t *testing.T) {
	childTmpl := rossete.CompileTemplate("http://ex.org/trip/{trip_id}")
	parentTmpl := rossete.CompileTemplate("http://ex.org/route/{id}")

	child := rossete.Mapping{
		ID:            "M1",
		LogicalSource: rossete.LogicalSource{Source: "trips.csv", Formulation: rossete.FormulationCSV},
		SubjectMap:    rossete.SubjectMap{Template: &childTmpl},
		PredicateObjectMaps: []rossete.PredicateObjectMap{
			{Object: rossete.ObjectMap{
				ParentMap: "M2",
				Joins:     []rossete.JoinCondition{{Child: "route_id", Parent: "id"}},
			}},
		},
	}
	parent := rossete.Mapping{
		ID:            "M2",
		LogicalSource: rossete.LogicalSource{Source: "routes.csv", Formulation: rossete.FormulationCSV},
		SubjectMap:    rossete.SubjectMap{Template: &parentTmpl},
	}

	fields, err := Analyze([]rossete.Mapping{child, parent})
	require.NoError(t, err)

	assert.Equal(t, []string{"route_id", "trip_id"}, fields["M1"].Raw)
	assert.Equal(t, []string{"id"}, fields["M2"].Raw)
}

func TestAnalyzeUnknownParentErrors(t *testing.T) {
	tmpl := rossete.CompileTemplate("http://ex.org/trip/{trip_id}")
	child := rossete.Mapping{
		ID:            "M1",
		LogicalSource: rossete.LogicalSource{Source: "trips.csv", Formulation: rossete.FormulationCSV},
		SubjectMap:    rossete.SubjectMap{Template: &tmpl},
		PredicateObjectMaps: []rossete.PredicateObjectMap{
			{Object: rossete.ObjectMap{
				ParentMap: "Ghost",
				Joins:     []rossete.JoinCondition{{Child: "route_id", Parent: "id"}},
			}},
		},
	}

	_, err := Analyze([]rossete.Mapping{child})
	require.Error(t, err)
	rerr, ok := err.(*rossete.Error)
	require.True(t, ok)
	assert.Equal(t, rossete.KindMappingNotFound, rerr.Kind)
}

func TestAnalyzeJSONFieldNamespacing(t *testing.T) {
	tmpl := rossete.CompileTemplate("http://ex.org/item/{id}")
	mappings := []rossete.Mapping{
		{
			ID: "M1",
			LogicalSource: rossete.LogicalSource{
				Source: "items.json", Formulation: rossete.FormulationJSON, Iterator: "$.items[*]",
			},
			SubjectMap: rossete.SubjectMap{Template: &tmpl},
		},
	}

	fields, err := Analyze(mappings)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, fields["M1"].Raw)
	assert.Equal(t, []string{"$.items[*]||id"}, fields["M1"].Columns)
}
