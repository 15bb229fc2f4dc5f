package materialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubenCid35/rossete"
	"github.com/RubenCid35/rossete/internal/analyzer"
	"github.com/RubenCid35/rossete/internal/staging"
	"github.com/RubenCid35/rossete/internal/writer"
)

func ref(s string) *string { return &s }

func TestMaterializeMinimalMapping(t *testing.T) {
	tmpl := rossete.CompileTemplate("http://e/{id}")
	m := rossete.Mapping{
		ID:            "M1",
		LogicalSource: rossete.LogicalSource{Source: "f.csv", Formulation: rossete.FormulationCSV},
		SubjectMap:    rossete.SubjectMap{Template: &tmpl},
		PredicateObjectMaps: []rossete.PredicateObjectMap{
			{
				Predicate: rossete.Term{Prefix: "", Local: "http://ex.com/name"},
				Object:    rossete.ObjectMap{Reference: ref("n")},
			},
		},
	}
	mappings := []rossete.Mapping{m}
	fields, err := analyzer.Analyze(mappings)
	require.NoError(t, err)

	store, err := staging.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateTable("db-f-CSV", fields["M1"].Columns))
	batch, err := store.NewBatch("db-f-CSV", fields["M1"].Columns)
	require.NoError(t, err)
	_, err = batch.Insert([]string{"1", "A"})
	require.NoError(t, err)
	_, err = batch.Insert([]string{"2", "B"})
	require.NoError(t, err)
	require.NoError(t, batch.Close())

	byID := map[string]rossete.Mapping{"M1": m}
	prefixes := rossete.NewPrefixMap()
	prefixes.Freeze()

	var blocks []writer.SubjectBlock
	err = Run(m, byID, fields, store, prefixes, nil, func(b writer.SubjectBlock) error {
		blocks = append(blocks, b)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, blocks, 2)
	require.Len(t, blocks[0].Pairs, 1)
	assert.Equal(t, "http://e/1", blocks[0].Subject.Value)
	assert.Equal(t, "http://ex.com/name", blocks[0].Pairs[0].Predicate.Value)
	assert.Equal(t, "A", blocks[0].Pairs[0].Object.Value)
	assert.Equal(t, rossete.XSDStringIRI, blocks[0].Pairs[0].Object.Datatype)
}

func TestMaterializeJoin(t *testing.T) {
	childTmpl := rossete.CompileTemplate("http://ex.org/trip/{trip_id}")
	parentTmpl := rossete.CompileTemplate("http://ex.org/route/{id}")

	child := rossete.Mapping{
		ID:            "M1",
		LogicalSource: rossete.LogicalSource{Source: "trips.csv", Formulation: rossete.FormulationCSV},
		SubjectMap:    rossete.SubjectMap{Template: &childTmpl},
		PredicateObjectMaps: []rossete.PredicateObjectMap{
			{
				Predicate: rossete.Term{Local: "http://ex.org/route"},
				Object: rossete.ObjectMap{
					ParentMap: "M2",
					Joins:     []rossete.JoinCondition{{Child: "route_id", Parent: "id"}},
				},
			},
		},
	}
	parent := rossete.Mapping{
		ID:            "M2",
		LogicalSource: rossete.LogicalSource{Source: "routes.csv", Formulation: rossete.FormulationCSV},
		SubjectMap:    rossete.SubjectMap{Template: &parentTmpl},
	}
	mappings := []rossete.Mapping{child, parent}
	fields, err := analyzer.Analyze(mappings)
	require.NoError(t, err)

	store, err := staging.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateTable(child.TableName(), fields["M1"].Columns))
	cb, err := store.NewBatch(child.TableName(), fields["M1"].Columns)
	require.NoError(t, err)
	_, err = cb.Insert([]string{"r1", "t1"}) // columns: route_id, trip_id
	require.NoError(t, err)
	require.NoError(t, cb.Close())

	require.NoError(t, store.CreateTable(parent.TableName(), fields["M2"].Columns))
	pb, err := store.NewBatch(parent.TableName(), fields["M2"].Columns)
	require.NoError(t, err)
	_, err = pb.Insert([]string{"r1"})
	require.NoError(t, err)
	require.NoError(t, pb.Close())

	byID := map[string]rossete.Mapping{"M1": child, "M2": parent}
	prefixes := rossete.NewPrefixMap()
	prefixes.Freeze()

	var blocks []writer.SubjectBlock
	err = Run(child, byID, fields, store, prefixes, nil, func(b writer.SubjectBlock) error {
		blocks = append(blocks, b)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, blocks, 1)
	require.Len(t, blocks[0].Pairs, 1)
	assert.Equal(t, "http://ex.org/trip/t1", blocks[0].Subject.Value)
	assert.Equal(t, "http://ex.org/route/r1", blocks[0].Pairs[0].Object.Value)
}
