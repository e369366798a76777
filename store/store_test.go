package store_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/store"
)

func nn(iri string) rdffusion.NamedNode { return rdffusion.NamedNode{IRI: iri} }

func quad(s, p, o string, g rdffusion.GraphName) rdffusion.Quad {
	if g == nil {
		g = rdffusion.DefaultGraph{}
	}
	return rdffusion.NewQuad(nn(s), nn(p), nn(o), g)
}

func TestScanScorePrefersLongestBoundPrefix(t *testing.T) {
	bound := store.BoundMask{true, true, false, false} // G, S bound
	assert.Greater(t, store.ScanScore(store.GSPO, bound), store.ScanScore(store.GPOS, bound))
}

func TestBestIndexPicksHighestScore(t *testing.T) {
	bound := store.BoundMask{true, false, false, true} // G, O bound
	best := store.BestIndex([]store.IndexComponents{store.GSPO, store.GPOS, store.GOSP}, bound)
	assert.Equal(t, store.GOSP, best)
}

func TestInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewStore()
	q := quad("http://ex/s", "http://ex/p", "http://ex/o", nil)
	require.NoError(t, s.Insert(ctx, []rdffusion.Quad{q, q}))
	assert.Equal(t, 1, s.Len(ctx))
}

func TestRemoveReportsChange(t *testing.T) {
	ctx := context.Background()
	s := store.NewStore()
	q := quad("http://ex/s", "http://ex/p", "http://ex/o", nil)
	changed, err := s.Remove(ctx, q)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, s.Insert(ctx, []rdffusion.Quad{q}))
	changed, err = s.Remove(ctx, q)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, s.Contains(ctx, q))
}

func TestDropNamedGraphRemovesAllItsQuads(t *testing.T) {
	ctx := context.Background()
	s := store.NewStore()
	g := nn("http://ex/g")
	require.NoError(t, s.Insert(ctx, []rdffusion.Quad{quad("http://ex/a", "http://ex/p", "http://ex/b", g)}))
	changed, err := s.DropNamedGraph(ctx, g)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, s.Len(ctx))
}

func TestSnapshotIsStableAcrossConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := store.NewStore()
	q1 := quad("http://ex/s1", "http://ex/p", "http://ex/o", nil)
	require.NoError(t, s.Insert(ctx, []rdffusion.Quad{q1}))

	sn := s.Snapshot()
	gen := sn.Generation()

	q2 := quad("http://ex/s2", "http://ex/p", "http://ex/o", nil)
	require.NoError(t, s.Insert(ctx, []rdffusion.Quad{q2}))

	assert.Equal(t, gen, sn.Generation())
	assert.Len(t, sn.MatchPattern(rdffusion.DefaultGraph{}, nil, nil, nil), 1)
}

func TestScanYieldsMatchingBatch(t *testing.T) {
	ctx := context.Background()
	s := store.NewStore()
	require.NoError(t, s.Insert(ctx, []rdffusion.Quad{
		quad("http://ex/s1", "http://ex/knows", "http://ex/o1", nil),
		quad("http://ex/s2", "http://ex/knows", "http://ex/o2", nil),
		quad("http://ex/s1", "http://ex/other", "http://ex/o3", nil),
	}))

	stream, err := s.Scan(ctx, rdffusion.PatternScan{
		ActiveGraph: rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphDefaultOnly},
		Predicate:   nn("http://ex/knows"),
		BatchSize:   10,
	})
	require.NoError(t, err)
	defer stream.Close()

	rec, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, rec.NumRows())
	assert.EqualValues(t, 3, rec.NumCols()) // no graph column requested

	_, err = stream.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestScanEmitsGraphColumnWhenRequested(t *testing.T) {
	ctx := context.Background()
	s := store.NewStore()
	g := nn("http://ex/g")
	require.NoError(t, s.Insert(ctx, []rdffusion.Quad{quad("http://ex/s", "http://ex/p", "http://ex/o", g)}))

	stream, err := s.Scan(ctx, rdffusion.PatternScan{
		ActiveGraph:     rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphAllNamed},
		WithGraphColumn: true,
		BatchSize:       10,
	})
	require.NoError(t, err)
	defer stream.Close()

	rec, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, rec.NumCols())
	assert.EqualValues(t, 1, rec.NumRows())
}

func TestEvaluateActiveGraphRoutingModes(t *testing.T) {
	known := []string{"http://ex/g1", "http://ex/g2"}

	d := store.EvaluateActiveGraphRouting(rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphDefaultOnly}, known, false)
	assert.True(t, d.IncludeDefault)
	assert.Empty(t, d.Graphs)

	u := store.EvaluateActiveGraphRouting(rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphUnionOfAll}, known, false)
	assert.True(t, u.IncludeDefault)
	assert.ElementsMatch(t, known, u.Graphs)

	ns := store.EvaluateActiveGraphRouting(rdffusion.ActiveGraph{
		Mode:   rdffusion.ActiveGraphNamedSet,
		Graphs: []rdffusion.NamedNode{nn("http://ex/g1")},
	}, known, true)
	assert.False(t, ns.IncludeDefault)
	assert.Equal(t, []string{"http://ex/g1"}, ns.Graphs)
	assert.True(t, ns.EmitGraphColumn)
}

func TestPaginatorChunksIntoBatchSize(t *testing.T) {
	ctx := context.Background()
	s := store.NewStore()
	quads := make([]rdffusion.Quad, 0, 5)
	for i := 0; i < 5; i++ {
		quads = append(quads, quad("http://ex/s", "http://ex/p", "http://ex/o", nil))
		quads[i].Object = nn("http://ex/o" + string(rune('0'+i)))
	}
	require.NoError(t, s.Insert(ctx, quads))

	stream, err := s.Scan(ctx, rdffusion.PatternScan{BatchSize: 2})
	require.NoError(t, err)
	defer stream.Close()

	total := 0
	for {
		rec, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, rec.NumRows(), int64(2))
		total += int(rec.NumRows())
	}
	assert.Equal(t, 5, total)
}
