package graph

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/nlp"
)

func recognize(t *testing.T, text string) models.EntityCollection {
	t.Helper()
	coll, err := nlp.NewEntityRecognizer(nlp.DefaultLexicon()).Recognize(context.Background(), text)
	require.NoError(t, err)
	return coll
}

func uniqueCount(c models.EntityCollection) int {
	n := 0
	for _, u := range c.UniqueEntities {
		n += len(u)
	}
	return n
}

func assertGraphInvariants(t *testing.T, g models.KnowledgeGraph, coll models.EntityCollection) {
	t.Helper()

	assert.Equal(t, uniqueCount(coll), len(g.Nodes))
	assert.Equal(t, len(g.Nodes), g.Statistics.TotalNodes)
	assert.Equal(t, len(g.Edges), g.Statistics.TotalEdges)

	ids := map[string]bool{}
	degree := map[string]int{}
	for _, n := range g.Nodes {
		assert.False(t, ids[n.ID], "duplicate node %s", n.ID)
		ids[n.ID] = true
	}
	pairs := map[[2]string]bool{}
	for _, e := range g.Edges {
		assert.True(t, ids[e.Source], "dangling source %s", e.Source)
		assert.True(t, ids[e.Target], "dangling target %s", e.Target)
		assert.NotEqual(t, e.Source, e.Target)
		assert.Equal(t, RelationCoOccurs, e.Relation)
		key := [2]string{e.Source, e.Target}
		if e.Source > e.Target {
			key = [2]string{e.Target, e.Source}
		}
		assert.False(t, pairs[key], "duplicate edge %v", key)
		pairs[key] = true
		degree[e.Source]++
		degree[e.Target]++
	}
	for _, n := range g.Nodes {
		assert.Equal(t, degree[n.ID], n.Size, n.ID)
	}

	n, e := float64(len(g.Nodes)), float64(len(g.Edges))
	want := 0.0
	if n >= 2 {
		want = e / (n * (n - 1) / 2)
	}
	assert.InDelta(t, want, g.Statistics.Density, 1e-12)
}

func TestBuildEmpty(t *testing.T) {
	coll := models.NewEntityCollection()
	g := Build("", coll, DefaultOptions())

	assertGraphInvariants(t, g, coll)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Zero(t, g.Statistics.Density)
	assert.False(t, g.Statistics.IsConnected)
}

func TestBuildSingleNode(t *testing.T) {
	text := "Nairobi is busy. Nairobi is growing."
	coll := recognize(t, text)
	g := Build(text, coll, DefaultOptions())

	assertGraphInvariants(t, g, coll)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "gpe:nairobi", g.Nodes[0].ID)
	assert.Empty(t, g.Edges)
	assert.Zero(t, g.Statistics.Density)
	assert.True(t, g.Statistics.IsConnected)
}

func TestBuildTwoNodes(t *testing.T) {
	together := "Alice signed the lease on March 3, 2024. The building is quiet. Rent is paid monthly."
	coll := recognize(t, together)
	require.Equal(t, 2, coll.TotalEntities)
	g := Build(together, coll, DefaultOptions())

	assertGraphInvariants(t, g, coll)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, models.GraphEdge{Source: "date:march 3 2024", Target: "person:alice", Relation: RelationCoOccurs, Weight: 1}, g.Edges[0])
	assert.InDelta(t, 1.0, g.Statistics.Density, 1e-12)
	assert.True(t, g.Statistics.IsConnected)

	apart := "Alice signed the lease. The building is quiet. Rent was first paid on March 3, 2024."
	coll = recognize(t, apart)
	require.Equal(t, 2, coll.TotalEntities)
	g = Build(apart, coll, DefaultOptions())

	assertGraphInvariants(t, g, coll)
	assert.Empty(t, g.Edges)
	assert.False(t, g.Statistics.IsConnected)
	assert.Equal(t, map[string]int{models.EntityPerson: 1, models.EntityDate: 1}, g.Statistics.NodeTypes)
}

func TestBuildWeightsRepeatedCoOccurrence(t *testing.T) {
	text := "Alice met John in Paris. Then Alice and John left. John stayed home."
	coll := recognize(t, text)
	g := Build(text, coll, DefaultOptions())

	assertGraphInvariants(t, g, coll)
	var ab models.GraphEdge
	for _, e := range g.Edges {
		if e.Source == "person:alice" && e.Target == "person:john" {
			ab = e
		}
	}
	assert.Equal(t, 2, ab.Weight)
	assert.Len(t, g.Edges, 3)
	assert.True(t, g.Statistics.IsConnected)
}

func TestBuildRadiusWindow(t *testing.T) {
	text := "Alice called. John answered." + strings.Repeat(" Filler words here.", 20) + " Paris waited."
	coll := recognize(t, text)
	g := Build(text, coll, Options{Mode: WindowRadius, Radius: 30})

	assertGraphInvariants(t, g, coll)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "person:alice", g.Edges[0].Source)
	assert.Equal(t, "person:john", g.Edges[0].Target)
	assert.False(t, g.Statistics.IsConnected)
}

func TestBuildRandomDocumentsKeepInvariants(t *testing.T) {
	names := []string{"Alice", "Mary Stone", "Acme Corp", "Globex Inc", "Paris", "Kenya", "March 3, 2024", "$500", "12%", "Nairobi", "Emma"}
	filler := []string{"met", "visited", "paid", "called", "joined", "left"}
	rng := rand.New(rand.NewSource(7))

	for doc := 0; doc < 40; doc++ {
		var sb strings.Builder
		sentences := 1 + rng.Intn(8)
		for s := 0; s < sentences; s++ {
			words := 1 + rng.Intn(4)
			for w := 0; w < words; w++ {
				if w > 0 {
					sb.WriteString(" " + filler[rng.Intn(len(filler))] + " ")
				}
				sb.WriteString(names[rng.Intn(len(names))])
			}
			sb.WriteString(". ")
		}
		text := sb.String()
		coll := recognize(t, text)
		for _, mode := range []Options{DefaultOptions(), {Mode: WindowRadius, Radius: 40}} {
			t.Run(fmt.Sprintf("doc%d/mode%d", doc, mode.Mode), func(t *testing.T) {
				assertGraphInvariants(t, Build(text, coll, mode), coll)
			})
		}
	}
}

func TestDensity(t *testing.T) {
	assert.Zero(t, Density(0, 0))
	assert.Zero(t, Density(1, 0))
	assert.InDelta(t, 1.0, Density(2, 1), 1e-12)
	assert.InDelta(t, 0.5, Density(4, 3), 1e-12)
}
