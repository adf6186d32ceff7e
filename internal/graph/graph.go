// Package graph builds an undirected entity co-occurrence graph for one
// document.
package graph

import (
	"sort"
	"strings"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/textutil"
)

const RelationCoOccurs = "co-occurs"

type WindowMode int

const (
	// WindowSentence links entities mentioned in the same sentence.
	WindowSentence WindowMode = iota
	// WindowRadius links mentions whose start offsets are within Radius bytes.
	WindowRadius
)

type Options struct {
	Mode   WindowMode
	Radius int
}

func DefaultOptions() Options {
	return Options{Mode: WindowSentence, Radius: 150}
}

// NodeID is the stable identifier of an entity node.
func NodeID(entityType, normalized string) string {
	return strings.ToLower(entityType) + ":" + normalized
}

type pair struct{ a, b string }

func orderedPair(x, y string) pair {
	if x > y {
		x, y = y, x
	}
	return pair{x, y}
}

// Build creates one node per unique normalized entity and one edge per
// unordered pair that co-occurs in a window. Edge weight counts the windows
// (or mention pairs) the two share.
func Build(text string, entities models.EntityCollection, opts Options) models.KnowledgeGraph {
	g := models.KnowledgeGraph{
		Nodes: []models.GraphNode{},
		Edges: []models.GraphEdge{},
		Statistics: models.GraphStatistics{
			NodeTypes: map[string]int{},
		},
	}

	index := map[string]int{}
	ids := make([]string, len(entities.Entities))
	for i, e := range entities.Entities {
		id := NodeID(e.Type, e.Normalized)
		ids[i] = id
		if _, ok := index[id]; ok {
			continue
		}
		index[id] = len(g.Nodes)
		g.Nodes = append(g.Nodes, models.GraphNode{
			ID:    id,
			Label: strings.Join(strings.Fields(e.Text), " "),
			Type:  e.Type,
		})
		g.Statistics.NodeTypes[e.Type]++
	}

	weights := map[pair]int{}
	switch opts.Mode {
	case WindowRadius:
		for i := range entities.Entities {
			for j := i + 1; j < len(entities.Entities); j++ {
				if ids[i] == ids[j] {
					continue
				}
				if abs(entities.Entities[j].Start-entities.Entities[i].Start) <= opts.Radius {
					weights[orderedPair(ids[i], ids[j])]++
				}
			}
		}
	default:
		for _, group := range sentenceGroups(text, entities.Entities, ids) {
			for i := 0; i < len(group); i++ {
				for j := i + 1; j < len(group); j++ {
					weights[orderedPair(group[i], group[j])]++
				}
			}
		}
	}

	pairs := make([]pair, 0, len(weights))
	for p := range weights {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	for _, p := range pairs {
		g.Edges = append(g.Edges, models.GraphEdge{
			Source:   p.a,
			Target:   p.b,
			Relation: RelationCoOccurs,
			Weight:   weights[p],
		})
		g.Nodes[index[p.a]].Size++
		g.Nodes[index[p.b]].Size++
	}

	g.Statistics.TotalNodes = len(g.Nodes)
	g.Statistics.TotalEdges = len(g.Edges)
	g.Statistics.Density = Density(len(g.Nodes), len(g.Edges))
	g.Statistics.IsConnected = isConnected(g, index)
	return g
}

// sentenceGroups returns, per sentence, the distinct node ids mentioned in it.
func sentenceGroups(text string, entities []models.Entity, ids []string) [][]string {
	sentences := textutil.Sentences(text)
	groups := make([][]string, len(sentences))
	seen := make([]map[string]bool, len(sentences))

	s := 0
	// entities are in document order, so one forward sweep suffices
	for i, e := range entities {
		for s < len(sentences) && sentences[s].End <= e.Start {
			s++
		}
		if s == len(sentences) || e.Start < sentences[s].Start {
			continue
		}
		if seen[s] == nil {
			seen[s] = map[string]bool{}
		}
		if !seen[s][ids[i]] {
			seen[s][ids[i]] = true
			groups[s] = append(groups[s], ids[i])
		}
	}
	return groups
}

// Density is edges over the maximum possible undirected edges, 0 below two
// nodes.
func Density(nodes, edges int) float64 {
	if nodes < 2 {
		return 0
	}
	return float64(edges) / (float64(nodes) * float64(nodes-1) / 2)
}

// isConnected reports whether every node is reachable from every other. An
// empty graph is not connected; a single node is.
func isConnected(g models.KnowledgeGraph, index map[string]int) bool {
	n := len(g.Nodes)
	if n == 0 {
		return false
	}
	uf := newUnionFind(n)
	for _, e := range g.Edges {
		uf.union(index[e.Source], index[e.Target])
	}
	return uf.components == 1
}

type unionFind struct {
	parent     []int
	rank       []int
	components int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n), components: n}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
	u.components--
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
