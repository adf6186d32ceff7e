package graph

import (
	"sort"
	"strings"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

// Central ranks nodes by degree centrality, degree / (n-1). Ties keep id order.
func Central(g models.KnowledgeGraph, topN int) []models.CentralEntity {
	n := len(g.Nodes)
	out := make([]models.CentralEntity, 0, n)
	for _, node := range g.Nodes {
		c := models.CentralEntity{GraphNode: node}
		if n > 1 {
			c.Centrality = float64(node.Size) / float64(n-1)
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Centrality != out[j].Centrality {
			return out[i].Centrality > out[j].Centrality
		}
		return out[i].ID < out[j].ID
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// FindNode matches a node by id, or by label or normalized name ignoring case.
func FindNode(g models.KnowledgeGraph, entity string) (models.GraphNode, bool) {
	want := strings.ToLower(strings.Join(strings.Fields(entity), " "))
	for _, node := range g.Nodes {
		if node.ID == entity {
			return node, true
		}
	}
	for _, node := range g.Nodes {
		_, normalized, _ := strings.Cut(node.ID, ":")
		if strings.ToLower(node.Label) == want || normalized == want {
			return node, true
		}
	}
	return models.GraphNode{}, false
}

// Neighbors walks the graph breadth-first from entity up to depth hops and
// returns the reached nodes with the edges among them.
func Neighbors(g models.KnowledgeGraph, entity string, depth int) (models.EntityNetwork, bool) {
	center, ok := FindNode(g, entity)
	if !ok {
		return models.EntityNetwork{}, false
	}
	if depth < 1 {
		depth = 1
	}

	adj := map[string][]string{}
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for id := range adj {
		sort.Strings(adj[id])
	}

	dist := map[string]int{center.ID: 0}
	queue := []string{center.ID}
	var order []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if dist[cur] == depth {
			continue
		}
		for _, next := range adj[cur] {
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[cur] + 1
			order = append(order, next)
			queue = append(queue, next)
		}
	}

	byID := make(map[string]models.GraphNode, len(g.Nodes))
	for _, node := range g.Nodes {
		byID[node.ID] = node
	}
	net := models.EntityNetwork{
		Center:    center.ID,
		Depth:     depth,
		Neighbors: make([]models.GraphNode, 0, len(order)),
		Edges:     []models.GraphEdge{},
	}
	for _, id := range order {
		net.Neighbors = append(net.Neighbors, byID[id])
	}
	for _, e := range g.Edges {
		_, a := dist[e.Source]
		_, b := dist[e.Target]
		if a && b {
			net.Edges = append(net.Edges, e)
		}
	}
	return net, true
}
