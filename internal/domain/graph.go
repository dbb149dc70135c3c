package domain

import "encoding/json"

// Node is one segment placed in display space. All scalar fields lie in
// [0,1]; x and y are min-max normalized over the article's own segment set,
// z is the segment's normalized distance from the article's embedding
// centroid.
type Node struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Position float64 `json:"position"`
	Text     string  `json:"text"`
}

// Edge links two nodes with the cosine similarity of their embedding
// vectors, in [-1,1]. Source/Target are node ids; pairs are unordered and
// stored with Source < Target.
type Edge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`
}

// Graph is the immutable visualization artifact for one (article, content
// version) pair. A node-bearing graph always carries an edges array, even
// when edge selection found nothing. An article with no eligible segments
// yields Nodes == [] and omits edges and hue, which tells the rendering
// client to remove its container.
type Graph struct {
	Nodes []Node   `json:"nodes"`
	Edges []Edge   `json:"edges"`
	Hue   *float64 `json:"hue,omitempty"`
}

// MarshalJSON keeps the wire shape stable: graphs with nodes serialize a
// non-null edges array, the zero-segment artifact stays {"nodes":[]}.
func (g Graph) MarshalJSON() ([]byte, error) {
	if len(g.Nodes) == 0 {
		return []byte(`{"nodes":[]}`), nil
	}
	type graph Graph
	out := graph(g)
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return json.Marshal(out)
}

// EmptyGraph returns the artifact for an article with zero eligible
// segments. Not an error.
func EmptyGraph() Graph {
	return Graph{Nodes: []Node{}}
}

// NodeIDs returns the set of node ids, for edge referential checks.
func (g Graph) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}
