package tracker

import (
	"errors"

	"nullfix/internal/location"
	"nullfix/internal/relation"
)

// Node is a flat usage fact: the member CalleeClass.CalleeMember is
// referenced (read, written or called) inside Region.
type Node struct {
	Region       location.Region
	CalleeMember string
	CalleeClass  string
}

// NodeSchema reads field_graph.tsv and call_graph.tsv, which share the
// column order region_class, region_member, member, member_class.
var NodeSchema = relation.Schema[Node]{
	Name:    "tracker_nodes",
	Columns: 4,
	Parse: func(v []string) (Node, error) {
		if v[2] == "" || v[3] == "" {
			return Node{}, errors.New("empty callee")
		}
		return Node{
			Region:       location.Region{Class: v[0], Member: v[1]},
			CalleeMember: v[2],
			CalleeClass:  v[3],
		}, nil
	},
	Key: func(n Node) string { return n.CalleeClass },
}
