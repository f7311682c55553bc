// Package ids generates unique, time-ordered int64 entity identifiers.
package ids

import "github.com/bwmarrin/snowflake"

// Generator hands out collision-free int64 ids.
type Generator interface {
	Next() int64
}

type snowflakeGen struct {
	node *snowflake.Node
}

// NewGenerator builds a snowflake-backed generator. node must fit the
// snowflake node range (0..1023); a single-process app uses node 0.
func NewGenerator(node int64) (Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}
	return &snowflakeGen{node: n}, nil
}

func (g *snowflakeGen) Next() int64 {
	return g.node.Generate().Int64()
}
