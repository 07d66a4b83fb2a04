// Package idgen は台帳行のIDと時刻を供給する。
package idgen

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Snowflake は 64bit の時系列ID を作る。ノード番号はインスタンスごとに変える。
type Snowflake struct {
	node *snowflake.Node
}

func NewSnowflake(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Snowflake{node: node}, nil
}

func (s *Snowflake) NextID() int64 {
	return s.node.Generate().Int64()
}

// SystemClock は UTC の現在時刻
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
