package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/movieprofile/core"
)

// Pipeline 把排序逻辑拆成可组合的 Node 链。
type Pipeline struct {
	Name  string
	Nodes []Node

	// Logger 为空值时不输出
	Logger zerolog.Logger
}

// Validate 检查节点的阶段顺序：filter -> rank -> rerank。
// 最多一个 rank 节点；rerank 作用在排好序的切片上，前面必须有 rank。
func (p *Pipeline) Validate() error {
	last, ranks := 0, 0
	for i, node := range p.Nodes {
		stage := node.Kind().stage()
		if stage < 0 {
			return stageError(i, node, "unknown kind")
		}
		if stage < last {
			return stageError(i, node, "out of order (want filter -> rank -> rerank)")
		}
		switch node.Kind() {
		case KindRank:
			ranks++
			if ranks > 1 {
				return stageError(i, node, "more than one rank node")
			}
		case KindReRank:
			if ranks == 0 {
				return stageError(i, node, "rerank before any rank node")
			}
		}
		last = stage
	}
	return nil
}

func stageError(i int, node Node, reason string) error {
	return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfig,
		fmt.Sprintf("pipeline: node %d %s (%s): %s", i, node.Name(), node.Kind(), reason))
}

// Run 依次执行各节点，任一节点失败即返回。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	movies []*core.Movie,
) ([]*core.Movie, error) {
	cur := movies
	for _, node := range p.Nodes {
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		p.Logger.Debug().
			Str("pipeline", p.Name).
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", len(cur)).
			Int("out", len(next)).
			Dur("took", time.Since(start)).
			Msg("pipeline node done")
		cur = next
	}
	return cur, nil
}
