package rerank

import (
	"context"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pipeline"
	"github.com/rushteam/movieprofile/pkg/conv"
)

// TopNNode 是一个 Top-N 截断节点，保留前 N 部电影。
// 排序输出是升序，截取最佳结果前需要先经过 BestFirst。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.ProfileNode{},        // 升序排序
//	        &rerank.BestFirst{},        // 翻转为最佳优先
//	        &rerank.TopNNode{N: 20},    // 截取 Top 20
//	    },
//	}
type TopNNode struct {
	// N 要保留的数量
	// 如果 N <= 0，则返回所有电影（不截断）
	// 请求参数 "top_n"（数字）存在时覆盖 N
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	movies []*core.Movie,
) ([]*core.Movie, error) {
	limit := n.N
	if v, ok := conv.ToInt(rctx.Param("top_n")); ok {
		limit = v
	}

	if limit <= 0 || len(movies) <= limit {
		return movies, nil
	}
	return movies[:limit], nil
}
