// Package builders 在 init 中注册内置 Node，供配置驱动的 Pipeline 使用。
package builders

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rushteam/movieprofile/config"
	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/filter"
	"github.com/rushteam/movieprofile/pipeline"
	"github.com/rushteam/movieprofile/pkg/conv"
	"github.com/rushteam/movieprofile/rank"
	"github.com/rushteam/movieprofile/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("rank.profile", BuildProfileRankNode)
	config.Register("rerank.best_first", BuildBestFirstNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
}

// BuildProfileRankNode 构建画像排序节点；画像来自请求的 rctx.Scorer，无需配置。
func BuildProfileRankNode(map[string]interface{}) (pipeline.Node, error) {
	return &rank.ProfileNode{}, nil
}

func BuildBestFirstNode(map[string]interface{}) (pipeline.Node, error) {
	return &rerank.BestFirst{}, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.Diversity{MaxPerGenre: int(conv.ConfigGetInt64(cfg, "max_per_genre", 1))}, nil
}

// BuildFilterNode 构建过滤节点：
//
//	filters:
//	  - type: blacklist
//	    ids: [<uuid>, ...]
//	    key_prefix: "blacklist:"   # 可选，从 rctx.Store 读取 key_prefix+UserID 下的用户黑名单
//	  - type: language
//	    allowed: [en, fr]
func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	raw, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(raw))
	for _, fc := range raw {
		fm, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		switch typ := conv.ConfigGet(fm, "type", ""); typ {
		case "blacklist":
			var ids []uuid.UUID
			for _, s := range conv.SliceAnyToString(fm["ids"]) {
				id, err := uuid.Parse(s)
				if err != nil {
					return nil, fmt.Errorf("blacklist id %q: %w", s, err)
				}
				ids = append(ids, id)
			}
			prefix := conv.ConfigGet(fm, "key_prefix", "")
			if len(ids) == 0 && prefix == "" {
				return nil, fmt.Errorf("blacklist needs ids or key_prefix")
			}
			filters = append(filters, filter.NewBlacklistFilter(ids, nil, prefix))
		case "language":
			var allowed []core.Language
			for _, s := range conv.SliceAnyToString(fm["allowed"]) {
				l := core.Language(s)
				if !l.Valid() {
					return nil, fmt.Errorf("unknown language %q", s)
				}
				allowed = append(allowed, l)
			}
			filters = append(filters, &filter.LanguageFilter{Allowed: allowed})
		default:
			return nil, fmt.Errorf("unknown filter type: %s", typ)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}
