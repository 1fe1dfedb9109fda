package filter

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rushteam/movieprofile/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的电影。
type BlacklistFilter struct {
	// IDs 是内存中的黑名单
	IDs map[uuid.UUID]struct{}

	// Store 用于按用户读取黑名单（可选）。值为 JSON 编码的 UUID 数组。
	// 为空且配置了 KeyPrefix 时使用 rctx.Store。
	Store core.Store

	// KeyPrefix 是 Store 中的黑名单 key 前缀，完整 key 为 KeyPrefix + UserID
	KeyPrefix string
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(ids []uuid.UUID, store core.Store, keyPrefix string) *BlacklistFilter {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &BlacklistFilter{IDs: set, Store: store, KeyPrefix: keyPrefix}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	movie *core.Movie,
) (bool, error) {
	if _, ok := f.IDs[movie.ID]; ok {
		return true, nil
	}

	if rctx == nil || rctx.UserID == "" {
		return false, nil
	}
	store := f.Store
	if store == nil && f.KeyPrefix != "" {
		store = rctx.Store
	}
	if store == nil {
		return false, nil
	}
	data, err := store.Get(ctx, f.KeyPrefix+rctx.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	var blocked []uuid.UUID
	if err := json.Unmarshal(data, &blocked); err != nil {
		return false, err
	}
	for _, id := range blocked {
		if id == movie.ID {
			return true, nil
		}
	}
	return false, nil
}

// LanguageFilter 只保留指定语言的电影；Allowed 为空时不过滤。
type LanguageFilter struct {
	Allowed []core.Language
}

func (f *LanguageFilter) Name() string {
	return "filter.language"
}

func (f *LanguageFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	movie *core.Movie,
) (bool, error) {
	if len(f.Allowed) == 0 {
		return false, nil
	}
	for _, l := range f.Allowed {
		if movie.Language == l {
			return false, nil
		}
	}
	return true, nil
}
