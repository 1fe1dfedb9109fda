package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pipeline"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/movieprofile/config/builders"
// 以触发内置 Node（rank.profile、rerank.best_first、rerank.topn 等）的 init 注册。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回基于当前注册表构建的 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// bestFirstDependents 按切片顺序截取或去重的节点，只有在最佳优先顺序上才有意义
var bestFirstDependents = map[string]bool{
	"rerank.topn":      true,
	"rerank.diversity": true,
}

// ValidatePipelineConfig 校验 pipeline 配置：
// 所有 node 类型均已注册，截断/多样性节点位于 rerank.best_first 之后，
// 并按注册表试构建一次以检查节点参数与阶段顺序。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	supported := SupportedTypes()
	types := cfg.Types()

	defaultBuildersMu.RLock()
	for _, typ := range types {
		if _, ok := defaultBuilders[typ]; !ok {
			defaultBuildersMu.RUnlock()
			return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig,
				fmt.Sprintf("unsupported node type %q (supported: %v)", typ, supported))
		}
	}
	defaultBuildersMu.RUnlock()

	bestFirst := false
	for i, typ := range types {
		if typ == "rerank.best_first" {
			bestFirst = true
			continue
		}
		if bestFirstDependents[typ] && !bestFirst {
			return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig,
				fmt.Sprintf("node %d %s must come after rerank.best_first (ranking is ascending)", i, typ))
		}
	}

	_, err := cfg.BuildPipeline(DefaultFactory())
	return err
}
