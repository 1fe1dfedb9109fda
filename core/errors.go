package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 可包装底层错误（Err），支持 errors.Is / errors.As
//
// 使用场景：
//   - 配置错误：INVALID_CONFIG（例如向量维度 <= 0）
//   - 输入错误：INVALID_INPUT（例如负权重、维度不一致）
//   - 持久化错误：PERSISTENCE（画像写入存储失败，内存状态仍然有效）
//   - 内部一致性错误：INTERNAL_ERROR（以 panic 形式抛出，不可恢复）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "PERSISTENCE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "space", "profile"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建包装了底层错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用（熔断打开等）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInvalidConfig = "INVALID_CONFIG" // 构造期配置错误
	ErrorCodePersistence   = "PERSISTENCE"    // 持久化失败
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部一致性错误
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleSpace    = "space"    // 文本向量空间
	ModuleProfile  = "profile"  // 用户画像
	ModuleConfig   = "config"   // 配置
	ModuleRank     = "rank"     // 排序
	ModulePipeline = "pipeline" // 编排
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsInvalidConfig 检查错误是否为 INVALID_CONFIG
func IsInvalidConfig(err error) bool { return hasCode(err, ErrorCodeInvalidConfig) }

// IsPersistence 检查错误是否为 PERSISTENCE。
// 调用方可以据此重试或提示用户存在未保存的状态。
func IsPersistence(err error) bool { return hasCode(err, ErrorCodePersistence) }

// InternalError 构造内部一致性错误，用于 panic。
func InternalError(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeInternalError, message)
}
