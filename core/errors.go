package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Vector 错误：UNAVAILABLE, INVALID_INPUT
//   - History / Composer 等其他领域错误
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "vector", "history"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
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

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 后端不可用（可降级）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore    = "store"    // KV 存储模块
	ModuleVector   = "vector"   // 向量存储模块
	ModuleHistory  = "history"  // 推荐历史模块
	ModuleComposer = "composer" // 外部搭配生成模块
	ModuleFeature  = "feature"  // 特征模块
	ModuleEngine   = "engine"   // 编排模块
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE。
// 不可用错误是可降级错误：调用方应回退到空候选/空历史，而不是中断整个推荐流程。
// 空候选与后端不可用是两类不同状态，调用方需通过 Label 区分记录。
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// ErrInsufficientItems 表示多样化之后没有可用的候选单品。
// 这不是后端故障：调用方应向用户返回 "insufficient distinct items" 而不是内部错误。
var ErrInsufficientItems = NewDomainError(ModuleEngine, ErrorCodeNotFound, "engine: insufficient distinct items")
