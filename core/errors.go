package core

import (
	"errors"
	"fmt"
)

// 错误代码。
const (
	ErrorCodeNotFound      = "NOT_FOUND"
	ErrorCodeUnavailable   = "UNAVAILABLE"   // 协作方失败、超时或熔断
	ErrorCodeInvalidInput  = "INVALID_INPUT" // 请求上下文或配置不合法
	ErrorCodeInternalError = "INTERNAL_ERROR"
)

// 产生错误的模块。
const (
	ModuleStore      = "store"
	ModuleRepository = "repository"
	ModuleEngine     = "engine"
	ModuleTracker    = "tracker"
	ModuleConfig     = "config"
)

// DomainError 是各模块对外返回的错误类型，按 Code 分类处理：
// UNAVAILABLE 让策略降级为空结果，INVALID_INPUT 让引擎走热门回退，
// tracker 的错误只记日志。
type DomainError struct {
	Code    string
	Message string
	Module  string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{Module: module, Code: code, Message: message}
}

func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{Module: module, Code: code, Message: message, Err: err}
}

// GetDomainError 返回错误链上第一个 DomainError，没有时为 nil。
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if err != nil && errors.As(err, &de) {
		return de
	}
	return nil
}

func IsDomainError(err error) bool { return GetDomainError(err) != nil }

func hasCode(err error, code string) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == code
}

func IsNotFound(err error) bool     { return hasCode(err, ErrorCodeNotFound) }
func IsUnavailable(err error) bool  { return hasCode(err, ErrorCodeUnavailable) }
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// ErrRepositoryUnavailable 表示一次协作方调用失败或超时。
func ErrRepositoryUnavailable(op string, err error) *DomainError {
	return WrapDomainError(ModuleRepository, ErrorCodeUnavailable, "repository: "+op+" unavailable", err)
}

// ErrInvalidContext 表示请求引用了不存在的商品或用户。
func ErrInvalidContext(message string) *DomainError {
	return NewDomainError(ModuleEngine, ErrorCodeInvalidInput, "invalid context: "+message)
}

// ErrTracking 表示行为写入失败。
func ErrTracking(err error) *DomainError {
	return WrapDomainError(ModuleTracker, ErrorCodeUnavailable, "tracker: write failed", err)
}
