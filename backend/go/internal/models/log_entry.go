package models

import "net/http"

// RequestInfo 存储了关于 HTTP 请求的上下文信息。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
}

// ErrorInfo 存储了关于错误的结构化信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`        // 错误的类型，PipelineError 时为其类别
	StatusCode int    `json:"status_code,omitempty"` // 相关的HTTP状态码
}

// NewErrorInfo 从 error 构造日志用的错误信息，自动带上流水线错误类别。
func NewErrorInfo(err error) ErrorInfo {
	info := ErrorInfo{Message: err.Error()}
	if kind, ok := KindOf(err); ok {
		info.Type = string(kind)
	}
	return info
}

// RequestInfoFrom 提取请求信息。
func RequestInfoFrom(r *http.Request) RequestInfo {
	return RequestInfo{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
}
