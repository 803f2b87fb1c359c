package models

import (
	"errors"
	"fmt"
)

// ErrorKind 标识流水线中失败的类别。
type ErrorKind string

const (
	KindFetchFailed           ErrorKind = "fetch_failed"
	KindTranscriptUnavailable ErrorKind = "transcript_unavailable"
	KindUnsupportedFileType   ErrorKind = "unsupported_file_type"
	KindGenerationFailed      ErrorKind = "generation_failed"
	KindEmbeddingFailed       ErrorKind = "embedding_failed"
	KindDistanceComputation   ErrorKind = "distance_computation_error"
)

// 每个类别对应一个哨兵错误，便于使用 errors.Is 判断。
var (
	ErrFetchFailed           = &PipelineError{Kind: KindFetchFailed}
	ErrTranscriptUnavailable = &PipelineError{Kind: KindTranscriptUnavailable}
	ErrUnsupportedFileType   = &PipelineError{Kind: KindUnsupportedFileType}
	ErrGenerationFailed      = &PipelineError{Kind: KindGenerationFailed}
	ErrEmbeddingFailed       = &PipelineError{Kind: KindEmbeddingFailed}
	ErrDistanceComputation   = &PipelineError{Kind: KindDistanceComputation}
)

// ErrNotFound 表示请求的记录不存在或不属于当前用户。
var ErrNotFound = errors.New("not found")

// PipelineError 是各阶段边界上返回的类型化错误。
type PipelineError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

// NewPipelineError 创建一个带阶段信息的错误。
func NewPipelineError(kind ErrorKind, stage string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

func (e *PipelineError) Error() string {
	switch {
	case e.Stage != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Stage != "":
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is 让同类别的 PipelineError 彼此匹配。
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf 返回错误链中第一个 PipelineError 的类别。
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
