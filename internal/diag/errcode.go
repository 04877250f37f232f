package diag

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"vksplice/pkg/contract"
)

// Code 是最小错误分类代码。
// 用于日志/计数汇总；进程退出码由 ExitCode 映射。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeArgument  Code = "argument"
	CodeAnchor    Code = "anchor"
	CodeWindow    Code = "window"
	CodeBraces    Code = "braces"
	CodeIO        Code = "io"
	CodeConfig    Code = "config"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	switch {
	case errors.Is(err, contract.ErrArgumentCardinality), errors.Is(err, contract.ErrInvalidArgument):
		return CodeArgument
	case errors.Is(err, contract.ErrAnchorNotFound):
		return CodeAnchor
	case errors.Is(err, contract.ErrMalformedWindow):
		return CodeWindow
	case errors.Is(err, contract.ErrUnbalancedBraces):
		return CodeBraces
	case errors.Is(err, contract.ErrConfigInvalid):
		return CodeConfig
	case errors.Is(err, contract.ErrInvariantViolation), errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	}
	// I/O
	var perr *fs.PathError
	var lerr *os.LinkError
	if errors.As(err, &perr) || errors.As(err, &lerr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return CodeIO
	}
	return CodeUnknown
}

// ExitCode 将分类映射为进程退出码（0 保留给成功）。
func ExitCode(c Code) int {
	switch c {
	case CodeArgument:
		return 2
	case CodeAnchor:
		return 3
	case CodeWindow:
		return 4
	case CodeBraces:
		return 5
	case CodeIO:
		return 6
	case CodeConfig:
		return 7
	case CodeInvariant:
		return 8
	case CodeCancel:
		return 9
	default:
		return 1
	}
}

// NowUTC 返回 RFC3339 UTC 时间字符串。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
