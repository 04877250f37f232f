package contract

import (
	"errors"
	"fmt"
	"strings"
)

// 最小错误分类（哨兵）。上层以 errors.Is 判定，不做字符串匹配。
var (
	// ErrArgumentCardinality: 聚合模式下源路径与判别值个数不一致。
	ErrArgumentCardinality = errors.New("argument cardinality mismatch")
	// ErrInvalidArgument: 参数形状非法（判别值重复/非数字、模式与参数不符等）。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAnchorNotFound: 源或目标文本中缺少期望的函数签名。
	ErrAnchorNotFound = errors.New("anchor not found")
	// ErrMalformedWindow: 锚点后的固定窗口未产出期望个数的数字字面量。
	ErrMalformedWindow = errors.New("malformed constant window")
	// ErrUnbalancedBraces: 花括号计数到文本末尾仍未回到 0。
	ErrUnbalancedBraces = errors.New("unbalanced braces")
	// ErrConfigInvalid: 配置/Profile 非法。
	ErrConfigInvalid = errors.New("config invalid")
	// ErrPathInvalid: 目标标识映射为无效路径。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)

// SourceError 携带定位上下文（文件/锚点/行号）。
// Line 为 1 基行号；0 表示不适用。
type SourceError struct {
	Kind   error
	FileID FileID
	Anchor string
	Line   int
	Detail string
}

func (e *SourceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.FileID != "" {
		fmt.Fprintf(&b, ": %s", e.FileID)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	if e.Anchor != "" {
		fmt.Fprintf(&b, " (anchor %q)", e.Anchor)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *SourceError) Unwrap() error { return e.Kind }

// Errorf 构造 SourceError；line 为 0 基下标（内部统一转换为 1 基），<0 表示不适用。
func Errorf(kind error, fileID FileID, anchor string, line int, format string, a ...any) error {
	e := &SourceError{Kind: kind, FileID: fileID, Anchor: anchor}
	if line >= 0 {
		e.Line = line + 1
	}
	if format != "" {
		e.Detail = fmt.Sprintf(format, a...)
	}
	return e
}

// WithFile 为尚未绑定文件的 SourceError 补充 FileID；其他错误原样返回。
func WithFile(err error, fileID FileID) error {
	var se *SourceError
	if errors.As(err, &se) && se.FileID == "" {
		cp := *se
		cp.FileID = fileID
		return &cp
	}
	return err
}
