package contract

import (
	"context"
	"io"
)

// Splitter: 将单文件字节流拆分为有序 []Line。
// 约束：
// 1) 不改变任何字节（行终止符保留在各自行内）；
// 2) 拼接全部 Line 必须还原原始字节流；
// 3) 无内部并发、幂等。
type Splitter interface {
	Split(ctx context.Context, fileID FileID, r io.Reader) ([]Line, error)
}
