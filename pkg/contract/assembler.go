package contract

import (
	"context"
	"io"
)

// Assembler: 将 []Line 线性装配为最终字节流（单文件）。
// 约束：
//  1. 按切片顺序拼接，不插入分隔符；
//  2. 不修改行内容；
//  3. 不引入跨文件状态。
type Assembler interface {
	Assemble(ctx context.Context, fileID FileID, lines []Line) (io.Reader, error)
}
