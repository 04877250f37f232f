package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（按路径打开单个文件）。
// 约束：
// 1) 只读，不做解码/业务解析，仅提供字节流；
// 2) 返回的 FileID 经 NormalizeFileID 规范化；
// 3) 调用方负责 Close；
// 4) 不在内部起并发。
type Reader interface {
	Open(ctx context.Context, path string) (FileID, io.ReadCloser, error)
}
