package contract

import (
	"context"
	"io"
)

// Writer: 将装配结果持久化到目标介质。
// 约束：
//  1. 同一 FileID 单写者（跨进程串行化由调用方保证）；
//  2. 按字节透传，不读取/修改业务内容；
//  3. ctx 取消/超时需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id FileID, r io.Reader) error
}

// OriginalAware: 可选扩展接口。若实现，编排层在写出前提供改写前的原始行，
// 供 dry-run/diff 类 Writer 使用。
type OriginalAware interface {
	SetOriginal(id FileID, lines []Line)
}
