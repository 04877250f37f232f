package contract

import "context"

// Extractor: 从单个源文件的行序列中抽取密钥向量与点向量。
// 约束：
//   - 纯计算，不做 I/O；
//   - 锚点缺失返回 ErrAnchorNotFound，个数/格式不符返回 ErrMalformedWindow；
//   - 失败时不返回部分结果。
type Extractor interface {
	Extract(ctx context.Context, fileID FileID, lines []Line, shape Shape) (Extraction, error)
}
