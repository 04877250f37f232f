// Package linear 把拼接后的行按顺序还原为字节流。
package linear

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"vksplice/pkg/contract"
)

// Options: 线性装配无配置项，保留以统一工厂签名。
type Options struct{}

type assembler struct{}

// New 创建线性装配器；raw 须为空或空映射。
func New(raw *yaml.Node) (contract.Assembler, error) {
	if raw != nil && raw.Kind == yaml.MappingNode && len(raw.Content) > 0 {
		return nil, fmt.Errorf("linear assembler takes no options, got %q", raw.Content[0].Value)
	}
	return &assembler{}, nil
}

// Assemble 逐行原样拼接，不增删任何终止符。
// 除末行外任何一行缺少终止符（会与下一行粘连）即返回 ErrInvariantViolation。
func (a *assembler) Assemble(ctx context.Context, fileID contract.FileID, lines []contract.Line) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := 0
	for i, l := range lines {
		if i < len(lines)-1 && l.EOL() == "" {
			return nil, fmt.Errorf("%w: %s: line %d has no terminator", contract.ErrInvariantViolation, fileID, i+1)
		}
		n += len(l)
	}
	var b strings.Builder
	b.Grow(n)
	for _, l := range lines {
		b.WriteString(string(l))
	}
	return strings.NewReader(b.String()), nil
}

var _ contract.Assembler = (*assembler)(nil)
