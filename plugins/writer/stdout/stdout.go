// Package stdout 提供 dry-run Writer：不触碰目标文件，改为输出改写结果或统一差异。
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"vksplice/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// Diff: 输出与原文的统一差异而非全文。
	Diff bool `yaml:"diff"`
	// Context: 差异上下文行数；<=0 使用默认 3。
	Context int `yaml:"context"`
}

// Writer 实现 contract.Writer 与 contract.OriginalAware。
type Writer struct {
	out     io.Writer
	diff    bool
	context int

	mu   sync.Mutex
	orig map[contract.FileID]string
}

// New 创建写往 STDOUT 的 dry-run Writer。
func New(opts *Options) *Writer { return NewTo(os.Stdout, opts) }

// NewTo 创建写往 out 的 dry-run Writer。
func NewTo(out io.Writer, opts *Options) *Writer {
	w := &Writer{out: out, context: 3, orig: map[contract.FileID]string{}}
	if opts != nil {
		w.diff = opts.Diff
		if opts.Context > 0 {
			w.context = opts.Context
		}
	}
	return w
}

// SetOriginal 记录改写前的文本，供差异输出使用。
func (w *Writer) SetOriginal(id contract.FileID, lines []contract.Line) {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(string(l))
	}
	w.mu.Lock()
	w.orig[id] = b.String()
	w.mu.Unlock()
}

// Write 输出全文；Diff 模式下输出统一差异（无原文记录时按空文件比较）。
func (w *Writer) Write(ctx context.Context, id contract.FileID, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if !w.diff {
		_, err := io.Copy(w.out, r)
		return err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	before := w.orig[id]
	w.mu.Unlock()

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(string(b)),
		FromFile: string(id) + ".orig",
		ToFile:   string(id),
		Context:  w.context,
	}
	if err := difflib.WriteUnifiedDiff(w.out, ud); err != nil {
		return fmt.Errorf("diff %s: %w", id, err)
	}
	return nil
}

var (
	_ contract.Writer        = (*Writer)(nil)
	_ contract.OriginalAware = (*Writer)(nil)
)
