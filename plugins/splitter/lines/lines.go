package lines

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"vksplice/pkg/contract"
)

// Options 为行 Splitter 的可选配置（最小必要）。
type Options struct {
	// MaxLineBytes: 单行最大字节数（含终止符）。0 表示不限制。
	MaxLineBytes int `yaml:"max_line_bytes"`
	// AllowExts: 允许处理的文件扩展名（大小写不敏感，包含点，如 [".sol"]）。
	// 为空表示不限制。
	AllowExts []string `yaml:"allow_exts"`
}

// Splitter 按物理行拆分，行终止符保留在各自行内。
type Splitter struct {
	maxBytes int
	// 允许扩展名（小写），若为 nil 表示不限制。
	allow map[string]struct{}
}

// New 创建行 Splitter。
func New(opts *Options) *Splitter {
	mb := 0
	if opts != nil && opts.MaxLineBytes > 0 {
		mb = opts.MaxLineBytes
	}
	var allow map[string]struct{}
	if opts != nil && len(opts.AllowExts) > 0 {
		allow = make(map[string]struct{}, len(opts.AllowExts))
		for _, e := range opts.AllowExts {
			if e == "" {
				continue
			}
			allow[strings.ToLower(e)] = struct{}{}
		}
	}
	return &Splitter{maxBytes: mb, allow: allow}
}

// Split 读取全部字节并按 '\n' 切分；拼接结果与输入逐字节一致。
func (s *Splitter) Split(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Line, error) {
	if s.allow != nil {
		ext := strings.ToLower(path.Ext(string(fileID)))
		if _, ok := s.allow[ext]; !ok {
			return nil, fmt.Errorf("%w: %s: extension %q not allowed", contract.ErrInvalidArgument, fileID, ext)
		}
	}
	br := bufio.NewReader(r)
	var out []contract.Line
	for n := 1; ; n++ {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		l, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if l != "" {
			if s.maxBytes > 0 && len(l) > s.maxBytes {
				return nil, fmt.Errorf("%w: %s:%d: line too large: %d > %d", contract.ErrInvalidArgument, fileID, n, len(l), s.maxBytes)
			}
			// UTF-8 校验（最小必要：非法字节快速失败）
			if !utf8.ValidString(l) {
				return nil, fmt.Errorf("%w: %s:%d: decode error: invalid UTF-8", contract.ErrInvalidArgument, fileID, n)
			}
			out = append(out, contract.Line(l))
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var _ contract.Splitter = (*Splitter)(nil)
