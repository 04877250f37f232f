package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"vksplice/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `yaml:"buf_size"`
	// MaxBytes: 单文件大小上限（字节）。0 表示不限制。
	MaxBytes int64 `yaml:"max_bytes"`
}

// FileSystem 实现基于文件系统与 STDIN 的 Reader。
type FileSystem struct {
	bufSize  int
	maxBytes int64
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	var mb int64
	if opts != nil {
		if opts.BufSize > 0 {
			b = opts.BufSize
		}
		if opts.MaxBytes > 0 {
			mb = opts.MaxBytes
		}
	}
	return &FileSystem{bufSize: b, maxBytes: mb}
}

// Open 打开单个常规文件；"-" 表示 STDIN。
// 指向常规文件的符号链接被跟随；目录与其他非常规文件返回 ErrInvalidArgument。
func (r *FileSystem) Open(ctx context.Context, path string) (contract.FileID, io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	default:
	}

	if path == "-" {
		// 统一缓冲策略：STDIN 也使用 bufio.Reader 封装
		return contract.FileID("stdin"), newBufferedCloser(io.NopCloser(os.Stdin), r.bufSize, r.maxBytes), nil
	}
	if path == "" {
		return "", nil, fmt.Errorf("%w: empty path", contract.ErrInvalidArgument)
	}

	// os.Stat 跟随符号链接，仅接受最终目标为常规文件
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %s is not a regular file", contract.ErrInvalidArgument, path)
	}
	if r.maxBytes > 0 && info.Size() > r.maxBytes {
		return "", nil, fmt.Errorf("%w: %s is %d bytes, limit %d", contract.ErrInvalidArgument, path, info.Size(), r.maxBytes)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	return contract.NormalizeFileID(path), newBufferedCloser(f, r.bufSize, r.maxBytes), nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	io.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int, limit int64) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	var rd io.Reader = bufio.NewReaderSize(c, bufSize)
	if limit > 0 {
		rd = &limitReader{r: rd, left: limit}
	}
	return &bufferedCloser{Reader: rd, c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }

// limitReader 超出上限时返回错误（而非静默截断）。
type limitReader struct {
	r    io.Reader
	left int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, fmt.Errorf("%w: input exceeds size limit", contract.ErrInvalidArgument)
	}
	return n, err
}

var _ contract.Reader = (*FileSystem)(nil)
