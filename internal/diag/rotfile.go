package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	logPrefix      = "vksplice-"
	currentLogName = logPrefix + "current.log"
	// 默认单文件上限与保留的历史文件数
	defaultLogMaxBytes = 10 << 20
	defaultLogKeep     = 5
)

// RotatingFile 是按大小轮转的 JSON 日志落盘目标，实现 io.Writer（供 zerolog 使用）。
//
// 当前文件固定为 vksplice-current.log；写入会使其超过 maxBytes 时，
// 先改名为 vksplice-<UTC 纳秒时间戳>.log 再重新创建，并只保留最近 keep 个历史文件。
// 目录在首次写入时才创建。
type RotatingFile struct {
	dir      string
	maxBytes int64
	keep     int

	mu   sync.Mutex
	f    *os.File
	size int64
}

// NewRotatingFile 创建轮转写入器；maxBytes<=0 取 10MiB。
func NewRotatingFile(dir string, maxBytes int64) *RotatingFile {
	if maxBytes <= 0 {
		maxBytes = defaultLogMaxBytes
	}
	return &RotatingFile{dir: dir, maxBytes: maxBytes, keep: defaultLogKeep}
}

// WithKeep 设置保留的历史文件数；n<=0 保持默认。
func (w *RotatingFile) WithKeep(n int) *RotatingFile {
	if n > 0 {
		w.mu.Lock()
		w.keep = n
		w.mu.Unlock()
	}
	return w
}

// Write 写入一条完整事件（zerolog 每次调用写一整行，已含换行）。
// 单条事件不会被拆到两个文件中。
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ensureOpen(); err != nil {
		return 0, err
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

// WriteLine 写入一行（自动追加换行）。
func (w *RotatingFile) WriteLine(b []byte) error {
	_, err := w.Write(append(b[:len(b):len(b)], '\n'))
	return err
}

func (w *RotatingFile) ensureOpen() error {
	if w.f != nil {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.dir, currentLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.f, w.size = f, 0
	if st, err := f.Stat(); err == nil {
		w.size = st.Size()
	}
	return nil
}

func (w *RotatingFile) rotate() error {
	if w.f == nil {
		return w.ensureOpen()
	}
	cur := w.f.Name()
	_ = w.f.Close()
	w.f = nil
	// 纳秒精度，同秒多次轮转不互相覆盖
	ts := time.Now().UTC().Format("20060102-150405.000000000")
	if err := os.Rename(cur, filepath.Join(w.dir, logPrefix+ts+".log")); err != nil {
		return fmt.Errorf("rename rotated log: %w", err)
	}
	w.prune()
	return w.ensureOpen()
}

// prune 删除超出保留数的最旧历史文件（时间戳名按字典序即时间序）。
// 清理失败不影响写入。
func (w *RotatingFile) prune() {
	old, err := filepath.Glob(filepath.Join(w.dir, logPrefix+"*.log"))
	if err != nil {
		return
	}
	hist := old[:0]
	for _, p := range old {
		if filepath.Base(p) != currentLogName {
			hist = append(hist, p)
		}
	}
	if len(hist) <= w.keep {
		return
	}
	sort.Strings(hist)
	for _, p := range hist[:len(hist)-w.keep] {
		_ = os.Remove(p)
	}
}

// Close 关闭当前文件句柄；之后的 Write 会重新打开。
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
