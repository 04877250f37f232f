package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"vksplice/pkg/contract"
)

// BenchmarkWrite 比较原子替换与直接覆盖写回一个聚合合约的开销。
func BenchmarkWrite(b *testing.B) {
	// 约 64 个分支规模的合约正文
	var sb strings.Builder
	for i := 0; i < 64*22; i++ {
		fmt.Fprintf(&sb, "            vk[%d] = %d;\n", i%14, 1<<40+i)
	}
	text := sb.String()
	for _, atomic := range []bool{true, false} {
		b.Run(fmt.Sprintf("atomic=%t", atomic), func(b *testing.B) {
			w, err := New(&Options{Atomic: &atomic})
			if err != nil {
				b.Fatalf("创建 Writer 失败: %v", err)
			}
			id := contract.NormalizeFileID(filepath.Join(b.TempDir(), "ZkBNBVerifier.sol"))
			ctx := context.Background()
			b.SetBytes(int64(len(text)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := w.Write(ctx, id, strings.NewReader(text)); err != nil {
					b.Fatalf("写入失败: %v", err)
				}
			}
		})
	}
}
