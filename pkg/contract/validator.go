package contract

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"
)

// 校验库函数（纯函数，无 I/O）：
// - ValidateDiscriminants: 基数一致、非空、十进制无符号且不超过位宽、互不重复
// - NewBranches:           在校验通过后按输入顺序配对
// - ValidateRegions:       区间在范围内、First<=Open<=Last、互不重叠

// ValidateDiscriminants 校验聚合模式的 (sources, discriminants) 形状。
// bits<=0 或超过 256 时按 uint256 处理。
func ValidateDiscriminants(sources, discriminants []string, bits int) error {
	if len(sources) != len(discriminants) {
		return fmt.Errorf("%w: %d source(s), %d discriminant(s)", ErrArgumentCardinality, len(sources), len(discriminants))
	}
	if len(sources) == 0 {
		return fmt.Errorf("%w: no sources", ErrInvalidArgument)
	}
	if bits <= 0 || bits > 256 {
		bits = 256
	}
	seen := make(map[string]string, len(discriminants))
	for i, d := range discriminants {
		if sources[i] == "" {
			return fmt.Errorf("%w: source #%d is empty", ErrInvalidArgument, i+1)
		}
		v, ok := parseDiscriminant(d)
		if !ok || v.BitLen() > bits {
			return fmt.Errorf("%w: discriminant #%d %q is not a uint%d", ErrInvalidArgument, i+1, d, bits)
		}
		// 按数值判重："01" 与 "1" 在目标代码中等价
		key := v.Dec()
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: discriminant %q duplicates %q", ErrInvalidArgument, d, prev)
		}
		seen[key] = d
	}
	return nil
}

// CanonicalDiscriminant 返回去掉前导零的十进制形式（Solidity 不接受 01 这类字面量）。
// 非法输入原样返回。
func CanonicalDiscriminant(d string) string {
	if v, ok := parseDiscriminant(d); ok {
		return v.Dec()
	}
	return d
}

// parseDiscriminant 只接受纯十进制数字串。
func parseDiscriminant(d string) (*uint256.Int, bool) {
	if d == "" {
		return nil, false
	}
	for i := 0; i < len(d); i++ {
		if d[i] < '0' || d[i] > '9' {
			return nil, false
		}
	}
	v, err := uint256.FromDecimal(d)
	if err != nil {
		return nil, false
	}
	return v, true
}

// NewBranches 将抽取结果与判别值按位置配对。
func NewBranches(exts []Extraction, discriminants []string) ([]Branch, error) {
	if len(exts) != len(discriminants) {
		return nil, fmt.Errorf("%w: %d extraction(s), %d discriminant(s)", ErrArgumentCardinality, len(exts), len(discriminants))
	}
	out := make([]Branch, len(exts))
	for i := range exts {
		out[i] = Branch{Discriminant: discriminants[i], Extraction: exts[i]}
	}
	return out, nil
}

// ValidateRegions 检查区间合法且互不重叠（按原始坐标）。
func ValidateRegions(n int, regions []Region) error {
	rs := append([]Region(nil), regions...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].First < rs[j].First })
	prevLast := -1
	for _, r := range rs {
		if r.First < 0 || r.Last >= n || r.First > r.Last || r.Open < r.First || r.Open > r.Last {
			return fmt.Errorf("%w: region [%d,%d] out of range (n=%d)", ErrInvariantViolation, r.First, r.Last, n)
		}
		if r.First <= prevLast {
			return fmt.Errorf("%w: region [%d,%d] overlaps previous region ending at %d", ErrInvariantViolation, r.First, r.Last, prevLast)
		}
		prevLast = r.Last
	}
	return nil
}
