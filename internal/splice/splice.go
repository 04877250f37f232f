// Package splice 在原始坐标下删除若干行区间并在单一偏移处插入新文本。
package splice

import (
	"fmt"
	"sort"

	"vksplice/pkg/contract"
)

// Apply 返回新的行序列：
//   - 删除 regions 覆盖的全部行（闭区间，原始坐标，互不重叠）；
//   - 在原始偏移 at 处插入 insert（at 位于某区间内时插在该区间原位置）；
//   - 区间外的行按原顺序逐字节保留。
//
// lines 与 insert 均不被修改。
func Apply(lines []contract.Line, regions []contract.Region, at int, insert []contract.Line) ([]contract.Line, error) {
	if err := contract.ValidateRegions(len(lines), regions); err != nil {
		return nil, err
	}
	if at < 0 || at > len(lines) {
		return nil, fmt.Errorf("%w: insertion offset %d out of range (n=%d)", contract.ErrInvariantViolation, at, len(lines))
	}
	rs := append([]contract.Region(nil), regions...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].First < rs[j].First })

	removed := 0
	for _, r := range rs {
		removed += r.Len()
	}
	out := make([]contract.Line, 0, len(lines)-removed+len(insert))
	inserted := false
	k := 0
	for i := 0; i < len(lines); {
		if !inserted && i == at {
			out = append(out, insert...)
			inserted = true
		}
		if k < len(rs) && i == rs[k].First {
			// 插入点落在区间内部时，按区间起点插入
			if !inserted && at <= rs[k].Last {
				out = append(out, insert...)
				inserted = true
			}
			i = rs[k].Last + 1
			k++
			continue
		}
		out = append(out, lines[i])
		i++
	}
	if !inserted {
		out = append(out, insert...)
	}
	return out, nil
}

// Untouched 返回不在任何区间内的原始行（按原顺序），供校验使用。
func Untouched(lines []contract.Line, regions []contract.Region) []contract.Line {
	out := make([]contract.Line, 0, len(lines))
	for i, l := range lines {
		if !inAny(i, regions) {
			out = append(out, l)
		}
	}
	return out
}

func inAny(i int, regions []contract.Region) bool {
	for _, r := range regions {
		if i >= r.First && i <= r.Last {
			return true
		}
	}
	return false
}

// Offset 返回 Apply 插入的文本在输出序列中的起始下标。
func Offset(regions []contract.Region, at int) int {
	pos := at
	for _, r := range regions {
		switch {
		case r.Last < at:
			pos -= r.Len()
		case r.First < at:
			// at 落在区间内部：实际插在区间起点
			pos -= at - r.First
		}
	}
	return pos
}
