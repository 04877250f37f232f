// Package shape 从目标模板的函数声明推导向量长度与点数组风格。
package shape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"vksplice/pkg/contract"
)

// Derived: 推导结果。
type Derived struct {
	Shape      contract.Shape
	PointArray contract.PointArray
}

// Header 返回区间的声明部分（First..Open，含函数自身左花括号所在行）。
func Header(lines []contract.Line, r contract.Region) []contract.Line {
	return append([]contract.Line(nil), lines[r.First:r.Open+1]...)
}

// Derive 以模板声明为准，缺省回落到 Profile 默认值：
//   - 密钥数组须为定长 uint256[N]，N 即 KeyLen；未声明时取 Profile 默认；
//   - 点数组 uint256[N] 为定长（PointLen=N，须为正偶数）；uint256[] 为动态，PointLen 取 Profile 默认。
func Derive(keyHeader, pointHeader []contract.Line, p contract.Profile) (Derived, error) {
	d := Derived{Shape: p.Shape, PointArray: contract.PointArrayDynamic}

	n, fixed, ok := declared(keyHeader, p.Dest.KeyVar)
	switch {
	case ok && !fixed:
		return Derived{}, fmt.Errorf("%w: key array %q must be fixed-size", contract.ErrConfigInvalid, p.Dest.KeyVar)
	case ok:
		d.Shape.KeyLen = n
	}
	if d.Shape.KeyLen <= 0 {
		return Derived{}, fmt.Errorf("%w: key length unknown for %q", contract.ErrConfigInvalid, p.Dest.KeyVar)
	}

	n, fixed, ok = declared(pointHeader, p.Dest.PointVar)
	if ok && fixed {
		if n <= 0 || n%2 != 0 {
			return Derived{}, fmt.Errorf("%w: point array %q length %d is not a positive even number", contract.ErrConfigInvalid, p.Dest.PointVar, n)
		}
		d.Shape.PointLen = n
		d.PointArray = contract.PointArrayFixed
	}
	if d.Shape.PointLen%2 != 0 || d.Shape.PointLen < 0 {
		return Derived{}, fmt.Errorf("%w: point length %d is not even", contract.ErrConfigInvalid, d.Shape.PointLen)
	}
	return d, nil
}

// declared 在声明文本中查找 `uint256[N] memory <name>` 或 `uint256[] memory <name>`。
func declared(header []contract.Line, name string) (n int, fixed, ok bool) {
	if name == "" {
		return 0, false, false
	}
	var b strings.Builder
	for _, l := range header {
		b.WriteString(l.Text())
		b.WriteByte(' ')
	}
	re := regexp.MustCompile(`uint256\s*\[\s*(\d*)\s*\]\s+(?:memory\s+)?` + regexp.QuoteMeta(name) + `\b`)
	m := re.FindStringSubmatch(b.String())
	if m == nil {
		return 0, false, false
	}
	if m[1] == "" {
		return 0, false, true
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false, false
	}
	return v, true, true
}
