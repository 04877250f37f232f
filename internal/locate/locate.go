// Package locate 在目标文本中按锚点定位函数区间（花括号平衡扫描）。
package locate

import (
	"strings"

	"vksplice/pkg/contract"
)

// Find 返回首个包含 anchor 的行所在函数的区间。
//
// 规则：
//   - 锚点为字面子串匹配；缺失返回 ErrAnchorNotFound；
//   - 花括号按出现次数计数（非按行是否出现），注释与字符串字面量内的花括号不计；
//   - 函数自身的左花括号（通常位于声明行）使深度变为 1，此后首次回到 0 的行即 Last；
//   - 到达文本末尾仍未回到 0、行尾字符串未闭合、或闭合花括号之后同行仍有代码，
//     返回 ErrUnbalancedBraces。
//
// 纯函数：不修改 lines。返回错误不绑定 FileID，由调用方补充。
func Find(lines []contract.Line, anchor string) (contract.Region, error) {
	first := -1
	col := 0
	for i, l := range lines {
		if k := strings.Index(l.Text(), anchor); k >= 0 {
			first, col = i, k
			break
		}
	}
	if first < 0 {
		return contract.Region{}, contract.Errorf(contract.ErrAnchorNotFound, "", anchor, -1, "")
	}

	var lx lexer
	depth := 0
	open := -1
	for j := first; j < len(lines); j++ {
		text := lines[j].Text()
		from := 0
		if j == first {
			from = col
		}
		braces, unterminated := lx.scan(text, from)
		for _, b := range braces {
			if open < 0 {
				if b.delta < 0 {
					return contract.Region{}, contract.Errorf(contract.ErrUnbalancedBraces, "", anchor, j, "closing brace before the function body opens")
				}
				open = j
				depth = 1
				continue
			}
			depth += b.delta
			if depth == 0 {
				if codeAfter(text, b.pos+1) {
					return contract.Region{}, contract.Errorf(contract.ErrUnbalancedBraces, "", anchor, j, "code follows the closing brace on the same line")
				}
				return contract.Region{First: first, Open: open, Last: j}, nil
			}
		}
		if unterminated {
			return contract.Region{}, contract.Errorf(contract.ErrUnbalancedBraces, "", anchor, j, "unterminated string literal")
		}
	}
	if open < 0 {
		return contract.Region{}, contract.Errorf(contract.ErrUnbalancedBraces, "", anchor, first, "function body never opens")
	}
	return contract.Region{}, contract.Errorf(contract.ErrUnbalancedBraces, "", anchor, first, "end of text reached at depth %d", depth)
}

// FindAll 依次定位多个锚点；全部基于原始坐标，互不影响。
func FindAll(lines []contract.Line, anchors ...string) ([]contract.Region, error) {
	out := make([]contract.Region, 0, len(anchors))
	for _, a := range anchors {
		r, err := Find(lines, a)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
