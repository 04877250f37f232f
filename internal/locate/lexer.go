package locate

import "strings"

// lexer 逐行扫描代码，仅报告处于“代码态”的花括号位置。
// 跳过：// 行注释、/* */ 块注释（可跨行）、"..." 与 '...' 字面量（支持反斜杠转义）。
// 字符串字面量不得跨行；行尾仍处于字符串态视为源文本错误。
type lexer struct {
	inBlock bool
}

// brace 为单个代码态花括号：pos 为行内字节偏移，delta 为 +1/-1。
type brace struct {
	pos   int
	delta int
}

// scan 扫描一行（不含终止符），从 from 偏移开始。
// 返回代码态花括号序列；unterminated=true 表示行尾仍在字符串内。
func (lx *lexer) scan(s string, from int) (out []brace, unterminated bool) {
	i := from
	for i < len(s) {
		if lx.inBlock {
			end := indexFrom(s, "*/", i)
			if end < 0 {
				return out, false
			}
			lx.inBlock = false
			i = end + 2
			continue
		}
		c := s[i]
		switch {
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			return out, false
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			lx.inBlock = true
			i += 2
		case c == '"' || c == '\'':
			j := i + 1
			closed := false
			for j < len(s) {
				if s[j] == '\\' {
					j += 2
					continue
				}
				if s[j] == c {
					closed = true
					break
				}
				j++
			}
			if !closed {
				return out, true
			}
			i = j + 1
		case c == '{':
			out = append(out, brace{pos: i, delta: 1})
			i++
		case c == '}':
			out = append(out, brace{pos: i, delta: -1})
			i++
		default:
			i++
		}
	}
	return out, false
}

// codeAfter 报告 s[from:] 是否含有注释之外的非空白代码（from 处于代码态）。
func codeAfter(s string, from int) bool {
	probe := lexer{}
	i := from
	for i < len(s) {
		if probe.inBlock {
			end := indexFrom(s, "*/", i)
			if end < 0 {
				return false
			}
			probe.inBlock = false
			i = end + 2
			continue
		}
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			return false
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			probe.inBlock = true
			i += 2
		default:
			return true
		}
	}
	return false
}

func indexFrom(s, sub string, from int) int {
	if i := strings.Index(s[from:], sub); i >= 0 {
		return from + i
	}
	return -1
}
