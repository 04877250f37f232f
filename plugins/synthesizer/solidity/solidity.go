// Package solidity 生成替换目标模板两函数（验证密钥函数与点函数）的 Solidity 文本。
package solidity

import (
	"context"
	"fmt"
	"strings"

	"vksplice/pkg/contract"
)

// Options 为 Solidity Synthesizer 的可选配置。
type Options struct {
	// Indent: 每级缩进。空表示 4 个空格。
	Indent string `yaml:"indent"`
	// BlankLines: 每个函数之后是否追加一个空行。nil 表示默认开启。
	BlankLines *bool `yaml:"blank_lines"`
}

// Synthesizer 实现 contract.Synthesizer。
type Synthesizer struct {
	indent string
	blank  bool
}

// New 创建 Synthesizer。
func New(opts *Options) *Synthesizer {
	s := &Synthesizer{indent: "    ", blank: true}
	if opts != nil {
		if opts.Indent != "" {
			s.indent = opts.Indent
		}
		if opts.BlankLines != nil {
			s.blank = *opts.BlankLines
		}
	}
	return s
}

// Synthesize 依次输出密钥函数与点函数；两函数的声明行取自模板原文。
func (s *Synthesizer) Synthesize(ctx context.Context, req contract.SynthRequest) ([]contract.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := check(req); err != nil {
		return nil, err
	}
	eol := req.EOL
	if eol == "" {
		eol = "\n"
	}
	d := req.Profile.Dest
	e := &emitter{eol: eol, unit: s.indent}

	// 密钥函数
	e.header(req.KeyHeader)
	e.body(req, func(ext contract.Extraction, depth int) {
		for i, k := range ext.Key {
			e.line(depth, fmt.Sprintf("%s[%d] = %s;", d.KeyVar, i, k))
		}
		e.line(depth, "return "+d.KeyVar+";")
	})
	e.close(s.blank)

	// 点函数
	e.header(req.PointHeader)
	e.body(req, func(ext contract.Extraction, depth int) {
		pv := ext.PointVector()
		if req.PointArray == contract.PointArrayDynamic {
			e.line(depth, fmt.Sprintf("%s = new uint256[](%d);", d.PointVar, len(pv)))
		}
		for i, p := range pv {
			e.line(depth, fmt.Sprintf("%s[%d] = %s;", d.PointVar, i, p))
		}
		e.line(depth, "return "+d.PointVar+";")
	})
	e.close(s.blank)

	return e.out, nil
}

func check(req contract.SynthRequest) error {
	d := req.Profile.Dest
	if d.KeyVar == "" || d.PointVar == "" {
		return fmt.Errorf("%w: key_var and point_var are required", contract.ErrConfigInvalid)
	}
	if len(req.KeyHeader) == 0 || len(req.PointHeader) == 0 {
		return fmt.Errorf("%w: missing function header", contract.ErrInvariantViolation)
	}
	switch req.Mode {
	case contract.ModeSingle:
		if len(req.Single.Key) == 0 {
			return fmt.Errorf("%w: empty key vector", contract.ErrInvariantViolation)
		}
	case contract.ModeAggregate:
		if d.Discriminant == "" || d.Fallback == "" {
			return fmt.Errorf("%w: discriminant and fallback are required in aggregate mode", contract.ErrConfigInvalid)
		}
		if len(req.Branches) == 0 {
			return fmt.Errorf("%w: no branches", contract.ErrInvariantViolation)
		}
		for i, b := range req.Branches {
			if b.Discriminant == "" || len(b.Extraction.Key) == 0 {
				return fmt.Errorf("%w: branch #%d is incomplete", contract.ErrInvariantViolation, i+1)
			}
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", contract.ErrInvalidArgument, req.Mode)
	}
	return nil
}

// emitter 累积输出行；base 为函数声明行的前导空白。
type emitter struct {
	out  []contract.Line
	eol  string
	unit string
	base string
}

func (e *emitter) line(depth int, text string) {
	e.out = append(e.out, contract.Line(e.base+strings.Repeat(e.unit, depth)+text+e.eol))
}

// header 原样复用模板声明；末行截断到函数左花括号为止。
func (e *emitter) header(h []contract.Line) {
	first := h[0].Text()
	e.base = first[:len(first)-len(strings.TrimLeft(first, " \t"))]
	for i, l := range h {
		if i < len(h)-1 {
			if l.EOL() == "" {
				l += contract.Line(e.eol)
			}
			e.out = append(e.out, l)
			continue
		}
		text := l.Text()
		// 声明部分不含花括号，首个左花括号即函数体起点
		if k := strings.IndexByte(text, '{'); k >= 0 {
			text = text[:k+1]
		}
		eol := l.EOL()
		if eol == "" {
			eol = e.eol
		}
		e.out = append(e.out, contract.Line(text+eol))
	}
}

// body 单源平铺；聚合输出 if / else if / else 分派，兜底分支恒在最后。
func (e *emitter) body(req contract.SynthRequest, emit func(contract.Extraction, int)) {
	if req.Mode == contract.ModeSingle {
		emit(req.Single, 1)
		return
	}
	d := req.Profile.Dest
	for i, b := range req.Branches {
		cond := fmt.Sprintf("(%s == %s) {", d.Discriminant, b.Discriminant)
		if i == 0 {
			e.line(1, "if "+cond)
		} else {
			e.line(1, "} else if "+cond)
		}
		emit(b.Extraction, 2)
	}
	e.line(1, "} else {")
	e.line(2, d.Fallback)
	e.line(1, "}")
}

func (e *emitter) close(blank bool) {
	e.line(0, "}")
	if blank {
		e.out = append(e.out, contract.Line(e.eol))
	}
}

var _ contract.Synthesizer = (*Synthesizer)(nil)
