// Package groth16 从 gnark 生成的 Groth16 Solidity verifier 中抽取验证密钥常量与 IC 点坐标。
//
// 抽取规则（逐行文本匹配，不解析 Solidity）：
//   - 密钥向量：首个包含 KeyAnchor 的行之后固定 Window 行，每行按 Token 切分，
//     除首段外每段只保留 ASCII 数字；
//   - 点向量：每个包含任一 PointMarkers 的行给出 X（首个 '(' 与其后 ')' 之间的文本），
//     紧随其后的一行以同样方式给出 Y。
package groth16

import (
	"context"
	"fmt"
	"strings"

	"vksplice/internal/literal"
	"vksplice/pkg/contract"
)

// Options 为 Groth16 Extractor 的可选配置。
type Options struct {
	// FieldCheck: 是否要求每个字面量小于 BN254 基域模数。nil 表示默认开启。
	// 关闭时仍校验十进制与 uint256 范围。
	FieldCheck *bool `yaml:"field_check"`
}

// Extractor 实现 contract.Extractor。
type Extractor struct {
	src   contract.SourceAnchors
	check func(string) error
}

// New 创建 Extractor；src 来自当前 Profile 的源侧锚点。
func New(src contract.SourceAnchors, opts *Options) (*Extractor, error) {
	if src.KeyAnchor == "" || src.Token == "" || src.Window <= 0 {
		return nil, fmt.Errorf("%w: groth16 extractor needs key_anchor, token and a positive window", contract.ErrConfigInvalid)
	}
	if len(src.PointMarkers) == 0 {
		return nil, fmt.Errorf("%w: groth16 extractor needs at least one point marker", contract.ErrConfigInvalid)
	}
	for _, m := range src.PointMarkers {
		if m == "" {
			return nil, fmt.Errorf("%w: empty point marker", contract.ErrConfigInvalid)
		}
	}
	x := &Extractor{src: src, check: literal.Check}
	if opts != nil && opts.FieldCheck != nil && !*opts.FieldCheck {
		x.check = literal.CheckWord
	}
	return x, nil
}

// Extract 抽取单个源文件。失败时不返回部分结果。
func (x *Extractor) Extract(ctx context.Context, fileID contract.FileID, lines []contract.Line, shape contract.Shape) (contract.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return contract.Extraction{}, err
	}
	key, err := x.key(fileID, lines, shape.KeyLen)
	if err != nil {
		return contract.Extraction{}, err
	}
	if err := ctx.Err(); err != nil {
		return contract.Extraction{}, err
	}
	pts, err := x.points(fileID, lines, shape.PointLen)
	if err != nil {
		return contract.Extraction{}, err
	}
	return contract.Extraction{FileID: fileID, Key: key, Points: pts}, nil
}

func (x *Extractor) key(fileID contract.FileID, lines []contract.Line, want int) (contract.ConstantVector, error) {
	anchor := x.src.KeyAnchor
	at := -1
	for i, l := range lines {
		if strings.Contains(l.Text(), anchor) {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, contract.Errorf(contract.ErrAnchorNotFound, fileID, anchor, -1, "")
	}
	if at+x.src.Window >= len(lines) {
		return nil, contract.Errorf(contract.ErrMalformedWindow, fileID, anchor, at,
			"window of %d lines runs past end of file (%d lines)", x.src.Window, len(lines))
	}

	var out contract.ConstantVector
	for w := 1; w <= x.src.Window; w++ {
		n := at + w
		segs := strings.Split(lines[n].Text(), x.src.Token)
		for _, seg := range segs[1:] {
			d := digits(seg)
			if err := x.check(d); err != nil {
				return nil, contract.Errorf(contract.ErrMalformedWindow, fileID, anchor, n, "constant #%d: %v", len(out)+1, err)
			}
			out = append(out, d)
		}
	}
	if want > 0 && len(out) != want {
		return nil, contract.Errorf(contract.ErrMalformedWindow, fileID, anchor, at, "expected %d constants, got %d", want, len(out))
	}
	return out, nil
}

func (x *Extractor) points(fileID contract.FileID, lines []contract.Line, want int) ([]contract.PointPair, error) {
	var out []contract.PointPair
	for i, l := range lines {
		marker, ok := x.marker(l.Text())
		if !ok {
			continue
		}
		if i+1 >= len(lines) {
			return nil, contract.Errorf(contract.ErrMalformedWindow, fileID, marker, i, "point has no Y line")
		}
		px, err := x.coordinate(fileID, marker, lines, i)
		if err != nil {
			return nil, err
		}
		py, err := x.coordinate(fileID, marker, lines, i+1)
		if err != nil {
			return nil, err
		}
		out = append(out, contract.PointPair{X: px, Y: py})
	}
	if len(out) == 0 {
		return nil, contract.Errorf(contract.ErrAnchorNotFound, fileID, strings.Join(x.src.PointMarkers, " | "), -1, "")
	}
	if want > 0 && 2*len(out) != want {
		return nil, contract.Errorf(contract.ErrMalformedWindow, fileID, "", -1, "expected %d point coordinates, got %d", want, 2*len(out))
	}
	return out, nil
}

func (x *Extractor) marker(s string) (string, bool) {
	for _, m := range x.src.PointMarkers {
		if strings.Contains(s, m) {
			return m, true
		}
	}
	return "", false
}

func (x *Extractor) coordinate(fileID contract.FileID, marker string, lines []contract.Line, n int) (string, error) {
	v, ok := between(lines[n].Text())
	if !ok {
		return "", contract.Errorf(contract.ErrMalformedWindow, fileID, marker, n, "no parenthesized coordinate")
	}
	if err := x.check(v); err != nil {
		return "", contract.Errorf(contract.ErrMalformedWindow, fileID, marker, n, "coordinate: %v", err)
	}
	return v, nil
}

// between 返回首个 '(' 与其后首个 ')' 之间的文本（去除首尾空白）。
func between(s string) (string, bool) {
	i := strings.IndexByte(s, '(')
	if i < 0 {
		return "", false
	}
	j := strings.IndexByte(s[i+1:], ')')
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(s[i+1 : i+1+j]), true
}

func digits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

var _ contract.Extractor = (*Extractor)(nil)
