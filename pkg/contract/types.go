package contract

import "strings"

// FileID: 逻辑文件ID（路径，需规范化，跨平台一致）。
type FileID string

// Line: 单个物理行，包含行终止符（"\n"、"\r\n"；文件末行可无终止符）。
// 约束：Splitter 产出的 []Line 按序拼接必须与原字节流逐字节一致。
type Line string

// Text 返回去掉行终止符后的内容。
func (l Line) Text() string {
	s := string(l)
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// EOL 返回行终止符（可能为空）。
func (l Line) EOL() string {
	s := string(l)
	switch {
	case strings.HasSuffix(s, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(s, "\n"):
		return "\n"
	default:
		return ""
	}
}

// ConstantVector: 按出现顺序排列的十进制数字字面量。
// 顺序具有语义：必须与目标模板的赋值顺序一致。
type ConstantVector []string

// PointPair: 一个曲线点的两个坐标（十进制字面量）。
type PointPair struct {
	X string
	Y string
}

// Extraction: 单个源文件的抽取结果。
type Extraction struct {
	FileID FileID
	Key    ConstantVector
	Points []PointPair
}

// PointVector 将点序列展开为 x0,y0,x1,y1,... 。
func (e Extraction) PointVector() []string {
	out := make([]string, 0, 2*len(e.Points))
	for _, p := range e.Points {
		out = append(out, p.X, p.Y)
	}
	return out
}

// Branch: 聚合模式下的一个分派分支（判别值 + 对应抽取结果）。
type Branch struct {
	Discriminant string
	Extraction   Extraction
}

// Region: 目标文本中某函数的行区间（0 基，闭区间）。
// Open 为函数自身左花括号所在行（通常等于 First）。
type Region struct {
	First int
	Open  int
	Last  int
}

// Len 返回区间行数。
func (r Region) Len() int { return r.Last - r.First + 1 }

// Shape: 期望的向量长度。
// PointLen 为坐标个数（点数×2）；0 表示按源文件实际产出接受（须为偶数）。
type Shape struct {
	KeyLen   int `yaml:"key_len"`
	PointLen int `yaml:"point_len"`
}

// Mode: 生成模式。
type Mode string

const (
	// ModeSingle: 单源，平铺赋值。
	ModeSingle Mode = "single"
	// ModeAggregate: 多源，按判别值分派。
	ModeAggregate Mode = "aggregate"
)
