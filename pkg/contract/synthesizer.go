package contract

import "context"

// PointArray: 点向量输出数组的声明风格。
type PointArray int

const (
	// PointArrayDynamic: uint256[]，函数体内需先 new 分配。
	PointArrayDynamic PointArray = iota
	// PointArrayFixed: uint256[N]，无需分配。
	PointArrayFixed
)

// SynthRequest: 一次合成所需的全部输入。
type SynthRequest struct {
	Mode    Mode
	Profile Profile
	// KeyHeader/PointHeader: 模板中两函数的声明行（含左花括号所在行），原样复用。
	KeyHeader   []Line
	PointHeader []Line
	PointArray  PointArray
	// EOL: 新行使用的行终止符（与目标文件一致）。
	EOL string
	// Single 用于 ModeSingle；Branches 用于 ModeAggregate（按输入顺序）。
	Single   Extraction
	Branches []Branch
}

// Synthesizer: 生成替换两目标函数的新文本。
// 约束：纯计算；输出为完整行（均带 EOL）。
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) ([]Line, error)
}
