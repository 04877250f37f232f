package contract

// Profile: 一种生成变体的完整形状描述（源侧锚点 + 目标侧锚点 + 默认长度）。
// 运行期只读；由 config 层从内置表与 YAML 覆盖合成。
type Profile struct {
	Name   string        `yaml:"name"`
	Mode   Mode          `yaml:"mode"` // 适用的生成模式；为空表示不限
	Source SourceAnchors `yaml:"source"`
	Dest   DestAnchors   `yaml:"dest"`
	Shape  Shape         `yaml:"shape"`
}

// SourceAnchors: 源文件（生成的 verifier）侧的定位规则。
type SourceAnchors struct {
	// KeyAnchor: 验证密钥函数的字面签名（子串匹配）。
	KeyAnchor string `yaml:"key_anchor"`
	// Window: 锚点行之后参与抽取的固定行数。
	Window int `yaml:"window"`
	// Token: 行内切分关键字；切分后除首段外每段只保留数字。
	Token string `yaml:"token"`
	// PointMarkers: 点坐标首行的候选标记（任一命中即可）。
	PointMarkers []string `yaml:"point_markers"`
}

// DestAnchors: 目标模板侧的定位与输出规则。
type DestAnchors struct {
	KeyAnchor   string `yaml:"key_anchor"`
	PointAnchor string `yaml:"point_anchor"`
	// KeyVar/PointVar: 输出数组标识符。
	KeyVar   string `yaml:"key_var"`
	PointVar string `yaml:"point_var"`
	// Discriminant: 聚合模式下分派所用的参数名。
	Discriminant string `yaml:"discriminant"`
	// DiscriminantBits: 判别参数的无符号位宽（uint16 → 16）。
	DiscriminantBits int `yaml:"discriminant_bits"`
	// Fallback: 未匹配判别值时的兜底语句。
	Fallback string `yaml:"fallback"`
}

// Clone 深拷贝（PointMarkers 切片独立）。
func (p Profile) Clone() Profile {
	out := p
	if p.Source.PointMarkers != nil {
		out.Source.PointMarkers = append([]string(nil), p.Source.PointMarkers...)
	}
	return out
}
