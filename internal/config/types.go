package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"vksplice/pkg/contract"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Profile: 生效的 Profile 名；为空时按模式取默认（single→desert，aggregate→block）。
	Profile string `yaml:"profile,omitempty"`
	// Profiles: 按名覆盖内置 Profile 的字段，或定义新的 Profile（须完整）。
	Profiles map[string]contract.Profile `yaml:"profiles,omitempty"`
	// Shape: 对生效 Profile 默认长度的覆盖（0 表示不覆盖）。
	Shape contract.Shape `yaml:"shape,omitempty"`

	Logging Logging `yaml:"logging"`

	// DryRun: 不改写目标文件，改为输出到 stdout；Diff 时输出统一差异。
	DryRun bool `yaml:"dry_run"`
	Diff   bool `yaml:"diff"`

	// 组件名选择（空则使用默认名）。
	Components Components `yaml:"components"`

	// 各组件 Options 子树，原样 YAML 传入工厂。
	Options Options `yaml:"options"`
}

// Logging: 日志等级与落盘目录（空目录表示不落盘）。
type Logging struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	// MaxBytes: 单个日志文件轮转阈值；0 使用默认 10MiB。
	MaxBytes int64 `yaml:"max_bytes,omitempty"`
	// Keep: 保留的历史日志文件数；0 使用默认 5。
	Keep int `yaml:"keep,omitempty"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader      string `yaml:"reader"`
	Splitter    string `yaml:"splitter"`
	Extractor   string `yaml:"extractor"`
	Synthesizer string `yaml:"synthesizer"`
	Assembler   string `yaml:"assembler"`
	Writer      string `yaml:"writer"`
}

// Options: 各组件的原样 YAML Options。
type Options struct {
	Reader      *yaml.Node `yaml:"reader,omitempty"`
	Splitter    *yaml.Node `yaml:"splitter,omitempty"`
	Extractor   *yaml.Node `yaml:"extractor,omitempty"`
	Synthesizer *yaml.Node `yaml:"synthesizer,omitempty"`
	Assembler   *yaml.Node `yaml:"assembler,omitempty"`
	Writer      *yaml.Node `yaml:"writer,omitempty"`
}

// UnmarshalYAML 按键取出各组件子树，不向下解码。
// 严格模式的解码器会把未知字段检查带进 yaml.Node 字段；子树的字段由各工厂自行严格校验。
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: options must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
			v = nil
		}
		switch k.Value {
		case "reader":
			o.Reader = v
		case "splitter":
			o.Splitter = v
		case "extractor":
			o.Extractor = v
		case "synthesizer":
			o.Synthesizer = v
		case "assembler":
			o.Assembler = v
		case "writer":
			o.Writer = v
		default:
			return fmt.Errorf("line %d: field %s not found in options", k.Line, k.Value)
		}
	}
	return nil
}
