package config

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"vksplice/pkg/contract"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 组件名采用仓库内置实现；
// - 选项给出全部键与安全中性默认值；
// - profiles 段示范如何覆盖内置 Profile 的单个字段。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Logging:    Logging{Level: "info", Dir: "logs"},
		Components: d.Components,
		Profiles: map[string]contract.Profile{
			"block": {Dest: contract.DestAnchors{Fallback: `revert("u");`}},
		},
	}
	cfg.Options.Reader = mustNode(`
buf_size: 65536
max_bytes: 0
`)
	cfg.Options.Splitter = mustNode(`
max_line_bytes: 0
allow_exts: [".sol"]
`)
	cfg.Options.Extractor = mustNode(`
field_check: true
`)
	cfg.Options.Synthesizer = mustNode(`
indent: "    "
blank_lines: true
`)
	// 线性装配器无配置项，保持空对象
	cfg.Options.Assembler = mustNode(`{}`)
	cfg.Options.Writer = mustNode(`
output_dir: ""
atomic: true
flat: true
buf_size: 65536
`)
	return cfg
}

// Marshal 以两空格缩进输出 YAML。
func Marshal(cfg Config) ([]byte, error) {
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func mustNode(src string) *yaml.Node {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		panic(err)
	}
	return doc.Content[0]
}
