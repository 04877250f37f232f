package registry

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"vksplice/pkg/contract"
	linear "vksplice/plugins/assembler/linear"
	g16 "vksplice/plugins/extractor/groth16"
	rfs "vksplice/plugins/reader/filesystem"
	slines "vksplice/plugins/splitter/lines"
	sol "vksplice/plugins/synthesizer/solidity"
	wfs "vksplice/plugins/writer/filesystem"
	wout "vksplice/plugins/writer/stdout"
)

// strictDecode: 使用 KnownFields 严格解码，拒绝未知字段。
func strictDecode(raw *yaml.Node, v any) error {
	if raw == nil || raw.Kind == 0 {
		// 保持零值（默认选项）
		return nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 YAML Options。
type NewReader func(raw *yaml.Node) (contract.Reader, error)

// NewSplitter 工厂签名：接收原样 YAML Options。
type NewSplitter func(raw *yaml.Node) (contract.Splitter, error)

// NewExtractor 工厂签名：接收当前 Profile 的源侧锚点与原样 YAML Options。
type NewExtractor func(src contract.SourceAnchors, raw *yaml.Node) (contract.Extractor, error)

// NewSynthesizer 工厂签名：接收原样 YAML Options。
type NewSynthesizer func(raw *yaml.Node) (contract.Synthesizer, error)

// NewAssembler 工厂签名：接收原样 YAML Options。
type NewAssembler func(raw *yaml.Node) (contract.Assembler, error)

// NewWriter 工厂签名：接收原样 YAML Options。
type NewWriter func(raw *yaml.Node) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw *yaml.Node) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Splitter 工厂注册表。
var Splitter = map[string]NewSplitter{
	// lines: 按物理行拆分（保留终止符）
	"lines": func(raw *yaml.Node) (contract.Splitter, error) {
		var opts slines.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return slines.New(&opts), nil
	},
}

// Extractor 工厂注册表。
var Extractor = map[string]NewExtractor{
	// groth16: gnark Groth16 Solidity verifier
	"groth16": func(src contract.SourceAnchors, raw *yaml.Node) (contract.Extractor, error) {
		var opts g16.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return g16.New(src, &opts)
	},
}

// Synthesizer 工厂注册表。
var Synthesizer = map[string]NewSynthesizer{
	"solidity": func(raw *yaml.Node) (contract.Synthesizer, error) {
		var opts sol.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return sol.New(&opts), nil
	},
}

// Assembler 工厂注册表。
var Assembler = map[string]NewAssembler{
	"linear": func(raw *yaml.Node) (contract.Assembler, error) { return linear.New(raw) },
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（原地原子替换；可重定向到输出目录）
	"fs": func(raw *yaml.Node) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
	// stdout: dry-run（全文或统一差异）
	"stdout": func(raw *yaml.Node) (contract.Writer, error) {
		var opts wout.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, err
		}
		return wout.New(&opts), nil
	},
}
