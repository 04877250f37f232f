package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"vksplice/pkg/contract"
)

// EnvPrefix 为环境变量覆盖的统一前缀。
const EnvPrefix = "VKSPLICE_"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Logging: Logging{Level: "info"},
		Components: Components{
			Reader:      "fs",
			Splitter:    "lines",
			Extractor:   "groth16",
			Synthesizer: "solidity",
			Assembler:   "linear",
			Writer:      "fs",
		},
	}
}

// LoadYAML 从文件路径或原始 YAML 解析 Config（严格拒绝未知字段）。
// 解析错误包装为 ErrConfigInvalid；文件打开失败保持 *fs.PathError。
func LoadYAML(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, fmt.Errorf("%w: no config source provided", contract.ErrConfigInvalid)
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// 空文件等价于空配置
			return Config{}, nil
		}
		return cfg, fmt.Errorf("%w: %v", contract.ErrConfigInvalid, err)
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 YAML 为“替换”；Profiles 按键替换，不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if strings.TrimSpace(over.Profile) != "" {
		out.Profile = strings.TrimSpace(over.Profile)
	}
	if len(over.Profiles) > 0 {
		m := make(map[string]contract.Profile, len(base.Profiles)+len(over.Profiles))
		for k, v := range base.Profiles {
			m[k] = v
		}
		for k, v := range over.Profiles {
			m[k] = v.Clone()
		}
		out.Profiles = m
	}
	if over.Shape.KeyLen != 0 {
		out.Shape.KeyLen = over.Shape.KeyLen
	}
	if over.Shape.PointLen != 0 {
		out.Shape.PointLen = over.Shape.PointLen
	}

	// Logging
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	if strings.TrimSpace(over.Logging.Dir) != "" {
		out.Logging.Dir = strings.TrimSpace(over.Logging.Dir)
	}
	if over.Logging.MaxBytes != 0 {
		out.Logging.MaxBytes = over.Logging.MaxBytes
	}
	if over.Logging.Keep != 0 {
		out.Logging.Keep = over.Logging.Keep
	}

	// 布尔开关只能由覆盖方打开
	out.DryRun = base.DryRun || over.DryRun
	out.Diff = base.Diff || over.Diff

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Splitter != "" {
		out.Components.Splitter = over.Components.Splitter
	}
	if over.Components.Extractor != "" {
		out.Components.Extractor = over.Components.Extractor
	}
	if over.Components.Synthesizer != "" {
		out.Components.Synthesizer = over.Components.Synthesizer
	}
	if over.Components.Assembler != "" {
		out.Components.Assembler = over.Components.Assembler
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if over.Options.Reader != nil {
		out.Options.Reader = over.Options.Reader
	}
	if over.Options.Splitter != nil {
		out.Options.Splitter = over.Options.Splitter
	}
	if over.Options.Extractor != nil {
		out.Options.Extractor = over.Options.Extractor
	}
	if over.Options.Synthesizer != nil {
		out.Options.Synthesizer = over.Options.Synthesizer
	}
	if over.Options.Assembler != nil {
		out.Options.Assembler = over.Options.Assembler
	}
	if over.Options.Writer != nil {
		out.Options.Writer = over.Options.Writer
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 VKSPLICE_；集合之外的键忽略。
// 支持：PROFILE, LOG_LEVEL, LOG_DIR, DRY_RUN, DIFF, COMPONENTS_*。
// CONFIG_FILE 由 CLI 读取（决定加载哪个文件），不在此处解析。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := strings.TrimSpace(kv[eq+1:])
		switch key {
		case "PROFILE":
			over.Profile = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "DRY_RUN", "DIFF":
			if val == "" {
				continue
			}
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Config{}, fmt.Errorf("%w: %s%s=%q: %v", contract.ErrConfigInvalid, EnvPrefix, key, val, err)
			}
			if key == "DRY_RUN" {
				over.DryRun = b
			} else {
				over.Diff = b
			}
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_SPLITTER":
			over.Components.Splitter = val
		case "COMPONENTS_EXTRACTOR":
			over.Components.Extractor = val
		case "COMPONENTS_SYNTHESIZER":
			over.Components.Synthesizer = val
		case "COMPONENTS_ASSEMBLER":
			over.Components.Assembler = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		default:
			// 非本集合的键忽略
		}
	}
	return over, nil
}

// ConfigFileFromEnv 返回 VKSPLICE_CONFIG_FILE 的值（未设置为空）。
func ConfigFileFromEnv(environ []string) string {
	const key = EnvPrefix + "CONFIG_FILE="
	for _, kv := range environ {
		if strings.HasPrefix(kv, key) {
			return strings.TrimSpace(kv[len(key):])
		}
	}
	return ""
}
