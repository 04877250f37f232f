package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"vksplice/internal/diag"
	"vksplice/internal/pipeline"
	"vksplice/pkg/contract"
	"vksplice/pkg/registry"
)

// Validate 对最小必要边界做静态校验（不涉及位置参数）。
func Validate(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q not in debug|info|warn|error", contract.ErrConfigInvalid, cfg.Logging.Level)
	}
	if cfg.Logging.MaxBytes < 0 || cfg.Logging.Keep < 0 {
		return fmt.Errorf("%w: logging.max_bytes and logging.keep must be >= 0", contract.ErrConfigInvalid)
	}
	if cfg.Shape.KeyLen < 0 || cfg.Shape.PointLen < 0 || cfg.Shape.PointLen%2 != 0 {
		return fmt.Errorf("%w: shape %+v invalid", contract.ErrConfigInvalid, cfg.Shape)
	}
	if cfg.Diff && !cfg.DryRun {
		return fmt.Errorf("%w: diff requires dry_run", contract.ErrConfigInvalid)
	}
	// 自定义 Profile 须可合成
	for name := range cfg.Profiles {
		if _, err := ResolveProfile(cfg, name, ""); err != nil {
			return err
		}
	}
	if cfg.Profile != "" {
		if _, err := ResolveProfile(cfg, cfg.Profile, ""); err != nil {
			return err
		}
	}

	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("%w: reader %q not registered", contract.ErrConfigInvalid, name)
	}
	if name := effName(cfg.Components.Splitter, d.Components.Splitter); registry.Splitter[name] == nil {
		return fmt.Errorf("%w: splitter %q not registered", contract.ErrConfigInvalid, name)
	}
	if name := effName(cfg.Components.Extractor, d.Components.Extractor); registry.Extractor[name] == nil {
		return fmt.Errorf("%w: extractor %q not registered", contract.ErrConfigInvalid, name)
	}
	if name := effName(cfg.Components.Synthesizer, d.Components.Synthesizer); registry.Synthesizer[name] == nil {
		return fmt.Errorf("%w: synthesizer %q not registered", contract.ErrConfigInvalid, name)
	}
	if name := effName(cfg.Components.Assembler, d.Components.Assembler); registry.Assembler[name] == nil {
		return fmt.Errorf("%w: assembler %q not registered", contract.ErrConfigInvalid, name)
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("%w: writer %q not registered", contract.ErrConfigInvalid, name)
	}
	return nil
}

// Assemble 构造 Components，并以生效 Profile 补全 Settings。
// set 由 CLI 按位置参数给出（Mode/Sources/Discriminants/Dest）。
// 严格 Options 解析在 registry （工厂）层进行；此处只传原样 YAML。
func Assemble(cfg Config, set pipeline.Settings) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, set, err
	}
	prof, err := ResolveProfile(cfg, cfg.Profile, set.Mode)
	if err != nil {
		return pipeline.Components{}, set, err
	}
	set.Profile = prof

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	sn := effName(cfg.Components.Splitter, d.Components.Splitter)
	en := effName(cfg.Components.Extractor, d.Components.Extractor)
	yn := effName(cfg.Components.Synthesizer, d.Components.Synthesizer)
	an := effName(cfg.Components.Assembler, d.Components.Assembler)
	wn := effName(cfg.Components.Writer, d.Components.Writer)
	wraw := cfg.Options.Writer
	if cfg.DryRun {
		// dry-run 固定使用 stdout writer；fs writer 的选项不适用
		wn = "stdout"
		wraw = dryRunOptions(cfg.Diff)
	}

	wrap := func(comp string, err error) error {
		return fmt.Errorf("%w: %s: %v", contract.ErrConfigInvalid, comp, err)
	}
	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, set, wrap("reader", err)
	}
	s, err := registry.Splitter[sn](cfg.Options.Splitter)
	if err != nil {
		return pipeline.Components{}, set, wrap("splitter", err)
	}
	x, err := registry.Extractor[en](prof.Source, cfg.Options.Extractor)
	if err != nil {
		return pipeline.Components{}, set, wrap("extractor", err)
	}
	y, err := registry.Synthesizer[yn](cfg.Options.Synthesizer)
	if err != nil {
		return pipeline.Components{}, set, wrap("synthesizer", err)
	}
	asm, err := registry.Assembler[an](cfg.Options.Assembler)
	if err != nil {
		return pipeline.Components{}, set, wrap("assembler", err)
	}
	w, err := registry.Writer[wn](wraw)
	if err != nil {
		return pipeline.Components{}, set, wrap("writer", err)
	}

	comp := pipeline.Components{
		Reader:      r,
		Splitter:    s,
		Extractor:   x,
		Synthesizer: y,
		Assembler:   asm,
		Writer:      w,
	}
	return comp, set, nil
}

// EffectiveKV 返回生效配置的摘要（用于 debug 事件）。
func EffectiveKV(cfg Config, set pipeline.Settings) map[string]string {
	d := Defaults()
	kv := map[string]string{
		"mode":        string(set.Mode),
		"profile":     set.Profile.Name,
		"sources":     fmt.Sprintf("%d", len(set.Sources)),
		"dest":        set.Dest,
		"key_len":     fmt.Sprintf("%d", set.Profile.Shape.KeyLen),
		"point_len":   fmt.Sprintf("%d", set.Profile.Shape.PointLen),
		"reader":      effName(cfg.Components.Reader, d.Components.Reader),
		"splitter":    effName(cfg.Components.Splitter, d.Components.Splitter),
		"extractor":   effName(cfg.Components.Extractor, d.Components.Extractor),
		"synthesizer": effName(cfg.Components.Synthesizer, d.Components.Synthesizer),
		"assembler":   effName(cfg.Components.Assembler, d.Components.Assembler),
		"writer":      effName(cfg.Components.Writer, d.Components.Writer),
		"level":       diag.ParseLevel(cfg.Logging.Level).String(),
	}
	if cfg.DryRun {
		kv["writer"] = "stdout"
	}
	return kv
}

func dryRunOptions(diff bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "diff"},
		{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", diff)},
	}}
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
