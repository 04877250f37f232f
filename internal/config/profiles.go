package config

import (
	"fmt"
	"sort"
	"strings"

	"vksplice/pkg/contract"
)

// 生成的 verifier 与模板共享的默认约定。
const (
	defaultKeyAnchor = "function verifyingKey()"
	defaultIcAnchor  = "function ic()"
	defaultWindow    = 6
	defaultToken     = "uint256"
	defaultKeyLen    = 14
)

var defaultMarkers = []string{"vk_x.X = ", "mul_input[0] = "}

func sourceAnchors() contract.SourceAnchors {
	return contract.SourceAnchors{
		KeyAnchor:    defaultKeyAnchor,
		Window:       defaultWindow,
		Token:        defaultToken,
		PointMarkers: append([]string(nil), defaultMarkers...),
	}
}

func destAnchors(keyAnchor, pointAnchor string) contract.DestAnchors {
	return contract.DestAnchors{
		KeyAnchor:        keyAnchor,
		PointAnchor:      pointAnchor,
		KeyVar:           "vk",
		PointVar:         "gammaABC",
		Discriminant:     "block_size",
		DiscriminantBits: 16,
		Fallback:         `revert("u");`,
	}
}

// builtins: 内置 Profile 表。
//   - desert: 单源，平铺写入 verifyingKey()/ic()；
//   - block:  多源，按 block_size 分派写入 verifyingKey(uint16)/ic(uint16)；
//   - exodus: 单源，8 元素 IC 布局。
var builtins = map[string]contract.Profile{
	"desert": {
		Name:   "desert",
		Mode:   contract.ModeSingle,
		Source: sourceAnchors(),
		Dest:   destAnchors(defaultKeyAnchor, defaultIcAnchor),
		Shape:  contract.Shape{KeyLen: defaultKeyLen, PointLen: 4},
	},
	"block": {
		Name:   "block",
		Mode:   contract.ModeAggregate,
		Source: sourceAnchors(),
		Dest:   destAnchors("function verifyingKey(uint16 block_size)", "function ic(uint16 block_size)"),
		Shape:  contract.Shape{KeyLen: defaultKeyLen, PointLen: 4},
	},
	"exodus": {
		Name:   "exodus",
		Mode:   contract.ModeSingle,
		Source: sourceAnchors(),
		Dest:   destAnchors(defaultKeyAnchor, defaultIcAnchor),
		Shape:  contract.Shape{KeyLen: defaultKeyLen, PointLen: 8},
	},
}

// Builtin 返回内置 Profile 的深拷贝。
func Builtin(name string) (contract.Profile, bool) {
	p, ok := builtins[name]
	if !ok {
		return contract.Profile{}, false
	}
	return p.Clone(), true
}

// BuiltinNames 返回排序后的内置 Profile 名。
func BuiltinNames() []string {
	out := make([]string, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultProfile 按模式返回默认 Profile 名。
func DefaultProfile(mode contract.Mode) string {
	if mode == contract.ModeAggregate {
		return "block"
	}
	return "desert"
}

// ResolveProfile 合成生效 Profile：内置表 → cfg.Profiles 同名覆盖 → cfg.Shape 覆盖。
// name 为空时取 cfg.Profile，再为空时取模式默认。
func ResolveProfile(cfg Config, name string, mode contract.Mode) (contract.Profile, error) {
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSpace(cfg.Profile)
	}
	if name == "" {
		name = DefaultProfile(mode)
	}
	p, ok := Builtin(name)
	over, hasOver := cfg.Profiles[name]
	if !ok && !hasOver {
		return contract.Profile{}, fmt.Errorf("%w: unknown profile %q (built-in: %s)", contract.ErrConfigInvalid, name, strings.Join(BuiltinNames(), ", "))
	}
	if hasOver {
		p = patchProfile(p, over)
	}
	p.Name = name
	p = patchShape(p, cfg.Shape)
	if err := checkProfile(p); err != nil {
		return contract.Profile{}, err
	}
	if p.Mode != "" && mode != "" && p.Mode != mode {
		return contract.Profile{}, fmt.Errorf("%w: profile %q is for %s mode, got %s", contract.ErrInvalidArgument, name, p.Mode, mode)
	}
	return p, nil
}

// patchProfile: over 中的非零字段覆盖 base（字段级替换，不做深度合并）。
func patchProfile(base, over contract.Profile) contract.Profile {
	out := base.Clone()
	if over.Mode != "" {
		out.Mode = over.Mode
	}
	s, so := &out.Source, over.Source
	if so.KeyAnchor != "" {
		s.KeyAnchor = so.KeyAnchor
	}
	if so.Window != 0 {
		s.Window = so.Window
	}
	if so.Token != "" {
		s.Token = so.Token
	}
	if len(so.PointMarkers) > 0 {
		s.PointMarkers = append([]string(nil), so.PointMarkers...)
	}
	d, od := &out.Dest, over.Dest
	if od.KeyAnchor != "" {
		d.KeyAnchor = od.KeyAnchor
	}
	if od.PointAnchor != "" {
		d.PointAnchor = od.PointAnchor
	}
	if od.KeyVar != "" {
		d.KeyVar = od.KeyVar
	}
	if od.PointVar != "" {
		d.PointVar = od.PointVar
	}
	if od.Discriminant != "" {
		d.Discriminant = od.Discriminant
	}
	if od.DiscriminantBits != 0 {
		d.DiscriminantBits = od.DiscriminantBits
	}
	if od.Fallback != "" {
		d.Fallback = od.Fallback
	}
	return patchShape(out, over.Shape)
}

func patchShape(p contract.Profile, s contract.Shape) contract.Profile {
	if s.KeyLen != 0 {
		p.Shape.KeyLen = s.KeyLen
	}
	if s.PointLen != 0 {
		p.Shape.PointLen = s.PointLen
	}
	return p
}

// checkProfile 校验 Profile 完整性（新定义的 Profile 不从内置表继承任何字段）。
func checkProfile(p contract.Profile) error {
	bad := func(format string, a ...any) error {
		return fmt.Errorf("%w: profile %q: %s", contract.ErrConfigInvalid, p.Name, fmt.Sprintf(format, a...))
	}
	switch p.Mode {
	case "", contract.ModeSingle, contract.ModeAggregate:
	default:
		return bad("unknown mode %q", p.Mode)
	}
	if strings.TrimSpace(p.Source.KeyAnchor) == "" {
		return bad("source.key_anchor empty")
	}
	if p.Source.Window <= 0 {
		return bad("source.window must be > 0")
	}
	if strings.TrimSpace(p.Source.Token) == "" {
		return bad("source.token empty")
	}
	if len(p.Source.PointMarkers) == 0 {
		return bad("source.point_markers empty")
	}
	for _, m := range p.Source.PointMarkers {
		if strings.TrimSpace(m) == "" {
			return bad("source.point_markers has empty entry")
		}
	}
	if strings.TrimSpace(p.Dest.KeyAnchor) == "" || strings.TrimSpace(p.Dest.PointAnchor) == "" {
		return bad("dest anchors empty")
	}
	if p.Dest.KeyAnchor == p.Dest.PointAnchor {
		return bad("dest anchors must differ")
	}
	if p.Dest.KeyVar == "" || p.Dest.PointVar == "" {
		return bad("dest identifiers empty")
	}
	if p.Mode != contract.ModeSingle {
		if p.Dest.Discriminant == "" {
			return bad("dest.discriminant empty")
		}
		if strings.TrimSpace(p.Dest.Fallback) == "" {
			return bad("dest.fallback empty")
		}
	}
	if p.Dest.DiscriminantBits < 0 || p.Dest.DiscriminantBits > 256 || p.Dest.DiscriminantBits%8 != 0 {
		return bad("dest.discriminant_bits %d out of range", p.Dest.DiscriminantBits)
	}
	if p.Shape.KeyLen < 0 || p.Shape.PointLen < 0 || p.Shape.PointLen%2 != 0 {
		return bad("shape %+v invalid", p.Shape)
	}
	return nil
}
