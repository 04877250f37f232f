package testdata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	cfgpkg "vksplice/internal/config"
	"vksplice/internal/pipeline"
	"vksplice/pkg/contract"
)

func fixture(name string) string { return filepath.Join("contracts", name) }

// wantVector 读取与 verifier 同名的 .want：前 14 个为密钥常量，其余为 IC 坐标。
func wantVector(t *testing.T, verifier string) (key, coords []string) {
	t.Helper()
	b, err := os.ReadFile(fixture(strings.TrimSuffix(verifier, ".sol") + ".want"))
	if err != nil {
		t.Fatalf("read want: %v", err)
	}
	vals := strings.Fields(string(b))
	if len(vals) != 18 {
		t.Fatalf("want file has %d values", len(vals))
	}
	return vals[:14], vals[14:]
}

func baseConfig(t *testing.T, outDir string) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Logging = cfgpkg.Logging{Level: "error"}
	cfg.Profiles = nil
	var doc yaml.Node
	src := fmt.Sprintf("output_dir: %q\natomic: false\nflat: true\n", outDir)
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("writer options: %v", err)
	}
	cfg.Options.Writer = doc.Content[0]
	return cfg
}

func runPipeline(cfg cfgpkg.Config, set pipeline.Settings) error {
	comp, set, err := cfgpkg.Assemble(cfg, set)
	if err != nil {
		return err
	}
	return pipeline.Run(context.Background(), comp, set, nil)
}

func block(indent, name string, vals []string) string {
	var b strings.Builder
	for i, v := range vals {
		fmt.Fprintf(&b, "%s%s[%d] = %s;\n", indent, name, i, v)
	}
	return b.String()
}

func TestE2ESingle(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(t, outDir)
	orig, err := os.ReadFile(fixture("DesertVerifier.sol"))
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	err = runPipeline(cfg, pipeline.Settings{
		Mode:    contract.ModeSingle,
		Sources: []string{fixture("Verifier1.sol")},
		Dest:    fixture("DesertVerifier.sol"),
	})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(outDir, "DesertVerifier.sol"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	key, coords := wantVector(t, "Verifier1.sol")
	out := string(got)
	wantKey := "    function verifyingKey() internal pure returns (uint256[14] memory vk) {\n" +
		block("        ", "vk", key) +
		"        return vk;\n    }\n"
	if !strings.Contains(out, wantKey) {
		t.Fatalf("key block missing:\n%s", out)
	}
	wantIC := "    function ic() internal pure returns (uint256[] memory gammaABC) {\n" +
		"        gammaABC = new uint256[](4);\n" +
		block("        ", "gammaABC", coords) +
		"        return gammaABC;\n    }\n"
	if !strings.Contains(out, wantIC) {
		t.Fatalf("ic block missing:\n%s", out)
	}
	// 区间外保持原样
	head := string(orig[:strings.Index(string(orig), "    function verifyingKey")])
	tail := string(orig[strings.Index(string(orig), "    /// @notice"):])
	if !strings.HasPrefix(out, head) || !strings.HasSuffix(out, tail) {
		t.Fatalf("untouched lines changed:\n%s", out)
	}
	// 重定向输出不改模板
	after, _ := os.ReadFile(fixture("DesertVerifier.sol"))
	if string(after) != string(orig) {
		t.Fatalf("template modified")
	}
}

func TestE2EAggregate(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(t, outDir)
	err := runPipeline(cfg, pipeline.Settings{
		Mode:          contract.ModeAggregate,
		Sources:       []string{fixture("Verifier1.sol"), fixture("Verifier10.sol")},
		Discriminants: []string{"1", "10"},
		Dest:          fixture("ZkBNBVerifier.sol"),
	})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(outDir, "ZkBNBVerifier.sol"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(got)
	k1, c1 := wantVector(t, "Verifier1.sol")
	k10, c10 := wantVector(t, "Verifier10.sol")
	wantKey := "    function verifyingKey(uint16 block_size) internal pure returns (uint256[14] memory vk) {\n" +
		"        if (block_size == 1) {\n" +
		block("            ", "vk", k1) +
		"            return vk;\n" +
		"        } else if (block_size == 10) {\n" +
		block("            ", "vk", k10) +
		"            return vk;\n" +
		"        } else {\n" +
		"            revert(\"u\");\n" +
		"        }\n" +
		"    }\n"
	if !strings.Contains(out, wantKey) {
		t.Fatalf("key dispatch missing:\n%s", out)
	}
	wantIC := "        } else if (block_size == 10) {\n" +
		"            gammaABC = new uint256[](4);\n" +
		block("            ", "gammaABC", c10) +
		"            return gammaABC;\n"
	if !strings.Contains(out, wantIC) || !strings.Contains(out, block("            ", "gammaABC", c1)) {
		t.Fatalf("ic dispatch missing:\n%s", out)
	}
	if n := strings.Count(out, `revert("u");`); n != 2 {
		t.Fatalf("fallback count = %d", n)
	}
	if !strings.Contains(out, "    function verifyBatchProofs(\n") || !strings.HasSuffix(out, "    }\n}\n") {
		t.Fatalf("trailing function changed:\n%s", out)
	}
}

// 聚合输出可再次作为模板使用
func TestE2EAggregateRerun(t *testing.T) {
	first := t.TempDir()
	cfg := baseConfig(t, first)
	set := pipeline.Settings{
		Mode:          contract.ModeAggregate,
		Sources:       []string{fixture("Verifier1.sol"), fixture("Verifier10.sol")},
		Discriminants: []string{"1", "10"},
		Dest:          fixture("ZkBNBVerifier.sol"),
	}
	if err := runPipeline(cfg, set); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := t.TempDir()
	cfg = baseConfig(t, second)
	set.Sources = []string{fixture("Verifier10.sol")}
	set.Discriminants = []string{"10"}
	set.Dest = filepath.Join(first, "ZkBNBVerifier.sol")
	if err := runPipeline(cfg, set); err != nil {
		t.Fatalf("second run: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(second, "ZkBNBVerifier.sol"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(got)
	if strings.Contains(out, "block_size == 1)") {
		t.Fatalf("stale branch kept:\n%s", out)
	}
	if n := strings.Count(out, "vk[0] = "); n != 1 {
		t.Fatalf("vk[0] count = %d", n)
	}
}

func TestE2EProfileMismatch(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(t, outDir)
	// desert 的锚点不带参数，在聚合模板中找不到
	err := runPipeline(cfg, pipeline.Settings{
		Mode:    contract.ModeSingle,
		Sources: []string{fixture("Verifier1.sol")},
		Dest:    fixture("ZkBNBVerifier.sol"),
	})
	if !errors.Is(err, contract.ErrAnchorNotFound) {
		t.Fatalf("expect anchor error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "ZkBNBVerifier.sol")); err == nil {
		t.Fatalf("output file should not exist")
	}
}

func TestE2EExodusShape(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(t, outDir)
	cfg.Profile = "exodus"
	// 模板声明为动态数组时按 exodus 默认 8 个坐标要求源文件，而 verifier 只有 4 个
	err := runPipeline(cfg, pipeline.Settings{
		Mode:    contract.ModeSingle,
		Sources: []string{fixture("Verifier1.sol")},
		Dest:    fixture("DesertVerifier.sol"),
	})
	if !errors.Is(err, contract.ErrMalformedWindow) {
		t.Fatalf("expect malformed window, got %v", err)
	}
}
