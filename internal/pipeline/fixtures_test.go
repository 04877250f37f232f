package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vksplice/pkg/contract"
	linear "vksplice/plugins/assembler/linear"
	g16 "vksplice/plugins/extractor/groth16"
	rfs "vksplice/plugins/reader/filesystem"
	slines "vksplice/plugins/splitter/lines"
	sol "vksplice/plugins/synthesizer/solidity"
)

// verifier 生成 gnark 风格的 verifier：14 个密钥常量（base+1..base+14），ics 个 IC 点。
func verifier(base, ics int) string {
	var b strings.Builder
	b.WriteString("// SPDX-License-Identifier: AML\npragma solidity ^0.8.0;\n\ncontract Verifier {\n")
	b.WriteString("    function verifyingKey() internal pure returns (VerifyingKey memory vk) {\n")
	n := base
	next := func() int { n++; return n }
	fmt.Fprintf(&b, "        vk.alfa1 = Pairing.G1Point(uint256(%d), uint256(%d));\n", next(), next())
	fmt.Fprintf(&b, "        vk.beta2 = Pairing.G2Point([uint256(%d), uint256(%d)], [uint256(%d), uint256(%d)]);\n", next(), next(), next(), next())
	fmt.Fprintf(&b, "        vk.gamma2 = Pairing.G2Point([uint256(%d), uint256(%d)], [uint256(%d), uint256(%d)]);\n", next(), next(), next(), next())
	fmt.Fprintf(&b, "        vk.delta2 = Pairing.G2Point([uint256(%d), uint256(%d)], [uint256(%d), uint256(%d)]);\n", next(), next(), next(), next())
	b.WriteString("        // gamma_abc\n")
	b.WriteString("    }\n\n")
	b.WriteString("    function verify(uint[] memory input, Proof memory proof) internal view returns (uint) {\n")
	b.WriteString("        Pairing.G1Point memory vk_x;\n")
	fmt.Fprintf(&b, "        vk_x.X = uint256(%d);\n", next())
	fmt.Fprintf(&b, "        vk_x.Y = uint256(%d);\n", next())
	for i := 1; i < ics; i++ {
		b.WriteString("        uint256[3] memory mul_input;\n")
		fmt.Fprintf(&b, "        mul_input[0] = uint256(%d);\n", next())
		fmt.Fprintf(&b, "        mul_input[1] = uint256(%d);\n", next())
		fmt.Fprintf(&b, "        mul_input[2] = input[%d];\n", i-1)
	}
	b.WriteString("        return 0;\n    }\n}\n")
	return b.String()
}

const desertTemplate = `pragma solidity ^0.8.0;

contract DesertVerifier {
    function verifyingKey() internal pure returns (uint256[14] memory vk) {
        vk[0] = 0;
        return vk;
    }

    function ic() internal pure returns (uint256[] memory gammaABC) {
        gammaABC = new uint256[](4);
        return gammaABC;
    }

    function verifyProof(uint256[] memory input) public view returns (bool) {
        uint256[14] memory k = verifyingKey();
        uint256[] memory g = ic();
        return k[0] != 0 && g.length == 4 && input.length == 1;
    }
}
`

const blockTemplate = `pragma solidity ^0.8.0;

contract ZkBNBVerifier {
    function verifyingKey(uint16 block_size) internal pure returns (uint256[14] memory vk) {
        if (block_size == 1) {
            vk[0] = 0;
            return vk;
        } else {
            revert("u");
        }
    }

    function ic(uint16 block_size) internal pure returns (uint256[] memory gammaABC) {
        if (block_size == 1) {
            gammaABC = new uint256[](4);
            return gammaABC;
        } else {
            revert("u");
        }
    }

    function verifyBatchProofs(uint256[] memory in_proof, uint16 block_size) external view returns (bool) {
        // "}" in a string and } in a comment do not close the function
        return in_proof.length > 0 && block_size > 0;
    }
}
`

func writeFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func readFile(t testing.TB, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(b)
}

// components 用真实插件装配（writer 由调用方给出）。
func components(t testing.TB, prof contract.Profile, w contract.Writer) Components {
	t.Helper()
	x, err := g16.New(prof.Source, nil)
	if err != nil {
		t.Fatalf("extractor: %v", err)
	}
	asm, err := linear.New(nil)
	if err != nil {
		t.Fatalf("assembler: %v", err)
	}
	return Components{
		Reader:      rfs.New(nil),
		Splitter:    slines.New(nil),
		Extractor:   x,
		Synthesizer: sol.New(nil),
		Assembler:   asm,
		Writer:      w,
	}
}

func sourceAnchors() contract.SourceAnchors {
	return contract.SourceAnchors{
		KeyAnchor:    "function verifyingKey()",
		Window:       6,
		Token:        "uint256",
		PointMarkers: []string{"vk_x.X = ", "mul_input[0] = "},
	}
}

func desertProfile() contract.Profile {
	return contract.Profile{
		Name:   "desert",
		Mode:   contract.ModeSingle,
		Source: sourceAnchors(),
		Dest: contract.DestAnchors{
			KeyAnchor: "function verifyingKey()", PointAnchor: "function ic()",
			KeyVar: "vk", PointVar: "gammaABC",
			Discriminant: "block_size", DiscriminantBits: 16, Fallback: `revert("u");`,
		},
		Shape: contract.Shape{KeyLen: 14, PointLen: 4},
	}
}

func blockProfile() contract.Profile {
	p := desertProfile()
	p.Name = "block"
	p.Mode = contract.ModeAggregate
	p.Dest.KeyAnchor = "function verifyingKey(uint16 block_size)"
	p.Dest.PointAnchor = "function ic(uint16 block_size)"
	return p
}

// assignments 生成 name[i] = from+i; 形式的期望行。
func assignments(indent, name string, from, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s%s[%d] = %d;\n", indent, name, i, from+i)
	}
	return b.String()
}
