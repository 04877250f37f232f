package shape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vksplice/pkg/contract"
)

func profile() contract.Profile {
	return contract.Profile{
		Dest:  contract.DestAnchors{KeyVar: "vk", PointVar: "gammaABC"},
		Shape: contract.Shape{KeyLen: 14, PointLen: 4},
	}
}

// TestDeriveDynamicPoints 动态点数组沿用 Profile 默认长度。
func TestDeriveDynamicPoints(t *testing.T) {
	key := []contract.Line{"    function verifyingKey() internal pure returns (uint256[14] memory vk) {\n"}
	pts := []contract.Line{"    function ic() internal pure returns (uint256[] memory gammaABC) {\n"}
	d, err := Derive(key, pts, profile())
	require.NoError(t, err)
	require.Equal(t, contract.Shape{KeyLen: 14, PointLen: 4}, d.Shape)
	require.Equal(t, contract.PointArrayDynamic, d.PointArray)
}

// TestDeriveFixedPoints 定长声明覆盖默认值，多行声明同样识别。
func TestDeriveFixedPoints(t *testing.T) {
	key := []contract.Line{"    function verifyingKey()\n", "        internal pure returns (uint256[16] memory vk)\n", "    {\n"}
	pts := []contract.Line{"    function ic() internal pure returns (uint256[8] memory gammaABC) {\n"}
	d, err := Derive(key, pts, profile())
	require.NoError(t, err)
	require.Equal(t, contract.Shape{KeyLen: 16, PointLen: 8}, d.Shape)
	require.Equal(t, contract.PointArrayFixed, d.PointArray)
}

// TestDeriveFallback 声明中找不到数组时回落到 Profile。
func TestDeriveFallback(t *testing.T) {
	d, err := Derive([]contract.Line{"function verifyingKey() {\n"}, []contract.Line{"function ic() {\n"}, profile())
	require.NoError(t, err)
	require.Equal(t, contract.Shape{KeyLen: 14, PointLen: 4}, d.Shape)
}

// TestDeriveErrors 动态密钥数组、奇数点长度均为配置错误。
func TestDeriveErrors(t *testing.T) {
	_, err := Derive([]contract.Line{"returns (uint256[] memory vk) {\n"}, nil, profile())
	require.ErrorIs(t, err, contract.ErrConfigInvalid)

	_, err = Derive(nil, []contract.Line{"returns (uint256[3] memory gammaABC) {\n"}, profile())
	require.ErrorIs(t, err, contract.ErrConfigInvalid)

	p := profile()
	p.Shape.KeyLen = 0
	_, err = Derive(nil, nil, p)
	require.ErrorIs(t, err, contract.ErrConfigInvalid)
}

// TestHeader 声明部分截取到函数左花括号所在行。
func TestHeader(t *testing.T) {
	lines := []contract.Line{"a\n", "function f()\n", "{\n", "x;\n", "}\n"}
	require.Equal(t, []contract.Line{"function f()\n", "{\n"}, Header(lines, contract.Region{First: 1, Open: 2, Last: 4}))
}
