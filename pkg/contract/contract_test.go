package contract

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNormalizeFileID 验证路径规范化逻辑。
func TestNormalizeFileID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"本地分隔符", filepath.Join("a", "b", "c"), "a/b/c"},
		{"清理父目录", "./x/../y", "y"},
		{"空串", "", "."},
		{"Windows路径", "C:\\contracts\\Verifier.sol", "C:/contracts/Verifier.sol"},
		{"清理多余斜杠", "contracts//gen///Verifier1.sol", "contracts/gen/Verifier1.sol"},
		{"混合分隔符", "build\\..\\contracts/./ZkBNBVerifier.sol", "contracts/ZkBNBVerifier.sol"},
		{"Unix绝对路径", "/work/build/../contracts/a.sol", "/work/contracts/a.sol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, FileID(tt.expected), NormalizeFileID(tt.input))
		})
	}
}

// TestSplitList 逗号列表切分保持基数（空元素不丢弃）。
func TestSplitList(t *testing.T) {
	require.Nil(t, SplitList(""))
	require.Nil(t, SplitList("  "))
	require.Equal(t, []string{"a.sol", "b.sol"}, SplitList("a.sol, b.sol"))
	require.Equal(t, []string{"1", "", "10"}, SplitList("1,,10"))
}

// TestLineEOL 行终止符识别。
func TestLineEOL(t *testing.T) {
	require.Equal(t, "\n", Line("a\n").EOL())
	require.Equal(t, "\r\n", Line("a\r\n").EOL())
	require.Equal(t, "", Line("a").EOL())
	require.Equal(t, "a", Line("a\r\n").Text())
	require.Equal(t, "a", Line("a").Text())
}

// TestPointVector 点序列展开顺序为 x0,y0,x1,y1。
func TestPointVector(t *testing.T) {
	e := Extraction{Points: []PointPair{{X: "1", Y: "2"}, {X: "3", Y: "4"}}}
	require.Equal(t, []string{"1", "2", "3", "4"}, e.PointVector())
	require.Empty(t, Extraction{}.PointVector())
}

// TestValidateDiscriminants 覆盖基数/格式/位宽/重复分支。
func TestValidateDiscriminants(t *testing.T) {
	cases := []struct {
		name  string
		srcs  []string
		discs []string
		bits  int
		want  error
	}{
		{"ok", []string{"a", "b"}, []string{"1", "10"}, 16, nil},
		{"cardinality", []string{"a", "b"}, []string{"1"}, 16, ErrArgumentCardinality},
		{"empty", nil, nil, 16, ErrInvalidArgument},
		{"not number", []string{"a"}, []string{"x"}, 16, ErrInvalidArgument},
		{"negative", []string{"a"}, []string{"-1"}, 16, ErrInvalidArgument},
		{"overflow uint16", []string{"a"}, []string{"65536"}, 16, ErrInvalidArgument},
		{"duplicate", []string{"a", "b"}, []string{"1", "01"}, 16, ErrInvalidArgument},
		{"empty source", []string{""}, []string{"1"}, 16, ErrInvalidArgument},
		{"no width", []string{"a"}, []string{"65536"}, 0, nil},
		{"plus sign", []string{"a"}, []string{"+1"}, 16, ErrInvalidArgument},
		{"uint256 beyond 64 bits", []string{"a", "b"}, []string{"18446744073709551616", "1"}, 256, nil},
		{"uint256 max", []string{"a"}, []string{"115792089237316195423570985008687907853269984665640564039457584007913129639935"}, 256, nil},
		{"uint256 overflow", []string{"a"}, []string{"115792089237316195423570985008687907853269984665640564039457584007913129639936"}, 256, ErrInvalidArgument},
		{"uint64 overflow", []string{"a"}, []string{"18446744073709551616"}, 64, ErrInvalidArgument},
		{"duplicate wide", []string{"a", "b"}, []string{"18446744073709551616", "018446744073709551616"}, 256, ErrInvalidArgument},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDiscriminants(tt.srcs, tt.discs, tt.bits)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCanonicalDiscriminant(t *testing.T) {
	require.Equal(t, "1", CanonicalDiscriminant("001"))
	require.Equal(t, "0", CanonicalDiscriminant("000"))
	require.Equal(t, "18446744073709551616", CanonicalDiscriminant("0018446744073709551616"))
	require.Equal(t, "x", CanonicalDiscriminant("x"))
}

// TestNewBranches 按位置配对且保持输入顺序。
func TestNewBranches(t *testing.T) {
	exts := []Extraction{{FileID: "A.sol"}, {FileID: "B.sol"}}
	bs, err := NewBranches(exts, []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, bs, 2)
	require.Equal(t, "1", bs[0].Discriminant)
	require.Equal(t, FileID("A.sol"), bs[0].Extraction.FileID)
	require.Equal(t, FileID("B.sol"), bs[1].Extraction.FileID)

	_, err = NewBranches(exts, []string{"1"})
	require.ErrorIs(t, err, ErrArgumentCardinality)
}

// TestValidateRegions 覆盖越界与重叠。
func TestValidateRegions(t *testing.T) {
	require.NoError(t, ValidateRegions(10, []Region{{First: 5, Open: 5, Last: 7}, {First: 1, Open: 1, Last: 3}}))
	require.ErrorIs(t, ValidateRegions(10, []Region{{First: 1, Open: 1, Last: 10}}), ErrInvariantViolation)
	require.ErrorIs(t, ValidateRegions(10, []Region{{First: 3, Open: 2, Last: 4}}), ErrInvariantViolation)
	require.ErrorIs(t, ValidateRegions(10, []Region{{First: 1, Open: 1, Last: 4}, {First: 4, Open: 4, Last: 6}}), ErrInvariantViolation)
}

// TestSourceError 错误信息携带文件/行号/锚点，且可用 errors.Is 判定。
func TestSourceError(t *testing.T) {
	err := Errorf(ErrAnchorNotFound, "src/Verifier.sol", "function verifyingKey()", -1, "")
	require.ErrorIs(t, err, ErrAnchorNotFound)
	require.Equal(t, `anchor not found: src/Verifier.sol (anchor "function verifyingKey()")`, err.Error())

	err = Errorf(ErrMalformedWindow, "v.sol", "", 4, "expected %d constants, got %d", 14, 13)
	require.Equal(t, "malformed constant window: v.sol:5: expected 14 constants, got 13", err.Error())

	bare := Errorf(ErrUnbalancedBraces, "", "function ic()", 9, "")
	bound := WithFile(bare, "dest.sol")
	var se *SourceError
	require.True(t, errors.As(bound, &se))
	require.Equal(t, FileID("dest.sol"), se.FileID)
	require.Equal(t, 10, se.Line)
	// 已绑定文件的错误不被覆盖
	require.Equal(t, bound, WithFile(bound, "other.sol"))
}
