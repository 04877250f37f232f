package literal

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const p = "21888242871839275222246405745257275088696311157297823662689037894645226208583"

// TestModulus 基域模数为 BN254 的 p。
func TestModulus(t *testing.T) {
	require.Equal(t, p, Modulus())
}

// TestCheck 覆盖合法值与各失败原因。
func TestCheck(t *testing.T) {
	pMinus1 := new(big.Int)
	pMinus1.SetString(p, 10)
	pMinus1.Sub(pMinus1, big.NewInt(1))

	cases := []struct {
		name string
		in   string
		want error
	}{
		{"small", "5", nil},
		{"leading zero", "007", nil},
		{"p-1", pMinus1.String(), nil},
		{"real coordinate", "4252822878758300859123897981450591353533073413197771768651442665752259397132", nil},
		{"empty", "", ErrEmpty},
		{"hex", "0x1f", ErrNotDecimal},
		{"sign", "-1", ErrNotDecimal},
		{"p", p, ErrOutOfField},
		{"uint256 max", "115792089237316195423570985008687907853269984665640564039457584007913129639935", ErrOutOfField},
		{"overflow", "1" + strings.Repeat("0", 78), ErrOverflow},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.in)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

// TestAll 返回首个失败下标。
func TestAll(t *testing.T) {
	i, err := All([]string{"1", "2"})
	require.NoError(t, err)
	require.Equal(t, -1, i)

	i, err = All([]string{"1", "", "x"})
	require.ErrorIs(t, err, ErrEmpty)
	require.Equal(t, 1, i)
}

// TestCheckWord 仅做 uint256 范围检查。
func TestCheckWord(t *testing.T) {
	require.NoError(t, CheckWord(p))
	require.NoError(t, CheckWord("115792089237316195423570985008687907853269984665640564039457584007913129639935"))
	require.ErrorIs(t, CheckWord("115792089237316195423570985008687907853269984665640564039457584007913129639936"), ErrOverflow)
	require.ErrorIs(t, CheckWord(""), ErrEmpty)
}
