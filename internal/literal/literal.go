// Package literal 校验从 verifier 中抽取的十进制数字字面量。
//
// 仅做形状检查：非空、纯十进制、可表示为 uint256、且小于 BN254 基域模数。
// 不做曲线点有效性校验。
package literal

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/holiman/uint256"
)

var (
	// ErrEmpty: 字面量为空（数字组缺失）。
	ErrEmpty = errors.New("empty literal")
	// ErrNotDecimal: 含非十进制字符。
	ErrNotDecimal = errors.New("not a decimal literal")
	// ErrOverflow: 超出 uint256。
	ErrOverflow = errors.New("literal overflows uint256")
	// ErrOutOfField: 不小于 BN254 基域模数。
	ErrOutOfField = errors.New("literal not below the bn254 base field modulus")
)

// modulus: BN254 基域模数 p（uint256 表示）。
var modulus = mustModulus()

func mustModulus() *uint256.Int {
	m, overflow := uint256.FromBig(ecc.BN254.BaseField())
	if overflow {
		panic("bn254 base field modulus overflows uint256")
	}
	return m
}

// Check 校验单个字面量。返回的错误可用 errors.Is 判定具体原因。
func Check(s string) error {
	v, err := word(s)
	if err != nil {
		return err
	}
	if !v.Lt(modulus) {
		return fmt.Errorf("%w: %s", ErrOutOfField, short(s))
	}
	return nil
}

// CheckWord 仅校验十进制与 uint256 范围，不做基域检查。
func CheckWord(s string) error {
	_, err := word(s)
	return err
}

func word(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, ErrEmpty
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, fmt.Errorf("%w: %q", ErrNotDecimal, s)
		}
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, short(s))
	}
	return v, nil
}

// All 依次校验；返回首个失败的下标与错误，全部通过时返回 -1, nil。
func All(vals []string) (int, error) {
	for i, s := range vals {
		if err := Check(s); err != nil {
			return i, err
		}
	}
	return -1, nil
}

// Modulus 返回模数的十进制表示。
func Modulus() string { return modulus.Dec() }

func short(s string) string {
	if len(s) <= 24 {
		return s
	}
	return s[:10] + "..." + s[len(s)-10:]
}
