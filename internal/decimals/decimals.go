// Package decimals provides overflow-safe scaling arithmetic for amounts
// denominated with heterogeneous decimal precision. All operations round
// down and are pure.
package decimals

import (
	"errors"
	"math/big"
)

var (
	// ErrNegativeScale indicates a negative decimal precision was supplied.
	ErrNegativeScale = errors.New("decimals: negative scale")
	// ErrZeroDivisor indicates a zero or negative divisor.
	ErrZeroDivisor = errors.New("decimals: division by zero or negative divisor")
	// ErrNilAmount indicates a nil amount operand.
	ErrNilAmount = errors.New("decimals: nil amount")
)

// Pow10 returns 10^n. n must be non-negative.
func Pow10(n int) (*big.Int, error) {
	if n < 0 {
		return nil, ErrNegativeScale
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil), nil
}

// Rescale converts an amount scaled by fromDecimals into the equivalent
// amount scaled by toDecimals, rounding toward zero when precision is lost.
func Rescale(amount *big.Int, fromDecimals, toDecimals int) (*big.Int, error) {
	if amount == nil {
		return nil, ErrNilAmount
	}
	if fromDecimals < 0 || toDecimals < 0 {
		return nil, ErrNegativeScale
	}
	if fromDecimals == toDecimals {
		return new(big.Int).Set(amount), nil
	}
	if toDecimals > fromDecimals {
		scale, err := Pow10(toDecimals - fromDecimals)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Mul(amount, scale), nil
	}
	scale, err := Pow10(fromDecimals - toDecimals)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Quo(new(big.Int).Set(amount), scale), nil
}

// DivFloor returns floor(num / den). The divisor must be positive.
func DivFloor(num, den *big.Int) (*big.Int, error) {
	if num == nil || den == nil {
		return nil, ErrNilAmount
	}
	if den.Sign() <= 0 {
		return nil, ErrZeroDivisor
	}
	return new(big.Int).Div(new(big.Int).Set(num), den), nil
}

// TokenAmount computes the currency amount required to cover a USD price at
// the supplied oracle rate:
//
//	floor(priceUsd * 10^(feedDecimals+tokenDecimals) / (answer * 10^usdDecimals))
//
// priceUsd is scaled by usdDecimals and answer by feedDecimals. The result
// is scaled by tokenDecimals. Intermediate magnitudes are unbounded.
func TokenAmount(priceUsd *big.Int, usdDecimals int, answer *big.Int, feedDecimals, tokenDecimals int) (*big.Int, error) {
	if priceUsd == nil || answer == nil {
		return nil, ErrNilAmount
	}
	if usdDecimals < 0 || feedDecimals < 0 || tokenDecimals < 0 {
		return nil, ErrNegativeScale
	}
	if answer.Sign() <= 0 {
		return nil, ErrZeroDivisor
	}
	numScale, err := Pow10(feedDecimals + tokenDecimals)
	if err != nil {
		return nil, err
	}
	denScale, err := Pow10(usdDecimals)
	if err != nil {
		return nil, err
	}
	num := new(big.Int).Mul(priceUsd, numScale)
	den := new(big.Int).Mul(answer, denScale)
	return DivFloor(num, den)
}
