// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package zerocoin

import (
	"math/big"
)

// Accumulator is an RSA accumulator: value = base^(c1*c2*...*cn) mod N.
// Absorption is commutative, so the value only depends on the set of
// absorbed commitments.
type Accumulator struct {
	modulus *big.Int
	value   *big.Int
}

// NewAccumulator creates an accumulator at value over modulus.
func NewAccumulator(modulus, value *big.Int) *Accumulator {
	return &Accumulator{
		modulus: modulus,
		value:   new(big.Int).Set(value),
	}
}

// Accumulate absorbs the commitment.
func (a *Accumulator) Accumulate(commitment *big.Int) *Accumulator {
	a.value.Exp(a.value, commitment, a.modulus)
	return a
}

// Value returns a copy of the current value.
func (a *Accumulator) Value() *big.Int {
	return new(big.Int).Set(a.value)
}

// Accumulate returns value^commitment mod modulus.
func Accumulate(modulus, value, commitment *big.Int) *big.Int {
	return new(big.Int).Exp(value, commitment, modulus)
}

// Witness computes the membership witness of commitments[index]: the
// accumulator of all other commitments, starting from base.
func Witness(modulus, base *big.Int, commitments []*big.Int, index int) *big.Int {
	acc := NewAccumulator(modulus, base)
	for i, c := range commitments {
		if i != index {
			acc.Accumulate(c)
		}
	}
	return acc.value
}
