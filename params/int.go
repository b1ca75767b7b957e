// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"fmt"
	"math/big"
)

// Int is an arbitrary-precision integer which is rendered as 0x-prefixed hex text.
// Decimal input is accepted as well.
type Int big.Int

// NewInt wraps x. x must not be modified afterwards.
func NewInt(x *big.Int) *Int { return (*Int)(x) }

// MustParseInt parses a hex (0x-prefixed) or decimal integer, panic on error.
func MustParseInt(s string) *Int {
	var i Int
	if err := i.UnmarshalText([]byte(s)); err != nil {
		panic(err)
	}
	return &i
}

// Big returns the underlying big.Int.
func (i *Int) Big() *big.Int { return (*big.Int)(i) }

// Copy returns a deep copy.
func (i *Int) Copy() *Int {
	if i == nil {
		return nil
	}
	return (*Int)(new(big.Int).Set(i.Big()))
}

// MarshalText implements encoding.TextMarshaler.
func (i *Int) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%#x", i.Big())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Int) UnmarshalText(text []byte) error {
	if _, ok := i.Big().SetString(string(text), 0); !ok {
		return fmt.Errorf("invalid integer %q", text)
	}
	return nil
}
