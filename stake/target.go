// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"github.com/holiman/uint256"

	"github.com/pw512/klimatas-core/kts"
)

// CompactToTarget decodes a compact ("bits") target into a 256-bit integer.
// Negative and overflowing encodings are structural errors.
func CompactToTarget(bits uint32) (*uint256.Int, error) {
	size := bits >> 24
	word := uint64(bits & 0x007fffff)

	if word != 0 && bits&0x00800000 != 0 {
		return nil, kts.Structural("negative compact target %#08x", bits)
	}
	if word != 0 && (size > 34 || (word > 0xff && size > 33) || (word > 0xffff && size > 32)) {
		return nil, kts.Structural("compact target overflow %#08x", bits)
	}

	target := uint256.NewInt(word)
	if size <= 3 {
		return target.Rsh(target, uint(8*(3-size))), nil
	}
	return target.Lsh(target, uint(8*(size-3))), nil
}

// TargetToCompact encodes a 256-bit target into its compact form.
func TargetToCompact(target *uint256.Int) uint32 {
	size := uint32((target.BitLen() + 7) / 8)

	var compact uint64
	if size <= 3 {
		compact = target.Uint64() << (8 * (3 - size))
	} else {
		compact = new(uint256.Int).Rsh(target, uint(8*(size-3))).Uint64()
	}
	// the sign bit is set, shift the mantissa down and increase the exponent
	if compact&0x00800000 != 0 {
		compact >>= 8
		size++
	}
	return uint32(compact) | size<<24
}
