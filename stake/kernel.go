// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"encoding/binary"
	"io"

	"github.com/holiman/uint256"

	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/kts"
)

// Kernel computes the stake kernel hash of the claim.
//
// Legacy (v1) modifiers are 64 bits wide and the kernel also commits to the
// output creation time:
//
//	blake2b(modifier[:8] || creationTime || txid || index || blockTime)
//
// v2 modifiers use all 256 bits:
//
//	blake2b(modifier || txid || index || blockTime)
//
// Integers are big endian.
func Kernel(version activation.ModifierVersion, modifier kts.Bytes32, claim *block.StakeClaim) kts.Bytes32 {
	return kts.Blake2bFn(func(w io.Writer) {
		var b [8]byte
		if version == activation.ModifierV2 {
			w.Write(modifier[:])
		} else {
			w.Write(modifier[:8])
			binary.BigEndian.PutUint64(b[:], claim.Output.CreationTime)
			w.Write(b[:])
		}
		w.Write(claim.Output.TxID[:])
		binary.BigEndian.PutUint32(b[:4], claim.Output.Index)
		w.Write(b[:4])
		binary.BigEndian.PutUint64(b[:], claim.BlockTime)
		w.Write(b[:])
	})
}

// Weight returns the stake weight of an amount, one unit per hundredth of its value.
func Weight(amount uint64) uint64 {
	return amount / 100
}

// HitsTarget returns whether kernel < target * weight(amount). A product
// that overflows 256 bits is always hit.
func HitsTarget(kernel kts.Bytes32, target *uint256.Int, amount uint64) bool {
	product, overflow := new(uint256.Int).MulOverflow(target, uint256.NewInt(Weight(amount)))
	if overflow {
		return true
	}
	return new(uint256.Int).SetBytes32(kernel[:]).Lt(product)
}
