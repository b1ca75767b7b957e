// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/kts"
)

// NextModifier returns the stake modifier after connecting the block blockID.
//
// A legacy modifier occupies the first 8 bytes and only rotates when the block
// enters a new modifier interval: next = blake2b(prev[:8] || blockID)[:8].
// A v2 modifier is remixed by every block: next = blake2b(prev || blockID).
// The first v2 block mixes the legacy modifier in its 32 byte form.
func NextModifier(
	version activation.ModifierVersion,
	interval uint64,
	prev, blockID kts.Bytes32,
	parentTime, blockTime uint64,
) kts.Bytes32 {
	if version == activation.ModifierV2 {
		return kts.Blake2b(prev[:], blockID[:])
	}

	if interval > 0 && parentTime/interval == blockTime/interval {
		return prev
	}
	mixed := kts.Blake2b(prev[:8], blockID[:])

	var next kts.Bytes32
	copy(next[:8], mixed[:8])
	return next
}
