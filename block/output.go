// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"encoding/binary"
	"fmt"

	"github.com/pw512/klimatas-core/kts"
)

// Output is a spendable transaction output as claimed for staking.
type Output struct {
	TxID           kts.Bytes32
	Index          uint32
	Amount         uint64
	Owner          kts.Address
	CreationHeight uint32
	CreationTime   uint64
}

// Outpoint returns the key identifying the output.
func (o *Output) Outpoint() kts.Bytes32 {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], o.Index)
	return kts.Blake2b(o.TxID[:], idx[:])
}

func (o *Output) String() string {
	return fmt.Sprintf("%v:%d amount=%d owner=%v created=%d@%d",
		o.TxID.AbbrevString(), o.Index, o.Amount, o.Owner, o.CreationHeight, o.CreationTime)
}

// StakeClaim is a candidate output together with the block it is staked in.
type StakeClaim struct {
	Output      Output
	BlockTime   uint64
	BlockHeight uint32
}

// Depth returns how many blocks the output is buried below the claiming block.
// It is 0 if the output is not older than the block.
func (c *StakeClaim) Depth() uint32 {
	if c.BlockHeight <= c.Output.CreationHeight {
		return 0
	}
	return c.BlockHeight - c.Output.CreationHeight
}

// Age returns the seconds elapsed from the output creation to the block time.
// It is 0 if the output is not older than the block.
func (c *StakeClaim) Age() uint64 {
	if c.BlockTime <= c.Output.CreationTime {
		return 0
	}
	return c.BlockTime - c.Output.CreationTime
}
