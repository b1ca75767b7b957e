// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"github.com/pw512/klimatas-core/kts"
)

// Builder to make it easy to build a block object.
type Builder struct {
	headerBody headerBody
	txs        Transactions
}

// ParentID set parent id.
func (b *Builder) ParentID(id kts.Bytes32) *Builder {
	b.headerBody.ParentID = id
	return b
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(ts uint64) *Builder {
	b.headerBody.Timestamp = ts
	return b
}

// Bits set the compact target.
func (b *Builder) Bits(bits uint32) *Builder {
	b.headerBody.Bits = bits
	return b
}

// Stake set the staked output.
func (b *Builder) Stake(out *Output) *Builder {
	if out == nil {
		b.headerBody.Stake = nil
		return b
	}
	cpy := *out
	b.headerBody.Stake = &cpy
	return b
}

// Transaction add a transaction.
func (b *Builder) Transaction(tx *Tx) *Builder {
	b.txs = append(b.txs, tx)
	return b
}

// Build build a block object.
func (b *Builder) Build() *Block {
	header := Header{body: b.headerBody}
	header.body.TxsRoot = b.txs.RootHash()

	return &Block{
		header: &header,
		txs:    b.txs.Copy(),
	}
}
