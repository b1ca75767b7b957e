// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/pw512/klimatas-core/kts"
)

// SpendType distinguishes private (membership proof) from public (reveal) spends.
type SpendType uint8

// Spend types.
const (
	SpendPrivate SpendType = iota
	SpendPublic
)

func (t SpendType) String() string {
	switch t {
	case SpendPrivate:
		return "private"
	case SpendPublic:
		return "public"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Spend versions.
const (
	SpendVersion1 uint8 = 1
	SpendVersion2 uint8 = 2
)

// Mint adds a coin commitment of the given denomination. The mint height is
// the height of the containing block.
type Mint struct {
	Denomination uint64
	Commitment   *big.Int
}

// Spend consumes a coin by revealing its serial number.
type Spend struct {
	Serial       *big.Int
	Denomination uint64
	Checkpoint   uint32 // accumulator checkpoint height the proof is made against
	Security     uint32
	Version      uint8
	Type         SpendType
	Proof        []byte // encoded zerocoin proof, or reveal for public spends
}

func (s *Spend) String() string {
	return fmt.Sprintf("Spend(%v v%d denom=%d cp=%d sec=%d serial=%#x)",
		s.Type, s.Version, s.Denomination, s.Checkpoint, s.Security, s.Serial)
}

// Tx is a transaction carrying zerocoin mints and spends.
type Tx struct {
	Mints  []*Mint
	Spends []*Spend
}

// ID returns the hash of the encoded tx.
func (tx *Tx) ID() kts.Bytes32 {
	return kts.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, tx)
	})
}

// Transactions a slice of transactions.
type Transactions []*Tx

// RootHash computes the root hash of the txs, over their ids in order.
func (txs Transactions) RootHash() kts.Bytes32 {
	hw := kts.NewBlake2b()
	for _, tx := range txs {
		id := tx.ID()
		hw.Write(id[:])
	}
	var root kts.Bytes32
	hw.Sum(root[:0])
	return root
}

// Copy returns a shallow copy.
func (txs Transactions) Copy() Transactions {
	return append(Transactions(nil), txs...)
}
