// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package zerocoin

import (
	"encoding/binary"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/pw512/klimatas-core/kts"
)

// Statement is what a spend proof is bound to.
type Statement struct {
	Accumulator  *big.Int // accumulator value at the referenced checkpoint
	Serial       *big.Int
	Denomination uint64
	Checkpoint   uint32
	Security     uint32
}

// Proof is the membership proof of a private spend.
type Proof struct {
	Commitment *big.Int
	Witness    *big.Int
	Randomness *big.Int
	Response   kts.Bytes32 // transcript after Security rounds
}

// Reveal opens the commitment of a public spend.
type Reveal struct {
	Commitment *big.Int
	Randomness *big.Int
}

// Prove builds the proof that coin is accumulated into stmt.Accumulator
// by witness.
func Prove(stmt *Statement, coin *Coin, witness *big.Int) *Proof {
	commitment := coin.Commitment()
	return &Proof{
		Commitment: commitment,
		Witness:    new(big.Int).Set(witness),
		Randomness: new(big.Int).Set(coin.Randomness),
		Response:   transcript(stmt, commitment, witness),
	}
}

// VerifyMembership checks the proof against the statement over modulus.
// The cost grows linearly with the security level.
func VerifyMembership(modulus *big.Int, stmt *Statement, proof *Proof) bool {
	if proof.Commitment == nil || proof.Witness == nil || proof.Randomness == nil || stmt.Accumulator == nil {
		return false
	}
	if !IsValidCommitment(proof.Commitment) {
		return false
	}
	if proof.Witness.Sign() <= 0 || proof.Witness.Cmp(modulus) >= 0 {
		return false
	}
	if transcript(stmt, proof.Commitment, proof.Witness) != proof.Response {
		return false
	}
	if Commit(stmt.Serial, proof.Randomness).Cmp(proof.Commitment) != 0 {
		return false
	}
	return Accumulate(modulus, proof.Witness, proof.Commitment).Cmp(stmt.Accumulator) == 0
}

// VerifyReveal checks that the reveal opens its commitment to serial.
func VerifyReveal(serial *big.Int, reveal *Reveal) bool {
	if reveal.Commitment == nil || reveal.Randomness == nil || !IsValidCommitment(reveal.Commitment) {
		return false
	}
	return Commit(serial, reveal.Randomness).Cmp(reveal.Commitment) == 0
}

func transcript(stmt *Statement, commitment, witness *big.Int) kts.Bytes32 {
	var buf [8]byte
	t := kts.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, []any{
			stmt.Accumulator,
			stmt.Serial,
			stmt.Denomination,
			stmt.Checkpoint,
			stmt.Security,
			commitment,
			witness,
		})
	})
	for i := uint32(0); i < stmt.Security; i++ {
		binary.BigEndian.PutUint32(buf[:4], i)
		t = kts.Blake2b(t[:], buf[:4])
	}
	return t
}

// EncodeProof encodes the proof.
func EncodeProof(p *Proof) ([]byte, error) {
	return rlp.EncodeToBytes(p)
}

// DecodeProof decodes a proof. Malformed input is a structural error.
func DecodeProof(data []byte) (*Proof, error) {
	var p Proof
	if err := rlp.DecodeBytes(data, &p); err != nil {
		return nil, kts.Structural("decode proof: %v", err)
	}
	return &p, nil
}

// EncodeReveal encodes the reveal.
func EncodeReveal(r *Reveal) ([]byte, error) {
	return rlp.EncodeToBytes(r)
}

// DecodeReveal decodes a reveal. Malformed input is a structural error.
func DecodeReveal(data []byte) (*Reveal, error) {
	var r Reveal
	if err := rlp.DecodeBytes(data, &r); err != nil {
		return nil, kts.Structural("decode reveal: %v", err)
	}
	return &r, nil
}
