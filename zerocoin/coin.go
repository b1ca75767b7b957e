// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package zerocoin

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/pkg/errors"

	"github.com/pw512/klimatas-core/kts"
)

// primality rounds of hash-to-prime, on top of the Baillie-PSW test.
const primeRounds = 20

// commitmentBits is the size of a commitment.
const commitmentBits = 256

// Coin is the private part of a minted coin.
type Coin struct {
	Serial       *big.Int
	Randomness   *big.Int
	Denomination uint64
}

// NewCoin draws a fresh coin with a canonical serial below serialModulus.
// r defaults to crypto/rand.
func NewCoin(r io.Reader, serialModulus *big.Int, denomination uint64) (*Coin, error) {
	if r == nil {
		r = rand.Reader
	}
	serial, err := rand.Int(r, serialModulus)
	if err != nil {
		return nil, errors.Wrap(err, "draw serial")
	}
	randomness, err := rand.Int(r, serialModulus)
	if err != nil {
		return nil, errors.Wrap(err, "draw randomness")
	}
	return &Coin{Serial: serial, Randomness: randomness, Denomination: denomination}, nil
}

// Commitment returns the public commitment of the coin.
func (c *Coin) Commitment() *big.Int {
	return Commit(c.Serial, c.Randomness)
}

// Commit maps (serial, randomness) to a 256 bit prime: the first prime of
// the sequence blake2b(len(serial) || serial || len(randomness) || randomness || counter)
// with the top and bottom bits forced to one.
func Commit(serial, randomness *big.Int) *big.Int {
	var (
		s   = serial.Bytes()
		r   = randomness.Bytes()
		buf [8]byte
		c   = new(big.Int)
	)
	for counter := uint64(0); ; counter++ {
		h := kts.Blake2bFn(func(w io.Writer) {
			binary.BigEndian.PutUint32(buf[:4], uint32(len(s)))
			w.Write(buf[:4])
			w.Write(s)
			binary.BigEndian.PutUint32(buf[:4], uint32(len(r)))
			w.Write(buf[:4])
			w.Write(r)
			binary.BigEndian.PutUint64(buf[:], counter)
			w.Write(buf[:])
		})
		h[0] |= 0x80
		h[len(h)-1] |= 1
		c.SetBytes(h[:])
		if c.ProbablyPrime(primeRounds) {
			return c
		}
	}
}

// IsValidCommitment reports whether c has the shape of a commitment.
func IsValidCommitment(c *big.Int) bool {
	return c != nil && c.Sign() > 0 && c.BitLen() == commitmentBits && c.Bit(0) == 1
}

// IsCanonicalSerial reports whether serial lies in [0, serialModulus).
func IsCanonicalSerial(serial, serialModulus *big.Int) bool {
	return serial.Sign() >= 0 && serial.Cmp(serialModulus) < 0
}
