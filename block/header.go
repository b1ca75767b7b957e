// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/kts"
)

// messagePrefix is prepended to the signing hash under the new signature scheme.
const messagePrefix = "\x19Klimatas Signed Message:\n32"

// Header contains almost all information about a block, except block body.
// It's immutable.
type Header struct {
	body headerBody

	cache struct {
		signingHash atomic.Pointer[kts.Bytes32]
		id          atomic.Pointer[kts.Bytes32]
	}
}

// headerBody body of header
type headerBody struct {
	ParentID  kts.Bytes32
	Timestamp uint64
	Bits      uint32 // compact target
	TxsRoot   kts.Bytes32

	Stake *Output `rlp:"nil"` // nil for work blocks

	Signature []byte
}

// ParentID returns id of parent block.
func (h *Header) ParentID() kts.Bytes32 {
	return h.body.ParentID
}

// Number returns sequential number of this block.
func (h *Header) Number() uint32 {
	// inferred from parent id
	return Number(h.body.ParentID) + 1
}

// Timestamp returns timestamp of this block.
func (h *Header) Timestamp() uint64 {
	return h.body.Timestamp
}

// Bits returns the compact difficulty target.
func (h *Header) Bits() uint32 {
	return h.body.Bits
}

// TxsRoot returns the root hash of txs contained in this block.
func (h *Header) TxsRoot() kts.Bytes32 {
	return h.body.TxsRoot
}

// Stake returns a copy of the claimed stake output, nil for work blocks.
func (h *Header) Stake() *Output {
	if h.body.Stake == nil {
		return nil
	}
	cpy := *h.body.Stake
	return &cpy
}

// IsProofOfStake returns whether the header carries a stake claim.
func (h *Header) IsProofOfStake() bool {
	return h.body.Stake != nil
}

// StakeClaim returns the stake claim made by this header, or nil for work blocks.
func (h *Header) StakeClaim() *StakeClaim {
	if h.body.Stake == nil {
		return nil
	}
	return &StakeClaim{
		Output:      *h.body.Stake,
		BlockTime:   h.body.Timestamp,
		BlockHeight: h.Number(),
	}
}

// Position returns the chain position of this block.
func (h *Header) Position() activation.ChainPosition {
	return activation.ChainPosition{Height: h.Number(), Time: h.body.Timestamp}
}

// ID computes id of block.
// The block ID is defined as: blockNumber + hash(signingHash, signature)[4:].
func (h *Header) ID() (id kts.Bytes32) {
	if cached := h.cache.id.Load(); cached != nil {
		return *cached
	}
	defer func() {
		// overwrite first 4 bytes of block hash to block number.
		binary.BigEndian.PutUint32(id[:], h.Number())
		h.cache.id.Store(&id)
	}()

	hw := kts.NewBlake2b()
	hw.Write(h.SigningHash().Bytes())
	hw.Write(h.body.Signature)
	hw.Sum(id[:0])
	return
}

// SigningHash computes hash of all header fields excluding signature.
func (h *Header) SigningHash() (hash kts.Bytes32) {
	if cached := h.cache.signingHash.Load(); cached != nil {
		return *cached
	}
	defer func() { h.cache.signingHash.Store(&hash) }()

	hw := kts.NewBlake2b()
	rlp.Encode(hw, []any{
		h.body.ParentID,
		h.body.Timestamp,
		h.body.Bits,
		h.body.TxsRoot,
		h.body.Stake,
	})
	hw.Sum(hash[:0])
	return
}

// Signature returns signature.
func (h *Header) Signature() []byte {
	return append([]byte(nil), h.body.Signature...)
}

// withSignature create a new Header object with signature set.
func (h *Header) withSignature(sig []byte) *Header {
	cpy := Header{body: h.body}
	cpy.body.Signature = append([]byte(nil), sig...)
	return &cpy
}

// SigningMessage returns the digest actually signed under the given scheme.
// The legacy scheme signs the signing hash as is, the new scheme signs the
// keccak256 hash of the prefixed signing hash.
func (h *Header) SigningMessage(scheme activation.SignatureScheme) kts.Bytes32 {
	hash := h.SigningHash()
	if scheme == activation.SigNew {
		return kts.Keccak256([]byte(messagePrefix), hash[:])
	}
	return hash
}

// Sign signs the header with the given key under the given scheme.
func (h *Header) Sign(key *ecdsa.PrivateKey, scheme activation.SignatureScheme) (*Header, error) {
	sig, err := crypto.Sign(h.SigningMessage(scheme).Bytes(), key)
	if err != nil {
		return nil, err
	}
	return h.withSignature(sig), nil
}

// Signer extract signer of the block from signature, under the given scheme.
func (h *Header) Signer(scheme activation.SignatureScheme) (kts.Address, error) {
	if h.Number() == 0 {
		// special case for genesis block
		return kts.Address{}, nil
	}
	pub, err := crypto.SigToPub(h.SigningMessage(scheme).Bytes(), h.body.Signature)
	if err != nil {
		return kts.Address{}, err
	}
	return kts.Address(crypto.PubkeyToAddress(*pub)), nil
}

// EncodeRLP implements rlp.Encoder
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &h.body)
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var body headerBody

	if err := s.Decode(&body); err != nil {
		return err
	}
	*h = Header{body: body}
	return nil
}

func (h *Header) String() string {
	stake := "N/A"
	if h.body.Stake != nil {
		stake = h.body.Stake.String()
	}
	return fmt.Sprintf(`Header(%v):
	Number:			%v
	ParentID:		%v
	Timestamp:		%v
	Bits:			%#08x
	TxsRoot:		%v
	Stake:			%v
	Signature:		0x%x`, h.ID(), h.Number(), h.body.ParentID, h.body.Timestamp,
		h.body.Bits, h.body.TxsRoot, stake, h.body.Signature)
}

// Number extract block number from block id.
func Number(blockID kts.Bytes32) uint32 {
	// first 4 bytes are over written by block number (big endian).
	return binary.BigEndian.Uint32(blockID[:])
}

// GenesisParentID returns the parent id of a genesis block, which
// makes the genesis number 0.
func GenesisParentID() (id kts.Bytes32) {
	binary.BigEndian.PutUint32(id[:], ^uint32(0))
	return
}
