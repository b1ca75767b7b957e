// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chainstate

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/kv"
)

// outputBucket holds outpoint => rlp(output) of the stakeable outputs.
const outputBucket kv.Bucket = "o"

// Outputs is the set of unspent outputs stake claims are checked against.
// It is fed by the node that owns the utxo set, not by block connection,
// so its writes are neither staged nor undone.
type Outputs struct {
	store kv.Store
}

// Outputs returns the stakeable output set kept in the state store.
func (s *State) Outputs() *Outputs {
	return &Outputs{s.store}
}

// Output returns the unspent output, or nil if it is unknown.
func (o *Outputs) Output(txID kts.Bytes32, index uint32) (*block.Output, error) {
	key := (&block.Output{TxID: txID, Index: index}).Outpoint()
	data, err := outputBucket.NewGetter(o.store).Get(key[:])
	if err != nil {
		if o.store.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get output")
	}
	var out block.Output
	if err := rlp.DecodeBytes(data, &out); err != nil {
		return nil, errors.Wrap(err, "decode output")
	}
	return &out, nil
}

// Put adds the outputs in one atomic write.
func (o *Outputs) Put(outs ...*block.Output) error {
	bulk := o.store.Bulk()
	putter := outputBucket.NewPutter(bulk)
	for _, out := range outs {
		data, err := rlp.EncodeToBytes(out)
		if err != nil {
			return err
		}
		key := out.Outpoint()
		if err := putter.Put(key[:], data); err != nil {
			return err
		}
	}
	return errors.Wrap(bulk.Write(), "write outputs")
}

// Remove marks the outputs spent.
func (o *Outputs) Remove(outs ...*block.Output) error {
	bulk := o.store.Bulk()
	putter := outputBucket.NewPutter(bulk)
	for _, out := range outs {
		key := out.Outpoint()
		if err := putter.Delete(key[:]); err != nil {
			return err
		}
	}
	return errors.Wrap(bulk.Write(), "write outputs")
}
