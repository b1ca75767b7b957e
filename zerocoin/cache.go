// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package zerocoin

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/qianbin/directcache"

	"github.com/pw512/klimatas-core/cache"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/metrics"
)

var metricProofCache = metrics.LazyLoadCounterVec("zerocoin_proof_cache_count", []string{"event"})

// VerifiedCache remembers proofs that verified, so that a spend seen in a
// pending tx and again in a block is verified once. Only positive results are
// kept, and the key commits to the full statement and proof.
type VerifiedCache struct {
	c     *directcache.Cache
	stats cache.Stats
}

// NewVerifiedCache creates a cache with the given capacity in bytes.
func NewVerifiedCache(sizeBytes int) *VerifiedCache {
	return &VerifiedCache{c: directcache.New(sizeBytes)}
}

// VerifyMembership is VerifyMembership backed by the cache.
func (vc *VerifiedCache) VerifyMembership(modulus *big.Int, stmt *Statement, proof *Proof) bool {
	key := cacheKey(stmt, proof)
	if vc.c.AdvGet(key[:], func([]byte) {}, false) {
		vc.stats.Hit()
		metricProofCache().AddWithLabel(1, map[string]string{"event": "hit"})
		return true
	}
	vc.stats.Miss()
	metricProofCache().AddWithLabel(1, map[string]string{"event": "miss"})

	if !VerifyMembership(modulus, stmt, proof) {
		return false
	}
	_ = vc.c.Set(key[:], []byte{1})
	return true
}

// Stats returns hit/miss counters.
func (vc *VerifiedCache) Stats() (bool, int64, int64) {
	return vc.stats.Stats()
}

func cacheKey(stmt *Statement, proof *Proof) kts.Bytes32 {
	return kts.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, []any{stmt, proof})
	})
}
