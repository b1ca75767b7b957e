// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kts

import "math"

// Coin is the number of base units in one coin.
const Coin uint64 = 100_000_000

// Never is the activation height of a rule that is disabled.
const Never uint32 = math.MaxUint32
