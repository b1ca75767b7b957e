// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package spend

import "github.com/pw512/klimatas-core/metrics"

var (
	// base units whose spend was refused as forged
	metricForgedValue       = metrics.LazyLoadCounter("spend_forged_value")
	metricCompromisedSupply = metrics.LazyLoadGauge("spend_compromised_supply")
)
