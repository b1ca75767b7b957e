// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/metrics"
)

var (
	metricEvaluations      = metrics.LazyLoadCounterVec("consensus_evaluations_count", []string{"kind", "result", "reason"})
	metricEvaluateDuration = metrics.LazyLoadHistogram("consensus_evaluate_duration_us", metrics.BucketEvaluate)
	metricBlockSpends      = metrics.LazyLoadHistogram("consensus_block_spends", metrics.BucketBlockItems)
	metricBlockMints       = metrics.LazyLoadHistogram("consensus_block_mints", metrics.BucketBlockItems)
	metricTipHeight        = metrics.LazyLoadGauge("consensus_tip_height")
	metricDisconnects      = metrics.LazyLoadCounterVec("consensus_disconnects_count", []string{"result"})
)

func countEvaluation(kind string, err error) {
	result, reason := "accepted", ""
	if err != nil {
		result = "rejected"
		if r, ok := kts.ReasonOf(err); ok {
			reason = string(r)
		} else {
			result = "error"
		}
	}
	metricEvaluations().AddWithLabel(1, map[string]string{"kind": kind, "result": result, "reason": reason})
}
