// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import "github.com/vechain/scoreloop/metrics"

var (
	metricTxCounter         = metrics.LazyLoadCounterVec("engine_tx_count", []string{"result"})
	metricInvokeDuration    = metrics.LazyLoadHistogram("engine_invoke_duration_ms", metrics.Bucket10s)
	metricQueryCounter      = metrics.LazyLoadCounterVec("engine_query_count", []string{"method", "status"})
	metricPRepCount         = metrics.LazyLoadGauge("engine_prep_count")
	metricPendingBlockGauge = metrics.LazyLoadGauge("engine_pending_block_count")
)
