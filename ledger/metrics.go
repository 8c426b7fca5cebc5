// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import "github.com/emylabs/emy/metrics"

var (
	metricExecutedCount     = metrics.LazyLoadCounterVec("ledger_executed_count", []string{"contract", "method", "reverted"})
	metricExecutionDuration = metrics.LazyLoadHistogramVec("ledger_execution_duration_ms", []string{"contract"}, metrics.BucketExecution)
	metricCallCount         = metrics.LazyLoadCounterVec("ledger_call_count", []string{"contract", "reverted"})
	metricHeadNumber        = metrics.LazyLoadGauge("ledger_head_number")
)
