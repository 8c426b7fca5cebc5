// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import "github.com/emylabs/emy/metrics"

var (
	metricCriteriaLength = metrics.LazyLoadHistogramVec("eventdb_criteria_length", []string{"order"}, []int64{0, 1, 2, 5, 10, 25, 100})
	metricQueryOrder     = metrics.LazyLoadCounterVec("eventdb_query_order", []string{"order"})
)

func metricsHandleFilter(filter *Filter) {
	order := string(ASC)
	if filter.Order == DESC {
		order = string(DESC)
	}
	labels := map[string]string{"order": order}
	metricQueryOrder().AddWithLabel(1, labels)
	metricCriteriaLength().ObserveWithLabels(int64(len(filter.CriteriaSet)), labels)
}
