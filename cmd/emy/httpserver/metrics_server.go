// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/emylabs/emy/metrics"
)

// StartMetricsServer exposes the metrics at /metrics on addr.
func StartMetricsServer(addr string) (string, func(), error) {
	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	handler := handlers.CompressHandler(router)

	url, stop, err := start(addr, handler, "metrics")
	if err != nil {
		return "", nil, err
	}
	return url + "metrics", stop, nil
}
