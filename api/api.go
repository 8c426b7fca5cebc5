// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/emylabs/emy/api/accounts"
	"github.com/emylabs/emy/api/events"
	"github.com/emylabs/emy/api/node"
	"github.com/emylabs/emy/api/proposals"
	"github.com/emylabs/emy/api/staking"
	"github.com/emylabs/emy/api/subscriptions"
	"github.com/emylabs/emy/api/transactions"
	"github.com/emylabs/emy/eventdb"
	"github.com/emylabs/emy/genesis"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/log"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	LogsLimit       uint64
	EnableReqLogger bool
	EnableMetrics   bool
}

// New return api router
func New(
	l *ledger.Ledger,
	eventDB *eventdb.EventDB,
	deployments genesis.Deployments,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	transactions.New(l).
		Mount(router, "/transactions")
	accounts.New(l).
		Mount(router, "/accounts")
	staking.New(l, deployments.Staking).
		Mount(router, "/staking")
	proposals.New(l, deployments.Dao).
		Mount(router, "/proposals")
	events.New(eventDB, opts.LogsLimit).
		Mount(router, "/logs/event")
	node.New(l, deployments).
		Mount(router, "/node")
	subs := subscriptions.New(l, origins)
	subs.Mount(router, "/subscriptions")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "x-genesis-id"}),
		handlers.ExposedHeaders([]string{"x-genesis-id", "x-request-id"}),
	)(handler)

	handler = requestIDHandler(handler, l.GenesisID().String())
	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
