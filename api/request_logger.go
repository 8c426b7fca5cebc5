// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/pborman/uuid"

	"github.com/emylabs/emy/log"
)

const (
	requestIDHeader = "x-request-id"
	genesisIDHeader = "x-genesis-id"
)

// requestIDHandler tags every request and response with a request id,
// keeping the one the client sent, and exposes the genesis id.
func requestIDHandler(next http.Handler, genesisID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		w.Header().Set(genesisIDHeader, genesisID)
		next.ServeHTTP(w, r)
	})
}

// RequestLoggerHandler returns a http handler to ensure requests are syphoned into the writer
func RequestLoggerHandler(handler http.Handler, logger log.Logger) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		// Read and logger the body (note: this can only be done once)
		// Ensure you don't disrupt the request body for handlers that need to read it
		var bodyBytes []byte
		var err error
		if r.Body != nil {
			bodyBytes, err = io.ReadAll(r.Body)
			if err != nil {
				logger.Warn("unexpected body read error", "err", err)
				return // don't pass bad request to the next handler
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		start := time.Now()
		handler.ServeHTTP(w, r)

		logger.Debug("API Request",
			"id", r.Header.Get(requestIDHeader),
			"durationMs", time.Since(start).Milliseconds(),
			"URI", r.URL.String(),
			"Method", r.Method,
			"Body", string(bodyBytes),
		)
	}

	// http.HandlerFunc wraps a function so that it
	// implements http.Handler interface
	return http.HandlerFunc(fn)
}
