// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/log"
)

var logger = log.WithContext("pkg", "api")

// JSONContentType is the content type of every JSON response.
const JSONContentType = "application/json; charset=utf-8"

// httpError carries the status an error is responded with.
type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string { return e.cause.Error() }
func (e *httpError) Unwrap() error { return e.cause }

func BadRequest(cause error) error { return &httpError{cause, http.StatusBadRequest} }
func NotFound(cause error) error   { return &httpError{cause, http.StatusNotFound} }
func Forbidden(cause error) error  { return &httpError{cause, http.StatusForbidden} }

// HandlerFunc is an http.HandlerFunc that fails by returning an error.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// statusOf maps a handler error to a response status. Errors not created by
// this package are internal, except those of a closed ledger or an aborted
// request, which mean the node can't serve it now.
func statusOf(err error) int {
	var he *httpError
	switch {
	case errors.As(err, &he):
		return he.status
	case errors.Is(err, ledger.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WrapHandlerFunc converts f to an http.HandlerFunc, responding its error
// as plain text.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			logger.Error("failed to handle request", "method", r.Method, "uri", r.RequestURI, "err", err)
		}
		http.Error(w, err.Error(), status)
	}
}

// ParseJSON decodes a JSON object, rejecting unknown fields.
func ParseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON responds obj in JSON.
func WriteJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}
