// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package httpserver starts the http listeners of the node.
package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/emylabs/emy/co"
)

// StartAPIServer serves handler on addr. It returns the base url and a
// func that closes the server and waits for it to return.
func StartAPIServer(addr string, handler http.Handler) (string, func(), error) {
	return start(addr, handler, "API")
}

func start(addr string, handler http.Handler, name string) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen %s addr [%v]", name, addr)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	goes := co.NewGoes()
	goes.Go(func(<-chan struct{}) {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		goes.Wait()
	}, nil
}
