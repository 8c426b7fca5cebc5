// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/api/types"
	"github.com/emylabs/emy/api/utils"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/eventdb"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/log"
	"github.com/emylabs/emy/tx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 7 / 10

	receiptBufferSize = 256
)

var logger = log.WithContext("pkg", "subscriptions")

type Subscriptions struct {
	ledger   *ledger.Ledger
	upgrader *websocket.Upgrader
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates the subscriptions handler. allowedOrigins are lower cased
// origins, "*" allows any.
func New(ledger *ledger.Ledger, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		ledger: ledger,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == strings.ToLower(origin) {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

func parseCriteria(req *http.Request) (*eventdb.EventCriteria, error) {
	var criteria eventdb.EventCriteria
	query := req.URL.Query()
	if s := query.Get("addr"); s != "" {
		addr, err := emy.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, "addr")
		}
		criteria.Address = &addr
	}
	for i, key := range []string{"t0", "t1", "t2", "t3", "t4"} {
		if s := query.Get(key); s != "" {
			topic, err := emy.ParseBytes32(s)
			if err != nil {
				return nil, errors.WithMessage(err, key)
			}
			criteria.Topics[i] = &topic
		}
	}
	return &criteria, nil
}

func (s *Subscriptions) handleSubscribeEvent(w http.ResponseWriter, req *http.Request) error {
	criteria, err := parseCriteria(req)
	if err != nil {
		return utils.BadRequest(err)
	}
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has already responded
		logger.Debug("upgrade failed", "err", err)
		return nil
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	if err := s.pipe(conn, criteria); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logger.Debug("subscription ended", "err", err)
	}
	return nil
}

// pipe streams matching events to conn until the peer leaves or the
// server closes.
func (s *Subscriptions) pipe(conn *websocket.Conn, criteria *eventdb.EventCriteria) error {
	receipts := make(chan *tx.Receipt, receiptBufferSize)
	sub := s.ledger.Subscribe(receipts)
	defer sub.Unsubscribe()

	// reader detects closure and handles pongs
	readErr := make(chan error, 1)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing")
			return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		case err := <-readErr:
			return err
		case err := <-sub.Err():
			return err
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case r := <-receipts:
			for _, ev := range types.ReceiptEvents(r) {
				if !criteria.Match(ev.Address, ev.Topics) {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					return err
				}
			}
		}
	}
}

// Close ends all subscriptions and waits for their handlers to return.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/event").
		Methods(http.MethodGet).
		Name("WS /subscriptions/event").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvent))
}
