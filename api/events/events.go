// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/api/types"
	"github.com/emylabs/emy/api/utils"
	"github.com/emylabs/emy/eventdb"
)

type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

func New(db *eventdb.EventDB, logsLimit uint64) *Events {
	return &Events{
		db,
		logsLimit,
	}
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var filter EventFilter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if filter.Options != nil && filter.Options.Limit > e.limit {
		return utils.Forbidden(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", e.limit))
	}
	if filter.Options != nil && filter.Options.Offset > math.MaxInt64 {
		return utils.BadRequest(fmt.Errorf("options.offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	if filter.Range != nil && filter.Range.Unit != "" && filter.Range.Unit != eventdb.Block && filter.Range.Unit != eventdb.Time {
		return utils.BadRequest(fmt.Errorf("range.unit: must be %q or %q", eventdb.Block, eventdb.Time))
	}
	if filter.Order != "" && filter.Order != eventdb.ASC && filter.Order != eventdb.DESC {
		return utils.BadRequest(fmt.Errorf("order: must be %q or %q", eventdb.ASC, eventdb.DESC))
	}
	// {} is accepted and matches everything
	for i, criteria := range filter.CriteriaSet {
		if criteria == nil {
			return utils.BadRequest(fmt.Errorf("criteriaSet[%d]: null not allowed", i))
		}
	}
	if filter.Options == nil {
		// one more than the limit, to detect whether there are more logs
		filter.Options = &eventdb.Options{
			Offset: 0,
			Limit:  e.limit + 1,
		}
	}

	events, err := e.db.Filter(req.Context(), convertEventFilter(&filter))
	if err != nil {
		return err
	}
	if uint64(len(events)) > e.limit {
		return utils.Forbidden(fmt.Errorf("the number of filtered logs exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}

	result := make([]*types.Event, len(events))
	for i, ev := range events {
		result[i] = types.ConvertIndexedEvent(ev)
	}
	return utils.WriteJSON(w, result)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /logs/event").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}
