// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/emylabs/emy/eventdb"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/tx"
)

// syncEventDB indexes the receipts committed after the newest block found in
// the event db, catching up on a fresh or lagging event db.
func syncEventDB(ctx context.Context, l *ledger.Ledger, eventDB *eventdb.EventDB) error {
	newest, err := eventDB.NewestBlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "seek event db sync position")
	}
	headNum := l.Head().Number
	if newest >= headNum {
		return nil
	}

	if newest == 0 {
		fmt.Println(">> Rebuilding event db <<")
	} else {
		fmt.Println(">> Syncing event db <<")
	}

	pb := pb.New64(int64(headNum)).
		Set64(int64(newest)).
		SetMaxWidth(90).
		Start()
	defer func() { pb.NotPrint = true }()

	err = l.IterateReceipts(newest+1, func(r *tx.Receipt) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := eventDB.Insert(ctx, r); err != nil {
			return errors.Wrapf(err, "index receipt #%v", r.BlockNumber)
		}
		pb.Add64(1)
		return nil
	})
	if err != nil {
		return err
	}
	pb.Finish()
	return nil
}
