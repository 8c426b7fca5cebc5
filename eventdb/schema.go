// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

const eventTableSchema = `
CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	blockNumber INTEGER NOT NULL,
	blockTime INTEGER NOT NULL,
	txID BLOB NOT NULL,
	eventIndex INTEGER NOT NULL,
	txOrigin BLOB NOT NULL,
	address BLOB NOT NULL,
	topic0 BLOB,
	topic1 BLOB,
	topic2 BLOB,
	topic3 BLOB,
	topic4 BLOB,
	data BLOB
);

CREATE UNIQUE INDEX IF NOT EXISTS event_tx_index ON event(txID, eventIndex);
CREATE INDEX IF NOT EXISTS event_block_number ON event(blockNumber);
CREATE INDEX IF NOT EXISTS event_block_time ON event(blockTime);
CREATE INDEX IF NOT EXISTS event_address ON event(address);
CREATE INDEX IF NOT EXISTS event_topic0 ON event(topic0);
CREATE INDEX IF NOT EXISTS event_topic1 ON event(topic1);
CREATE INDEX IF NOT EXISTS event_topic2 ON event(topic2);
`

const eventColumns = "seq, blockNumber, blockTime, txID, eventIndex, txOrigin, address, topic0, topic1, topic2, topic3, topic4, data"
