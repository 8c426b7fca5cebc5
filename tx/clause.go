// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/emylabs/emy/emy"
)

type clauseBody struct {
	To   emy.Address
	Data []byte
}

// Clause is the basic execution unit: a call to a contract with opaque call data.
type Clause struct {
	body clauseBody
}

// NewClause create a new clause instance.
func NewClause(to emy.Address) *Clause {
	return &Clause{clauseBody{To: to}}
}

// WithData create a new clause copy with data changed.
func (c *Clause) WithData(data []byte) *Clause {
	newClause := *c
	newClause.body.Data = append([]byte(nil), data...)
	return &newClause
}

// To returns 'To' address.
func (c *Clause) To() emy.Address {
	return c.body.To
}

// Data returns 'Data'.
func (c *Clause) Data() []byte {
	return append([]byte(nil), c.body.Data...)
}

// EncodeRLP implements rlp.Encoder
func (c *Clause) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &c.body)
}

// DecodeRLP implements rlp.Decoder
func (c *Clause) DecodeRLP(s *rlp.Stream) error {
	var body clauseBody
	if err := s.Decode(&body); err != nil {
		return err
	}
	*c = Clause{body}
	return nil
}

func (c *Clause) String() string {
	return fmt.Sprintf(`
		(To:	%v
		 Data:	0x%x)`, c.body.To, c.body.Data)
}
