/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mysql

import (
	"mywire.io/mywire/go/sqltypes"
)

// GeneratedKeyName is the column name of the synthetic result set
// returned by ExecuteUpdateReturningKeys.
const GeneratedKeyName = "GENERATED_KEY"

//
// Client side methods.
//

// WriteComQuery writes a query for the server to execute.
// Client -> Server.
// Returns SQLError(CRServerGone) if it can't.
func (c *Conn) WriteComQuery(query string) error {
	// This is a new command, need to reset the sequence.
	c.resetSequence()

	data := c.startEphemeralPacket(len(query) + 1)
	data[0] = ComQuery
	copy(data[1:], query)
	if err := c.writeEphemeralPacket(); err != nil {
		return NewSQLError(CRServerGone, SSNetError, "%v", err)
	}
	return c.flush()
}

// writeComPing writes a ping packet.
// Client -> Server.
func (c *Conn) writeComPing() error {
	c.resetSequence()
	data := c.startEphemeralPacket(1)
	data[0] = ComPing
	if err := c.writeEphemeralPacket(); err != nil {
		return NewSQLError(CRServerGone, SSNetError, "%v", err)
	}
	return c.flush()
}

// writeComQuit writes a Quit message for the server, to indicate we
// want to close the connection.
// Client -> Server.
// Returns SQLError(CRServerGone) if it can't.
func (c *Conn) writeComQuit() error {
	// This is a new command, need to reset the sequence.
	c.resetSequence()

	data := c.startEphemeralPacket(1)
	data[0] = ComQuit
	if err := c.writeEphemeralPacket(); err != nil {
		return NewSQLError(CRServerGone, SSNetError, "cannot write ComQuit: %v", err)
	}
	return c.flush()
}

// readColumnDefinition reads the next Column Definition packet and
// fills in the given field.
func (c *Conn) readColumnDefinition(field *sqltypes.Field, index int) error {
	colDef, err := c.readEphemeralPacket()
	if err != nil {
		return NewSQLError(CRServerLost, SSNetError, "%v", err)
	}
	defer c.recycleReadPacket()
	return parseColumnDefinition(colDef, field, index)
}

// readColumnDefinitionType is a faster version of
// readColumnDefinition that only fills in the Type.
func (c *Conn) readColumnDefinitionType(field *sqltypes.Field, index int) error {
	colDef, err := c.readEphemeralPacket()
	if err != nil {
		return NewSQLError(CRServerLost, SSNetError, "%v", err)
	}
	defer c.recycleReadPacket()
	return parseColumnDefinitionType(colDef, field, index)
}

// readComQueryResponse reads the first packet of a COM_QUERY
// response: an OK packet, an error, or the column count of a result
// set.
func (c *Conn) readComQueryResponse() (*PacketOK, int, error) {
	data, err := c.readEphemeralPacket()
	if err != nil {
		return nil, 0, NewSQLError(CRServerLost, SSNetError, "%v", err)
	}
	defer c.recycleReadPacket()
	if len(data) == 0 {
		return nil, 0, NewSQLError(CRMalformedPacket, SSUnknownSQLState, "invalid empty COM_QUERY response packet")
	}

	switch data[0] {
	case OKPacket:
		packetOK, err := parsePacketOK(data)
		return packetOK, 0, err
	case ErrPacket:
		// Error
		return nil, 0, ParseErrorPacket(data)
	case 0xfb:
		// Local infile
		return nil, 0, NewSQLError(CRMalformedPacket, SSUnknownSQLState, "not implemented: local infile")
	}

	n, pos, ok := readLenEncInt(data, 0)
	if !ok {
		return nil, 0, NewSQLError(CRMalformedPacket, SSUnknownSQLState, "cannot get column number")
	}
	if pos != len(data) {
		return nil, 0, NewSQLError(CRMalformedPacket, SSUnknownSQLState, "extra data in COM_QUERY response")
	}
	return &PacketOK{}, int(n), nil
}

// ReadQueryResult gets the result from the last written query. It
// returns the result, whether the server announced more results, and
// the warning count.
func (c *Conn) ReadQueryResult(maxrows int, wantfields bool) (*sqltypes.Result, bool, uint16, error) {
	packetOK, colNumber, err := c.readComQueryResponse()
	if err != nil {
		return nil, false, 0, err
	}
	if colNumber == 0 {
		// OK packet, means no results. Just use the numbers.
		c.StatusFlags = packetOK.statusFlags
		return &sqltypes.Result{
			RowsAffected:        packetOK.affectedRows,
			InsertID:            packetOK.lastInsertID,
			StatusFlags:         packetOK.statusFlags,
			Info:                packetOK.info,
			SessionStateChanges: packetOK.sessionStateData,
		}, packetOK.statusFlags&ServerMoreResultsExists != 0, packetOK.warnings, nil
	}

	fields := make([]sqltypes.Field, colNumber)
	result := &sqltypes.Result{
		Fields: make([]*sqltypes.Field, colNumber),
	}

	// Read column headers. One packet per column.
	// Build the fields.
	for i := 0; i < colNumber; i++ {
		result.Fields[i] = &fields[i]

		if wantfields {
			if err := c.readColumnDefinition(result.Fields[i], i); err != nil {
				return nil, false, 0, err
			}
		} else {
			if err := c.readColumnDefinitionType(result.Fields[i], i); err != nil {
				return nil, false, 0, err
			}
		}
	}

	if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
		// EOF is only present here if it's not deprecated.
		data, err := c.readEphemeralPacket()
		if err != nil {
			return nil, false, 0, NewSQLError(CRServerLost, SSNetError, "%v", err)
		}
		if !isEOFPacket(data) {
			c.recycleReadPacket()
			return nil, false, 0, framingErrorf("unexpected packet after fields: %v", data)
		}
		c.recycleReadPacket()
	}

	// read each row until EOF or OK packet.
	for {
		data, err := c.readEphemeralPacket()
		if err != nil {
			return nil, false, 0, NewSQLError(CRServerLost, SSNetError, "%v", err)
		}

		if isEOFPacket(data) {
			// Strip the partial Fields before returning.
			if !wantfields {
				result.Fields = nil
			}

			// The deprecated EOF packets change means that this is either an
			// EOF packet or an OK packet with the EOF type code.
			var more bool
			var warnings uint16
			if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
				warnings, more, err = parseEOFPacket(data)
				if err != nil {
					c.recycleReadPacket()
					return nil, false, 0, err
				}
				statusFlags, _, _ := readUint16(data, 3)
				result.StatusFlags = statusFlags
				c.StatusFlags = statusFlags
			} else {
				var packetEOF *PacketOK
				packetEOF, err = parsePacketOK(data)
				if err != nil {
					c.recycleReadPacket()
					return nil, false, 0, err
				}
				warnings = packetEOF.warnings
				more = packetEOF.statusFlags&ServerMoreResultsExists != 0
				result.StatusFlags = packetEOF.statusFlags
				result.SessionStateChanges = packetEOF.sessionStateData
				c.StatusFlags = packetEOF.statusFlags
			}
			c.recycleReadPacket()
			return result, more, warnings, nil

		} else if data[0] == ErrPacket {
			// Error packet.
			err := ParseErrorPacket(data)
			c.recycleReadPacket()
			return nil, false, 0, err
		}

		if maxrows == FETCH_NO_ROWS {
			c.recycleReadPacket()
			continue
		}

		// Check we're not over the limit before we add more.
		if len(result.Rows) == maxrows {
			c.recycleReadPacket()
			if err := c.drainMoreRows(); err != nil {
				return nil, false, 0, err
			}
			return nil, false, 0, usageErrorf("row count exceeded %d", maxrows)
		}

		// Regular row. The ephemeral buffer is recycled, so the row
		// values have to own their bytes.
		row, err := parseRow(data, result.Fields, readLenEncStringAsBytesCopy, nil)
		if err != nil {
			c.recycleReadPacket()
			return nil, false, 0, err
		}
		result.Rows = append(result.Rows, row)
		c.recycleReadPacket()
	}
}

// FETCH_NO_ROWS tells ReadQueryResult to discard any row the server
// sends back.
const FETCH_NO_ROWS = -1

// drainMoreRows reads the rest of the current result set and throws
// it away, leaving the connection usable.
func (c *Conn) drainMoreRows() error {
	for {
		data, err := c.readEphemeralPacket()
		if err != nil {
			return NewSQLError(CRServerLost, SSNetError, "%v", err)
		}
		if isEOFPacket(data) || data[0] == ErrPacket {
			c.recycleReadPacket()
			return nil
		}
		c.recycleReadPacket()
	}
}

// ExecuteFetch executes a query and returns the result. Returns a
// SQLError. Depending on the transport used, the error returned might
// be different for the same condition:
//
// 1. if the server closes the connection when no command is in flight:
//
//   - the readComQueryResponse() read of the initial packet
//     returns ERServerLost(2013).
//
// 2. if the server closes the connection when a command is in flight:
//
//   - the readComQueryResponse() read of the initial packet
//     returns ERServerLost(2013).
func (c *Conn) ExecuteFetch(query string, maxrows int, wantfields bool) (result *sqltypes.Result, err error) {
	result, more, err := c.ExecuteFetchMulti(query, maxrows, wantfields)
	if err != nil {
		return nil, err
	}
	if more {
		// The statement produced more than one result set: drain the
		// rest so the connection stays usable, then complain.
		if err := c.drainResults(); err != nil {
			return nil, err
		}
		return nil, usageErrorf("statement produced multiple result sets, use ExecuteFetchMulti")
	}
	return result, nil
}

// ExecuteFetchMulti is for fetching multiple results from a
// multi-statement result. It returns the first result and whether
// more results follow; use ReadQueryResult to read them.
func (c *Conn) ExecuteFetchMulti(query string, maxrows int, wantfields bool) (result *sqltypes.Result, more bool, err error) {
	defer func() {
		if err != nil {
			if sqlerr, ok := err.(*SQLError); ok {
				sqlerr.Query = query
			}
		}
	}()

	// Send the query as a COM_QUERY packet.
	if err = c.WriteComQuery(query); err != nil {
		return nil, false, err
	}

	res, more, _, err := c.ReadQueryResult(maxrows, wantfields)
	if err != nil {
		return nil, false, err
	}
	return res, more, err
}

// drainResults will read each of the remaining result sets from a
// multi-statement response and discard them.
func (c *Conn) drainResults() error {
	more := true
	for more {
		_, m, _, err := c.ReadQueryResult(FETCH_NO_ROWS, false)
		if err != nil {
			return err
		}
		more = m
	}
	return nil
}

// Ping checks the connection is still alive with a COM_PING round
// trip.
func (c *Conn) Ping() error {
	if err := c.writeComPing(); err != nil {
		return err
	}
	data, err := c.readEphemeralPacket()
	if err != nil {
		return NewSQLError(CRServerLost, SSNetError, "%v", err)
	}
	defer c.recycleReadPacket()
	switch data[0] {
	case OKPacket:
		return nil
	case ErrPacket:
		return ParseErrorPacket(data)
	}
	return framingErrorf("unexpected packet type for COM_PING: %v", data[0])
}

// ExecuteUpdate runs a statement that returns no rows and reports how
// many it touched.
func (c *Conn) ExecuteUpdate(query string) (uint64, error) {
	result, err := c.ExecuteFetch(query, 0, false)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}

// ExecuteUpdateReturningKeys runs an update statement and returns a
// synthetic result set describing the keys the server generated for
// it: a single GENERATED_KEY uint64 column, one row per affected row,
// counting up from the OK packet's last-insert-id. Statements that
// generate no keys yield an empty result set with the affected-row
// count preserved.
func (c *Conn) ExecuteUpdateReturningKeys(query string) (*sqltypes.Result, error) {
	result, err := c.ExecuteFetch(query, 0, false)
	if err != nil {
		return nil, err
	}

	keys := &sqltypes.Result{
		RowsAffected: result.RowsAffected,
		InsertID:     result.InsertID,
		StatusFlags:  result.StatusFlags,
		Info:         result.Info,
		Fields: []*sqltypes.Field{{
			Name: GeneratedKeyName,
			Type: sqltypes.Uint64,
		}},
	}
	if result.InsertID != 0 {
		// Multi-row inserts get sequential ids starting at the
		// reported one.
		for i := uint64(0); i < result.RowsAffected; i++ {
			keys.Rows = append(keys.Rows, sqltypes.Row{sqltypes.NewUint64(result.InsertID + i)})
		}
	}
	return keys, nil
}

//
// Streaming queries.
//

// ExecuteStreamFetch starts a streaming query. Fetch returns the
// rows one at a time, and CloseResult drains whatever is left.
// Returns a SQLError.
func (c *Conn) ExecuteStreamFetch(query string) (err error) {
	defer func() {
		if err != nil {
			if sqlerr, ok := err.(*SQLError); ok {
				sqlerr.Query = query
			}
		}
	}()

	if c.fields != nil {
		return usageErrorf("streaming query already in progress")
	}

	// Send the query as a COM_QUERY packet.
	if err := c.WriteComQuery(query); err != nil {
		return err
	}

	// Get the result.
	_, colNumber, err := c.readComQueryResponse()
	if err != nil {
		return err
	}
	if colNumber == 0 {
		// OK packet, means no results. Save an empty Fields array.
		c.fields = make([]*sqltypes.Field, 0)
		return nil
	}

	// Read the fields, save them.
	fields := make([]sqltypes.Field, colNumber)
	fieldsPointers := make([]*sqltypes.Field, colNumber)

	// Read column headers. One packet per column.
	// Build the fields.
	for i := 0; i < colNumber; i++ {
		fieldsPointers[i] = &fields[i]
		if err := c.readColumnDefinition(fieldsPointers[i], i); err != nil {
			return err
		}
	}

	if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
		// EOF is only present here if it's not deprecated.
		data, err := c.readEphemeralPacket()
		if err != nil {
			return NewSQLError(CRServerLost, SSNetError, "%v", err)
		}
		if !isEOFPacket(data) {
			c.recycleReadPacket()
			return framingErrorf("unexpected packet after fields: %v", data)
		}
		c.recycleReadPacket()
	}

	c.fields = fieldsPointers
	return nil
}

// Fields returns the fields for an ongoing streaming query.
func (c *Conn) Fields() ([]*sqltypes.Field, error) {
	if c.fields == nil {
		return nil, usageErrorf("no streaming query in progress")
	}
	if len(c.fields) == 0 {
		// The query returned an empty field list.
		return nil, nil
	}
	return c.fields, nil
}

// FetchNext returns the next result for an ongoing streaming query.
// It returns (nil, nil) if there is nothing more to read.
func (c *Conn) FetchNext() ([]sqltypes.Value, error) {
	if c.fields == nil {
		// We are already done, and the result was closed.
		return nil, usageErrorf("no streaming query in progress")
	}

	if len(c.fields) == 0 {
		// We received no fields, so there is no data.
		return nil, nil
	}

	data, err := c.readEphemeralPacket()
	if err != nil {
		return nil, err
	}

	if isEOFPacket(data) {
		// Statement went through, no more rows. Record the status
		// flags for session tracking.
		if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
			statusFlags, _, _ := readUint16(data, 3)
			c.StatusFlags = statusFlags
		} else if packetEOF, err := parsePacketOK(data); err == nil {
			c.StatusFlags = packetEOF.statusFlags
		}
		c.recycleReadPacket()
		c.fields = nil
		return nil, nil
	} else if data[0] == ErrPacket {
		// Error packet.
		err := ParseErrorPacket(data)
		c.recycleReadPacket()
		c.fields = nil
		return nil, err
	}

	// Regular row. The ephemeral buffer is recycled, copy out.
	row, err := parseRow(data, c.fields, readLenEncStringAsBytesCopy, nil)
	c.recycleReadPacket()
	return row, err
}

// CloseResult can be used to terminate a streaming query early. It
// just drains the remaining values.
func (c *Conn) CloseResult() {
	for c.fields != nil {
		rows, err := c.FetchNext()
		if err != nil || rows == nil {
			// We either got an error, or we're done.
			c.fields = nil
			return
		}
	}
}
