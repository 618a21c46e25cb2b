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

// PreparedStatement is a server-side prepared statement, created with
// Conn.Prepare and executed over the binary protocol.
type PreparedStatement struct {
	conn *Conn

	// ID is the statement id assigned by the server.
	ID uint32

	// ParamCount is the number of ? placeholders in the statement.
	ParamCount uint16

	// Fields are the column definitions the server announced at
	// prepare time. May be empty for statements without a result set.
	Fields []*sqltypes.Field

	warnings uint16
	closed   bool
}

// Prepare sends a COM_STMT_PREPARE and parses the response: the
// statement id, parameter and column counts, and their metadata
// packets.
func (c *Conn) Prepare(query string) (*PreparedStatement, error) {
	c.resetSequence()
	data := c.startEphemeralPacket(len(query) + 1)
	data[0] = ComStmtPrepare
	copy(data[1:], query)
	if err := c.writeEphemeralPacket(); err != nil {
		return nil, NewSQLError(CRServerGone, SSNetError, "%v", err)
	}
	if err := c.flush(); err != nil {
		return nil, NewSQLError(CRServerGone, SSNetError, "%v", err)
	}

	// COM_STMT_PREPARE_OK
	resp, err := c.readEphemeralPacket()
	if err != nil {
		return nil, NewSQLError(CRServerLost, SSNetError, "%v", err)
	}
	if len(resp) == 0 {
		c.recycleReadPacket()
		return nil, framingErrorf("empty COM_STMT_PREPARE response")
	}
	if resp[0] == ErrPacket {
		defer c.recycleReadPacket()
		return nil, ParseErrorPacket(resp)
	}
	if resp[0] != OKPacket || len(resp) < 12 {
		c.recycleReadPacket()
		return nil, framingErrorf("invalid COM_STMT_PREPARE response: %v", resp)
	}

	stmt := &PreparedStatement{conn: c}
	pos := 1
	stmt.ID, pos, _ = readUint32(resp, pos)
	columnCount, pos, _ := readUint16(resp, pos)
	stmt.ParamCount, pos, _ = readUint16(resp, pos)
	// One byte filler.
	pos++
	stmt.warnings, _, _ = readUint16(resp, pos)
	c.recycleReadPacket()

	// Parameter metadata carries no useful type information from
	// real servers, skip the packets.
	if stmt.ParamCount > 0 {
		for i := uint16(0); i < stmt.ParamCount; i++ {
			if _, err := c.readEphemeralPacket(); err != nil {
				return nil, NewSQLError(CRServerLost, SSNetError, "%v", err)
			}
			c.recycleReadPacket()
		}
		if err := c.skipEOFIfPresent(); err != nil {
			return nil, err
		}
	}

	if columnCount > 0 {
		fields := make([]sqltypes.Field, columnCount)
		stmt.Fields = make([]*sqltypes.Field, columnCount)
		for i := uint16(0); i < columnCount; i++ {
			stmt.Fields[i] = &fields[i]
			if err := c.readColumnDefinition(stmt.Fields[i], int(i)); err != nil {
				return nil, err
			}
		}
		if err := c.skipEOFIfPresent(); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

// skipEOFIfPresent consumes the EOF packet that terminates a metadata
// block when the server does not speak DEPRECATE_EOF.
func (c *Conn) skipEOFIfPresent() error {
	if c.Capabilities&CapabilityClientDeprecateEOF != 0 {
		return nil
	}
	data, err := c.readEphemeralPacket()
	if err != nil {
		return NewSQLError(CRServerLost, SSNetError, "%v", err)
	}
	defer c.recycleReadPacket()
	if !isEOFPacket(data) {
		return framingErrorf("expected EOF after metadata, got: %v", data)
	}
	return nil
}

// Execute runs the prepared statement with the given parameter
// values over the binary protocol and reads the full result.
func (ps *PreparedStatement) Execute(args ...sqltypes.Value) (*sqltypes.Result, error) {
	return ps.ExecuteFetch(args, -1 /* unlimited */, true)
}

// ExecuteFetch runs the prepared statement bounding the number of
// returned rows, -1 meaning no bound.
func (ps *PreparedStatement) ExecuteFetch(args []sqltypes.Value, maxrows int, wantfields bool) (*sqltypes.Result, error) {
	c := ps.conn
	if ps.closed {
		return nil, usageErrorf("prepared statement %v already closed", ps.ID)
	}
	if len(args) != int(ps.ParamCount) {
		return nil, usageErrorf("statement expects %v parameters, got %v", ps.ParamCount, len(args))
	}

	if err := c.writeComStmtExecute(ps, args); err != nil {
		return nil, err
	}

	packetOK, colNumber, err := c.readComQueryResponse()
	if err != nil {
		return nil, err
	}
	if colNumber == 0 {
		c.StatusFlags = packetOK.statusFlags
		return &sqltypes.Result{
			RowsAffected:        packetOK.affectedRows,
			InsertID:            packetOK.lastInsertID,
			StatusFlags:         packetOK.statusFlags,
			Info:                packetOK.info,
			SessionStateChanges: packetOK.sessionStateData,
		}, nil
	}

	fields := make([]sqltypes.Field, colNumber)
	result := &sqltypes.Result{
		Fields: make([]*sqltypes.Field, colNumber),
	}
	for i := 0; i < colNumber; i++ {
		result.Fields[i] = &fields[i]
		if err := c.readColumnDefinition(result.Fields[i], i); err != nil {
			return nil, err
		}
	}
	if err := c.skipEOFIfPresent(); err != nil {
		return nil, err
	}

	// Binary protocol rows until EOF/OK terminator.
	for {
		data, err := c.readEphemeralPacket()
		if err != nil {
			return nil, NewSQLError(CRServerLost, SSNetError, "%v", err)
		}
		if isEOFPacket(data) {
			if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
				statusFlags, _, _ := readUint16(data, 3)
				result.StatusFlags = statusFlags
				c.StatusFlags = statusFlags
			} else if packetEOF, err := parsePacketOK(data); err == nil {
				result.StatusFlags = packetEOF.statusFlags
				result.SessionStateChanges = packetEOF.sessionStateData
				c.StatusFlags = packetEOF.statusFlags
			}
			c.recycleReadPacket()
			if !wantfields {
				result.Fields = nil
			}
			return result, nil
		}
		if data[0] == ErrPacket {
			err := ParseErrorPacket(data)
			c.recycleReadPacket()
			return nil, err
		}
		if maxrows >= 0 && len(result.Rows) == maxrows {
			c.recycleReadPacket()
			if err := c.drainMoreRows(); err != nil {
				return nil, err
			}
			return nil, usageErrorf("row count exceeded %d", maxrows)
		}
		row, err := parseBinaryRow(data, result.Fields)
		c.recycleReadPacket()
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
}

// Close releases the statement on the server with COM_STMT_CLOSE.
// The server sends no response.
func (ps *PreparedStatement) Close() error {
	if ps.closed {
		return nil
	}
	ps.closed = true
	c := ps.conn
	c.resetSequence()
	data := c.startEphemeralPacket(5)
	pos := writeByte(data, 0, ComStmtClose)
	writeUint32(data, pos, ps.ID)
	if err := c.writeEphemeralPacket(); err != nil {
		return NewSQLError(CRServerGone, SSNetError, "%v", err)
	}
	return c.flush()
}

// writeComStmtExecute builds and sends the COM_STMT_EXECUTE packet:
// statement id, cursor flags, null bitmap, new-params-bound flag,
// parameter types and values.
func (c *Conn) writeComStmtExecute(ps *PreparedStatement, args []sqltypes.Value) error {
	paramCount := len(args)

	length := 1 + // ComStmtExecute
		4 + // statement id
		1 + // cursor flags
		4 // iteration count
	if paramCount > 0 {
		length += (paramCount + 7) / 8 // null bitmap
		length++                       // new-params-bound flag
		length += paramCount * 2       // type codes
		for _, arg := range args {
			l, err := binaryEncodedLength(arg)
			if err != nil {
				return err
			}
			length += l
		}
	}

	c.resetSequence()
	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeByte(data, pos, ComStmtExecute)
	pos = writeUint32(data, pos, ps.ID)
	pos = writeByte(data, pos, 0) // CURSOR_TYPE_NO_CURSOR
	pos = writeUint32(data, pos, 1)

	if paramCount > 0 {
		nullBitmapPos := pos
		pos = writeZeroes(data, pos, (paramCount+7)/8)
		pos = writeByte(data, pos, 1) // new-params-bound

		for _, arg := range args {
			typ, flags := binaryParamType(arg)
			pos = writeByte(data, pos, byte(typ))
			pos = writeByte(data, pos, byte(flags))
		}
		for i, arg := range args {
			if arg.IsNull() {
				data[nullBitmapPos+i/8] |= 1 << (uint(i) & 7)
				continue
			}
			var err error
			pos, err = writeBinaryValue(data, pos, arg)
			if err != nil {
				return err
			}
		}
	}

	if pos != len(data) {
		return framingErrorf("writeComStmtExecute: only packed %v bytes, out of %v allocated", pos, len(data))
	}
	if err := c.writeEphemeralPacket(); err != nil {
		return NewSQLError(CRServerGone, SSNetError, "%v", err)
	}
	return c.flush()
}
