/*
Copyright 2024 The Vitess Authors.

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

// ParseResult converts a result set captured as raw packets into a
// sqltypes.Result. The capture layout is: one packet holding the
// length-encoded column count, one packet per column definition, one
// packet per text row, and a trailing EOF packet carrying warnings
// and status flags.
func ParseResult(rawPackets [][]byte, wantfields bool) (*sqltypes.Result, error) {
	if len(rawPackets) == 0 {
		return nil, framingErrorf("empty raw packet capture")
	}

	colcount, _, ok := readLenEncInt(rawPackets[0], 0)
	if !ok {
		return nil, framingErrorf("invalid column count packet: %v", rawPackets[0])
	}
	if uint64(len(rawPackets)) < colcount+1 {
		return nil, framingErrorf("raw packet capture truncated: %v columns announced, %v packets", colcount, len(rawPackets))
	}

	fieldArray := make([]sqltypes.Field, colcount)
	fieldPackets := rawPackets[1 : colcount+1]
	rowPackets := rawPackets[colcount+1:]

	result := &sqltypes.Result{
		Fields: make([]*sqltypes.Field, len(fieldPackets)),
		Rows:   make([]sqltypes.Row, 0, len(rowPackets)),
	}

	var err error
	for i, fieldpkt := range fieldPackets {
		result.Fields[i] = &fieldArray[i]
		if wantfields {
			err = parseColumnDefinition(fieldpkt, result.Fields[i], i)
		} else {
			err = parseColumnDefinitionType(fieldpkt, result.Fields[i], i)
		}
		if err != nil {
			return nil, err
		}
	}

	// The last packet is the terminating EOF, when the capture kept it.
	if n := len(rowPackets); n > 0 && isEOFPacket(rowPackets[n-1]) {
		warnings, _, err := parseEOFPacket(rowPackets[n-1])
		if err != nil {
			return nil, err
		}
		statusFlags, _, _ := readUint16(rowPackets[n-1], 3)
		result.StatusFlags = statusFlags
		_ = warnings
		rowPackets = rowPackets[:n-1]
	}

	for _, rowpkt := range rowPackets {
		r, err := parseRow(rowpkt, result.Fields, readLenEncStringAsBytes, nil)
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, r)
	}

	return result, nil
}

// parseColumnDefinition parses the next Column Definition packet and
// fills in the field.
func parseColumnDefinition(data []byte, field *sqltypes.Field, index int) error {
	pos := 0
	ok := false

	// Catalog is ignored, always set to "def"
	pos, ok = skipLenEncString(data, pos)
	if !ok {
		return framingErrorf("skipping col %v catalog failed", index)
	}

	// schema, table, orig table, name and org name are strings.
	field.Database, pos, ok = readLenEncString(data, pos)
	if !ok {
		return framingErrorf("extracting col %v schema failed", index)
	}
	field.Table, pos, ok = readLenEncString(data, pos)
	if !ok {
		return framingErrorf("extracting col %v table failed", index)
	}
	field.OrgTable, pos, ok = readLenEncString(data, pos)
	if !ok {
		return framingErrorf("extracting col %v org_table failed", index)
	}
	field.Name, pos, ok = readLenEncString(data, pos)
	if !ok {
		return framingErrorf("extracting col %v name failed", index)
	}
	field.OrgName, pos, ok = readLenEncString(data, pos)
	if !ok {
		return framingErrorf("extracting col %v org_name failed", index)
	}

	// Skip length of fixed-length fields, always 0x0c.
	pos++

	// characterSet is a uint16.
	characterSet, pos, ok := readUint16(data, pos)
	if !ok {
		return framingErrorf("extracting col %v characterSet failed", index)
	}
	field.Charset = uint32(characterSet)

	// columnLength is a uint32.
	field.ColumnLength, pos, ok = readUint32(data, pos)
	if !ok {
		return framingErrorf("extracting col %v columnLength failed", index)
	}

	// type is one byte.
	t, pos, ok := readByte(data, pos)
	if !ok {
		return framingErrorf("extracting col %v type failed", index)
	}

	// flags is 2 bytes.
	flags, pos, ok := readUint16(data, pos)
	if !ok {
		return framingErrorf("extracting col %v flags failed", index)
	}

	// Decimals is a byte.
	decimals, _, ok := readByte(data, pos)
	if !ok {
		return framingErrorf("extracting col %v decimals failed", index)
	}
	field.Decimals = uint32(decimals)

	// Convert MySQL type to sqltypes type.
	typ, err := sqltypes.MySQLToType(int64(t), int64(flags))
	if err != nil {
		return framingErrorf("MySQLToType(%v,%v) failed for column %v: %v", t, flags, index, err)
	}
	field.Type = typ

	// Legacy protocol flags.
	field.Flags = uint32(flags)

	return nil
}

// parseColumnDefinitionType parses just the type from the next
// Column Definition packet. It sets flags and type only and is used
// by callers that do not need field metadata.
func parseColumnDefinitionType(data []byte, field *sqltypes.Field, index int) error {
	pos := 0
	ok := false

	// catalog, schema, table, orig table, name and org name are
	// strings, all skipped.
	for i := 0; i < 6; i++ {
		pos, ok = skipLenEncString(data, pos)
		if !ok {
			return framingErrorf("skipping col %v metadata failed", index)
		}
	}

	// Skip length of fixed-length fields, always 0x0c.
	pos++

	// characterSet is a uint16.
	characterSet, pos, ok := readUint16(data, pos)
	if !ok {
		return framingErrorf("extracting col %v characterSet failed", index)
	}
	field.Charset = uint32(characterSet)

	// columnLength is a uint32, skipped.
	pos += 4

	// type is one byte
	t, pos, ok := readByte(data, pos)
	if !ok {
		return framingErrorf("extracting col %v type failed", index)
	}

	// flags is 2 bytes
	flags, _, ok := readUint16(data, pos)
	if !ok {
		return framingErrorf("extracting col %v flags failed", index)
	}

	// Convert MySQL type to sqltypes type.
	typ, err := sqltypes.MySQLToType(int64(t), int64(flags))
	if err != nil {
		return framingErrorf("MySQLToType(%v,%v) failed for column %v: %v", t, flags, index, err)
	}
	field.Type = typ

	field.Flags = uint32(flags)

	return nil
}

// parseRow parses one text-protocol row into sqltypes values. The
// string reader lets callers choose between aliasing the packet and
// copying out of it.
func parseRow(data []byte, fields []*sqltypes.Field, reader func([]byte, int) ([]byte, int, bool), result []sqltypes.Value) ([]sqltypes.Value, error) {
	colNumber := len(fields)
	if result == nil {
		result = make([]sqltypes.Value, 0, colNumber)
	}
	pos := 0
	for i := 0; i < colNumber; i++ {
		if pos >= len(data) {
			return nil, framingErrorf("row truncated at column %v", i)
		}
		if data[pos] == NullValue {
			pos++
			result = append(result, sqltypes.NULL)
			continue
		}
		var s []byte
		var ok bool
		s, pos, ok = reader(data, pos)
		if !ok {
			return nil, framingErrorf("decoding string failed for column %v", i)
		}
		result = append(result, valueForField(fields[i], s))
	}
	return result, nil
}

// valueForField builds the typed value for one column, transcoding
// legacy latin1 text on the way in.
func valueForField(field *sqltypes.Field, raw []byte) sqltypes.Value {
	if field.Charset == CharacterSetLatin1 && sqltypes.IsText(field.Type) {
		raw = latin1ToUTF8(raw)
	}
	return sqltypes.MakeTrusted(field.Type, raw)
}
