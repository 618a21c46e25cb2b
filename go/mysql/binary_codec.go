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
	"fmt"
	"math"
	"strconv"

	"mywire.io/mywire/go/sqltypes"
)

// MySQL wire type codes, as they appear in column definitions and in
// the COM_STMT_EXECUTE parameter block.
const (
	typeDecimal    = 0
	typeTiny       = 1
	typeShort      = 2
	typeLong       = 3
	typeFloat      = 4
	typeDouble     = 5
	typeNull       = 6
	typeTimestamp  = 7
	typeLongLong   = 8
	typeInt24      = 9
	typeDate       = 10
	typeTime       = 11
	typeDatetime   = 12
	typeYear       = 13
	typeNewDate    = 14
	typeVarchar    = 15
	typeBit        = 16
	typeJSON       = 245
	typeNewDecimal = 246
	typeEnum       = 247
	typeSet        = 248
	typeTinyBlob   = 249
	typeMediumBlob = 250
	typeLongBlob   = 251
	typeBlob       = 252
	typeVarString  = 253
	typeString     = 254
	typeGeometry   = 255
)

// unsignedParamFlag is the high byte of the 2-byte parameter type
// field marking an unsigned value.
const unsignedParamFlag = 0x80

// binaryParamType returns the 2-byte parameter type for a value.
// Parameters travel in their widest representation: longlong for
// integers, double for floats, a length-encoded string for everything
// else.
func binaryParamType(v sqltypes.Value) (typ byte, flags byte) {
	switch {
	case v.IsNull():
		return typeNull, 0
	case v.IsSigned():
		return typeLongLong, 0
	case v.IsUnsigned():
		return typeLongLong, unsignedParamFlag
	case v.IsFloat():
		return typeDouble, 0
	default:
		return typeVarString, 0
	}
}

// binaryEncodedLength returns the number of bytes the value occupies
// in the COM_STMT_EXECUTE value block.
func binaryEncodedLength(v sqltypes.Value) (int, error) {
	switch {
	case v.IsNull():
		return 0, nil
	case v.IsSigned(), v.IsUnsigned(), v.IsFloat():
		return 8, nil
	default:
		return lenEncStringSize(v.RawStr()), nil
	}
}

// writeBinaryValue encodes one non-NULL parameter value.
func writeBinaryValue(data []byte, pos int, v sqltypes.Value) (int, error) {
	switch {
	case v.IsSigned():
		i, err := v.ToInt64()
		if err != nil {
			return 0, err
		}
		return writeUint64(data, pos, uint64(i)), nil
	case v.IsUnsigned():
		u, err := v.ToUint64()
		if err != nil {
			return 0, err
		}
		return writeUint64(data, pos, u), nil
	case v.IsFloat():
		f, err := v.ToFloat64()
		if err != nil {
			return 0, err
		}
		return writeUint64(data, pos, math.Float64bits(f)), nil
	default:
		return writeLenEncString(data, pos, v.RawStr()), nil
	}
}

// parseBinaryRow decodes one binary-protocol result row: a 0x00
// header, a null bitmap with its two-bit offset, then one
// type-dependent value per non-NULL column. Values come out in their
// canonical text form, tagged with the column's semantic type.
func parseBinaryRow(data []byte, fields []*sqltypes.Field) (sqltypes.Row, error) {
	if len(data) == 0 || data[0] != OKPacket {
		return nil, framingErrorf("invalid binary row header: %v", data)
	}
	colCount := len(fields)
	pos := 1

	nullBitmapLen := (colCount + 7 + 2) / 8
	if len(data) < pos+nullBitmapLen {
		return nil, framingErrorf("binary row too short for null bitmap")
	}
	nullBitmap := data[pos : pos+nullBitmapLen]
	pos += nullBitmapLen

	row := make(sqltypes.Row, 0, colCount)
	for i, field := range fields {
		// Bit offset 2: the first two bits are reserved.
		byteIdx := (i + 2) / 8
		bitMask := byte(1 << (uint(i+2) & 7))
		if nullBitmap[byteIdx]&bitMask != 0 {
			row = append(row, sqltypes.NULL)
			continue
		}

		var val sqltypes.Value
		var err error
		val, pos, err = parseBinaryValue(data, pos, field)
		if err != nil {
			return nil, err
		}
		row = append(row, val)
	}
	return row, nil
}

// parseBinaryValue decodes a single binary-protocol value for the
// given column.
func parseBinaryValue(data []byte, pos int, field *sqltypes.Field) (sqltypes.Value, int, error) {
	mysqlType, _ := sqltypes.TypeToMySQL(field.Type)
	unsigned := sqltypes.IsUnsigned(field.Type)

	switch mysqlType {
	case typeTiny:
		v, newPos, ok := readByte(data, pos)
		if !ok {
			return sqltypes.NULL, 0, truncatedColumn(field)
		}
		if unsigned {
			return numericValue(field, strconv.AppendUint(nil, uint64(v), 10)), newPos, nil
		}
		return numericValue(field, strconv.AppendInt(nil, int64(int8(v)), 10)), newPos, nil

	case typeShort, typeYear:
		v, newPos, ok := readUint16(data, pos)
		if !ok {
			return sqltypes.NULL, 0, truncatedColumn(field)
		}
		if unsigned || mysqlType == typeYear {
			return numericValue(field, strconv.AppendUint(nil, uint64(v), 10)), newPos, nil
		}
		return numericValue(field, strconv.AppendInt(nil, int64(int16(v)), 10)), newPos, nil

	case typeInt24, typeLong:
		v, newPos, ok := readUint32(data, pos)
		if !ok {
			return sqltypes.NULL, 0, truncatedColumn(field)
		}
		if unsigned {
			return numericValue(field, strconv.AppendUint(nil, uint64(v), 10)), newPos, nil
		}
		return numericValue(field, strconv.AppendInt(nil, int64(int32(v)), 10)), newPos, nil

	case typeLongLong:
		v, newPos, ok := readUint64(data, pos)
		if !ok {
			return sqltypes.NULL, 0, truncatedColumn(field)
		}
		if unsigned {
			return numericValue(field, strconv.AppendUint(nil, v, 10)), newPos, nil
		}
		return numericValue(field, strconv.AppendInt(nil, int64(v), 10)), newPos, nil

	case typeFloat:
		v, newPos, ok := readUint32(data, pos)
		if !ok {
			return sqltypes.NULL, 0, truncatedColumn(field)
		}
		f := math.Float32frombits(v)
		return numericValue(field, strconv.AppendFloat(nil, float64(f), 'g', -1, 32)), newPos, nil

	case typeDouble:
		v, newPos, ok := readUint64(data, pos)
		if !ok {
			return sqltypes.NULL, 0, truncatedColumn(field)
		}
		f := math.Float64frombits(v)
		return numericValue(field, strconv.AppendFloat(nil, f, 'g', -1, 64)), newPos, nil

	case typeDate, typeNewDate, typeDatetime, typeTimestamp:
		return parseBinaryTimestamp(data, pos, field, mysqlType == typeDate || mysqlType == typeNewDate)

	case typeTime:
		return parseBinaryTime(data, pos, field)

	case typeDecimal, typeNewDecimal, typeVarchar, typeBit, typeEnum,
		typeSet, typeTinyBlob, typeMediumBlob, typeLongBlob, typeBlob,
		typeVarString, typeString, typeGeometry, typeJSON:
		s, newPos, ok := readLenEncStringAsBytesCopy(data, pos)
		if !ok {
			return sqltypes.NULL, 0, truncatedColumn(field)
		}
		return valueForField(field, s), newPos, nil

	default:
		return sqltypes.NULL, 0, framingErrorf("unsupported binary column type %v for column %v", mysqlType, field.Name)
	}
}

// parseBinaryTimestamp decodes the packed date/datetime format:
// a length byte (0, 4, 7 or 11) followed by that many bytes.
func parseBinaryTimestamp(data []byte, pos int, field *sqltypes.Field, dateOnly bool) (sqltypes.Value, int, error) {
	size, pos, ok := readByte(data, pos)
	if !ok {
		return sqltypes.NULL, 0, truncatedColumn(field)
	}
	if size == 0 {
		if dateOnly {
			return sqltypes.MakeTrusted(field.Type, []byte("0000-00-00")), pos, nil
		}
		return sqltypes.MakeTrusted(field.Type, []byte("0000-00-00 00:00:00")), pos, nil
	}
	if size != 4 && size != 7 && size != 11 {
		return sqltypes.NULL, 0, framingErrorf("invalid datetime length %v for column %v", size, field.Name)
	}
	if len(data) < pos+int(size) {
		return sqltypes.NULL, 0, truncatedColumn(field)
	}

	year := uint16(data[pos]) | uint16(data[pos+1])<<8
	month, day := data[pos+2], data[pos+3]
	var hour, minute, second byte
	var micros uint32
	if size >= 7 {
		hour, minute, second = data[pos+4], data[pos+5], data[pos+6]
	}
	if size >= 11 {
		micros = uint32(data[pos+7]) | uint32(data[pos+8])<<8 | uint32(data[pos+9])<<16 | uint32(data[pos+10])<<24
	}
	pos += int(size)

	var out string
	switch {
	case dateOnly:
		out = fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	case micros > 0:
		out = fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d", year, month, day, hour, minute, second, micros)
	default:
		out = fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", year, month, day, hour, minute, second)
	}
	return sqltypes.MakeTrusted(field.Type, []byte(out)), pos, nil
}

// parseBinaryTime decodes the packed time format: a length byte
// (0, 8 or 12), a sign byte, days, and h/m/s plus microseconds.
func parseBinaryTime(data []byte, pos int, field *sqltypes.Field) (sqltypes.Value, int, error) {
	size, pos, ok := readByte(data, pos)
	if !ok {
		return sqltypes.NULL, 0, truncatedColumn(field)
	}
	if size == 0 {
		return sqltypes.MakeTrusted(field.Type, []byte("00:00:00")), pos, nil
	}
	if size != 8 && size != 12 {
		return sqltypes.NULL, 0, framingErrorf("invalid time length %v for column %v", size, field.Name)
	}
	if len(data) < pos+int(size) {
		return sqltypes.NULL, 0, truncatedColumn(field)
	}

	sign := ""
	if data[pos] == 1 {
		sign = "-"
	}
	days := uint32(data[pos+1]) | uint32(data[pos+2])<<8 | uint32(data[pos+3])<<16 | uint32(data[pos+4])<<24
	hour := uint32(data[pos+5]) + days*24
	minute, second := data[pos+6], data[pos+7]
	var micros uint32
	if size >= 12 {
		micros = uint32(data[pos+8]) | uint32(data[pos+9])<<8 | uint32(data[pos+10])<<16 | uint32(data[pos+11])<<24
	}
	pos += int(size)

	var out string
	if micros > 0 {
		out = fmt.Sprintf("%s%02d:%02d:%02d.%06d", sign, hour, minute, second, micros)
	} else {
		out = fmt.Sprintf("%s%02d:%02d:%02d", sign, hour, minute, second)
	}
	return sqltypes.MakeTrusted(field.Type, []byte(out)), pos, nil
}

func numericValue(field *sqltypes.Field, b []byte) sqltypes.Value {
	return sqltypes.MakeTrusted(field.Type, b)
}

func truncatedColumn(field *sqltypes.Field) error {
	return framingErrorf("binary row truncated in column %v", field.Name)
}
