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

// Package sqltypes implements interfaces and types that represent SQL
// values as they travel on the wire.
package sqltypes

import (
	"fmt"
	"strconv"
)

var (
	// NULL represents the NULL value.
	NULL = Value{}
)

// Value can store any SQL value. If the value represents an integral
// type, the bytes are always stored as a canonical representation that
// matches how MySQL returns such values.
type Value struct {
	typ Type
	val []byte
}

// ConversionError is returned by the To* accessors when the stored type
// cannot produce the requested type.
type ConversionError struct {
	Requested Type
	Actual    Type
}

func (e ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %v value to %v", e.Actual, e.Requested)
}

// NewValue builds a Value from a type and a byte representation, after
// validating that the bytes parse as the type claims.
func NewValue(typ Type, val []byte) (v Value, err error) {
	switch {
	case IsSigned(typ):
		if _, err := strconv.ParseInt(string(val), 10, 64); err != nil {
			return NULL, err
		}
		return MakeTrusted(typ, val), nil
	case IsUnsigned(typ):
		if _, err := strconv.ParseUint(string(val), 10, 64); err != nil {
			return NULL, err
		}
		return MakeTrusted(typ, val), nil
	case IsFloat(typ) || typ == Decimal:
		if _, err := strconv.ParseFloat(string(val), 64); err != nil {
			return NULL, err
		}
		return MakeTrusted(typ, val), nil
	case IsQuoted(typ) || typ == Bit || typ == Null:
		return MakeTrusted(typ, val), nil
	}
	// All other types are unsafe or invalid.
	return NULL, fmt.Errorf("invalid type specified for MakeValue: %v", typ)
}

// MakeTrusted makes a new Value based on the type.
// This function should only be used if you know the value
// and type conform to the rules. Every place this function is
// called, a comment is needed that explains why it's justified.
// Exceptions: The current package and mysql package do not need
// comments. Other packages can also use the function to create
// VarBinary or VarChar values.
func MakeTrusted(typ Type, val []byte) Value {
	if typ == Null {
		return NULL
	}
	return Value{typ: typ, val: val}
}

// NewInt64 builds an Int64 Value.
func NewInt64(v int64) Value {
	return MakeTrusted(Int64, strconv.AppendInt(nil, v, 10))
}

// NewInt32 builds an Int32 Value.
func NewInt32(v int32) Value {
	return MakeTrusted(Int32, strconv.AppendInt(nil, int64(v), 10))
}

// NewUint64 builds an Uint64 Value.
func NewUint64(v uint64) Value {
	return MakeTrusted(Uint64, strconv.AppendUint(nil, v, 10))
}

// NewUint32 builds an Uint32 Value.
func NewUint32(v uint32) Value {
	return MakeTrusted(Uint32, strconv.AppendUint(nil, uint64(v), 10))
}

// NewFloat64 builds a Float64 Value.
func NewFloat64(v float64) Value {
	format := byte('g')
	if v >= 1e15 || (v != 0 && v <= 1e-15) {
		format = 'e'
	}
	return MakeTrusted(Float64, strconv.AppendFloat(nil, v, format, -1, 64))
}

// NewVarChar builds a VarChar Value.
func NewVarChar(v string) Value {
	return MakeTrusted(VarChar, []byte(v))
}

// NewVarBinary builds a VarBinary Value.
// The input is a string because it's the most common use case.
func NewVarBinary(v string) Value {
	return MakeTrusted(VarBinary, []byte(v))
}

// Type returns the type of Value.
func (v Value) Type() Type {
	return v.typ
}

// Raw returns the internal representation of the value. For newer types,
// this may not match MySQL's representation.
func (v Value) Raw() []byte {
	return v.val
}

// RawStr returns the internal representation of the value as a string
// instead of a byte slice.
func (v Value) RawStr() string {
	return string(v.val)
}

// ToString returns the value as MySQL would return it as string.
// If the value is not convertible like in the case of Expression, it returns nil.
func (v Value) ToString() string {
	if v.typ == Expression {
		return ""
	}
	return string(v.val)
}

// ToBytes returns the value as MySQL would return it as []byte.
func (v Value) ToBytes() ([]byte, error) {
	if v.typ == Expression {
		return nil, ConversionError{Requested: VarBinary, Actual: v.typ}
	}
	return v.val, nil
}

// ToInt64 returns the value as MySQL would return it as a int64.
func (v Value) ToInt64() (int64, error) {
	if !v.IsIntegral() {
		return 0, ConversionError{Requested: Int64, Actual: v.typ}
	}
	return strconv.ParseInt(v.ToString(), 10, 64)
}

// ToUint64 returns the value as MySQL would return it as a uint64.
func (v Value) ToUint64() (uint64, error) {
	if !v.IsIntegral() {
		return 0, ConversionError{Requested: Uint64, Actual: v.typ}
	}
	return strconv.ParseUint(v.ToString(), 10, 64)
}

// ToFloat64 returns the value as MySQL would return it as a float64.
func (v Value) ToFloat64() (float64, error) {
	if !IsNumber(v.typ) {
		return 0, ConversionError{Requested: Float64, Actual: v.typ}
	}
	return strconv.ParseFloat(v.ToString(), 64)
}

// ToBool returns the value as a bool value. An integral value counts as
// true when nonzero.
func (v Value) ToBool() (bool, error) {
	if v.typ == Bit && len(v.val) > 0 {
		for _, b := range v.val {
			if b != 0 {
				return true, nil
			}
		}
		return false, nil
	}
	i, err := v.ToInt64()
	if err != nil {
		return false, err
	}
	return i != 0, nil
}

// IsNull returns true if Value is null.
func (v Value) IsNull() bool {
	return v.typ == Null
}

// IsIntegral returns true if Value is an integral.
func (v Value) IsIntegral() bool {
	return IsIntegral(v.typ)
}

// IsSigned returns true if Value is a signed integral.
func (v Value) IsSigned() bool {
	return IsSigned(v.typ)
}

// IsUnsigned returns true if Value is an unsigned integral.
func (v Value) IsUnsigned() bool {
	return IsUnsigned(v.typ)
}

// IsFloat returns true if Value is a float.
func (v Value) IsFloat() bool {
	return IsFloat(v.typ)
}

// IsQuoted returns true if Value must be SQL-quoted.
func (v Value) IsQuoted() bool {
	return IsQuoted(v.typ)
}

// IsText returns true if Value is a collatable text type.
func (v Value) IsText() bool {
	return IsText(v.typ)
}

// IsBinary returns true if Value is binary.
func (v Value) IsBinary() bool {
	return IsBinary(v.typ)
}

// String returns a printable version of the value.
func (v Value) String() string {
	if v.typ == Null {
		return "NULL"
	}
	if v.IsQuoted() || v.typ == Bit {
		return fmt.Sprintf("%v(%q)", v.typ, v.val)
	}
	return fmt.Sprintf("%v(%s)", v.typ, v.val)
}

// Equal compares values by type and raw bytes.
func (v Value) Equal(other Value) bool {
	return v.typ == other.typ && string(v.val) == string(other.val)
}
