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

package sqltypes

import (
	"errors"
	"fmt"
)

// ErrNoSuchField is returned when a lookup on a named row fails because
// the result has no column with that name.
var ErrNoSuchField = errors.New("no such field in RowNamed")

// RowNamed containes non positional (name based) access to fields
type RowNamed map[string]Value

// NamedResult represents a query result with named access to rows and
// fields, unlike Result which is positional.
type NamedResult struct {
	Fields       []*Field
	RowsAffected uint64
	InsertID     uint64
	Rows         []RowNamed
}

// ToNamedResult converts a Result struct into a new NamedResult struct.
func ToNamedResult(result *Result) (r *NamedResult) {
	if result == nil {
		return r
	}
	r = &NamedResult{
		Fields:       result.Fields,
		RowsAffected: result.RowsAffected,
		InsertID:     result.InsertID,
	}
	columnOrdinals := make(map[int]string)
	for i, field := range result.Fields {
		columnOrdinals[i] = field.Name
	}
	r.Rows = make([]RowNamed, len(result.Rows))
	for rowIndex, row := range result.Rows {
		r.Rows[rowIndex] = make(RowNamed)
		for i, value := range row {
			r.Rows[rowIndex][columnOrdinals[i]] = value
		}
	}
	return r
}

// Row assumes this result has exactly one row, and returns it.
func (r *NamedResult) Row() RowNamed {
	if len(r.Rows) != 1 {
		return nil
	}
	return r.Rows[0]
}

// ToString returns the named field as string.
func (r RowNamed) ToString(fieldName string) (string, error) {
	value, ok := r[fieldName]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSuchField, fieldName)
	}
	return value.ToString(), nil
}

// AsString returns the named field as string, or default value if nonexistent/error.
func (r RowNamed) AsString(fieldName string, def string) string {
	if value, err := r.ToString(fieldName); err == nil {
		return value
	}
	return def
}

// ToInt64 returns the named field as int64.
func (r RowNamed) ToInt64(fieldName string) (int64, error) {
	value, ok := r[fieldName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchField, fieldName)
	}
	return value.ToInt64()
}

// AsInt64 returns the named field as int64, or default value if nonexistent/error.
func (r RowNamed) AsInt64(fieldName string, def int64) int64 {
	if value, err := r.ToInt64(fieldName); err == nil {
		return value
	}
	return def
}

// ToUint64 returns the named field as uint64.
func (r RowNamed) ToUint64(fieldName string) (uint64, error) {
	value, ok := r[fieldName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchField, fieldName)
	}
	return value.ToUint64()
}

// AsUint64 returns the named field as uint64, or default value if nonexistent/error.
func (r RowNamed) AsUint64(fieldName string, def uint64) uint64 {
	if value, err := r.ToUint64(fieldName); err == nil {
		return value
	}
	return def
}

// ToFloat64 returns the named field as float64.
func (r RowNamed) ToFloat64(fieldName string) (float64, error) {
	value, ok := r[fieldName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchField, fieldName)
	}
	return value.ToFloat64()
}

// AsFloat64 returns the named field as float64, or default value if nonexistent/error.
func (r RowNamed) AsFloat64(fieldName string, def float64) float64 {
	if value, err := r.ToFloat64(fieldName); err == nil {
		return value
	}
	return def
}

// ToBool returns the named field as bool.
func (r RowNamed) ToBool(fieldName string) (bool, error) {
	value, ok := r[fieldName]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNoSuchField, fieldName)
	}
	return value.ToBool()
}

// AsBool returns the named field as bool, or default value if nonexistent/error.
func (r RowNamed) AsBool(fieldName string, def bool) bool {
	if value, err := r.ToBool(fieldName); err == nil {
		return value
	}
	return def
}

// ToBytes returns the named field as a byte slice.
func (r RowNamed) ToBytes(fieldName string) ([]byte, error) {
	value, ok := r[fieldName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchField, fieldName)
	}
	return value.ToBytes()
}

// AsBytes returns the named field as a byte slice, or default value if nonexistent/error.
func (r RowNamed) AsBytes(fieldName string, def []byte) []byte {
	if value, err := r.ToBytes(fieldName); err == nil {
		return value
	}
	return def
}
