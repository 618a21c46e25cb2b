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

// Field describes a single column of a result set: its name, semantic
// type and the metadata from the column-definition packet.
type Field struct {
	Name         string
	Type         Type
	Table        string
	OrgTable     string
	Database     string
	OrgName      string
	ColumnLength uint32
	Charset      uint32
	Decimals     uint32
	Flags        uint32
}

// Equal compares two fields member by member.
func (f *Field) Equal(other *Field) bool {
	if f == nil || other == nil {
		return f == other
	}
	return *f == *other
}

// Row is one row of values positionally matching the result's fields.
type Row = []Value

// Result represents a query result.
type Result struct {
	Fields              []*Field
	RowsAffected        uint64
	InsertID            uint64
	StatusFlags         uint16
	Info                string
	SessionStateChanges string
	Rows                []Row
}

// Repair fixes the type info in the rows to conform to the supplied
// field types.
func (result *Result) Repair(fields []*Field) {
	// Usage of j is intentional.
	for j, f := range fields {
		for _, r := range result.Rows {
			if r[j].typ != Null {
				r[j].typ = f.Type
			}
		}
	}
}

// Copy creates a deep copy of Result.
func (result *Result) Copy() *Result {
	out := &Result{
		RowsAffected:        result.RowsAffected,
		InsertID:            result.InsertID,
		StatusFlags:         result.StatusFlags,
		Info:                result.Info,
		SessionStateChanges: result.SessionStateChanges,
	}
	if result.Fields != nil {
		out.Fields = make([]*Field, len(result.Fields))
		for i, f := range result.Fields {
			cp := *f
			out.Fields[i] = &cp
		}
	}
	if result.Rows != nil {
		out.Rows = make([]Row, 0, len(result.Rows))
		for _, r := range result.Rows {
			out.Rows = append(out.Rows, CopyRow(r))
		}
	}
	return out
}

// CopyRow makes a copy of the row.
func CopyRow(r Row) Row {
	// The raw bytes of the values are supposed to be treated as read-only.
	// So, there's no need to copy them.
	newRow := make(Row, len(r))
	copy(newRow, r)
	return newRow
}

// Equal compares the Result with another one.
// recursively checks all the fields.
func (result *Result) Equal(other *Result) bool {
	// Check for nil cases
	if result == nil {
		return other == nil
	}
	if other == nil {
		return false
	}

	if len(result.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range result.Fields {
		if !f.Equal(other.Fields[i]) {
			return false
		}
	}
	if result.RowsAffected != other.RowsAffected ||
		result.InsertID != other.InsertID ||
		result.StatusFlags != other.StatusFlags ||
		result.Info != other.Info ||
		result.SessionStateChanges != other.SessionStateChanges {
		return false
	}
	if len(result.Rows) != len(other.Rows) {
		return false
	}
	for i, r := range result.Rows {
		if len(r) != len(other.Rows[i]) {
			return false
		}
		for j, v := range r {
			if !v.Equal(other.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// AppendResult will combine the Results Objects of one result
// to another result. Useful for batch queries which are split into
// multiple responses.
func (result *Result) AppendResult(src *Result) {
	if src.RowsAffected == 0 && len(src.Rows) == 0 && len(src.Fields) == 0 {
		return
	}
	if result.Fields == nil {
		result.Fields = src.Fields
	}
	result.RowsAffected += src.RowsAffected
	if src.InsertID != 0 {
		result.InsertID = src.InsertID
	}
	result.Rows = append(result.Rows, src.Rows...)
}

// Named returns a NamedResult based on this result.
func (result *Result) Named() *NamedResult {
	return ToNamedResult(result)
}
