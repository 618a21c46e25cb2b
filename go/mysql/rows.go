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

// Rows is a cursor over a streaming query. It owns the connection's
// streaming state until it is exhausted or closed: only one Rows can
// be open per connection at a time.
//
// Usage follows database/sql conventions:
//
//	rows, err := conn.Query("select ...")
//	for rows.Next() {
//		v, _ := rows.Value(0)
//	}
//	err = rows.Err()
type Rows struct {
	conn    *Conn
	fields  []*sqltypes.Field
	byName  map[string]int
	current sqltypes.Row
	started bool
	done    bool
	err     error
}

// Query starts a streaming query and returns a cursor over its rows.
func (c *Conn) Query(query string) (*Rows, error) {
	if err := c.ExecuteStreamFetch(query); err != nil {
		return nil, err
	}
	return &Rows{
		conn:   c,
		fields: c.fields,
	}, nil
}

// Next advances to the next row. It returns false at the end of the
// result set or on error; check Err afterwards to tell which.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	r.started = true
	row, err := r.conn.FetchNext()
	if err != nil {
		r.err = err
		r.done = true
		r.current = nil
		return false
	}
	if row == nil {
		r.done = true
		r.current = nil
		return false
	}
	r.current = row
	return true
}

// Err returns the error that terminated iteration, if any.
func (r *Rows) Err() error {
	return r.err
}

// Fields returns the column definitions of the result set.
func (r *Rows) Fields() []*sqltypes.Field {
	return r.fields
}

// Value returns the i-th column of the current row. Calling it before
// the first Next, after exhaustion, or with an index out of range is
// a usage error.
func (r *Rows) Value(i int) (sqltypes.Value, error) {
	if r.current == nil {
		if !r.started {
			return sqltypes.NULL, usageErrorf("Value called before Next")
		}
		return sqltypes.NULL, usageErrorf("Value called after the last row")
	}
	if i < 0 || i >= len(r.current) {
		return sqltypes.NULL, usageErrorf("column index %v out of range (%v columns)", i, len(r.current))
	}
	return r.current[i], nil
}

// NamedValue returns the column with the given name from the current
// row. The cursor position rules of Value apply.
func (r *Rows) NamedValue(name string) (sqltypes.Value, error) {
	if r.byName == nil {
		r.byName = make(map[string]int, len(r.fields))
		for i, f := range r.fields {
			r.byName[f.Name] = i
		}
	}
	i, ok := r.byName[name]
	if !ok {
		return sqltypes.NULL, usageErrorf("no column named %q", name)
	}
	return r.Value(i)
}

// Int64 converts the i-th column of the current row to an int64. A
// conversion failure names the column and leaves the cursor usable.
func (r *Rows) Int64(i int) (int64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	n, err := v.ToInt64()
	if err != nil {
		return 0, columnConversionError(r.fields[i].Name, err)
	}
	return n, nil
}

// Uint64 converts the i-th column of the current row to a uint64.
func (r *Rows) Uint64(i int) (uint64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	n, err := v.ToUint64()
	if err != nil {
		return 0, columnConversionError(r.fields[i].Name, err)
	}
	return n, nil
}

// Float64 converts the i-th column of the current row to a float64.
func (r *Rows) Float64(i int) (float64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	f, err := v.ToFloat64()
	if err != nil {
		return 0, columnConversionError(r.fields[i].Name, err)
	}
	return f, nil
}

// Close drains the remaining rows so the connection can be reused.
// It is safe to call any number of times.
func (r *Rows) Close() error {
	if !r.done {
		r.conn.CloseResult()
		r.done = true
		r.current = nil
	}
	return r.err
}
