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
	"bufio"
	"io"
	"sync"
)

// pooledWriter borrows a *bufio.Writer from a shared pool on the first
// Write and returns it on Flush. Conn.flush runs when a buffered write
// section ends, so the writer goes back to the pool after every command
// that used one.
var writersPool = sync.Pool{New: func() any { return bufio.NewWriterSize(nil, connBufferSize) }}

type bufioWriter interface {
	Write([]byte) (int, error)
	Reset(io.Writer)
	Flush() error
}

type pooledWriter struct {
	w  io.Writer
	bw *bufio.Writer
}

func newWriter(w io.Writer) bufioWriter {
	return &pooledWriter{w: w}
}

func (pw *pooledWriter) get() {
	if pw.bw != nil {
		return
	}
	pw.bw = writersPool.Get().(*bufio.Writer)
	pw.bw.Reset(pw.w)
}

func (pw *pooledWriter) put() {
	if pw.bw == nil {
		return
	}
	// Drop the underlying writer reference before pooling.
	pw.bw.Reset(nil)
	writersPool.Put(pw.bw)
	pw.bw = nil
}

func (pw *pooledWriter) Write(b []byte) (int, error) {
	pw.get()
	return pw.bw.Write(b)
}

func (pw *pooledWriter) Reset(w io.Writer) {
	pw.put()
	pw.w = w
}

func (pw *pooledWriter) Flush() error {
	if pw.bw == nil {
		return nil
	}
	err := pw.bw.Flush()
	pw.put()
	return err
}
