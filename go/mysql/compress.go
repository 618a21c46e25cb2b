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
	"io"

	"github.com/klauspost/compress/zstd"
)

// The compressed protocol wraps the regular packet stream in
// envelopes of the form:
//
//	3 bytes  length of the (possibly compressed) payload
//	1 byte   compressed sequence number
//	3 bytes  length of the payload before compression, 0 when the
//	         payload travels uncompressed
//
// Envelope boundaries are independent of packet boundaries: the
// uncompressed payloads concatenate back into the plain packet
// stream.

// minCompressLength is the threshold under which payloads are sent
// uncompressed inside the envelope, matching the server behavior.
const minCompressLength = 50

var (
	// Stateless encoder/decoder, safe for concurrent EncodeAll /
	// DecodeAll use across connections.
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// compressedWriter wraps the raw connection and emits one envelope
// per Write call.
type compressedWriter struct {
	w        io.Writer
	sequence uint8
}

func newCompressedWriter(w io.Writer) *compressedWriter {
	return &compressedWriter{w: w}
}

func (cw *compressedWriter) Write(p []byte) (int, error) {
	payload := p
	uncompressedLength := len(p)
	if uncompressedLength < minCompressLength {
		// Travels as-is, flagged by a zero uncompressed length.
		uncompressedLength = 0
	} else {
		payload = zstdEncoder.EncodeAll(p, nil)
	}

	var header [7]byte
	header[0] = byte(len(payload))
	header[1] = byte(len(payload) >> 8)
	header[2] = byte(len(payload) >> 16)
	header[3] = cw.sequence
	header[4] = byte(uncompressedLength)
	header[5] = byte(uncompressedLength >> 8)
	header[6] = byte(uncompressedLength >> 16)
	cw.sequence++

	if _, err := cw.w.Write(header[:]); err != nil {
		return 0, fmt.Errorf("Write(compressed header) failed: %v", err)
	}
	if _, err := cw.w.Write(payload); err != nil {
		return 0, fmt.Errorf("Write(compressed payload) failed: %v", err)
	}
	return len(p), nil
}

// compressedReader unwraps envelopes back into the plain packet
// stream.
type compressedReader struct {
	r        io.Reader
	sequence uint8

	// remainder is decompressed payload not yet consumed.
	remainder []byte
}

func newCompressedReader(r io.Reader) *compressedReader {
	return &compressedReader{r: r}
}

func (cr *compressedReader) Read(p []byte) (int, error) {
	if len(cr.remainder) == 0 {
		if err := cr.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, cr.remainder)
	cr.remainder = cr.remainder[n:]
	return n, nil
}

func (cr *compressedReader) fill() error {
	var header [7]byte
	if _, err := io.ReadFull(cr.r, header[:]); err != nil {
		return err
	}
	payloadLength := int(header[0]) | int(header[1])<<8 | int(header[2])<<16
	sequence := header[3]
	uncompressedLength := int(header[4]) | int(header[5])<<8 | int(header[6])<<16

	if sequence != cr.sequence {
		return framingErrorf("invalid compressed sequence, expected %v got %v", cr.sequence, sequence)
	}
	cr.sequence++

	payload := make([]byte, payloadLength)
	if _, err := io.ReadFull(cr.r, payload); err != nil {
		return fmt.Errorf("io.ReadFull(compressed payload of length %v) failed: %v", payloadLength, err)
	}

	if uncompressedLength == 0 {
		cr.remainder = payload
		return nil
	}

	plain, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, uncompressedLength))
	if err != nil {
		return framingErrorf("zstd decompression failed: %v", err)
	}
	if len(plain) != uncompressedLength {
		return framingErrorf("compressed envelope announced %v plain bytes, got %v", uncompressedLength, len(plain))
	}
	cr.remainder = plain
	return nil
}

// enableCompression switches the connection to the compressed
// protocol. Called once, after the handshake concludes.
func (c *Conn) enableCompression() {
	c.compressor = newCompressedWriter(c.conn)
	c.decompressor = newCompressedReader(c.conn)
	c.bufferedReader.Reset(c.decompressor)
}

// resetSequence starts a new command: both the packet sequence and
// the compressed envelope sequences restart at zero.
func (c *Conn) resetSequence() {
	c.sequence = 0
	if c.compressor != nil {
		c.compressor.sequence = 0
	}
	if c.decompressor != nil {
		c.decompressor.sequence = 0
	}
}
