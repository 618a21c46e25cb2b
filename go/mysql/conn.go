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
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"mywire.io/mywire/go/bucketpool"
	"mywire.io/mywire/go/mw/log"
	"mywire.io/mywire/go/sqltypes"
)

const (
	// connBufferSize is how much we buffer for reading and writing.
	// The longer the buffer, the fewer system calls we make.
	connBufferSize = 16 * 1024
)

// Constants for how ephemeral buffers were used for reading and
// writing packets.
const (
	// ephemeralUnused means the ephemeral buffer is not in use at this
	// moment. This is the default value, and is checked so we don't
	// read or write two packets at the same time.
	ephemeralUnused = iota

	// ephemeralWrite means we currently in process of writing from  currentEphemeralBuffer
	ephemeralWrite

	// ephemeralRead means we currently in process of reading into currentEphemeralBuffer
	ephemeralRead
)

// bufPool is used to allocate and free buffers in an efficient way.
var bufPool = bucketpool.New(connBufferSize, MaxPacketSize)

// Conn is a connection between a client and a server, using the MySQL
// binary protocol. It is built on top of an existing net.Conn, that
// has already been established.
//
// Use client.go:Connect() to create a client side connection, and
// newConn() directly when serving a freshly accepted socket in tests.
type Conn struct {
	// conn is the underlying network connection.
	// Calling Close() on the Conn will close this connection.
	// If there are any ongoing reads or writes, they may get interrupted.
	conn net.Conn

	// ConnectionID is set:
	// - at Connect() time for clients, with the value returned by
	// the server.
	// - at accept time for the server.
	ConnectionID uint32

	// Capabilities is the current set of features this connection
	// is using. It is the features that are both supported by
	// the client and the server, and currently in use.
	// It is set during the initial handshake.
	Capabilities uint32

	// CharacterSet is the charset for this connection, as negotiated
	// in the handshake packet. If the value is 0, it means the
	// "default" charset (utf8mb4 for connections we establish).
	CharacterSet uint8

	// User is the name used by the client to connect.
	// It is set during the initial handshake.
	User string

	// ServerVersion is set during Connect with the server
	// version. It is not changed afterwards.
	ServerVersion string

	// StatusFlags are the status flags we will base our returned flags on.
	// It is updated from the OK and EOF packets we receive.
	StatusFlags uint16

	// flavor is the command variant the server speaks, derived from
	// ServerVersion at connect time.
	flavor serverFlavor

	// fields contains the fields definitions for an on-going
	// streaming query. It is set by ExecuteStreamFetch, and
	// cleared by the last FetchNext().
	fields []*sqltypes.Field

	// salt is the scramble sent in the initial handshake, retained
	// for auth plugin switches that reuse it.
	salt []byte

	// authPluginName is the plugin the connection ended up
	// authenticating with.
	authPluginName string

	// bufferedReader is set if we always want to buffer reads.
	bufferedReader *bufio.Reader

	// bufferedWriter is set only between startWriterBuffering and
	// flush. Outside that window writes go straight to conn.
	bufferedWriter bufioWriter

	// compressor / decompressor handle the compressed protocol
	// envelope once it has been negotiated. Both nil until
	// enableCompression is called.
	compressor   *compressedWriter
	decompressor *compressedReader

	// sequence is the current sequence number.
	sequence uint8

	// readTimeout bounds every packet read when non-zero.
	readTimeout time.Duration

	// debug turns on packet-level tracing through mw/log.
	debug bool

	// tracer, when set, observes every framed packet.
	tracer PacketTracer

	// Internal buffer for zero-allocation reads and writes. This
	// uses the fact that both sides of a round trip use the same
	// buffer for writing the packet and reading the response.
	currentEphemeralPolicy int
	// currentEphemeralBuffer for tracking allocated temporary buffer for writes and reads respectively.
	// It can be allocated from bufPool or heap and should be recycled in the same manner.
	currentEphemeralBuffer *[]byte

	closed atomic.Bool
}

// newConn is an internal method to create a Conn.
func newConn(conn net.Conn) *Conn {
	return &Conn{
		conn:           conn,
		bufferedReader: bufio.NewReaderSize(conn, connBufferSize),
	}
}

//
// Utility methods.
//

// getReader returns reader for connection. It can be *bufio.Reader or
// the underlying connection depending on which buffer is in use.
func (c *Conn) getReader() io.Reader {
	return c.bufferedReader
}

func (c *Conn) startWriterBuffering() {
	if c.bufferedWriter != nil {
		return
	}
	c.bufferedWriter = newWriter(c.getRawWriter())
}

func (c *Conn) flush() error {
	if c.bufferedWriter == nil {
		return nil
	}
	bw := c.bufferedWriter
	c.bufferedWriter = nil
	return bw.Flush()
}

// getRawWriter returns the connection itself, or the compression
// envelope when the compressed protocol has been negotiated.
func (c *Conn) getRawWriter() io.Writer {
	if c.compressor != nil {
		return c.compressor
	}
	return c.conn
}

// getWriter returns the current writer. It may be either the
// buffered writer, or the connection itself.
func (c *Conn) getWriter() io.Writer {
	if c.bufferedWriter != nil {
		return c.bufferedWriter
	}
	return c.getRawWriter()
}

func (c *Conn) startReadTimeout() error {
	if c.readTimeout == 0 {
		return nil
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
}

// SetReadTimeout bounds every subsequent packet read. A zero duration
// removes the bound.
func (c *Conn) SetReadTimeout(d time.Duration) {
	c.readTimeout = d
}

// readHeaderFrom reads the 4 byte packet header from the provided
// reader, validates the sequence number, and returns the payload
// length.
func (c *Conn) readHeaderFrom(r io.Reader) (int, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		// Don't log EOF errors. They cause too much spam, same as main read loop.
		if err != io.EOF {
			return 0, fmt.Errorf("io.ReadFull(header size) failed: %v", err)
		}
		return 0, err
	}

	sequence := header[3]
	if sequence != c.sequence {
		return 0, framingErrorf("invalid sequence, expected %v got %v", c.sequence, sequence)
	}

	c.sequence++

	return int(header[0]) | int(header[1])<<8 | int(header[2])<<16, nil
}

// readEphemeralPacket attempts to read a packet into buffer from
// sync.Pool.  Do not save the background buffer in a Conn. It is only
// valid until the next readEphemeralPacket or recycleReadPacket call.
func (c *Conn) readEphemeralPacket() ([]byte, error) {
	if c.currentEphemeralPolicy != ephemeralUnused {
		panic(fmt.Errorf("readEphemeralPacket: unexpected currentEphemeralPolicy: %v", c.currentEphemeralPolicy))
	}
	if err := c.startReadTimeout(); err != nil {
		return nil, err
	}

	r := c.getReader()

	length, err := c.readHeaderFrom(r)
	if err != nil {
		return nil, err
	}

	c.currentEphemeralPolicy = ephemeralRead
	if length == 0 {
		// This can't be the supported case of length == 0:
		// only a packet of one of the max packet size ones can have it.
		return nil, nil
	}

	// Use the bufPool if the packet is not extended.
	if length < MaxPacketSize {
		c.currentEphemeralBuffer = bufPool.Get(length)
		if _, err := io.ReadFull(r, *c.currentEphemeralBuffer); err != nil {
			return nil, fmt.Errorf("io.ReadFull(packet body of length %v) failed: %v", length, err)
		}
		return *c.currentEphemeralBuffer, nil
	}

	// Much slower path, we're abandoning the buffer pool and
	// collecting the continuation packets into one heap slice.
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("io.ReadFull(packet body of length %v) failed: %v", length, err)
	}
	for {
		next, err := c.readOnePacket()
		if err != nil {
			return nil, err
		}

		if len(next) == 0 {
			// Again, the packet after a packet of exactly
			// MaxPacketSize size has to be of size 0.
			break
		}

		data = append(data, next...)
		if len(next) < MaxPacketSize {
			break
		}
	}
	c.currentEphemeralBuffer = &data
	return data, nil
}

// readEphemeralPacketDirect attempts to read a packet from the socket
// directly, bypassing the buffered reader. It is only useful during
// the initial handshake, when no command is in flight and we know the
// server will not split the packet.
func (c *Conn) readEphemeralPacketDirect() ([]byte, error) {
	if c.currentEphemeralPolicy != ephemeralUnused {
		panic(fmt.Errorf("readEphemeralPacketDirect: unexpected currentEphemeralPolicy: %v", c.currentEphemeralPolicy))
	}
	if err := c.startReadTimeout(); err != nil {
		return nil, err
	}

	var r io.Reader = c.conn

	length, err := c.readHeaderFrom(r)
	if err != nil {
		return nil, err
	}

	c.currentEphemeralPolicy = ephemeralRead
	if length == 0 {
		return nil, nil
	}

	if length < MaxPacketSize {
		c.currentEphemeralBuffer = bufPool.Get(length)
		if _, err := io.ReadFull(r, *c.currentEphemeralBuffer); err != nil {
			return nil, fmt.Errorf("io.ReadFull(packet body of length %v) failed: %v", length, err)
		}
		return *c.currentEphemeralBuffer, nil
	}

	return nil, fmt.Errorf("readEphemeralPacketDirect doesn't support more than one packet")
}

// recycleReadPacket recycles the read packet. It needs to be called
// after readEphemeralPacket was called.
func (c *Conn) recycleReadPacket() {
	if c.currentEphemeralPolicy != ephemeralRead {
		// Programming error.
		panic(fmt.Errorf("trying to call recycleReadPacket while currentEphemeralPolicy is %d", c.currentEphemeralPolicy))
	}
	if c.currentEphemeralBuffer != nil {
		// We are using the pool, put the buffer back in.
		bufPool.Put(c.currentEphemeralBuffer)
		c.currentEphemeralBuffer = nil
	}
	c.currentEphemeralPolicy = ephemeralUnused
}

// readOnePacket reads a single packet into a newly allocated buffer.
func (c *Conn) readOnePacket() ([]byte, error) {
	r := c.getReader()

	length, err := c.readHeaderFrom(r)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("io.ReadFull(packet body of length %v) failed: %v", length, err)
	}
	return data, nil
}

// readPacket reads a packet from the underlying connection.
// It re-assembles packets that span more than one message.
// This method returns a generic error, not a SQLError.
func (c *Conn) readPacket() ([]byte, error) {
	if err := c.startReadTimeout(); err != nil {
		return nil, err
	}

	// Optimize for a single packet case.
	data, err := c.readOnePacket()
	if err != nil {
		return nil, err
	}

	// This is a single packet.
	if len(data) < MaxPacketSize {
		if c.debug {
			log.DebugS("read packet", "length", len(data), "sequence", c.sequence-1)
		}
		if c.tracer != nil {
			c.tracer("read", len(data), c.sequence-1)
		}
		return data, nil
	}

	// There is more than one packet, read them all.
	for {
		next, err := c.readOnePacket()
		if err != nil {
			return nil, err
		}

		if len(next) == 0 {
			// Again, the packet after a packet of exactly
			// MaxPacketSize size has to be of size 0.
			break
		}

		data = append(data, next...)
		if len(next) < MaxPacketSize {
			break
		}
	}

	if c.debug {
		log.DebugS("read packet", "length", len(data), "sequence", c.sequence-1)
	}
	if c.tracer != nil {
		c.tracer("read", len(data), c.sequence-1)
	}
	return data, nil
}

// ReadPacket reads a packet from the underlying connection.
// it is the public API version, that returns a SQLError.
// The memory for the packet is always allocated, and it is owned by the caller
// after this function returns.
func (c *Conn) ReadPacket() ([]byte, error) {
	result, err := c.readPacket()
	if err != nil {
		return nil, NewSQLError(ERServerLost, SSNetError, "%v", err)
	}
	return result, err
}

//
// Packet writing methods.
//

// writePacket writes a packet, possibly cutting it into multiple
// chunks.  Note this is not very efficient, as the client probably
// has to build the []byte and that makes a memory copy.
// Try to use startEphemeralPacket/writeEphemeralPacket instead.
func (c *Conn) writePacket(data []byte) error {
	index := 0
	length := len(data)

	if c.debug {
		log.DebugS("write packet", "length", length, "sequence", c.sequence)
	}
	if c.tracer != nil {
		c.tracer("write", length, c.sequence)
	}

	w := c.getWriter()

	for {
		// Packet length is capped to MaxPacketSize.
		packetLength := length
		if packetLength > MaxPacketSize {
			packetLength = MaxPacketSize
		}

		// Compute and write the header.
		var header [4]byte
		header[0] = byte(packetLength)
		header[1] = byte(packetLength >> 8)
		header[2] = byte(packetLength >> 16)
		header[3] = c.sequence
		if n, err := w.Write(header[:]); err != nil {
			return fmt.Errorf("Write(header) failed: %v", err)
		} else if n != 4 {
			return fmt.Errorf("Write(header) returned a short write: %v < 4", n)
		}

		// Write the body.
		if n, err := w.Write(data[index : index+packetLength]); err != nil {
			return fmt.Errorf("Write(packet) failed: %v", err)
		} else if n != packetLength {
			return fmt.Errorf("Write(packet) returned a short write: %v < %v", n, packetLength)
		}

		// Update our state.
		c.sequence++
		length -= packetLength
		if length == 0 {
			if packetLength == MaxPacketSize {
				// The packet we just sent had exactly
				// MaxPacketSize size, we need to
				// sent a zero-size packet too.
				header[0] = 0
				header[1] = 0
				header[2] = 0
				header[3] = c.sequence
				if n, err := w.Write(header[:]); err != nil {
					return fmt.Errorf("Write(empty header) failed: %v", err)
				} else if n != 4 {
					return fmt.Errorf("Write(empty header) returned a short write: %v < 4", n)
				}
				c.sequence++
			}
			return nil
		}
		index += packetLength
	}
}

func (c *Conn) startEphemeralPacket(length int) []byte {
	if c.currentEphemeralPolicy != ephemeralUnused {
		panic("startEphemeralPacket cannot be used while a packet is already started.")
	}

	c.currentEphemeralPolicy = ephemeralWrite
	// get buffer from pool or it'll be allocated if length is too big
	c.currentEphemeralBuffer = bufPool.Get(length)
	return *c.currentEphemeralBuffer
}

// writeEphemeralPacket writes the packet that was allocated by
// startEphemeralPacket.
func (c *Conn) writeEphemeralPacket() error {
	defer c.recycleWritePacket()

	switch c.currentEphemeralPolicy {
	case ephemeralWrite:
		if err := c.writePacket(*c.currentEphemeralBuffer); err != nil {
			return fmt.Errorf("Conn %v: %v", c.ID(), err)
		}
	case ephemeralUnused, ephemeralRead:
		// Programming error.
		panic(fmt.Errorf("Conn %v: trying to call writeEphemeralPacket while currentEphemeralPolicy is %v", c.ID(), c.currentEphemeralPolicy))
	}

	return nil
}

// recycleWritePacket recycles the write packet. It needs to be called
// after writeEphemeralPacket was called.
func (c *Conn) recycleWritePacket() {
	if c.currentEphemeralPolicy != ephemeralWrite {
		// Programming error.
		panic(fmt.Errorf("trying to call recycleWritePacket while currentEphemeralPolicy is %d", c.currentEphemeralPolicy))
	}
	// Release our reference so the buffer can be gced
	bufPool.Put(c.currentEphemeralBuffer)
	c.currentEphemeralBuffer = nil
	c.currentEphemeralPolicy = ephemeralUnused
}

//
// Packet parsing and writing methods, for generic packets.
//

// isEOFPacket determines whether or not a data packet is a "true" EOF. DO NOT blindly compare the
// first byte of a packet to EOFPacket as you might do for other packet types, as 0xfe is overloaded
// as a first byte.
//
// Per https://dev.mysql.com/doc/internals/en/packet-EOF_Packet.html, a packet starting with 0xfe
// but having length >= 9 (on top of 4 byte header) is not a true EOF but a LengthEncodedInteger
// (typically preceding a LengthEncodedString). Thus, all EOF checks must validate the payload size
// before exiting.
func isEOFPacket(data []byte) bool {
	return data[0] == EOFPacket && len(data) < 9
}

// parseEOFPacket returns the warning count and a boolean to indicate if there
// are more results to receive.
//
// Note: This is only valid on actual EOF packets and not on OK packets with the EOF
// type code set, i.e. should not be used if ClientDeprecateEOF is set.
func parseEOFPacket(data []byte) (warnings uint16, more bool, err error) {
	// The warning count is in position 2 & 3
	warnings, _, _ = readUint16(data, 1)

	// The status flag is in position 4 & 5
	statusFlags, _, ok := readUint16(data, 3)
	if !ok {
		return 0, false, framingErrorf("invalid EOF packet statusFlags: %v", data)
	}
	return warnings, (statusFlags & ServerMoreResultsExists) != 0, nil
}

// parseOKPacket parses the fixed prefix of an OK packet: affected
// rows, last insert id, status flags and warning count. Use
// parsePacketOK when the info string and session state tracking
// payload are needed too.
func parseOKPacket(data []byte) (uint64, uint64, uint16, uint16, error) {
	ok, err := parsePacketOK(data)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return ok.affectedRows, ok.lastInsertID, ok.statusFlags, ok.warnings, nil
}

// PacketOK contains the ok packet details
type PacketOK struct {
	affectedRows uint64
	lastInsertID uint64
	statusFlags  uint16
	warnings     uint16
	info         string

	// at the moment, we only store GTID information in this field
	sessionStateData string
}

func parsePacketOK(data []byte) (*PacketOK, error) {
	length := len(data)
	if length < 1 {
		return nil, framingErrorf("invalid OK packet length: %v", length)
	}

	p := &coder{data: data, pos: 1} // skip header

	packetOK := &PacketOK{}

	affectedRows, ok := p.readLenEncInt()
	if !ok {
		return nil, framingErrorf("invalid OK packet affectedRows: %v", data)
	}
	packetOK.affectedRows = affectedRows

	lastInsertID, ok := p.readLenEncInt()
	if !ok {
		return nil, framingErrorf("invalid OK packet lastInsertID: %v", data)
	}
	packetOK.lastInsertID = lastInsertID

	statusFlags, ok := p.readUint16()
	if !ok {
		return nil, framingErrorf("invalid OK packet statusFlags: %v", data)
	}
	packetOK.statusFlags = statusFlags

	warnings, ok := p.readUint16()
	if !ok {
		return nil, framingErrorf("invalid OK packet warnings: %v", data)
	}
	packetOK.warnings = warnings

	// info and session tracking are both optional trailers.
	if p.pos >= length {
		return packetOK, nil
	}
	info, _ := p.readLenEncInfo()
	packetOK.info = info

	if statusFlags&ServerSessionStateChanged == ServerSessionStateChanged {
		length, ok := p.readLenEncInt()
		if !ok || length == 0 {
			// In case we have no more data or a zero length string, there's no additional information so
			// we can return the packet.
			return packetOK, nil
		}

		// Alright, now we need to read each sub packet from the session state change.
		end := p.pos + int(length)
		for p.pos < end {
			sscType, ok := p.readByte()
			if !ok {
				return nil, framingErrorf("invalid OK packet session state change type: %v", data)
			}
			sessionLen, ok := p.readLenEncInt()
			if !ok {
				return nil, framingErrorf("invalid OK packet session state change length: %v", data)
			}

			if sscType != SessionTrackGtids {
				// Still need to increment the pointer to the next sub packet.
				if sessionLen > uint64(len(data)-p.pos) {
					return nil, framingErrorf("invalid OK packet session state change length: %v", data)
				}
				p.pos = p.pos + int(sessionLen)
				continue
			}

			// read (and ignore for now) the GTIDS encoding specification code.
			_, ok = p.readByte()
			if !ok {
				return nil, framingErrorf("invalid OK packet gtids type: %v", data)
			}
			gtids, ok := p.readLenEncString()
			if !ok {
				return nil, framingErrorf("invalid OK packet gtids: %v", data)
			}
			packetOK.sessionStateData = gtids
		}
	}

	return packetOK, nil
}

// ParseErrorPacket parses the error packet and returns a SQLError.
func ParseErrorPacket(data []byte) error {
	// We already read the type.
	pos := 1

	// Error code is 2 bytes.
	code, pos, ok := readUint16(data, pos)
	if !ok {
		return NewSQLError(CRUnknownError, SSUnknownSQLState, "invalid error packet code: %v", data)
	}

	// '#' marker of the SQL state is 1 byte. Ignored.
	pos++

	// SQL state is 5 bytes
	sqlState, pos, ok := readBytes(data, pos, 5)
	if !ok {
		return NewSQLError(CRUnknownError, SSUnknownSQLState, "invalid error packet sqlState: %v", data)
	}

	// Human readable error message is the rest.
	msg := string(data[pos:])

	return NewSQLError(int(code), string(sqlState), "%v", msg)
}

//
// The writers below are only ever used by the server side of a
// connection. We carry them for the in-process test servers the
// client is exercised against.
//

// writeOKPacket writes an OK packet.
// Server -> Client.
// This method returns a generic error, not a SQLError.
func (c *Conn) writeOKPacket(affectedRows, lastInsertID uint64, flags uint16, warnings uint16) error {
	length := 1 + // OKPacket
		lenEncIntSize(affectedRows) +
		lenEncIntSize(lastInsertID) +
		2 + // flags
		2 // warnings
	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeByte(data, pos, OKPacket)
	pos = writeLenEncInt(data, pos, affectedRows)
	pos = writeLenEncInt(data, pos, lastInsertID)
	pos = writeUint16(data, pos, flags)
	_ = writeUint16(data, pos, warnings)

	return c.writeEphemeralPacket()
}

// writeOKPacketWithEOFHeader writes an OK packet with an EOF header.
// This is used at the end of a result set if
// CapabilityClientDeprecateEOF is set.
// Server -> Client.
// This method returns a generic error, not a SQLError.
func (c *Conn) writeOKPacketWithEOFHeader(affectedRows, lastInsertID uint64, flags uint16, warnings uint16) error {
	length := 1 + // EOFPacket
		lenEncIntSize(affectedRows) +
		lenEncIntSize(lastInsertID) +
		2 + // flags
		2 // warnings
	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeByte(data, pos, EOFPacket)
	pos = writeLenEncInt(data, pos, affectedRows)
	pos = writeLenEncInt(data, pos, lastInsertID)
	pos = writeUint16(data, pos, flags)
	_ = writeUint16(data, pos, warnings)

	return c.writeEphemeralPacket()
}

// writeErrorPacket writes an error packet.
// Server -> Client.
// This method returns a generic error, not a SQLError.
func (c *Conn) writeErrorPacket(errorCode uint16, sqlState string, format string, args ...interface{}) error {
	errorMessage := fmt.Sprintf(format, args...)
	length := 1 + 2 + 1 + 5 + len(errorMessage)
	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeByte(data, pos, ErrPacket)
	pos = writeUint16(data, pos, errorCode)
	pos = writeByte(data, pos, '#')
	if sqlState == "" {
		sqlState = SSUnknownSQLState
	}
	if len(sqlState) != 5 {
		panic("sqlState has to be 5 characters long")
	}
	pos = writeEOFString(data, pos, sqlState)
	_ = writeEOFString(data, pos, errorMessage)

	return c.writeEphemeralPacket()
}

// writeErrorPacketFromError writes an error packet, from a regular error.
// See writeErrorPacket for other info.
func (c *Conn) writeErrorPacketFromError(err error) error {
	if se, ok := err.(*SQLError); ok {
		return c.writeErrorPacket(uint16(se.Num), se.State, "%v", se.Message)
	}

	return c.writeErrorPacket(ERUnknownError, SSUnknownSQLState, "unknown error: %v", err)
}

// writeEOFPacket writes an EOF packet, through the buffer, and
// doesn't flush (as it is used as part of a query result).
func (c *Conn) writeEOFPacket(flags uint16, warnings uint16) error {
	length := 5
	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeByte(data, pos, EOFPacket)
	pos = writeUint16(data, pos, warnings)
	_ = writeUint16(data, pos, flags)

	return c.writeEphemeralPacket()
}

//
// Lifecycle.
//

// ID returns the MySQL connection ID for this connection.
func (c *Conn) ID() int64 {
	return int64(c.ConnectionID)
}

// Ident returns a useful identification string for error logging
func (c *Conn) String() string {
	return fmt.Sprintf("client %v (%s)", c.ConnectionID, c.RemoteAddr().String())
}

// RemoteAddr returns the underlying socket RemoteAddr().
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// LocalAddr returns the underlying socket LocalAddr().
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close closes the connection. It can be called from a different go
// routine to interrupt the current connection.
func (c *Conn) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.conn.Close()
	}
}

// IsClosed returns true if this connection was ever closed by the
// Close() method.  Note if the other side closes the connection, but
// Close() wasn't called, this will return false.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}
