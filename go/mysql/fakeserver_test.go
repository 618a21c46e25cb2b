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
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math"
	"net"
	"strconv"
	"sync"
	"testing"

	"mywire.io/mywire/go/sqltypes"
)

// fakeServerCapabilities is what the in-process test server advertises
// by default. DeprecateEOF and zstd are opt-in per test.
const fakeServerCapabilities = CapabilityClientLongPassword |
	CapabilityClientLongFlag |
	CapabilityClientProtocol41 |
	CapabilityClientTransactions |
	CapabilityClientSecureConnection |
	CapabilityClientPluginAuth |
	CapabilityClientPluginAuthLenencClientData |
	CapabilityClientConnectWithDB |
	CapabilityClientMultiStatements |
	CapabilityClientMultiResults

// fakeStmt describes one statement the fake server is prepared to
// serve over the binary protocol.
type fakeStmt struct {
	paramCount uint16
	fields     []*sqltypes.Field
	exec       func(args []sqltypes.Value) (*sqltypes.Result, error)
}

// fakeServer is a scriptable in-process server speaking just enough
// of the protocol to drive the client through handshakes, auth
// sub-protocols and result sets.
type fakeServer struct {
	t        *testing.T
	listener net.Listener
	port     int

	serverVersion string
	capabilities  uint32
	authPlugin    string
	password      string
	tlsConfig     *tls.Config
	rsaKey        *rsa.PrivateKey

	// authScript, when set, takes over the auth dialogue after the
	// handshake response has been parsed. It must end the exchange
	// with an OK or ERR packet.
	authScript func(s *fakeServer, c *Conn, salt []byte, hello *clientHello) error

	// handler serves COM_QUERY. Absent a handler every query fails.
	handler func(c *Conn, query string) error

	mu    sync.Mutex
	stmts map[uint32]*fakeStmt
	specs map[string]*fakeStmt
	byID  uint32

	wg sync.WaitGroup
}

func newFakeServer(t *testing.T, opts ...func(*fakeServer)) *fakeServer {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	s := &fakeServer{
		t:             t,
		listener:      listener,
		port:          listener.Addr().(*net.TCPAddr).Port,
		serverVersion: "8.0.34",
		capabilities:  fakeServerCapabilities,
		authPlugin:    MysqlNativePassword,
		password:      "password1",
		stmts:         make(map[uint32]*fakeStmt),
		specs:         make(map[string]*fakeStmt),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.close)
	return s
}

func withServerVersion(v string) func(*fakeServer) {
	return func(s *fakeServer) { s.serverVersion = v }
}

func withAuthPlugin(plugin string) func(*fakeServer) {
	return func(s *fakeServer) { s.authPlugin = plugin }
}

func withCapabilities(extra uint32) func(*fakeServer) {
	return func(s *fakeServer) { s.capabilities |= extra }
}

func withTLSConfig(config *tls.Config) func(*fakeServer) {
	return func(s *fakeServer) {
		s.tlsConfig = config
		s.capabilities |= CapabilityClientSSL
	}
}

func withHandler(handler func(c *Conn, query string) error) func(*fakeServer) {
	return func(s *fakeServer) { s.handler = handler }
}

func withAuthScript(script func(s *fakeServer, c *Conn, salt []byte, hello *clientHello) error) func(*fakeServer) {
	return func(s *fakeServer) { s.authScript = script }
}

func withStmt(query string, stmt *fakeStmt) func(*fakeServer) {
	return func(s *fakeServer) { s.specs[query] = stmt }
}

func (s *fakeServer) close() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *fakeServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.serve(conn)
		}()
	}
}

// connParams returns parameters pointing at the fake server.
func (s *fakeServer) connParams() *ConnParams {
	return &ConnParams{
		Host:  "127.0.0.1",
		Port:  s.port,
		Uname: "gopher",
		Pass:  s.password,
	}
}

func (s *fakeServer) registerStmt(stmt *fakeStmt) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID++
	s.stmts[s.byID] = stmt
	return s.byID
}

func (s *fakeServer) serve(nc net.Conn) {
	c := newConn(nc)
	salt, err := NewSalt()
	if err != nil {
		return
	}

	if err := writeInitialHandshake(c, s.serverVersion, s.capabilities, salt, s.authPlugin); err != nil {
		return
	}

	data, err := c.readPacket()
	if err != nil {
		return
	}
	hello, isSSL, err := parseClientHello(data)
	if err != nil {
		s.t.Errorf("parsing handshake response failed: %v", err)
		return
	}
	if isSSL {
		if s.tlsConfig == nil {
			s.t.Error("client requested TLS but the server has no config")
			return
		}
		// The client may coalesce its ClientHello with the SSLRequest,
		// in which case the packet reader buffered it ahead. Replay
		// those bytes or the TLS handshake stalls on both sides.
		pending, _ := c.bufferedReader.Peek(c.bufferedReader.Buffered())
		tlsConn := tls.Server(&replayConn{Conn: c.conn, pending: pending}, s.tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			return
		}
		c.conn = tlsConn
		c.bufferedReader.Reset(tlsConn)
		data, err = c.readPacket()
		if err != nil {
			return
		}
		hello, _, err = parseClientHello(data)
		if err != nil {
			s.t.Errorf("parsing post-TLS handshake response failed: %v", err)
			return
		}
	}
	c.Capabilities = hello.capabilities

	if s.authScript != nil {
		if err := s.authScript(s, c, salt, hello); err != nil {
			return
		}
	} else if err := s.defaultAuth(c, salt, hello); err != nil {
		return
	}

	if hello.capabilities&CapabilityClientZstdCompressionAlgorithm != 0 {
		c.enableCompression()
	}

	s.commandLoop(c)
}

// defaultAuth verifies the auth response the way a server holding the
// cleartext password would, for the plugin it announced.
func (s *fakeServer) defaultAuth(c *Conn, salt []byte, hello *clientHello) error {
	var expected []byte
	switch s.authPlugin {
	case MysqlNativePassword:
		expected = ScrambleMysqlNativePassword(salt, []byte(s.password))
	case CachingSha2Password:
		expected = ScrambleCachingSha2Password(salt, []byte(s.password))
	case MysqlClearPassword:
		expected = append([]byte(s.password), 0)
	default:
		return c.writeErrorPacket(ERAccessDeniedError, SSAccessDeniedError, "unsupported plugin %v", s.authPlugin)
	}
	if !bytes.Equal(hello.authResponse, expected) {
		c.writeErrorPacket(ERAccessDeniedError, SSAccessDeniedError, "Access denied for user '%v'", hello.username)
		return fmt.Errorf("access denied")
	}
	return c.writeOKPacket(0, 0, ServerStatusAutocommit, 0)
}

func (s *fakeServer) commandLoop(c *Conn) {
	for {
		c.resetSequence()
		data, err := c.readEphemeralPacket()
		if err != nil {
			return
		}
		switch data[0] {
		case ComQuit:
			c.recycleReadPacket()
			return
		case ComPing:
			c.recycleReadPacket()
			if err := c.writeOKPacket(0, 0, ServerStatusAutocommit, 0); err != nil {
				return
			}
		case ComInitDB:
			c.recycleReadPacket()
			if err := c.writeOKPacket(0, 0, ServerStatusAutocommit, 0); err != nil {
				return
			}
		case ComQuery:
			query := string(data[1:])
			c.recycleReadPacket()
			if s.handler == nil {
				if err := c.writeErrorPacket(ERUnknownComError, SSUnknownSQLState, "no handler for query: %v", query); err != nil {
					return
				}
				continue
			}
			if err := s.handler(c, query); err != nil {
				return
			}
		case ComStmtPrepare:
			query := string(data[1:])
			c.recycleReadPacket()
			if err := s.handleStmtPrepare(c, query); err != nil {
				return
			}
		case ComStmtExecute:
			payload := make([]byte, len(data))
			copy(payload, data)
			c.recycleReadPacket()
			if err := s.handleStmtExecute(c, payload); err != nil {
				return
			}
		case ComStmtClose:
			c.recycleReadPacket()
			// No response.
		default:
			c.recycleReadPacket()
			if err := c.writeErrorPacket(ERUnknownComError, SSUnknownSQLState, "unexpected command: %v", data[0]); err != nil {
				return
			}
		}
	}
}

//
// Handshake plumbing.
//

// writeInitialHandshake sends a protocol version 10 greeting.
func writeInitialHandshake(c *Conn, serverVersion string, capabilities uint32, salt []byte, pluginName string) error {
	length := 1 + // protocol version
		lenNullString(serverVersion) +
		4 + // connection id
		8 + // auth-plugin-data-part-1
		1 + // filler
		2 + // capability flags (lower)
		1 + // character set
		2 + // status flags
		2 + // capability flags (upper)
		1 + // auth-plugin-data length
		10 + // reserved
		13 + // auth-plugin-data-part-2, 0 terminated
		lenNullString(pluginName)

	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeByte(data, pos, protocolVersion)
	pos = writeNullString(data, pos, serverVersion)
	pos = writeUint32(data, pos, 1)
	pos += copy(data[pos:], salt[:8])
	pos = writeByte(data, pos, 0)
	pos = writeUint16(data, pos, uint16(capabilities&0xffff))
	pos = writeByte(data, pos, CharacterSetUtf8mb4)
	pos = writeUint16(data, pos, ServerStatusAutocommit)
	pos = writeUint16(data, pos, uint16(capabilities>>16))
	pos = writeByte(data, pos, byte(len(salt)+1))
	pos = writeZeroes(data, pos, 10)
	pos += copy(data[pos:], salt[8:])
	pos = writeByte(data, pos, 0)
	pos = writeNullString(data, pos, pluginName)
	if pos != len(data) {
		return fmt.Errorf("writeInitialHandshake: packed %v of %v bytes", pos, len(data))
	}
	return c.writeEphemeralPacket()
}

// clientHello is the decoded HandshakeResponse41.
type clientHello struct {
	capabilities uint32
	charset      byte
	username     string
	authResponse []byte
	database     string
	pluginName   string
	zstdLevel    byte
}

// parseClientHello decodes a handshake response, reporting a
// truncated SSLRequest separately.
// replayConn hands back bytes a bufio.Reader pulled past the SSLRequest
// before reading the connection again, so tls.Server sees the whole
// client flight.
type replayConn struct {
	net.Conn
	pending []byte
}

func (c *replayConn) Read(p []byte) (int, error) {
	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}
	return c.Conn.Read(p)
}

func parseClientHello(data []byte) (*clientHello, bool, error) {
	hello := &clientHello{}
	pos := 0
	var ok bool
	hello.capabilities, pos, ok = readUint32(data, pos)
	if !ok {
		return nil, false, fmt.Errorf("no capability flags")
	}
	// Max packet size, ignored.
	_, pos, ok = readUint32(data, pos)
	if !ok {
		return nil, false, fmt.Errorf("no max packet size")
	}
	hello.charset, pos, ok = readByte(data, pos)
	if !ok {
		return nil, false, fmt.Errorf("no character set")
	}
	pos += 23

	// An SSLRequest stops right after the reserved bytes.
	if pos >= len(data) {
		if hello.capabilities&CapabilityClientSSL == 0 {
			return nil, false, fmt.Errorf("truncated response without CLIENT_SSL")
		}
		return hello, true, nil
	}

	hello.username, pos, ok = readNullString(data, pos)
	if !ok {
		return nil, false, fmt.Errorf("no username")
	}

	if hello.capabilities&CapabilityClientPluginAuthLenencClientData != 0 {
		l, newPos, ok := readLenEncInt(data, pos)
		if !ok {
			return nil, false, fmt.Errorf("no auth response length")
		}
		hello.authResponse, pos, ok = readBytesCopy(data, newPos, int(l))
		if !ok {
			return nil, false, fmt.Errorf("truncated auth response")
		}
	} else {
		l, newPos, ok := readByte(data, pos)
		if !ok {
			return nil, false, fmt.Errorf("no auth response length")
		}
		hello.authResponse, pos, ok = readBytesCopy(data, newPos, int(l))
		if !ok {
			return nil, false, fmt.Errorf("truncated auth response")
		}
	}

	if hello.capabilities&CapabilityClientConnectWithDB != 0 {
		hello.database, pos, ok = readNullString(data, pos)
		if !ok {
			return nil, false, fmt.Errorf("no database name")
		}
	}
	if hello.capabilities&CapabilityClientPluginAuth != 0 {
		hello.pluginName, pos, ok = readNullString(data, pos)
		if !ok {
			return nil, false, fmt.Errorf("no plugin name")
		}
	}
	if hello.capabilities&CapabilityClientZstdCompressionAlgorithm != 0 {
		hello.zstdLevel, _, ok = readByte(data, pos)
		if !ok {
			return nil, false, fmt.Errorf("no zstd compression level")
		}
	}
	return hello, false, nil
}

// writeAuthSwitchRequest asks the client to redo auth with another
// plugin and a fresh challenge.
func writeAuthSwitchRequest(c *Conn, pluginName string, salt []byte) error {
	length := 1 + lenNullString(pluginName) + len(salt)
	data := c.startEphemeralPacket(length)
	pos := writeByte(data, 0, AuthSwitchRequestPacket)
	pos = writeNullString(data, pos, pluginName)
	copy(data[pos:], salt)
	return c.writeEphemeralPacket()
}

// writeAuthMoreData sends a caching_sha2 signal byte or any other
// more-data payload.
func writeAuthMoreData(c *Conn, payload []byte) error {
	data := c.startEphemeralPacket(1 + len(payload))
	pos := writeByte(data, 0, AuthMoreDataPacket)
	copy(data[pos:], payload)
	return c.writeEphemeralPacket()
}

// serverRSAKey lazily creates the keypair used by the public key
// retrieval tests.
func (s *fakeServer) serverRSAKey() *rsa.PrivateKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rsaKey == nil {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			s.t.Fatalf("rsa.GenerateKey failed: %v", err)
		}
		s.rsaKey = key
	}
	return s.rsaKey
}

// publicKeyPEM returns the PKIX PEM encoding the server hands to
// clients asking for the public key.
func (s *fakeServer) publicKeyPEM() []byte {
	der, err := x509.MarshalPKIXPublicKey(&s.serverRSAKey().PublicKey)
	if err != nil {
		s.t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// decryptPassword reverses EncryptPasswordWithPublicKey: OAEP
// decryption, then the cyclic salt XOR and the trailing NUL.
func (s *fakeServer) decryptPassword(salt, enc []byte) (string, error) {
	plain, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, s.serverRSAKey(), enc, nil)
	if err != nil {
		return "", err
	}
	for i := range plain {
		plain[i] ^= salt[i%len(salt)]
	}
	if len(plain) == 0 || plain[len(plain)-1] != 0 {
		return "", fmt.Errorf("decrypted password is not 0 terminated")
	}
	return string(plain[:len(plain)-1]), nil
}

//
// Result set plumbing.
//

// makeTextResult builds a VarChar result set from plain strings.
func makeTextResult(columns []string, rows [][]string) *sqltypes.Result {
	result := &sqltypes.Result{
		StatusFlags: ServerStatusAutocommit,
	}
	for _, name := range columns {
		result.Fields = append(result.Fields, &sqltypes.Field{
			Name:    name,
			Type:    sqltypes.VarChar,
			Charset: CharacterSetUtf8mb4,
		})
	}
	for _, row := range rows {
		var r sqltypes.Row
		for _, val := range row {
			r = append(r, sqltypes.NewVarChar(val))
		}
		result.Rows = append(result.Rows, r)
	}
	return result
}

// writeTextResult streams a result over the text protocol, honoring
// the negotiated DeprecateEOF setting.
func writeTextResult(c *Conn, result *sqltypes.Result) error {
	n := len(result.Fields)
	data := c.startEphemeralPacket(lenEncIntSize(uint64(n)))
	writeLenEncInt(data, 0, uint64(n))
	if err := c.writeEphemeralPacket(); err != nil {
		return err
	}
	for _, field := range result.Fields {
		if err := writeFieldPacket(c, field); err != nil {
			return err
		}
	}
	if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
		if err := c.writeEOFPacket(result.StatusFlags, 0); err != nil {
			return err
		}
	}
	for _, row := range result.Rows {
		if err := writeTextRow(c, row); err != nil {
			return err
		}
	}
	if c.Capabilities&CapabilityClientDeprecateEOF != 0 {
		return c.writeOKPacketWithEOFHeader(0, 0, result.StatusFlags, 0)
	}
	return c.writeEOFPacket(result.StatusFlags, 0)
}

// writeFieldPacket sends one column definition.
func writeFieldPacket(c *Conn, field *sqltypes.Field) error {
	typ, flags := sqltypes.TypeToMySQL(field.Type)
	if field.Flags != 0 {
		flags = int64(field.Flags)
	}
	length := lenEncStringSize("def") +
		lenEncStringSize(field.Database) +
		lenEncStringSize(field.Table) +
		lenEncStringSize(field.OrgTable) +
		lenEncStringSize(field.Name) +
		lenEncStringSize(field.OrgName) +
		1 + // length of fixed-length fields
		2 + // character set
		4 + // column length
		1 + // type
		2 + // flags
		1 + // decimals
		2 // filler

	data := c.startEphemeralPacket(length)
	pos := 0
	pos = writeLenEncString(data, pos, "def")
	pos = writeLenEncString(data, pos, field.Database)
	pos = writeLenEncString(data, pos, field.Table)
	pos = writeLenEncString(data, pos, field.OrgTable)
	pos = writeLenEncString(data, pos, field.Name)
	pos = writeLenEncString(data, pos, field.OrgName)
	pos = writeByte(data, pos, 0x0c)
	pos = writeUint16(data, pos, uint16(field.Charset))
	pos = writeUint32(data, pos, field.ColumnLength)
	pos = writeByte(data, pos, byte(typ))
	pos = writeUint16(data, pos, uint16(flags))
	pos = writeByte(data, pos, byte(field.Decimals))
	writeZeroes(data, pos, 2)
	return c.writeEphemeralPacket()
}

// writeTextRow sends one row of length-encoded values.
func writeTextRow(c *Conn, row []sqltypes.Value) error {
	length := 0
	for _, val := range row {
		if val.IsNull() {
			length++
		} else {
			length += lenEncStringSize(val.RawStr())
		}
	}
	data := c.startEphemeralPacket(length)
	pos := 0
	for _, val := range row {
		if val.IsNull() {
			pos = writeByte(data, pos, NullValue)
		} else {
			pos = writeLenEncString(data, pos, val.RawStr())
		}
	}
	return c.writeEphemeralPacket()
}

//
// Binary protocol plumbing.
//

func (s *fakeServer) handleStmtPrepare(c *Conn, query string) error {
	paramCount := uint16(0)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			paramCount++
		}
	}

	stmt := &fakeStmt{paramCount: paramCount}
	if spec, ok := s.preparedSpec(query); ok {
		stmt = spec
	}
	id := s.registerStmt(stmt)

	data := c.startEphemeralPacket(12)
	pos := 0
	pos = writeByte(data, pos, OKPacket)
	pos = writeUint32(data, pos, id)
	pos = writeUint16(data, pos, uint16(len(stmt.fields)))
	pos = writeUint16(data, pos, stmt.paramCount)
	pos = writeByte(data, pos, 0)
	writeUint16(data, pos, 0)
	if err := c.writeEphemeralPacket(); err != nil {
		return err
	}

	if stmt.paramCount > 0 {
		paramField := &sqltypes.Field{Name: "?", Type: sqltypes.VarBinary, Charset: CharacterSetBinary}
		for i := uint16(0); i < stmt.paramCount; i++ {
			if err := writeFieldPacket(c, paramField); err != nil {
				return err
			}
		}
		if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
			if err := c.writeEOFPacket(ServerStatusAutocommit, 0); err != nil {
				return err
			}
		}
	}
	if len(stmt.fields) > 0 {
		for _, field := range stmt.fields {
			if err := writeFieldPacket(c, field); err != nil {
				return err
			}
		}
		if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
			if err := c.writeEOFPacket(ServerStatusAutocommit, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *fakeServer) preparedSpec(query string) (*fakeStmt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.specs[query]
	return spec, ok
}

func (s *fakeServer) handleStmtExecute(c *Conn, data []byte) error {
	pos := 1
	id, pos, ok := readUint32(data, pos)
	if !ok {
		return fmt.Errorf("no statement id")
	}
	// Cursor flags and iteration count.
	pos += 5

	s.mu.Lock()
	stmt := s.stmts[id]
	s.mu.Unlock()
	if stmt == nil {
		return c.writeErrorPacket(ERUnknownComError, SSUnknownSQLState, "unknown statement id %v", id)
	}

	args, err := parseExecuteArgs(data, pos, int(stmt.paramCount))
	if err != nil {
		return c.writeErrorPacket(CRMalformedPacket, SSUnknownSQLState, "malformed execute packet: %v", err)
	}

	if stmt.exec == nil {
		return c.writeOKPacket(0, 0, ServerStatusAutocommit, 0)
	}
	result, err := stmt.exec(args)
	if err != nil {
		return c.writeErrorPacket(ERUnknownComError, SSUnknownSQLState, "%v", err)
	}
	if len(result.Fields) == 0 {
		return c.writeOKPacket(result.RowsAffected, result.InsertID, ServerStatusAutocommit, 0)
	}
	return writeBinaryResult(c, result)
}

// parseExecuteArgs decodes the null bitmap, type block and value
// block of a COM_STMT_EXECUTE packet.
func parseExecuteArgs(data []byte, pos, paramCount int) ([]sqltypes.Value, error) {
	if paramCount == 0 {
		return nil, nil
	}
	bitmapLen := (paramCount + 7) / 8
	if len(data) < pos+bitmapLen+1 {
		return nil, fmt.Errorf("truncated null bitmap")
	}
	nullBitmap := data[pos : pos+bitmapLen]
	pos += bitmapLen
	newParamsBound := data[pos]
	pos++
	if newParamsBound != 1 {
		return nil, fmt.Errorf("new-params-bound flag not set")
	}

	types := make([]byte, paramCount)
	flags := make([]byte, paramCount)
	for i := 0; i < paramCount; i++ {
		if len(data) < pos+2 {
			return nil, fmt.Errorf("truncated type block")
		}
		types[i] = data[pos]
		flags[i] = data[pos+1]
		pos += 2
	}

	args := make([]sqltypes.Value, paramCount)
	for i := 0; i < paramCount; i++ {
		if nullBitmap[i/8]&(1<<(uint(i)&7)) != 0 {
			args[i] = sqltypes.NULL
			continue
		}
		switch types[i] {
		case typeNull:
			args[i] = sqltypes.NULL
		case typeLongLong:
			v, newPos, ok := readUint64(data, pos)
			if !ok {
				return nil, fmt.Errorf("truncated longlong value")
			}
			pos = newPos
			if flags[i]&unsignedParamFlag != 0 {
				args[i] = sqltypes.NewUint64(v)
			} else {
				args[i] = sqltypes.NewInt64(int64(v))
			}
		case typeDouble:
			v, newPos, ok := readUint64(data, pos)
			if !ok {
				return nil, fmt.Errorf("truncated double value")
			}
			pos = newPos
			args[i] = sqltypes.MakeTrusted(sqltypes.Float64, strconv.AppendFloat(nil, math.Float64frombits(v), 'g', -1, 64))
		case typeVarString:
			v, newPos, ok := readLenEncStringAsBytesCopy(data, pos)
			if !ok {
				return nil, fmt.Errorf("truncated string value")
			}
			pos = newPos
			args[i] = sqltypes.MakeTrusted(sqltypes.VarBinary, v)
		default:
			return nil, fmt.Errorf("unexpected parameter type %v", types[i])
		}
	}
	return args, nil
}

// writeBinaryResult streams a result set in the binary row format.
func writeBinaryResult(c *Conn, result *sqltypes.Result) error {
	n := len(result.Fields)
	data := c.startEphemeralPacket(lenEncIntSize(uint64(n)))
	writeLenEncInt(data, 0, uint64(n))
	if err := c.writeEphemeralPacket(); err != nil {
		return err
	}
	for _, field := range result.Fields {
		if err := writeFieldPacket(c, field); err != nil {
			return err
		}
	}
	if c.Capabilities&CapabilityClientDeprecateEOF == 0 {
		if err := c.writeEOFPacket(result.StatusFlags, 0); err != nil {
			return err
		}
	}
	for _, row := range result.Rows {
		if err := writeBinaryRow(c, result.Fields, row); err != nil {
			return err
		}
	}
	if c.Capabilities&CapabilityClientDeprecateEOF != 0 {
		return c.writeOKPacketWithEOFHeader(0, 0, result.StatusFlags, 0)
	}
	return c.writeEOFPacket(result.StatusFlags, 0)
}

// writeBinaryRow encodes one row per the columns' wire types. The
// fake server only speaks the types its tests use: the integer
// family, doubles, and the length-encoded string family.
func writeBinaryRow(c *Conn, fields []*sqltypes.Field, row []sqltypes.Value) error {
	colCount := len(fields)
	bitmapLen := (colCount + 7 + 2) / 8
	length := 1 + bitmapLen
	for i, val := range row {
		if val.IsNull() {
			continue
		}
		typ, _ := sqltypes.TypeToMySQL(fields[i].Type)
		switch typ {
		case typeLongLong, typeDouble:
			length += 8
		default:
			length += lenEncStringSize(val.RawStr())
		}
	}

	data := c.startEphemeralPacket(length)
	pos := writeByte(data, 0, OKPacket)
	bitmapPos := pos
	pos = writeZeroes(data, pos, bitmapLen)
	for i, val := range row {
		if val.IsNull() {
			data[bitmapPos+(i+2)/8] |= 1 << (uint(i+2) & 7)
			continue
		}
		typ, _ := sqltypes.TypeToMySQL(fields[i].Type)
		switch typ {
		case typeLongLong:
			if sqltypes.IsUnsigned(fields[i].Type) {
				v, err := val.ToUint64()
				if err != nil {
					return err
				}
				pos = writeUint64(data, pos, v)
			} else {
				v, err := val.ToInt64()
				if err != nil {
					return err
				}
				pos = writeUint64(data, pos, uint64(v))
			}
		case typeDouble:
			v, err := val.ToFloat64()
			if err != nil {
				return err
			}
			pos = writeUint64(data, pos, math.Float64bits(v))
		default:
			pos = writeLenEncString(data, pos, val.RawStr())
		}
	}
	if pos != len(data) {
		return fmt.Errorf("writeBinaryRow: packed %v of %v bytes", pos, len(data))
	}
	return c.writeEphemeralPacket()
}
