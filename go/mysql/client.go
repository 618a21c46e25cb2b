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
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"mywire.io/mywire/go/mw/log"
	"mywire.io/mywire/go/mw/mwtls"
)

// maxAuthSwitches bounds how many times the server may restart the
// authentication exchange with a different plugin. Real servers
// switch at most once; two leaves room for a switch followed by the
// caching_sha2 sub-protocol on the new plugin.
const maxAuthSwitches = 2

// zstdCompressionLevel is the level byte sent in the handshake
// response when the compressed protocol is negotiated.
const zstdCompressionLevel = 3

// Connect creates a connection to a server. It then handles the
// initial handshake.
//
// If context is canceled before the end of the process, this function
// will return nil, ctx.Err().
//
// FIXME(alainjobart) once we have more of a server side, add test cases
// to cover all failure scenarios.
func Connect(ctx context.Context, params *ConnParams) (*Conn, error) {
	netProto := "tcp"
	addr := ""
	if params.UnixSocket != "" {
		netProto = "unix"
		addr = params.UnixSocket
	} else {
		addr = net.JoinHostPort(params.Host, strconv.Itoa(params.Port))
	}

	dialer := &net.Dialer{
		Timeout: params.DialTimeout,
	}
	conn, err := dialer.DialContext(ctx, netProto, addr)
	if err != nil {
		// If we get an error, the connection to a Unix socket
		// should return a 2002, but for a TCP socket it
		// should return a 2003.
		if netProto == "tcp" {
			return nil, NewSQLError(CRConnHostError, SSNetError, "net.Dial(%v) failed: %v", addr, err)
		}
		return nil, NewSQLError(CRConnectionError, SSNetError, "net.Dial(%v) to local server failed: %v", addr, err)
	}

	c := newConn(conn)
	c.readTimeout = params.ReadTimeout
	c.debug = params.Debug
	c.tracer = params.Tracer
	for _, opt := range params.SocketOptions {
		opt(c)
	}

	// Client name is passed in for error messages.
	c.User = params.Uname

	// Send the connection back, so the other side can close it.
	connectResult := make(chan error)
	go func() {
		connectResult <- c.clientHandshake(params)
	}()

	// Wait on the context and the error, simultaneously.
	select {
	case <-ctx.Done():
		// The background routine may be stuck in a read. Closing the
		// socket unblocks it, then we drain its result.
		c.Close()
		<-connectResult
		return nil, ctx.Err()
	case err := <-connectResult:
		if err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	}
}

// clientHandshake handles the client side of the handshake.
// Note the connection can be closed while this is running.
// Returns a SQLError.
func (c *Conn) clientHandshake(params *ConnParams) error {
	// Wait for the server initial handshake packet, and parse it.
	data, err := c.readPacket()
	if err != nil {
		return NewSQLError(CRServerLost, SSNetError, "initial packet read failed: %v", err)
	}
	capabilities, salt, authPluginName, err := c.parseInitialHandshakePacket(data)
	if err != nil {
		return err
	}
	c.fillFlavor()
	c.salt = salt

	// Sanity check.
	if capabilities&CapabilityClientProtocol41 == 0 {
		return capabilityErrorf("cannot connect to servers earlier than 4.1")
	}

	// Figure out the character set we want.
	charset, err := resolveCharacterSet(params.Charset)
	if err != nil {
		return err
	}
	c.CharacterSet = charset

	// Build our flags, taking into account the server's.
	capFlags := uint32(CapabilityClientLongPassword|
		CapabilityClientLongFlag|
		CapabilityClientProtocol41|
		CapabilityClientTransactions|
		CapabilityClientSecureConnection|
		CapabilityClientMultiStatements|
		CapabilityClientMultiResults|
		CapabilityClientPluginAuth|
		CapabilityClientPluginAuthLenencClientData) & capabilities
	if params.DbName != "" {
		if capabilities&CapabilityClientConnectWithDB == 0 {
			return capabilityErrorf("server does not support connecting with a database name")
		}
		capFlags |= CapabilityClientConnectWithDB
	}
	if capabilities&CapabilityClientDeprecateEOF != 0 {
		capFlags |= CapabilityClientDeprecateEOF
	}
	if capabilities&CapabilityClientSessionTrack != 0 {
		capFlags |= CapabilityClientSessionTrack
	}
	if params.EnableCompression {
		if capabilities&CapabilityClientZstdCompressionAlgorithm == 0 {
			return capabilityErrorf("server does not support zstd compression")
		}
		capFlags |= CapabilityClientZstdCompressionAlgorithm
	}

	// TLS upgrade decision happens before any auth byte is written.
	if params.SslEnabled() {
		if capabilities&CapabilityClientSSL == 0 {
			if params.SslRequired() {
				return capabilityErrorf("server doesn't support SSL but it was required")
			}
			if params.Debug {
				log.InfoS("server does not support SSL, continuing in the clear", "host", params.Host)
			}
		} else {
			// Build the config first. Construction failures happen
			// before the irreversible SSL request packet.
			clientConfig, err := clientTLSConfig(params)
			if err != nil {
				if !params.SslRequired() && params.TLSFallback {
					log.WarnS("TLS config failed, falling back to plaintext", "err", err)
				} else {
					return tlsErrorf("building TLS config failed: %v", err)
				}
			} else {
				capFlags |= CapabilityClientSSL
				if err := c.writeSSLRequest(capFlags, charset, params); err != nil {
					return err
				}
				tlsConn := tls.Client(c.conn, clientConfig)
				if err := tlsConn.Handshake(); err != nil {
					return tlsErrorf("TLS handshake with %v failed: %v", params.Host, err)
				}
				c.conn = tlsConn
				c.bufferedReader.Reset(tlsConn)
			}
		}
	}

	// Password encryption.
	authResponse, err := c.authResponseForChannel(authPluginName, params)
	if err != nil {
		return err
	}

	// Client Session Tracking Capability.
	if err := c.writeHandshakeResponse41(capFlags, authResponse, charset, authPluginName, params); err != nil {
		return err
	}
	c.Capabilities = capFlags

	// Bounded auth negotiation: plugin switches, more-data
	// sub-protocols, then a terminal OK or ERR.
	if err := c.handleAuthResponse(authPluginName, params); err != nil {
		return err
	}

	if capFlags&CapabilityClientZstdCompressionAlgorithm != 0 {
		c.enableCompression()
	}

	// If the server didn't support DbName in its handshake, set
	// it now. This is what the 'mysql' client does.
	if capabilities&CapabilityClientConnectWithDB == 0 && params.DbName != "" {
		// Write the packet.
		if err := c.writeComInitDB(params.DbName); err != nil {
			return err
		}

		// Wait for response, should be OK.
		response, err := c.readPacket()
		if err != nil {
			return NewSQLError(CRServerLost, SSNetError, "%v", err)
		}
		switch response[0] {
		case OKPacket:
			// great
		case ErrPacket:
			return ParseErrorPacket(response)
		default:
			// FIXME(alainjobart) handle extra auth cases and so on.
			return NewSQLError(CRServerHandshakeErr, SSHandshakeError, "initial server response is asking for more information, not implemented yet")
		}
	}

	return nil
}

// resolveCharacterSet maps the configured charset name to its wire
// id, defaulting to utf8mb4.
func resolveCharacterSet(name string) (uint8, error) {
	if name == "" {
		return CharacterSetUtf8mb4, nil
	}
	charset, ok := CharacterSetMap[name]
	if !ok {
		return 0, NewSQLError(CRCantReadCharset, SSUnknownSQLState, "failed to interpret character set '%v'", name)
	}
	return charset, nil
}

// clientTLSConfig assembles the mwtls options from the connection
// parameters and builds the tls.Config for the upgrade.
func clientTLSConfig(params *ConnParams) (*tls.Config, error) {
	serverName := params.ServerName
	if serverName == "" {
		serverName = params.Host
	}

	options := mwtls.NewOptions(params.EffectiveSslMode())
	if params.TLSParams != nil || params.SslCa != "" {
		p := mwtls.Parameters{CA: params.SslCa}
		if params.TLSParams != nil {
			p = *params.TLSParams
			if p.CA == "" {
				p.CA = params.SslCa
			}
		}
		options = options.WithParameters(p)
	}
	options = options.WithFallback(params.TLSFallback)

	config, err := mwtls.ClientConfig(options, serverName)
	if err != nil {
		return nil, err
	}
	if params.SslCert != "" && params.SslKey != "" {
		crt, err := tls.LoadX509KeyPair(params.SslCert, params.SslKey)
		if err != nil {
			return nil, err
		}
		config.Certificates = []tls.Certificate{crt}
	}
	return config, nil
}

// TLSEnabled returns true if this connection was upgraded to TLS.
func (c *Conn) TLSEnabled() bool {
	_, ok := c.conn.(*tls.Conn)
	return ok
}

// IsLocal returns true if the connection runs over a unix socket or
// loopback, where plaintext secrets are tolerated by MySQL's rules.
func (c *Conn) IsLocal() bool {
	if _, ok := c.conn.(*net.UnixConn); ok {
		return true
	}
	if tcp, ok := c.conn.(*net.TCPConn); ok {
		if addr, ok := tcp.RemoteAddr().(*net.TCPAddr); ok {
			return addr.IP.IsLoopback()
		}
	}
	return false
}

// authResponseForChannel computes the first auth response, applying
// the channel policy checks the raw scramblers cannot know about.
func (c *Conn) authResponseForChannel(authPluginName string, params *ConnParams) ([]byte, error) {
	switch authPluginName {
	case MysqlClearPassword:
		if !c.TLSEnabled() && !params.AllowClearTextWithoutTLS {
			return nil, authErrorf("cannot send cleartext password over an insecure channel")
		}
	case Sha256Password:
		// Over an insecure channel the password never goes out in the
		// clear. The client asks for the server's RSA public key and
		// sends the encrypted password from handleAuthMoreData.
		if !c.TLSEnabled() && !c.IsLocal() {
			if !params.AllowPublicKeyRetrieval {
				return nil, authErrorf("public key retrieval is disallowed, cannot complete sha256_password over an insecure channel")
			}
			return []byte{Sha256RequestPublicKey}, nil
		}
	}
	return authResponseForPlugin(authPluginName, c.salt, params.Pass)
}

// parseInitialHandshakePacket parses the initial handshake from the server.
// It returns a SQLError with the right code.
func (c *Conn) parseInitialHandshakePacket(data []byte) (uint32, []byte, string, error) {
	pos := 0

	// Protocol version.
	pver, pos, ok := readByte(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRVersionError, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no protocol version")
	}

	// Server is allowed to immediately send ERR packet
	if pver == ErrPacket {
		errorCode, pos, _ := readUint16(data, pos)
		// Normally there would be a 1-byte sql_state_marker field and a 5-byte
		// sql_state field here, but docs say these will not be present in this case.
		errorMsg, _, _ := readEOFString(data, pos)
		return 0, nil, "", NewSQLError(CRServerHandshakeErr, SSHandshakeError, "immediate error from server errorCode=%v errorMsg=%v", errorCode, errorMsg)
	}

	if pver != protocolVersion {
		return 0, nil, "", NewSQLError(CRVersionError, SSUnknownSQLState, "bad protocol version: %v", pver)
	}

	// Read the server version.
	c.ServerVersion, pos, ok = readNullString(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no server version")
	}

	// Read the connection id.
	c.ConnectionID, pos, ok = readUint32(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no connection id")
	}

	// Read the first part of the auth-plugin-data
	authPluginData, pos, ok := readBytesCopy(data, pos, 8)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no auth-plugin-data-part-1")
	}

	// One byte filler, 0. We don't really care about the value.
	_, pos, ok = readByte(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no filler")
	}

	// Lower 2 bytes of the capability flags.
	capLower, pos, ok := readUint16(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no capability flags (lower 2 bytes)")
	}
	var capabilities = uint32(capLower)

	// The packet can end here.
	if pos == len(data) {
		return capabilities, authPluginData, MysqlNativePassword, nil
	}

	// Character set.
	characterSet, pos, ok := readByte(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no character set")
	}
	c.CharacterSet = characterSet

	// Status flags. Ignored.
	_, pos, ok = readUint16(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no status flags")
	}

	// Upper 2 bytes of the capability flags.
	capUpper, pos, ok := readUint16(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no capability flags (upper 2 bytes)")
	}
	capabilities += uint32(capUpper) << 16

	// Length of auth-plugin-data, or 0.
	// Only with CLIENT_PLUGIN_AUTH.
	authPluginDataLength, pos, ok := readByte(data, pos)
	if !ok {
		return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no length of auth-plugin-data")
	}

	// 10 reserved 0 bytes.
	pos += 10

	if capabilities&CapabilityClientSecureConnection != 0 {
		// The next part of the auth-plugin-data.
		// The length is max(13, length of auth-plugin-data - 8).
		l := 13
		if authPluginDataLength > 21 {
			l = int(authPluginDataLength) - 8
		}
		var authPluginDataPart2 []byte
		authPluginDataPart2, pos, ok = readBytesCopy(data, pos, l)
		if !ok {
			return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no auth-plugin-data-part-2")
		}

		// The last byte has to be 0, and is not part of the data.
		if authPluginDataPart2[l-1] != 0 {
			return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: auth-plugin-data-part-2 is not 0 terminated")
		}
		authPluginData = append(authPluginData, authPluginDataPart2[0:l-1]...)
	}

	// Auth-plugin name.
	authPluginName := MysqlNativePassword
	if capabilities&CapabilityClientPluginAuth != 0 {
		var name string
		name, _, ok = readNullString(data, pos)
		if !ok {
			// Fallback for versions prior to 5.5.10 and
			// 5.6.2 that don't have a null terminated string.
			if pos >= len(data) {
				return 0, nil, "", NewSQLError(CRMalformedPacket, SSUnknownSQLState, "parseInitialHandshakePacket: packet has no auth-plugin name")
			}
			name = string(data[pos : len(data)-1])
		}
		authPluginName = name
	}

	return capabilities, authPluginData, authPluginName, nil
}

// writeSSLRequest writes the SSLRequest packet. It's just a truncated
// HandshakeResponse41.
func (c *Conn) writeSSLRequest(capabilities uint32, characterSet uint8, params *ConnParams) error {
	// Build our flags, with CapabilityClientSSL.
	capFlags := capabilities | CapabilityClientSSL

	length :=
		4 + // Client capability flags.
			4 + // Max-packet size.
			1 + // Character set.
			23 // Reserved.

	// Add the DB name if the server supports it.
	if params.DbName != "" && (capabilities&CapabilityClientConnectWithDB != 0) {
		capFlags |= CapabilityClientConnectWithDB
	}

	data := c.startEphemeralPacket(length)
	pos := 0

	// Client capability flags.
	pos = writeUint32(data, pos, capFlags)

	// Max-packet size, always 0. See doc.go.
	pos = writeZeroes(data, pos, 4)

	// Character set.
	_ = writeByte(data, pos, characterSet)

	// And send it as is.
	if err := c.writeEphemeralPacket(); err != nil {
		return NewSQLError(CRServerLost, SSNetError, "cannot send SSLRequest: %v", err)
	}
	return nil
}

// writeHandshakeResponse41 writes the handshake response.
// Returns a SQLError.
func (c *Conn) writeHandshakeResponse41(capabilities uint32, scrambledPassword []byte, characterSet uint8, authPluginName string, params *ConnParams) error {
	// Build our flags.
	capFlags := capabilities

	// FIXME(alainjobart) add multi statement.

	length :=
		4 + // Client capability flags.
			4 + // Max-packet size.
			1 + // Character set.
			23 + // Reserved.
			lenNullString(params.Uname) +
			// length of scrambled password is handled below.
			len(scrambledPassword) +
			lenNullString(authPluginName)

	// Add the DB name if the server supports it.
	if params.DbName != "" && (capabilities&CapabilityClientConnectWithDB != 0) {
		length += lenNullString(params.DbName)
	}

	if capFlags&CapabilityClientPluginAuthLenencClientData != 0 {
		length += lenEncIntSize(uint64(len(scrambledPassword)))
	} else {
		length++
	}

	if capFlags&CapabilityClientZstdCompressionAlgorithm != 0 {
		length++
	}

	data := c.startEphemeralPacket(length)
	pos := 0

	// Client capability flags.
	pos = writeUint32(data, pos, capFlags)

	// Max-packet size, always 0. See doc.go.
	pos = writeZeroes(data, pos, 4)

	// Character set.
	pos = writeByte(data, pos, characterSet)

	// 23 reserved bytes, all 0.
	pos = writeZeroes(data, pos, 23)

	// Username
	pos = writeNullString(data, pos, params.Uname)

	// Scrambled password.  The length is encoded as variable length if
	// CapabilityClientPluginAuthLenencClientData is set.
	if capFlags&CapabilityClientPluginAuthLenencClientData != 0 {
		pos = writeLenEncInt(data, pos, uint64(len(scrambledPassword)))
	} else {
		data[pos] = byte(len(scrambledPassword))
		pos++
	}
	pos += copy(data[pos:], scrambledPassword)

	// DbName, only if server supports it.
	if params.DbName != "" && (capabilities&CapabilityClientConnectWithDB != 0) {
		pos = writeNullString(data, pos, params.DbName)
	}

	// Assume native client during response
	pos = writeNullString(data, pos, authPluginName)

	// The zstd compression level closes the packet.
	if capFlags&CapabilityClientZstdCompressionAlgorithm != 0 {
		pos = writeByte(data, pos, zstdCompressionLevel)
	}

	// Sanity-check the length.
	if pos != len(data) {
		return framingErrorf("writeHandshakeResponse41: only packed %v bytes, out of %v allocated", pos, len(data))
	}

	if err := c.writeEphemeralPacket(); err != nil {
		return NewSQLError(CRServerLost, SSNetError, "cannot send HandshakeResponse41: %v", err)
	}
	return nil
}

// handleAuthResponse parses server packets that follow the handshake
// response until a terminal OK or ERR, going through plugin switches
// and the caching_sha2 / sha256 more-data sub-protocols.
func (c *Conn) handleAuthResponse(authPluginName string, params *ConnParams) error {
	switches := 0
	for {
		response, err := c.readPacket()
		if err != nil {
			return NewSQLError(CRServerLost, SSNetError, "%v", err)
		}
		if len(response) == 0 {
			return NewSQLError(CRMalformedPacket, SSUnknownSQLState, "auth response packet is empty")
		}

		switch response[0] {
		case OKPacket:
			return c.finishAuth(response, authPluginName)

		case ErrPacket:
			return ParseErrorPacket(response)

		case AuthMoreDataPacket:
			if err := c.handleAuthMoreData(response, authPluginName, params); err != nil {
				return err
			}

		case AuthSwitchRequestPacket:
			// A true EOF would be shorter; 0xfe with a payload is an
			// auth switch request.
			switches++
			if switches > maxAuthSwitches {
				return authErrorf("server requested too many authentication plugin switches (%v)", switches)
			}
			pluginName, salt, err := parseAuthSwitchRequest(response)
			if err != nil {
				return err
			}
			c.salt = salt
			authPluginName = pluginName

			authResponse, err := c.authResponseForChannel(authPluginName, params)
			if err != nil {
				return err
			}
			if err := c.writePacket(authResponse); err != nil {
				return NewSQLError(CRServerLost, SSNetError, "cannot send auth switch response: %v", err)
			}

		default:
			return NewSQLError(CRMalformedPacket, SSUnknownSQLState, "initial server response cannot be parsed: %v", response)
		}
	}
}

// handleAuthMoreData drives the caching_sha2_password and
// sha256_password sub-protocols.
func (c *Conn) handleAuthMoreData(response []byte, authPluginName string, params *ConnParams) error {
	switch authPluginName {
	case CachingSha2Password:
		if len(response) < 2 {
			return NewSQLError(CRMalformedPacket, SSUnknownSQLState, "truncated caching_sha2_password response: %v", response)
		}
		switch response[1] {
		case CachingSha2FastAuthSuccess:
			// Server found the scramble in its cache. The terminal OK
			// follows, nothing to send.
			return nil
		case CachingSha2PerformFullAuthentication:
			return c.performFullAuthentication(params)
		default:
			return NewSQLError(CRMalformedPacket, SSUnknownSQLState, "unknown caching_sha2_password signal: %v", response[1])
		}

	case Sha256Password:
		// The more-data payload is the server's public key. Servers may
		// push it unprompted, so the retrieval policy applies here too.
		if !c.TLSEnabled() && !c.IsLocal() && !params.AllowPublicKeyRetrieval {
			return authErrorf("public key retrieval is disallowed, cannot complete sha256_password over an insecure channel")
		}
		pub, err := parseRSAPublicKey(response[1:])
		if err != nil {
			return err
		}
		enc, err := EncryptPasswordWithPublicKey(c.salt, []byte(params.Pass), pub)
		if err != nil {
			return authErrorf("error encrypting password with public key: %v", err)
		}
		if err := c.writePacket(enc); err != nil {
			return NewSQLError(CRServerLost, SSNetError, "cannot send encrypted password: %v", err)
		}
		return nil

	default:
		return NewSQLError(CRMalformedPacket, SSUnknownSQLState, "unexpected auth more data for plugin %v", authPluginName)
	}
}

// performFullAuthentication is the caching_sha2_password full path:
// clear password over a secure channel, RSA-encrypted password after
// a public key round trip otherwise.
func (c *Conn) performFullAuthentication(params *ConnParams) error {
	if c.TLSEnabled() || c.IsLocal() {
		if err := c.writePacket(append([]byte(params.Pass), 0)); err != nil {
			return NewSQLError(CRServerLost, SSNetError, "cannot send password: %v", err)
		}
		return nil
	}

	if !params.AllowPublicKeyRetrieval {
		return authErrorf("public key retrieval is disallowed, cannot complete caching_sha2_password over an insecure channel")
	}

	// Ask the server for its public key.
	if err := c.writePacket([]byte{AuthRequestPublicKey}); err != nil {
		return NewSQLError(CRServerLost, SSNetError, "cannot send public key request: %v", err)
	}
	response, err := c.readPacket()
	if err != nil {
		return NewSQLError(CRServerLost, SSNetError, "%v", err)
	}
	if len(response) == 0 || response[0] != AuthMoreDataPacket {
		if len(response) > 0 && response[0] == ErrPacket {
			return ParseErrorPacket(response)
		}
		return NewSQLError(CRMalformedPacket, SSUnknownSQLState, "unexpected public key response: %v", response)
	}

	pub, err := parseRSAPublicKey(response[1:])
	if err != nil {
		return err
	}
	enc, err := EncryptPasswordWithPublicKey(c.salt, []byte(params.Pass), pub)
	if err != nil {
		return authErrorf("error encrypting password with public key: %v", err)
	}
	if err := c.writePacket(enc); err != nil {
		return NewSQLError(CRServerLost, SSNetError, "cannot send encrypted password: %v", err)
	}
	return nil
}

// finishAuth records the state carried by the terminal OK packet.
func (c *Conn) finishAuth(response []byte, authPluginName string) error {
	packetOK, err := parsePacketOK(response)
	if err != nil {
		return err
	}
	c.StatusFlags = packetOK.statusFlags
	c.authPluginName = authPluginName
	return nil
}

// parseAuthSwitchRequest parses the plugin name and new challenge out
// of an auth switch request packet.
func parseAuthSwitchRequest(data []byte) (string, []byte, error) {
	pos := 1
	pluginName, pos, ok := readNullString(data, pos)
	if !ok {
		return "", nil, NewSQLError(CRMalformedPacket, SSUnknownSQLState, "cannot get plugin name from auth switch request: %v", data)
	}

	// If this was a request with a salt in it, max 20 bytes
	salt := data[pos:]
	if len(salt) > 20 {
		salt = salt[0:20]
	}
	return pluginName, salt, nil
}

// writeComInitDB changes the default database of the connection.
func (c *Conn) writeComInitDB(db string) error {
	c.resetSequence()
	data := c.startEphemeralPacket(len(db) + 1)
	pos := writeByte(data, 0, ComInitDB)
	copy(data[pos:], db)
	if err := c.writeEphemeralPacket(); err != nil {
		return NewSQLError(CRServerLost, SSNetError, "cannot send ComInitDB: %v", err)
	}
	if err := c.flush(); err != nil {
		return NewSQLError(CRServerLost, SSNetError, "cannot flush ComInitDB: %v", err)
	}
	return nil
}

// Describe-style helper: a human readable auth summary, used by the
// CLI's verbose mode.
func (c *Conn) AuthSummary() string {
	secure := "plaintext"
	if c.TLSEnabled() {
		secure = "TLS"
	}
	return fmt.Sprintf("%s over %s", c.authPluginName, secure)
}
