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
	"context"
	"crypto/tls"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywire.io/mywire/go/mw/mwtls"
	"mywire.io/mywire/go/mw/tlstest"
)

func TestConnectNativePassword(t *testing.T) {
	s := newFakeServer(t)

	conn, err := Connect(context.Background(), s.connParams())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "8.0.34", conn.ServerVersion)
	assert.False(t, conn.IsMariaDB())
	assert.False(t, conn.TLSEnabled())
	require.NoError(t, conn.Ping())
}

func TestConnectWrongPassword(t *testing.T) {
	s := newFakeServer(t)

	params := s.connParams()
	params.Pass = "not the password"
	_, err := Connect(context.Background(), params)
	require.Error(t, err)

	sqlErr, ok := err.(*SQLError)
	require.True(t, ok, "expected *SQLError, got %T: %v", err, err)
	assert.Equal(t, ERAccessDeniedError, sqlErr.Number())
	assert.Equal(t, SSAccessDeniedError, sqlErr.SQLState())
}

func TestConnectWithDbName(t *testing.T) {
	s := newFakeServer(t, withAuthScript(func(s *fakeServer, c *Conn, salt []byte, hello *clientHello) error {
		assert.Equal(t, "mydb", hello.database)
		return s.defaultAuth(c, salt, hello)
	}))

	params := s.connParams()
	params.DbName = "mydb"
	conn, err := Connect(context.Background(), params)
	require.NoError(t, err)
	conn.Close()
}

func TestConnectCachingSha2FastPath(t *testing.T) {
	s := newFakeServer(t,
		withAuthPlugin(CachingSha2Password),
		withAuthScript(func(s *fakeServer, c *Conn, salt []byte, hello *clientHello) error {
			expected := ScrambleCachingSha2Password(salt, []byte(s.password))
			if !bytes.Equal(hello.authResponse, expected) {
				t.Errorf("bad caching_sha2 scramble:\n%v, want\n%v", hello.authResponse, expected)
			}
			if err := writeAuthMoreData(c, []byte{CachingSha2FastAuthSuccess}); err != nil {
				return err
			}
			return c.writeOKPacket(0, 0, ServerStatusAutocommit, 0)
		}))

	conn, err := Connect(context.Background(), s.connParams())
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "caching_sha2_password over plaintext", conn.AuthSummary())
}

func TestConnectCachingSha2FullPathLocal(t *testing.T) {
	// The full path over a loopback connection sends the clear
	// password directly, no public key round trip.
	s := newFakeServer(t,
		withAuthPlugin(CachingSha2Password),
		withAuthScript(func(s *fakeServer, c *Conn, salt []byte, hello *clientHello) error {
			if err := writeAuthMoreData(c, []byte{CachingSha2PerformFullAuthentication}); err != nil {
				return err
			}
			data, err := c.readPacket()
			if err != nil {
				return err
			}
			expected := append([]byte(s.password), 0)
			if !bytes.Equal(data, expected) {
				t.Errorf("full auth password = %q, want %q", data, expected)
			}
			return c.writeOKPacket(0, 0, ServerStatusAutocommit, 0)
		}))

	conn, err := Connect(context.Background(), s.connParams())
	require.NoError(t, err)
	conn.Close()
}

func TestConnectSha256PublicKeyExchange(t *testing.T) {
	// sha256_password over a plain channel: the server pushes its
	// public key as auth more data, the client answers with the
	// RSA-OAEP encrypted, salt-XORed password.
	s := newFakeServer(t, withAuthPlugin(Sha256Password))
	s.authScript = func(s *fakeServer, c *Conn, salt []byte, hello *clientHello) error {
		if err := writeAuthMoreData(c, s.publicKeyPEM()); err != nil {
			return err
		}
		enc, err := c.readPacket()
		if err != nil {
			return err
		}
		pass, err := s.decryptPassword(salt, enc)
		if err != nil {
			t.Errorf("decrypting password failed: %v", err)
			return err
		}
		if pass != s.password {
			t.Errorf("decrypted password = %q, want %q", pass, s.password)
		}
		return c.writeOKPacket(0, 0, ServerStatusAutocommit, 0)
	}

	conn, err := Connect(context.Background(), s.connParams())
	require.NoError(t, err)
	conn.Close()
}

func TestConnectAuthSwitch(t *testing.T) {
	// The server greets with caching_sha2_password, then switches the
	// client to mysql_native_password with a fresh challenge. The
	// client has to rescramble against the new salt without
	// renegotiating capabilities.
	s := newFakeServer(t,
		withAuthPlugin(CachingSha2Password),
		withAuthScript(func(s *fakeServer, c *Conn, salt []byte, hello *clientHello) error {
			salt2, err := NewSalt()
			if err != nil {
				return err
			}
			if err := writeAuthSwitchRequest(c, MysqlNativePassword, salt2); err != nil {
				return err
			}
			response, err := c.readPacket()
			if err != nil {
				return err
			}
			expected := ScrambleMysqlNativePassword(salt2, []byte(s.password))
			if !bytes.Equal(response, expected) {
				t.Errorf("switched scramble:\n%v, want\n%v", response, expected)
			}
			return c.writeOKPacket(0, 0, ServerStatusAutocommit, 0)
		}))

	conn, err := Connect(context.Background(), s.connParams())
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "mysql_native_password over plaintext", conn.AuthSummary())
}

func TestConnectTooManyAuthSwitches(t *testing.T) {
	s := newFakeServer(t, withAuthScript(func(s *fakeServer, c *Conn, salt []byte, hello *clientHello) error {
		for {
			salt2, err := NewSalt()
			if err != nil {
				return err
			}
			if err := writeAuthSwitchRequest(c, MysqlNativePassword, salt2); err != nil {
				return err
			}
			if _, err := c.readPacket(); err != nil {
				// The client gave up, as it should.
				return err
			}
		}
	}))

	_, err := Connect(context.Background(), s.connParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication plugin switches")
}

func TestConnectClearPasswordPolicy(t *testing.T) {
	s := newFakeServer(t, withAuthPlugin(MysqlClearPassword))

	// Refused without opting in.
	_, err := Connect(context.Background(), s.connParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleartext")

	// Works once allowed explicitly.
	params := s.connParams()
	params.AllowClearTextWithoutTLS = true
	conn, err := Connect(context.Background(), params)
	require.NoError(t, err)
	conn.Close()
}

func TestConnectTLS(t *testing.T) {
	root := t.TempDir()
	pair := tlstest.CreateServerCertPair(root)
	cert, err := tls.LoadX509KeyPair(pair.Cert, pair.Key)
	require.NoError(t, err)

	s := newFakeServer(t, withTLSConfig(&tls.Config{Certificates: []tls.Certificate{cert}}))

	params := s.connParams()
	params.SslMode = mwtls.VerifyIdentity
	params.SslCa = pair.CA
	params.ServerName = pair.ServerName

	conn, err := Connect(context.Background(), params)
	require.NoError(t, err)
	defer conn.Close()
	assert.True(t, conn.TLSEnabled())
	require.NoError(t, conn.Ping())
}

func TestConnectTLSRequiredButUnsupported(t *testing.T) {
	s := newFakeServer(t)

	params := s.connParams()
	params.SslMode = mwtls.Required
	_, err := Connect(context.Background(), params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server doesn't support SSL but it was required")
}

func TestConnectTLSPreferredFallsBack(t *testing.T) {
	// Preferred mode connects in the clear when the server does not
	// advertise CLIENT_SSL.
	s := newFakeServer(t)

	params := s.connParams()
	params.SslMode = mwtls.Preferred
	conn, err := Connect(context.Background(), params)
	require.NoError(t, err)
	defer conn.Close()
	assert.False(t, conn.TLSEnabled())
}

func TestConnectCompression(t *testing.T) {
	s := newFakeServer(t,
		withCapabilities(CapabilityClientZstdCompressionAlgorithm),
		withHandler(echoHandler))

	params := s.connParams()
	params.EnableCompression = true
	conn, err := Connect(context.Background(), params)
	require.NoError(t, err)
	defer conn.Close()

	// Both small (stored) and large (compressed) envelopes round trip.
	require.NoError(t, conn.Ping())
	result, err := conn.ExecuteFetch("select "+strings.Repeat("x", 5000), 10, true)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, strings.Repeat("x", 5000), result.Rows[0][0].ToString())
}

func TestConnectCompressionUnsupported(t *testing.T) {
	s := newFakeServer(t)

	params := s.connParams()
	params.EnableCompression = true
	_, err := Connect(context.Background(), params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zstd")
}

func TestConnectContextCanceled(t *testing.T) {
	// A listener that accepts and never speaks. Connect has to honor
	// the context instead of hanging in the initial read.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(500 * time.Millisecond)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	params := &ConnParams{
		Host:  "127.0.0.1",
		Port:  listener.Addr().(*net.TCPAddr).Port,
		Uname: "gopher",
	}
	_, err = Connect(ctx, params)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectRefused(t *testing.T) {
	// Grab a port and close it again so nothing is listening.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	_, err = Connect(context.Background(), &ConnParams{Host: "127.0.0.1", Port: port})
	require.Error(t, err)
	sqlErr, ok := err.(*SQLError)
	require.True(t, ok, "expected *SQLError, got %T: %v", err, err)
	assert.Equal(t, CRConnHostError, sqlErr.Number())
}

func TestParseInitialHandshakePacketErr(t *testing.T) {
	// The server may answer the TCP connect with an immediate ERR
	// packet, before any handshake.
	c := &Conn{}
	data := []byte{ErrPacket, 0x10, 0x04, 'T', 'o', 'o', ' ', 'm', 'a', 'n', 'y'}
	_, _, _, err := c.parseInitialHandshakePacket(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immediate error from server")
	assert.Contains(t, err.Error(), "1040")
}

// echoHandler answers "select <text>" with a one-row result holding
// the text, close enough to a server for transport tests.
func echoHandler(c *Conn, query string) error {
	text := strings.TrimPrefix(query, "select ")
	result := makeTextResult([]string{"value"}, [][]string{{text}})
	return writeTextResult(c, result)
}

func TestSha256InsecureInitialResponse(t *testing.T) {
	// sha256_password over a plain remote channel must never put the
	// cleartext password on the wire: the first response is the one
	// byte public key request. net.Pipe is neither TLS, a unix socket
	// nor loopback, so the channel counts as insecure.
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	c := newConn(client)

	params := &ConnParams{Pass: "password1", AllowPublicKeyRetrieval: true}
	response, err := c.authResponseForChannel(Sha256Password, params)
	require.NoError(t, err)
	assert.Equal(t, []byte{Sha256RequestPublicKey}, response)
	assert.NotContains(t, string(response), params.Pass)

	// With retrieval disallowed there is nothing safe to send at all.
	_, err = c.authResponseForChannel(Sha256Password, &ConnParams{Pass: "password1"})
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestSha256PushedKeyHonorsRetrievalPolicy(t *testing.T) {
	// Servers may push their RSA key unprompted as auth more data. On
	// a plain remote channel with key retrieval disallowed the client
	// refuses instead of encrypting against an unverified key.
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	c := newConn(client)

	err := c.handleAuthMoreData([]byte{AuthMoreDataPacket}, Sha256Password, &ConnParams{Pass: "password1"})
	require.ErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "public key retrieval is disallowed")
}

func TestConnectTracer(t *testing.T) {
	s := newFakeServer(t)

	var mu sync.Mutex
	reads, writes := 0, 0
	params := s.connParams().WithTracer(func(direction string, length int, sequence uint8) {
		mu.Lock()
		defer mu.Unlock()
		switch direction {
		case "read":
			reads++
		case "write":
			writes++
		default:
			t.Errorf("unexpected trace direction %q", direction)
		}
	})

	conn, err := Connect(context.Background(), &params)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Ping())

	mu.Lock()
	defer mu.Unlock()
	// At least the initial handshake, the response and the ping round
	// trip have to show up.
	assert.GreaterOrEqual(t, reads, 2)
	assert.GreaterOrEqual(t, writes, 2)
}

func TestConnectServerClosesEarly(t *testing.T) {
	// A server that drops the connection before the initial handshake
	// is a lost server, not a refused connection.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	params := &ConnParams{
		Host:  "127.0.0.1",
		Port:  listener.Addr().(*net.TCPAddr).Port,
		Uname: "gopher",
	}
	_, err = Connect(context.Background(), params)
	require.Error(t, err)
	sqlErr, ok := err.(*SQLError)
	require.True(t, ok, "expected *SQLError, got %T: %v", err, err)
	assert.Equal(t, CRServerLost, sqlErr.Number())
}
