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
	"time"

	"mywire.io/mywire/go/mw/mwtls"
)

// DatabaseTerm selects which SQL vocabulary metadata helpers use for
// the "current database" concept.
type DatabaseTerm int

const (
	// DatabaseTermSchema treats databases as schemas. This is the
	// MySQL default.
	DatabaseTermSchema DatabaseTerm = iota
	// DatabaseTermCatalog treats databases as catalogs, matching
	// connectors that map the database to the catalog level.
	DatabaseTermCatalog
)

// ConnParams contains all the parameters to use to connect to mysql.
//
// A ConnParams value is treated as immutable once a connection has
// been established from it: every With* mutator returns a modified
// copy and never touches the receiver, so a single value can safely
// seed any number of connections from concurrent goroutines.
type ConnParams struct {
	Host       string
	Port       int
	Uname      string
	Pass       string
	DbName     string
	UnixSocket string
	Charset    string
	Flags      uint64

	// SslMode is the SSL policy for this connection. An empty mode
	// with CapabilityClientSSL set in Flags behaves like
	// VerifyIdentity, for backward compatibility.
	SslMode    mwtls.SslMode
	SslCa      string
	SslCaPath  string
	SslCert    string
	SslKey     string
	ServerName string

	// TLSParams overrides protocol versions, cipher suites and
	// acceptable server names when set.
	TLSParams *mwtls.Parameters

	// TLSFallback retries without TLS when a Preferred-mode TLS
	// handshake fails.
	TLSFallback bool

	// AllowPublicKeyRetrieval permits asking the server for its RSA
	// public key over a plaintext channel during caching_sha2 or
	// sha256 full authentication.
	AllowPublicKeyRetrieval bool

	// AllowClearTextWithoutTLS permits mysql_clear_password over a
	// connection that did not negotiate TLS.
	AllowClearTextWithoutTLS bool

	// EnableCompression negotiates the zstd compressed protocol when
	// the server offers it.
	EnableCompression bool

	// DialTimeout bounds the TCP/unix dial. Zero means no bound.
	DialTimeout time.Duration

	// ReadTimeout bounds every packet read on the resulting
	// connection. Zero means no bound.
	ReadTimeout time.Duration

	// SocketOptions are applied to the raw connection in order,
	// before the handshake starts.
	SocketOptions []SocketOption

	// DatabaseTerm drives the vocabulary of metadata helpers.
	DatabaseTerm DatabaseTerm

	// Debug turns on packet-level tracing through mw/log.
	Debug bool

	// Tracer, when set, observes every framed packet on connections
	// made from these parameters, independent of Debug.
	Tracer PacketTracer
}

// SocketOption tweaks the raw network connection before any protocol
// byte is exchanged.
type SocketOption func(c *Conn)

// PacketTracer observes framed packets as they cross the wire. The
// direction is "read" or "write"; length and sequence describe the
// reassembled payload.
type PacketTracer func(direction string, length int, sequence uint8)

// WithHost returns a copy with the host replaced.
func (cp ConnParams) WithHost(host string) ConnParams {
	cp.Host = host
	return cp
}

// WithPort returns a copy with the port replaced.
func (cp ConnParams) WithPort(port int) ConnParams {
	cp.Port = port
	return cp
}

// WithUser returns a copy with the user name replaced.
func (cp ConnParams) WithUser(uname string) ConnParams {
	cp.Uname = uname
	return cp
}

// WithPassword returns a copy with the password replaced.
func (cp ConnParams) WithPassword(pass string) ConnParams {
	cp.Pass = pass
	return cp
}

// WithDbName returns a copy with the default database replaced.
func (cp ConnParams) WithDbName(dbName string) ConnParams {
	cp.DbName = dbName
	return cp
}

// WithUnixSocket returns a copy connecting through the given socket
// path instead of TCP.
func (cp ConnParams) WithUnixSocket(path string) ConnParams {
	cp.UnixSocket = path
	return cp
}

// WithCharset returns a copy with the connection charset replaced.
func (cp ConnParams) WithCharset(charset string) ConnParams {
	cp.Charset = charset
	return cp
}

// WithSslMode returns a copy with the SSL policy replaced.
func (cp ConnParams) WithSslMode(mode mwtls.SslMode) ConnParams {
	cp.SslMode = mode
	return cp
}

// WithTLSParams returns a copy with TLS override parameters set.
func (cp ConnParams) WithTLSParams(params *mwtls.Parameters) ConnParams {
	cp.TLSParams = params
	return cp
}

// WithDialTimeout returns a copy with the dial bound replaced.
func (cp ConnParams) WithDialTimeout(d time.Duration) ConnParams {
	cp.DialTimeout = d
	return cp
}

// WithReadTimeout returns a copy with the read bound replaced.
func (cp ConnParams) WithReadTimeout(d time.Duration) ConnParams {
	cp.ReadTimeout = d
	return cp
}

// WithSocketOption returns a copy with the option appended to the
// ordered option list. The receiver's list is never shared.
func (cp ConnParams) WithSocketOption(opt SocketOption) ConnParams {
	opts := make([]SocketOption, 0, len(cp.SocketOptions)+1)
	opts = append(opts, cp.SocketOptions...)
	opts = append(opts, opt)
	cp.SocketOptions = opts
	return cp
}

// WithSocketOptions returns a copy with the whole option list
// replaced. The given list is copied, not aliased.
func (cp ConnParams) WithSocketOptions(opts []SocketOption) ConnParams {
	cp.SocketOptions = append([]SocketOption(nil), opts...)
	return cp
}

// WithDatabaseTerm returns a copy with the metadata vocabulary
// replaced.
func (cp ConnParams) WithDatabaseTerm(term DatabaseTerm) ConnParams {
	cp.DatabaseTerm = term
	return cp
}

// WithCompression returns a copy that negotiates the compressed
// protocol.
func (cp ConnParams) WithCompression(enable bool) ConnParams {
	cp.EnableCompression = enable
	return cp
}

// WithAllowPublicKeyRetrieval returns a copy with the RSA public key
// retrieval policy replaced.
func (cp ConnParams) WithAllowPublicKeyRetrieval(allow bool) ConnParams {
	cp.AllowPublicKeyRetrieval = allow
	return cp
}

// WithDebug returns a copy with packet-level tracing toggled.
func (cp ConnParams) WithDebug(debug bool) ConnParams {
	cp.Debug = debug
	return cp
}

// WithTracer returns a copy with the packet tracer replaced.
func (cp ConnParams) WithTracer(tracer PacketTracer) ConnParams {
	cp.Tracer = tracer
	return cp
}

// EnableSSL will set the right flag on the parameters.
func (cp *ConnParams) EnableSSL() {
	cp.SslMode = mwtls.VerifyIdentity
}

// SslEnabled returns if SSL is enabled. If the effective ssl mode is
// preferred, it checks if we are connecting over a unix socket: local
// connections stay plaintext.
func (cp *ConnParams) SslEnabled() bool {
	mode := cp.EffectiveSslMode()
	if mode == mwtls.Preferred {
		return cp.UnixSocket == "" && cp.Host != ""
	}
	return mode.TLSEnabled()
}

// SslRequired returns whether the connection parameters define that
// SSL is a hard requirement. Preferred mode does not require it.
func (cp *ConnParams) SslRequired() bool {
	mode := cp.EffectiveSslMode()
	return mode.TLSEnabled() && mode != mwtls.Preferred
}

// EffectiveSslMode computes the effective SslMode. The legacy
// CapabilityClientSSL flag maps to the strictest mode.
func (cp *ConnParams) EffectiveSslMode() mwtls.SslMode {
	if cp.SslMode == "" {
		if cp.Flags&CapabilityClientSSL > 0 {
			return mwtls.VerifyIdentity
		}
		return mwtls.Disabled
	}
	return cp.SslMode
}

// CurrentDatabaseQuery returns the statement that reports the current
// database under the configured vocabulary.
func (cp *ConnParams) CurrentDatabaseQuery() string {
	if cp.DatabaseTerm == DatabaseTermCatalog {
		return "select database() as CATALOG_NAME"
	}
	return "select schema()"
}
