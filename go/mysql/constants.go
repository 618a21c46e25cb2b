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

// This file contains the constant definitions for this package.

// MaxPacketSize is the maximum payload length of a packet
// the server supports.
const MaxPacketSize = (1 << 24) - 1

// protocolVersion is the current version of the protocol.
// Always 10.
const protocolVersion = 10

// AuthServerVersion is the bare version string sent by a test server
// that does not care about matching a real MySQL release.
const AuthServerVersion = "5.7.9-mywire"

// Default charset for new connections: utf8mb4, as MySQL 8 defaults.
const (
	// CharacterSetUtf8 is for UTF8.
	CharacterSetUtf8 = 33
	// CharacterSetUtf8mb4 is for UTF8 with full unicode support.
	CharacterSetUtf8mb4 = 255
	// CharacterSetBinary is for binary.
	CharacterSetBinary = 63
	// CharacterSetLatin1 is the historical MySQL default.
	CharacterSetLatin1 = 8
)

// CharacterSetMap maps the charset name (used in ConnParams) to the
// integer value.  Interesting ones have their own constant above.
var CharacterSetMap = map[string]uint8{
	"big5":     1,
	"dec8":     3,
	"cp850":    4,
	"hp8":      6,
	"koi8r":    7,
	"latin1":   CharacterSetLatin1,
	"latin2":   9,
	"swe7":     10,
	"ascii":    11,
	"ujis":     12,
	"sjis":     13,
	"hebrew":   16,
	"tis620":   18,
	"euckr":    19,
	"koi8u":    22,
	"gb2312":   24,
	"greek":    25,
	"cp1250":   26,
	"gbk":      28,
	"latin5":   30,
	"armscii8": 32,
	"utf8":     CharacterSetUtf8,
	"ucs2":     35,
	"cp866":    36,
	"keybcs2":  37,
	"macce":    38,
	"macroman": 39,
	"cp852":    40,
	"latin7":   41,
	"utf8mb4":  CharacterSetUtf8mb4,
	"cp1251":   51,
	"utf16":    54,
	"utf16le":  56,
	"cp1256":   57,
	"cp1257":   59,
	"utf32":    60,
	"binary":   CharacterSetBinary,
	"geostd8":  92,
	"cp932":    95,
	"eucjpms":  97,
}

// Supported auth plugins.
const (
	// MysqlNativePassword is the SHA1 challenge/response plugin.
	MysqlNativePassword = "mysql_native_password"
	// CachingSha2Password is the SHA256 caching plugin, default since
	// MySQL 8.0.4.
	CachingSha2Password = "caching_sha2_password"
	// Sha256Password transmits an RSA-encrypted password.
	Sha256Password = "sha256_password"
	// MysqlClearPassword sends the password in the clear; only ever
	// used over TLS or when explicitly allowed.
	MysqlClearPassword = "mysql_clear_password"
)

// Packet types.
const (
	// ComQuit is COM_QUIT.
	ComQuit = 0x01
	// ComInitDB is COM_INIT_DB.
	ComInitDB = 0x02
	// ComQuery is COM_QUERY.
	ComQuery = 0x03
	// ComPing is COM_PING.
	ComPing = 0x0e
	// ComSetOption is COM_SET_OPTION
	ComSetOption = 0x1b
	// ComStmtPrepare is COM_STMT_PREPARE.
	ComStmtPrepare = 0x16
	// ComStmtExecute is COM_STMT_EXECUTE.
	ComStmtExecute = 0x17
	// ComStmtSendLongData is COM_STMT_SEND_LONG_DATA.
	ComStmtSendLongData = 0x18
	// ComStmtClose is COM_STMT_CLOSE.
	ComStmtClose = 0x19
	// ComStmtReset is COM_STMT_RESET.
	ComStmtReset = 0x1a

	// OKPacket is the header of the OK packet.
	OKPacket = 0x00
	// EOFPacket is the header of the EOF packet.
	EOFPacket = 0xfe
	// ErrPacket is the header of the error packet.
	ErrPacket = 0xff

	// NullValue is the encoded value of NULL.
	NullValue = 0xfb

	// AuthMoreDataPacket is the header of the auth-more-data packet
	// used by the caching_sha2_password sub-protocol.
	AuthMoreDataPacket = 0x01
	// AuthSwitchRequestPacket is the header of the auth-switch-request
	// packet. It shares the value with EOFPacket and is disambiguated
	// by packet length.
	AuthSwitchRequestPacket = 0xfe

	// CachingSha2FastAuthSuccess is the auth-more-data payload byte
	// signalling the cached fast path succeeded.
	CachingSha2FastAuthSuccess = 0x03
	// CachingSha2PerformFullAuthentication is the auth-more-data
	// payload byte requesting the full exchange.
	CachingSha2PerformFullAuthentication = 0x04
	// AuthRequestPublicKey asks the server for its RSA public key
	// during caching_sha2_password full authentication.
	AuthRequestPublicKey = 0x02

	// Sha256RequestPublicKey asks the server for its RSA public key
	// during sha256_password authentication.
	Sha256RequestPublicKey = 0x01
)

// Error codes return in SQLErrors.
const (
	// ERUnknownError is unknown error.
	ERUnknownError = 1105
	// ERAccessDeniedError is access denied.
	ERAccessDeniedError = 1045
	// ERUnknownComError is unknown command error.
	ERUnknownComError = 1047
	// ERBadDb is bad db error.
	ERBadDb = 1049
	// ERDupEntry is duplicate entry error.
	ERDupEntry = 1062
	// ERNoSuchTable is no such table error.
	ERNoSuchTable = 1146
	// ERSyntaxError is syntax error.
	ERSyntaxError = 1064
	// ERNetPacketTooLarge is packet too large.
	ERNetPacketTooLarge = 1153
	// ERQueryInterrupted is query interrupted.
	ERQueryInterrupted = 1317
	// ERServerLost is CR_SERVER_LOST, reported when the stream breaks
	// in the middle of an exchange.
	ERServerLost = 2013
	// ERMalformedPacket is a malformed packet error.
	ERMalformedPacket = 2027

	// CRUnknownError is CR_UNKNOWN_ERROR.
	CRUnknownError = 2000
	// CRConnectionError is CR_CONNECTION_ERROR.
	// This is returned if a connection via a Unix socket fails.
	CRConnectionError = 2002
	// CRServerGone is CR_SERVER_GONE_ERROR.
	CRServerGone = 2006
	// CRVersionError is CR_VERSION_ERROR.
	// This is returned if the server versions don't match what we support.
	CRVersionError = 2007
	// CRServerHandshakeErr is CR_SERVER_HANDSHAKE_ERR.
	CRServerHandshakeErr = 2012
	// CRServerLost is CR_SERVER_LOST.
	// This is returned if the stream breaks in the middle of an exchange.
	CRServerLost = 2013
	// CRMalformedPacket is CR_MALFORMED_PACKET.
	CRMalformedPacket = 2027
	// CRSSLConnectionError is CR_SSL_CONNECTION_ERROR.
	CRSSLConnectionError = 2026
	// CRConnHostError is CR_CONN_HOST_ERROR.
	CRConnHostError = 2003
	// CRCantReadCharset is CR_CANT_READ_CHARSET.
	CRCantReadCharset = 2019
)

// SQL states.
const (
	// SSUnknownSQLState is the default SQL state.
	SSUnknownSQLState = "HY000"
	// SSAccessDeniedError is the state for access denied.
	SSAccessDeniedError = "28000"
	// SSNetError is the state for network errors.
	SSNetError = "08S01"
	// SSHandshakeError is the state for handshake failures.
	SSHandshakeError = "08S01"
	// SSSyntaxErrorOrAccessViolation is the state for syntax errors.
	SSSyntaxErrorOrAccessViolation = "42000"
)

// Capability flags, as negotiated between client and server.
const (
	// CapabilityClientLongPassword is CLIENT_LONG_PASSWORD.
	CapabilityClientLongPassword = 1

	// CapabilityClientFoundRows is CLIENT_FOUND_ROWS.
	CapabilityClientFoundRows = 1 << 1

	// CapabilityClientLongFlag is CLIENT_LONG_FLAG.
	// Longer flags in Protocol::ColumnDefinition320.
	CapabilityClientLongFlag = 1 << 2

	// CapabilityClientConnectWithDB is CLIENT_CONNECT_WITH_DB.
	// One can specify db on connect.
	CapabilityClientConnectWithDB = 1 << 3

	// CapabilityClientCompress is CLIENT_COMPRESS, the original zlib
	// compressed protocol. Not implemented; see
	// CapabilityClientZstdCompressionAlgorithm.
	CapabilityClientCompress = 1 << 5

	// CapabilityClientProtocol41 is CLIENT_PROTOCOL_41.
	// New 4.1 protocol.
	CapabilityClientProtocol41 = 1 << 9

	// CapabilityClientSSL is CLIENT_SSL.
	// Switch to SSL after handshake.
	CapabilityClientSSL = 1 << 11

	// CapabilityClientTransactions is CLIENT_TRANSACTIONS.
	// Can send status flags in EOF_Packet.
	CapabilityClientTransactions = 1 << 13

	// CapabilityClientSecureConnection is CLIENT_SECURE_CONNECTION.
	// New 4.1 authentication.
	CapabilityClientSecureConnection = 1 << 15

	// CapabilityClientMultiStatements is CLIENT_MULTI_STATEMENTS.
	// Can handle multiple statements per ComQuery.
	CapabilityClientMultiStatements = 1 << 16

	// CapabilityClientMultiResults is CLIENT_MULTI_RESULTS.
	// Can send multiple resultsets for ComQuery.
	CapabilityClientMultiResults = 1 << 17

	// CapabilityClientPluginAuth is CLIENT_PLUGIN_AUTH.
	// Client supports plugin authentication.
	CapabilityClientPluginAuth = 1 << 19

	// CapabilityClientConnAttr is CLIENT_CONNECT_ATTRS.
	// Permits connection attributes.
	CapabilityClientConnAttr = 1 << 20

	// CapabilityClientPluginAuthLenencClientData is
	// CLIENT_PLUGIN_AUTH_LENENC_CLIENT_DATA.
	CapabilityClientPluginAuthLenencClientData = 1 << 21

	// CapabilityClientSessionTrack is CLIENT_SESSION_TRACK.
	// Permits session state tracking in OK packets.
	CapabilityClientSessionTrack = 1 << 23

	// CapabilityClientDeprecateEOF is CLIENT_DEPRECATE_EOF.
	// Expects an OK (instead of EOF) after the resultset rows.
	CapabilityClientDeprecateEOF = 1 << 24

	// CapabilityClientZstdCompressionAlgorithm is
	// CLIENT_ZSTD_COMPRESSION_ALGORITHM. Frames travel inside a zstd
	// compressed envelope after the handshake.
	CapabilityClientZstdCompressionAlgorithm = 1 << 26
)

// Status flags. They are returned by the server in a few cases.
// Originally found in include/mysql/mysql_com.h
// See http://dev.mysql.com/doc/internals/en/status-flags.html
const (
	// ServerStatusInTrans is SERVER_STATUS_IN_TRANS.
	ServerStatusInTrans = 1

	// ServerStatusAutocommit is SERVER_STATUS_AUTOCOMMIT.
	ServerStatusAutocommit = 1 << 1

	// ServerMoreResultsExists is SERVER_MORE_RESULTS_EXISTS.
	ServerMoreResultsExists = 1 << 3

	// ServerStatusCursorExists is SERVER_STATUS_CURSOR_EXISTS.
	ServerStatusCursorExists = 1 << 6

	// ServerStatusLastRowSent is SERVER_STATUS_LAST_ROW_SENT.
	ServerStatusLastRowSent = 1 << 7

	// ServerSessionStateChanged is SERVER_SESSION_STATE_CHANGED.
	ServerSessionStateChanged = 1 << 14
)

// State Change information, in OK packet session tracking.
const (
	// SessionTrackSystemVariables is SESSION_TRACK_SYSTEM_VARIABLES.
	SessionTrackSystemVariables = 0x00
	// SessionTrackSchema is SESSION_TRACK_SCHEMA.
	SessionTrackSchema = 0x01
	// SessionTrackStateChange is SESSION_TRACK_STATE_CHANGE.
	SessionTrackStateChange = 0x02
	// SessionTrackGtids is SESSION_TRACK_GTIDS.
	SessionTrackGtids = 0x03
)

// Field flags from the column definition packet.
const (
	// FieldFlagNotNull is NOT_NULL_FLAG.
	FieldFlagNotNull = 1
	// FieldFlagPriKey is PRI_KEY_FLAG.
	FieldFlagPriKey = 1 << 1
	// FieldFlagUniqueKey is UNIQUE_KEY_FLAG.
	FieldFlagUniqueKey = 1 << 2
	// FieldFlagUnsigned is UNSIGNED_FLAG.
	FieldFlagUnsigned = 1 << 5
	// FieldFlagBinary is BINARY_FLAG.
	FieldFlagBinary = 1 << 7
	// FieldFlagAutoIncrement is AUTO_INCREMENT_FLAG.
	FieldFlagAutoIncrement = 1 << 9
)
