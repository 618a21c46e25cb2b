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
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
)

// NewSalt returns a 20 character salt of printable characters, the
// way MySQL servers generate the handshake challenge.
func NewSalt() ([]byte, error) {
	salt := make([]byte, 20)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	// Salt must be a legal UTF8 string.
	for i := 0; i < len(salt); i++ {
		salt[i] &= 0x7f
		if salt[i] == '\x00' || salt[i] == '$' {
			salt[i]++
		}
	}

	return salt, nil
}

// ScrambleMysqlNativePassword computes the hash of the password using
// 4.1+ method.
//
// This can be used for example inside a `mysql_native_password`
// response:
// token = SHA1(salt + SHA1(SHA1(password))) XOR SHA1(password)
func ScrambleMysqlNativePassword(salt, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}

	// stage1Hash = SHA1(password)
	crypt := sha1.New()
	crypt.Write(password)
	stage1 := crypt.Sum(nil)

	// scrambleHash = SHA1(salt + SHA1(stage1Hash))
	// inner Hash
	crypt.Reset()
	crypt.Write(stage1)
	hash := crypt.Sum(nil)
	// outer Hash
	crypt.Reset()
	crypt.Write(salt)
	crypt.Write(hash)
	scramble := crypt.Sum(nil)

	// token = scrambleHash XOR stage1Hash
	for i := range scramble {
		scramble[i] ^= stage1[i]
	}
	return scramble
}

// ScrambleCachingSha2Password computes the hash of the password using
// SHA256 as required by caching_sha2_password plugin for "fast"
// authentication:
// XOR(SHA256(password), SHA256(SHA256(SHA256(password)), salt))
func ScrambleCachingSha2Password(salt []byte, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}

	// stage1Hash = SHA256(password)
	crypt := sha256.New()
	crypt.Write(password)
	stage1 := crypt.Sum(nil)

	// scrambleHash = SHA256(SHA256(stage1Hash) + salt)
	crypt.Reset()
	crypt.Write(stage1)
	innerHash := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(innerHash)
	crypt.Write(salt)
	scramble := crypt.Sum(nil)

	// token = stage1Hash XOR scrambleHash
	for i := range stage1 {
		stage1[i] ^= scramble[i]
	}

	return stage1
}

// EncryptPasswordWithPublicKey obfuscates the password and encrypts
// it with the server's public key as required by the
// caching_sha2_password and sha256_password full authentication
// exchanges over a plaintext channel.
func EncryptPasswordWithPublicKey(salt []byte, password []byte, pub *rsa.PublicKey) ([]byte, error) {
	if len(password) == 0 {
		return nil, nil
	}

	buffer := make([]byte, len(password)+1)
	copy(buffer, password)
	for i := range buffer {
		buffer[i] ^= salt[i%len(salt)]
	}

	sha1Hash := sha1.New()
	enc, err := rsa.EncryptOAEP(sha1Hash, rand.Reader, pub, buffer, nil)
	if err != nil {
		return nil, err
	}

	return enc, nil
}

// parseRSAPublicKey decodes the PEM block the server sends in
// response to an AuthRequestPublicKey sub-request.
func parseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, authErrorf("no PEM data found in public key response")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, authErrorf("failed to parse server public key: %v", err)
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, authErrorf("server public key is not RSA")
	}
	return rsaKey, nil
}

// authResponseForPlugin computes the auth response bytes for the
// given plugin and challenge. The TLS and clear-text policy checks
// happen in the caller, which knows the channel state.
func authResponseForPlugin(pluginName string, salt []byte, password string) ([]byte, error) {
	switch pluginName {
	case MysqlNativePassword:
		scrambleLen := 20
		if len(salt) < scrambleLen {
			return nil, authErrorf("short salt for %v: %v bytes", pluginName, len(salt))
		}
		return ScrambleMysqlNativePassword(salt[:scrambleLen], []byte(password)), nil
	case CachingSha2Password:
		return ScrambleCachingSha2Password(salt, []byte(password)), nil
	case MysqlClearPassword:
		return append([]byte(password), 0), nil
	case Sha256Password:
		// The first response over TLS is the clear password; over a
		// plain channel the caller requests the public key first and
		// sends an encrypted response instead.
		return append([]byte(password), 0), nil
	default:
		return nil, authErrorf("client does not support authentication plugin %v", pluginName)
	}
}
