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

// Package mwtls models the SSL modes a MySQL connection can request and
// builds the tls.Config used to upgrade the transport mid-handshake.
package mwtls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// SslMode indicates the type of SSL mode to use. This matches
// the MySQL CLI options of the same names.
type SslMode string

const (
	// Disabled disables SSL and connects over plain text.
	Disabled SslMode = "disabled"
	// Preferred uses SSL if the server supports it, without verifying
	// the server certificate.
	Preferred SslMode = "preferred"
	// Required requires SSL and accepts any server certificate.
	Required SslMode = "required"
	// VerifyCA requires SSL and a server certificate signed by the
	// configured CA.
	VerifyCA SslMode = "verify_ca"
	// VerifyIdentity requires SSL, a certificate chaining to the system
	// trust store, and a matching server hostname.
	VerifyIdentity SslMode = "verify_identity"
)

// String returns the name of the mode.
func (mode SslMode) String() string {
	return string(mode)
}

// TLSEnabled reports whether the mode attempts a TLS upgrade at all.
func (mode SslMode) TLSEnabled() bool {
	return mode != "" && mode != Disabled
}

// ErrDisabledMode is returned when a TLS config is requested for a
// connection whose SSL mode is Disabled. The message is fixed and callers
// rely on it.
var ErrDisabledMode = errors.New("TLS is disabled for this connection")

// Parameters are the optional overrides applied on top of an SSL mode.
// The zero value applies no overrides.
type Parameters struct {
	// MinVersion and MaxVersion name TLS protocol versions, e.g.
	// "TLSv1.2". Empty means the crypto/tls defaults.
	MinVersion string
	MaxVersion string
	// CipherSuites names the allowed suites, in standard IANA form.
	CipherSuites []string
	// ServerNames lists SNI hostnames to present; the first entry is
	// used for the handshake.
	ServerNames []string
	// CA is a path to a PEM bundle overriding the system roots.
	CA string
}

// Options is an immutable SSL mode plus its overrides. Use the With*
// methods to derive new values; the receiver is never modified.
type Options struct {
	Mode              SslMode
	Params            Parameters
	FallbackOnFailure bool
	hasCustomParams   bool
}

// NewOptions returns Options for the given mode with no overrides.
func NewOptions(mode SslMode) Options {
	return Options{Mode: mode}
}

// WithParameters returns a copy of the options carrying the given
// override parameters.
func (o Options) WithParameters(p Parameters) Options {
	o.Params = p
	o.hasCustomParams = true
	return o
}

// WithFallback returns a copy of the options with the
// fallback-on-negotiation-failure flag set.
func (o Options) WithFallback(fallback bool) Options {
	o.FallbackOnFailure = fallback
	return o
}

// HasCustomParams reports whether WithParameters was applied.
func (o Options) HasCustomParams() bool {
	return o.hasCustomParams
}

// tlsVersions maps the protocol names accepted in Parameters to
// crypto/tls version numbers.
var tlsVersions = map[string]uint16{
	"TLSv1.0": tls.VersionTLS10,
	"TLSv1.1": tls.VersionTLS11,
	"TLSv1.2": tls.VersionTLS12,
	"TLSv1.3": tls.VersionTLS13,
}

// TLSVersionToNumber converts a version name to the crypto/tls constant.
func TLSVersionToNumber(name string) (uint16, error) {
	v, ok := tlsVersions[name]
	if !ok {
		return 0, fmt.Errorf("unknown TLS version %q", name)
	}
	return v, nil
}

func cipherSuiteIDs(names []string) ([]uint16, error) {
	byName := make(map[string]uint16)
	for _, cs := range tls.CipherSuites() {
		byName[cs.Name] = cs.ID
	}
	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown cipher suite %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ClientConfig builds the tls.Config used to upgrade a connection to the
// named server. Requesting a config for the Disabled mode is an error,
// and a deterministic one: no network access happens here, all enabled
// modes must construct.
func ClientConfig(opts Options, serverName string) (*tls.Config, error) {
	if opts.Mode == Disabled {
		return nil, ErrDisabledMode
	}

	config := &tls.Config{
		ServerName: serverName,
	}

	switch opts.Mode {
	case Preferred, Required:
		config.InsecureSkipVerify = true
	case VerifyCA:
		config.InsecureSkipVerify = true
		config.VerifyConnection = verifyPeerCertsAgainstRoots(opts.Params.CA)
	case VerifyIdentity:
		// Full verification. Without a configured CA the system trust
		// store applies; with one, only that CA anchors the chain.
		if opts.Params.CA != "" {
			roots, err := rootsFromFile(opts.Params.CA)
			if err != nil {
				return nil, err
			}
			config.RootCAs = roots
		}
	default:
		return nil, fmt.Errorf("unknown SSL mode %q", opts.Mode)
	}

	if !opts.hasCustomParams {
		return config, nil
	}

	p := opts.Params
	if p.MinVersion != "" {
		v, err := TLSVersionToNumber(p.MinVersion)
		if err != nil {
			return nil, err
		}
		config.MinVersion = v
	}
	if p.MaxVersion != "" {
		v, err := TLSVersionToNumber(p.MaxVersion)
		if err != nil {
			return nil, err
		}
		config.MaxVersion = v
	}
	if len(p.CipherSuites) > 0 {
		ids, err := cipherSuiteIDs(p.CipherSuites)
		if err != nil {
			return nil, err
		}
		config.CipherSuites = ids
	}
	if len(p.ServerNames) > 0 {
		config.ServerName = p.ServerNames[0]
	}
	return config, nil
}

// verifyPeerCertsAgainstRoots verifies the peer chain against a CA
// bundle, ignoring the server hostname. This is the verify_ca contract.
func verifyPeerCertsAgainstRoots(caPath string) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		roots, err := rootsFromFile(caPath)
		if err != nil {
			return err
		}
		if len(cs.PeerCertificates) == 0 {
			return errors.New("no server certificate presented")
		}
		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: x509.NewCertPool(),
		}
		for _, cert := range cs.PeerCertificates[1:] {
			opts.Intermediates.AddCert(cert)
		}
		_, err = cs.PeerCertificates[0].Verify(opts)
		return err
	}
}

func rootsFromFile(caPath string) (*x509.CertPool, error) {
	if caPath == "" {
		return x509.SystemCertPool()
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to add CA certificates from %q", caPath)
	}
	return pool, nil
}
