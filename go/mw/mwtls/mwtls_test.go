/*
Copyright 2026 The Vitess Authors.

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

package mwtls

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywire.io/mywire/go/mw/tlstest"
)

func TestSslModeTLSEnabled(t *testing.T) {
	assert.False(t, SslMode("").TLSEnabled())
	assert.False(t, Disabled.TLSEnabled())
	assert.True(t, Preferred.TLSEnabled())
	assert.True(t, Required.TLSEnabled())
	assert.True(t, VerifyCA.TLSEnabled())
	assert.True(t, VerifyIdentity.TLSEnabled())
}

func TestClientConfigDisabled(t *testing.T) {
	_, err := ClientConfig(NewOptions(Disabled), "db.example.com")
	require.ErrorIs(t, err, ErrDisabledMode)
	assert.Equal(t, "TLS is disabled for this connection", err.Error())
}

func TestClientConfigModes(t *testing.T) {
	tests := []struct {
		mode     SslMode
		insecure bool
	}{
		{Preferred, true},
		{Required, true},
		{VerifyCA, true},
		{VerifyIdentity, false},
	}
	for _, test := range tests {
		t.Run(test.mode.String(), func(t *testing.T) {
			config, err := ClientConfig(NewOptions(test.mode), "db.example.com")
			require.NoError(t, err)
			assert.Equal(t, "db.example.com", config.ServerName)
			assert.Equal(t, test.insecure, config.InsecureSkipVerify)
			if test.mode == VerifyCA {
				assert.NotNil(t, config.VerifyConnection)
			} else {
				assert.Nil(t, config.VerifyConnection)
			}
		})
	}
}

func TestClientConfigVerifyIdentityCA(t *testing.T) {
	// With a configured CA file, full verification anchors chains on
	// that CA instead of the system trust store.
	pair := tlstest.CreateServerCertPair(t.TempDir())

	opts := NewOptions(VerifyIdentity).WithParameters(Parameters{CA: pair.CA})
	config, err := ClientConfig(opts, pair.ServerName)
	require.NoError(t, err)
	assert.False(t, config.InsecureSkipVerify)
	assert.NotNil(t, config.RootCAs)

	opts = NewOptions(VerifyIdentity).WithParameters(Parameters{CA: "/nonexistent/ca.pem"})
	_, err = ClientConfig(opts, pair.ServerName)
	require.Error(t, err)
}

func TestClientConfigUnknownMode(t *testing.T) {
	_, err := ClientConfig(NewOptions("sideways"), "db.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown SSL mode")
}

func TestClientConfigParameters(t *testing.T) {
	opts := NewOptions(Required).WithParameters(Parameters{
		MinVersion:   "TLSv1.2",
		MaxVersion:   "TLSv1.3",
		CipherSuites: []string{"TLS_AES_128_GCM_SHA256"},
		ServerNames:  []string{"other.example.com", "ignored.example.com"},
	})
	config, err := ClientConfig(opts, "db.example.com")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), config.MinVersion)
	assert.Equal(t, uint16(tls.VersionTLS13), config.MaxVersion)
	assert.Equal(t, []uint16{tls.TLS_AES_128_GCM_SHA256}, config.CipherSuites)
	assert.Equal(t, "other.example.com", config.ServerName)
}

func TestClientConfigBadParameters(t *testing.T) {
	_, err := ClientConfig(NewOptions(Required).WithParameters(Parameters{MinVersion: "SSLv3"}), "db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown TLS version "SSLv3"`)

	_, err = ClientConfig(NewOptions(Required).WithParameters(Parameters{CipherSuites: []string{"TLS_FANCY"}}), "db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown cipher suite "TLS_FANCY"`)
}

func TestOptionsImmutable(t *testing.T) {
	base := NewOptions(VerifyCA)

	derived := base.WithParameters(Parameters{CA: "/tmp/ca.pem"}).WithFallback(true)
	assert.True(t, derived.HasCustomParams())
	assert.True(t, derived.FallbackOnFailure)
	assert.Equal(t, "/tmp/ca.pem", derived.Params.CA)

	// The base options never pick up the derived overrides.
	assert.False(t, base.HasCustomParams())
	assert.False(t, base.FallbackOnFailure)
	assert.Empty(t, base.Params.CA)
}

func TestTLSVersionToNumber(t *testing.T) {
	v, err := TLSVersionToNumber("TLSv1.0")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS10), v)

	_, err = TLSVersionToNumber("TLSv2.0")
	require.Error(t, err)
}
