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

// Package tlstest contains utility methods to create test certificates.
// It is not meant to be used in production.
package tlstest

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"mywire.io/mywire/go/mw/log"
)

const (
	// CA is the name of the CA toplevel cert.
	CA          = "ca"
	permissions = 0700
)

func loadCert(certPath string) (*x509.Certificate, error) {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(certData)
	if block == nil {
		return nil, errors.New("failed to parse certificate PEM")
	}
	return x509.ParseCertificate(block.Bytes)
}

func saveCert(certificate *x509.Certificate, certPath string) error {
	out := &bytes.Buffer{}
	err := pem.Encode(out, &pem.Block{Type: "CERTIFICATE", Bytes: certificate.Raw})
	if err != nil {
		return err
	}
	return os.WriteFile(certPath, out.Bytes(), permissions)
}

func generateKey() (crypto.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

func loadKey(keyPath string) (crypto.PrivateKey, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse key PEM")
	}

	switch block.Type {
	case "PRIVATE KEY":
		return x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unknown private key format: %+v", block.Type)
	}
}

func saveKey(key crypto.PrivateKey, keyPath string) error {
	keyData, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}
	out := &bytes.Buffer{}
	err = pem.Encode(out, &pem.Block{Type: "PRIVATE KEY", Bytes: keyData})
	if err != nil {
		return err
	}
	return os.WriteFile(keyPath, out.Bytes(), permissions)
}

// pubKey is an interface to get a public key from a private key.
// The Go specification for a private key defines that this always
// exists, although there's no interface for it since it would break
// backwards compatibility. See https://pkg.go.dev/crypto#PrivateKey
type pubKey interface {
	Public() crypto.PublicKey
}

func publicKey(priv crypto.PrivateKey) crypto.PublicKey {
	return priv.(pubKey).Public()
}

func signCert(parent *x509.Certificate, parentPriv crypto.PrivateKey, certPub crypto.PublicKey, commonName string, serial int64, ca bool) (*x509.Certificate, error) {
	keyUsage := x509.KeyUsageDigitalSignature
	var extKeyUsage []x509.ExtKeyUsage
	var dnsNames []string
	var ipAddresses []net.IP

	if ca {
		keyUsage = keyUsage | x509.KeyUsageCRLSign | x509.KeyUsageCertSign
	} else {
		extKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
		dnsNames = []string{"localhost", commonName}
		ipAddresses = []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")}
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject: pkix.Name{
			CommonName: commonName,
		},
		NotBefore:             time.Now().Add(-30 * time.Second),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              keyUsage,
		ExtKeyUsage:           extKeyUsage,
		BasicConstraintsValid: true,
		IsCA:                  ca,
		DNSNames:              dnsNames,
		IPAddresses:           ipAddresses,
	}

	// No parent defined means we create a self signed one.
	if parent == nil {
		parent = &template
	}

	certificate, err := x509.CreateCertificate(rand.Reader, &template, parent, certPub, parentPriv)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(certificate)
}

// CreateCA creates the toplevel 'ca' certificate and key, and places it
// in the provided directory.
func CreateCA(root string) {
	log.Infof("Creating test root CA in %v", root)
	keyPath := path.Join(root, "ca-key.pem")
	certPath := path.Join(root, "ca-cert.pem")

	priv, err := generateKey()
	if err != nil {
		log.Fatal(err)
	}

	err = saveKey(priv, keyPath)
	if err != nil {
		log.Fatal(err)
	}

	ca, err := signCert(nil, priv, publicKey(priv), CA, 1, true)
	if err != nil {
		log.Fatal(err)
	}

	err = saveCert(ca, certPath)
	if err != nil {
		log.Fatal(err)
	}
}

// CreateSignedCert creates a new certificate signed by the provided parent,
// with the provided serial number, name and common name.
// name is the file name to use. Common Name is the certificate common name.
func CreateSignedCert(root, parent, serial, name, commonName string) {
	log.Infof("Creating signed cert and key %v", commonName)

	caKeyPath := path.Join(root, parent+"-key.pem")
	caCertPath := path.Join(root, parent+"-cert.pem")
	keyPath := path.Join(root, name+"-key.pem")
	certPath := path.Join(root, name+"-cert.pem")

	caKey, err := loadKey(caKeyPath)
	if err != nil {
		log.Fatal(err)
	}
	caCert, err := loadCert(caCertPath)
	if err != nil {
		log.Fatal(err)
	}

	priv, err := generateKey()
	if err != nil {
		log.Fatal(err)
	}

	err = saveKey(priv, keyPath)
	if err != nil {
		log.Fatal(err)
	}

	serialNr, err := strconv.ParseInt(serial, 10, 64)
	if err != nil {
		log.Fatal(err)
	}

	leaf, err := signCert(caCert, caKey, publicKey(priv), commonName, serialNr, false)
	if err != nil {
		log.Fatal(err)
	}

	err = saveCert(leaf, certPath)
	if err != nil {
		log.Fatal(err)
	}
}

// ServerKeyPair points at the certificate material CreateServerCertPair
// lays down for one test server.
type ServerKeyPair struct {
	Cert       string
	Key        string
	CA         string
	ServerName string
}

var serialCounter = 0

// CreateServerCertPair creates a CA and one server certificate signed by
// it, for use by a test TLS listener.
func CreateServerCertPair(root string) ServerKeyPair {
	CreateCA(root)

	serialCounter++
	serial := fmt.Sprintf("%03d", serialCounter)
	certName := fmt.Sprintf("server-instance-%s", serial)
	commonName := fmt.Sprintf("server%s.example.com", serial)

	CreateSignedCert(root, CA, serial, certName, commonName)

	return ServerKeyPair{
		Cert:       path.Join(root, fmt.Sprintf("%s-cert.pem", certName)),
		Key:        path.Join(root, fmt.Sprintf("%s-key.pem", certName)),
		CA:         path.Join(root, "ca-cert.pem"),
		ServerName: commonName,
	}
}
