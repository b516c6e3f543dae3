// Copyright 2026, Square, Inc.

// Package util provides small helpers shared by the server, the API and the
// remote client.
package util

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"

	"github.com/rs/xid"
)

// XID generates a globally unique, 20-character id for traversals and computations.
func XID() string {
	return xid.New().String()
}

// NewTLSConfig takes a cert, key, and ca file and creates a *tls.Config. It is
// used by both the API server and the remote client.
func NewTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("tls.LoadX509KeyPair: %s", err)
	}

	caCert, err := ioutil.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	caCertPool := x509.NewCertPool()
	caCertPool.AppendCertsFromPEM(caCert)
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caCertPool,
		ClientCAs:    caCertPool,
	}, nil
}
