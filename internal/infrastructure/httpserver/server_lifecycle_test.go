package httpserver

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServer_PlainAppliesTimeouts(t *testing.T) {
	s := NewServer(&ServerConfig{
		Host:         "127.0.0.1",
		Port:         "9090",
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  4 * time.Second,
	}, logrus.New(), ServerDeps{})

	srv, err := s.httpServer()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", srv.Addr)
	assert.Equal(t, 2*time.Second, srv.ReadTimeout)
	assert.Equal(t, 3*time.Second, srv.WriteTimeout)
	assert.Equal(t, 4*time.Second, srv.IdleTimeout)
	assert.Nil(t, srv.TLSConfig)
}

func TestHTTPServer_MissingKeyPairFails(t *testing.T) {
	dir := t.TempDir()
	s := NewServer(&ServerConfig{
		TLSCertFile: filepath.Join(dir, "cert.pem"),
		TLSKeyFile:  filepath.Join(dir, "key.pem"),
	}, logrus.New(), ServerDeps{})

	_, err := s.httpServer()
	assert.ErrorContains(t, err, "load TLS key pair")
	assert.ErrorContains(t, s.Start(), "load TLS key pair")
}
