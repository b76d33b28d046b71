package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestServer serves a handler over a real loopback listener so tests go
// through the full middleware chain, compression included.
type TestServer struct {
	*httptest.Server
}

// StartTestServer serves handler until the test ends.
func StartTestServer(t *testing.T, handler http.Handler) *TestServer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &TestServer{Server: srv}
}
