package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"chat-relay/test/testhelpers"
)

func TestHealthEndpoint(t *testing.T) {
	_, testServer := newRelayServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, testServer.URL+"/")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	testhelpers.AssertContentType(t, resp, "text/plain")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if !strings.Contains(string(body), "running") {
		t.Errorf("Unexpected health response body: %q", body)
	}
}

func TestSocketEndpointRejectsNonGet(t *testing.T) {
	_, testServer := newRelayServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodPost, testServer.URL+"/api/socket")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusMethodNotAllowed)
}

func TestSocketEndpointRejectsPlainGet(t *testing.T) {
	// A GET without the upgrade handshake must not be treated as a relay
	// connection.
	_, testServer := newRelayServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, testServer.URL+"/api/socket")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusBadRequest)
}

func TestTestPageServed(t *testing.T) {
	_, testServer := newRelayServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, testServer.URL+"/test")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	testhelpers.AssertContentType(t, resp, "text/html")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if !strings.Contains(string(body), "/api/socket") {
		t.Error("Test page should reference the socket endpoint")
	}
}
