package keycloak

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionRealm_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin-token")
	err := c.ProvisionRealm(context.Background(), "a-test1", "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, "/admin/realms", gotPath)
	assert.Equal(t, "Bearer admin-token", gotAuth)
	assert.Equal(t, "a-test1", gotBody["realm"])
	assert.Equal(t, true, gotBody["enabled"])
}

func TestProvisionRealm_ConflictIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin-token")
	assert.NoError(t, c.ProvisionRealm(context.Background(), "a-test1", "alice@example.com"))
}

func TestProvisionRealm_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("realm store unavailable"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin-token")
	err := c.ProvisionRealm(context.Background(), "a-test1", "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "realm store unavailable")
}
