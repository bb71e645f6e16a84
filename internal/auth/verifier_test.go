package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyToken_Valid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))

		fmt.Fprint(w, `{"id":"user-1","email":"buyer@example.com"}`)
	}))
	defer srv.Close()

	verifier := NewHTTPVerifier(srv.URL, "service-key")
	user, err := verifier.VerifyToken(context.Background(), "good-token")

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "buyer@example.com", user.Email)
}

func TestVerifyToken_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	verifier := NewHTTPVerifier(srv.URL, "service-key")
	_, err := verifier.VerifyToken(context.Background(), "bad-token")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestVerifyToken_EmptyToken(t *testing.T) {
	verifier := NewHTTPVerifier("http://localhost:9999", "service-key")
	_, err := verifier.VerifyToken(context.Background(), "")

	require.Error(t, err)
}

func TestVerifyToken_MissingUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	verifier := NewHTTPVerifier(srv.URL, "service-key")
	_, err := verifier.VerifyToken(context.Background(), "token")

	require.Error(t, err)
}
