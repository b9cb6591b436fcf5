package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldbridge/pkg/models"
)

func restDef(baseURL string) models.ConnectorDefinition {
	return models.ConnectorDefinition{
		ID:        "test",
		Type:      models.ConnectorTypeRest,
		BaseURL:   baseURL,
		Endpoints: map[string]string{"summary": "/api/summary"},
		Timeout:   2 * time.Second,
		Retry: models.RetryPolicy{
			MaxRetries: 2,
			Backoff:    models.BackoffFixed,
			BaseDelay:  time.Millisecond,
		},
	}
}

func TestInvoke_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/summary", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "note text", body["text"])

		json.NewEncoder(w).Encode(map[string]any{"summary": "ok"})
	}))
	defer srv.Close()

	inv, err := NewRest(restDef(srv.URL))
	require.NoError(t, err)

	resp, attempts, err := inv.Invoke(context.Background(), "summary", "", map[string]any{"text": "note text"})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, "ok", resp["summary"])
}

func TestInvoke_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"summary": "ok"})
	}))
	defer srv.Close()

	inv, err := NewRest(restDef(srv.URL))
	require.NoError(t, err)

	resp, attempts, err := inv.Invoke(context.Background(), "summary", "", map[string]any{})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "maxRetries 2 means up to 3 attempts")
	assert.Equal(t, "ok", resp["summary"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvoke_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	inv, err := NewRest(restDef(srv.URL))
	require.NoError(t, err)

	_, attempts, err := inv.Invoke(context.Background(), "summary", "", map[string]any{})

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "SERVER_ERROR", cerr.Code)
	assert.True(t, cerr.Transient)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvoke_4xxNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	inv, err := NewRest(restDef(srv.URL))
	require.NoError(t, err)

	_, attempts, err := inv.Invoke(context.Background(), "summary", "", map[string]any{})

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "HTTP_400", cerr.Code)
	assert.False(t, cerr.Transient)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvoke_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	inv, err := NewRest(restDef(srv.URL))
	require.NoError(t, err)

	_, _, err = inv.Invoke(context.Background(), "summary", "", map[string]any{})

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "INVALID_RESPONSE", cerr.Code)
}

func TestInvoke_UnknownEndpoint(t *testing.T) {
	inv, err := NewRest(restDef("http://localhost:1"))
	require.NoError(t, err)

	_, _, err = inv.Invoke(context.Background(), "nope", "", map[string]any{})

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "INVALID_ENDPOINT", cerr.Code)
}

func TestInvoke_CancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	def := restDef(srv.URL)
	def.Retry.BaseDelay = 5 * time.Second
	inv, err := NewRest(def)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, _, err = inv.Invoke(ctx, "summary", "", map[string]any{})

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "CANCELLED", cerr.Code)
	assert.Less(t, time.Since(start), time.Second, "backoff wait returns on cancel")
}

func TestNewRest_AuthHeaders(t *testing.T) {
	t.Run("bearer", func(t *testing.T) {
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string]any{})
		}))
		defer srv.Close()

		def := restDef(srv.URL)
		def.Auth = models.AuthSpec{Kind: models.AuthKindBearer, Credential: "secret"}
		inv, err := NewRest(def)
		require.NoError(t, err)

		_, _, err = inv.Invoke(context.Background(), "summary", "", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "Bearer secret", got)
	})

	t.Run("api key from env", func(t *testing.T) {
		t.Setenv("TEST_CONNECTOR_KEY", "env-secret")
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("X-Service-Key")
			json.NewEncoder(w).Encode(map[string]any{})
		}))
		defer srv.Close()

		def := restDef(srv.URL)
		def.Auth = models.AuthSpec{Kind: models.AuthKindAPIKey, CredentialEnv: "TEST_CONNECTOR_KEY", Header: "X-Service-Key"}
		inv, err := NewRest(def)
		require.NoError(t, err)

		_, _, err = inv.Invoke(context.Background(), "summary", "", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "env-secret", got)
	})

	t.Run("missing credential fails at build", func(t *testing.T) {
		def := restDef("http://localhost:1")
		def.Auth = models.AuthSpec{Kind: models.AuthKindBearer, CredentialEnv: "FIELDBRIDGE_TEST_UNSET_VAR"}
		_, err := NewRest(def)
		assert.Error(t, err)
	})
}

func TestRegistry_Build(t *testing.T) {
	defs := map[string]models.ConnectorDefinition{
		"voice_ai": restDef("http://localhost:1"),
	}
	r := NewRegistry()
	require.NoError(t, r.Build(defs))
	assert.Equal(t, 1, r.Len())

	_, ok := r.Get("voice_ai")
	assert.True(t, ok)
	_, ok = r.Get("other")
	assert.False(t, ok)

	bad := map[string]models.ConnectorDefinition{
		"soap": {Type: "soap", BaseURL: "http://localhost:1"},
	}
	assert.Error(t, NewRegistry().Build(bad))
}
