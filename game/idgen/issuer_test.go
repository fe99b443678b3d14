package idgen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDIssuer(t *testing.T) {
	issuer := UUIDIssuer{}

	first, err := issuer.NextID(context.Background())
	require.NoError(t, err)
	second, err := issuer.NextID(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	_, err = uuid.Parse(first)
	assert.NoError(t, err)
}

func TestUUIDIssuer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := UUIDIssuer{}.NextID(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPIssuer(t *testing.T) {
	t.Run("returns first id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`["3b241101-e2bb-4255-8caf-4136c566a962","ignored"]`))
		}))
		defer server.Close()

		id, err := NewHTTPIssuer(server.URL).NextID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "3b241101-e2bb-4255-8caf-4136c566a962", id)
	})

	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := NewHTTPIssuer(server.URL).NextID(context.Background())
		assert.ErrorIs(t, err, ErrBadStatus)
	})

	t.Run("empty array", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		_, err := NewHTTPIssuer(server.URL).NextID(context.Background())
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("blank id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`["  "]`))
		}))
		defer server.Close()

		_, err := NewHTTPIssuer(server.URL).NextID(context.Background())
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"uuid":"x"}`))
		}))
		defer server.Close()

		_, err := NewHTTPIssuer(server.URL).NextID(context.Background())
		assert.Error(t, err)
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewHTTPIssuer(server.URL).NextID(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "expected deadline error, got %v", err)
	})
}

func TestNewHTTPIssuer_DefaultURL(t *testing.T) {
	issuer := NewHTTPIssuer("")
	assert.Equal(t, DefaultServiceURL, issuer.url)
	assert.NotNil(t, issuer.httpClient)
}
