package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendBulkReportsPerTokenResults(t *testing.T) {
	var received []pushMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"status": "ok"},
				{"status": "error", "message": "DeviceNotRegistered"},
			},
		})
	}))
	defer server.Close()

	g := NewGateway(server.URL)
	result, err := g.SendBulk(context.Background(), []string{"tok-1", "tok-2"},
		"New service request nearby", "flat tire", map[string]string{"request_id": "req-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, []string{"DeviceNotRegistered"}, result.Errors)

	require.Len(t, received, 2)
	assert.Equal(t, "tok-1", received[0].To)
	assert.Equal(t, "New service request nearby", received[0].Title)
	assert.Equal(t, "req-1", received[0].Data["request_id"])
}

func TestSendBulkNoTokensIsNoop(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	g := NewGateway(server.URL)
	result, err := g.SendBulk(context.Background(), nil, "t", "b", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Accepted)
	assert.False(t, called)
}

func TestSendBulkGatewayErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	g := NewGateway(server.URL)
	_, err := g.SendBulk(context.Background(), []string{"tok-1"}, "t", "b", nil)
	assert.Error(t, err)
}
