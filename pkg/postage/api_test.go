package postage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/cm-offers-feed/pkg/client"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.New(client.DefaultConfig(nil, "cm-offers-feed-test/1.0"))
	require.NoError(t, err)
	return c
}

func TestAPI_URL(t *testing.T) {
	api := NewAPI(nil, "https://help.cardmarket.com/")
	assert.Equal(t,
		"https://help.cardmarket.com/api/shippingCosts?fromCountry=7&locale=en&preview=false&toCountry=11",
		api.URL(7, 11))
}

func TestAPI_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ShippingCostsPath, r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("fromCountry"))
		assert.Equal(t, "11", r.URL.Query().Get("toCountry"))
		assert.Equal(t, "en", r.URL.Query().Get("locale"))
		assert.Equal(t, "false", r.URL.Query().Get("preview"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"price":1.25,"maxWeight":20,"isTracked":false},{"price":4.9,"maxWeight":500,"isTracked":true}]`))
	}))
	defer server.Close()

	api := NewAPI(newTestClient(t), server.URL)

	options, err := api.Fetch(context.Background(), 7, 11)
	require.NoError(t, err)
	assert.Equal(t, []Option{
		{Price: "1.25", MaxWeight: 20},
		{Price: "4.9", MaxWeight: 500, IsTracked: true},
	}, options)
}

func TestAPI_FetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"not json", http.StatusOK, "<html>maintenance</html>"},
		{"null body", http.StatusOK, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			api := NewAPI(newTestClient(t), server.URL)

			_, err := api.Fetch(context.Background(), 7, 11)
			assert.Error(t, err)
			assert.EqualValues(t, 1, calls.Load(), "the API client never retries")
		})
	}
}
