package document

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/cm-offers-feed/pkg/client"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
)

type fakeGetter struct {
	mu     sync.Mutex
	body   string
	err    error
	block  chan struct{}
	called []string
}

func (g *fakeGetter) Get(ctx context.Context, rawURL string) ([]byte, error) {
	g.mu.Lock()
	g.called = append(g.called, rawURL)
	g.mu.Unlock()

	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return []byte(g.body), nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestHTTPLoader_Load(t *testing.T) {
	getter := &fakeGetter{body: `<html><body><div id="UserOffersTable"></div></body></html>`}
	loader := NewHTTPLoader(getter)

	h := loader.Load(context.Background(), 3, "https://example.test/offers?site=3")
	assert.Equal(t, 3, h.Page)
	assert.Equal(t, Pending, h.Status())

	waitFor(t, func() bool { return h.Document() != nil })
	assert.True(t, h.HasMarker("div#UserOffersTable"))
	assert.False(t, h.HasMarker("div#Missing"))
	assert.NoError(t, h.Err())
}

func TestHTTPLoader_LoadFailure(t *testing.T) {
	getter := &fakeGetter{err: errors.New("boom")}
	loader := NewHTTPLoader(getter)

	h := loader.Load(context.Background(), 2, "https://example.test/offers?site=2")

	waitFor(t, func() bool { return h.Err() != nil })
	assert.Nil(t, h.Document())
	assert.False(t, h.HasMarker("div#UserOffersTable"))
}

func TestHTTPLoader_LoadFailureLogsTransience(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server error",
			err:  &client.APIError{StatusCode: http.StatusBadGateway, ErrorClass: client.ErrorClassServer},
			want: `"transient":true`,
		},
		{
			name: "not found",
			err:  &client.APIError{StatusCode: http.StatusNotFound, ErrorClass: client.ErrorClassClient},
			want: `"transient":false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logging.Setup(logging.Config{Level: logging.LevelWarn, Output: buf})
			t.Cleanup(func() { logging.Setup(logging.DefaultConfig()) })

			loader := NewHTTPLoader(&fakeGetter{err: tt.err})
			h := loader.Load(context.Background(), 2, "https://example.test/offers?site=2")

			waitFor(t, func() bool { return h.Err() != nil })
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), `"page":2`)
		})
	}
}

func TestHandle_DisposeCancelsLoad(t *testing.T) {
	getter := &fakeGetter{body: "<html></html>", block: make(chan struct{})}
	loader := NewHTTPLoader(getter)

	h := loader.Load(context.Background(), 2, "https://example.test/offers?site=2")
	h.Dispose()

	waitFor(t, func() bool { return h.Err() == nil && h.Disposed() })
	close(getter.block)

	// A late completion must not resurrect the tree.
	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, h.Document())
	h.Dispose()
}

func TestHandle_SetStatusIsTerminal(t *testing.T) {
	h := NewHandle(1, "u")
	h.SetStatus(Ready)
	h.SetStatus(TimedOut)
	assert.Equal(t, Ready, h.Status())
	assert.Equal(t, "ready", h.Status().String())
}

func TestFetch(t *testing.T) {
	getter := &fakeGetter{body: `<div class="pagination"><span>300+ Articles</span></div>`}
	loader := NewHTTPLoader(getter)

	doc, err := loader.Fetch(context.Background(), "https://example.test/offers")
	require.NoError(t, err)
	assert.Equal(t, "300+ Articles", doc.Find("div.pagination span").Text())
}
