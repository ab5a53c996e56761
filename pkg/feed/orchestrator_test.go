package feed

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/cm-offers-feed/pkg/document"
	"github.com/Sternrassler/cm-offers-feed/pkg/pagination"
	"github.com/Sternrassler/cm-offers-feed/pkg/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLoader completes handles immediately for pages listed in ready and
// never for the others.
type fakeLoader struct {
	mu      sync.Mutex
	ready   map[int]bool
	loads   map[int]int
	urls    []string
	handles []*document.Handle
}

func newFakeLoader(readyPages ...int) *fakeLoader {
	l := &fakeLoader{ready: make(map[int]bool), loads: make(map[int]int)}
	for _, p := range readyPages {
		l.ready[p] = true
	}
	return l
}

func (l *fakeLoader) Load(_ context.Context, page int, rawURL string) *document.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loads[page]++
	l.urls = append(l.urls, rawURL)

	h := document.NewHandle(page, rawURL)
	if l.ready[page] {
		doc, _ := goquery.NewDocumentFromReader(strings.NewReader(
			`<div id="UserOffersTable"><div id="articleRow1" class="article-row"></div></div>`))
		h.Complete(doc)
	}
	l.handles = append(l.handles, h)
	return h
}

func (l *fakeLoader) loadCount(page int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[page]
}

func (l *fakeLoader) totalLoads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.urls)
}

type countingIndicator struct {
	mu      sync.Mutex
	started []int
	stopped []int
	retired int
}

func (c *countingIndicator) Start(page int) {
	c.mu.Lock()
	c.started = append(c.started, page)
	c.mu.Unlock()
}
func (c *countingIndicator) Stop(page int) {
	c.mu.Lock()
	c.stopped = append(c.stopped, page)
	c.mu.Unlock()
}
func (c *countingIndicator) Retire() { c.mu.Lock(); c.retired++; c.mu.Unlock() }

func fastReadiness() poll.Config {
	return poll.Config{Purpose: "readiness-test", Interval: 2 * time.Millisecond, MaxAttempts: 5}
}

func newTestOrchestrator(t *testing.T, state pagination.State, loader document.Loader, bus *Bus, ind Indicator) *Orchestrator {
	t.Helper()
	return newTestOrchestratorWithPoll(t, state, fastReadiness(), loader, bus, ind)
}

func newTestOrchestratorWithPoll(t *testing.T, state pagination.State, readiness poll.Config, loader document.Loader, bus *Bus, ind Indicator) *Orchestrator {
	t.Helper()

	base, err := url.Parse("https://market.test/en/Magic/Users/seller/Offers/Singles?sortBy=price_asc")
	require.NoError(t, err)

	o, err := New(context.Background(), Config{
		Base:       base,
		Pagination: state,
		Readiness:  readiness,
	}, loader, bus, ind)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func TestNew_RequiresPagination(t *testing.T) {
	base, _ := url.Parse("https://market.test/offers")
	_, err := New(context.Background(), Config{Base: base}, newFakeLoader(), NewBus(), nil)
	assert.ErrorIs(t, err, ErrNoPagination)
}

func TestRequestNextPage_RewritesPageSelector(t *testing.T) {
	loader := newFakeLoader(2)
	o := newTestOrchestrator(t, pagination.State{CurrentPage: 1, TotalPages: 3}, loader, NewBus(), nil)

	require.True(t, o.RequestNextPage())
	o.Wait()

	require.Len(t, loader.urls, 1)
	u, err := url.Parse(loader.urls[0])
	require.NoError(t, err)
	assert.Equal(t, "2", u.Query().Get("site"))
	assert.Equal(t, "price_asc", u.Query().Get("sortBy"))
}

func TestRequestNextPage_AtMostOneInflightPerPage(t *testing.T) {
	// page 3 never becomes ready, so it stays in flight for the whole poll
	loader := newFakeLoader()
	slow := poll.Config{Purpose: "readiness-test", Interval: 20 * time.Millisecond, MaxAttempts: 10}
	o := newTestOrchestratorWithPoll(t, pagination.State{CurrentPage: 2, TotalPages: 5}, slow, loader, NewBus(), nil)

	var wg sync.WaitGroup
	started := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- o.RequestNextPage()
		}()
	}
	wg.Wait()
	close(started)

	wins := 0
	for s := range started {
		if s {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, loader.loadCount(3))
	assert.True(t, o.Loading(3))
	assert.Equal(t, StatusRequested, o.Status(3))

	o.Wait()
	assert.False(t, o.Loading(3))
}

func TestPagesLoaded_AdvancesByOneRegardlessOfOutcome(t *testing.T) {
	// pages 3 and 5 are broken
	loader := newFakeLoader(2, 4)
	bus := NewBus()
	ind := &countingIndicator{}
	o := newTestOrchestrator(t, pagination.State{CurrentPage: 1, TotalPages: 5}, loader, bus, ind)

	var kinds []EventKind
	bus.Subscribe(SenderName, func(e Event) {
		if e.Kind != PageRequested {
			kinds = append(kinds, e.Kind)
		}
	})

	prev := o.PagesLoaded()
	assert.Equal(t, 1, prev)

	for page := 2; page <= 5; page++ {
		require.True(t, o.RequestNextPage(), "page %d", page)
		o.Wait()

		got := o.PagesLoaded()
		assert.Equal(t, prev+1, got)
		prev = got
	}

	assert.Equal(t, StatusReady, o.Status(2))
	assert.Equal(t, StatusNotReady, o.Status(3))
	assert.Equal(t, StatusReady, o.Status(4))
	assert.Equal(t, StatusNotReady, o.Status(5))
	assert.Equal(t, StatusUnrequested, o.Status(6))
	assert.Equal(t, []EventKind{PageReady, PageFailed, PageReady, PageFailed}, kinds)
	assert.Equal(t, []int{2, 3, 4, 5}, ind.started)
	assert.Equal(t, []int{2, 3, 4, 5}, ind.stopped)
}

func TestTerminalState_StopsNewDocuments(t *testing.T) {
	loader := newFakeLoader(2, 3)
	ind := &countingIndicator{}
	o := newTestOrchestrator(t, pagination.State{CurrentPage: 1, TotalPages: 3}, loader, NewBus(), ind)

	near := Rect{Y: 10, Height: 50}
	for i := 0; i < 2; i++ {
		require.True(t, o.OnScroll(near))
		o.Wait()
	}
	assert.Equal(t, 3, o.PagesLoaded())
	assert.False(t, o.Detached())

	// The first scroll after the last page detaches the trigger.
	assert.False(t, o.OnScroll(near))
	assert.True(t, o.Detached())

	for i := 0; i < 10; i++ {
		assert.False(t, o.OnScroll(near))
		assert.False(t, o.RequestNextPage())
	}
	assert.Equal(t, 2, loader.totalLoads())
	assert.Equal(t, 1, ind.retired)
}

func TestOnScroll_FarFromEndDoesNothing(t *testing.T) {
	loader := newFakeLoader(2)
	o := newTestOrchestrator(t, pagination.State{CurrentPage: 1, TotalPages: 3}, loader, NewBus(), nil)

	assert.False(t, o.OnScroll(Rect{Y: 1000, Height: 50}))
	assert.Equal(t, 0, loader.totalLoads())
}

func TestSinglePage_DetachesImmediately(t *testing.T) {
	loader := newFakeLoader()
	ind := &countingIndicator{}
	o := newTestOrchestrator(t, pagination.State{CurrentPage: 4, TotalPages: 4}, loader, NewBus(), ind)

	assert.False(t, o.RequestNextPage())
	assert.True(t, o.Detached())
	assert.Equal(t, 0, loader.totalLoads())
	assert.Equal(t, 1, ind.retired)
}

func TestPageReady_DocumentReleasedAfterSubscribers(t *testing.T) {
	loader := newFakeLoader(2)
	bus := NewBus()
	o := newTestOrchestrator(t, pagination.State{CurrentPage: 1, TotalPages: 2}, loader, bus, nil)

	rows := 0
	bus.Subscribe(SenderName, func(e Event) {
		if e.Kind == PageReady {
			require.NotNil(t, e.Document)
			rows = e.Document.Find("div.article-row").Length()
		}
	})

	require.True(t, o.RequestNextPage())
	o.Wait()

	assert.Equal(t, 1, rows)
	require.Len(t, loader.handles, 1)
	h := loader.handles[0]
	assert.True(t, h.Disposed())
	assert.Nil(t, h.Document())
	assert.Equal(t, document.Ready, h.Status())
}

func TestClose_CancelsInflightPoll(t *testing.T) {
	loader := newFakeLoader()
	bus := NewBus()

	base, _ := url.Parse("https://market.test/offers")
	o, err := New(context.Background(), Config{
		Base:       base,
		Pagination: pagination.State{CurrentPage: 1, TotalPages: 2},
		Readiness:  poll.Config{Purpose: "readiness-test", Interval: time.Hour, MaxAttempts: 20},
	}, loader, bus, nil)
	require.NoError(t, err)

	events := 0
	bus.Subscribe(SenderName, func(e Event) {
		if e.Kind != PageRequested {
			events++
		}
	})

	require.True(t, o.RequestNextPage())

	done := make(chan struct{})
	go func() {
		o.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	assert.Equal(t, 0, events)
	assert.Equal(t, StatusNotReady, o.Status(2))
	assert.False(t, o.RequestNextPage())
	assert.True(t, loader.handles[0].Disposed())
}

func TestClose_RacingRequestsStartNoLoads(t *testing.T) {
	loader := newFakeLoader()
	base, _ := url.Parse("https://market.test/offers")
	o, err := New(context.Background(), Config{
		Base:       base,
		Pagination: pagination.State{CurrentPage: 1, TotalPages: 1000},
		Readiness:  poll.Config{Purpose: "readiness-test", Interval: time.Millisecond, MaxAttempts: 2},
	}, loader, NewBus(), nil)
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					o.RequestNextPage()
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	o.Close()
	loadsAtClose := loader.totalLoads()

	time.Sleep(10 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Equal(t, loadsAtClose, loader.totalLoads())
	assert.False(t, o.RequestNextPage())
	for _, h := range loader.handles {
		assert.True(t, h.Disposed(), "page %d", h.Page)
	}
}

func TestPageStatus_String(t *testing.T) {
	assert.Equal(t, "unrequested", StatusUnrequested.String())
	assert.Equal(t, "requested", StatusRequested.String())
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "not_ready", StatusNotReady.String())
}
