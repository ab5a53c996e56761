// Package testutil provides a fake marketplace server for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Paths served by MockMarket.
const (
	OffersPath        = "/en/Pokemon/Users/seller1/Offers/Singles"
	CartPath          = "/en/Pokemon/Cart/Add"
	ShippingCostsPath = "/api/shippingCosts"
)

// DefaultShippingCosts is the shipping-cost body served for unknown pairs.
const DefaultShippingCosts = `[
  {"price": 0.95, "maxWeight": 20, "isTracked": false},
  {"price": 1.15, "maxWeight": 50, "isTracked": false},
  {"price": "3.95", "maxWeight": 100, "isTracked": true}
]`

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockMarket is a configurable fake marketplace: paginated offers pages,
// the shipping-cost API and the add-to-cart form target.
type MockMarket struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	totalPages  int
	rowsPerPage int
	destination string
	broken      map[int]bool
	shipping    map[string]string

	requests     map[string]int
	pageRequests map[int]int
	lastForm     map[string][]string
}

// NewMockMarket creates a market with totalPages pages of rowsPerPage rows.
func NewMockMarket(totalPages, rowsPerPage int) *MockMarket {
	mock := &MockMarket{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		totalPages:   totalPages,
		rowsPerPage:  rowsPerPage,
		destination:  "Finland",
		broken:       make(map[int]bool),
		shipping:     make(map[string]string),
		requests:     make(map[string]int),
		pageRequests: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests[r.URL.Path]++
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case OffersPath:
			mock.offersHandler(w, r)
		case ShippingCostsPath:
			mock.shippingHandler(w, r)
		case CartPath:
			mock.cartHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockMarket) URL() string {
	return m.server.URL
}

// OffersURL returns the location of page 1 of the offers listing.
func (m *MockMarket) OffersURL() string {
	return m.server.URL + OffersPath
}

// PageURL returns the location of an offers page.
func (m *MockMarket) PageURL(page int) string {
	return m.OffersURL() + "?site=" + strconv.Itoa(page)
}

// Close shuts down the mock server.
func (m *MockMarket) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockMarket) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockMarket) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetDestination sets the country named in the delivery estimate tooltip.
func (m *MockMarket) SetDestination(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destination = name
}

// BreakPage makes page render without the offers table.
func (m *MockMarket) BreakPage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broken[page] = true
}

// SetShippingCosts sets the API body for a country pair.
func (m *MockMarket) SetShippingCosts(from, to int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipping[shippingKey(strconv.Itoa(from), strconv.Itoa(to))] = body
}

// RequestCount returns the number of requests made to path.
func (m *MockMarket) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// PageRequestCount returns the number of requests for one offers page.
func (m *MockMarket) PageRequestCount(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageRequests[page]
}

// LastCartForm returns the form values of the last cart submission.
func (m *MockMarket) LastCartForm() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastForm
}

// ArticleID returns the id of row i (0-based) on page.
func ArticleID(page, i int) string {
	return strconv.Itoa(page*1000 + i + 1)
}

func (m *MockMarket) offersHandler(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("site")); err == nil && v > 0 {
		page = v
	}

	m.mu.Lock()
	m.pageRequests[page]++
	broken := m.broken[page]
	destination := m.destination
	m.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if page > m.totalPages {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte(m.renderPage(page, destination, broken)))
}

func (m *MockMarket) renderPage(page int, destination string, broken bool) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><body>\n")
	fmt.Fprintf(&b, `<div class="page-title-container"><span class="seller-extended">`+
		`<span class="fonticon-calendar" data-bs-original-title="Estimated delivery time to %s: 3-5 days"></span>`+
		"</span></div>\n", destination)

	bar := fmt.Sprintf(`<div class="pagination"><span>%d Articles</span><span>Page %d of %d</span></div>`+"\n",
		m.totalPages*m.rowsPerPage, page, m.totalPages)
	b.WriteString(bar)

	if !broken {
		b.WriteString(`<div id="UserOffersTable"><div class="table-body">` + "\n")
		for i := 0; i < m.rowsPerPage; i++ {
			b.WriteString(renderRow(page, i))
		}
		b.WriteString("</div></div>\n")
	}

	b.WriteString(bar)
	b.WriteString("</body></html>\n")
	return b.String()
}

func renderRow(page, i int) string {
	id := ArticleID(page, i)
	return fmt.Sprintf(`<div id="articleRow%[1]s" class="article-row">
  <div class="col-seller"><a href="/en/Pokemon/Products/Singles/Set/Card-%[1]s">Card %[1]s (SET %03[2]d)</a></div>
  <span class="seller-name"><span class="icon" title="Item location: Germany"></span></span>
  <div class="product-attributes"><span title="Near Mint"></span><span title="English"></span></div>
  <div class="price-container"><span class="text-nowrap">%[3]d,50 €</span></div>
  <span class="item-count">2</span>
  <form action="%[4]s" method="post">
    <input type="hidden" name="idArticle" value="%[1]s">
    <select id="amount%[1]s" name="amount"><option value="1">1</option><option value="2">2</option></select>
  </form>
</div>
`, id, i+1, i+1, CartPath)
}

func (m *MockMarket) shippingHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m.mu.RLock()
	body, ok := m.shipping[shippingKey(q.Get("fromCountry"), q.Get("toCountry"))]
	m.mu.RUnlock()
	if !ok {
		body = DefaultShippingCosts
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(body))
}

func (m *MockMarket) cartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.lastForm = r.PostForm
	m.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	message := "Your request was executed successfully"
	if r.PostForm.Get("idArticle") == "" {
		message = "The article is no longer available"
	}
	fmt.Fprintf(w, `<html><body><div class="systemMessage"><button class="close"></button> %s </div></body></html>`, message)
}

func shippingKey(from, to string) string {
	return from + "_" + to
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       "Too Many Requests",
		Headers: map[string]string{
			"Retry-After": strconv.Itoa(retryAfter),
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
