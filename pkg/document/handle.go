// Package document loads background copies of listing pages and exposes
// their content trees through handles.
package document

import (
	"context"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Status is the readiness of a background document.
type Status int

const (
	// Pending means readiness has not been decided yet.
	Pending Status = iota
	// Ready means the readiness marker was found.
	Ready
	// TimedOut means the readiness poll gave up.
	TimedOut
)

// String returns the status label.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Handle is one background document. It is owned by whoever called Load.
type Handle struct {
	Page int
	URL  string

	mu       sync.RWMutex
	doc      *goquery.Document
	err      error
	status   Status
	disposed bool
	cancel   context.CancelFunc
}

// NewHandle returns a pending handle without a content tree.
func NewHandle(page int, rawURL string) *Handle {
	return &Handle{Page: page, URL: rawURL, cancel: func() {}}
}

// Complete attaches the parsed content tree. It is ignored after Dispose.
func (h *Handle) Complete(doc *goquery.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.doc = doc
}

// Fail records a load error. The handle never produces a content tree.
func (h *Handle) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.err = err
}

// Document returns the content tree, or nil while it is not available.
// It never blocks.
func (h *Handle) Document() *goquery.Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.doc
}

// Err returns the load error, if any.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// HasMarker reports whether the content tree exists and contains selector.
func (h *Handle) HasMarker(selector string) bool {
	doc := h.Document()
	if doc == nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

// Status returns the readiness decided for this handle.
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// SetStatus records the readiness outcome. Only Pending can be left.
func (h *Handle) SetStatus(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == Pending {
		h.status = s
	}
}

// Dispose cancels an unfinished load and releases the content tree.
// It is safe to call more than once.
func (h *Handle) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.disposed = true
	h.cancel()
	h.doc = nil
}

// Disposed reports whether Dispose was called.
func (h *Handle) Disposed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.disposed
}
