package cart

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/Sternrassler/cm-offers-feed/pkg/document"
	"github.com/Sternrassler/cm-offers-feed/pkg/listing"
)

// Poster submits a form. *client.Client satisfies it.
type Poster interface {
	PostForm(ctx context.Context, rawURL string, values url.Values) ([]byte, error)
}

// HTTPCart posts an offer's cart form and exposes the banner of the page
// the marketplace answers with. It is both the Action and the Banner.
type HTTPCart struct {
	poster Poster
	form   *listing.CartForm
	amount string

	mu   sync.RWMutex
	page *listing.Page
}

// NewHTTPCart prepares a submission of amount items. An empty amount
// selects the first quantity offered.
func NewHTTPCart(poster Poster, form *listing.CartForm, amount string) (*HTTPCart, error) {
	if form == nil {
		return nil, errors.New("offer has no cart form")
	}
	if form.Method != "" && form.Method != http.MethodPost {
		return nil, errors.New("unsupported cart form method " + form.Method)
	}
	return &HTTPCart{poster: poster, form: form, amount: amount}, nil
}

// Submit implements Action.
func (c *HTTPCart) Submit(ctx context.Context) error {
	body, err := c.poster.PostForm(ctx, c.form.Action, c.form.Values(c.amount))
	if err != nil {
		return err
	}
	doc, err := document.Parse(body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.page = listing.NewPage(doc)
	c.mu.Unlock()
	return nil
}

// Message implements Banner.
func (c *HTTPCart) Message() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.page == nil {
		return "", false
	}
	return c.page.SystemMessage()
}

// Dismiss implements Banner. The banner lives in the response page only,
// so dismissing forgets it.
func (c *HTTPCart) Dismiss(context.Context) error {
	c.mu.Lock()
	c.page = nil
	c.mu.Unlock()
	return nil
}

// Page returns the page rendered after the last submission, if any. It
// carries the re-rendered offer row.
func (c *HTTPCart) Page() *listing.Page {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.page
}
