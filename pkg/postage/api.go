package postage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/cm-offers-feed/pkg/client"
	"github.com/Sternrassler/cm-offers-feed/pkg/country"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/rs/zerolog"
)

// ShippingCostsPath is the API path below the help-center host.
const ShippingCostsPath = "/api/shippingCosts"

// Fetcher retrieves the shipping options of a pair from the remote API.
type Fetcher interface {
	Fetch(ctx context.Context, from, to country.Code) ([]Option, error)
}

// Getter fetches a URL body. *client.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// API is the shipping-cost API client. It never retries.
type API struct {
	getter  Getter
	baseURL string
	logger  zerolog.Logger
}

// NewAPI creates a client for the API at baseURL.
func NewAPI(getter Getter, baseURL string) *API {
	return &API{
		getter:  getter,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logging.NewLogger(logging.ComponentAPI),
	}
}

// URL returns the request location for a pair.
func (a *API) URL(from, to country.Code) string {
	q := url.Values{}
	q.Set("locale", "en")
	q.Set("fromCountry", strconv.Itoa(int(from)))
	q.Set("toCountry", strconv.Itoa(int(to)))
	q.Set("preview", "false")
	return a.baseURL + ShippingCostsPath + "?" + q.Encode()
}

// Fetch implements Fetcher.
func (a *API) Fetch(ctx context.Context, from, to country.Code) ([]Option, error) {
	body, err := a.getter.Get(ctx, a.URL(from, to))
	if err != nil {
		apiRequestsTotal.WithLabelValues(statusLabel(err)).Inc()
		return nil, fmt.Errorf("fetch shipping costs %s: %w", RecordID(from, to), err)
	}

	var options []Option
	if err := json.Unmarshal(body, &options); err != nil {
		apiRequestsTotal.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("decode shipping costs %s: %w", RecordID(from, to), err)
	}
	if options == nil {
		apiRequestsTotal.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("shipping costs %s: empty response", RecordID(from, to))
	}

	apiRequestsTotal.WithLabelValues("ok").Inc()
	a.logger.Debug().
		Int("ship_from", int(from)).
		Int("ship_to", int(to)).
		Int("options", len(options)).
		Msg("Fetched shipping costs")

	return options, nil
}

func statusLabel(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.ErrorClass)
	}
	if errors.Is(err, client.ErrRequestBlocked) {
		return "blocked"
	}
	return "error"
}
