package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/Sternrassler/cm-offers-feed/pkg/document"
	"github.com/Sternrassler/cm-offers-feed/pkg/feed"
	"github.com/Sternrassler/cm-offers-feed/pkg/listing"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/Sternrassler/cm-offers-feed/pkg/offers"
	"github.com/Sternrassler/cm-offers-feed/pkg/poll"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var maxPages int

func init() {
	feedCmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after requesting this many extra pages (0 = all)")
	rootCmd.AddCommand(feedCmd)
}

var feedCmd = &cobra.Command{
	Use:   "feed <listing-url>",
	Short: "Load every page of an offers listing and print the rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := runFeed(cmd.Context(), a, args[0], maxPages)
		if err != nil {
			return err
		}
		renderRows(os.Stdout, rows)
		return nil
	},
}

// runFeed loads the host page, then scrolls a virtual viewport to the end
// of the table until the feed detaches or maxPages pages were requested.
func runFeed(ctx context.Context, a *app, rawURL string, maxPages int) ([]offers.Row, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	loader := document.NewHTTPLoader(a.client)
	doc, err := loader.Fetch(ctx, rawURL)
	if err != nil {
		logger.Error().Err(err).Str("url", rawURL).Msg("Failed to load host document")
		return nil, err
	}
	host := listing.NewPage(doc)

	dest, ok := a.resolver.Destination(ctx, host)
	if !ok {
		logger.Warn().Msg("Destination country unknown, rows will have no shipping estimate")
	}

	rows := offers.NewTable(a.estimator, dest)
	rows.SetConcurrency(a.cfg.Feed.EstimateConcurrency)

	state, ok := host.Pagination()
	current := 1
	if ok {
		current = state.CurrentPage
	}
	rows.Merge(ctx, current, host.Articles())

	if !ok || !state.Enabled() {
		logger.Info().Msg("Listing has a single page")
		return rows.Rows(), nil
	}

	bus := feed.NewBus()
	unsubscribe := rows.Subscribe(ctx, bus)
	defer unsubscribe()

	orch, err := feed.New(ctx, feed.Config{
		Base:       base,
		Pagination: state,
		Readiness: poll.Config{
			Purpose:     "readiness",
			Interval:    a.cfg.Feed.ReadinessInterval,
			MaxAttempts: a.cfg.Feed.ReadinessAttempts,
		},
	}, loader, bus, feed.NewLogIndicator(logging.NewLogger(logging.ComponentFeed)))
	if err != nil {
		return nil, err
	}
	defer orch.Close()

	viewport := feed.Viewport{RowHeight: 1, Rows: rows.Len()}
	requested := 0
	for maxPages <= 0 || requested < maxPages {
		viewport.ScrollToEnd()
		if !orch.OnScroll(viewport.LastRowRect()) {
			break
		}
		requested++
		orch.Wait()
		viewport.Append(rows.Len() - viewport.Rows)
	}

	if err := ctx.Err(); err != nil {
		return rows.Rows(), err
	}

	logger.Info().
		Int("pages_loaded", orch.PagesLoaded()).
		Int("rows", rows.Len()).
		Msg("Feed finished")
	return rows.Rows(), nil
}

// renderRows prints the collection as a table.
func renderRows(w io.Writer, rows []offers.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Page", "ID", "Card", "Attributes", "Price", "Qty", "Seller", "Shipping"})

	for _, r := range rows {
		shipping := "-"
		if r.Estimate != nil {
			shipping = r.Estimate.Label
		}
		t.AppendRow(table.Row{
			r.Page,
			r.Article.ID,
			r.Article.Title,
			r.Article.AttributeLine(),
			r.Article.Price,
			r.Article.Amount,
			r.Article.SellerLocation,
			shipping,
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "", "Rows", len(rows)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
