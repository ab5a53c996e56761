package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Sternrassler/cm-offers-feed/pkg/cart"
	"github.com/Sternrassler/cm-offers-feed/pkg/document"
	"github.com/Sternrassler/cm-offers-feed/pkg/listing"
	"github.com/Sternrassler/cm-offers-feed/pkg/offers"
	"github.com/Sternrassler/cm-offers-feed/pkg/poll"
	"github.com/spf13/cobra"
)

var cartAmount string

func init() {
	cartCmd.Flags().StringVar(&cartAmount, "amount", "", "quantity to add (default: first offered)")
	rootCmd.AddCommand(cartCmd)
}

var cartCmd = &cobra.Command{
	Use:   "cart <listing-url> <article-id>",
	Short: "Add an offer to the cart",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		result, rows, err := runCart(cmd.Context(), a, args[0], args[1], cartAmount)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%s: %s\n", result.Outcome, result.Message)
		if len(rows) > 0 {
			renderRows(os.Stdout, rows)
		}
		if result.Outcome != cart.Succeeded {
			return fmt.Errorf("cart action %s", result.Outcome)
		}
		return nil
	},
}

// runCart submits the cart form of article id found on the listing page.
// After a successful submission the re-rendered row is estimated again.
func runCart(ctx context.Context, a *app, rawURL, id, amount string) (cart.Result, []offers.Row, error) {
	doc, err := document.NewHTTPLoader(a.client).Fetch(ctx, rawURL)
	if err != nil {
		return cart.Result{}, nil, err
	}
	page := listing.NewPage(doc)

	article, ok := page.Article(id)
	if !ok {
		return cart.Result{}, nil, fmt.Errorf("article %s not on page", id)
	}
	if !article.Shippable {
		return cart.Result{}, nil, fmt.Errorf("article %s does not ship to your country", id)
	}

	action, err := cart.NewHTTPCart(a.client, article.Cart, amount)
	if err != nil {
		return cart.Result{}, nil, err
	}

	submitter, err := cart.NewSubmitter(cart.Config{
		Dismiss: poll.Config{Purpose: "banner_dismiss", Interval: a.cfg.Cart.DismissInterval, MaxAttempts: a.cfg.Cart.DismissAttempts},
		Await:   poll.Config{Purpose: "banner", Interval: a.cfg.Cart.BannerInterval, MaxAttempts: a.cfg.Cart.BannerAttempts},
	})
	if err != nil {
		return cart.Result{}, nil, err
	}

	result, err := submitter.Submit(ctx, action, action)
	if err != nil || result.Outcome != cart.Succeeded {
		return result, nil, err
	}

	dest, _ := a.resolver.Destination(ctx, page)
	rows := offers.NewTable(a.estimator, dest)
	rows.SetConcurrency(a.cfg.Feed.EstimateConcurrency)
	rows.Merge(ctx, 0, []listing.Article{article})

	if rendered := action.Page(); rendered != nil {
		if updated, ok := rendered.Article(id); ok {
			article = updated
		}
	}
	if err := rows.Refresh(ctx, article); err != nil {
		logger.Warn().Err(err).Str("article_id", id).Msg("Failed to refresh row")
	}
	return result, rows.Rows(), nil
}
