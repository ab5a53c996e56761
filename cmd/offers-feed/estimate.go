package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Sternrassler/cm-offers-feed/pkg/country"
	"github.com/Sternrassler/cm-offers-feed/pkg/postage"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	estimateFrom    string
	estimateTo      string
	estimateTracked bool
)

func init() {
	estimateCmd.Flags().StringVar(&estimateFrom, "from", "", "seller country (name or code)")
	estimateCmd.Flags().StringVar(&estimateTo, "to", "", "destination country (name or code)")
	estimateCmd.Flags().BoolVar(&estimateTracked, "tracked", false, "require a tracked option")
	_ = estimateCmd.MarkFlagRequired("from")
	_ = estimateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(estimateCmd)
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Show the shipping options of a country pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseCountry(estimateFrom)
		if err != nil {
			return err
		}
		to, err := parseCountry(estimateTo)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.cache.Lookup(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		renderRecord(os.Stdout, record, estimateTracked)
		return nil
	},
}

// parseCountry accepts a country name or its numeric code.
func parseCountry(s string) (country.Code, error) {
	if code, ok := country.Lookup(s); ok {
		return code, nil
	}
	if n, err := strconv.Atoi(s); err == nil && country.Code(n).Valid() {
		return country.Code(n), nil
	}
	return country.None, fmt.Errorf("unknown country %q", s)
}

// renderRecord prints every option of record and marks the cheapest match.
func renderRecord(w io.Writer, record postage.Record, tracked bool) {
	best, found := postage.SelectCheapest(record, tracked)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s -> %s (%d)", country.Name(record.ShipFrom), country.Name(record.ShipTo), record.YearUpdated))
	t.AppendHeader(table.Row{"", "Price", "Max weight", "Tracked"})

	for _, opt := range record.Options {
		mark := ""
		if found && opt == best {
			mark = "*"
		}
		t.AppendRow(table.Row{mark, string(opt.Price), fmt.Sprintf("%dg", opt.MaxWeight), opt.IsTracked})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()

	if !found {
		fmt.Fprintln(w, "No matching shipping option")
		return
	}
	fmt.Fprintln(w, "Cheapest:", best.Label())
}
