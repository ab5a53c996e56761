package pagination

import (
	"net/url"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		itemsText string
		pagesText string
		want      State
		wantOK    bool
	}{
		{
			name:      "middle page with more pages marker",
			itemsText: "300+ Articles",
			pagesText: "Page 2 of 5+",
			want:      State{CurrentPage: 2, TotalPages: 5, TotalItems: 300, HasMorePages: true},
			wantOK:    true,
		},
		{
			name:      "exact range",
			itemsText: "87 Articles",
			pagesText: "Page 1 of 3",
			want:      State{CurrentPage: 1, TotalPages: 3, TotalItems: 87},
			wantOK:    true,
		},
		{
			name:      "thousands separator",
			itemsText: "1.250 Articles",
			pagesText: "Page 4 of 4",
			want:      State{CurrentPage: 4, TotalPages: 4, TotalItems: 1250},
			wantOK:    true,
		},
		{
			name:      "missing markup",
			itemsText: "",
			pagesText: "",
			wantOK:    false,
		},
		{
			name:      "truncated page text",
			itemsText: "10 Articles",
			pagesText: "Page 1",
			wantOK:    false,
		},
		{
			name:      "garbage numbers",
			itemsText: "many Articles",
			pagesText: "Page one of five",
			wantOK:    false,
		},
		{
			name:      "garbage after plus",
			itemsText: "10 Articles",
			pagesText: "Page 1 of 5+x",
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.itemsText, tt.pagesText)
			if ok != tt.wantOK {
				t.Fatalf("Parse() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestState_Enabled(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"zero state", State{}, false},
		{"last page", State{CurrentPage: 5, TotalPages: 5}, false},
		{"first of many", State{CurrentPage: 1, TotalPages: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPageURL(t *testing.T) {
	base, err := url.Parse("https://www.cardmarket.com/en/Magic/Users/seller/Offers/Singles?site=1&sortBy=price_asc")
	if err != nil {
		t.Fatal(err)
	}

	got := PageURL(base, 3)
	want := "https://www.cardmarket.com/en/Magic/Users/seller/Offers/Singles?site=3&sortBy=price_asc"
	if got != want {
		t.Errorf("PageURL() = %q, want %q", got, want)
	}

	// base must not be mutated
	if base.Query().Get(PageParam) != "1" {
		t.Errorf("base URL mutated: %s", base)
	}
}

func TestPageURL_AddsParam(t *testing.T) {
	base, _ := url.Parse("https://example.com/Offers")
	if got := PageURL(base, 2); got != "https://example.com/Offers?site=2" {
		t.Errorf("PageURL() = %q", got)
	}
}
