// Package country maps marketplace country names to the numeric codes used
// by the shipping-cost API.
package country

import (
	"strconv"
	"strings"
)

// Code is a marketplace country code.
type Code int

// None is the placeholder entry of the marketplace country select.
const None Code = 0

// table lists every country the marketplace ships between (January 2025).
var table = map[string]Code{
	"-":              None,
	"Austria":        1,
	"Belgium":        2,
	"Bulgaria":       3,
	"Croatia":        35,
	"Cyprus":         5,
	"Czech Republic": 6,
	"Denmark":        8,
	"Estonia":        9,
	"Finland":        11,
	"France":         12,
	"Germany":        7,
	"Greece":         14,
	"Hungary":        15,
	"Iceland":        37,
	"Ireland":        16,
	"Italy":          17,
	"Japan":          36,
	"Latvia":         21,
	"Liechtenstein":  18,
	"Lithuania":      19,
	"Luxembourg":     20,
	"Malta":          22,
	"Netherlands":    23,
	"Norway":         24,
	"Poland":         25,
	"Portugal":       26,
	"Romania":        27,
	"Singapore":      29,
	"Slovakia":       31,
	"Slovenia":       30,
	"Spain":          10,
	"Sweden":         28,
	"Switzerland":    4,
	"United Kingdom": 13,
}

var names = func() map[Code]string {
	m := make(map[Code]string, len(table))
	for name, code := range table {
		m[code] = name
	}
	return m
}()

var folded = func() map[string]Code {
	m := make(map[string]Code, len(table))
	for name, code := range table {
		m[strings.ToLower(name)] = code
	}
	return m
}()

// Lookup returns the code for a country name. Matching ignores case and
// surrounding whitespace. The "-" placeholder is not a country and is
// reported as not found.
func Lookup(name string) (Code, bool) {
	code, ok := folded[strings.ToLower(strings.TrimSpace(name))]
	if !ok || code == None {
		return None, false
	}
	return code, true
}

// Name returns the country name for code, or "" if the code is unknown.
func Name(code Code) string {
	if code == None {
		return ""
	}
	return names[code]
}

// Valid reports whether code is a known country.
func (c Code) Valid() bool {
	return Name(c) != ""
}

// String returns the country name, or the numeric code when unknown.
func (c Code) String() string {
	if name := Name(c); name != "" {
		return name
	}
	return strconv.Itoa(int(c))
}
