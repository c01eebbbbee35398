// Package catalog holds the static V-Bucks price list and the fixed copy
// that accompanies every shop post.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultHeader is the first line of the rendered price list
const DefaultHeader = "V-Bucks Preise für diese Items:"

// Entry maps a V-Bucks bundle to its price in euros
type Entry struct {
	VBucks int
	EUR    decimal.Decimal
}

// Key returns the display name of the bundle
func (e Entry) Key() string {
	return fmt.Sprintf("%d V-Bucks", e.VBucks)
}

// Value returns the display price of the bundle
func (e Entry) Value() string {
	return e.EUR.String() + " €"
}

// Catalog is an ordered price list
type Catalog struct {
	Header  string
	Entries []Entry
}

// Default returns the built-in price list
func Default() *Catalog {
	return &Catalog{
		Header: DefaultHeader,
		Entries: []Entry{
			{VBucks: 500, EUR: decimal.NewFromInt(3)},
			{VBucks: 800, EUR: decimal.NewFromInt(6)},
			{VBucks: 1000, EUR: decimal.NewFromInt(7)},
			{VBucks: 1200, EUR: decimal.NewFromInt(8)},
			{VBucks: 1500, EUR: decimal.NewFromInt(10)},
			{VBucks: 1800, EUR: decimal.NewFromInt(13)},
			{VBucks: 1900, EUR: decimal.NewFromInt(13)},
			{VBucks: 2000, EUR: decimal.NewFromInt(14)},
			{VBucks: 2100, EUR: decimal.NewFromInt(15)},
			{VBucks: 2200, EUR: decimal.NewFromInt(15)},
			{VBucks: 2500, EUR: decimal.NewFromInt(17)},
			{VBucks: 2800, EUR: decimal.NewFromInt(19)},
			{VBucks: 3000, EUR: decimal.NewFromInt(21)},
			{VBucks: 3200, EUR: decimal.NewFromInt(22)},
			{VBucks: 3400, EUR: decimal.NewFromInt(24)},
			{VBucks: 3600, EUR: decimal.NewFromInt(25)},
		},
	}
}

type fileEntry struct {
	VBucks int    `yaml:"vbucks"`
	EUR    string `yaml:"eur"`
}

type fileCatalog struct {
	Header  string      `yaml:"header"`
	Entries []fileEntry `yaml:"entries"`
}

// Load reads a price list from a YAML file. Entries keep the file order.
//
//	header: "V-Bucks Preise für diese Items:"
//	entries:
//	  - vbucks: 500
//	    eur: "3"
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML price list
func Parse(data []byte) (*Catalog, error) {
	var raw fileCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode price catalog: %w", err)
	}
	if len(raw.Entries) == 0 {
		return nil, fmt.Errorf("price catalog has no entries")
	}

	c := &Catalog{Header: raw.Header}
	if c.Header == "" {
		c.Header = DefaultHeader
	}

	for i, e := range raw.Entries {
		if e.VBucks <= 0 {
			return nil, fmt.Errorf("entry %d: vbucks must be positive", i)
		}
		eur, err := decimal.NewFromString(e.EUR)
		if err != nil {
			return nil, fmt.Errorf("entry %d: invalid eur %q: %w", i, e.EUR, err)
		}
		c.Entries = append(c.Entries, Entry{VBucks: e.VBucks, EUR: eur})
	}

	return c, nil
}

// Render serializes the catalog to the plain-text price list artifact
func (c *Catalog) Render() string {
	lines := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		lines = append(lines, e.Key()+": "+e.Value())
	}
	return c.Header + "\n\n" + strings.Join(lines, "\n")
}
