package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProductType classifies a product for filtering (e.g. earbud, headphone)
type ProductType string

const (
	TypeEarbud    ProductType = "earbud"
	TypeHeadphone ProductType = "headphone"
)

// FilterAll matches every product regardless of type
const FilterAll = "all"

// DefaultRegion is used whenever a product has no prices for the active region
const DefaultRegion = "US"

// Well-known score metrics
const (
	MetricPrice = "price"
	MetricSound = "sound_score"
)

// MetricAscending reports whether lower values rank better for metric.
// Only price ranks ascending; every other metric ranks descending.
func MetricAscending(metric string) bool {
	return metric == MetricPrice
}

// Product is a single catalog entry. Products are read-only once loaded.
type Product struct {
	ID             int                     `yaml:"id" json:"id"`
	Name           string                  `yaml:"name" json:"name"`
	Image          string                  `yaml:"image" json:"image"`
	Type           ProductType             `yaml:"type" json:"type,omitempty"`
	Description    string                  `yaml:"description" json:"description,omitempty"`
	Specs          Specs                   `yaml:"specs" json:"specs"`
	Scores         map[string]float64      `yaml:"scores" json:"scores,omitempty"`
	RegionalPrices map[string][]PriceEntry `yaml:"regionalPrices" json:"regionalPrices,omitempty"`
}

// PriceEntry is one store offer for a product in a region
type PriceEntry struct {
	Store    string  `yaml:"store" json:"store"`
	Price    float64 `yaml:"price" json:"price"`
	Currency string  `yaml:"currency" json:"currency"`
	Link     string  `yaml:"link" json:"link"`
}

// MatchesFilter reports whether the product belongs to the given type filter.
// Products without a type only match FilterAll.
func (p *Product) MatchesFilter(filter string) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	return string(p.Type) == filter
}

// Score returns the metric value and whether the product carries it
func (p *Product) Score(metric string) (float64, bool) {
	v, ok := p.Scores[metric]
	return v, ok
}

// ResolvePrices returns the price list for region, falling back to the US
// list when the region has none. The result is a copy in catalog order;
// nil means pricing is unavailable.
func (p *Product) ResolvePrices(region string) []PriceEntry {
	region = strings.ToUpper(region)
	if prices := p.RegionalPrices[region]; len(prices) > 0 {
		return slices.Clone(prices)
	}
	if prices := p.RegionalPrices[DefaultRegion]; len(prices) > 0 {
		return slices.Clone(prices)
	}
	return nil
}

// SortedPrices returns the resolved regional prices ordered cheapest first.
// Sorting happens on a working copy so the catalog order is preserved.
func (p *Product) SortedPrices(region string) []PriceEntry {
	prices := p.ResolvePrices(region)
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Price < prices[j].Price
	})
	return prices
}

// LowestPrice returns the cheapest offer for region
func (p *Product) LowestPrice(region string) (PriceEntry, bool) {
	prices := p.SortedPrices(region)
	if len(prices) == 0 {
		return PriceEntry{}, false
	}
	return prices[0], true
}

// SpecEntry is a single label/value pair displayed verbatim
type SpecEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Specs is an ordered spec mapping. Order follows the source document.
type Specs []SpecEntry

// UnmarshalYAML decodes a mapping node keeping the key order of the source
func (s *Specs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("specs must be a mapping, got line %d", node.Line)
	}

	out := make(Specs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("spec %q must be a scalar value", key.Value)
		}
		out = append(out, SpecEntry{Label: key.Value, Value: value.Value})
	}
	*s = out
	return nil
}

// UnmarshalJSON decodes a JSON object keeping the key order of the source.
// The label/value array that Specs marshals to is accepted as well.
func (s *Specs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case nil:
		*s = nil
		return nil
	case json.Delim('['):
		var entries []SpecEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		*s = entries
		return nil
	case json.Delim('{'):
	default:
		return fmt.Errorf("specs must be an object")
	}

	out := Specs{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected spec key %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return err
		}
		var value string
		switch v := tok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = strconv.FormatBool(v)
		case nil:
		default:
			return fmt.Errorf("spec %q must be a scalar value", label)
		}
		out = append(out, SpecEntry{Label: label, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// Lookup returns the value for label
func (s Specs) Lookup(label string) (string, bool) {
	for _, e := range s {
		if e.Label == label {
			return e.Value, true
		}
	}
	return "", false
}

// Labels returns the spec labels in order
func (s Specs) Labels() []string {
	labels := make([]string, len(s))
	for i, e := range s {
		labels[i] = e.Label
	}
	return labels
}
