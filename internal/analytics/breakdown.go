package analytics

import (
	"bytes"
	"encoding/json"
)

// Breakdown maps category labels to total minutes while preserving the order
// in which categories were first seen. Plain Go maps (and encoding/json's map
// handling) would lose that discovery order.
type Breakdown struct {
	keys    []string
	minutes map[string]int
}

// NewBreakdown returns an empty Breakdown.
func NewBreakdown() *Breakdown {
	return &Breakdown{minutes: make(map[string]int)}
}

// Add accumulates minutes under the given category.
func (b *Breakdown) Add(category string, minutes int) {
	if _, seen := b.minutes[category]; !seen {
		b.keys = append(b.keys, category)
	}
	b.minutes[category] += minutes
}

// Minutes returns the accumulated minutes for a category, zero when absent.
func (b *Breakdown) Minutes(category string) int {
	return b.minutes[category]
}

// Len reports the number of distinct categories.
func (b *Breakdown) Len() int {
	return len(b.keys)
}

// Categories returns the category labels in discovery order.
func (b *Breakdown) Categories() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// MarshalJSON encodes the breakdown as a JSON object in discovery order.
func (b *Breakdown) MarshalJSON() ([]byte, error) {
	return marshalOrdered(b.keys, func(key string) any { return b.minutes[key] })
}

// Percentages maps category labels to their share of a total, preserving the
// same discovery order as the Breakdown it was derived from.
type Percentages struct {
	keys   []string
	shares map[string]float64
}

// MarshalJSON encodes the percentages as a JSON object in discovery order.
func (p *Percentages) MarshalJSON() ([]byte, error) {
	return marshalOrdered(p.keys, func(key string) any { return p.shares[key] })
}

// Share returns the percentage for a category, zero when absent.
func (p *Percentages) Share(category string) float64 {
	return p.shares[category]
}

func marshalOrdered(keys []string, value func(string) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedValue, err := json.Marshal(value(key))
		if err != nil {
			return nil, err
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
