package gateway

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// TypeFeatureCollection is the GeoJSON type tag of a FeatureCollection.
const TypeFeatureCollection = "FeatureCollection"

// FeatureCollection is a GeoJSON FeatureCollection. Features stay raw so the
// geometry and properties produced by the store pass through untouched.
type FeatureCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// EmptyFeatureCollection returns a collection with no features and a non-nil
// feature slice, so it encodes as "features": [].
func EmptyFeatureCollection() FeatureCollection {
	return FeatureCollection{Type: TypeFeatureCollection, Features: []json.RawMessage{}}
}

// DecodeFeatureCollection parses an aggregated FeatureCollection column. A NULL
// column or a null features member yields an empty collection.
func DecodeFeatureCollection(raw []byte) (FeatureCollection, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return EmptyFeatureCollection(), nil
	}

	var fc FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return FeatureCollection{}, fmt.Errorf("decoding feature collection: %w", err)
	}
	if fc.Type == "" {
		fc.Type = TypeFeatureCollection
	}
	if fc.Features == nil {
		fc.Features = []json.RawMessage{}
	}
	return fc, nil
}
