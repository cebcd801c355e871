package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

// SnapshotFormatVersion is written into every encoded snapshot.
const SnapshotFormatVersion = 1

type snapshotRecord struct {
	Version int            `json:"version"`
	Items   []snapshotItem `json:"items"`
}

type snapshotItem struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	UnitPrice  json.Number    `json:"unitPrice"`
	Quantity   int            `json:"quantity"`
	Image      string         `json:"image,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EncodeSnapshot serializes items into the durable snapshot document.
func EncodeSnapshot(items []LineItem) ([]byte, error) {
	record := snapshotRecord{
		Version: SnapshotFormatVersion,
		Items:   make([]snapshotItem, 0, len(items)),
	}
	for _, item := range items {
		record.Items = append(record.Items, snapshotItem{
			ID:         item.ID,
			Name:       item.Name,
			UnitPrice:  json.Number(item.UnitPrice.String()),
			Quantity:   item.Quantity,
			Image:      item.Image,
			Attributes: item.Attributes,
		})
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot document. Besides the current format it
// accepts a bare JSON array of items and the legacy "price" field name, so
// carts written by older storefront builds still load. Any unknown item
// field is kept in Attributes. Every failure is a CodeSnapshotInvalid error;
// callers treat it as "no snapshot".
func DecodeSnapshot(data []byte) ([]LineItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, invalidSnapshot("empty document", nil)
	}

	var rawItems []map[string]json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &rawItems); err != nil {
			return nil, invalidSnapshot("malformed item list", err)
		}
	case '{':
		var envelope struct {
			Version int                          `json:"version"`
			Items   []map[string]json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, invalidSnapshot("malformed document", err)
		}
		if envelope.Version > SnapshotFormatVersion {
			return nil, invalidSnapshot(fmt.Sprintf("unsupported version %d", envelope.Version), nil)
		}
		rawItems = envelope.Items
	default:
		return nil, invalidSnapshot("document is neither an object nor an array", nil)
	}

	items := make([]LineItem, 0, len(rawItems))
	seen := make(map[string]struct{}, len(rawItems))
	for i, raw := range rawItems {
		item, err := decodeItem(raw)
		if err != nil {
			return nil, invalidSnapshot(fmt.Sprintf("item %d", i), err)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, invalidSnapshot(fmt.Sprintf("duplicate item id %q", item.ID), nil)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(raw map[string]json.RawMessage) (LineItem, error) {
	var item LineItem

	id, err := decodeID(raw["id"])
	if err != nil {
		return item, err
	}
	item.ID = id

	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &item.Name); err != nil {
			return item, fmt.Errorf("name: %w", err)
		}
	}

	priceRaw, ok := raw["unitPrice"]
	if !ok {
		priceRaw, ok = raw["price"]
	}
	if !ok {
		return item, fmt.Errorf("unitPrice is required")
	}
	var price json.Number
	if err := json.Unmarshal(priceRaw, &price); err != nil {
		return item, fmt.Errorf("unitPrice: %w", err)
	}
	item.UnitPrice, err = decimal.NewFromString(price.String())
	if err != nil {
		return item, fmt.Errorf("unitPrice: %w", err)
	}
	if item.UnitPrice.IsNegative() {
		return item, fmt.Errorf("unitPrice must be non-negative")
	}

	qtyRaw, ok := raw["quantity"]
	if !ok {
		return item, fmt.Errorf("quantity is required")
	}
	if err := json.Unmarshal(qtyRaw, &item.Quantity); err != nil {
		return item, fmt.Errorf("quantity: %w", err)
	}
	if item.Quantity <= 0 {
		return item, fmt.Errorf("quantity must be positive, got %d", item.Quantity)
	}
	if item.Quantity > MaxQuantity {
		return item, fmt.Errorf("quantity %d exceeds %d", item.Quantity, MaxQuantity)
	}

	if v, ok := raw["image"]; ok {
		if err := json.Unmarshal(v, &item.Image); err != nil {
			return item, fmt.Errorf("image: %w", err)
		}
	}
	if v, ok := raw["attributes"]; ok && string(v) != "null" {
		if err := unmarshalNumbers(v, &item.Attributes); err != nil {
			return item, fmt.Errorf("attributes: %w", err)
		}
	}

	for key, v := range raw {
		switch key {
		case "id", "name", "unitPrice", "price", "quantity", "image", "attributes":
			continue
		}
		var extra any
		if err := unmarshalNumbers(v, &extra); err != nil {
			return item, fmt.Errorf("%s: %w", key, err)
		}
		if item.Attributes == nil {
			item.Attributes = map[string]any{}
		}
		if _, exists := item.Attributes[key]; !exists {
			item.Attributes[key] = extra
		}
	}
	return item, nil
}

// unmarshalNumbers decodes free-form values keeping numbers as json.Number,
// so large integers survive a load and re-save unchanged.
func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeID accepts string ids and, for older carts, numeric ones.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("id is required")
	}
	var id string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("id: %w", err)
		}
	} else {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return "", fmt.Errorf("id: %w", err)
		}
		id = num.String()
	}
	if id == "" {
		return "", fmt.Errorf("id is required")
	}
	return id, nil
}

func invalidSnapshot(reason string, cause error) error {
	msg := "invalid cart snapshot: " + reason
	if cause == nil {
		return pkgerrors.New(pkgerrors.CodeSnapshotInvalid, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeSnapshotInvalid, cause, msg).
		WithDetails(map[string]any{"cause": cause.Error()})
}
