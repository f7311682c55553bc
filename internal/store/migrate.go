package store

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/and161185/timetill/internal/model"
)

// decodeDocument parses raw document bytes. Documents tagged with the
// current schema version decode directly; anything older (including the
// untagged legacy layout) goes through the field-by-field migration with
// documented defaults.
func decodeDocument(b []byte) (*model.Document, error) {
	var probe struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, err
	}

	if probe.SchemaVersion >= model.CurrentSchemaVersion {
		var doc model.Document
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		normalize(&doc)
		return &doc, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return migrateLegacy(raw), nil
}

// migrateLegacy lifts a version-0 (duck-typed) document into the current
// schema. Unknown or missing fields resolve to defaults:
//   - unknown plan unit -> minutes, value < 1 -> 1
//   - allowance < 1 -> 1
//   - missing item availability -> available
//   - legacy credential hashes are dropped (scheme incompatible); affected
//     accounts need a password reset by an admin
//
// The legacy persisted admin principal (currentAdmin) is intentionally not
// carried over; sessions are token-scoped now.
func migrateLegacy(raw map[string]any) *model.Document {
	doc := model.DefaultDocument()

	for _, u := range cast.ToSlice(raw["users"]) {
		m := cast.ToStringMap(u)
		username := cast.ToString(m["username"])
		if username == "" {
			username = cast.ToString(m["email"])
		}
		if username == "" {
			continue
		}
		allowance := cast.ToInt64(m["allowanceMinutes"])
		if allowance < 1 {
			allowance = 1
		}
		doc.Users = append(doc.Users, model.User{
			ID:               cast.ToInt64(m["id"]),
			Username:         username,
			AllowanceMinutes: allowance,
			IsAdmin:          cast.ToBool(m["isAdmin"]),
			CreatedAt:        legacyTime(m["createdAt"]),
		})
	}

	for _, p := range cast.ToSlice(raw["plans"]) {
		m := cast.ToStringMap(p)
		value := cast.ToFloat64(m["value"])
		if value <= 0 {
			value = 1
		}
		doc.Plans = append(doc.Plans, model.Plan{
			ID:    cast.ToInt64(m["id"]),
			Name:  cast.ToString(m["name"]),
			Value: value,
			Unit:  normalizeUnit(model.PlanUnit(cast.ToString(m["unit"]))),
		})
	}

	for _, pr := range cast.ToSlice(raw["producers"]) {
		m := cast.ToStringMap(pr)
		producer := model.Producer{
			ID:    cast.ToInt64(m["id"]),
			Name:  cast.ToString(m["name"]),
			Email: cast.ToString(m["email"]),
			Items: []model.Item{},
		}
		for _, it := range cast.ToSlice(m["items"]) {
			im := cast.ToStringMap(it)
			available := true
			if _, ok := im["available"]; ok {
				available = cast.ToBool(im["available"])
			}
			producer.Items = append(producer.Items, model.Item{
				ID:          cast.ToInt64(im["id"]),
				Name:        cast.ToString(im["name"]),
				Description: cast.ToString(im["description"]),
				Price:       legacyDecimal(im["price"]),
				OwnerID:     producer.ID,
				Available:   available,
			})
		}
		doc.Producers = append(doc.Producers, producer)
	}

	for _, o := range cast.ToSlice(raw["orders"]) {
		m := cast.ToStringMap(o)
		order := model.Order{
			ID:              cast.ToInt64(m["id"]),
			BuyerID:         cast.ToInt64(m["buyerId"]),
			BuyerName:       cast.ToString(m["buyerName"]),
			BuyerEmail:      cast.ToString(m["buyerEmail"]),
			Total:           legacyDecimal(m["total"]),
			Status:          model.OrderStatus(cast.ToString(m["status"])),
			ShippingAddress: cast.ToString(m["shippingAddress"]),
			ShippingCity:    cast.ToString(m["shippingCity"]),
			CreatedAt:       legacyTime(m["createdAt"]),
			Lines:           []model.CartLine{},
		}
		if order.Status == "" {
			order.Status = model.OrderPaid
		}
		for _, l := range cast.ToSlice(m["lines"]) {
			lm := cast.ToStringMap(l)
			order.Lines = append(order.Lines, model.CartLine{
				ItemID:       cast.ToInt64(lm["itemId"]),
				Name:         cast.ToString(lm["name"]),
				Price:        legacyDecimal(lm["price"]),
				ProducerName: cast.ToString(lm["producerName"]),
				AddedAt:      legacyTime(lm["addedAt"]),
			})
		}
		doc.Orders = append(doc.Orders, order)
	}

	if pc, ok := raw["paymentConfig"]; ok {
		m := cast.ToStringMap(pc)
		doc.Payment = model.PaymentConfig{
			Provider:  cast.ToString(m["provider"]),
			PublicKey: cast.ToString(m["publicKey"]),
		}
		if doc.Payment.Provider == "" {
			doc.Payment.Provider = "simulated"
		}
	}

	normalize(doc)
	return doc
}

// normalize repairs a decoded document in place: non-nil collections,
// known plan units, current schema tag.
func normalize(doc *model.Document) {
	doc.SchemaVersion = model.CurrentSchemaVersion
	if doc.Users == nil {
		doc.Users = []model.User{}
	}
	if doc.Plans == nil {
		doc.Plans = []model.Plan{}
	}
	if doc.Producers == nil {
		doc.Producers = []model.Producer{}
	}
	if doc.Orders == nil {
		doc.Orders = []model.Order{}
	}
	if doc.Cart == nil {
		doc.Cart = []model.CartLine{}
	}
	for i := range doc.Plans {
		doc.Plans[i].Unit = normalizeUnit(doc.Plans[i].Unit)
	}
	if doc.Payment.Provider == "" {
		doc.Payment.Provider = "simulated"
	}
}

func normalizeUnit(u model.PlanUnit) model.PlanUnit {
	switch u {
	case model.UnitMinutes, model.UnitHours, model.UnitDays, model.UnitWeeks, model.UnitMonths:
		return u
	default:
		return model.UnitMinutes
	}
}

func legacyDecimal(v any) decimal.Decimal {
	d, err := decimal.NewFromString(cast.ToString(v))
	if err != nil {
		return decimal.NewFromFloat(cast.ToFloat64(v))
	}
	return d
}

func legacyTime(v any) time.Time {
	if t := cast.ToTime(v); !t.IsZero() {
		return t
	}
	// Legacy documents stored epoch milliseconds.
	if ms := cast.ToInt64(v); ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
