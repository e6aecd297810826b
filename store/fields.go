// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/chantier/models"
)

var dayMonthPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)

// ValidateFieldPath checks that path names an editable field of an item
func ValidateFieldPath(path string) error {
	parts := strings.Split(path, ".")
	switch parts[0] {
	case "product", "reference", "supplierLink", "laborType":
		if len(parts) == 1 {
			return nil
		}
	case "price":
		if len(parts) == 2 && (parts[1] == "ttc" || parts[1] == "htQuote") {
			return nil
		}
	case "approvals":
		if len(parts) == 3 {
			if _, ok := models.ParseRole(parts[1]); ok {
				switch parts[2] {
				case "status", "note", "validatedAt", "replacementUrls":
					return nil
				}
			}
		}
	case "order":
		if len(parts) == 2 {
			switch parts[1] {
			case "ordered", "orderDate", "delivery", "quantity":
				return nil
			}
		}
		if len(parts) == 3 && parts[1] == "delivery" && (parts[2] == "date" || parts[2] == "status") {
			return nil
		}
	case "comments":
		if len(parts) == 2 {
			if _, ok := models.ParseRole(parts[1]); ok {
				return nil
			}
		}
	}
	return invalidf("unknown field path %q", path)
}

// docFieldValue extracts the JSON value at path from an item document.
// Missing keys read as null.
func docFieldValue(doc models.ItemDoc, path string) (json.RawMessage, error) {
	if err := ValidateFieldPath(path); err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}

	parts := strings.Split(path, ".")
	if parts[0] == "approvals" || parts[0] == "comments" {
		parts[1] = models.RoleJSONKey(mustRole(parts[1]))
	}

	current := json.RawMessage(b)
	for _, key := range parts {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil || obj == nil {
			return json.RawMessage("null"), nil
		}
		next, ok := obj[key]
		if !ok {
			return json.RawMessage("null"), nil
		}
		current = next
	}
	return current, nil
}

func mustRole(s string) string {
	role, _ := models.ParseRole(s)
	return role
}

// applyField writes a JSON value to the field at path of one item
func applyField(ctx context.Context, q queryer, itemID int64, path string, raw json.RawMessage) error {
	if err := ValidateFieldPath(path); err != nil {
		return err
	}
	parts := strings.Split(path, ".")

	switch parts[0] {
	case "product":
		v, err := decodeOptString(raw)
		if err != nil {
			return err
		}
		if v == nil || strings.TrimSpace(*v) == "" {
			return invalidf("product must not be empty")
		}
		return updateItemColumn(ctx, q, itemID, "product", strings.TrimSpace(*v))

	case "reference", "supplierLink":
		v, err := decodeOptString(raw)
		if err != nil {
			return err
		}
		column := "reference"
		if parts[0] == "supplierLink" {
			column = "supplier_link"
		}
		return updateItemColumn(ctx, q, itemID, column, trimmedOrNil(v))

	case "laborType":
		v, err := decodeOptString(raw)
		if err != nil {
			return err
		}
		code, err := workTypeParam(v)
		if err != nil {
			return err
		}
		return updateItemColumn(ctx, q, itemID, "labor_type", code)

	case "price":
		v, err := decodeOptFloat(raw)
		if err != nil {
			return err
		}
		if err := checkPrice(v); err != nil {
			return err
		}
		column := "price_ttc"
		if parts[1] == "htQuote" {
			column = "price_ht_quote"
		}
		return updateItemColumn(ctx, q, itemID, column, floatParam(v))

	case "approvals":
		return applyApprovalField(ctx, q, itemID, mustRole(parts[1]), parts[2], raw)

	case "order":
		return applyOrderField(ctx, q, itemID, parts[1:], raw)

	case "comments":
		v, err := decodeOptString(raw)
		if err != nil {
			return err
		}
		return setComment(ctx, q, itemID, mustRole(parts[1]), v)
	}
	return invalidf("unknown field path %q", path)
}

// column names come from the fixed set in applyField, never from input
func updateItemColumn(ctx context.Context, q queryer, itemID int64, column string, value any) error {
	res, err := q.ExecContext(ctx, `UPDATE items SET `+column+` = $2, updated_at = NOW() WHERE id = $1`, itemID, value)
	if err != nil {
		return classify(err, "update item "+column)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

func applyApprovalField(ctx context.Context, q queryer, itemID int64, role, field string, raw json.RawMessage) error {
	switch field {
	case "status":
		v, err := decodeOptString(raw)
		if err != nil {
			return err
		}
		if v == nil || strings.TrimSpace(*v) == "" {
			_, err := q.ExecContext(ctx, `DELETE FROM approvals WHERE item_id = $1 AND role = $2`, itemID, role)
			return classify(err, "delete approval")
		}
		status, ok := models.ParseApprovalStatus(*v)
		if !ok {
			return invalidf("unknown approval status %q", *v)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO approvals (item_id, role, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (item_id, role) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		`, itemID, role, status)
		return classify(err, "set approval status")

	case "note":
		v, err := decodeOptString(raw)
		if err != nil {
			return err
		}
		id, ok, err := existingApproval(ctx, q, itemID, role)
		if err != nil || !ok {
			return err
		}
		_, err = q.ExecContext(ctx, `UPDATE approvals SET note = $2, updated_at = NOW() WHERE id = $1`, id, trimmedOrNil(v))
		return classify(err, "set approval note")

	case "validatedAt":
		v, err := decodeOptString(raw)
		if err != nil {
			return err
		}
		ts, err := parseTimestamp(v)
		if err != nil {
			return err
		}
		id, ok, err := existingApproval(ctx, q, itemID, role)
		if err != nil || !ok {
			return err
		}
		_, err = q.ExecContext(ctx, `UPDATE approvals SET validated_at = $2, updated_at = NOW() WHERE id = $1`, id, ts)
		return classify(err, "set approval validation date")

	case "replacementUrls":
		urls, err := decodeStringList(raw)
		if err != nil {
			return err
		}
		id, ok, err := existingApproval(ctx, q, itemID, role)
		if err != nil || !ok {
			return err
		}
		return replaceURLs(ctx, q, id, urls)
	}
	return invalidf("unknown approval field %q", field)
}

// existingApproval finds the approval row of an item for role. Note, date
// and link edits leave items without an approval untouched.
func existingApproval(ctx context.Context, q queryer, itemID int64, role string) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM approvals WHERE item_id = $1 AND role = $2`, itemID, role).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get approval: %w", err)
	}
	return id, true, nil
}

func ensureApproval(ctx context.Context, q queryer, itemID int64, role string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO approvals (item_id, role)
		VALUES ($1, $2)
		ON CONFLICT (item_id, role) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, itemID, role).Scan(&id)
	if err != nil {
		return 0, classify(err, "ensure approval")
	}
	return id, nil
}

func applyOrderField(ctx context.Context, q queryer, itemID int64, parts []string, raw json.RawMessage) error {
	if _, err := q.ExecContext(ctx, `INSERT INTO orders (item_id) VALUES ($1) ON CONFLICT (item_id) DO NOTHING`, itemID); err != nil {
		return classify(err, "ensure order")
	}

	var column string
	var value any
	var err error

	switch strings.Join(parts, ".") {
	case "ordered":
		column = "ordered"
		value, err = decodeBool(raw)
	case "orderDate":
		column = "order_date"
		value, err = decodeDayMonth(raw)
	case "quantity":
		column = "quantity"
		var n *int
		if n, err = decodeOptInt(raw); err == nil {
			value, err = quantityParam(n)
		}
	case "delivery.date":
		column = "delivery_date"
		value, err = decodeDayMonth(raw)
	case "delivery.status":
		column = "delivery_status"
		var s *string
		if s, err = decodeOptString(raw); err == nil {
			value, err = deliveryStatusParam(s)
		}
	case "delivery":
		var d models.DeliveryDoc
		if len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if err := json.Unmarshal(raw, &d); err != nil {
				return invalidf("delivery must be an object with date and status")
			}
		}
		date, err := dayMonthParam(d.Date)
		if err != nil {
			return err
		}
		status, err := deliveryStatusParam(d.Status)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			UPDATE orders SET delivery_date = $2, delivery_status = $3, updated_at = NOW() WHERE item_id = $1
		`, itemID, date, status)
		return classify(err, "set delivery")
	default:
		return invalidf("unknown order field %q", strings.Join(parts, "."))
	}
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `UPDATE orders SET `+column+` = $2, updated_at = NOW() WHERE item_id = $1`, itemID, value)
	return classify(err, "update order "+column)
}

// Value decoding. Every decoder treats an absent value as JSON null.

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func decodeOptString(raw json.RawMessage) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, invalidf("expected a string, got %s", raw)
	}
	return &s, nil
}

func decodeOptFloat(raw json.RawMessage) (*float64, error) {
	if isNull(raw) {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseAmount(s)
	}
	return nil, invalidf("expected a number, got %s", raw)
}

// ParseAmount reads a price typed by a person: "1 234,50", "12.5", "45 €"
func ParseAmount(s string) (*float64, error) {
	clean := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "€", "", ",", ".").Replace(strings.TrimSpace(s))
	if clean == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalidf("%q is not a number", s)
	}
	return &f, nil
}

func decodeOptInt(raw json.RawMessage) (*int, error) {
	f, err := decodeOptFloat(raw)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, invalidf("expected a whole number, got %v", *f)
	}
	if *f < math.MinInt32 || *f > math.MaxInt32 {
		return nil, invalidf("%v is out of range", *f)
	}
	n := int(*f)
	return &n, nil
}

func decodeBool(raw json.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "oui":
			return true, nil
		case "false", "no", "non", "":
			return false, nil
		}
	}
	return false, invalidf("expected true or false, got %s", raw)
}

func decodeStringList(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, invalidf("expected a list of strings, got %s", raw)
	}
	return list, nil
}

func decodeDayMonth(raw json.RawMessage) (any, error) {
	s, err := decodeOptString(raw)
	if err != nil {
		return nil, err
	}
	return dayMonthParam(s)
}

// Column parameters

func workTypeParam(s *string) (any, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	code, ok := models.ParseWorkType(*s)
	if !ok {
		return nil, invalidf("unknown labor type %q", *s)
	}
	return code, nil
}

func checkPrice(p *float64) error {
	if p != nil && *p < 0 {
		return invalidf("price must not be negative")
	}
	return nil
}

func floatParam(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// quantityParam maps zero or missing quantities to NULL and rejects
// negative ones
func quantityParam(n *int) (any, error) {
	if n == nil || *n == 0 {
		return nil, nil
	}
	if *n < 0 || *n > math.MaxInt32 {
		return nil, invalidf("quantity must be positive, got %d", *n)
	}
	return *n, nil
}

func dayMonthParam(s *string) (any, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if !dayMonthPattern.MatchString(v) {
		return nil, invalidf("date %q must use the dd/mm format", v)
	}
	return v, nil
}

func deliveryStatusParam(s *string) (any, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	status, ok := models.ParseDeliveryStatus(*s)
	if !ok {
		return nil, invalidf("unknown delivery status %q", *s)
	}
	return status, nil
}

func parseTimestamp(s *string) (any, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, invalidf("invalid timestamp %q", v)
}
