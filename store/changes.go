// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/danielhkuo/chantier/auth"
	"github.com/danielhkuo/chantier/models"
)

// agentFields maps the field names the assistant uses to item field paths
var agentFields = map[string]string{
	"product":         "product",
	"reference":       "reference",
	"supplier_link":   "supplierLink",
	"labor_type":      "laborType",
	"price_ttc":       "price.ttc",
	"price_ht_quote":  "price.htQuote",
	"ordered":         "order.ordered",
	"order_date":      "order.orderDate",
	"delivery_date":   "order.delivery.date",
	"delivery_status": "order.delivery.status",
	"quantity":        "order.quantity",
}

// AgentFieldNames lists the fields update_item_field accepts, sorted
func AgentFieldNames() []string {
	names := make([]string, 0, len(agentFields))
	for name := range agentFields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *PostgresStore) previewItem(ctx context.Context, itemID int64) (*loadedItem, error) {
	if itemID <= 0 {
		return nil, invalidf("item_id must be a positive integer")
	}
	return getItem(ctx, s.db, itemID)
}

func basePreview(action string, item *loadedItem) models.ActionPreview {
	return models.ActionPreview{
		Action:       action,
		ItemID:       item.ID,
		ItemProduct:  item.Doc.Product,
		SectionID:    item.SectionID,
		SectionLabel: item.SectionLabel,
	}
}

// currentValue decodes the document value at path into a plain Go value
func currentValue(doc models.ItemDoc, path string) (any, error) {
	raw, err := docFieldValue(doc, path)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode current value: %w", err)
	}
	return v, nil
}

func approvalDoc(doc models.ItemDoc, role string) models.ApprovalDoc {
	if role == models.RoleContractor {
		return doc.Approvals.Cray
	}
	return doc.Approvals.Client
}

func approvalPath(role, field string) string {
	return "approvals." + models.RoleJSONKey(role) + "." + field
}

// PreviewApproval proposes setting the approval status of one role on an
// item. An empty status proposes clearing the approval.
func (s *PostgresStore) PreviewApproval(ctx context.Context, itemID int64, role, status, userRole, lang string) (models.ActionPreview, error) {
	if strings.TrimSpace(role) == "" {
		return models.ActionPreview{}, invalidf("role is required")
	}
	approvalRole, ok := models.ParseRole(role)
	if !ok {
		return models.ActionPreview{}, invalidf("unknown role %q, expected client or contractor", role)
	}
	if err := auth.CanSetApproval(userRole, approvalRole); err != nil {
		return models.ActionPreview{}, err
	}

	var newValue any
	if strings.TrimSpace(status) != "" {
		parsed, ok := models.ParseApprovalStatus(status)
		if !ok {
			return models.ActionPreview{}, invalidf("unknown approval status %q", status)
		}
		newValue = models.ApprovalStatusJSON(parsed)
	}

	item, err := s.previewItem(ctx, itemID)
	if err != nil {
		return models.ActionPreview{}, err
	}

	p := basePreview(models.ActionUpdateItemApproval, item)
	p.Role = approvalRole
	p.FieldPath = approvalPath(approvalRole, "status")
	if p.CurrentValue, err = currentValue(item.Doc, p.FieldPath); err != nil {
		return models.ActionPreview{}, err
	}
	p.NewValue = newValue
	p.NLP = approvalSentence(p, lang)
	return p, nil
}

// PreviewAddURL proposes adding a replacement link to a role's approval
func (s *PostgresStore) PreviewAddURL(ctx context.Context, itemID int64, role, link, lang string) (models.ActionPreview, error) {
	return s.previewURL(ctx, models.ActionAddReplacementURL, itemID, role, link, lang)
}

// PreviewRemoveURL proposes removing a replacement link from a role's approval
func (s *PostgresStore) PreviewRemoveURL(ctx context.Context, itemID int64, role, link, lang string) (models.ActionPreview, error) {
	return s.previewURL(ctx, models.ActionRemoveReplacementURL, itemID, role, link, lang)
}

func (s *PostgresStore) previewURL(ctx context.Context, action string, itemID int64, role, link, lang string) (models.ActionPreview, error) {
	approvalRole, ok := models.ParseRole(role)
	if !ok {
		return models.ActionPreview{}, invalidf("unknown role %q, expected client or contractor", role)
	}
	link = strings.TrimSpace(link)
	if link == "" {
		return models.ActionPreview{}, invalidf("url is required")
	}
	if action == models.ActionAddReplacementURL {
		if u, err := url.Parse(link); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return models.ActionPreview{}, invalidf("%q is not an http(s) url", link)
		}
	}

	item, err := s.previewItem(ctx, itemID)
	if err != nil {
		return models.ActionPreview{}, err
	}

	current := approvalDoc(item.Doc, approvalRole).ReplacementURLs
	present := slices.Contains(current, link)
	var next []string
	switch {
	case action == models.ActionAddReplacementURL && present:
		return models.ActionPreview{}, fmt.Errorf("url %q is already listed: %w", link, ErrConflict)
	case action == models.ActionAddReplacementURL:
		next = append(slices.Clone(current), link)
	case !present:
		return models.ActionPreview{}, fmt.Errorf("url %q is not listed: %w", link, ErrNotFound)
	default:
		next = slices.DeleteFunc(slices.Clone(current), func(u string) bool { return u == link })
	}

	p := basePreview(action, item)
	p.Role = approvalRole
	p.URL = link
	p.FieldPath = approvalPath(approvalRole, "replacementUrls")
	p.CurrentValue = stringsOrEmpty(current)
	p.NewValue = stringsOrEmpty(next)
	p.NLP = urlSentence(p, lang)
	return p, nil
}

func stringsOrEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// PreviewFieldUpdate proposes changing one agent-editable field. The new
// value is coerced here so the preview shows what will be stored.
func (s *PostgresStore) PreviewFieldUpdate(ctx context.Context, itemID int64, fieldName string, newValue any, hint, lang string) (models.ActionPreview, error) {
	fieldName = strings.TrimSpace(fieldName)
	if fieldName == "" {
		return models.ActionPreview{}, invalidf("field_name is required")
	}
	path, ok := agentFields[fieldName]
	if !ok {
		return models.ActionPreview{}, invalidf("field %q cannot be updated, expected one of %s", fieldName, strings.Join(AgentFieldNames(), ", "))
	}
	coerced, err := coerceFieldValue(fieldName, newValue)
	if err != nil {
		return models.ActionPreview{}, err
	}

	item, err := s.previewItem(ctx, itemID)
	if err != nil {
		return models.ActionPreview{}, err
	}
	if hint != "" && !ProductMatchesHint(item.Doc.Product, hint) {
		return models.ActionPreview{}, invalidf("product mismatch: item %d is %q, expected something matching %q", itemID, item.Doc.Product, hint)
	}

	p := basePreview(models.ActionUpdateItemField, item)
	p.FieldName = fieldName
	p.FieldPath = path
	if p.CurrentValue, err = currentValue(item.Doc, path); err != nil {
		return models.ActionPreview{}, err
	}
	p.NewValue = coerced
	p.NLP = fieldSentence(p, lang)
	return p, nil
}

// coerceFieldValue normalizes a value the assistant produced for field to
// the form the materials document uses.
func coerceFieldValue(field string, v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, invalidf("new_value cannot be encoded: %v", err)
	}

	switch field {
	case "product":
		s, err := decodeLoose(raw)
		if err != nil {
			return nil, err
		}
		if s == nil || strings.TrimSpace(*s) == "" {
			return nil, invalidf("product must not be empty")
		}
		return strings.TrimSpace(*s), nil

	case "reference", "supplier_link":
		s, err := decodeLoose(raw)
		if err != nil {
			return nil, err
		}
		return trimmedOrNil(s), nil

	case "labor_type":
		s, err := decodeOptString(raw)
		if err != nil {
			return nil, err
		}
		code, err := workTypeParam(s)
		if err != nil || code == nil {
			return nil, err
		}
		return models.WorkTypeLabel(code.(string)), nil

	case "price_ttc", "price_ht_quote":
		f, err := decodeOptFloat(raw)
		if err != nil {
			return nil, err
		}
		if err := checkPrice(f); err != nil {
			return nil, err
		}
		return floatParam(f), nil

	case "ordered":
		return decodeBool(raw)

	case "order_date", "delivery_date":
		s, err := decodeLoose(raw)
		if err != nil {
			return nil, err
		}
		return dayMonthParam(s)

	case "delivery_status":
		s, err := decodeOptString(raw)
		if err != nil {
			return nil, err
		}
		return deliveryStatusParam(s)

	case "quantity":
		n, err := decodeOptInt(raw)
		if err != nil {
			return nil, err
		}
		return quantityParam(n)
	}
	return nil, invalidf("field %q cannot be updated", field)
}

// decodeLoose reads a string, also accepting numbers the model sent unquoted
func decodeLoose(raw json.RawMessage) (*string, error) {
	if s, err := decodeOptString(raw); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		s := n.String()
		return &s, nil
	}
	return nil, invalidf("expected a string, got %s", raw)
}

// ApplyAction executes a confirmed preview in one transaction and records
// the change with source agent. URL changes apply to the links stored at
// execution time.
func (s *PostgresStore) ApplyAction(ctx context.Context, p models.ActionPreview) (models.ItemDoc, error) {
	var updated models.ItemDoc
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getItem(ctx, tx, p.ItemID)
		if err != nil {
			return err
		}

		var after *loadedItem
		switch p.Action {
		case models.ActionUpdateItemApproval, models.ActionUpdateItemField:
			raw, err := json.Marshal(p.NewValue)
			if err != nil {
				return fmt.Errorf("encode new value: %w", err)
			}
			after, err = applyAndRecord(ctx, tx, before, p.FieldPath, raw, models.SourceAgent)
			if err != nil {
				return err
			}

		case models.ActionAddReplacementURL, models.ActionRemoveReplacementURL:
			role, ok := models.ParseRole(p.Role)
			if !ok {
				return invalidf("unknown role %q", p.Role)
			}
			after, err = mutateAndRecord(ctx, tx, before, p.FieldPath, models.SourceAgent, func() error {
				return changeURL(ctx, tx, p.ItemID, role, p.URL, p.Action == models.ActionAddReplacementURL)
			})
			if err != nil {
				return err
			}

		default:
			return invalidf("unknown action %q", p.Action)
		}

		updated = after.Doc
		return nil
	})
	return updated, err
}

func changeURL(ctx context.Context, q queryer, itemID int64, role, link string, add bool) error {
	if !add {
		_, err := q.ExecContext(ctx, `
			DELETE FROM replacement_urls
			WHERE url = $3 AND approval_id IN (SELECT id FROM approvals WHERE item_id = $1 AND role = $2)
		`, itemID, role, link)
		return classify(err, "remove replacement url")
	}

	approvalID, err := ensureApproval(ctx, q, itemID, role)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO replacement_urls (approval_id, url)
		SELECT $1::integer, $2::text
		WHERE NOT EXISTS (SELECT 1 FROM replacement_urls WHERE approval_id = $1::integer AND url = $2::text)
	`, approvalID, link)
	return classify(err, "add replacement url")
}
