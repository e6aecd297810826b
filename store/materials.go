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
	"strings"
	"time"

	"github.com/danielhkuo/chantier/models"
)

const itemDocQuery = `
	SELECT s.id, s.label, i.id, i.product, i.reference, i.supplier_link, i.labor_type,
		i.price_ttc, i.price_ht_quote,
		o.id, o.ordered, o.order_date, o.delivery_date, o.delivery_status, o.quantity,
		cc.comment_text, ck.comment_text,
		p.name, p.address
	FROM sections s
	LEFT JOIN items i ON i.section_id = s.id
	LEFT JOIN orders o ON o.item_id = i.id
	LEFT JOIN comments cc ON cc.item_id = i.id AND cc.role = 'client'
	LEFT JOIN comments ck ON ck.item_id = i.id AND ck.role = 'contractor'
	LEFT JOIN projects p ON p.id = s.project_id
`

const approvalDocQuery = `
	SELECT a.id, a.item_id, a.role, a.status, a.note, a.validated_at
	FROM approvals a
	JOIN items i ON i.id = a.item_id
	JOIN sections s ON s.id = i.section_id
`

const replacementURLQuery = `
	SELECT r.approval_id, r.url
	FROM replacement_urls r
	JOIN approvals a ON a.id = r.approval_id
	JOIN items i ON i.id = a.item_id
	JOIN sections s ON s.id = i.section_id
`

type loadedItem struct {
	ID           int64
	SectionID    string
	SectionLabel string
	Doc          models.ItemDoc
}

// loadItemDocs reads sections and their items in id order. where is applied
// to the section (s) and item (i) aliases of every query.
func loadItemDocs(ctx context.Context, q queryer, where string, args ...any) ([]models.SectionDoc, map[int64]*loadedItem, error) {
	rows, err := q.QueryContext(ctx, itemDocQuery+where+" ORDER BY s.id, i.id", args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var sections []models.SectionDoc
	var order [][]int64
	byID := make(map[int64]*loadedItem)

	for rows.Next() {
		var (
			sectionID, sectionLabel                     string
			itemID                                      sql.NullInt64
			product, reference, supplierLink, laborType sql.NullString
			priceTTC, priceHT                           sql.NullFloat64
			orderID                                     sql.NullInt64
			ordered                                     sql.NullBool
			orderDate, deliveryDate, deliveryStatus     sql.NullString
			quantity                                    sql.NullInt64
			clientComment, crayComment                  sql.NullString
			projectName, projectAddress                 sql.NullString
		)
		if err := rows.Scan(&sectionID, &sectionLabel, &itemID, &product, &reference, &supplierLink, &laborType,
			&priceTTC, &priceHT,
			&orderID, &ordered, &orderDate, &deliveryDate, &deliveryStatus, &quantity,
			&clientComment, &crayComment,
			&projectName, &projectAddress); err != nil {
			return nil, nil, fmt.Errorf("scan item: %w", err)
		}

		if len(sections) == 0 || sections[len(sections)-1].ID != sectionID {
			sections = append(sections, models.SectionDoc{ID: sectionID, Label: sectionLabel, Items: []models.ItemDoc{}})
			order = append(order, nil)
		}
		if !itemID.Valid {
			continue
		}

		doc := models.ItemDoc{
			Product:      product.String,
			Reference:    stringPtr(reference),
			SupplierLink: stringPtr(supplierLink),
			Price:        models.PriceDoc{TTC: floatPtr(priceTTC), HTQuote: floatPtr(priceHT)},
			Comments:     models.CommentsDoc{Client: stringPtr(clientComment), Cray: stringPtr(crayComment)},
		}
		if laborType.Valid {
			label := models.WorkTypeLabel(laborType.String)
			doc.LaborType = &label
		}
		if orderID.Valid {
			doc.Order = models.OrderDoc{
				Ordered:   boolPtr(ordered),
				OrderDate: stringPtr(orderDate),
				Delivery:  &models.DeliveryDoc{Date: stringPtr(deliveryDate), Status: stringPtr(deliveryStatus)},
				Quantity:  intPtr(quantity),
			}
		}
		if projectName.Valid {
			chantier := projectName.String
			if projectAddress.Valid && projectAddress.String != "" {
				chantier = projectAddress.String
			}
			doc.Chantier = &chantier
		}

		byID[itemID.Int64] = &loadedItem{ID: itemID.Int64, SectionID: sectionID, SectionLabel: sectionLabel, Doc: doc}
		order[len(order)-1] = append(order[len(order)-1], itemID.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate items: %w", err)
	}

	if len(byID) > 0 {
		if err := loadApprovals(ctx, q, byID, where, args...); err != nil {
			return nil, nil, err
		}
	}

	for si := range sections {
		for _, id := range order[si] {
			sections[si].Items = append(sections[si].Items, byID[id].Doc)
		}
	}
	return sections, byID, nil
}

func loadApprovals(ctx context.Context, q queryer, items map[int64]*loadedItem, where string, args ...any) error {
	urls := make(map[int64][]string)
	rows, err := q.QueryContext(ctx, replacementURLQuery+where+" ORDER BY r.id", args...)
	if err != nil {
		return fmt.Errorf("query replacement urls: %w", err)
	}
	for rows.Next() {
		var approvalID int64
		var url string
		if err := rows.Scan(&approvalID, &url); err != nil {
			rows.Close()
			return fmt.Errorf("scan replacement url: %w", err)
		}
		urls[approvalID] = append(urls[approvalID], url)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate replacement urls: %w", err)
	}

	rows, err = q.QueryContext(ctx, approvalDocQuery+where, args...)
	if err != nil {
		return fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			approvalID, itemID int64
			role               string
			status, note       sql.NullString
			validatedAt        sql.NullTime
		)
		if err := rows.Scan(&approvalID, &itemID, &role, &status, &note, &validatedAt); err != nil {
			return fmt.Errorf("scan approval: %w", err)
		}
		item, ok := items[itemID]
		if !ok {
			continue
		}

		doc := models.ApprovalDoc{Note: stringPtr(note), ReplacementURLs: urls[approvalID]}
		if status.Valid {
			s := models.ApprovalStatusJSON(status.String)
			doc.Status = &s
		}
		if validatedAt.Valid {
			ts := validatedAt.Time.UTC().Format(time.RFC3339)
			doc.ValidatedAt = &ts
		}

		if role == models.RoleContractor {
			item.Doc.Approvals.Cray = doc
		} else {
			item.Doc.Approvals.Client = doc
		}
	}
	return rows.Err()
}

// GetMaterials returns the materials document, optionally for a single project
func (s *PostgresStore) GetMaterials(ctx context.Context, projectID string) (models.MaterialsDocument, error) {
	sections, _, err := loadItemDocs(ctx, s.db, " WHERE ($1 = '' OR s.project_id = $1)", projectID)
	if err != nil {
		return models.MaterialsDocument{}, err
	}
	if sections == nil {
		sections = []models.SectionDoc{}
	}
	return models.MaterialsDocument{Currency: "EUR", Sections: sections}, nil
}

func getItem(ctx context.Context, q queryer, itemID int64) (*loadedItem, error) {
	_, items, err := loadItemDocs(ctx, q, " WHERE i.id = $1", itemID)
	if err != nil {
		return nil, err
	}
	item, ok := items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return item, nil
}

// SaveMaterials upserts the whole document in one transaction. Items that
// are not in the document are left untouched.
func (s *PostgresStore) SaveMaterials(ctx context.Context, doc models.MaterialsDocument, projectID string) error {
	if projectID != "" {
		if _, err := s.GetProject(ctx, projectID); err != nil {
			return err
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, section := range doc.Sections {
			if strings.TrimSpace(section.ID) == "" || strings.TrimSpace(section.Label) == "" {
				return invalidf("section id and label are required")
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO sections (id, label, project_id)
				VALUES ($1, $2, NULLIF($3, ''))
				ON CONFLICT (id) DO UPDATE SET
					label = EXCLUDED.label,
					project_id = COALESCE(EXCLUDED.project_id, sections.project_id),
					updated_at = NOW()
			`, section.ID, section.Label, projectID)
			if err != nil {
				return classify(err, "upsert section "+section.ID)
			}

			for _, item := range section.Items {
				if strings.TrimSpace(item.Product) == "" {
					continue
				}
				if err := saveItem(ctx, tx, section.ID, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func saveItem(ctx context.Context, tx *sql.Tx, sectionID string, item models.ItemDoc) error {
	laborType, err := workTypeParam(item.LaborType)
	if err != nil {
		return err
	}
	if err := checkPrice(item.Price.TTC); err != nil {
		return err
	}
	if err := checkPrice(item.Price.HTQuote); err != nil {
		return err
	}

	var itemID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO items (section_id, product, reference, supplier_link, labor_type, price_ttc, price_ht_quote)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (section_id, product) DO UPDATE SET
			reference = EXCLUDED.reference,
			supplier_link = EXCLUDED.supplier_link,
			labor_type = EXCLUDED.labor_type,
			price_ttc = EXCLUDED.price_ttc,
			price_ht_quote = EXCLUDED.price_ht_quote,
			updated_at = NOW()
		RETURNING id
	`, sectionID, item.Product, nullString(item.Reference), nullString(item.SupplierLink), laborType,
		floatParam(item.Price.TTC), floatParam(item.Price.HTQuote)).Scan(&itemID)
	if err != nil {
		return classify(err, "upsert item "+item.Product)
	}

	for _, a := range []struct {
		role string
		doc  models.ApprovalDoc
	}{
		{models.RoleClient, item.Approvals.Client},
		{models.RoleContractor, item.Approvals.Cray},
	} {
		if err := saveApproval(ctx, tx, itemID, a.role, a.doc); err != nil {
			return err
		}
	}

	if err := saveOrder(ctx, tx, itemID, item.Order); err != nil {
		return err
	}

	if err := setComment(ctx, tx, itemID, models.RoleClient, item.Comments.Client); err != nil {
		return err
	}
	return setComment(ctx, tx, itemID, models.RoleContractor, item.Comments.Cray)
}

func saveApproval(ctx context.Context, tx *sql.Tx, itemID int64, role string, doc models.ApprovalDoc) error {
	// an approval only exists while it has a status
	if doc.Status == nil || strings.TrimSpace(*doc.Status) == "" {
		_, err := tx.ExecContext(ctx, `DELETE FROM approvals WHERE item_id = $1 AND role = $2`, itemID, role)
		return classify(err, "delete approval")
	}

	status, ok := models.ParseApprovalStatus(*doc.Status)
	if !ok {
		return invalidf("unknown approval status %q", *doc.Status)
	}
	validatedAt, err := parseTimestamp(doc.ValidatedAt)
	if err != nil {
		return err
	}

	var approvalID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO approvals (item_id, role, status, note, validated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id, role) DO UPDATE SET
			status = EXCLUDED.status,
			note = EXCLUDED.note,
			validated_at = EXCLUDED.validated_at,
			updated_at = NOW()
		RETURNING id
	`, itemID, role, status, nullString(doc.Note), validatedAt).Scan(&approvalID)
	if err != nil {
		return classify(err, "upsert approval")
	}

	return replaceURLs(ctx, tx, approvalID, doc.ReplacementURLs)
}

func replaceURLs(ctx context.Context, tx queryer, approvalID int64, urls []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM replacement_urls WHERE approval_id = $1`, approvalID); err != nil {
		return classify(err, "delete replacement urls")
	}
	for _, url := range urls {
		if url = strings.TrimSpace(url); url == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO replacement_urls (approval_id, url) VALUES ($1, $2)`, approvalID, url); err != nil {
			return classify(err, "insert replacement url")
		}
	}
	return nil
}

func saveOrder(ctx context.Context, tx *sql.Tx, itemID int64, order models.OrderDoc) error {
	if order.IsEmpty() {
		_, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE item_id = $1`, itemID)
		return classify(err, "delete order")
	}

	ordered := order.Ordered != nil && *order.Ordered
	orderDate, err := dayMonthParam(order.OrderDate)
	if err != nil {
		return err
	}
	quantity, err := quantityParam(order.Quantity)
	if err != nil {
		return err
	}
	var deliveryDate, deliveryStatus any
	if order.Delivery != nil {
		if deliveryDate, err = dayMonthParam(order.Delivery.Date); err != nil {
			return err
		}
		if deliveryStatus, err = deliveryStatusParam(order.Delivery.Status); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (item_id, ordered, order_date, delivery_date, delivery_status, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (item_id) DO UPDATE SET
			ordered = EXCLUDED.ordered,
			order_date = EXCLUDED.order_date,
			delivery_date = EXCLUDED.delivery_date,
			delivery_status = EXCLUDED.delivery_status,
			quantity = EXCLUDED.quantity,
			updated_at = NOW()
	`, itemID, ordered, orderDate, deliveryDate, deliveryStatus, quantity)
	return classify(err, "upsert order")
}

func setComment(ctx context.Context, q queryer, itemID int64, role string, text *string) error {
	if text == nil || strings.TrimSpace(*text) == "" {
		_, err := q.ExecContext(ctx, `DELETE FROM comments WHERE item_id = $1 AND role = $2`, itemID, role)
		return classify(err, "delete comment")
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO comments (item_id, role, comment_text)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, role) DO UPDATE SET comment_text = EXCLUDED.comment_text, updated_at = NOW()
	`, itemID, role, *text)
	return classify(err, "upsert comment")
}

// UpdateCell changes one field of the item at index itemIndex (in id order)
// of a section and records the change in edit history.
func (s *PostgresStore) UpdateCell(ctx context.Context, req models.UpdateCellRequest) (models.ItemDoc, error) {
	if strings.TrimSpace(req.SectionID) == "" || req.ItemIndex == nil || strings.TrimSpace(req.FieldPath) == "" {
		return models.ItemDoc{}, invalidf("section_id, item_index and field_path are required")
	}

	var updated models.ItemDoc
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var sectionLabel string
		err := tx.QueryRowContext(ctx, `SELECT label FROM sections WHERE id = $1`, req.SectionID).Scan(&sectionLabel)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("section %q: %w", req.SectionID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get section: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `SELECT id FROM items WHERE section_id = $1 ORDER BY id`, req.SectionID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan item id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate items: %w", err)
		}

		idx := *req.ItemIndex
		if idx < 0 || idx >= len(ids) {
			return invalidf("item index %d is out of bounds for section %q", idx, req.SectionID)
		}

		before, err := getItem(ctx, tx, ids[idx])
		if err != nil {
			return err
		}
		if req.ExpectedProductHint != "" && !ProductMatchesHint(before.Doc.Product, req.ExpectedProductHint) {
			return invalidf("product mismatch: expected item matching %q, found %q at index %d", req.ExpectedProductHint, before.Doc.Product, idx)
		}

		after, err := applyAndRecord(ctx, tx, before, req.FieldPath, req.NewValue, models.SourceManual)
		if err != nil {
			return err
		}
		updated = after.Doc
		return nil
	})
	return updated, err
}

// applyAndRecord applies one field change to an item and writes the
// matching edit history row.
func applyAndRecord(ctx context.Context, tx *sql.Tx, before *loadedItem, path string, value json.RawMessage, source string) (*loadedItem, error) {
	return mutateAndRecord(ctx, tx, before, path, source, func() error {
		return applyField(ctx, tx, before.ID, path, value)
	})
}

// mutateAndRecord runs mutate and records the value at path before and after
func mutateAndRecord(ctx context.Context, tx *sql.Tx, before *loadedItem, path, source string, mutate func() error) (*loadedItem, error) {
	oldValue, err := docFieldValue(before.Doc, path)
	if err != nil {
		return nil, err
	}
	if err := mutate(); err != nil {
		return nil, err
	}
	after, err := getItem(ctx, tx, before.ID)
	if err != nil {
		return nil, err
	}
	newValue, err := docFieldValue(after.Doc, path)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(oldValue, newValue) {
		return after, nil
	}

	if err := recordEdit(ctx, tx, before, path, oldValue, newValue, source); err != nil {
		return nil, err
	}
	return after, nil
}

func recordEdit(ctx context.Context, q queryer, item *loadedItem, path string, oldValue, newValue json.RawMessage, source string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO edit_history (item_id, section_id, section_label, product, field_path, old_value, new_value, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.SectionID, item.SectionLabel, item.Doc.Product, path, rawParam(oldValue), rawParam(newValue), source)
	if err != nil {
		return classify(err, "record edit")
	}
	return nil
}

// EditHistory returns the newest edits first, optionally for a single item
func (s *PostgresStore) EditHistory(ctx context.Context, itemID int64, limit int) ([]models.EditHistoryEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, section_id, section_label, product, field_path, old_value, new_value, source, timestamp
		FROM edit_history
		WHERE ($1 = 0 OR item_id = $1)
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("query edit history: %w", err)
	}
	defer rows.Close()

	entries := []models.EditHistoryEntry{}
	for rows.Next() {
		var (
			e                                models.EditHistoryEntry
			item                             sql.NullInt64
			sectionID, sectionLabel, product sql.NullString
			oldValue, newValue               []byte
		)
		if err := rows.Scan(&e.ID, &item, &sectionID, &sectionLabel, &product, &e.FieldPath, &oldValue, &newValue, &e.Source, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan edit history: %w", err)
		}
		if item.Valid {
			id := item.Int64
			e.ItemID = &id
		}
		e.SectionID = stringPtr(sectionID)
		e.SectionLabel = stringPtr(sectionLabel)
		e.Product = stringPtr(product)
		e.OldValue = rawOrNull(oldValue)
		e.NewValue = rawOrNull(newValue)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ProductMatchesHint reports whether either string contains the other,
// ignoring case.
func ProductMatchesHint(product, hint string) bool {
	p := strings.ToLower(strings.TrimSpace(product))
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return true
	}
	return strings.Contains(p, h) || strings.Contains(h, p)
}

func rawParam(v json.RawMessage) any {
	if len(v) == 0 {
		return nil
	}
	return string(v)
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}
