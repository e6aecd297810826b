// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/danielhkuo/chantier/models"
)

// statuses that still require someone to validate the item
const openApproval = `(a.id IS NULL OR a.status IS NULL OR a.status IN ('pending', 'rejected', 'change_order'))`

const (
	ReasonNeedsValidation  = "needs validation"
	ReasonNeedsOrdering    = "needs ordering"
	ReasonDeliveryTracking = "delivery tracking"
)

func parseQueryRole(role string) (string, error) {
	r, ok := models.ParseRole(role)
	if !ok {
		return "", invalidf("unknown role %q, expected client or contractor", role)
	}
	return r, nil
}

// ItemsNeedingValidation lists items whose approval for role is missing or open
func (s *PostgresStore) ItemsNeedingValidation(ctx context.Context, role, projectID string) ([]models.ValidationItem, error) {
	r, err := parseQueryRole(role)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT i.id, s.id, s.label, i.product, a.status
		FROM items i
		JOIN sections s ON s.id = i.section_id
		LEFT JOIN approvals a ON a.item_id = i.id AND a.role = $1
		WHERE ($2 = '' OR s.project_id = $2) AND ` + openApproval + `
		ORDER BY s.id, i.id
	`
	rows, err := s.db.QueryContext(ctx, query, r, projectID)
	if err != nil {
		return nil, fmt.Errorf("query items needing validation: %w", err)
	}
	defer rows.Close()

	items := []models.ValidationItem{}
	for rows.Next() {
		var it models.ValidationItem
		var status sql.NullString
		if err := rows.Scan(&it.ItemID, &it.SectionID, &it.SectionLabel, &it.Product, &status); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Status = stringPtr(status)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logQuery(ctx, "query_items_needing_validation", query, map[string]any{"role": r, "project_id": projectID}, len(items))
	return items, nil
}

// TodoItems lists items needing validation, ordering or delivery follow-up
func (s *PostgresStore) TodoItems(ctx context.Context, role, projectID string) ([]models.TodoItem, error) {
	r, err := parseQueryRole(role)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, section_id, section_label, product, labor_type, needs_validation, needs_ordering, delivery_tracking
		FROM (
			SELECT i.id, s.id AS section_id, s.label AS section_label, i.product, i.labor_type,
				` + openApproval + ` AS needs_validation,
				(o.id IS NOT NULL AND NOT o.ordered) AS needs_ordering,
				(o.id IS NOT NULL
					AND (o.delivery_date IS NOT NULL OR o.delivery_status IS NOT NULL)
					AND COALESCE(o.delivery_status, '') <> 'delivered') AS delivery_tracking
			FROM items i
			JOIN sections s ON s.id = i.section_id
			LEFT JOIN approvals a ON a.item_id = i.id AND a.role = $1
			LEFT JOIN orders o ON o.item_id = i.id
			WHERE ($2 = '' OR s.project_id = $2)
		) t
		WHERE needs_validation OR needs_ordering OR delivery_tracking
		ORDER BY section_id, id
	`
	rows, err := s.db.QueryContext(ctx, query, r, projectID)
	if err != nil {
		return nil, fmt.Errorf("query todo items: %w", err)
	}
	defer rows.Close()

	items := []models.TodoItem{}
	for rows.Next() {
		var it models.TodoItem
		var laborType sql.NullString
		var validation, ordering, delivery bool
		if err := rows.Scan(&it.ItemID, &it.SectionID, &it.SectionLabel, &it.Product, &laborType,
			&validation, &ordering, &delivery); err != nil {
			return nil, fmt.Errorf("scan todo item: %w", err)
		}
		it.LaborType = stringPtr(laborType)
		it.ActionReason = todoReason(validation, ordering, delivery)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logQuery(ctx, "query_todo_items", query, map[string]any{"role": r, "project_id": projectID}, len(items))
	return items, nil
}

func todoReason(validation, ordering, delivery bool) string {
	var reasons []string
	if validation {
		reasons = append(reasons, ReasonNeedsValidation)
	}
	if ordering {
		reasons = append(reasons, ReasonNeedsOrdering)
	}
	if delivery {
		reasons = append(reasons, ReasonDeliveryTracking)
	}
	return strings.Join(reasons, ", ")
}

func (s *PostgresStore) PricingSummary(ctx context.Context, projectID string) (models.PricingSummary, error) {
	query := `
		SELECT COALESCE(SUM(i.price_ttc), 0), COALESCE(SUM(i.price_ht_quote), 0), COUNT(i.id)
		FROM items i
		JOIN sections s ON s.id = i.section_id
		WHERE ($1 = '' OR s.project_id = $1)
	`
	var sum models.PricingSummary
	if err := s.db.QueryRowContext(ctx, query, projectID).Scan(&sum.TotalTTC, &sum.TotalHT, &sum.ItemCount); err != nil {
		return models.PricingSummary{}, fmt.Errorf("query pricing summary: %w", err)
	}

	s.logQuery(ctx, "query_pricing_summary", query, map[string]any{"project_id": projectID}, 1)
	return sum, nil
}

func (s *PostgresStore) ItemsBySection(ctx context.Context, sectionID, projectID string) ([]models.SectionItem, error) {
	if strings.TrimSpace(sectionID) == "" {
		return nil, invalidf("section_id is required")
	}

	query := `
		SELECT i.id, i.product, i.reference, i.price_ttc, i.price_ht_quote, i.labor_type,
			ac.status, ak.status, o.ordered, o.delivery_date
		FROM items i
		JOIN sections s ON s.id = i.section_id
		LEFT JOIN approvals ac ON ac.item_id = i.id AND ac.role = 'client'
		LEFT JOIN approvals ak ON ak.item_id = i.id AND ak.role = 'contractor'
		LEFT JOIN orders o ON o.item_id = i.id
		WHERE s.id = $1 AND ($2 = '' OR s.project_id = $2)
		ORDER BY i.id
	`
	rows, err := s.db.QueryContext(ctx, query, sectionID, projectID)
	if err != nil {
		return nil, fmt.Errorf("query items by section: %w", err)
	}
	defer rows.Close()

	items := []models.SectionItem{}
	for rows.Next() {
		var (
			it                                   models.SectionItem
			reference, laborType                 sql.NullString
			clientStatus, contractorStatus, date sql.NullString
			priceTTC, priceHT                    sql.NullFloat64
			ordered                              sql.NullBool
		)
		if err := rows.Scan(&it.ItemID, &it.Product, &reference, &priceTTC, &priceHT, &laborType,
			&clientStatus, &contractorStatus, &ordered, &date); err != nil {
			return nil, fmt.Errorf("scan section item: %w", err)
		}
		it.Reference = stringPtr(reference)
		it.PriceTTC = floatPtr(priceTTC)
		it.PriceHTQuote = floatPtr(priceHT)
		it.LaborType = stringPtr(laborType)
		it.ClientStatus = stringPtr(clientStatus)
		it.ContractorStatus = stringPtr(contractorStatus)
		it.Ordered = boolPtr(ordered)
		it.DeliveryDate = stringPtr(date)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logQuery(ctx, "query_items_by_section", query, map[string]any{"section_id": sectionID, "project_id": projectID}, len(items))
	return items, nil
}

// SearchItems matches a case-insensitive substring of product or reference
func (s *PostgresStore) SearchItems(ctx context.Context, search, projectID string) ([]models.SearchResult, error) {
	search = strings.TrimSpace(search)
	if search == "" {
		return nil, invalidf("product_search is required")
	}

	query := `
		SELECT i.id, s.id, s.label, i.product, i.reference
		FROM items i
		JOIN sections s ON s.id = i.section_id
		WHERE (i.product ILIKE '%' || $1 || '%' OR i.reference ILIKE '%' || $1 || '%')
			AND ($2 = '' OR s.project_id = $2)
		ORDER BY i.product, i.id
		LIMIT 50
	`
	rows, err := s.db.QueryContext(ctx, query, escapeLike(search), projectID)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var r models.SearchResult
		var reference sql.NullString
		if err := rows.Scan(&r.ItemID, &r.SectionID, &r.SectionLabel, &r.Product, &reference); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.Reference = stringPtr(reference)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logQuery(ctx, "search_items", query, map[string]any{"product_search": search, "project_id": projectID}, len(results))
	return results, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
