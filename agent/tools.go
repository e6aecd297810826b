// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/danielhkuo/chantier/actions"
	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/store"
)

// Tool names exposed to the model
const (
	ToolItemsNeedingValidation = "query_items_needing_validation"
	ToolTodoItems              = "query_todo_items"
	ToolPricingSummary         = "query_pricing_summary"
	ToolItemsBySection         = "query_items_by_section"
	ToolSearchItems            = "search_items"
	ToolUpdateApproval         = models.ActionUpdateItemApproval
	ToolAddReplacementURL      = models.ActionAddReplacementURL
	ToolRemoveReplacementURL   = models.ActionRemoveReplacementURL
	ToolUpdateField            = models.ActionUpdateItemField
)

// DataStore is the part of the store the tools read from and preview against
type DataStore interface {
	ItemsNeedingValidation(ctx context.Context, role, projectID string) ([]models.ValidationItem, error)
	TodoItems(ctx context.Context, role, projectID string) ([]models.TodoItem, error)
	PricingSummary(ctx context.Context, projectID string) (models.PricingSummary, error)
	ItemsBySection(ctx context.Context, sectionID, projectID string) ([]models.SectionItem, error)
	SearchItems(ctx context.Context, search, projectID string) ([]models.SearchResult, error)
	PreviewApproval(ctx context.Context, itemID int64, role, status, userRole, lang string) (models.ActionPreview, error)
	PreviewAddURL(ctx context.Context, itemID int64, role, link, lang string) (models.ActionPreview, error)
	PreviewRemoveURL(ctx context.Context, itemID int64, role, link, lang string) (models.ActionPreview, error)
	PreviewFieldUpdate(ctx context.Context, itemID int64, fieldName string, newValue any, hint, lang string) (models.ActionPreview, error)
}

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func enum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

var (
	roleParam      = enum("Whose approval: client or contractor (the architect, also called cray)", "client", "contractor", "cray", "architect")
	projectParam   = str("Optional project id to restrict the query")
	itemParam      = map[string]any{"type": "integer", "description": "Item id returned by a query or search tool"}
	approvalStatus = enum("New approval status; empty to clear", "approved", "rejected", "change_order", "pending", "supplied_by", "")
)

func tool(name, desc string, params map[string]any) llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        name,
			Description: desc,
			Parameters:  params,
		},
	}
}

// Tools returns the function definitions offered to the model. Update tools
// only produce previews; nothing is written until a person confirms.
func Tools() []llms.Tool {
	fields := store.AgentFieldNames()
	return []llms.Tool{
		tool(ToolItemsNeedingValidation, "List items whose approval for a role is missing, pending, rejected or a change order.",
			object([]string{"role"}, map[string]any{"role": roleParam, "project_id": projectParam})),
		tool(ToolTodoItems, "List items needing validation, ordering or delivery follow-up for a role.",
			object([]string{"role"}, map[string]any{"role": roleParam, "project_id": projectParam})),
		tool(ToolPricingSummary, "Total TTC and HT prices and the item count.",
			object([]string{}, map[string]any{"project_id": projectParam})),
		tool(ToolItemsBySection, "List the items of one section with prices, approvals and order state.",
			object([]string{"section_id"}, map[string]any{"section_id": str("Section id, for example kitchen"), "project_id": projectParam})),
		tool(ToolSearchItems, "Find items whose product name or reference contains the text, ignoring case. Use it to resolve an item id before any update.",
			object([]string{"product_search"}, map[string]any{"product_search": str("Part of a product name or reference"), "project_id": projectParam})),
		tool(ToolUpdateApproval, "Preview a change of approval status. The user must confirm before it is applied.",
			object([]string{"item_id", "role", "status"}, map[string]any{"item_id": itemParam, "role": roleParam, "status": approvalStatus})),
		tool(ToolAddReplacementURL, "Preview adding a replacement product link to an approval. The user must confirm.",
			object([]string{"item_id", "role", "url"}, map[string]any{"item_id": itemParam, "role": roleParam, "url": str("http(s) link")})),
		tool(ToolRemoveReplacementURL, "Preview removing a replacement product link from an approval. The user must confirm.",
			object([]string{"item_id", "role", "url"}, map[string]any{"item_id": itemParam, "role": roleParam, "url": str("Link to remove, exactly as listed")})),
		tool(ToolUpdateField, "Preview changing one field of an item. Prices are euros, dates use dd/mm. The user must confirm.",
			object([]string{"item_id", "field_name", "new_value"}, map[string]any{
				"item_id":               itemParam,
				"field_name":            enum("Field to change", fields...),
				"new_value":             map[string]any{"description": "New value: text, number or boolean depending on the field; null to clear"},
				"expected_product_hint": str("Product name the user mentioned, checked against the item"),
			})),
	}
}

// itemID accepts a JSON number or a numeric string
type itemID int64

func (id *itemID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil || f != float64(int64(f)) {
			return fmt.Errorf("item_id must be an integer, got %s", b)
		}
		n = int64(f)
	}
	*id = itemID(n)
	return nil
}

type toolArgs struct {
	Role          string  `json:"role"`
	ProjectID     string  `json:"project_id"`
	SectionID     string  `json:"section_id"`
	ProductSearch string  `json:"product_search"`
	ItemID        itemID  `json:"item_id"`
	Status        *string `json:"status"`
	URL           string  `json:"url"`
	FieldName     string  `json:"field_name"`
	NewValue      any     `json:"new_value"`
	Hint          string  `json:"expected_product_hint"`
}

// Session carries what the request knows beyond the model's arguments
type Session struct {
	ProjectID      string
	UserRole       string
	Language       string
	ConversationID string
}

// Toolbox dispatches tool calls against the store
type Toolbox struct {
	data    DataStore
	actions actions.Store
	metrics *Metrics
}

func NewToolbox(data DataStore, store actions.Store, metrics *Metrics) *Toolbox {
	return &Toolbox{data: data, actions: store, metrics: metrics}
}

type toolError struct {
	Error string `json:"error"`
}

// Call runs one tool and returns the JSON handed back to the model. Tool
// failures are reported to the model rather than aborting the request.
func (tb *Toolbox) Call(ctx context.Context, sess Session, name, arguments string) (string, *models.PendingAction) {
	result, pending, err := tb.call(ctx, sess, name, arguments)
	if err != nil {
		slog.Info("tool call failed", "tool", name, "error", err)
		return encode(toolError{Error: err.Error()}), nil
	}
	return encode(result), pending
}

func (tb *Toolbox) call(ctx context.Context, sess Session, name, arguments string) (any, *models.PendingAction, error) {
	var args toolArgs
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return nil, nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
	}

	// the request's project scopes every query
	projectID := args.ProjectID
	if sess.ProjectID != "" {
		projectID = sess.ProjectID
	}

	var preview models.ActionPreview
	var err error

	switch name {
	case ToolItemsNeedingValidation:
		items, err := tb.data.ItemsNeedingValidation(ctx, args.Role, projectID)
		return items, nil, err
	case ToolTodoItems:
		items, err := tb.data.TodoItems(ctx, args.Role, projectID)
		return items, nil, err
	case ToolPricingSummary:
		sum, err := tb.data.PricingSummary(ctx, projectID)
		return sum, nil, err
	case ToolItemsBySection:
		items, err := tb.data.ItemsBySection(ctx, args.SectionID, projectID)
		return items, nil, err
	case ToolSearchItems:
		items, err := tb.data.SearchItems(ctx, args.ProductSearch, projectID)
		return items, nil, err

	case ToolUpdateApproval:
		status := ""
		if args.Status != nil {
			status = *args.Status
		}
		// the permission check uses the caller's role, never one the model supplies
		preview, err = tb.data.PreviewApproval(ctx, int64(args.ItemID), args.Role, status, sess.UserRole, sess.Language)
	case ToolAddReplacementURL:
		preview, err = tb.data.PreviewAddURL(ctx, int64(args.ItemID), args.Role, args.URL, sess.Language)
	case ToolRemoveReplacementURL:
		preview, err = tb.data.PreviewRemoveURL(ctx, int64(args.ItemID), args.Role, args.URL, sess.Language)
	case ToolUpdateField:
		preview, err = tb.data.PreviewFieldUpdate(ctx, int64(args.ItemID), args.FieldName, args.NewValue, args.Hint, sess.Language)
	default:
		return nil, nil, fmt.Errorf("unknown tool %q", name)
	}
	if err != nil {
		tb.metrics.action(name, "rejected")
		return nil, nil, err
	}

	a, err := tb.actions.Put(ctx, sess.ConversationID, preview)
	if err != nil {
		return nil, nil, fmt.Errorf("store action: %w", err)
	}
	tb.metrics.action(name, "previewed")

	pending := &models.PendingAction{
		Status:    models.StatusRequiresConfirmation,
		ActionID:  a.ID,
		Preview:   a.Preview,
		ExpiresAt: a.ExpiresAt,
	}
	return pending, pending, nil
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}
