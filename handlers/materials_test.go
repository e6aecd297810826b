// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/testutil"
)

func sampleMaterials() models.MaterialsDocument {
	client := "approved"
	return models.MaterialsDocument{
		Sections: []models.SectionDoc{
			{
				ID:    "kitchen",
				Label: "Cuisine",
				Items: []models.ItemDoc{
					{
						Product:   "Robinet mitigeur",
						Reference: ptr("GRO-123"),
						Price:     models.PriceDoc{TTC: ptr(189.9)},
						Approvals: models.ApprovalsDoc{Client: models.ApprovalDoc{Status: &client}},
					},
					{Product: "Évier granit", Price: models.PriceDoc{TTC: ptr(420.0)}},
				},
			},
		},
	}
}

func TestMaterialsHandler_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	handler := NewMaterialsHandler(s)

	// PUT the document
	req := testutil.MakeRequest("PUT", "/api/materials", models.UpdateMaterialsRequest{Materials: ptr(sampleMaterials())}, nil)
	w := httptest.NewRecorder()
	handler.UpdateMaterials(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var status models.StatusResponse
	testutil.AssertJSON(t, w, &status)
	if status.Status != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", status.Status)
	}

	// GET it back
	req = httptest.NewRequest("GET", "/api/materials", nil)
	w = httptest.NewRecorder()
	handler.GetMaterials(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var doc models.MaterialsDocument
	testutil.AssertJSON(t, w, &doc)
	if doc.Currency != "EUR" {
		t.Errorf("Expected currency EUR, got '%s'", doc.Currency)
	}
	if len(doc.Sections) != 1 || len(doc.Sections[0].Items) != 2 {
		t.Fatalf("Expected 1 section with 2 items, got %+v", doc.Sections)
	}
	if st := doc.Sections[0].Items[0].Approvals.Client.Status; st == nil || *st != "approved" {
		t.Errorf("Expected client approval to round trip, got %v", st)
	}

	// PATCH one cell
	req = testutil.MakeRequest("PATCH", "/api/materials/cell", map[string]any{
		"section_id":            "kitchen",
		"item_index":            1,
		"field_path":            "price.ttc",
		"new_value":             450,
		"expected_product_hint": "évier",
	}, nil)
	w = httptest.NewRecorder()
	handler.UpdateCell(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var item models.ItemDoc
	testutil.AssertJSON(t, w, &item)
	if item.Price.TTC == nil || *item.Price.TTC != 450 {
		t.Errorf("Expected price 450, got %v", item.Price.TTC)
	}

	// wrong product hint
	req = testutil.MakeRequest("PATCH", "/api/materials/cell", map[string]any{
		"section_id":            "kitchen",
		"item_index":            1,
		"field_path":            "price.ttc",
		"new_value":             1,
		"expected_product_hint": "robinet",
	}, nil)
	w = httptest.NewRecorder()
	handler.UpdateCell(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	// unknown section
	req = testutil.MakeRequest("PATCH", "/api/materials/cell", map[string]any{
		"section_id": "garage",
		"item_index": 0,
		"field_path": "product",
		"new_value":  "x",
	}, nil)
	w = httptest.NewRecorder()
	handler.UpdateCell(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)

	// history records the manual edit
	req = httptest.NewRequest("GET", "/api/edit-history?limit=10", nil)
	w = httptest.NewRecorder()
	handler.GetEditHistory(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var history models.EditHistoryResponse
	testutil.AssertJSON(t, w, &history)
	if len(history.Entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(history.Entries))
	}
	entry := history.Entries[0]
	if entry.FieldPath != "price.ttc" || entry.Source != models.SourceManual {
		t.Errorf("Unexpected history entry %+v", entry)
	}
	var oldPrice float64
	if err := json.Unmarshal(entry.OldValue, &oldPrice); err != nil || oldPrice != 420 {
		t.Errorf("Expected old value 420, got %s", entry.OldValue)
	}
}

func TestMaterialsHandler_UnknownProject(t *testing.T) {
	s := newTestStore(t)
	handler := NewMaterialsHandler(s)

	req := testutil.MakeRequest("PUT", "/api/materials", models.UpdateMaterialsRequest{
		Materials: ptr(sampleMaterials()),
		ProjectID: "nowhere",
	}, nil)
	w := httptest.NewRecorder()
	handler.UpdateMaterials(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestQueryHandlers(t *testing.T) {
	s := newTestStore(t)
	conn := s.DB()
	handler := NewQueryHandler(s)

	testutil.CreateTestSection(t, conn, "kitchen", "Cuisine", "")
	robinet := testutil.CreateTestItem(t, conn, "kitchen", "Robinet mitigeur", 189.9)
	evier := testutil.CreateTestItem(t, conn, "kitchen", "Évier granit", 420)
	testutil.SetTestApproval(t, conn, robinet, "client", "approved")
	testutil.SetTestOrder(t, conn, evier, false, "")

	t.Run("pricing summary", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/agent/pricing-summary", nil)
		w := httptest.NewRecorder()
		handler.PricingSummary(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var sum models.PricingSummary
		testutil.AssertJSON(t, w, &sum)
		if sum.ItemCount != 2 || sum.TotalTTC != 609.9 {
			t.Errorf("Unexpected summary %+v", sum)
		}
	})

	t.Run("items needing validation", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/agent/items-needing-validation?role=client", nil)
		w := httptest.NewRecorder()
		handler.ItemsNeedingValidation(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp struct {
			Items []models.ValidationItem `json:"items"`
		}
		testutil.AssertJSON(t, w, &resp)
		if len(resp.Items) != 1 || resp.Items[0].ItemID != evier {
			t.Errorf("Expected only the sink, got %+v", resp.Items)
		}
	})

	t.Run("todo items with alias role", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/agent/todo-items?role=cray", nil)
		w := httptest.NewRecorder()
		handler.TodoItems(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
	})

	t.Run("unknown role", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/agent/todo-items?role=plumber", nil)
		w := httptest.NewRecorder()
		handler.TodoItems(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("search", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/agent/search?q=ROBI", nil)
		w := httptest.NewRecorder()
		handler.SearchItems(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp struct {
			Items []models.SearchResult `json:"items"`
		}
		testutil.AssertJSON(t, w, &resp)
		if len(resp.Items) != 1 || resp.Items[0].ItemID != robinet {
			t.Errorf("Expected the tap, got %+v", resp.Items)
		}
	})

	t.Run("items by section", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/agent/sections/kitchen/items", nil)
		req.SetPathValue("section_id", "kitchen")
		w := httptest.NewRecorder()
		handler.ItemsBySection(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp struct {
			Items []models.SectionItem `json:"items"`
		}
		testutil.AssertJSON(t, w, &resp)
		if len(resp.Items) != 2 {
			t.Errorf("Expected 2 items, got %d", len(resp.Items))
		}
	})
}
