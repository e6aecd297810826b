// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielhkuo/chantier/models"
)

const systemPromptFR = `Tu es un assistant pour un chantier de rénovation.
Réponds de manière concise en français en t'appuyant sur les outils et les données fournies.
Cite les sections pertinentes (ex. Cuisine, WC 1) quand c'est utile.
Avant toute modification, retrouve l'article avec search_items. Si plusieurs articles correspondent, demande lequel.
Les outils de modification ne font que proposer un changement : dis à l'utilisateur ce qui sera modifié et demande-lui de confirmer. N'affirme jamais qu'une modification est faite.`

const systemPromptEN = `You are an assistant for a renovation project.
Answer concisely in English, relying on the tools and the data provided.
Mention the relevant sections (e.g. Kitchen, WC 1) when useful.
Before any change, find the item with search_items. If several items match, ask which one.
Update tools only propose a change: tell the user what will change and ask them to confirm. Never claim a change has been made.`

// NormalizeLanguage maps a requested language to fr or en
func NormalizeLanguage(lang string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(lang)), "en") {
		return "en"
	}
	return "fr"
}

func systemPrompt(sess Session) string {
	var b strings.Builder
	if sess.Language == "en" {
		b.WriteString(systemPromptEN)
	} else {
		b.WriteString(systemPromptFR)
	}
	if sess.ProjectID != "" {
		fmt.Fprintf(&b, "\n\nproject_id: %s", sess.ProjectID)
	}
	if sess.UserRole != "" {
		fmt.Fprintf(&b, "\nuser_role: %s", sess.UserRole)
	}
	return b.String()
}

type itemSummary struct {
	Product   string              `json:"product"`
	Reference *string             `json:"reference,omitempty"`
	PriceTTC  *float64            `json:"priceTTC,omitempty"`
	Approvals models.ApprovalsDoc `json:"approvals"`
	Order     models.OrderDoc     `json:"order"`
}

type sectionSummary struct {
	Section string        `json:"section"`
	Items   []itemSummary `json:"items"`
}

// maxSummaryItems bounds the materials summary sent with a prompt
const maxSummaryItems = 400

// summarizeMaterials renders the materials the frontend sent as compact JSON
func summarizeMaterials(doc *models.MaterialsDocument) string {
	if doc == nil || len(doc.Sections) == 0 {
		return ""
	}

	count := 0
	sections := make([]sectionSummary, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		sum := sectionSummary{Section: s.Label, Items: []itemSummary{}}
		for _, it := range s.Items {
			if count == maxSummaryItems {
				break
			}
			sum.Items = append(sum.Items, itemSummary{
				Product:   it.Product,
				Reference: it.Reference,
				PriceTTC:  it.Price.TTC,
				Approvals: it.Approvals,
				Order:     it.Order,
			})
			count++
		}
		sections = append(sections, sum)
	}

	b, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
