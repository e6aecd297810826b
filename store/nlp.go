// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/chantier/models"
)

// Sentences shown to the user before confirming an agent action

func isFrench(lang string) bool {
	return !strings.HasPrefix(strings.ToLower(lang), "en")
}

// FormatPrice renders an amount in euros, French or English style
func FormatPrice(v float64, lang string) string {
	if isFrench(lang) {
		return humanize.FormatFloat("# ###,##", v) + " €"
	}
	return "€" + humanize.FormatFloat("#,###.##", v)
}

func roleLabel(role, lang string) string {
	if role == models.RoleContractor {
		if isFrench(lang) {
			return "l'architecte"
		}
		return "the contractor"
	}
	if isFrench(lang) {
		return "le client"
	}
	return "the client"
}

var approvalLabelsFR = map[string]string{
	models.ApprovalApproved:    "approuvé",
	models.ApprovalRejected:    "refusé",
	models.ApprovalChangeOrder: "alternative",
	models.ApprovalPending:     "en attente",
	models.ApprovalSuppliedBy:  "fourni par",
}

func approvalLabel(status, lang string) string {
	if status == "" {
		if isFrench(lang) {
			return "aucun statut"
		}
		return "no status"
	}
	if isFrench(lang) {
		if l, ok := approvalLabelsFR[status]; ok {
			return l
		}
	}
	return strings.ReplaceAll(status, "_", " ")
}

func approvalSentence(p models.ActionPreview, lang string) string {
	status, _ := p.NewValue.(string)
	if isFrench(lang) {
		return fmt.Sprintf("Mettre la validation de %s pour « %s » (%s) à « %s »",
			roleLabel(p.Role, lang), p.ItemProduct, p.SectionLabel, approvalLabel(status, lang))
	}
	return fmt.Sprintf("Set %s approval for \"%s\" (%s) to \"%s\"",
		roleLabel(p.Role, lang), p.ItemProduct, p.SectionLabel, approvalLabel(status, lang))
}

func urlSentence(p models.ActionPreview, lang string) string {
	add := p.Action == models.ActionAddReplacementURL
	switch {
	case isFrench(lang) && add:
		return fmt.Sprintf("Ajouter le lien de remplacement %s pour %s sur « %s »", p.URL, roleLabel(p.Role, lang), p.ItemProduct)
	case isFrench(lang):
		return fmt.Sprintf("Retirer le lien de remplacement %s pour %s sur « %s »", p.URL, roleLabel(p.Role, lang), p.ItemProduct)
	case add:
		return fmt.Sprintf("Add replacement link %s for %s on \"%s\"", p.URL, roleLabel(p.Role, lang), p.ItemProduct)
	}
	return fmt.Sprintf("Remove replacement link %s for %s on \"%s\"", p.URL, roleLabel(p.Role, lang), p.ItemProduct)
}

var fieldLabelsFR = map[string]string{
	"product":         "le produit",
	"reference":       "la référence",
	"supplier_link":   "le lien fournisseur",
	"labor_type":      "le type de travaux",
	"price_ttc":       "le prix TTC",
	"price_ht_quote":  "le prix HT du devis",
	"ordered":         "le statut de commande",
	"order_date":      "la date de commande",
	"delivery_date":   "la date de livraison",
	"delivery_status": "le statut de livraison",
	"quantity":        "la quantité",
}

func fieldSentence(p models.ActionPreview, lang string) string {
	from := displayValue(p.FieldName, p.CurrentValue, lang)
	to := displayValue(p.FieldName, p.NewValue, lang)
	if isFrench(lang) {
		label := fieldLabelsFR[p.FieldName]
		return fmt.Sprintf("Changer %s de « %s » : %s → %s", label, p.ItemProduct, from, to)
	}
	label := strings.ReplaceAll(p.FieldName, "_", " ")
	return fmt.Sprintf("Change %s of \"%s\": %s → %s", label, p.ItemProduct, from, to)
}

func displayValue(field string, v any, lang string) string {
	empty := "(empty)"
	if isFrench(lang) {
		empty = "(vide)"
	}
	switch val := v.(type) {
	case nil:
		return empty
	case float64:
		if field == "price_ttc" || field == "price_ht_quote" {
			return FormatPrice(val, lang)
		}
		return humanize.Ftoa(val)
	case int:
		return humanize.Comma(int64(val))
	case bool:
		switch {
		case val && isFrench(lang):
			return "commandé"
		case isFrench(lang):
			return "non commandé"
		case val:
			return "ordered"
		}
		return "not ordered"
	case string:
		if val == "" {
			return empty
		}
		return val
	}
	return fmt.Sprint(v)
}
