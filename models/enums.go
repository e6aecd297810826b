// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "strings"

// Work types stored in items.labor_type and worker_jobs.job_type
const (
	WorkDemolition      = "demolition"
	WorkStructural      = "structural"
	WorkFacade          = "facade"
	WorkExteriorJoinery = "exterior_joinery"
	WorkPlastering      = "plastering"
	WorkPlumbing        = "plumbing"
	WorkElectrical      = "electrical"
	WorkWallCovering    = "wall_covering"
	WorkInteriorJoinery = "interior_joinery"
	WorkLandscaping     = "landscaping"
	WorkPriceRevision   = "price_revision"
)

// WorkTypes lists every work type in display order
var WorkTypes = []string{
	WorkDemolition, WorkStructural, WorkFacade, WorkExteriorJoinery,
	WorkPlastering, WorkPlumbing, WorkElectrical, WorkWallCovering,
	WorkInteriorJoinery, WorkLandscaping, WorkPriceRevision,
}

var workTypeLabels = map[string]string{
	WorkDemolition:      "Démolition & Dépose",
	WorkStructural:      "Gros œuvre & structure",
	WorkFacade:          "Façade, Couverture & ITE",
	WorkExteriorJoinery: "Menuiseries extérieures",
	WorkPlastering:      "Plâtrerie & ITI",
	WorkPlumbing:        "Plomberie & CVC",
	WorkElectrical:      "Électricité",
	WorkWallCovering:    "Revêtement mur & plafond",
	WorkInteriorJoinery: "Menuiseries intérieures",
	WorkLandscaping:     "Espaces verts & Extérieurs",
	WorkPriceRevision:   "Révision de prix",
}

// ParseWorkType accepts a French label, a work type code or the "demo" alias
func ParseWorkType(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for code, label := range workTypeLabels {
		if label == s {
			return code, true
		}
	}
	code := strings.ToLower(s)
	if code == "demo" {
		return WorkDemolition, true
	}
	if _, ok := workTypeLabels[code]; ok {
		return code, true
	}
	return "", false
}

// WorkTypeLabel returns the French label for a work type code
func WorkTypeLabel(code string) string {
	if label, ok := workTypeLabels[code]; ok {
		return label
	}
	return code
}

// ParseApprovalStatus maps a JSON or agent status to its stored value.
// "alternative" is the frontend's name for a change order.
func ParseApprovalStatus(s string) (string, bool) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "alternative", ApprovalChangeOrder:
		return ApprovalChangeOrder, true
	case ApprovalApproved, ApprovalRejected, ApprovalPending, ApprovalSuppliedBy:
		return v, true
	}
	return "", false
}

// ApprovalStatusJSON maps a stored status to the frontend's vocabulary
func ApprovalStatusJSON(s string) string {
	if s == ApprovalChangeOrder {
		return "alternative"
	}
	return s
}

// ParseRole maps any role alias used by people or the agent to the stored role
func ParseRole(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return RoleClient, true
	case "contractor", "cray", "architect":
		return RoleContractor, true
	}
	return "", false
}

// RoleJSONKey maps a stored role to the key used in the materials document
func RoleJSONKey(role string) string {
	if role == RoleContractor {
		return RoleKeyCray
	}
	return role
}

func ParseDeliveryStatus(s string) (string, bool) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case DeliveryPending, DeliveryOrdered, DeliveryShipped, DeliveryDelivered, DeliveryCancelled:
		return v, true
	}
	return "", false
}

func ParseProjectStatus(s string) (string, bool) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case ProjectDraft, ProjectReady, ProjectActive, ProjectCompleted, ProjectArchived:
		return v, true
	}
	return "", false
}

func ParseDevisStatus(s string) (string, bool) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case DevisSent, DevisApproved, DevisRejected:
		return v, true
	}
	return "", false
}

// UserRoles lists the roles a user account may hold
var UserRoles = []string{UserAdmin, UserContractor, UserClient, UserWorker}

func ParseUserRole(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, r := range UserRoles {
		if r == v {
			return v, true
		}
	}
	return "", false
}
