// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package agent

import "strings"

var confirmations = map[string]bool{
	"yes": true, "y": true, "yep": true, "yeah": true, "yes please": true,
	"ok": true, "okay": true, "ok go": true,
	"confirm": true, "confirmed": true, "i confirm": true,
	"go": true, "go ahead": true, "do it": true, "proceed": true, "sure": true,
	"oui": true, "ouais": true, "oui merci": true, "oui vas-y": true,
	"confirmer": true, "je confirme": true, "confirmé": true, "confirme": true,
	"d'accord": true, "dac": true, "vas-y": true, "vas y": true, "allez-y": true, "allez y": true,
	"valider": true, "valide": true, "je valide": true, "c'est bon": true, "parfait": true,
}

// IsConfirmation reports whether prompt is nothing more than a confirmation
// of the last proposed change.
func IsConfirmation(prompt string) bool {
	p := strings.ToLower(strings.TrimSpace(prompt))
	p = strings.ReplaceAll(p, "’", "'")
	p = strings.Trim(p, " .!?,;:")
	p = strings.Join(strings.Fields(p), " ")
	return confirmations[p]
}
