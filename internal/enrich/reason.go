package enrich

import "strings"

// Reason labels.
const (
	ReasonIncompatibleOffice = "vacancy (incompatible office)"
	ReasonResignationRequest = "resignation (on request)"
	ReasonResignation        = "resignation"
	ReasonRetirement         = "retirement"
	ReasonDeath              = "death"
	ReasonVacancy            = "vacancy"
	ReasonDismissal          = "dismissal"
	ReasonOther              = "other (check)"
)

// ClassifyReason maps the text of a departure notice to a reason label.
// Earlier rules win.
func ClassifyReason(text string) string {
	t := strings.ToLower(strings.Join(strings.Fields(text), " "))
	switch {
	case t == "":
		return ""
	case strings.Contains(t, "posse em outro cargo inacumulável"):
		return ReasonIncompatibleOffice
	case strings.Contains(t, "exoneração") && strings.Contains(t, "a pedido"):
		return ReasonResignationRequest
	case strings.Contains(t, "exoneração"):
		return ReasonResignation
	case strings.Contains(t, "aposentadoria"):
		return ReasonRetirement
	case strings.Contains(t, "falecimento"):
		return ReasonDeath
	case strings.Contains(t, "declarar vago"), strings.Contains(t, "vacância"):
		return ReasonVacancy
	case strings.Contains(t, "demissão"):
		return ReasonDismissal
	}
	return ReasonOther
}
