package services

import (
	"strings"

	"case-management-api/models"
)

// courtTypeTokens is checked in order; longer tokens come before their
// prefixes (SCC before SC, ELRC before ELC) so first match wins correctly.
var courtTypeTokens = []struct {
	token string
	code  string
}{
	{"ELRC", models.CourtTypeELRC},
	{"ELC", models.CourtTypeELC},
	{"SCC", models.CourtTypeSCC},
	{"COA", models.CourtTypeCOA},
	{"KC", models.CourtTypeKC},
	{"HC", models.CourtTypeHC},
	{"TC", models.CourtTypeTC},
	{"SC", models.CourtTypeSC},
	{"MC", models.CourtTypeMC},
}

// DeriveCourtType maps a case-id string to a court type code by
// case-insensitive token match. Unrecognized inputs fall back to the
// magistrate court code, the catch-all first-instance court.
func DeriveCourtType(caseID string) string {
	upper := strings.ToUpper(strings.TrimSpace(caseID))
	if upper == "" {
		return models.CourtTypeMC
	}
	for _, entry := range courtTypeTokens {
		if strings.Contains(upper, entry.token) {
			return entry.code
		}
	}
	return models.CourtTypeMC
}
