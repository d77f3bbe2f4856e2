package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldError describes one invalid field on one row.
type FieldError struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// CaseReturnRow is the typed projection of one validated CSV row. It lives
// only long enough to be handed to the persistence layer.
type CaseReturnRow struct {
	LineNumber int

	CourtName  string
	CaseidType string
	CaseidNo   string
	CaseType   string

	ActivityDate    time.Time
	FiledDate       *time.Time
	NextHearingDate *time.Time

	Judges       []string
	ComingFor    string
	Outcome      string
	ReasonAdj    string
	OtherDetails string

	MaleApplicant         int
	FemaleApplicant       int
	OrganizationApplicant int
	MaleDefendant         int
	FemaleDefendant       int
	OrganizationDefendant int

	LegalRepresentation bool
	ApplicantWitnesses  int
	DefendantWitnesses  int
	CustodyCount        int
}

const minAcceptedYear = 2015

var monthAbbreviations = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var legalRepValues = map[string]bool{
	"yes":  true,
	"1":    true,
	"no":   false,
	"none": false,
	"self": false,
	"0":    false,
}

// requiredColumns are the fields a row cannot be persisted without.
var requiredColumns = []string{"court", "caseid_type", "caseid_no", "date_dd", "date_mon", "date_yyyy"}

// ValidateRow checks one raw row against the daily-returns schema and
// returns either a typed row or the full list of field errors. Validation is
// row-local: it never consults other rows or the database.
func ValidateRow(raw RawRow) (*CaseReturnRow, []FieldError) {
	var errs []FieldError

	get := func(field string) string {
		return strings.TrimSpace(raw.Fields[field])
	}

	for _, field := range requiredColumns {
		if get(field) == "" {
			errs = append(errs, FieldError{
				Field:      field,
				Message:    fmt.Sprintf("%s is required", field),
				Suggestion: "fill in the missing value and re-upload",
			})
		}
	}

	row := &CaseReturnRow{
		LineNumber:   raw.LineNumber,
		CourtName:    get("court"),
		CaseidType:   get("caseid_type"),
		CaseidNo:     get("caseid_no"),
		CaseType:     get("case_type"),
		ComingFor:    get("comingfor"),
		Outcome:      get("outcome"),
		ReasonAdj:    get("reason_adj"),
		OtherDetails: get("other_details"),
	}

	if date, dateErrs := parseDateParts("date", get("date_dd"), get("date_mon"), get("date_yyyy"), true); len(dateErrs) > 0 {
		errs = append(errs, dateErrs...)
	} else if date != nil {
		row.ActivityDate = *date
	}

	if date, dateErrs := parseDateParts("filed", get("filed_dd"), get("filed_mon"), get("filed_yyyy"), false); len(dateErrs) > 0 {
		errs = append(errs, dateErrs...)
	} else {
		row.FiledDate = date
	}

	if date, dateErrs := parseDateParts("next", get("next_dd"), get("next_mon"), get("next_yyyy"), false); len(dateErrs) > 0 {
		errs = append(errs, dateErrs...)
	} else {
		row.NextHearingDate = date
	}

	for i := 1; i <= 7; i++ {
		if name := get(fmt.Sprintf("judge_%d", i)); name != "" {
			row.Judges = append(row.Judges, name)
		}
	}

	if rep := strings.ToLower(get("legalrep")); rep != "" {
		val, known := legalRepValues[rep]
		if !known {
			errs = append(errs, FieldError{
				Field:      "legalrep",
				Message:    fmt.Sprintf("unrecognized legal representation value '%s'", rep),
				Suggestion: "use one of: yes, no, self, none",
			})
		}
		row.LegalRepresentation = val
	}

	counts := []struct {
		field  string
		target *int
	}{
		{"male_applicant", &row.MaleApplicant},
		{"female_applicant", &row.FemaleApplicant},
		{"organization_applicant", &row.OrganizationApplicant},
		{"male_defendant", &row.MaleDefendant},
		{"female_defendant", &row.FemaleDefendant},
		{"organization_defendant", &row.OrganizationDefendant},
		{"applicant_witness", &row.ApplicantWitnesses},
		{"defendant_witness", &row.DefendantWitnesses},
		{"custody", &row.CustodyCount},
	}
	for _, c := range counts {
		value := get(c.field)
		if value == "" {
			continue // optional counts default to zero
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{
				Field:      c.field,
				Message:    fmt.Sprintf("'%s' is not a non-negative whole number", value),
				Suggestion: "enter a whole number of zero or more",
			})
			continue
		}
		*c.target = n
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return row, nil
}

// parseDateParts validates day/month/year independently so each bad part is
// reported against its own column, then assembles the date. Empty required
// parts are already reported by the required-field loop, so they invalidate
// the date without a second error for the same column.
func parseDateParts(prefix, dd, mon, yyyy string, required bool) (*time.Time, []FieldError) {
	if dd == "" && mon == "" && yyyy == "" {
		return nil, nil
	}

	var errs []FieldError
	missing := false

	day, err := strconv.Atoi(dd)
	if err != nil || day < 1 || day > 31 {
		if dd == "" && required {
			missing = true
		} else {
			errs = append(errs, FieldError{
				Field:      prefix + "_dd",
				Message:    fmt.Sprintf("'%s' is not a valid day of month", dd),
				Suggestion: "use a day between 1 and 31",
			})
		}
	}

	month, ok := monthAbbreviations[strings.ToLower(mon)]
	if !ok {
		if mon == "" && required {
			missing = true
		} else {
			errs = append(errs, FieldError{
				Field:      prefix + "_mon",
				Message:    fmt.Sprintf("'%s' is not a recognized month abbreviation", mon),
				Suggestion: "use a three-letter month such as Jan or Feb",
			})
		}
	}

	year, err := strconv.Atoi(yyyy)
	if err != nil || year < minAcceptedYear || year > time.Now().Year()+1 {
		if yyyy == "" && required {
			missing = true
		} else {
			errs = append(errs, FieldError{
				Field:      prefix + "_yyyy",
				Message:    fmt.Sprintf("'%s' is not an accepted year", yyyy),
				Suggestion: fmt.Sprintf("use a four-digit year of %d or later", minAcceptedYear),
			})
		}
	}

	if len(errs) > 0 || missing {
		return nil, errs
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &date, nil
}

// CaseNumber returns the composite natural key for this row's case.
func (r *CaseReturnRow) CaseNumber() string {
	return r.CaseidType + "/" + r.CaseidNo
}
