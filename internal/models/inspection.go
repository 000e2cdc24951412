package models

import "strings"

// InspectionFormFields is the canonical column order for inspection bulk
// import and export.
var InspectionFormFields = []string{
	"id",
	"equipment_tag_number",
	"unit_name",
	"equipment_type",
	"inspection_type",
	"equipment_name",
	"last_inspection_year",
	"inspection_form",
	"inspection_date",
	"status",
	"final_status",
	"remarks",
	"observation",
	"recommendation",
}

// NormalizeInspectionType canonicalizes the free-typed inspection_type value.
func NormalizeInspectionType(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "planned":
		return "Planned"
	case "opportunity", "opportunity based", "opportunity-based":
		return "Opportunity Based"
	}
	return strings.TrimSpace(value)
}

// NormalizeInspectionForm canonicalizes the inspection_form value. Historic
// data spells BOROSCOPY two ways and mixes case freely.
func NormalizeInspectionForm(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "boroscopy", "borescopy":
		return "BOROSCOPY"
	case "internal":
		return "INTERNAL"
	case "external":
		return "EXTERNAL"
	case "hot job":
		return "HOT JOB"
	case "cold":
		return "COLD JOB"
	}
	return strings.TrimSpace(value)
}

// NormalizeInspection canonicalizes the inspection-specific fields of a
// payload in place and returns it. inspection_possible is the legacy name for
// inspection_form; both are kept in step for older sheets and pages.
func NormalizeInspection(payload Record) Record {
	if payload == nil {
		return payload
	}
	if _, ok := payload["inspection_type"]; ok {
		payload["inspection_type"] = NormalizeInspectionType(payload.String("inspection_type"))
	}
	form := payload.String("inspection_form")
	if form == "" {
		form = payload.String("inspection_possible")
	}
	if form != "" {
		normalized := NormalizeInspectionForm(form)
		payload["inspection_form"] = normalized
		payload["inspection_possible"] = normalized
	}
	return payload
}
