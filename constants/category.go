package constants

import (
	"strings"
)

type Category string

const (
	Prescription      Category = "Prescription"
	LabReport         Category = "LabReport"
	MedicalBill       Category = "MedicalBill"
	PharmacyBill      Category = "PharmacyBill"
	DischargeSummary  Category = "DischargeSummary"
	ConsultationNotes Category = "ConsultationNotes"
	Other             Category = "Other"
)

var allCategories = []Category{
	Prescription,
	LabReport,
	MedicalBill,
	PharmacyBill,
	DischargeSummary,
	ConsultationNotes,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form label to a member of the closed category set.
// The second return reports whether the label resolved to a known category;
// unknown labels come back as Other.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(normalized)

	// synonyms map
	synonyms := map[string]Category{
		"rx":             Prescription,
		"medication":     Prescription,
		"labresult":      LabReport,
		"labresults":     LabReport,
		"testreport":     LabReport,
		"bloodreport":    LabReport,
		"hospitalbill":   MedicalBill,
		"invoice":        MedicalBill,
		"chemistbill":    PharmacyBill,
		"medicinebill":   PharmacyBill,
		"dischargenote":  DischargeSummary,
		"dischargenotes": DischargeSummary,
		"consultnotes":   ConsultationNotes,
		"doctornotes":    ConsultationNotes,
		"clinicalnotes":  ConsultationNotes,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
