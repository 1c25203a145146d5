package pricing

import "strings"

// Consultation subtypes priced per minute.
const (
	SubtypePsychologist = "psychologist"
	SubtypeClinician    = "clinician"
	SubtypeDefault      = "default"
)

// specialtyKeywords buckets free-text specialty strings. Matching is
// substring-based so inflected forms ("psicóloga", "psicologia") land in the
// same bucket. Accented and unaccented spellings both appear because
// upstream input is not normalized.
var specialtyKeywords = []struct {
	keyword string
	subtype string
}{
	{"psicolog", SubtypePsychologist},
	{"psicólog", SubtypePsychologist},
	{"clinic", SubtypeClinician},
	{"clínic", SubtypeClinician},
}

// ClassifySpecialty maps a free-text specialty onto a pricing subtype,
// falling back to the default bucket.
func ClassifySpecialty(specialty string) string {
	s := strings.ToLower(strings.TrimSpace(specialty))
	if s == "" {
		return SubtypeDefault
	}
	for _, entry := range specialtyKeywords {
		if strings.Contains(s, entry.keyword) {
			return entry.subtype
		}
	}
	return SubtypeDefault
}
