// Package category maps raw response-category labels to the display
// categories the dashboards show. Two independent mapping configurations
// exist — the client-facing one combines and hides categories, the
// admin-facing one is a straight relabeling — and they are kept separate on
// purpose.
package category

import "sort"

// Excluded is the sentinel display value meaning "drop this category from
// statistics and category-filterable listings". It is a deliberate
// configuration choice, not a data error.
const Excluded = ""

// Qualified is the display bucket used for qualified-transfer rates.
const Qualified = "Qualified"

// Mapping is a category mapping configuration. It is a plain value owned by
// the caller; handlers pass the variant they need instead of reading
// process-wide state, so tests can substitute arbitrary tables.
type Mapping struct {
	table map[string]string
	// transferOverrides rewrite a raw label only when the call was
	// transferred, and win over the static table.
	transferOverrides map[string]string
}

// New builds a mapping from a static table and optional transferred-only
// overrides.
func New(table, transferOverrides map[string]string) Mapping {
	return Mapping{table: table, transferOverrides: transferOverrides}
}

// ClientMapping is the client-facing configuration: combined buckets, the
// "repeatpitch" exclusion, and the transferred "already"/"busy" → "Neutral"
// overrides.
func ClientMapping() Mapping {
	return New(map[string]string{
		"spanishanswermachine": "Answering Machine",
		"answermachine":        "Answering Machine",

		"dnc":      "DNC",
		"dnq":      "DNQ",
		"honeypot": "Honeypot",

		"unknown": "Unclear Response",

		"busy":          "Call Back",
		"already":       "Not Interested",
		"notinterested": "Not Interested",
		"rebuttal":      "Not Interested",
		"donttransfer":  "Not Interested",

		"qualified":  "Qualified",
		"interested": "Qualified",

		"neutral": "Neutral",

		"inaudible":     "Inaudible",
		"notresponding": "DAIR",
		"usersilent":    "User Silent",
		"userhangup":    "User Hangup",

		"repeatpitch": Excluded,
	}, map[string]string{
		"already": "Neutral",
		"busy":    "Neutral",
	})
}

// AdminMapping is the admin-facing configuration: a straight relabeling with
// no overrides and no exclusions.
func AdminMapping() Mapping {
	return New(map[string]string{
		"greetingresponse":     "Greeting Response",
		"notfeelinggood":       "Not Feeling Good",
		"dnc":                  "Do Not Call",
		"honeypot_hardcoded":   "Honeypot",
		"honeypot":             "Honeypot",
		"spanishanswermachine": "Spanish Answering Machine",
		"answermachine":        "Answering Machine",
		"already":              "Already Customer",
		"rebuttal":             "Rebuttal",
		"notinterested":        "Not Interested",
		"busy":                 "Busy",
		"dnq":                  "Do Not Qualify",
		"qualified":            "Qualified",
		"neutral":              "Neutral",
		"repeatpitch":          "Repeat Pitch",
		"interested":           "Interested",
		"unkown":               "Unclear Response",
	}, nil)
}

// Normalize maps a raw category label to its display category. Transferred
// overrides are evaluated first; otherwise unknown labels pass through
// unchanged. A result of Excluded means the record must be dropped from
// category statistics.
func (m Mapping) Normalize(raw string, transferred bool) string {
	if transferred {
		if display, ok := m.transferOverrides[raw]; ok {
			return display
		}
	}
	return m.Display(raw)
}

// Known reports whether the raw label appears in the static table.
func (m Mapping) Known(raw string) bool {
	_, ok := m.table[raw]
	return ok
}

// Display is the static table lookup without overrides; unknown labels pass
// through unchanged.
func (m Mapping) Display(raw string) string {
	if display, ok := m.table[raw]; ok {
		return display
	}
	return raw
}

// Displays returns the distinct non-excluded display categories of the
// static table, sorted ascending.
func (m Mapping) Displays() []string {
	seen := make(map[string]bool)
	var displays []string
	for _, display := range m.table {
		if display == Excluded || seen[display] {
			continue
		}
		seen[display] = true
		displays = append(displays, display)
	}
	sort.Strings(displays)
	return displays
}

// ReverseLookup returns the raw labels whose static mapping is the given
// display category, sorted ascending. Labels not in the table never match,
// even though Normalize passes them through.
func (m Mapping) ReverseLookup(display string) []string {
	var raws []string
	for raw, d := range m.table {
		if d == display {
			raws = append(raws, raw)
		}
	}
	sort.Strings(raws)
	return raws
}

// QualifiedLabels is the precomputed reverse index for the Qualified bucket:
// the set of raw labels that count toward qualified-transfer rates. Build it
// once per mapping, not per record.
func (m Mapping) QualifiedLabels() map[string]bool {
	labels := make(map[string]bool)
	for _, raw := range m.ReverseLookup(Qualified) {
		labels[raw] = true
	}
	return labels
}

// ExpandDisplays converts display-category filter selections back to raw
// labels: known display names expand to every raw label mapping to them
// (excluded mappings are skipped), anything else is assumed to already be a
// raw label and kept as-is.
func (m Mapping) ExpandDisplays(displays []string) []string {
	reverse := make(map[string][]string)
	for raw, display := range m.table {
		if display == Excluded {
			continue
		}
		reverse[display] = append(reverse[display], raw)
	}

	var raws []string
	for _, d := range displays {
		if expanded, ok := reverse[d]; ok {
			sort.Strings(expanded)
			raws = append(raws, expanded...)
		} else {
			raws = append(raws, d)
		}
	}
	return raws
}
