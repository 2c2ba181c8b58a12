package formats

import "strings"

var periodicityCodes = map[string]string{
	"completely irregular": "irregular",
	"decennial":            "R/P10Y",
	"quadrennial":          "R/P4Y",
	"annual":               "R/P1Y",
	"bimonthly":            "R/P2M",
	"semiweekly":           "R/P3.5D",
	"daily":                "R/P1D",
	"biweekly":             "R/P2W",
	"semiannual":           "R/P6M",
	"biennial":             "R/P2Y",
	"triennial":            "R/P3Y",
	"three times a week":   "R/P0.33W",
	"three times a month":  "R/P0.33M",
	"continuously updated": "R/PT1S",
	"monthly":              "R/P1M",
	"quarterly":            "R/P3M",
	"semimonthly":          "R/P0.5M",
	"three times a year":   "R/P4M",
	"weekly":               "R/P1W",
}

// Periodicity maps a human accrual periodicity to its ISO 8601 recurrence
// code. Lookup is case-insensitive and trimmed; unknown values pass through.
func Periodicity(value string) string {
	if code, ok := periodicityCodes[strings.ToLower(strings.TrimSpace(value))]; ok {
		return code
	}
	return value
}

// LicenseNotSpecified is the license ID for records without a license.
const LicenseNotSpecified = "notspecified"

var licenseIDs = map[string]string{
	"Creative Commons Attribution":                                  "cc-by",
	"Creative Commons Attribution Share-Alike":                      "cc-by-sa",
	"Creative Commons CCZero":                                       "cc-zero",
	"Creative Commons Non-Commercial (Any)":                         "cc-nc",
	"GNU Free Documentation License":                                "gfdl",
	"License Not Specified":                                         LicenseNotSpecified,
	"Open Data Commons Attribution License":                         "odc-by",
	"Open Data Commons Open Database License (ODbL)":                "odc-odbl",
	"Open Data Commons Public Domain Dedication and License (PDDL)": "odc-pddl",
	"Other (Attribution)":                                           "other-at",
	"Other (Non-Commercial)":                                        "other-nc",
	"Other (Not Open)":                                              "other-closed",
	"Other (Open)":                                                  "other-open",
	"Other (Public Domain)":                                         "other-pd",
	"UK Open Government Licence (OGL)":                              "uk-ogl",
}

// LicenseID maps a license title to its short ID. An empty title maps to
// LicenseNotSpecified; an unknown title reports false.
func LicenseID(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return LicenseNotSpecified, true
	}
	id, ok := licenseIDs[title]
	return id, ok
}

// DataQuality coerces legacy encodings of the data quality flag.
// "on", "true" and "True" are true; "false" and "False" are false.
// ok is false for anything else.
func DataQuality(value any) (quality bool, ok bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.TrimSpace(v) {
		case "on", "true", "True":
			return true, true
		case "false", "False":
			return false, true
		}
	}
	return false, false
}
