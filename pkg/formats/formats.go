// Package formats holds the vocabulary tables of the exchange format:
// distribution format normalization, media type parsing, accrual
// periodicity codes, license titles and legacy boolean encodings.
package formats

import (
	"regexp"
	"strings"

	"github.com/agentstation/harvester/pkg/errors"
)

// Other is the bucket for media types with no short code.
const Other = "Other"

var (
	mediaTypePattern = regexp.MustCompile(`^((application|text)/([^\s;]+))\s*(;.*)?$`)
	mediaTypeShape   = regexp.MustCompile(`^([-\w]+/[-\w.+]+)\s*(;.*)?$`)
)

var mediaTypeCodes = map[string]string{
	"text/plain":               "Text",
	"application/zip":          "ZIP",
	"application/vnd.ms-excel": "XLS",
	"application/x-msaccess":   "Access",
	"text/csv":                 "CSV",
	"application/json":         "JSON",
	"application/xml":          "XML",
	"text/xml":                 "XML",
	"application/pdf":          "PDF",
}

// Normalize maps a raw format label to a short format code.
//
// Media types such as "text/plain; charset=utf-8" map through a fixed table;
// unknown media types become Other, or a ClassificationError when strict.
// Anything else is assumed to already be a short code and is upper-cased.
// In strict mode a label containing "?" is rejected.
func Normalize(label string, strict bool) (string, error) {
	format := strings.ToLower(strings.TrimSpace(label))
	if format == "" {
		return "", nil
	}
	if m := mediaTypePattern.FindStringSubmatch(format); m != nil {
		if code, ok := mediaTypeCodes[m[1]]; ok {
			return code, nil
		}
		if strict {
			return "", errors.NewClassificationError(label)
		}
		return Other, nil
	}
	if format == "text" {
		return "Text", nil
	}
	if strict && strings.Contains(format, "?") {
		return "", errors.NewClassificationError(label)
	}
	return strings.ToUpper(format), nil
}

// MustNormalize is Normalize in lenient mode.
func MustNormalize(label string) string {
	code, _ := Normalize(label, false)
	return code
}

// ParseMediaType returns the lowercased type/subtype of s with any
// parameters such as charset dropped. ok is false when s does not have the
// type/subtype shape.
func ParseMediaType(s string) (mediaType string, ok bool) {
	m := mediaTypeShape.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return "", false
	}
	return m[1], true
}
