package materialvault

import (
	"log/slog"
	"strings"
)

// requiredFields lists every material column the datastore declares NOT
// NULL. name_official and category_main are never auto-filled: a missing
// value there is a caller error caught by validation, not something the
// defaulting pass resolves.
var requiredFields = []string{
	"name_official",
	"category_main",
	"origin_type",
	"origin_detail",
	"transparency",
	"hardness_qualitative",
	"weight_qualitative",
	"water_resistance",
	"weather_resistance",
	"equipment_level",
	"prototyping_difficulty",
	"procurement_status",
	"cost_level",
	"visibility",
	"is_published",
	"is_deleted",
}

// defaultValues maps a required column to the value used when the
// submitter left it empty. Visibility defaults to private and
// is_published is derived from it afterwards, so an unfilled submission
// never publishes itself.
var defaultValues = FieldMap{
	"origin_type":            "unknown",
	"origin_detail":          "unknown",
	"transparency":           "unknown",
	"hardness_qualitative":   "unknown",
	"weight_qualitative":     "unknown",
	"water_resistance":       "unknown",
	"weather_resistance":     "unknown",
	"equipment_level":        "home/workshop",
	"prototyping_difficulty": "medium",
	"procurement_status":     "unknown",
	"cost_level":             "unknown",
	"visibility":             VisibilityPrivate,
	"is_published":           false,
	"is_deleted":             false,
}

// identityFields are validated upstream, never defaulted.
var identityFields = map[string]bool{
	"name_official": true,
	"category_main": true,
}

// ApplyDefaults fills required-but-empty material columns with their fixed
// defaults and derives is_published from visibility. It returns a new map;
// the input is never mutated. String values are trimmed as part of the
// pass. A required column with no registered default is logged and left
// unfilled so the datastore's own constraint surfaces the gap.
//
// Approval (creation path) and bulk import both run their field maps
// through this exact function.
func ApplyDefaults(in FieldMap, logger *slog.Logger) FieldMap {
	if logger == nil {
		logger = slog.Default()
	}
	out := in.Clone()

	for k, v := range out {
		if s, ok := v.(string); ok {
			out[k] = strings.TrimSpace(s)
		}
	}

	for _, field := range requiredFields {
		if identityFields[field] {
			continue
		}
		if !isEmptyValue(out[field]) {
			continue
		}
		def, ok := defaultValues[field]
		if !ok {
			logger.Warn("required material column has no registered default",
				"field", field)
			continue
		}
		out[field] = def
	}

	// is_published is derived, not defaulted independently. Unrecognized
	// or missing visibility fails closed.
	out["is_published"] = out.String("visibility") == VisibilityPublic

	return out
}

// isEmptyValue reports whether a submitted value counts as "not provided":
// nil, a blank string, or an empty list/map.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
