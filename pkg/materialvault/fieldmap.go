package materialvault

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldMap is a proposed-material field set keyed by column name. Key
// presence matters: a merge-on-approve only writes back columns the
// submitter explicitly included, so callers must distinguish "absent"
// from "empty".
type FieldMap map[string]any

// Clone returns a shallow copy of the map.
func (f FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Has reports whether the key is present, regardless of its value.
func (f FieldMap) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Keys returns the present keys in sorted order.
func (f FieldMap) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value under key coerced to a string, or "" when the
// key is absent or nil.
func (f FieldMap) String(key string) string {
	s, _ := coerceString(f[key])
	return s
}

// Sanitize returns a copy containing only recognized material columns,
// dropping relationship-only keys and system-managed columns.
func (f FieldMap) Sanitize() FieldMap {
	out := make(FieldMap, len(f))
	for k, v := range f {
		if _, ok := materialColumns[k]; ok {
			out[k] = v
		}
	}
	return out
}

// columnDef binds a column name to its accessors on Material. Setters are
// best-effort coercions: values of an unexpected shape are ignored rather
// than failing the whole write, matching the tolerance of the submitted
// field maps this package consumes.
type columnDef struct {
	get func(*Material) any
	set func(*Material, any)
}

var materialColumns = map[string]columnDef{
	"name_official": {
		get: func(m *Material) any { return m.NameOfficial },
		set: func(m *Material, v any) { setString(&m.NameOfficial, v) },
	},
	"category_main": {
		get: func(m *Material) any { return m.CategoryMain },
		set: func(m *Material, v any) { setString(&m.CategoryMain, v) },
	},
	"name": {
		get: func(m *Material) any { return m.Name },
		set: func(m *Material, v any) { setString(&m.Name, v) },
	},
	"category": {
		get: func(m *Material) any { return m.Category },
		set: func(m *Material, v any) { setString(&m.Category, v) },
	},
	"origin_type": {
		get: func(m *Material) any { return m.OriginType },
		set: func(m *Material, v any) { setString(&m.OriginType, v) },
	},
	"origin_detail": {
		get: func(m *Material) any { return m.OriginDetail },
		set: func(m *Material, v any) { setString(&m.OriginDetail, v) },
	},
	"transparency": {
		get: func(m *Material) any { return m.Transparency },
		set: func(m *Material, v any) { setString(&m.Transparency, v) },
	},
	"hardness_qualitative": {
		get: func(m *Material) any { return m.HardnessQualitative },
		set: func(m *Material, v any) { setString(&m.HardnessQualitative, v) },
	},
	"weight_qualitative": {
		get: func(m *Material) any { return m.WeightQualitative },
		set: func(m *Material, v any) { setString(&m.WeightQualitative, v) },
	},
	"water_resistance": {
		get: func(m *Material) any { return m.WaterResistance },
		set: func(m *Material, v any) { setString(&m.WaterResistance, v) },
	},
	"weather_resistance": {
		get: func(m *Material) any { return m.WeatherResistance },
		set: func(m *Material, v any) { setString(&m.WeatherResistance, v) },
	},
	"equipment_level": {
		get: func(m *Material) any { return m.EquipmentLevel },
		set: func(m *Material, v any) { setString(&m.EquipmentLevel, v) },
	},
	"prototyping_difficulty": {
		get: func(m *Material) any { return m.PrototypingDifficulty },
		set: func(m *Material, v any) { setString(&m.PrototypingDifficulty, v) },
	},
	"procurement_status": {
		get: func(m *Material) any { return m.ProcurementStatus },
		set: func(m *Material, v any) { setString(&m.ProcurementStatus, v) },
	},
	"cost_level": {
		get: func(m *Material) any { return m.CostLevel },
		set: func(m *Material, v any) { setString(&m.CostLevel, v) },
	},
	"visibility": {
		get: func(m *Material) any { return m.Visibility },
		set: func(m *Material, v any) { setString(&m.Visibility, v) },
	},
	"is_published": {
		get: func(m *Material) any { return m.IsPublished },
		set: func(m *Material, v any) { setBool(&m.IsPublished, v) },
	},
	"is_deleted": {
		get: func(m *Material) any { return m.IsDeleted },
		set: func(m *Material, v any) { setBool(&m.IsDeleted, v) },
	},
	"description": {
		get: func(m *Material) any { return m.Description },
		set: func(m *Material, v any) { setString(&m.Description, v) },
	},
	"specific_gravity": {
		get: func(m *Material) any { return floatPtrValue(m.SpecificGravity) },
		set: func(m *Material, v any) { setFloatPtr(&m.SpecificGravity, v) },
	},
	"heat_resistance_temp": {
		get: func(m *Material) any { return floatPtrValue(m.HeatResistanceTemp) },
		set: func(m *Material, v any) { setFloatPtr(&m.HeatResistanceTemp, v) },
	},
	"cost_value": {
		get: func(m *Material) any { return floatPtrValue(m.CostValue) },
		set: func(m *Material, v any) { setFloatPtr(&m.CostValue, v) },
	},
	"recycle_bio_rate": {
		get: func(m *Material) any { return floatPtrValue(m.RecycleBioRate) },
		set: func(m *Material, v any) { setFloatPtr(&m.RecycleBioRate, v) },
	},
	"name_aliases": {
		get: func(m *Material) any { return m.NameAliases },
		set: func(m *Material, v any) { setStringList(&m.NameAliases, v) },
	},
	"material_forms": {
		get: func(m *Material) any { return m.MaterialForms },
		set: func(m *Material, v any) { setStringList(&m.MaterialForms, v) },
	},
	"color_tags": {
		get: func(m *Material) any { return m.ColorTags },
		set: func(m *Material, v any) { setStringList(&m.ColorTags, v) },
	},
	"processing_methods": {
		get: func(m *Material) any { return m.ProcessingMethods },
		set: func(m *Material, v any) { setStringList(&m.ProcessingMethods, v) },
	},
	"use_categories": {
		get: func(m *Material) any { return m.UseCategories },
		set: func(m *Material, v any) { setStringList(&m.UseCategories, v) },
	},
	"safety_tags": {
		get: func(m *Material) any { return m.SafetyTags },
		set: func(m *Material, v any) { setStringList(&m.SafetyTags, v) },
	},
}

// applyFields writes the listed keys from the field map onto the material.
// Unrecognized keys are skipped.
func applyFields(m *Material, fields FieldMap, keys []string) {
	for _, key := range keys {
		col, ok := materialColumns[key]
		if !ok {
			continue
		}
		v, present := fields[key]
		if !present {
			continue
		}
		col.set(m, v)
	}
}

// backfillFromMaterial copies the existing material's value into the field
// map for every recognized column the map does not already contain. List
// columns carry over as native slices so later serialization stays
// consistent.
func backfillFromMaterial(fields FieldMap, m *Material) {
	for name, col := range materialColumns {
		if fields.Has(name) {
			continue
		}
		fields[name] = col.get(m)
	}
}

// mirrorLegacyFields keeps the back-compat name/category scalars in step
// with the new-style fields.
func mirrorLegacyFields(m *Material) {
	m.Name = m.NameOfficial
	m.Category = m.CategoryMain
}

// Coercion helpers. Submitted payloads are JSON, so numbers arrive as
// float64 and lists as []any; legacy payloads may also carry list columns
// as serialized JSON strings.

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return fmt.Sprint(t), true
	}
}

func setString(dst *string, v any) {
	if s, ok := coerceString(v); ok {
		*dst = s
	}
}

func setBool(dst *bool, v any) {
	switch t := v.(type) {
	case bool:
		*dst = t
	case float64:
		*dst = t != 0
	case int:
		*dst = t != 0
	case int64:
		*dst = t != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			*dst = b
		}
	}
}

func setFloatPtr(dst **float64, v any) {
	switch t := v.(type) {
	case nil:
		*dst = nil
	case float64:
		val := t
		*dst = &val
	case int:
		val := float64(t)
		*dst = &val
	case int64:
		val := float64(t)
		*dst = &val
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			*dst = nil
			return
		}
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			*dst = &parsed
		}
	}
}

func floatPtrValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func setStringList(dst *[]string, v any) {
	if list, ok := coerceStringList(v); ok {
		*dst = list
	}
}

// coerceStringList accepts native slices and serialized JSON-array strings.
// A plain non-JSON string becomes a single-element list, mirroring how
// legacy rows were read back.
func coerceStringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []string:
		return append([]string(nil), t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := coerceString(item); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, true
		}
		var decoded []string
		if err := json.Unmarshal([]byte(t), &decoded); err == nil {
			return decoded, true
		}
		return []string{t}, true
	default:
		return nil, false
	}
}
