package materialvault

import "strings"

// buildSearchText derives the space-joined full-text blob from a
// material's identifying and descriptive fields. Missing fields are simply
// skipped; the result is only consumed by search and never authoritative.
func buildSearchText(m *Material) string {
	var parts []string
	add := func(values ...string) {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		}
	}

	add(m.NameOfficial)
	add(m.NameAliases...)
	add(m.Name)
	add(m.CategoryMain, m.Category)
	add(m.MaterialForms...)
	add(m.OriginType, m.OriginDetail)
	add(m.ColorTags...)
	add(m.Transparency, m.HardnessQualitative, m.WeightQualitative)
	add(m.WaterResistance, m.WeatherResistance)
	add(m.ProcessingMethods...)
	add(m.UseCategories...)
	add(m.SafetyTags...)
	add(m.EquipmentLevel, m.PrototypingDifficulty)
	add(m.ProcurementStatus, m.CostLevel)
	add(m.Description)

	return strings.Join(parts, " ")
}
