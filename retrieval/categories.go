package retrieval

// ValidCategories is the closed set of document categories the knowledge
// base accepts. Any other category is a caller error, not data to store.
var ValidCategories = []string{
	"crop_production_guide",
	"crops_statistics",
	"planting_tips",
	"soil_data",
}

var categoryDescriptions = map[string]string{
	"crop_production_guide": "Crop production and farming guides",
	"crops_statistics":      "Agricultural statistics and data",
	"planting_tips":         "Planting tips and recommendations",
	"soil_data":             "Soil properties and analysis data",
}

func ValidateCategory(category string) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}

func CategoryDescription(category string) string {
	if desc, ok := categoryDescriptions[category]; ok {
		return desc
	}
	return "Unknown category"
}

// CategoryDescriptions returns a copy of the category -> description map,
// for client-side listings.
func CategoryDescriptions() map[string]string {
	out := make(map[string]string, len(categoryDescriptions))
	for k, v := range categoryDescriptions {
		out[k] = v
	}
	return out
}
