package language

// ExtractFieldByCategory resolves a field category against a JSON-shaped
// response in the detected language: each alias is tried as a direct key,
// then as a normalized case-insensitive key. The first non-nil value wins.
func ExtractFieldByCategory(data map[string]interface{}, category, lang string) (interface{}, bool) {
	if len(data) == 0 {
		return nil, false
	}

	for _, alias := range AliasesFor(category, lang) {
		if value, ok := data[alias]; ok && value != nil {
			return value, true
		}
		normalized := NormalizeKey(alias)
		for key, value := range data {
			if value == nil {
				continue
			}
			if NormalizeKey(key) == normalized {
				return value, true
			}
		}
	}
	return nil, false
}
