package extract

// DefaultExtractors returns the built-in capability set. The caller passes
// the slice to NewRegistry, adding or replacing entries as needed; nothing is
// registered implicitly.
func DefaultExtractors() []Extractor {
	return []Extractor{
		CSS{},
		XML{},
		Regex{},
		JSONQuery{},
		Loader{},
		Str{},
		Time{},
		NewUDF(),
	}
}
