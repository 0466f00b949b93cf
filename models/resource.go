package models

// ResourceEntry is a single extracted resource link.
type ResourceEntry struct {
	// URL is always absolute and starts with http:// or https://.
	URL string `json:"url"`

	// Name is the last path segment with the query stripped, or the URL
	// itself when that segment is empty.
	Name string `json:"name"`
}

// ExtractionResult is the output of the general-resource profile.
// Each bucket is insertion-ordered and unique by URL.
type ExtractionResult struct {
	Videos  []ResourceEntry `json:"videos"`
	Images  []ResourceEntry `json:"images"`
	Audios  []ResourceEntry `json:"audios"`
	Files   []ResourceEntry `json:"files"`
	Folders []ResourceEntry `json:"folders"`
}

// NewExtractionResult returns a result with every bucket initialised, so
// empty buckets serialise as [] rather than null.
func NewExtractionResult() ExtractionResult {
	return ExtractionResult{
		Videos:  []ResourceEntry{},
		Images:  []ResourceEntry{},
		Audios:  []ResourceEntry{},
		Files:   []ResourceEntry{},
		Folders: []ResourceEntry{},
	}
}

// ResourceCounts summarises an ExtractionResult bucket by bucket.
type ResourceCounts struct {
	Videos  int `json:"videos"`
	Images  int `json:"images"`
	Audios  int `json:"audios"`
	Files   int `json:"files"`
	Folders int `json:"folders"`
}

// Counts returns the per-bucket sizes.
func (r ExtractionResult) Counts() ResourceCounts {
	return ResourceCounts{
		Videos:  len(r.Videos),
		Images:  len(r.Images),
		Audios:  len(r.Audios),
		Files:   len(r.Files),
		Folders: len(r.Folders),
	}
}

// Total returns the number of entries across all buckets.
func (r ExtractionResult) Total() int {
	return len(r.Videos) + len(r.Images) + len(r.Audios) + len(r.Files) + len(r.Folders)
}
