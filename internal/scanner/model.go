package scanner

// Result holds the classified file inventory of one tree walk.
type Result struct {
	// MetadataFiles are sidecar paths, in deterministic traversal order
	// (directories and entries visited lexicographically).
	MetadataFiles []string `json:"metadata_files"`

	// AllFiles are every non-metadata file encountered, used for orphan
	// detection once all metadata files are known.
	AllFiles []string `json:"all_files"`

	// SkippedDirs counts subdirectories that could not be read. They are
	// reported as warnings, never as fatal errors.
	SkippedDirs int `json:"skipped_dirs"`
}
