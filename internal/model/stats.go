package model

// Stats summarizes one namespace. It is recomputed on every call.
type Stats struct {
	Namespace         string         `json:"namespace"`
	ChatHistoryCount  int            `json:"chat_history_count"`
	ShortTermCount    int            `json:"short_term_count"`
	LongTermCount     int            `json:"long_term_count"`
	ExpiredShortTerm  int            `json:"expired_short_term_count"`
	ByCategory        map[string]int `json:"memories_by_category"`
	AverageImportance float64        `json:"average_importance"`
	Storage           *StorageStats  `json:"storage,omitempty"`
}

// StorageStats are best-effort backing store metrics. Zero fields are
// metrics the backend could not report.
type StorageStats struct {
	StorageBytes int64 `json:"storage_size,omitempty"`
	DataBytes    int64 `json:"data_size,omitempty"`
	IndexBytes   int64 `json:"index_size,omitempty"`
	Collections  int   `json:"collections,omitempty"`
}

// Info describes the connected backing store.
type Info struct {
	Backend          string        `json:"database_type"`
	Database         string        `json:"database_name"`
	Descriptor       string        `json:"connection_string"`
	Version          string        `json:"version"`
	SupportsFullText bool          `json:"supports_fulltext"`
	Storage          *StorageStats `json:"storage,omitempty"`
}
