package model

// Strategy names the retrieval path that produced a search result.
type Strategy string

const (
	StrategyText          Strategy = "text"
	StrategyRegexFallback Strategy = "regex_fallback"
	StrategyRecent        Strategy = "recent"
)

// SearchResult is a tagged search hit. Exactly one of ShortTerm and LongTerm
// is set, matching Kind.
type SearchResult struct {
	Kind      Kind             `json:"memory_type"`
	Strategy  Strategy         `json:"search_strategy"`
	Score     float64          `json:"score"`
	ShortTerm *ShortTermMemory `json:"short_term,omitempty"`
	LongTerm  *LongTermMemory  `json:"long_term,omitempty"`
}

// Memory returns the fields shared by both memory kinds.
func (r *SearchResult) Memory() *Memory {
	switch {
	case r.ShortTerm != nil:
		return &r.ShortTerm.Memory
	case r.LongTerm != nil:
		return &r.LongTerm.Memory
	}
	return &Memory{}
}
