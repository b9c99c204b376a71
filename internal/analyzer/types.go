package analyzer

// PatternType classifies a detected structural pattern.
type PatternType string

const (
	PatternListStructure  PatternType = "list-structure"
	PatternTableStructure PatternType = "table-structure"
	PatternCardLayout     PatternType = "card-layout"
	PatternArticleContent PatternType = "article-content"
	PatternPagination     PatternType = "pagination"
	PatternNavigation     PatternType = "navigation"
	PatternDateContent    PatternType = "date-content"
)

// DetectedPattern is an ephemeral observation produced and consumed
// within one analysis pass.
type DetectedPattern struct {
	Type       PatternType `json:"type"`
	Selector   string      `json:"selector"`
	Confidence float64     `json:"confidence"`
	Examples   []string    `json:"examples,omitempty"`
}

// ListContainer is a candidate repeated-item wrapper.
type ListContainer struct {
	Selector         string   `json:"selector"`
	ItemCount        int      `json:"itemCount"`
	Confidence       float64  `json:"confidence"`
	SampleItems      []string `json:"sampleItems,omitempty"`
	ExcludeSelectors []string `json:"excludeSelectors,omitempty"`
}

// PaginationType names the pagination mechanism.
type PaginationType string

const (
	PaginationNumbered PaginationType = "numbered"
	PaginationNextPrev PaginationType = "next-prev"
	PaginationLoadMore PaginationType = "load-more"
)

// PaginationInfo describes detected pagination.
type PaginationInfo struct {
	Detected   bool           `json:"detected"`
	Selector   string         `json:"selector,omitempty"`
	Type       PaginationType `json:"type,omitempty"`
	Confidence float64        `json:"confidence"`
}

// Result is the output of one site analysis pass.
type Result struct {
	URL            string            `json:"url"`
	Archetype      Archetype         `json:"archetype"`
	Patterns       []DetectedPattern `json:"patterns"`
	ListContainers []ListContainer   `json:"listContainers"`
	Pagination     PaginationInfo    `json:"pagination"`
	ContentAreas   []string          `json:"contentAreas,omitempty"`
	Confidence     float64           `json:"confidence"`
	RateLimitMs    int               `json:"rateLimitMs"`
	Content        *ContentAnalysis  `json:"content,omitempty"`

	// Structure is the arena-indexed tree behind the outline fed to
	// synthesis prompts. Kept out of API payloads; ContentAreas carries
	// the serialized breadcrumbs.
	Structure *Tree `json:"-"`
}

// HasPattern reports whether a pattern of the given type was detected.
func (r *Result) HasPattern(t PatternType) bool {
	for _, p := range r.Patterns {
		if p.Type == t {
			return true
		}
	}
	return false
}

// PatternTypes returns the distinct detected pattern types in order.
func (r *Result) PatternTypes() []PatternType {
	seen := make(map[PatternType]bool, len(r.Patterns))
	var types []PatternType
	for _, p := range r.Patterns {
		if !seen[p.Type] {
			seen[p.Type] = true
			types = append(types, p.Type)
		}
	}
	return types
}
