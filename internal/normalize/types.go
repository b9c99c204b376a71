package normalize

// Item is one extracted record. After normalization it is never
// mutated again; normalized dates are always valid ISO-8601 or absent.
type Item struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Language      string   `json:"language,omitempty"`
	StartDate     string   `json:"startDate,omitempty"`
	EndDate       string   `json:"endDate,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	Dates         []string `json:"dates,omitempty"`
	Images        []string `json:"images,omitempty"`
	Address       string   `json:"address,omitempty"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Website       string   `json:"website,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
	Zipcode       *int     `json:"zipcode,omitempty"`
}

// Issue is one normalization finding scoped to a field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Metrics are the per-item quality scores, each in [0,1]. Overall is a
// fixed weighted blend.
type Metrics struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Overall      float64 `json:"overall"`
}

// Result is the outcome of normalizing one item. Callers always get a
// result with explicit validity and enumerated findings, never a panic
// or opaque error.
type Result struct {
	Item     Item    `json:"item"`
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
	Quality  Metrics `json:"quality"`
}

// MessageCount pairs a finding message with its batch frequency.
type MessageCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// BatchResult aggregates normalization over a batch of items.
type BatchResult struct {
	Results             []Result       `json:"results"`
	ValidItems          int            `json:"validItems"`
	InvalidItems        int            `json:"invalidItems"`
	AverageQualityScore float64        `json:"averageQualityScore"`
	TopMessages         []MessageCount `json:"topMessages,omitempty"`
}
