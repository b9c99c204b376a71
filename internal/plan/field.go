package plan

// FieldKind tags an extracted field value so downstream normalization
// can dispatch on kind instead of inspecting the raw string shape.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindURL      FieldKind = "url"
	KindDate     FieldKind = "date"
	KindImageRef FieldKind = "image"
)

// FieldValue is a single extracted value plus its kind tag.
type FieldValue struct {
	Kind  FieldKind `json:"kind"`
	Value string    `json:"value"`
}

// Text wraps a plain text value.
func Text(v string) FieldValue { return FieldValue{Kind: KindText, Value: v} }

// URL wraps a link value.
func URL(v string) FieldValue { return FieldValue{Kind: KindURL, Value: v} }

// Date wraps a raw date string prior to normalization.
func Date(v string) FieldValue { return FieldValue{Kind: KindDate, Value: v} }

// ImageRef wraps an image reference, possibly relative.
func ImageRef(v string) FieldValue { return FieldValue{Kind: KindImageRef, Value: v} }

// KindForField maps a detail-selector field name to the value kind its
// extractions carry. Unknown fields default to text.
func KindForField(field string) FieldKind {
	switch field {
	case "website", "url", "link":
		return KindURL
	case "startDate", "endDate", "date", "dates", "createdAt":
		return KindDate
	case "images", "image":
		return KindImageRef
	default:
		return KindText
	}
}
