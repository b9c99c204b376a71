package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItem() Item {
	return Item{
		Title:       "Stadtfest am Rathausplatz",
		Description: "Das große Stadtfest mit Musik und Ständen für die ganze Familie.",
		Language:    "de",
	}
}

func TestNormalizeValidItem(t *testing.T) {
	n := New()

	res := n.Normalize(validItem(), "https://example.de/events")

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Greater(t, res.Quality.Overall, 0.0)
}

func TestNormalizeRequiredFields(t *testing.T) {
	n := New()

	tests := []struct {
		name   string
		item   Item
		fields []string
	}{
		{"missing title", Item{Description: "desc", Language: "en"}, []string{"title"}},
		{"missing description", Item{Title: "Event", Language: "en"}, []string{"description"}},
		{"whitespace title", Item{Title: "   ", Description: "desc", Language: "en"}, []string{"title"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(tt.item, "")
			assert.False(t, res.IsValid)
			for _, field := range tt.fields {
				found := false
				for _, e := range res.Errors {
					if e.Field == field {
						found = true
					}
				}
				assert.True(t, found, "expected error for field %q", field)
			}
		})
	}
}

func TestNormalizeDateGermanFormat(t *testing.T) {
	n := New()

	item := validItem()
	item.StartDate = "25.12.2024"

	res := n.Normalize(item, "")

	require.True(t, res.IsValid)
	assert.Equal(t, "2024-12-25T00:00:00.000Z", res.Item.StartDate)
}

func TestNormalizeDateFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-12-25", "2024-12-25T00:00:00.000Z"},
		{"2.1.2025", "2025-01-02T00:00:00.000Z"},
		{"02/01/2025", "2025-01-02T00:00:00.000Z"},
		{"2024-12-25T10:30:00Z", "2024-12-25T10:30:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeUnparseableDateDropped(t *testing.T) {
	n := New()

	item := validItem()
	item.StartDate = "sometime next week"

	res := n.Normalize(item, "")

	assert.False(t, res.IsValid)
	assert.Empty(t, res.Item.StartDate)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "startDate", res.Errors[0].Field)
}

func TestNormalizeStartAfterEndWarns(t *testing.T) {
	n := New()

	item := validItem()
	item.StartDate = "2025-06-10"
	item.EndDate = "2025-06-01"

	res := n.Normalize(item, "")

	assert.True(t, res.IsValid, "date ordering is a warning, not an error")
	assert.NotEmpty(t, res.Warnings)
}

func TestNormalizeImagesAbsoluteOrAbsent(t *testing.T) {
	n := New()

	item := validItem()
	item.Images = []string{
		"https://example.de/a.jpg",
		"/media/b.jpg",
		"://bad url",
	}

	res := n.Normalize(item, "https://example.de/events")

	for _, img := range res.Item.Images {
		assert.True(t, isAbsoluteURL(img), "image %q must be absolute", img)
	}
	assert.Contains(t, res.Item.Images, "https://example.de/a.jpg")
	assert.Contains(t, res.Item.Images, "https://example.de/media/b.jpg")
}

func TestNormalizeRelativeImageWithoutBaseDropped(t *testing.T) {
	n := New()

	item := validItem()
	item.Images = []string{"/media/b.jpg"}

	res := n.Normalize(item, "")

	assert.Empty(t, res.Item.Images)
	assert.NotEmpty(t, res.Warnings)
}

func TestNormalizeLanguageDetection(t *testing.T) {
	n := New()

	tests := []struct {
		name string
		item Item
		want string
	}{
		{
			"german from diacritics and words",
			Item{Title: "Führung durch die Ausstellung", Description: "Eine Führung für Groß und Klein mit vielen Überraschungen."},
			"de",
		},
		{
			"english from function words",
			Item{Title: "A Night at the Museum", Description: "Join us for an evening of art and music in the old town."},
			"en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(tt.item, "")
			assert.Equal(t, tt.want, res.Item.Language)
			assert.True(t, res.IsValid)
		})
	}
}

func TestNormalizeLanguageUndetectable(t *testing.T) {
	n := New()

	res := n.Normalize(Item{Title: "Event", Description: "desc"}, "")

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "language", res.Errors[0].Field)
}

func TestNormalizeUnsupportedLanguage(t *testing.T) {
	n := New()

	item := validItem()
	item.Language = "fr"

	res := n.Normalize(item, "")

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "language", res.Errors[0].Field)
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New()

	item := validItem()
	item.StartDate = "25.12.2024"
	item.EndDate = "31.12.2024"
	item.Images = []string{"/media/a.jpg"}
	item.Website = "example.de"

	first := n.Normalize(item, "https://example.de")
	second := n.Normalize(first.Item, "https://example.de")

	assert.Equal(t, first.Item, second.Item)
	assert.Equal(t, first.IsValid, second.IsValid)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	n := New()

	item := validItem()
	item.StartDate = "25.12.2024"
	item.Dates = []string{"25.12.2024", "not a date", "26.12.2024"}
	item.Images = []string{"https://example.de/a.jpg", "/media/b.jpg"}

	n.Normalize(item, "https://example.de/events")

	assert.Equal(t, "25.12.2024", item.StartDate)
	assert.Equal(t, []string{"25.12.2024", "not a date", "26.12.2024"}, item.Dates)
	assert.Equal(t, []string{"https://example.de/a.jpg", "/media/b.jpg"}, item.Images)
}

func TestNormalizeWebsiteSchemeAdded(t *testing.T) {
	n := New()

	item := validItem()
	item.Website = "example.de/programm"

	res := n.Normalize(item, "")

	assert.Equal(t, "https://example.de/programm", res.Item.Website)
	assert.NotEmpty(t, res.Warnings)
}

func TestNormalizeNumericRanges(t *testing.T) {
	n := New()

	lon := 250.0
	lat := 48.1
	price := -5.0

	item := validItem()
	item.Longitude = &lon
	item.Latitude = &lat
	item.Price = &price

	res := n.Normalize(item, "")

	assert.True(t, res.IsValid, "range violations are warnings")
	assert.Len(t, res.Warnings, 2)
	// Values retained.
	assert.Equal(t, 250.0, *res.Item.Longitude)
	assert.Equal(t, -5.0, *res.Item.Price)
}

func TestNormalizeBatchStatistics(t *testing.T) {
	n := New()

	items := []Item{
		validItem(),
		{Title: "Open Air Cinema", Description: "Movies under the stars with food and drinks for everyone.", Language: "en"},
		{Title: "Broken", Description: ""}, // missing description and language
	}

	batch := n.NormalizeBatch(items, "")

	assert.Equal(t, 2, batch.ValidItems)
	assert.Equal(t, 1, batch.InvalidItems)

	sum := 0.0
	for _, r := range batch.Results {
		sum += r.Quality.Overall
	}
	assert.InDelta(t, round2(sum/3), batch.AverageQualityScore, 0.011)
	assert.NotEmpty(t, batch.TopMessages)
}

func TestQualityScoreBounds(t *testing.T) {
	n := New()

	res := n.Normalize(validItem(), "")

	for _, v := range []float64{
		res.Quality.Completeness,
		res.Quality.Accuracy,
		res.Quality.Consistency,
		res.Quality.Overall,
	} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestDetectLanguageTieReturnsEmpty(t *testing.T) {
	lexicons := DefaultLexicons()

	// One hit for each language.
	got := detectLanguage("der the", lexicons)
	assert.Equal(t, "", got)
}
