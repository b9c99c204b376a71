package analyzer

import "strings"

// Archetype is the detected CMS family. It biases default selectors
// and the rate-limit hint.
type Archetype string

const (
	ArchetypeWordpress   Archetype = "wordpress"
	ArchetypeTypo3       Archetype = "typo3"
	ArchetypeDrupal      Archetype = "drupal"
	ArchetypeJoomla      Archetype = "joomla"
	ArchetypeContao      Archetype = "contao"
	ArchetypeShopify     Archetype = "shopify"
	ArchetypeWix         Archetype = "wix"
	ArchetypeSquarespace Archetype = "squarespace"
	ArchetypeGeneric     Archetype = "generic"
)

// cmsFamily pairs an archetype with the markup keywords that identify
// it. Matching is case-insensitive substring search.
type cmsFamily struct {
	archetype Archetype
	keywords  []string
}

// cmsFamilies is checked in order; the first family with at least one
// keyword hit wins. The order is fixed so detection is deterministic.
var cmsFamilies = []cmsFamily{
	{ArchetypeWordpress, []string{"wp-content", "wp-includes", "wp-json", "wp-block"}},
	{ArchetypeTypo3, []string{"typo3", "typo3conf", "typo3temp"}},
	{ArchetypeDrupal, []string{"drupal", "sites/default/files", "drupal-settings-json"}},
	{ArchetypeJoomla, []string{"joomla", "com_content", "/media/jui/"}},
	{ArchetypeContao, []string{"contao", "tl_files"}},
	{ArchetypeShopify, []string{"cdn.shopify", "shopify-section"}},
	{ArchetypeWix, []string{"wix.com", "wixstatic", "wix-warmup"}},
	{ArchetypeSquarespace, []string{"squarespace", "sqs-block"}},
}

// heavyArchetypes are CMS families that tend to serve slowly and get a
// more conservative rate-limit hint.
var heavyArchetypes = map[Archetype]bool{
	ArchetypeTypo3:  true,
	ArchetypeDrupal: true,
	ArchetypeJoomla: true,
}

// DetectArchetype matches raw HTML against the known CMS families.
// Identical input always yields the identical archetype.
func DetectArchetype(html string) Archetype {
	lower := strings.ToLower(html)
	for _, family := range cmsFamilies {
		for _, kw := range family.keywords {
			if strings.Contains(lower, kw) {
				return family.archetype
			}
		}
	}
	return ArchetypeGeneric
}

// Heavy reports whether the archetype belongs to a heavier CMS family.
func (a Archetype) Heavy() bool {
	return heavyArchetypes[a]
}
