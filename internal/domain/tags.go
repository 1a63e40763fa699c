package domain

// Dimension names one axis of the tag bundle.
type Dimension string

const (
	DimensionCategory Dimension = "category"
	DimensionPlatform Dimension = "platform"
	DimensionTheme    Dimension = "theme"
	DimensionCompany  Dimension = "company"
)

// Dimensions lists every tag dimension in a fixed order.
var Dimensions = []Dimension{DimensionCategory, DimensionPlatform, DimensionTheme, DimensionCompany}

// TagBundle maps each dimension to a set of values. Order inside a slice is irrelevant.
type TagBundle struct {
	Category []string `json:"category"`
	Platform []string `json:"platform"`
	Theme    []string `json:"theme"`
	Company  []string `json:"company"`
}

// Values returns the values stored for a dimension.
func (b TagBundle) Values(d Dimension) []string {
	switch d {
	case DimensionCategory:
		return b.Category
	case DimensionPlatform:
		return b.Platform
	case DimensionTheme:
		return b.Theme
	case DimensionCompany:
		return b.Company
	default:
		return nil
	}
}

// PopulatedDimensions counts dimensions holding at least one value.
func (b TagBundle) PopulatedDimensions() int {
	n := 0
	for _, d := range Dimensions {
		if len(b.Values(d)) > 0 {
			n++
		}
	}
	return n
}

// Normalized flattens the bundle into (item, dimension, value) rows.
func (b TagBundle) Normalized(itemID string) []NormalizedTag {
	var rows []NormalizedTag
	for _, d := range Dimensions {
		for _, v := range Union(b.Values(d)) {
			rows = append(rows, NormalizedTag{ItemID: itemID, Dimension: d, Value: v})
		}
	}
	return rows
}

// NormalizedTag is the denormalized form of one tag value used for counting and filtering.
type NormalizedTag struct {
	ItemID    string
	Dimension Dimension
	Value     string
}

// Union merges string sets with exact, case-sensitive comparison.
// First occurrence order is kept and empty strings are dropped.
func Union(sets ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, set := range sets {
		for _, v := range set {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
