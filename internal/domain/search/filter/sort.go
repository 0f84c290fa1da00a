package filter

// SortField is the catalog ordering key.
type SortField string

// Sort field constants.
const (
	SortByName       SortField = "name"
	SortByPrice      SortField = "price"
	SortByCreatedAt  SortField = "created_at"
	SortByPopularity SortField = "popularity"
)

// ParseSortField accepts the wire spellings of a sort field (created_at and createdAt are aliases).
func ParseSortField(s string) (SortField, bool) {
	switch s {
	case "name":
		return SortByName, true
	case "price":
		return SortByPrice, true
	case "created_at", "createdAt":
		return SortByCreatedAt, true
	case "popularity":
		return SortByPopularity, true
	default:
		return "", false
	}
}

// SortDirection is ascending or descending.
type SortDirection string

// Sort direction constants.
const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// IsValid checks if the direction is one of the supported values.
func (d SortDirection) IsValid() bool {
	return d == Asc || d == Desc
}
