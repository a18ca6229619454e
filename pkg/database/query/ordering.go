package query

// Ordering is the direction records are returned in, by id.
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

// ToOrderingWithFallback parses "asc" or "desc", returning fallback for
// anything else.
func ToOrderingWithFallback(val string, fallback Ordering) Ordering {
	switch val {
	case "asc":
		return Ascending
	case "desc":
		return Descending
	}
	return fallback
}

func (o Ordering) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}
