package paging

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Clamp normalizes caller-supplied pagination: page floors at 1 and limit
// is forced into [1, MaxLimit].
func Clamp(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset converts a clamped page/limit pair into a row offset.
func Offset(page, limit int) int {
	return (page - 1) * limit
}
