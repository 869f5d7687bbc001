package pagination

// Meta summarizes page state for output and footers.
type Meta struct {
	CurrentPage int  `json:"current_page" yaml:"current_page"`
	PageSize    int  `json:"page_size"    yaml:"page_size"`
	TotalPages  int  `json:"total_pages"  yaml:"total_pages"`
	TotalItems  int  `json:"total_items"  yaml:"total_items"`
	HasPrevious bool `json:"has_previous" yaml:"has_previous"`
	HasNext     bool `json:"has_next"     yaml:"has_next"`
}

// TotalPages returns ceil(count / pageSize), never less than 1.
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return MinPage
	}
	return (count + pageSize - 1) / pageSize
}
