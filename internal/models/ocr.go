package models

// Layout is the page-layout hint forwarded to the OCR endpoint.
type Layout string

const (
	LayoutOneColumn Layout = "1column"
	LayoutTwoColumn Layout = "2column"
)

// Valid reports whether the layout is one the endpoint understands.
func (l Layout) Valid() bool {
	return l == LayoutOneColumn || l == LayoutTwoColumn
}

// Image is one document image submitted for text extraction.
type Image struct {
	Name string
	Data []byte
}
