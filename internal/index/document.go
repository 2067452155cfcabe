package index

// Document is one searchable record. ID is the position of the document in
// the collection the Index was built from; any ID supplied by the caller is
// replaced at build time.
type Document struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// scoreableText is the text that feeds term frequencies: title first, then
// body, separated by a single space.
func (d Document) scoreableText() string {
	return d.Title + " " + d.Body
}

// Result pairs a document with its relevance for a query.
type Result struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Stats summarises the currently published tables.
type Stats struct {
	Documents  int    `json:"documents"`
	Terms      int    `json:"terms"`
	Generation uint64 `json:"generation"`
}
