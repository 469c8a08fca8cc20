package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	Snippet     string `json:"snippet"`
	Author      string `json:"author,omitempty"`
	ThreadURI   string `json:"threadUri,omitempty"`
	ThreadTitle string `json:"threadTitle,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over comments.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// CommentRecord is the data we index for a comment.
type CommentRecord struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Author      string `json:"author"`
	ThreadURI   string `json:"threadUri"`
	ThreadTitle string `json:"threadTitle"`
	Created     int64  `json:"created"`
}
