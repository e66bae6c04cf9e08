package gmail

// Label is a mailbox label.
type Label struct {
	ID   string
	Name string
	// Type is "system" or "user".
	Type string
}

// SearchRequest selects one page of messages. Query and LabelIDs may be
// combined; when both are empty the whole mailbox is listed.
type SearchRequest struct {
	Query     string
	LabelIDs  []string
	PageToken string
	// PageSize is the maximum number of references per page. Zero uses the
	// API default.
	PageSize int64
}

// MessageRef identifies a message returned by a search.
type MessageRef struct {
	ID       string
	ThreadID string
}

// SearchPage is one page of search results.
type SearchPage struct {
	Messages []MessageRef
	// NextPageToken is empty on the last page.
	NextPageToken string
	// ResultSizeEstimate is the API's approximate total for the search.
	ResultSizeEstimate int64
}

// Header is a single message header. Names are not unique within a message.
type Header struct {
	Name  string
	Value string
}

// MessageMeta is the header-only projection of a message.
type MessageMeta struct {
	ID       string
	ThreadID string
	Headers  []Header
	// InternalDate is milliseconds since the epoch in decimal.
	InternalDate string
	LabelIDs     []string
}
