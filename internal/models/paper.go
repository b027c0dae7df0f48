package models

// RawPaper is one loosely structured input record, as found in a papers JSON
// file or an ingest stream message. Every field is optional at this stage;
// normalization decides what survives.
type RawPaper struct {
	ID         string   `json:"id"`
	ArxivID    string   `json:"arxiv_id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Abstract   string   `json:"abstract"`
	Categories []string `json:"categories"`
	Published  string   `json:"published"`
	Date       string   `json:"date"`
}

// Paper is the canonical document produced by normalization. All string
// fields are trimmed, authors and categories carry no blanks or duplicates,
// and Categories is guaranteed non-empty.
type Paper struct {
	ArxivID    string   `json:"arxiv_id" dynamodbav:"arxiv_id"`
	Title      string   `json:"title,omitempty" dynamodbav:"title,omitempty"`
	Authors    []string `json:"authors,omitempty" dynamodbav:"authors,omitempty"`
	Abstract   string   `json:"abstract,omitempty" dynamodbav:"abstract,omitempty"`
	Categories []string `json:"categories" dynamodbav:"categories"`
	Keywords   []string `json:"keywords,omitempty" dynamodbav:"keywords,omitempty"`
	// Published keeps the upstream timestamp when one was present, otherwise
	// midnight UTC of PubDate.
	Published string `json:"published" dynamodbav:"published"`
	// PubDate is the YYYY-MM-DD used in sort keys, "0000-00-00" when the
	// upstream timestamp was absent or unparsable.
	PubDate string `json:"pub_date" dynamodbav:"pub_date"`
}

// Summary is the trimmed projection returned by the recency query.
type Summary struct {
	ArxivID    string   `json:"arxiv_id"`
	Title      string   `json:"title,omitempty"`
	Authors    []string `json:"authors,omitempty"`
	Published  string   `json:"published"`
	Categories []string `json:"categories"`
}

// Summarize trims a paper down to the recency-listing projection.
func (p Paper) Summarize() Summary {
	return Summary{
		ArxivID:    p.ArxivID,
		Title:      p.Title,
		Authors:    p.Authors,
		Published:  p.Published,
		Categories: p.Categories,
	}
}
