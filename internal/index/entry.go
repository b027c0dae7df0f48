// Package index derives the denormalized DynamoDB items for one paper. Each
// paper fans out into a master item plus one item per category, author, and
// keyword, so that every read pattern is a single key-condition query with no
// follow-up fetch.
package index

import (
	"strings"

	"github.com/avicke/arxiv-store/internal/models"
)

// Kind tags which access pattern an entry serves.
type Kind string

const (
	KindMaster   Kind = "MASTER"
	KindCategory Kind = "CATEGORY"
	KindAuthor   Kind = "AUTHOR"
	KindKeyword  Kind = "KEYWORD"
)

// Secondary index names, fixed by the table schema.
const (
	AuthorIndex  = "AuthorIndex"
	PaperIdIndex = "PaperIdIndex"
	KeywordIndex = "KeywordIndex"
)

// Entry is one physical table item. The full paper rides along on every
// variant, so a query against any index reconstructs the document directly.
type Entry struct {
	PK       string `dynamodbav:"PK" json:"PK"`
	SK       string `dynamodbav:"SK" json:"SK"`
	GSI1PK   string `dynamodbav:"GSI1PK,omitempty" json:"GSI1PK,omitempty"`
	GSI1SK   string `dynamodbav:"GSI1SK,omitempty" json:"GSI1SK,omitempty"`
	GSI2PK   string `dynamodbav:"GSI2PK,omitempty" json:"GSI2PK,omitempty"`
	GSI2SK   string `dynamodbav:"GSI2SK,omitempty" json:"GSI2SK,omitempty"`
	GSI3PK   string `dynamodbav:"GSI3PK,omitempty" json:"GSI3PK,omitempty"`
	GSI3SK   string `dynamodbav:"GSI3SK,omitempty" json:"GSI3SK,omitempty"`
	ItemType Kind   `dynamodbav:"item_type" json:"item_type"`

	models.Paper
}

// Key builders shared by the generator and the query layer.

func MasterPK(id string) string         { return "PAPER#" + id }
func CategoryPK(category string) string { return "CATEGORY#" + category }
func AuthorGSIPK(author string) string  { return "AUTHOR#" + author }

// KeywordGSIPK lowercases before building the key so that writes and lookups
// agree regardless of input casing.
func KeywordGSIPK(keyword string) string {
	return "KEYWORD#" + strings.ToLower(keyword)
}

// DateSortKey is "{pubDate}#{id}": lexical order equals chronological order
// because dates are fixed-width YYYY-MM-DD.
func DateSortKey(pubDate, id string) string {
	return pubDate + "#" + id
}

// Generate expands one canonical paper into its full entry set: exactly one
// master entry, one per category, one per author, one per keyword. Variants
// whose key would contain an empty segment are omitted rather than emitted
// broken; the normalizer already guarantees id, date, and categories.
func Generate(p models.Paper) []Entry {
	if p.ArxivID == "" || len(p.Categories) == 0 {
		return nil
	}
	date := p.PubDate
	if date == "" {
		date = "0000-00-00"
	}
	sk := DateSortKey(date, p.ArxivID)

	entries := make([]Entry, 0, 1+len(p.Categories)+len(p.Authors)+len(p.Keywords))

	entries = append(entries, Entry{
		PK:       MasterPK(p.ArxivID),
		SK:       "MASTER",
		GSI2PK:   MasterPK(p.ArxivID),
		GSI2SK:   date,
		ItemType: KindMaster,
		Paper:    p,
	})

	for _, category := range p.Categories {
		if category == "" {
			continue
		}
		entries = append(entries, Entry{
			PK:       CategoryPK(category),
			SK:       sk,
			ItemType: KindCategory,
			Paper:    p,
		})
	}

	for _, author := range p.Authors {
		if author == "" {
			continue
		}
		// Spread PK keeps author items off a single hot partition; reads go
		// through AuthorIndex, never the main-table PK.
		entries = append(entries, Entry{
			PK:       "AUTHORITEM#" + author + "#" + p.ArxivID,
			SK:       sk,
			GSI1PK:   AuthorGSIPK(author),
			GSI1SK:   sk,
			ItemType: KindAuthor,
			Paper:    p,
		})
	}

	for _, keyword := range p.Keywords {
		if keyword == "" {
			continue
		}
		kw := strings.ToLower(keyword)
		entries = append(entries, Entry{
			PK:       "KEYWORDITEM#" + kw + "#" + p.ArxivID,
			SK:       sk,
			GSI3PK:   KeywordGSIPK(kw),
			GSI3SK:   sk,
			ItemType: KindKeyword,
			Paper:    p,
		})
	}

	return entries
}
