// Package contentmap holds the static mapping from CMS content types to the
// field names ingestion reads from each entry. Unmapped types are skipped,
// never an error.
package contentmap

// FieldMapping names the body field and the metadata fields configured for
// one content type. Empty metadata fields mean the type does not carry them.
type FieldMapping struct {
	BodyField       string
	Title           string
	Ticker          string
	Tickers         string
	PublicationDate string
	AccessLevel     string
}

var mappings = map[string]FieldMapping{
	"trendingStockBrief": {
		BodyField:       "briefBody",
		Title:           "briefTitle",
		Ticker:          "tickerSymbol",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
	"premiumReport": {
		BodyField:       "reportBody",
		Title:           "reportTitle",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
	"weeklyEarningsPreview": {
		BodyField:       "briefBody",
		Title:           "briefTitle",
		Ticker:          "tickerSymbol",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
	"macroUpdate": {
		BodyField:       "briefBody",
		Title:           "briefTitle",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
	"macroRecap": {
		BodyField:       "briefBody",
		Title:           "briefTitle",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
	"macroPreview": {
		BodyField:       "briefBody",
		Title:           "briefTitle",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
	"earningsRecapWeekly": {
		BodyField:       "briefBody",
		Title:           "briefTitle",
		Ticker:          "tickerSymbol",
		Tickers:         "tickers",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
	"earningsPreviewWeekly": {
		BodyField:       "briefBody",
		Title:           "briefTitle",
		Ticker:          "tickerSymbol",
		Tickers:         "tickers",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
	"earningsArticle": {
		BodyField:       "briefBody",
		Title:           "briefTitle",
		Ticker:          "tickerSymbol",
		PublicationDate: "publicationDate",
		AccessLevel:     "accessLevel",
	},
}

// Resolve returns the field mapping for a content type, with ok=false for
// unsupported types.
func Resolve(contentTypeID string) (FieldMapping, bool) {
	m, ok := mappings[contentTypeID]
	return m, ok
}

// TypeIDs returns all supported content type ids in a stable order, used to
// filter backfill listings to mapped types only.
func TypeIDs() []string {
	return []string{
		"trendingStockBrief",
		"premiumReport",
		"weeklyEarningsPreview",
		"macroUpdate",
		"macroRecap",
		"macroPreview",
		"earningsRecapWeekly",
		"earningsPreviewWeekly",
		"earningsArticle",
	}
}
