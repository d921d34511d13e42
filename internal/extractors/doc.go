// Package extractors holds the page extractors used by ingestion.
//
// Each subpackage implements driven.PageExtractor for one file format and
// reports the extensions it handles. Formats without a page concept yield
// a single page unless the text carries form feeds.
package extractors
