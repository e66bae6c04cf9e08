// Package export drives a search-to-CSV export.
//
// An Exporter resolves the filter, pages through the search results, fetches
// the header metadata of every message and writes one CSV row per message in
// the selected RowShape. Each row is flushed as soon as it is written, so a
// run aborted by a remote error or cancellation leaves every completed row in
// the output.
package export
