// Package gmail is a thin adapter over the Gmail v1 API covering the calls
// needed to export message headers: listing labels, searching messages page
// by page and fetching header-only message metadata.
//
// Every call is traced and recorded through the instrumentation package.
package gmail
