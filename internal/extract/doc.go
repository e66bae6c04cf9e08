// Package extract turns message metadata into the fields of an export row.
//
// Extraction never fails on malformed data. A missing Subject, a From header
// that is not a valid mailbox or a non-numeric internal date fall back to a
// local value and are reported as anomalies on the Result. Only a message
// without any From header is rejected, with ErrMissingFrom.
package extract
