package extract

import (
	"errors"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/teemow/mailexport/internal/gmail"
)

// UnknownSubject replaces a missing Subject header.
const UnknownSubject = "<unknown subject>"

// ErrMissingFrom is returned for messages without a From header.
var ErrMissingFrom = errors.New("message has no From header")

// Anomaly is a recoverable data problem found while extracting a row.
type Anomaly string

const (
	AnomalyMissingSubject Anomaly = "missing_subject"
	AnomalyMalformedFrom  Anomaly = "malformed_from"
	AnomalyRawTimestamp   Anomaly = "raw_timestamp"
)

// Row holds every field any row shape may need.
type Row struct {
	// From is the raw From header value.
	From      string
	FirstName string
	LastName  string
	Email     string
	Subject   string
	Time      string
}

// Result is the outcome of extracting one message.
type Result struct {
	MessageID string
	Row       Row
	Anomalies []Anomaly
}

var wordDecoder = &mime.WordDecoder{CharsetReader: message.CharsetReader}

// Extract builds a row from meta. Times are rendered in loc, or time.Local
// when loc is nil.
func Extract(meta *gmail.MessageMeta, loc *time.Location) (Result, error) {
	res := Result{MessageID: meta.ID}

	from, ok := meta.HeaderValue("From")
	if !ok {
		return res, ErrMissingFrom
	}
	res.Row.From = from

	subject, ok := meta.HeaderValue("Subject")
	if ok {
		res.Row.Subject = DecodeHeader(subject)
	} else {
		res.Row.Subject = UnknownSubject
		res.Anomalies = append(res.Anomalies, AnomalyMissingSubject)
	}

	name, addr, parsed := ParseFrom(from)
	if !parsed {
		res.Anomalies = append(res.Anomalies, AnomalyMalformedFrom)
	}
	res.Row.FirstName, res.Row.LastName = SplitName(name)
	res.Row.Email = addr

	ts, numeric := FormatTimestamp(meta.InternalDate, loc)
	if !numeric {
		res.Anomalies = append(res.Anomalies, AnomalyRawTimestamp)
	}
	res.Row.Time = ts

	return res, nil
}

// ParseFrom splits a From header into display name and address using RFC 5322
// mailbox rules, decoding RFC 2047 encoded words in the display name. When the
// header is not a valid mailbox the raw value is returned as both name and
// address and ok is false.
func ParseFrom(raw string) (name, addr string, ok bool) {
	a, err := mail.ParseAddress(raw)
	if err != nil || (a.Name == "" && a.Address == "") {
		return raw, raw, false
	}
	return a.Name, a.Address, true
}

// SplitName splits a display name on single spaces: the first token is the
// first name and the rest, joined by a space, is the last name.
func SplitName(name string) (first, last string) {
	parts := strings.Split(name, " ")
	return parts[0], strings.Join(parts[1:], " ")
}

// DecodeHeader decodes RFC 2047 encoded words. Undecodable input is returned
// unchanged.
func DecodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
