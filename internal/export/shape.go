package export

import (
	"fmt"
	"strings"

	"github.com/teemow/mailexport/internal/extract"
)

// Row shape names.
const (
	ShapeContacts = "contacts"
	ShapeSenders  = "senders"
)

// RowShape decides the CSV columns and how a row fills them.
type RowShape interface {
	Name() string
	Header() []string
	Record(row extract.Row) []string
}

var (
	// Contacts writes First name, Last name, Email, Subject and Time.
	Contacts RowShape = contactsShape{}

	// Senders writes the raw From header and the Subject.
	Senders RowShape = sendersShape{}
)

var shapes = map[string]RowShape{
	ShapeContacts: Contacts,
	ShapeSenders:  Senders,
}

// ShapeNames lists the accepted shape names.
func ShapeNames() []string {
	return []string{ShapeContacts, ShapeSenders}
}

// ParseShape returns the shape with the given name, ignoring case.
func ParseShape(name string) (RowShape, error) {
	shape, ok := shapes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (valid: %s)", name, strings.Join(ShapeNames(), ", "))
	}
	return shape, nil
}

type contactsShape struct{}

func (contactsShape) Name() string { return ShapeContacts }

func (contactsShape) Header() []string {
	return []string{"First name", "Last name", "Email", "Subject", "Time"}
}

func (contactsShape) Record(row extract.Row) []string {
	return []string{row.FirstName, row.LastName, row.Email, row.Subject, row.Time}
}

type sendersShape struct{}

func (sendersShape) Name() string { return ShapeSenders }

func (sendersShape) Header() []string {
	return []string{"From", "Subject"}
}

func (sendersShape) Record(row extract.Row) []string {
	return []string{row.From, row.Subject}
}
