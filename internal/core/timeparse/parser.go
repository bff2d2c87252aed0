package timeparse

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// layouts are tried in order before falling back to the zone-abbreviation form.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// legacyLayout matches the date/time part of "%Y-%m-%d %l:%M:%S %Z".
const legacyLayout = "2006-01-02 15:04:05"

// Parser turns bookmark and start-date strings into instants. Values without
// an explicit zone are interpreted in the parser's location.
type Parser struct {
	offsets Offsets
	loc     *time.Location
}

func NewParser(offsets Offsets, loc *time.Location) *Parser {
	if offsets == nil {
		offsets = DefaultOffsets()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Parser{
		offsets: offsets,
		loc:     loc,
	}
}

func (p *Parser) Location() *time.Location {
	return p.loc
}

// Parse accepts RFC3339 variants, a bare date, or "YYYY-MM-DD H:MM:SS ZONE"
// where ZONE is an abbreviation from the offset table.
func (p *Parser) Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, p.loc); err == nil {
			return t, nil
		}
	}

	t, err := p.parseWithAbbreviation(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse timestamp %q: %w", value, err)
	}

	return t, nil
}

func (p *Parser) parseWithAbbreviation(value string) (time.Time, error) {
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("unrecognised layout")
	}

	abbr := fields[2]
	if !isAbbreviation(abbr) {
		return time.Time{}, fmt.Errorf("invalid zone %q", abbr)
	}

	offset, ok := p.offsets.Lookup(abbr)
	if !ok {
		return time.Time{}, fmt.Errorf("unknown zone %q", abbr)
	}

	zone := time.FixedZone(abbr, int(offset/time.Second))
	t, err := time.ParseInLocation(legacyLayout, fields[0]+" "+fields[1], zone)
	if err != nil {
		return time.Time{}, err //nolint:wrapcheck // wrapped by Parse
	}

	return t, nil
}

// StartOfDay truncates t to midnight in the parser's location.
func (p *Parser) StartOfDay(t time.Time) time.Time {
	t = t.In(p.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
}

func isAbbreviation(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
