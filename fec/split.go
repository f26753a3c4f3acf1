package fec

import (
	"errors"
	"strings"
)

// Sep is the field separator of a filing. Modern filings use ASCII 28,
// comma-era filings and legacy headers use commas. It is detected once from
// the header line and applied to every line after it.
type Sep byte

const (
	SepComma   Sep = ','
	SepASCII28 Sep = 0x1c
)

func detectSep(line string) Sep {
	if strings.IndexByte(line, byte(SepASCII28)) >= 0 {
		return SepASCII28
	}
	return SepComma
}

const quote = '"'

var errUnterminatedQuote = errors.New("unterminated quoted field")

// splitFields splits one logical line into raw field strings. A field that
// starts with a double quote runs to the matching close quote and may
// contain the separator; "" inside a quoted field is a literal quote.
func splitFields(line string, sep Sep) ([]string, error) {
	fields := make([]string, 0, 8)
	for {
		if len(line) == 0 {
			return append(fields, ""), nil
		}
		if line[0] != quote {
			next := strings.IndexByte(line, byte(sep))
			if next < 0 {
				return append(fields, line), nil
			}
			fields = append(fields, line[:next])
			line = line[next+1:]
			continue
		}

		field, rest, err := readQuoted(line[1:], sep)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		if rest == nil {
			return fields, nil
		}
		line = *rest
	}
}

// readQuoted consumes a quoted field (opening quote already stripped). It
// returns the unescaped field and the remainder after the separator, or nil
// when the field ended the line.
func readQuoted(line string, sep Sep) (string, *string, error) {
	var b strings.Builder
	for {
		next := strings.IndexByte(line, quote)
		if next < 0 {
			return "", nil, errUnterminatedQuote
		}
		b.WriteString(line[:next])
		line = line[next+1:]

		switch {
		case line == "":
			field := b.String()
			return field, nil, nil
		case line[0] == quote:
			b.WriteByte(quote)
			line = line[1:]
		case line[0] == byte(sep):
			rest := line[1:]
			return b.String(), &rest, nil
		default:
			return "", nil, errors.New("unexpected character after closing quote")
		}
	}
}
