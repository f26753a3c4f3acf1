package fec

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Header is the first line of a filing. It declares the format version every
// later schema lookup depends on. SoftwareVersion is missing from some older
// filings; ReportID and ReportNumber are present only on amendments.
type Header struct {
	FECVersion   string
	SoftwareName string

	SoftwareVersion Text
	ReportID        Text
	ReportNumber    Text
}

// Legacy filings (before version 6) open with a multi-line "/* Header"
// block; everything since is a single HDR line.
const legacyHeaderMark = "/*"

const maxLegacyHeaderLines = 100

func parseHeader(lr *lineReader) (*Header, Sep, error) {
	var read strings.Builder
	first, err := nextHeaderLine(lr, &read)
	if err != nil {
		return nil, SepComma, headerErr(err.Error(), &read)
	}

	if strings.Contains(first, legacyHeaderMark) {
		h, err := parseLegacyHeader(lr, &read)
		if err != nil {
			return nil, SepComma, err
		}
		// The legacy block never declares a separator; legacy filings are
		// all from the comma era.
		return h, SepComma, nil
	}

	sep := detectSep(first)
	h, err := parseHeaderLine(first, sep, &read)
	if err != nil {
		return nil, sep, err
	}
	return h, sep, nil
}

// parseHeaderLine parses the modern single-line header:
//
//	HDR,FEC,8.3,NGP,8[,report_id,report_number]
//
// Some versions drop the literal "FEC" and start with the version directly.
func parseHeaderLine(line string, sep Sep, read *strings.Builder,
) (*Header, error) {
	parts, err := splitFields(line, sep)
	if err != nil {
		return nil, headerErr(err.Error(), read)
	} else if len(parts) < 2 {
		return nil, headerErr("less than 2 fields in header line", read)
	}

	// Without this check a filing that lost its header line would have its
	// cover line consumed as a garbage header.
	if !strings.EqualFold(strings.TrimSpace(parts[0]), "HDR") {
		return nil, headerErr("first line is not an HDR line", read)
	}

	if strings.EqualFold(parts[1], "FEC") {
		parts = parts[2:]
	} else {
		parts = parts[1:]
	}
	if len(parts) < 2 {
		return nil, headerErr("header line misses version or software name",
			read)
	}

	h := &Header{
		FECVersion:   strings.TrimSpace(parts[0]),
		SoftwareName: strings.TrimSpace(parts[1]),
	}
	if h.FECVersion == "" {
		return nil, headerErr("empty fec version", read)
	} else if h.SoftwareName == "" {
		return nil, headerErr("empty software name", read)
	}

	h.SoftwareVersion = optionalField(parts, 2)
	h.ReportID = optionalField(parts, 3)
	h.ReportNumber = optionalField(parts, 4)
	return h, nil
}

func optionalField(parts []string, i int) Text {
	if i >= len(parts) {
		return Text{}
	}
	s := strings.TrimSpace(parts[i])
	return Text{String: s, Valid: s != ""}
}

// parseLegacyHeader consumes the "key = value" block up to the closing "/*"
// line. The Schedule_Counts section is skipped: its keys are form codes, not
// header fields.
func parseLegacyHeader(lr *lineReader, read *strings.Builder,
) (*Header, error) {
	h := &Header{}
	for n := 0; ; n++ {
		if n > maxLegacyHeaderLines {
			return nil, headerErr(fmt.Sprintf(
				"more than %d lines in header block", maxLegacyHeaderLines), read)
		}

		line, err := nextHeaderLine(lr, read)
		if err != nil {
			return nil, headerErr(err.Error(), read)
		} else if strings.Contains(line, legacyHeaderMark) {
			break
		} else if strings.Contains(strings.ToLower(line), "schedule_counts") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "fec_ver_#":
			h.FECVersion = value
		case "soft_name":
			h.SoftwareName = value
		case "soft_ver#":
			h.SoftwareVersion = Text{String: value, Valid: value != ""}
		}
	}

	if h.FECVersion == "" {
		return nil, headerErr("missing FEC_Ver_#", read)
	} else if h.SoftwareName == "" {
		return nil, headerErr("missing Soft_Name", read)
	}
	return h, nil
}

func nextHeaderLine(lr *lineReader, read *strings.Builder) (string, error) {
	line, err := lr.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", errors.New("unexpected end of file")
		}
		return "", err
	}
	if read.Len() > 0 {
		read.WriteByte('\n')
	}
	read.WriteString(line)
	return line, nil
}

func headerErr(message string, read *strings.Builder) error {
	return &HeaderParseError{Message: message, Read: read.String()}
}
