package fec

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// lineReader yields logical lines from a sequential byte stream. It owns the
// file cursor: every call advances it and consumed lines cannot be re-read.
type lineReader struct {
	buf    *bufio.Reader
	line   int
	offset int64
	eof    bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{buf: bufio.NewReader(r)}
}

// Next returns the next logical line without its terminator. It returns
// io.EOF after the last line and a *ReadError if the transport fails.
func (self *lineReader) Next() (string, error) {
	if self.eof {
		return "", io.EOF
	}

	line, err := self.buf.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", &ReadError{Line: self.line + 1, Offset: self.offset, Err: err}
		}
		self.eof = true
		if line == "" {
			return "", io.EOF
		}
	}

	self.line++
	self.offset += int64(len(line))
	return strings.TrimRight(line, "\r\n"), nil
}

// Line reports the number of the most recently returned line, 1-based.
func (self *lineReader) Line() int { return self.line }

// Offset reports the byte offset of the next unread line.
func (self *lineReader) Offset() int64 { return self.offset }
