// Package fec parses campaign finance disclosure filings in the FEC
// electronic filing format: one header line, one cover line, then a stream
// of itemization records whose column layout depends on the record's form
// code and the format version the header declares.
//
// Parsing is lazy and incremental. Nothing is read from the source until a
// caller asks for the header, the cover or the next batch, and memory is
// bounded by the batch size, not by the size of the filing. A File is meant
// for a single goroutine; concurrent calls must be serialized by the caller.
package fec

import (
	"errors"
	"fmt"
	"io"
	"os"
)

func New(r io.Reader) *File {
	return &File{src: r, maxRows: DefaultMaxBatchRows}
}

func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filing %q: %w", path, err)
	}
	return New(f).withCloser(f), nil
}

// File is one open filing. The cursor over the source is destructive:
// records already consumed cannot be re-read without reopening the source.
type File struct {
	src    io.Reader
	closer io.Closer

	lr     *lineReader
	sep    Sep
	header *Header
	cover  *Cover
	rows   *rowsParser
	accum  *accumulator

	draining bool
	done     bool

	maxRows int
	strict  bool
	lenient bool
	warn    func(error)
}

// WithMaxBatchRows bounds the row count of emitted batches. Values below 1
// are ignored.
func (self *File) WithMaxBatchRows(n int) *File {
	if n > 0 {
		self.maxRows = n
	}
	return self
}

// WithStrict makes per-line degradations (broken quoting, failed coercions,
// surplus fields) fatal instead of warnings.
func (self *File) WithStrict(strict bool) *File {
	self.strict = strict
	return self
}

// WithLenient makes itemization lines with an unknown form code skip with a
// warning instead of aborting iteration. By default they are fatal: an
// unrecognized code usually means the declared fec version is wrong for the
// whole filing.
func (self *File) WithLenient(lenient bool) *File {
	self.lenient = lenient
	return self
}

// WithWarnFunc installs the side channel for non-fatal parse degradations.
func (self *File) WithWarnFunc(fn func(error)) *File {
	self.warn = fn
	return self
}

func (self *File) withCloser(c io.Closer) *File {
	self.closer = c
	return self
}

func (self *File) Close() error {
	if self.closer == nil {
		return nil
	}
	if err := self.closer.Close(); err != nil {
		return fmt.Errorf("close filing: %w", err)
	}
	return nil
}

// Header parses through the first line on first call and caches the result.
func (self *File) Header() (*Header, error) {
	if err := self.parseHeader(); err != nil {
		return nil, err
	}
	return self.header, nil
}

// Cover parses through the second line on first call and caches the result.
func (self *File) Cover() (*Cover, error) {
	if err := self.parseCover(); err != nil {
		return nil, err
	}
	return self.cover, nil
}

func (self *File) parseHeader() error {
	if self.header != nil {
		return nil
	}
	if self.lr == nil {
		self.lr = newLineReader(self.src)
	}

	h, sep, err := parseHeader(self.lr)
	if err != nil {
		return err
	}
	self.header, self.sep = h, sep
	return nil
}

func (self *File) parseCover() error {
	if self.cover != nil {
		return nil
	}
	if err := self.parseHeader(); err != nil {
		return err
	}

	if self.rows == nil {
		self.rows = &rowsParser{
			lr:      self.lr,
			sep:     self.sep,
			version: self.header.FECVersion,
			strict:  self.strict,
			lenient: self.lenient,
			warn:    self.warn,
		}
		self.accum = newAccumulator(self.maxRows)
	}

	rec, err := self.nextCoverRecord()
	if err != nil {
		return err
	}
	cover, err := coverFromRecord(rec)
	if err != nil {
		return &CoverParseError{Line: rec.Line, Err: err}
	}
	self.cover = cover
	return nil
}

// nextCoverRecord reads the cover line. Unlike itemizations, a broken cover
// is fatal even in lenient mode.
func (self *File) nextCoverRecord() (*Record, error) {
	for {
		line, err := self.lr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &CoverParseError{
					Line: self.lr.Line(), Err: errors.New("no cover line"),
				}
			}
			return nil, err
		}
		if line == "" {
			continue
		}

		rec, err := self.rows.parseLine(line)
		if err != nil {
			return nil, &CoverParseError{Line: self.lr.Line(), Err: err}
		}
		return rec, nil
	}
}

// NextBatch returns the next ready batch of itemizations, or (nil, nil) once
// the filing is exhausted. Exhaustion is monotonic: once it returns no
// batch, it never returns one again.
func (self *File) NextBatch() (*Batch, error) {
	if self.done {
		return nil, nil
	}
	if err := self.parseCover(); err != nil {
		return nil, err
	}

	for {
		if self.draining {
			b := self.accum.flushNext()
			if b == nil {
				self.done = true
				return nil, nil
			}
			return b, nil
		}

		rec, err := self.rows.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				self.draining = true
				continue
			}
			return nil, err
		}
		if b := self.accum.accept(rec); b != nil {
			return b, nil
		}
	}
}
