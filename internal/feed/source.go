package feed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

const maxLineSize = 64 * 1024

// Record is one feed line with its leading marker character removed.
type Record struct {
	Line int // 1-based line number in the input
	Text string
}

// Source yields records from a line oriented reader in input order. Blank
// lines are skipped.
type Source struct {
	scanner *bufio.Scanner
	line    int
}

// NewSource reads records from r.
func NewSource(r io.Reader) *Source {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &Source{scanner: scanner}
}

// Next returns the next record, or false once the input is exhausted or a
// read fails. Check Err afterwards.
func (s *Source) Next() (Record, bool) {
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimRight(s.scanner.Text(), "\r\n")
		if text == "" {
			continue
		}
		return Record{Line: s.line, Text: StripMarker(text)}, true
	}
	return Record{}, false
}

func (s *Source) Err() error {
	if err := s.scanner.Err(); err != nil {
		return fmt.Errorf("read line %d: %w", s.line+1, err)
	}
	return nil
}

// StripMarker drops the single routing character every feed line starts
// with. The marker may be any UTF-8 rune.
func StripMarker(line string) string {
	_, size := utf8.DecodeRuneInString(line)
	return line[size:]
}

// File is a Source over an opened input file.
type File struct {
	*Source
	file *os.File
}

// Open opens the feed file at path. Close it when done.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	return &File{
		Source: NewSource(f),
		file:   f,
	}, nil
}

func (f *File) Close() error {
	return f.file.Close()
}
