package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV decodes delimited text with a header row.
func ReadCSV(data []byte, opt Options) (*Dataset, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fromRecords(nil, nil, opt)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return fromRecords(header, rows, opt)
}

// sniffDelimiter picks the most frequent common separator on the first line.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return ','
	}
	first := sc.Text()
	best, bestCount := ',', 0
	for _, sep := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(first, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

type fileSource struct{}

func (fileSource) CanOpen(location string) bool {
	return !strings.Contains(location, "://")
}

func (fileSource) Open(_ context.Context, location string, opt Options) (*Dataset, error) {
	if format(location, opt) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	ds, err := decode(location, data, opt)
	if err != nil {
		return nil, err
	}
	ds.Source = location
	return ds, nil
}
