package services

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RawRow is one data line of a returns file keyed by normalized header name.
// LineNumber is 1-based and counts the header line.
type RawRow struct {
	LineNumber int
	Fields     map[string]string
}

// ParsedFile holds the header and the ordered data rows of one CSV file.
type ParsedFile struct {
	Headers []string
	Rows    []RawRow
}

// SplitCSVLine splits one CSV line on commas while respecting double-quoted
// fields. A doubled quote inside a quoted field yields a literal quote. The
// split is deliberately lenient: an unterminated quote is kept as the literal
// rest of the line instead of failing, so one malformed line never aborts a
// whole file. An empty line yields a single empty field and a trailing comma
// yields a trailing empty field.
func SplitCSVLine(line string) []string {
	fields := make([]string, 0, 8)
	var field strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case inQuotes:
			if ch == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteByte(ch)
			}
		case ch == '"':
			inQuotes = true
		case ch == ',':
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}
	fields = append(fields, field.String())
	return fields
}

// NormalizeHeader maps a raw header cell to the canonical lowercase
// underscore form used by the row validator.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	h = strings.Trim(h, `"`)
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// ParseReturnsFile reads a daily-returns CSV and produces header-keyed rows.
// Short lines leave the missing trailing columns absent from the map; extra
// cells beyond the header are dropped.
func ParseReturnsFile(path string) (*ParsedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open returns file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	parsed := &ParsedFile{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if lineNo == 1 {
			for _, h := range SplitCSVLine(line) {
				parsed.Headers = append(parsed.Headers, NormalizeHeader(h))
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		cells := SplitCSVLine(line)
		fields := make(map[string]string, len(parsed.Headers))
		for i, header := range parsed.Headers {
			if header == "" {
				continue
			}
			if i < len(cells) {
				fields[header] = strings.TrimSpace(cells[i])
			}
		}
		parsed.Rows = append(parsed.Rows, RawRow{LineNumber: lineNo, Fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read returns file: %w", err)
	}
	if len(parsed.Headers) == 0 {
		return nil, fmt.Errorf("returns file has no header row")
	}
	return parsed, nil
}
