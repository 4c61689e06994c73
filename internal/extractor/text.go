package extractor

import (
	"bufio"
	"io"
	"strings"
)

// TextExtractor handles plain text files.
type TextExtractor struct{}

func (e *TextExtractor) Extract(r io.Reader, filename string) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out strings.Builder
	first := true
	for scanner.Scan() {
		if !first {
			out.WriteByte('\n')
		}
		out.WriteString(strings.TrimRight(scanner.Text(), "\r"))
		first = false
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return out.String(), nil
}
