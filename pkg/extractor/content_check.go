package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"rsc.io/pdf"
)

// maxContentBytes caps the decoded size of one content or CMap stream.
const maxContentBytes = 8 << 20

var (
	errContentTooLarge      = errors.New("content stream too large")
	errUnterminatedLiteral  = errors.New("unterminated literal string")
	errUnterminatedHexBlock = errors.New("unterminated hex string")
)

// checkPage verifies that every stream pdf.Page.Content will tokenize can be
// read to its end. The pdf lexer treats end of stream as an endless run of
// newlines, so an unclosed string there never returns.
func checkPage(page pdf.Page) error {
	if err := checkStream(page.V.Key("Contents")); err != nil {
		return fmt.Errorf("contents: %w", err)
	}
	for _, name := range page.Fonts() {
		if err := checkStream(page.Font(name).V.Key("ToUnicode")); err != nil {
			return fmt.Errorf("font %s: %w", name, err)
		}
	}
	return nil
}

// checkStream only inspects stream values; the reader yields nothing for
// anything else.
func checkStream(v pdf.Value) error {
	if v.Kind() != pdf.Stream {
		return nil
	}
	rd := v.Reader()
	defer rd.Close()

	data, err := io.ReadAll(io.LimitReader(rd, maxContentBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxContentBytes {
		return errContentTooLarge
	}
	return scanTokens(data)
}

// scanTokens walks data with the same string and comment rules as the pdf
// lexer and fails on a string that runs past the end.
func scanTokens(data []byte) error {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '%':
			for i < len(data) && data[i] != '\r' && data[i] != '\n' {
				i++
			}
		case '(':
			end, ok := literalEnd(data, i+1)
			if !ok {
				return errUnterminatedLiteral
			}
			i = end
		case '<':
			if i+1 < len(data) && data[i+1] == '<' {
				i++
				continue
			}
			end := bytes.IndexByte(data[i+1:], '>')
			if end < 0 {
				return errUnterminatedHexBlock
			}
			i += end + 1
		}
	}
	return nil
}

// literalEnd returns the index of the parenthesis closing a literal string
// whose body starts at start. Nested pairs balance and a backslash escapes
// the next byte.
func literalEnd(data []byte, start int) (int, bool) {
	depth := 1
	for j := start; j < len(data); j++ {
		switch data[j] {
		case '\\':
			j++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j, true
			}
		}
	}
	return 0, false
}
