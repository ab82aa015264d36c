package tokenstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	markerOpen  = "<<"
	markerClose = ">>"
)

// DecodeError reports a malformed line in a persisted token stream.
type DecodeError struct {
	Line int
	Text string
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("token stream line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// Decode reads a persisted token stream: one token per line, markers written
// as <<NAME>> or <<NAME DETAIL>>, everything else literal text. Blank lines
// are skipped.
func Decode(r io.Reader) ([]Token, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var tokens []Token
	offset := 0
	lineNo := 0
	for {
		raw, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read token stream: %w", err)
		}
		if raw == "" && errors.Is(err, io.EOF) {
			break
		}
		lineNo++
		start := offset
		offset += len(raw)

		line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if strings.TrimSpace(line) != "" {
			tok, perr := parseLine(line, lineNo)
			if perr != nil {
				return nil, perr
			}
			tok.Start = start
			tok.End = start + len(line)
			tokens = append(tokens, tok)
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}
	return tokens, nil
}

// DecodeString is a convenience wrapper around Decode.
func DecodeString(s string) ([]Token, error) {
	return Decode(strings.NewReader(s))
}

func parseLine(line string, lineNo int) (Token, error) {
	if !strings.HasPrefix(line, markerOpen) {
		return NewText(line), nil
	}
	if !strings.HasSuffix(line, markerClose) || len(line) < len(markerOpen)+len(markerClose)+1 {
		return Token{}, &DecodeError{Line: lineNo, Text: line, Msg: "unterminated marker"}
	}
	body := line[len(markerOpen) : len(line)-len(markerClose)]
	name, detail, _ := strings.Cut(body, " ")
	if !IsMarkerName(name) {
		return Token{}, &DecodeError{Line: lineNo, Text: line, Msg: "unknown marker"}
	}
	return NewMarker(name, detail), nil
}

// Encode writes tokens in the persisted form, one per line.
func Encode(w io.Writer, tokens []Token) error {
	bw := bufio.NewWriter(w)
	for i, t := range tokens {
		switch t.Kind {
		case Marker:
			if !IsMarkerName(t.Name) {
				return fmt.Errorf("token %d: unknown marker %q", i, t.Name)
			}
			if strings.Contains(t.Detail, "\n") {
				return fmt.Errorf("token %d: marker detail contains a newline", i)
			}
		case Text:
			if strings.TrimSpace(t.Text) == "" {
				return fmt.Errorf("token %d: blank text token", i)
			}
			if strings.ContainsAny(t.Text, "\r\n") {
				return fmt.Errorf("token %d: text contains a line break", i)
			}
			if strings.HasPrefix(t.Text, markerOpen) {
				return fmt.Errorf("token %d: text starts with %q", i, markerOpen)
			}
		default:
			return fmt.Errorf("token %d: invalid kind %d", i, t.Kind)
		}
		if _, err := bw.WriteString(t.String()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeString renders tokens to a string.
func EncodeString(tokens []Token) (string, error) {
	var sb strings.Builder
	if err := Encode(&sb, tokens); err != nil {
		return "", err
	}
	return sb.String(), nil
}
