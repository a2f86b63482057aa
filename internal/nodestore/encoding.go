package nodestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"
)

// DecodeError reports a stored payload that is not valid JSON text.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode node %q: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// encodeNode renders v as JSON text with ", " and ": " separators and
// non-ASCII characters escaped, so {"foo":"bar"} is stored as
// {"foo": "bar"}.
func encodeNode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return spaceSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// spaceSeparators expects compact JSON.
func spaceSeparators(compact []byte) []byte {
	out := make([]byte, 0, len(compact)+len(compact)/8)
	inString := false
	escaped := false

	for i := 0; i < len(compact); {
		b := compact[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			case b >= utf8.RuneSelf:
				r, size := utf8.DecodeRune(compact[i:])
				out = appendEscapedRune(out, r)
				i += size
				continue
			}
			out = append(out, b)
			i++
			continue
		}

		switch b {
		case '"':
			inString = true
			out = append(out, b)
		case ',':
			out = append(out, ',', ' ')
		case ':':
			out = append(out, ':', ' ')
		default:
			out = append(out, b)
		}
		i++
	}
	return out
}

func appendEscapedRune(out []byte, r rune) []byte {
	if r > 0xFFFF {
		r1, r2 := utf16.EncodeRune(r)
		out = fmt.Appendf(out, `\u%04x\u%04x`, r1, r2)
		return out
	}
	return fmt.Appendf(out, `\u%04x`, r)
}

func decodeNode(id string, data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return &DecodeError{ID: id, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &DecodeError{ID: id, Err: errors.New("unexpected data after top-level value")}
	}
	return nil
}
