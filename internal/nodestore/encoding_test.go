package nodestore

import (
	"encoding/json"
	"testing"
)

func TestEncodeNodeSeparators(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "object", value: map[string]string{"foo": "bar"}, want: `{"foo": "bar"}`},
		{name: "sorted keys", value: map[string]int{"b": 2, "a": 1}, want: `{"a": 1, "b": 2}`},
		{name: "array", value: []int{1, 2, 3}, want: `[1, 2, 3]`},
		{name: "empty containers", value: map[string]any{"o": map[string]any{}, "l": []any{}}, want: `{"l": [], "o": {}}`},
		{name: "separators inside strings untouched", value: []string{"a,b", "c:d"}, want: `["a,b", "c:d"]`},
		{name: "escaped quotes", value: `say "hi", ok`, want: `"say \"hi\", ok"`},
		{name: "escaped backslash before quote", value: []string{`a\`, "b"}, want: `["a\\", "b"]`},
		{name: "html left alone", value: "<b>&</b>", want: `"<b>&</b>"`},
		{name: "non-ascii escaped", value: "café", want: `"caf\u00e9"`},
		{name: "astral plane as surrogate pair", value: "\U0001F600", want: `"\ud83d\ude00"`},
		{name: "raw message recompacted", value: json.RawMessage(`{ "a" : [ 1 , 2 ] }`), want: `{"a": [1, 2]}`},
		{name: "scalar", value: 7, want: `7`},
		{name: "null", value: nil, want: `null`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := encodeNode(tc.value)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("encoding mismatch: got %s want %s", got, tc.want)
			}
			if !json.Valid(got) {
				t.Fatalf("encoded payload is not valid JSON: %s", got)
			}
		})
	}
}

func TestDecodeNodeKeepsNumbersExact(t *testing.T) {
	var v any
	if err := decodeNode("n", []byte(`{"big": 12345678901234567890, "f": 1.5}`), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	m := v.(map[string]any)
	if m["big"] != json.Number("12345678901234567890") {
		t.Fatalf("big number lost precision: %#v", m["big"])
	}
	if m["f"] != json.Number("1.5") {
		t.Fatalf("float mismatch: %#v", m["f"])
	}
}

func TestDecodeNodeAllowsTrailingWhitespace(t *testing.T) {
	var v any
	if err := decodeNode("n", []byte("{\"a\": \"b\"}\n  "), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
