package spacedjson

import "testing"

func TestObjectString(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{"empty", Object{}, `{}`},
		{
			"separators",
			Object{{"title", "Q3 Review"}, {"tags", []string{"chart", "text"}}},
			`{"title": "Q3 Review", "tags": ["chart", "text"]}`,
		},
		{"empty list", Object{{"keywords", []string{}}}, `{"keywords": []}`},
		{"escapes", Object{{"k", "a\"b\\c\nd\te"}}, `{"k": "a\"b\\c\nd\te"}`},
		{"control", Object{{"k", "\x01"}}, `{"k": "\u0001"}`},
		{"non-ascii", Object{{"k", "café"}}, `{"k": "caf\u00e9"}`},
		{"astral", Object{{"k", "😀"}}, `{"k": "\ud83d\ude00"}`},
		{"html kept", Object{{"k", "<a&b>/"}}, `{"k": "<a&b>/"}`},
		{"scalars", Object{{"n", 3}, {"f", 0.5}, {"b", true}, {"z", nil}}, `{"n": 3, "f": 0.5, "b": true, "z": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}
