package parse

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"no fence", "  plain text \n", "plain text"},
		{"json fence", "```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"prose around fence", "Here you go:\n```\nbody\n```\nthanks", "body"},
		{"thinking tags", "<think>hmm</think>\nanswer", "answer"},
		{"unterminated fence", "```\nbody", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNumberedList(t *testing.T) {
	in := "1. 墜落・転落\n2) **挟まれ・巻き込まれ**\n\n3、「感電」\n- 熱中症\n* 火災\n10. 交通事故\n"
	want := []string{"墜落・転落", "挟まれ・巻き込まれ", "感電", "熱中症", "火災", "交通事故"}
	if got := NumberedList(in); !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNumberedList_PlainLines(t *testing.T) {
	got := NumberedList("alpha\r\nbeta\r\n")
	if !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("got %q", got)
	}
}

func TestNumberedList_DropsEmptyItems(t *testing.T) {
	got := NumberedList("1.\n2. \n3. real")
	if !reflect.DeepEqual(got, []string{"real"}) {
		t.Errorf("got %q", got)
	}
}

func TestUniqueList(t *testing.T) {
	got := UniqueList("1. a\n2. b\n3. a\n4. c")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("got %q", got)
	}
}

func TestUniqueList_ThirtyNames(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&b, "%d. category %d\n", i, i)
	}
	if got := UniqueList(b.String()); len(got) != 30 {
		t.Errorf("got %d names, want 30", len(got))
	}
}

func TestLabel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"墜落・転落\n", "墜落・転落"},
		{"「感電」", "感電"},
		{"```\n火災\n```", "火災"},
		{"\n\n  熱中症  \n理由: ...", "熱中症"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSuggestions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Suggestion
	}{
		{
			name: "icon tag",
			in:   "- Wear a helmet. icon: helmet-safety",
			want: []Suggestion{{Text: "Wear a helmet.", Icon: IconHelmetSafety}},
		},
		{
			name: "no icon",
			in:   "- Be careful",
			want: []Suggestion{{Text: "Be careful", Icon: DefaultIcon}},
		},
		{
			name: "empty lines dropped, order kept",
			in:   "- first icon: fire\n\n   \n- second icon: wind\n",
			want: []Suggestion{{Text: "first", Icon: IconFire}, {Text: "second", Icon: IconWind}},
		},
		{
			name: "bracketed icon",
			in:   "- 足元を確認する (icon: [person-falling])",
			want: []Suggestion{{Text: "足元を確認する", Icon: IconPersonFalling}},
		},
		{
			name: "empty icon token",
			in:   "- check cables icon:",
			want: []Suggestion{{Text: "check cables", Icon: DefaultIcon}},
		},
		{
			name: "icon only line dropped",
			in:   "- icon: bolt",
			want: nil,
		},
		{
			name: "unknown icon kept",
			in:   "- stay hydrated icon: water",
			want: []Suggestion{{Text: "stay hydrated", Icon: Icon("water")}},
		},
		{
			name: "unbulleted prose",
			in:   "Additional suggestions",
			want: []Suggestion{{Text: "Additional suggestions", Icon: DefaultIcon}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Suggestions(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestKnownIcon(t *testing.T) {
	if !KnownIcon(IconTools) {
		t.Error("tools should be known")
	}
	if KnownIcon("water") {
		t.Error("water should be unknown")
	}
	if len(Icons) != 10 {
		t.Errorf("vocabulary has %d icons, want 10", len(Icons))
	}
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"prose around", "Sure!\n{\"en\":{\"name\":\"x\"}}\nDone {not json}", `{"en":{"name":"x"}}`},
		{"brace in string", `{"s":"a } b {"}`, `{"s":"a } b {"}`},
		{"escaped quote", `{"s":"say \"}\""}`, `{"s":"say \"}\""}`},
		{"unclosed then valid", `{ broken {"ok":true}`, `{"ok":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstJSONObject(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstJSONObject_None(t *testing.T) {
	for _, in := range []string{"", "no json here", "{ never closed"} {
		if _, err := FirstJSONObject(in); !errors.Is(err, ErrNoJSONObject) {
			t.Errorf("FirstJSONObject(%q) err = %v, want ErrNoJSONObject", in, err)
		}
	}
}

func TestJSONObject(t *testing.T) {
	var v map[string]struct {
		Name string `json:"name"`
	}
	if err := JSONObject("```json\n{\"en\":{\"name\":\"Falls\"}}\n```", &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v["en"].Name != "Falls" {
		t.Errorf("got %+v", v)
	}

	if err := JSONObject("{\"en\": [1,}", &v); err == nil {
		t.Error("expected decode error for malformed object")
	}
}
