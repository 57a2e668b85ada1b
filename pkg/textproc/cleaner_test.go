package textproc

import "testing"

// ─── CleanText ────────────────────────────────────────────────────────────────

func TestCleanText_HTMLTags(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"simple tag", "<b>hello</b>", "hello"},
		{"nested tags", "<div><p>foo <span>bar</span></p></div>", "foo bar"},
		{"anchor with href", `<a href="https://example.com">click</a>`, "click"},
		{"script tag stripped", "<script>alert('x')</script>text", "text"},
		{"style tag stripped", "<style>.a{color:red}</style>text", "text"},
		{"self-closing br", "line1<br/>line2", "line1 line2"},
		{"img alt not kept", `<img src="x.png" alt="photo"/>`, ""},
		{"mixed html and text", "<h1>Title</h1><p>Body text here.</p>", "Title Body text here."},
		{"xml-style tags", "<root><item>value</item></root>", "value"},
		{"already clean", "plain text", "plain text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanText(tc.input)
			if got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanText_Emoji(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"face emoji", "hello 😀 world", "hello world"},
		{"multiple emoji", "🔥🚀💡 text", "text"},
		{"emoji only", "😂😂😂", ""},
		{"emoji between words", "good 👍 job", "good job"},
		{"flag emoji", "🇹🇷 Turkey", "Turkey"},
		{"heart emoji", "I ❤️ Go", "I Go"},
		{"mixed emoji and punctuation", "wow!!! 🎉🎊 nice.", "wow!!! nice."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanText(tc.input)
			if got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanText_ControlCharacters(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"null byte", "foo\x00bar", "foobar"},
		{"bell char", "foo\x07bar", "foobar"},
		{"backspace", "foo\x08bar", "foobar"},
		{"form feed", "foo\x0Cbar", "foobar"},
		{"vertical tab", "foo\x0Bbar", "foobar"},
		{"escape char", "foo\x1Bbar", "foobar"},
		{"delete char", "foo\x7Fbar", "foobar"},
		{"newline kept", "foo\nbar", "foo bar"},
		{"tab kept and collapsed", "foo\t\tbar", "foo bar"},
		{"carriage return kept", "foo\rbar", "foo bar"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanText(tc.input)
			if got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanText_Whitespace(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"leading spaces", "   hello", "hello"},
		{"trailing spaces", "hello   ", "hello"},
		{"multiple spaces", "foo   bar", "foo bar"},
		{"mixed whitespace", "foo \t \n bar", "foo bar"},
		{"only whitespace", "   \t\n  ", ""},
		{"newlines between words", "foo\n\nbar", "foo bar"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanText(tc.input)
			if got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanText_Combined(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			"html + emoji + control",
			"<p>Hello 😀\x00 World!</p>",
			"Hello World!",
		},
		{
			"html table with emoji",
			"<table><tr><td>🔥 hot</td><td>cold</td></tr></table>",
			"hot cold",
		},
		{
			"real world messy input",
			"  <div class=\"x\">  Check this out!! 🎉\n\nGreat stuff.\t</div>  ",
			"Check this out!! Great stuff.",
		},
		{
			"empty after cleaning",
			"<b></b>😀\x00",
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanText(tc.input)
			if got != tc.want {
				t.Errorf("CleanText(%q)\n got  %q\n want %q", tc.input, got, tc.want)
			}
		})
	}
}
