package urlutil

import "testing"

const testBase = "https://example.com/blog/post.html"

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		ref  string
		want string
	}{
		{name: "absolute", ref: "https://example.com/a", want: "https://example.com/a"},
		{name: "relative file", ref: "img/x.png", want: "https://example.com/blog/img/x.png"},
		{name: "root relative", ref: "/about", want: "https://example.com/about"},
		{name: "parent", ref: "../style.css", want: "https://example.com/style.css"},
		{name: "scheme relative", ref: "//cdn.example.net/lib.js", want: "https://cdn.example.net/lib.js"},
		{name: "fragment stripped", ref: "/about#team", want: "https://example.com/about"},
		{name: "fragment only", ref: "#top", want: ""},
		{name: "fragment only with spaces", ref: "  #  ", want: ""},
		{name: "absolute dot segments", ref: "https://example.com/a/../b.png", want: "https://example.com/b.png"},
		{name: "absolute current segment", ref: "https://example.com/a/./b/", want: "https://example.com/a/b/"},
		{name: "query kept", ref: "/list?p=2", want: "https://example.com/list?p=2"},
		{name: "empty path becomes slash", ref: "https://example.com", want: "https://example.com/"},
		{name: "host lowered", ref: "HTTPS://EXAMPLE.com/A", want: "https://example.com/A"},
		{name: "empty", ref: "", want: ""},
		{name: "whitespace", ref: "   ", want: ""},
		{name: "javascript", ref: "javascript:void(0)", want: ""},
		{name: "mailto", ref: "mailto:a@example.com", want: ""},
		{name: "data", ref: "data:image/png;base64,AAAA", want: ""},
		{name: "unparsable", ref: "http://[::1", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tc.ref, testBase); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.ref, got, tc.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	refs := []string{
		"img/x.png", "/a b/c", "../../up", "https://Example.com", "/list?p=2&q=a b",
		"//cdn.example.net/x.js#frag", "/%7Euser/", "?only=query",
	}
	for _, ref := range refs {
		once := Normalize(ref, testBase)
		if once == "" {
			t.Errorf("Normalize(%q) = empty", ref)
			continue
		}
		if twice := Normalize(once, testBase); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", ref, once, twice)
		}
	}
}

func TestNormalizeEquivalentSpellings(t *testing.T) {
	t.Parallel()

	spellings := []string{
		"https://example.com/a/../b.png",
		"/b.png",
		"../b.png",
		"https://EXAMPLE.com/./b.png#x",
	}
	want := Normalize(spellings[0], testBase)
	for _, ref := range spellings[1:] {
		if got := Normalize(ref, testBase); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", ref, got, want)
		}
	}
}

func TestNormalizeInvalidBase(t *testing.T) {
	t.Parallel()

	if got := Normalize("/a", "not a url"); got != "" {
		t.Errorf("relative ref with invalid base = %q, want empty", got)
	}
	if got := Normalize("https://example.com/a", "not a url"); got != "https://example.com/a" {
		t.Errorf("absolute ref ignores base, got %q", got)
	}
}

func TestInScope(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		u    string
		want bool
	}{
		{"https://example.com/a", true},
		{"http://example.com/a", true},
		{"https://EXAMPLE.com/a", true},
		{"/relative/path", true},
		{"https://www.example.com/a", false},
		{"https://example.com:8443/a", false},
		{"https://other.org/", false},
		{"", false},
		{"http://[::1", false},
	}

	for _, tc := range testCases {
		if got := InScope(tc.u, "example.com"); got != tc.want {
			t.Errorf("InScope(%q) = %v, want %v", tc.u, got, tc.want)
		}
	}
}

func TestIsDataURI(t *testing.T) {
	t.Parallel()

	if !IsDataURI(" DATA:image/png;base64,AA") {
		t.Error("IsDataURI() = false for data URI")
	}
	if IsDataURI("img/data.png") {
		t.Error("IsDataURI() = true for plain path")
	}
}
