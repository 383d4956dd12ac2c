package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/v1/access":                "/v1/access",
		"/v1/access?path=a/b":       "/v1/access",
		"/v1/keys/01ABCDEF":         "/v1/keys/:id",
		"/v1/keys/01ABCDEF/extra":   "/v1/keys/01ABCDEF/extra",
		"/v1/tokens/01ABCDEF":       "/v1/tokens/:id",
		"/v1/folders":               "/v1/folders",
		"/v1/folders?environment=x": "/v1/folders",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
