package weathercloud

import "testing"

func TestParseSetCookies(t *testing.T) {
	c := ParseSetCookies([]string{
		"PHPSESSID=abc; path=/; HttpOnly",
		"YII_CSRF_TOKEN=tok%3D%3D; path=/",
		"token=a=b; Secure",
		"PHPSESSID=def; path=/",
	})

	if c.Len() != 3 {
		t.Fatalf("expected 3 cookies, got %d", c.Len())
	}
	if v, _ := c.Get("PHPSESSID"); v != "def" {
		t.Errorf("later header must win, got %q", v)
	}
	if v, _ := c.Get("token"); v != "a=b" {
		t.Errorf("value must keep everything after the first '=', got %q", v)
	}
	if got, want := c.Header(), "PHPSESSID=def; YII_CSRF_TOKEN=tok%3D%3D; token=a=b;"; got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
}

func TestParseSetCookiesKeepsValueAsIs(t *testing.T) {
	c := ParseSetCookies([]string{
		" spaced = v1 ; path=/",
		"quoted=\" q \"; Secure",
	})

	if v, ok := c.Get("spaced"); !ok || v != " v1 " {
		t.Errorf("spaced = %q, want \" v1 \"", v)
	}
	if v, _ := c.Get("quoted"); v != "\" q \"" {
		t.Errorf("quoted = %q", v)
	}
	if got, want := c.Header(), "spaced= v1 ; quoted=\" q \";"; got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
}

func TestCookiesMerge(t *testing.T) {
	a := ParseSetCookies([]string{"a=1", "shared=old"})
	b := ParseSetCookies([]string{"shared=new", "b=2"})

	m := a.Merge(b)
	want := map[string]string{"a": "1", "shared": "new", "b": "2"}
	if m.Len() != len(want) {
		t.Fatalf("merged %d cookies, want %d", m.Len(), len(want))
	}
	for k, v := range want {
		if got, _ := m.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if got, _ := a.Get("shared"); got != "old" {
		t.Error("merge must not modify its receiver")
	}
	if got := m.Header(); got != "a=1; shared=new; b=2;" {
		t.Errorf("unexpected header %q", got)
	}
}

func TestCookiesEmptyHeader(t *testing.T) {
	var c Cookies
	if c.Header() != "" {
		t.Fatalf("empty set must serialise to an empty string")
	}
	if ParseSetCookies(nil).Len() != 0 {
		t.Fatal("no headers, no cookies")
	}
}
