package weathercloud

import "strings"

// Cookies is an insertion-ordered set of cookie name/value pairs. Overwriting
// an existing name keeps its original position.
type Cookies struct {
	names  []string
	values map[string]string
}

// ParseSetCookies builds a cookie set from raw Set-Cookie header lines. Only
// the leading name=value pair of each line is kept; attributes are dropped.
func ParseSetCookies(lines []string) Cookies {
	var c Cookies
	for _, line := range lines {
		pair, _, _ := strings.Cut(line, ";")
		name, value, _ := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c.Set(name, value)
	}
	return c
}

func (c *Cookies) Set(name, value string) {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = value
}

func (c Cookies) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

func (c Cookies) Len() int {
	return len(c.names)
}

// Merge returns a new set holding c overlaid with other; other wins on
// collisions. Neither input is modified.
func (c Cookies) Merge(other Cookies) Cookies {
	var out Cookies
	for _, n := range c.names {
		out.Set(n, c.values[n])
	}
	for _, n := range other.names {
		out.Set(n, other.values[n])
	}
	return out
}

// Header serialises the set as a Cookie header value: "a=1; b=2;".
func (c Cookies) Header() string {
	var b strings.Builder
	for i, n := range c.names {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(c.values[n])
		b.WriteByte(';')
	}
	return b.String()
}
