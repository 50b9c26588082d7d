package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	env := map[string]string{"env.DOMAIN": "example.com", "empty": ""}
	mapping := func(s string) string { return env[s] }

	cases := []struct {
		input    string
		expected string
	}{
		0: {"${foo}", ""},
		1: {"^${env.DOMAIN}$", "^example.com$"},
		2: {"${env.MISSING:-fallback}", "fallback"},
		3: {"${empty:-fallback}", "fallback"},
		4: {"${env.DOMAIN:-fallback}", "example.com"},
		5: {"${env.MISSING:-}", ""},
		6: {"no references", "no references"},
		7: {"${a}${env.DOMAIN}", "example.com"},
		8: {"$env.DOMAIN", "$env.DOMAIN"},
	}
	for i, c := range cases {
		assert.Equal(t, c.expected, Expand(c.input, mapping), "#%d", i)
	}
	assert.Equal(t, "foo", Expand("${foo}", func(s string) string { return s }))
}
