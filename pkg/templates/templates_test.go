package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		data map[string]string
		want string
	}{
		{"simple", "Hello {{name}}", map[string]string{"name": "Ann"}, "Hello Ann"},
		{"unknown key renders empty", "Hello {{name}}", map[string]string{}, "Hello "},
		{"nil data", "Hello {{name}}", nil, "Hello "},
		{"multiple keys", "{{a}}-{{b}}-{{a}}", map[string]string{"a": "1", "b": "2"}, "1-2-1"},
		{"whitespace tolerated", "Hi {{ name }}", map[string]string{"name": "Bo"}, "Hi Bo"},
		{"dotted keys", "Ticket {{issue.id}}", map[string]string{"issue.id": "42"}, "Ticket 42"},
		{"no placeholders", "plain text", map[string]string{"x": "y"}, "plain text"},
		{"unclosed braces untouched", "Hello {{name", map[string]string{"name": "Ann"}, "Hello {{name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, tt.data))
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"name", "issue.id"}, Keys("Hi {{name}}, ticket {{issue.id}} from {{name}}"))
	assert.Empty(t, Keys("no placeholders"))
}
