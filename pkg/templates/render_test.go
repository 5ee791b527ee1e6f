package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderString(t *testing.T, tmpl string, data map[string]any) string {
	t.Helper()
	out, err := NewEngine(Options{}).Render(tmpl, data)
	require.NoError(t, err)
	return out
}

func TestRenderSubstitution(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		data map[string]any
		want string
	}{
		{"present key", "Hello {{name}}!", map[string]any{"name": "Ada"}, "Hello Ada!"},
		{"absent key stays literal", "Hello {{name}} from {{place}}", map[string]any{"name": "Ada"}, "Hello Ada from {{place}}"},
		{"whitespace inside braces", "{{ name }}", map[string]any{"name": "Ada"}, "Ada"},
		{"dotted path", "{{project.name}}", map[string]any{"project": map[string]any{"name": "Leads"}}, "Leads"},
		{"dotted path through string map", "{{ctx.region}}", map[string]any{"ctx": map[string]string{"region": "EU"}}, "EU"},
		{"missing nested key", "{{project.owner}}", map[string]any{"project": map[string]any{"name": "x"}}, "{{project.owner}}"},
		{"numbers", "{{count}}", map[string]any{"count": 3}, "3"},
		{"string slice", "{{tags}}", map[string]any{"tags": []string{"a", "b"}}, "a, b"},
		{"values not rescanned", "{{content}}", map[string]any{"content": "literal {{name}}", "name": "x"}, "literal {{name}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderString(t, tt.tmpl, tt.data))
		})
	}
}

func TestRenderWithoutPlaceholdersIsIdentity(t *testing.T) {
	tmpl := "# Title\n\nPlain text with { single braces } and }} stray closers.\n"
	assert.Equal(t, tmpl, renderString(t, tmpl, map[string]any{"x": "y"}))
	assert.Equal(t, tmpl, renderString(t, renderString(t, tmpl, nil), nil))
}

func TestRenderEach(t *testing.T) {
	data := map[string]any{
		"deps": []string{"BRD", "PRD"},
		"people": []map[string]any{
			{"name": "Ada", "role": "Owner"},
			{"name": "Linus"},
		},
		"title": "Doc",
	}

	assert.Equal(t, "- BRD\n- PRD\n", renderString(t, "{{#each deps}}- {{this}}\n{{/each}}", data))
	assert.Equal(t, "0:BRD 1:PRD ", renderString(t, "{{#each deps}}{{@index}}:{{this}} {{/each}}", data))
	assert.Equal(t, "1.BRD/Doc 2.PRD/Doc ", renderString(t, "{{#each deps}}{{@number}}.{{this}}/{{title}} {{/each}}", data))
	assert.Equal(t, "Ada(Owner) Linus({{this.role}}) ",
		renderString(t, "{{#each people}}{{this.name}}({{this.role}}) {{/each}}", data))
	assert.Equal(t, "[]", renderString(t, "[{{#each empty}}x{{/each}}]", map[string]any{"empty": []string{}}))
}

func TestRenderEachMissingListStaysLiteral(t *testing.T) {
	tmpl := "before {{#each missing}}{{this}}{{/each}} after"
	assert.Equal(t, tmpl, renderString(t, tmpl, map[string]any{}))

	unterminated := "{{#each deps}}{{this}}"
	assert.Equal(t, unterminated, renderString(t, unterminated, map[string]any{"deps": []string{"a"}}))
}

func TestRenderNestedEach(t *testing.T) {
	data := map[string]any{
		"groups": []map[string]any{
			{"name": "A", "items": []string{"1", "2"}},
			{"name": "B", "items": []string{"3"}},
		},
	}
	out := renderString(t, "{{#each groups}}{{this.name}}:{{#each items}}{{this}}{{/each}};{{/each}}", data)
	assert.Equal(t, "A:12;B:3;", out)
}

func TestRenderHelpers(t *testing.T) {
	data := map[string]any{
		"name": "lead management platform",
		"when": time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC),
		"iso":  "2024-03-09T10:00:00Z",
	}

	tests := map[string]string{
		"{{upper name}}":                    "LEAD MANAGEMENT PLATFORM",
		"{{lower 'MiXeD'}}":                 "mixed",
		"{{camel name}}":                    "leadManagementPlatform",
		"{{pascal name}}":                   "LeadManagementPlatform",
		"{{formatDate when}}":               "2024-03-09",
		`{{formatDate when "Jan 2, 2006"}}`: "Mar 9, 2024",
		`{{formatDate iso "02/01/2006"}}`:   "09/03/2024",
		"{{upper missing}}":                 "{{upper missing}}",
		"{{unknownHelper name}}":            "{{unknownHelper name}}",
		`{{formatDate name "2006"}}`:        `{{formatDate name "2006"}}`,
		"{{#each}}":                         "{{#each}}",
	}
	for tmpl, want := range tests {
		assert.Equal(t, want, renderString(t, tmpl, data), tmpl)
	}
}
