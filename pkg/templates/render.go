package templates

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	eachOpen  = "{{#each "
	eachClose = "{{/each}}"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}#/][^{}]*?)\s*\}\}`)

// scope is the lookup context for one rendering pass. Inside an each block, this
// refers to the current item.
type scope struct {
	data    map[string]any
	this    any
	inBlock bool
	index   int
}

// render expands each blocks and placeholders in a single left-to-right pass.
// Substituted text is never scanned again.
func render(tmpl string, sc scope) string {
	var out strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, eachOpen)
		if start < 0 {
			out.WriteString(substitute(rest, sc))
			return out.String()
		}
		out.WriteString(substitute(rest[:start], sc))

		headerEnd := strings.Index(rest[start:], "}}")
		if headerEnd < 0 {
			out.WriteString(rest[start:])
			return out.String()
		}
		headerEnd += start
		path := strings.TrimSpace(rest[start+len(eachOpen) : headerEnd])

		bodyStart := headerEnd + 2
		bodyEnd := matchingClose(rest, bodyStart)
		if bodyEnd < 0 {
			// unterminated block stays literal
			out.WriteString(rest[start:])
			return out.String()
		}
		blockEnd := bodyEnd + len(eachClose)

		items, ok := sc.items(path)
		if !ok {
			out.WriteString(rest[start:blockEnd])
		} else {
			body := rest[bodyStart:bodyEnd]
			for i, item := range items {
				out.WriteString(render(body, scope{data: sc.data, this: item, inBlock: true, index: i}))
			}
		}
		rest = rest[blockEnd:]
	}
}

// matchingClose returns the offset of the {{/each}} closing the block whose body starts at from.
func matchingClose(s string, from int) int {
	depth := 1
	i := from
	for i < len(s) {
		nextOpen := strings.Index(s[i:], eachOpen)
		nextClose := strings.Index(s[i:], eachClose)
		if nextClose < 0 {
			return -1
		}
		if nextOpen >= 0 && nextOpen < nextClose {
			depth++
			i += nextOpen + len(eachOpen)
			continue
		}
		depth--
		if depth == 0 {
			return i + nextClose
		}
		i += nextClose + len(eachClose)
	}
	return -1
}

func substitute(text string, sc scope) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := sc.evaluate(expr); ok {
			return value
		}
		return match
	})
}

func (sc scope) evaluate(expr string) (string, bool) {
	args := splitArgs(expr)
	if len(args) == 0 {
		return "", false
	}
	if len(args) > 1 {
		if helper, ok := helpers[args[0]]; ok {
			values := make([]any, 0, len(args)-1)
			for _, arg := range args[1:] {
				v, ok := sc.argument(arg)
				if !ok {
					return "", false
				}
				values = append(values, v)
			}
			return helper(values)
		}
		return "", false
	}

	v, ok := sc.lookup(args[0])
	if !ok {
		return "", false
	}
	return format(v), true
}

// argument resolves a helper argument: a quoted literal or a data path.
func (sc scope) argument(arg string) (any, bool) {
	if len(arg) >= 2 && (arg[0] == '"' || arg[0] == '\'') && arg[len(arg)-1] == arg[0] {
		return arg[1 : len(arg)-1], true
	}
	return sc.lookup(arg)
}

func (sc scope) lookup(path string) (any, bool) {
	switch {
	case path == "@index" && sc.inBlock:
		return sc.index, true
	case path == "@number" && sc.inBlock:
		return sc.index + 1, true
	case path == "this" && sc.inBlock:
		return sc.this, sc.this != nil
	case strings.HasPrefix(path, "this.") && sc.inBlock:
		return walk(sc.this, strings.Split(path[len("this."):], "."))
	}

	parts := strings.Split(path, ".")
	if sc.inBlock {
		if v, ok := walk(sc.this, parts); ok {
			return v, true
		}
	}
	return walk(sc.data, parts)
}

func (sc scope) items(path string) ([]any, bool) {
	v, ok := sc.lookup(path)
	if !ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// walk follows parts through nested maps and structs.
func walk(root any, parts []string) (any, bool) {
	current := root
	for _, part := range parts {
		if current == nil || part == "" {
			return nil, false
		}
		rv := reflect.ValueOf(current)
		for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return nil, false
			}
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			value := rv.MapIndex(reflect.ValueOf(part).Convert(rv.Type().Key()))
			if !value.IsValid() {
				return nil, false
			}
			current = value.Interface()
		case reflect.Struct:
			field := rv.FieldByName(part)
			if !field.IsValid() || !field.CanInterface() {
				return nil, false
			}
			current = field.Interface()
		default:
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func format(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case time.Time:
		return value.Format("2006-01-02")
	case []string:
		return strings.Join(value, ", ")
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprint(v)
	}
}

// splitArgs splits on whitespace, keeping quoted strings together.
func splitArgs(expr string) []string {
	var (
		args  []string
		cur   strings.Builder
		quote rune
	)
	flush := func() {
		if cur.Len() > 0 {
			args = append(args, cur.String())
			cur.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}

type helperFunc func(args []any) (string, bool)

var helpers = map[string]helperFunc{
	"upper":      unary(func(s string) string { return cases.Upper(language.Und).String(s) }),
	"lower":      unary(func(s string) string { return cases.Lower(language.Und).String(s) }),
	"camel":      unary(func(s string) string { return joinWords(s, false) }),
	"pascal":     unary(func(s string) string { return joinWords(s, true) }),
	"formatDate": formatDate,
}

func unary(fn func(string) string) helperFunc {
	return func(args []any) (string, bool) {
		if len(args) != 1 {
			return "", false
		}
		return fn(format(args[0])), true
	}
}

func joinWords(s string, upperFirst bool) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	title := cases.Title(language.Und)
	lower := cases.Lower(language.Und)
	var b strings.Builder
	for i, word := range words {
		if i == 0 && !upperFirst {
			b.WriteString(lower.String(word))
			continue
		}
		b.WriteString(title.String(word))
	}
	return b.String()
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func formatDate(args []any) (string, bool) {
	if len(args) == 0 || len(args) > 2 {
		return "", false
	}
	layout := "2006-01-02"
	if len(args) == 2 {
		layout = format(args[1])
	}

	switch v := args[0].(type) {
	case time.Time:
		return v.Format(layout), true
	case *time.Time:
		if v == nil {
			return "", false
		}
		return v.Format(layout), true
	case int64:
		return time.Unix(v, 0).UTC().Format(layout), true
	}

	raw := format(args[0])
	for _, candidate := range dateLayouts {
		if t, err := time.Parse(candidate, raw); err == nil {
			return t.Format(layout), true
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC().Format(layout), true
	}
	return "", false
}
