// Package validation checks generated documents for structure and required content.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/alantheprice/reqgen/pkg/doctypes"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// MinimumWordCount is the size below which a document is flagged as possibly incomplete
const MinimumWordCount = 100

// Result is the outcome of a validation. Errors make a document invalid; warnings do not.
type Result struct {
	Valid    bool           `json:"valid"`
	Errors   []string       `json:"errors"`
	Warnings []string       `json:"warnings"`
	Metadata map[string]any `json:"metadata"`
}

func newResult() *Result {
	return &Result{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
		Metadata: make(map[string]any),
	}
}

func (r *Result) addError(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

var requiredSections = map[string][]string{
	doctypes.BRD: {"Executive Summary", "Business Objectives", "Stakeholders", "Business Requirements", "Success Criteria"},
	doctypes.PRD: {"Product Overview", "Target Users", "Features", "User Stories", "Acceptance Criteria"},
	doctypes.FRD: {"Functional Overview", "Functional Requirements", "Use Cases", "Data Requirements", "Integration Requirements"},
	doctypes.TRD: {"Technical Overview", "System Architecture", "Technology Stack", "Data Model", "Security Requirements"},
}

// RequiredSections returns the section headings a document type must contain, or nil
// for unknown types.
func RequiredSections(docType string) []string {
	sections, ok := requiredSections[strings.ToUpper(docType)]
	if !ok {
		return nil
	}
	return append([]string(nil), sections...)
}

// Validator validates markdown and YAML documents
type Validator struct {
	markdown goldmark.Markdown
}

// NewValidator creates a validator that understands GFM tables
func NewValidator() *Validator {
	return &Validator{
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

type heading struct {
	level int
	text  string
}

type outline struct {
	headings   []heading
	hasLists   bool
	hasTables  bool
	hasCode    bool
	totalWords int
}

func (v *Validator) parse(content string) outline {
	source := []byte(content)
	doc := v.markdown.Parser().Parse(text.NewReader(source))

	var o outline
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			o.headings = append(o.headings, heading{level: node.Level, text: strings.TrimSpace(nodeText(node, source))})
			return ast.WalkSkipChildren, nil
		case *ast.List:
			o.hasLists = true
		case *extast.Table:
			o.hasTables = true
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			o.hasCode = true
		}
		return ast.WalkContinue, nil
	})
	o.totalWords = utils.WordCount(content)
	return o
}

// nodeText concatenates the inline text below n.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := child.(type) {
		case *ast.Text:
			buf.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// ValidateMarkdownStructure requires a non-empty document with a level-1 heading.
// Heading level jumps are reported as warnings.
func (v *Validator) ValidateMarkdownStructure(content string) *Result {
	result := newResult()
	if strings.TrimSpace(content) == "" {
		result.addError("document is empty")
		return result
	}

	o := v.parse(content)
	v.checkStructure(o, result)
	return result
}

func (v *Validator) checkStructure(o outline, result *Result) {
	result.Metadata["has_lists"] = o.hasLists
	result.Metadata["has_tables"] = o.hasTables
	result.Metadata["has_code_blocks"] = o.hasCode
	result.Metadata["heading_count"] = len(o.headings)
	result.Metadata["word_count"] = o.totalWords

	hasTitle := false
	for _, h := range o.headings {
		if h.level == 1 {
			hasTitle = true
			break
		}
	}
	if !hasTitle {
		result.addError("document must have a top-level heading (# Title)")
	}

	for i := 1; i < len(o.headings); i++ {
		prev, cur := o.headings[i-1], o.headings[i]
		if cur.level > prev.level+1 {
			result.addWarning("heading %q jumps from level %d to level %d", cur.text, prev.level, cur.level)
		}
	}
}

// ValidateYaml requires a non-empty document that parses as YAML
func (v *Validator) ValidateYaml(content string) *Result {
	result := newResult()
	if strings.TrimSpace(content) == "" {
		result.addError("document is empty")
		return result
	}

	decoder := yaml.NewDecoder(strings.NewReader(content))
	count := 0
	for {
		var node yaml.Node
		err := decoder.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.addError("invalid YAML: %v", err)
			return result
		}
		count++
	}
	result.Metadata["document_count"] = count
	return result
}

// ValidateDocument checks structure and, for known document types, required sections
func (v *Validator) ValidateDocument(docType, content string) *Result {
	result := newResult()
	result.Metadata["document_type"] = docType
	if strings.TrimSpace(content) == "" {
		result.addError("document is empty")
		return result
	}

	o := v.parse(content)
	v.checkStructure(o, result)

	sections := RequiredSections(docType)
	if sections == nil {
		result.addWarning("unknown document type %q: skipping section checks", docType)
	} else {
		for _, section := range sections {
			if !hasSection(o.headings, section) {
				result.addError("missing required section: %s", section)
			}
		}
	}

	if o.totalWords < MinimumWordCount {
		result.addWarning("document has only %d words and may be incomplete", o.totalWords)
	}
	return result
}

var headingPrefix = regexp.MustCompile(`^[\s\d.)(:\-]+`)

// hasSection matches section against level 1-3 headings case-insensitively. Leading
// numbering is ignored. Level 2 and 3 headings may carry extra words; the level-1
// title must match exactly so "Business Requirements Document" does not satisfy
// "Business Requirements".
func hasSection(headings []heading, section string) bool {
	want := strings.ToLower(section)
	for _, h := range headings {
		if h.level > 3 {
			continue
		}
		got := strings.ToLower(strings.TrimSpace(headingPrefix.ReplaceAllString(h.text, "")))
		got = strings.TrimRight(got, ": ")
		if got == want {
			return true
		}
		if h.level > 1 && strings.Contains(got, want) {
			return true
		}
	}
	return false
}
