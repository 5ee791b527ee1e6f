package documents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alantheprice/reqgen/pkg/doctypes"
	"github.com/alantheprice/reqgen/pkg/validation"
)

const rolePreamble = `You are a senior business analyst and solutions architect who writes clear, complete
and well structured requirements documents. Write in professional markdown. Start the
document with a single level-1 title, use level-2 headings for the main sections and
prefer lists and tables where they make requirements easier to review.`

var typeInstructions = map[string]string{
	doctypes.BRD: "Focus on the business problem, measurable objectives, the people affected and how success will be judged. Avoid technical design.",
	doctypes.PRD: "Describe the product from the user's point of view: who it is for, what it does and how each feature is accepted. Stay consistent with the business requirements.",
	doctypes.FRD: "Specify system behaviour precisely. Number each functional requirement, describe use cases step by step and list the data and integrations involved.",
	doctypes.TRD: "Describe how the system will be built: architecture, technology choices, data model and security controls. Every decision should trace back to the functional requirements.",
}

// systemPrompt combines the role preamble, type instructions and the text of every
// dependency document, in catalog order.
func (g *Generator) systemPrompt(docType string, dependencies map[string]string) string {
	var b strings.Builder
	b.WriteString(rolePreamble)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "You are writing a %s (%s).\n", g.catalog.DisplayName(docType), docType)
	if instructions, ok := typeInstructions[docType]; ok {
		b.WriteString(instructions)
		b.WriteString("\n")
	}
	if sections := validation.RequiredSections(docType); len(sections) > 0 {
		b.WriteString("\nThe document must contain these sections as headings:\n")
		for _, section := range sections {
			fmt.Fprintf(&b, "- %s\n", section)
		}
	}

	for _, depType := range g.dependencyOrder(dependencies) {
		fmt.Fprintf(&b, "\n--- %s (%s) ---\n", g.catalog.DisplayName(depType), depType)
		b.WriteString(strings.TrimSpace(dependencies[depType]))
		b.WriteString("\n")
	}
	if len(dependencies) > 0 {
		b.WriteString("\nKeep the new document consistent with the documents above.\n")
	}
	return b.String()
}

// userPrompt names the document to produce and the project it is for.
func (g *Generator) userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %s for the following project.\n\n", g.catalog.DisplayName(req.DocumentType))
	fmt.Fprintf(&b, "Project name: %s\n", req.ProjectName)
	fmt.Fprintf(&b, "Project description: %s\n", req.ProjectDescription)

	if len(req.AdditionalContext) > 0 {
		b.WriteString("\nAdditional context:\n")
		keys := make([]string, 0, len(req.AdditionalContext))
		for k := range req.AdditionalContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, req.AdditionalContext[k])
		}
	}
	return b.String()
}

// dependencyOrder returns the keys of dependencies in catalog order, followed by any
// unknown keys sorted alphabetically.
func (g *Generator) dependencyOrder(dependencies map[string]string) []string {
	ordered := make([]string, 0, len(dependencies))
	seen := make(map[string]bool, len(dependencies))
	for _, t := range g.catalog.Types() {
		if _, ok := dependencies[t]; ok {
			ordered = append(ordered, t)
			seen[t] = true
		}
	}
	var rest []string
	for t := range dependencies {
		if !seen[t] {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}
