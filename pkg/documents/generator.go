// Package documents produces a single requirements document from a template, an LLM
// call and a validation pass.
package documents

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/pkg/doctypes"
	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers/batch"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/alantheprice/reqgen/pkg/validation"
)

// GeneratorName is the attribution rendered into every document
const GeneratorName = "Requirements Generator"

// Request describes one document to generate
type Request struct {
	DocumentType       string            `json:"document_type"`
	ProjectName        string            `json:"project_name"`
	ProjectDescription string            `json:"project_description"`
	DependencyContent  map[string]string `json:"dependency_content,omitempty"`
	AdditionalContext  map[string]string `json:"additional_context,omitempty"`
	MaxRetries         int               `json:"max_retries"`
	PreferredProvider  string            `json:"preferred_provider,omitempty"`
}

// Response is the outcome of generating one document. Content is set whenever the
// LLM call succeeded, even if validation failed.
type Response struct {
	Success            bool           `json:"success"`
	DocumentType       string         `json:"document_type"`
	Content            string         `json:"content,omitempty"`
	Error              string         `json:"error,omitempty"`
	ValidationErrors   []string       `json:"validation_errors,omitempty"`
	ValidationWarnings []string       `json:"validation_warnings,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// Options configures a Generator
type Options struct {
	// Temperature is sent with every request. Nil leaves it to the provider.
	Temperature      *float64
	MaxTokens        int
	BatchConcurrency int

	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
	Logger *utils.Logger
}

// Generator binds templates, text generation and validation
type Generator struct {
	catalog     *doctypes.Catalog
	llm         interfaces.TextGenerator
	templates   interfaces.TemplateProvider
	validator   *validation.Validator
	temperature *float64
	maxTokens   int
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	batch       *batch.Processor
	logger      *utils.Logger
}

// NewGenerator creates a document generator
func NewGenerator(catalog *doctypes.Catalog, llm interfaces.TextGenerator, templates interfaces.TemplateProvider, validator *validation.Validator, opts Options) *Generator {
	if opts.Sleep == nil {
		opts.Sleep = utils.SleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4000
	}
	return &Generator{
		catalog:     catalog,
		llm:         llm,
		templates:   templates,
		validator:   validator,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		sleep:       opts.Sleep,
		now:         opts.Now,
		batch:       batch.NewProcessor(batch.Config{MaxConcurrency: opts.BatchConcurrency}),
		logger:      opts.Logger,
	}
}

// Generate produces one document. It never returns nil.
func (g *Generator) Generate(ctx context.Context, req Request) *Response {
	docType := req.DocumentType
	if def, ok := g.catalog.Get(docType); ok {
		docType = def.Type
	}
	resp := &Response{DocumentType: docType, Metadata: map[string]any{}}

	tmpl, err := g.templates.Load(docType)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	req.DocumentType = docType
	genReq := types.GenerationRequest{
		Prompt:            g.userPrompt(req),
		SystemPrompt:      g.systemPrompt(docType, req.DependencyContent),
		Temperature:       g.temperature,
		MaxTokens:         g.maxTokens,
		PreferredProvider: req.PreferredProvider,
		Parameters:        map[string]any{"document_type": docType},
	}

	result, attempts := g.generateWithRetry(ctx, genReq, req.MaxRetries, docType)
	resp.Metadata["attempts"] = attempts
	if !result.Success {
		resp.Error = result.Error
		return resp
	}

	rendered, err := g.templates.Render(tmpl, g.renderData(req, result.Content))
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	validationResult := g.validator.ValidateDocument(docType, rendered)
	resp.Content = rendered
	resp.Success = validationResult.Valid
	resp.ValidationErrors = validationResult.Errors
	resp.ValidationWarnings = validationResult.Warnings
	if !resp.Success {
		resp.Error = "document failed validation: " + strings.Join(validationResult.Errors, "; ")
	}

	resp.Metadata["provider"] = result.Provider
	resp.Metadata["model"] = result.Model
	resp.Metadata["tokens_used"] = result.TokensUsed
	resp.Metadata["word_count"] = utils.WordCount(rendered)
	resp.Metadata["duration_ms"] = result.Duration.Milliseconds()
	return resp
}

// GenerateBatch generates independent documents concurrently. Results follow input order.
func (g *Generator) GenerateBatch(ctx context.Context, reqs []Request) []*Response {
	return batch.Process(ctx, g.batch, reqs, g.Generate)
}

// generateWithRetry calls the text generator up to max(1, maxRetries) times, waiting
// 2^attempt seconds between attempts. Configuration failures are not retried.
func (g *Generator) generateWithRetry(ctx context.Context, req types.GenerationRequest, maxRetries int, docType string) (*types.GenerationResponse, int) {
	attempts := maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var result *types.GenerationResponse
	for attempt := 0; attempt < attempts; attempt++ {
		result = g.llm.Generate(ctx, req)
		if result.Success {
			return result, attempt + 1
		}
		if result.ErrorKind == types.ErrorKindConfiguration || attempt == attempts-1 {
			return result, attempt + 1
		}

		delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		g.logger.LogFields("document generation failed, retrying", map[string]any{
			"document_type": docType,
			"attempt":       attempt + 1,
			"delay":         delay.String(),
			"error":         result.Error,
		})
		if err := g.sleep(ctx, delay); err != nil {
			return result, attempt + 1
		}
	}
	return result, attempts
}

func (g *Generator) renderData(req Request, content string) map[string]any {
	now := g.now()

	dependencies := make([]string, 0, len(req.DependencyContent))
	for _, depType := range g.dependencyOrder(req.DependencyContent) {
		dependencies = append(dependencies, g.catalog.DisplayName(depType))
	}

	data := make(map[string]any, len(req.AdditionalContext)+9)
	for k, v := range req.AdditionalContext {
		data[k] = v
	}
	data["content"] = content
	data["documentType"] = req.DocumentType
	data["documentTitle"] = g.catalog.DisplayName(req.DocumentType)
	data["projectName"] = req.ProjectName
	data["projectDescription"] = req.ProjectDescription
	data["generatedDate"] = now.Format("2006-01-02")
	data["generatedAt"] = now
	data["generator"] = GeneratorName
	data["dependencies"] = dependencies
	return data
}
