package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

var ErrMissingName = errors.New("prompt file is missing a name")

// Renderer turns user-authored markdown (request descriptions, call
// summaries, assistant prompts) into HTML. Raw HTML in the source is
// escaped, never passed through. Only prompt files carry frontmatter;
// user content starting with "---" is rendered as written.
type Renderer struct {
	md      goldmark.Markdown
	prompts goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{
		md:      newMarkdown(),
		prompts: newMarkdown(&frontmatter.Extender{}),
	}
}

func newMarkdown(extra ...goldmark.Extender) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(append([]goldmark.Extender{extension.GFM, extension.Typographer}, extra...)...),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
		),
	)
}

func (r *Renderer) Render(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil // #nosec G203 -- goldmark escapes raw HTML without WithUnsafe
}

// MustRender is Render for templates: on failure it falls back to escaped text.
func (r *Renderer) MustRender(source string) template.HTML {
	html, err := r.Render(source)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(source)) // #nosec G203
	}
	return html
}

// Prompt is a voice-assistant prompt file: YAML frontmatter for the
// assistant settings, markdown body for the system prompt.
type Prompt struct {
	Name          string  `yaml:"name"`
	Model         string  `yaml:"model"`
	ModelProvider string  `yaml:"model_provider"`
	Voice         string  `yaml:"voice"`
	VoiceProvider string  `yaml:"voice_provider"`
	FirstMessage  string  `yaml:"first_message"`
	Temperature   float64 `yaml:"temperature"`

	Body string `yaml:"-"`
}

// ParsePrompt reads the frontmatter of a prompt file. The body is kept as
// markdown source since the provider expects plain text.
func (r *Renderer) ParsePrompt(source []byte) (*Prompt, error) {
	ctx := parser.NewContext()
	var discard bytes.Buffer
	if err := r.prompts.Convert(source, &discard, parser.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to parse prompt: %w", err)
	}

	prompt := &Prompt{}
	if data := frontmatter.Get(ctx); data != nil {
		if err := data.Decode(prompt); err != nil {
			return nil, fmt.Errorf("invalid prompt frontmatter: %w", err)
		}
	}

	prompt.Name = strings.TrimSpace(prompt.Name)
	if prompt.Name == "" {
		return nil, ErrMissingName
	}
	prompt.Body = strings.TrimSpace(stripFrontmatter(string(source)))
	return prompt, nil
}

func stripFrontmatter(source string) string {
	source = strings.TrimPrefix(source, "\ufeff")
	if !strings.HasPrefix(source, "---") {
		return source
	}
	rest := source[3:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return source
	}
	rest = rest[end+4:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		return rest[i+1:]
	}
	return ""
}
