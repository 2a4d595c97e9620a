package notification

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"tribe-notify.io/notify/internal/domain"
)

//go:embed templates.yaml
var templateCatalog []byte

// RenderData is the input to a message template.
type RenderData struct {
	RecipientName string
	Content       UpdateContent
}

type templateSpec struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiledTemplate struct {
	subject *template.Template
	body    *template.Template
}

// Renderer turns a job into channel-appropriate message text from the
// embedded template catalog. Templates are compiled once at startup.
type Renderer struct {
	templates map[domain.Channel]map[domain.NotificationType]compiledTemplate
}

// NewRenderer parses and compiles the embedded catalog.
func NewRenderer() (*Renderer, error) {
	var catalog map[string]map[string]templateSpec
	if err := yaml.Unmarshal(templateCatalog, &catalog); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}

	r := &Renderer{templates: make(map[domain.Channel]map[domain.NotificationType]compiledTemplate)}
	for ch, byType := range catalog {
		channel := domain.Channel(ch)
		if !channel.Valid() {
			return nil, fmt.Errorf("template catalog: unknown channel %q", ch)
		}
		r.templates[channel] = make(map[domain.NotificationType]compiledTemplate)
		for typ, spec := range byType {
			compiled := compiledTemplate{}
			if spec.Subject != "" {
				t, err := template.New(ch + "/" + typ + "/subject").Parse(spec.Subject)
				if err != nil {
					return nil, fmt.Errorf("compile %s/%s subject: %w", ch, typ, err)
				}
				compiled.subject = t
			}
			t, err := template.New(ch + "/" + typ + "/body").Parse(spec.Body)
			if err != nil {
				return nil, fmt.Errorf("compile %s/%s body: %w", ch, typ, err)
			}
			compiled.body = t
			r.templates[channel][domain.NotificationType(typ)] = compiled
		}
	}
	return r, nil
}

// Render produces the subject and body for one channel/type pair.
// Channels without subjects (SMS, WhatsApp) return an empty subject.
func (r *Renderer) Render(ch domain.Channel, typ domain.NotificationType, data RenderData) (subject, body string, err error) {
	byType, ok := r.templates[ch]
	if !ok {
		return "", "", fmt.Errorf("no templates for channel %s", ch)
	}
	compiled, ok := byType[typ]
	if !ok {
		// Unknown types fall back to the immediate template.
		compiled, ok = byType[domain.TypeImmediate]
		if !ok {
			return "", "", fmt.Errorf("no template for %s/%s", ch, typ)
		}
	}

	if compiled.subject != nil {
		var sb strings.Builder
		if err := compiled.subject.Execute(&sb, data); err != nil {
			return "", "", fmt.Errorf("render %s/%s subject: %w", ch, typ, err)
		}
		subject = sb.String()
	}

	var bb strings.Builder
	if err := compiled.body.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("render %s/%s body: %w", ch, typ, err)
	}
	return subject, strings.TrimRight(bb.String(), "\n"), nil
}
