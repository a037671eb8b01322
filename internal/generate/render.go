package generate

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Email is the assembled reply handed to a Renderer.
type Email struct {
	Greeting          string
	Paragraphs        []string
	SignOff           string
	Signature         string
	SignatureImageURL string
}

// Plain renders the email as plain text with one blank line between blocks.
func (e Email) Plain() string {
	blocks := make([]string, 0, len(e.Paragraphs)+3)
	blocks = append(blocks, e.Greeting)
	blocks = append(blocks, e.Paragraphs...)
	blocks = append(blocks, e.SignOff, e.Signature)
	return collapseBlankLines(strings.Join(blocks, "\n\n"))
}

// Renderer turns an Email into an HTML body.
type Renderer interface {
	Render(e Email) (string, error)
}

const htmlLayout = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, Helvetica, sans-serif; font-size: 14px; line-height: 1.5; color: #222222;">
<p>{{.Greeting}}</p>
{{range .Paragraphs}}<p>{{range $i, $line := lines .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
{{end}}<p>{{.SignOff}}</p>
<p class="signature">{{range $i, $line := lines .Signature}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
{{if .SignatureImageURL}}<img class="signature-image" src="{{.SignatureImageURL}}" alt="{{.Signature}} signature" width="200">
{{end}}</body>
</html>
`

// HTMLRenderer renders the default layout with html/template escaping.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	funcs := template.FuncMap{
		"lines": func(s string) []string { return strings.Split(s, "\n") },
	}
	return &HTMLRenderer{tmpl: template.Must(template.New("email").Funcs(funcs).Parse(htmlLayout))}
}

func (r *HTMLRenderer) Render(e Email) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, e); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
