package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/action.html
var templateFS embed.FS

// Renderer turns a Message into its HTML and plain text bodies.
type Renderer struct {
	tmpl       *template.Template
	senderName string
}

type templateData struct {
	Subject     string
	SenderName  string
	Text        string
	CallbackURL string
}

// NewRenderer parses the template at path, or the built-in one when path is empty.
func NewRenderer(path, senderName string) (*Renderer, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if path == "" {
		tmpl, err = template.ParseFS(templateFS, "templates/action.html")
	} else {
		tmpl, err = template.ParseFiles(path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse mail template: %w", err)
	}
	return &Renderer{tmpl: tmpl, senderName: senderName}, nil
}

// HTML renders the message body.
func (r *Renderer) HTML(msg Message) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, templateData{
		Subject:     msg.Subject,
		SenderName:  r.senderName,
		Text:        msg.Text,
		CallbackURL: msg.CallbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("render mail template: %w", err)
	}
	return buf.String(), nil
}

// Plain renders the text alternative.
func (r *Renderer) Plain(msg Message) string {
	return msg.Text + "\n\n" + msg.CallbackURL + "\n"
}
