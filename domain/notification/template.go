package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"
)

// TemplateData contains all the fields available for email template rendering
type TemplateData struct {
	Greeting      string // Dynamic greeting based on recipient count
	SourceName    string
	DateFormatted string // e.g., "12/28/2025"
	Language      string // Human-readable language, e.g. "English" or "auto-detected"
	Duration      string // e.g., "3m 05s"
	Transcript    string
	NoSpeech      bool
	ArtifactURL   string
	ArtifactName  string
	SenderName    string
}

// EmailTemplate contains the templates for rendering emails.
// HTML is rendered with html/template so transcript text is escaped.
type EmailTemplate struct {
	SubjectFormat string
	PlainText     string
	HTML          string
}

// DefaultTemplate is the standard email template for finished transcripts
var DefaultTemplate = EmailTemplate{
	SubjectFormat: "Transcript: {{.SourceName}} ({{.DateFormatted}})",
	PlainText: `{{.Greeting}}

Here is the transcript of {{.SourceName}} ({{.Duration}}, language: {{.Language}}).
{{if .NoSpeech}}
No speech was detected in the audio.
{{else}}
{{.Transcript}}
{{end}}{{if .ArtifactURL}}
Audio ({{.ArtifactName}}): {{.ArtifactURL}}
{{end}}
Thanks!
{{.SenderName}}`,
	HTML: `<div dir="ltr">{{.Greeting}}<br><br>
Here is the transcript of <b>{{.SourceName}}</b> ({{.Duration}}, language: {{.Language}}).<br><br>
{{if .NoSpeech}}<i>No speech was detected in the audio.</i>{{else}}<blockquote>{{.Transcript}}</blockquote>{{end}}<br>
{{if .ArtifactURL}}<a href="{{.ArtifactURL}}">Download the audio ({{.ArtifactName}})</a><br><br>{{end}}
Thanks!<br>
{{.SenderName}}</div>`,
}

// FormatGreeting creates an appropriate greeting based on number of recipients
// 1 recipient: "Dear John,"
// 2 recipients: "Dear John & Jane,"
// 3+ recipients: "Hey Everyone!"
func FormatGreeting(recipients []Recipient) string {
	switch len(recipients) {
	case 0:
		return "Hello,"
	case 1:
		return fmt.Sprintf("Dear %s,", getFirstName(recipients[0].Name))
	case 2:
		return fmt.Sprintf("Dear %s & %s,", getFirstName(recipients[0].Name), getFirstName(recipients[1].Name))
	default:
		return "Hey Everyone!"
	}
}

// getFirstName extracts the first name from a full name
func getFirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "Friend"
	}
	return fields[0]
}

// FormatDuration renders an audio length for people: "45s", "3m 05s", "1h 02m"
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

var languageNames = map[string]string{
	"":     "auto-detected",
	"auto": "auto-detected",
	"en":   "English",
	"hi":   "Hindi",
	"es":   "Spanish",
	"fr":   "French",
	"de":   "German",
	"ja":   "Japanese",
	"zh":   "Chinese",
}

// FormatLanguage returns the display name of a language code
func FormatLanguage(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// NewTemplateData builds the template fields for a request
func NewTemplateData(req *EmailRequest) TemplateData {
	return TemplateData{
		Greeting:      FormatGreeting(req.To),
		SourceName:    req.SourceName,
		DateFormatted: req.CompletedAt.Format("01/02/2006"),
		Language:      FormatLanguage(req.Language),
		Duration:      FormatDuration(req.Duration),
		Transcript:    strings.TrimSpace(req.Transcript),
		NoSpeech:      req.NoSpeech(),
		ArtifactURL:   req.ArtifactURL,
		ArtifactName:  req.ArtifactName,
		SenderName:    req.SenderName,
	}
}

// RenderSubject renders the email subject using the template
func (t *EmailTemplate) RenderSubject(data TemplateData) (string, error) {
	return renderText("subject", t.SubjectFormat, data)
}

// RenderPlainText renders the plain text email body
func (t *EmailTemplate) RenderPlainText(data TemplateData) (string, error) {
	return renderText("plaintext", t.PlainText, data)
}

// RenderHTML renders the HTML email body
func (t *EmailTemplate) RenderHTML(data TemplateData) (string, error) {
	tmpl, err := htmltemplate.New("html").Parse(t.HTML)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func renderText(name, tmplStr string, data TemplateData) (string, error) {
	tmpl, err := template.New(name).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
