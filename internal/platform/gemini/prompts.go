package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Template names
const (
	cardsPrompt     = "cards.tmpl"
	summaryPrompt   = "summary.tmpl"
	studyPlanPrompt = "study_plan.tmpl"
	tutorPrompt     = "tutor.tmpl"
)

// promptData is the data passed to the prompt templates.
type promptData struct {
	Text     string
	Goal     string
	Days     int
	MaxCards int
}

func renderPrompt(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}
