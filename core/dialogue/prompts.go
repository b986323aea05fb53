package dialogue

import (
	_ "embed"
	"strings"
	"text/template"
)

//go:embed persona.tmpl
var personaPromptTemplate string

//go:embed decide.tmpl
var decidePromptTemplate string

//go:embed search.tmpl
var searchPromptTemplate string

var (
	personaPrompt = template.Must(template.New("persona").Parse(personaPromptTemplate))
	decidePrompt  = template.Must(template.New("decide").Parse(decidePromptTemplate))
	searchPrompt  = template.Must(template.New("search").Parse(searchPromptTemplate))
)

func renderPersona(maxReplyChars int) string {
	return render(personaPrompt, struct{ MaxReplyChars int }{maxReplyChars})
}

func renderDecide(query string) string {
	return render(decidePrompt, struct{ Query string }{query})
}

func renderSearch(query string, snippets []string) string {
	return render(searchPrompt, struct {
		Query   string
		Results string
	}{query, strings.Join(snippets, "\n")})
}

func render(tmpl *template.Template, data any) string {
	var b strings.Builder
	// Templates are parsed at init and only take plain fields.
	if err := tmpl.Execute(&b, data); err != nil {
		panic(err)
	}
	return strings.TrimRight(b.String(), "\n")
}
