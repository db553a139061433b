package report

import (
	"bytes"
	"html/template"
)

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { font-family: 'Noto Sans CJK JP', 'Noto Sans Bengali', sans-serif; font-size: 12px; }
.page { page-break-after: always; }
.pictogram-img { width: 180px; height: 180px; vertical-align: middle; margin-right: 20px; flex-shrink: 0; }
li { list-style: none; margin-bottom: 25px; display: flex; align-items: center; }
h1, h2 { border-bottom: 1px solid #eee; padding-bottom: 10px; margin-bottom: 15px; }
p { margin-bottom: 10px; line-height: 1.6; }
</style>
</head>
<body>
<div class="{{if .SuggestionPages}}page{{end}}">
<h1>{{.Labels.Title}}</h1>
<p><strong>{{.Labels.Task}}</strong> {{.Task}}</p>
<hr>
<h2>{{.Name}}</h2>
<p>{{.Description}}</p>
<h2>{{.Labels.Measures}}</h2>
<ul>
{{- range .Measures}}
<li>{{if .Pictogram}}<img class="pictogram-img" src="{{.Pictogram}}" alt="">{{end}}<span>{{.Text}}</span></li>
{{- end}}
</ul>
</div>
{{- range .SuggestionPages}}
<div class="{{if not .Last}}page{{end}}">
<h2>{{$.Labels.Suggestions}}</h2>
<ul>
{{- range .Items}}
<li>{{if .Pictogram}}<img class="pictogram-img" src="{{.Pictogram}}" alt="">{{end}}<span>{{.Text}}</span></li>
{{- end}}
</ul>
</div>
{{- end}}
</body>
</html>
`))

var footerTmpl = template.Must(template.New("footer").Parse(`<html><body>
<div style="font-size: 8px; width: 100%; color: #888; padding: 0 40px; display: flex; justify-content: space-between;">
<div>{{.}}</div>
</div>
</body></html>
`))

// Item is one listed measure or suggestion.
type Item struct {
	Text      string
	Pictogram string
}

// Page is one page of suggestions.
type Page struct {
	Items []Item
	Last  bool
}

// Layout is everything the report template renders.
type Layout struct {
	Labels          Labels
	Task            string
	Name            string
	Description     string
	Measures        []Item
	SuggestionPages []Page
}

func renderHTML(l *Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderFooter() ([]byte, error) {
	var buf bytes.Buffer
	if err := footerTmpl.Execute(&buf, footerText); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
