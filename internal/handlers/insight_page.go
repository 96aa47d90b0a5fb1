package handlers

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"moonscribe/internal/repository"
)

// InsightRenderer renders insight markdown as a standalone HTML page.
// Raw HTML in the markdown is dropped; shared pages are public.
type InsightRenderer struct {
	parser   goldmark.Markdown
	template *template.Template
}

// insightPageData holds template data for rendered insight pages.
type insightPageData struct {
	Title         string
	OriginalQuery string
	ProjectName   string
	Tags          []string
	Sources       []repository.InsightSource
	Updated       string
	Content       template.HTML
}

var insightPage = template.Must(template.New("insight").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}} · MoonScribe</title>
  <style>
    :root {
      color-scheme: dark;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 900px;
      line-height: 1.7;
      background: #050b18;
      color: #e4ecff;
    }
    header {
      margin-bottom: 2rem;
      border-bottom: 1px solid rgba(148, 163, 184, 0.2);
      padding-bottom: 1.5rem;
    }
    h1 {
      margin-top: 0;
      color: #fff;
      font-size: 2rem;
    }
    article {
      background: rgba(12, 19, 35, 0.85);
      border: 1px solid rgba(99, 102, 241, 0.2);
      border-radius: 16px;
      padding: 2rem;
    }
    pre {
      background: #0f172a;
      padding: 1rem;
      overflow-x: auto;
      border-radius: 10px;
    }
    code {
      font-family: 'SFMono-Regular', Consolas, 'Liberation Mono', Menlo, monospace;
      background: rgba(99, 102, 241, 0.18);
      padding: 2px 5px;
      border-radius: 6px;
    }
    pre code {
      background: transparent;
      padding: 0;
    }
    a {
      color: #60a5fa;
    }
    .meta, .sources {
      color: #94a3b8;
      font-size: 0.95rem;
    }
    .tag {
      display: inline-block;
      margin-right: 0.4rem;
      padding: 0 0.5rem;
      border-radius: 999px;
      background: rgba(96, 165, 250, 0.15);
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    {{if .OriginalQuery}}<p class="meta">Question: {{.OriginalQuery}}</p>{{end}}
    <p class="meta">{{if .ProjectName}}{{.ProjectName}} &middot; {{end}}Updated {{.Updated}}</p>
    {{if .Tags}}<p>{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</p>{{end}}
  </header>
  <article>{{.Content}}</article>
  {{if .Sources}}
  <section class="sources">
    <h2>Sources</h2>
    <ol>{{range .Sources}}<li>{{.Title}}{{if .Type}} ({{.Type}}){{end}}</li>{{end}}</ol>
  </section>
  {{end}}
</body>
</html>`))

// NewInsightRenderer creates a renderer with GitHub-flavoured markdown.
func NewInsightRenderer() *InsightRenderer {
	return &InsightRenderer{
		parser: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
				extension.Typographer,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		template: insightPage,
	}
}

// Render returns the full HTML page for in.
func (p *InsightRenderer) Render(in repository.Insight) ([]byte, error) {
	var body bytes.Buffer
	if err := p.parser.Convert([]byte(in.Content), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	data := insightPageData{
		Title:         in.Title,
		OriginalQuery: in.OriginalQuery,
		ProjectName:   in.ProjectName,
		Tags:          in.Tags,
		Sources:       in.Sources,
		Updated:       in.UpdatedAt.Format("2 Jan 2006"),
		Content:       template.HTML(body.String()),
	}
	if data.Title == "" {
		data.Title = "Insight"
	}

	var page bytes.Buffer
	if err := p.template.Execute(&page, data); err != nil {
		return nil, fmt.Errorf("execute insight template: %w", err)
	}
	return page.Bytes(), nil
}
