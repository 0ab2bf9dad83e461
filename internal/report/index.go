package report

import (
	"bytes"
	"fmt"
	"html/template"
	"path"
	"time"

	"github.com/nao1215/sitemirror/internal/model"
)

// IndexFile is the archive index name at the root of the output directory.
const IndexFile = "index.html"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Archive of {{.BaseURL}}</title>
</head>
<body>
<h1>Archive of {{.BaseURL}}</h1>
<p>Archived on {{.Archived}}.</p>
<p>This is an offline copy. Links that leave the archived site are not rewritten and point to the live web.</p>
<ul>
{{- range .Pages}}
<li><a href="{{.Path}}">{{.URL}}</a></li>
{{- end}}
</ul>
</body>
</html>
`))

type indexPage struct {
	URL  string
	Path string
}

// IndexWriter writes the archive index of a direct-mode mirror.
type IndexWriter struct {
	out Writer
}

// NewIndexWriter creates an IndexWriter writing through out.
func NewIndexWriter(out Writer) *IndexWriter {
	return &IndexWriter{out: out}
}

// Write lists every saved page of run, linked to its local path.
func (w *IndexWriter) Write(run *model.Run) error {
	archived := run.FinishedAt
	if archived.IsZero() {
		archived = time.Now()
	}

	var pages []indexPage
	for _, f := range run.State.Files() {
		if f.Category != model.CategoryPage {
			continue
		}
		// Local paths are slash-separated relative paths; keep them that way
		// in hrefs regardless of the OS.
		pages = append(pages, indexPage{URL: f.URL, Path: path.Clean(f.Path)})
	}

	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, struct {
		BaseURL  string
		Archived string
		Pages    []indexPage
	}{
		BaseURL:  run.Target.BaseURL,
		Archived: archived.UTC().Format(time.RFC1123),
		Pages:    pages,
	})
	if err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	return w.out.Write(IndexFile, buf.Bytes())
}
