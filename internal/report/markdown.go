package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitemirror/internal/model"
)

// maxListedPages keeps the summary readable for large mirrors.
const maxListedPages = 50

// MarkdownWriter summarizes a manifest as GitHub-flavored Markdown.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter writing to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the summary of m.
func (w *MarkdownWriter) Write(m *model.Manifest) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Mirror Report")
	md.PlainText("")

	rows := [][]string{
		{"Site", "`" + m.BaseURL + "`"},
		{"Mode", m.Mode.String()},
	}
	if m.Mode == model.ModeProxy {
		rows = append(rows, []string{"Proxy Base", "`" + m.ProxyBase + "`"})
	}
	rows = append(rows,
		[]string{"Visited URLs", strconv.Itoa(len(m.ScrapedPages))},
		[]string{"Resources", strconv.Itoa(m.Total())},
	)
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	w.writeResources(md, m)
	w.writePages(md, m)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by sitemirror*")

	return md.Build()
}

func (w *MarkdownWriter) writeResources(md *markdown.Markdown, m *model.Manifest) {
	md.H2("Resources")
	md.PlainText("")

	counts := []struct {
		label string
		n     int
	}{
		{"Scripts", len(m.JSFiles)},
		{"Stylesheets", len(m.CSSFiles)},
		{"Images", len(m.ImageFiles)},
		{"Other", len(m.OtherResources)},
	}

	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.label, strconv.Itoa(c.n)})
	}
	md.Table(markdown.TableSet{Header: []string{"Category", "Count"}, Rows: rows})
	md.PlainText("")

	if m.Total() == 0 {
		md.Note("No resources were captured.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Resources by Category"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		if c.n > 0 {
			chart.LabelAndIntValue(c.label, uint64(c.n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, m *model.Manifest) {
	md.H2("Visited URLs")
	md.PlainText("")

	if len(m.ScrapedPages) == 0 {
		md.Warningf("The crawl did not visit any URL.")
		md.PlainText("")
		return
	}

	listed := m.ScrapedPages
	if len(listed) > maxListedPages {
		listed = listed[:maxListedPages]
	}
	md.BulletList(listed...)
	md.PlainText("")
	if rest := len(m.ScrapedPages) - len(listed); rest > 0 {
		md.PlainTextf("...and %d more.", rest)
		md.PlainText("")
	}
}
