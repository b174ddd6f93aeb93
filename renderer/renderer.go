// Package renderer turns reconciliation and capital gains results into
// markdown reports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templatesFS embed.FS

// templates holds the report templates, by file name.
var templates, _ = fs.Sub(templatesFS, "templates")

// GainsRenderOptions holds configuration for rendering a gains report.
type GainsRenderOptions struct {
	SkipRecords bool // Do not render the per lot records of each tax year.
}

// RenderReconciliation renders a Reconciliation to a markdown string.
func RenderReconciliation(r *Reconciliation) string {
	partials := map[string]string{
		"reconciliation_title":    "reconciliation_title.md",
		"reconciliation_pairs":    "reconciliation_pairs.md",
		"reconciliation_external": "reconciliation_external.md",
		"reconciliation_gst":      "",
	}
	if r.GST != nil {
		partials["reconciliation_gst"] = "reconciliation_gst.md"
	}
	return renderTemplate("reconciliation", "reconciliation.md", partials, r)
}

// RenderGains renders a Gains report to a markdown string.
func RenderGains(g *Gains, opts GainsRenderOptions) string {
	partials := map[string]string{
		"gains_title":   "gains_title.md",
		"gains_summary": "gains_summary.md",
		"gains_records": "gains_records.md",
		"gains_errors":  "gains_errors.md",
	}
	if opts.SkipRecords {
		// An empty file name results in an empty template.
		partials["gains_records"] = ""
	}
	return renderTemplate("gains", "gains.md", partials, g)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			content, err = fs.ReadFile(templates, file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
