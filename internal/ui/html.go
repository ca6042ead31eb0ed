package ui

import (
	"fmt"
	"html/template"
	"io"

	"github.com/bamsammich/tally/internal/merge"
	"github.com/bamsammich/tally/internal/summary"
)

// treeNode is the template view of one summary entry, with the size
// fallbacks already resolved.
type treeNode struct {
	Name      string
	Original  uint64
	Trimmed   uint64
	Collected uint64
	Dir       bool
	Children  []treeNode
}

const htmlReport = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Path}} size summary</title>
<style>
body { font-family: monospace; margin: 2em; }
ul { list-style: none; padding-left: 1.2em; }
li { margin: 2px 0; }
.dir > .name { font-weight: bold; }
.size { color: #555; margin-left: 0.6em; }
.totals, .legend { margin-bottom: 1em; }
</style>
</head>
<body>
<h1>{{.Path}}</h1>
<p class="totals">collected {{size .Totals.CollectedBytes}}
 &middot; original {{size .Totals.OriginalBytes}}
 &middot; uploaded {{size .Totals.UploadedBytes}}
{{- if .Totals.Throttled}} &middot; throttled{{end}}</p>
<p class="legend">per entry: original / trimmed / collected</p>
<ul class="tree">
{{template "node" .Root}}
</ul>
</body>
</html>
{{define "node"}}<li{{if .Dir}} class="dir"{{end}}><span class="name">{{.Name}}</span><span class="size">{{size .Original}} / {{size .Trimmed}} / {{size .Collected}}</span>{{if .Children}}
<ul>
{{range .Children}}{{template "node" .}}
{{end}}</ul>
{{end}}</li>{{end}}`

var reportTemplate = template.Must(
	template.New("report").Funcs(template.FuncMap{"size": FormatSize}).Parse(htmlReport))

// WriteHTML renders the merged tree as a standalone HTML page.
func WriteHTML(w io.Writer, path string, result merge.Result) error {
	data := struct {
		Path   string
		Totals merge.Totals
		Root   treeNode
	}{
		Path:   path,
		Totals: merge.TotalsOf(result),
		Root:   viewNode(path, result.Root),
	}
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func viewNode(name string, n *summary.Node) treeNode {
	out := treeNode{
		Name:      name,
		Original:  n.Original,
		Trimmed:   n.TrimmedSize(),
		Collected: n.CollectedSize(),
		Dir:       n.IsDir(),
	}
	for _, child := range n.ChildNames() {
		out.Children = append(out.Children, viewNode(child, n.Children[child]))
	}
	return out
}
