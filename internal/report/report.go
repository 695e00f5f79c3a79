package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"dbcheck/internal/core"
)

// WriteText prints one line per check followed by a summary line.
func WriteText(w io.Writer, run *core.Run) error {
	for _, res := range run.Results {
		line := fmt.Sprintf("%-5s %s (%s)", strings.ToUpper(string(res.Status)), res.Name, res.Duration.Round(time.Microsecond))
		if res.Message != "" {
			line += ": " + res.Message
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, Summary(run))
	return err
}

// Summary is the one-line outcome of a run, e.g. "6 checks: 5 passed, 1 failed, 0 errors in 12ms".
func Summary(run *core.Run) string {
	return fmt.Sprintf("%d checks: %d passed, %d failed, %d errors in %s",
		len(run.Results), run.Count(core.StatusPass), run.Count(core.StatusFail), run.Count(core.StatusError),
		run.Duration.Round(time.Millisecond))
}

func WriteJSON(w io.Writer, run *core.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper":   func(s core.Status) string { return strings.ToUpper(string(s)) },
	"summary": Summary,
	"round":   func(d time.Duration) time.Duration { return d.Round(time.Microsecond) },
	"value": func(v any) string {
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>dbcheck report - {{.Suite}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
.pass { background: #e6ffed; }
.fail { background: #ffeef0; }
.error { background: #fff5b1; }
code { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>dbcheck report</h1>
<p>Run <code>{{.ID}}</code>, suite <b>{{.Suite}}</b> on {{.Target.Driver}}{{with .Target.Server}} {{.}}{{end}}{{with .Target.Database}}/{{.}}{{end}}, started {{.StartedAt.Format "2006-01-02 15:04:05"}}</p>
<p>{{summary .}}</p>
<table>
<tr><th>Result</th><th>Check</th><th>Kind</th><th>SQL</th><th>Rows</th><th>Expected</th><th>Actual</th><th>Message</th><th>Duration</th></tr>
{{range .Results}}<tr class="{{.Status}}" id="{{.Name}}"><td>{{upper .Status}}</td><td>{{.Name}}</td><td>{{.Kind}}</td><td><code>{{.SQL}}</code></td><td>{{.RowCount}}</td><td>{{value .Expected}}</td><td>{{value .Actual}}</td><td>{{.Message}}</td><td>{{round .Duration}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// WriteHTML renders a standalone HTML page for run.
func WriteHTML(w io.Writer, run *core.Run) error {
	return htmlTemplate.Execute(w, run)
}
