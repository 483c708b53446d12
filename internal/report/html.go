package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/AriannaStory/CloseNCElections/internal/contest"
	"github.com/AriannaStory/CloseNCElections/internal/rank"
)

type htmlCandidate struct {
	Name  string
	Party string
	Votes string
	Pct   string
}

type htmlContest struct {
	ID         string
	Heading    string
	Margin     string
	Candidates []htmlCandidate
	Total      string
	Debug      string
}

type htmlPage struct {
	Election string
	Updated  string
	Filters  []string
	Summary  []rank.TypeCount
	Contests []htmlContest
}

var pageTemplate = template.Must(template.New("report").Parse(pageHTML))

func renderHTML(w io.Writer, contests []rank.Contest, meta Metadata) error {
	page := htmlPage{
		Election: meta.Election.Format("01-02-2006"),
		Updated:  meta.DataTimestamp.Format("01-02-2006 at 15:04:05"),
		Filters:  meta.Filters,
	}
	if len(contests) > 1 {
		page.Summary = meta.Summary
	}

	for i, c := range contests {
		hc := htmlContest{
			ID:      fmt.Sprintf("debug-content-%d", i),
			Heading: contest.Title(c.DisplayName),
			Margin:  marginLine(c, meta.Method),
			Total:   humanize.Comma(int64(c.TotalVotes)),
		}
		for _, cand := range c.Candidates {
			hc.Candidates = append(hc.Candidates, htmlCandidate{
				Name:  cand.Name,
				Party: cand.Party,
				Votes: humanize.Comma(int64(cand.Votes)),
				Pct:   pct(cand.Pct),
			})
		}
		if meta.Debug {
			dump, err := debugDump(c.Records)
			if err != nil {
				return fmt.Errorf("formatting debug data for %s: %w", c.DisplayName, err)
			}
			hc.Debug = dump
		}
		page.Contests = append(page.Contests, hc)
	}

	return pageTemplate.Execute(w, page)
}

func marginLine(c rank.Contest, m rank.Method) string {
	if c.PctMargin == nil {
		return "Uncontested contest"
	}
	votes := humanize.Comma(int64(c.VoteMargin)) + " votes"
	if m == rank.Votes {
		return fmt.Sprintf("Margin between top two candidates: %s (%s)", votes, pct(*c.PctMargin))
	}
	return fmt.Sprintf("Margin between top two candidates: %s (%s)", pct(*c.PctMargin), votes)
}

// debugDump pretty-prints the merged feed lines as published.
func debugDump(records []contest.CandidateResult) (string, error) {
	raw := make([]any, 0, len(records))
	for _, r := range records {
		if len(r.Raw) > 0 {
			raw = append(raw, r.Raw)
			continue
		}
		raw = append(raw, map[string]any{
			"cnm": r.ContestName,
			"bnm": r.Name,
			"pty": r.Party,
			"ogl": r.TypeCode,
			"cid": r.JurisdictionID,
			"vct": r.Votes,
			"pct": r.Pct,
		})
	}
	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

const pageHTML = `<html>
<head>
    <title>Election Results</title>
    <style>
        body { font-family: Arial, sans-serif; }
        .contest { margin-bottom: 30px; }
        .contest h2 { margin-bottom: 10px; }
        .candidates { margin-left: 20px; }
        table { border-collapse: collapse; width: 100%; margin-top: 10px; table-layout: fixed; }
        th, td { text-align: left; padding: 8px; border: 1px solid #ddd; width: 25%; word-wrap: break-word; }
        tr:nth-child(even) { background-color: #f2f2f2; }
        th { background-color: #172c4a; color: white; }
        tfoot td { font-weight: bold; }
        .filters { margin-bottom: 20px; }
        .filters h3 { margin-bottom: 5px; }
        .filters ul { list-style-type: disc; margin-left: 20px; }
        .summary-table table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
        .summary-table th, .summary-table td { border: 1px solid #ddd; padding: 8px; text-align: center; }
        .summary-table th { background-color: #172c4a; color: white; }
        .debug-toggle { margin-top: 10px; }
        .debug-content { display: none; background-color: #f9f9f9; padding: 10px; border: 1px solid #ccc; white-space: pre-wrap; font-family: monospace; }
    </style>
    <script>
        function toggleDebug(id) {
            var content = document.getElementById(id);
            content.style.display = content.style.display === "block" ? "none" : "block";
        }
    </script>
</head>
<body>
    <h2>Closest Election Results for the {{.Election}} Election</h2>
    <p>Data last updated on: {{.Updated}}</p>
{{- if .Filters}}
    <div class="filters">
      <h3>Report generated for contests where:</h3>
      <ul>
{{- range .Filters}}
        <li>{{.}}</li>
{{- end}}
      </ul>
    </div>
{{- end}}
{{- if .Summary}}
    <div class="summary-table">
      <h3>Number of Contests by Type:</h3>
      <table>
        <tr>
{{- range .Summary}}
          <th>{{.Label}}</th>
{{- end}}
        </tr>
        <tr>
{{- range .Summary}}
          <td>{{.Count}}</td>
{{- end}}
        </tr>
      </table>
    </div>
{{- end}}
{{- range .Contests}}
<div class="contest">
  <h2>{{.Heading}}</h2>
  <p>{{.Margin}}</p>
  <div class="candidates">
    <table>
      <thead>
        <tr><th>Candidate</th><th>Party</th><th>Votes</th><th>Percentage</th></tr>
      </thead>
      <tbody>
{{- range .Candidates}}
        <tr><td>{{.Name}}</td><td>{{.Party}}</td><td>{{.Votes}}</td><td>{{.Pct}}</td></tr>
{{- end}}
      </tbody>
      <tfoot>
        <tr><td colspan="2" style="background-color: #9fbae1;"><strong>Total</strong></td><td><strong>{{.Total}}</strong></td><td><strong>100%</strong></td></tr>
      </tfoot>
    </table>
  </div>
{{- if .Debug}}
  <div class="debug-toggle">
    <button onclick="toggleDebug('{{.ID}}')">Toggle Debug Info</button>
  </div>
  <div id="{{.ID}}" class="debug-content">
    <pre>{{.Debug}}</pre>
  </div>
{{- end}}
</div>
{{- end}}
</body>
</html>
`
