package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AriannaStory/CloseNCElections/internal/contest"
	"github.com/AriannaStory/CloseNCElections/internal/rank"
)

type names map[string]string

func (n names) DisplayName(id string) string {
	if s, ok := n[id]; ok {
		return s
	}
	return "Statewide"
}

func grp(name, jurisdiction string, cands ...contest.CandidateResult) contest.Group {
	for i := range cands {
		cands[i].ContestName = name
		cands[i].JurisdictionID = jurisdiction
		cands[i].TypeCode = "CTY"
	}
	return contest.Group{Key: contest.Key{Name: name, JurisdictionID: jurisdiction}, Candidates: cands}
}

func cand(name, party string, votes int, pct float64) contest.CandidateResult {
	return contest.CandidateResult{Name: name, Party: party, Votes: votes, Pct: pct}
}

func sampleContests() []rank.Contest {
	return rank.Rank([]contest.Group{
		grp("SHERIFF", "92",
			cand("Ann Able", "DEM", 600, 0.6),
			cand("Bob Baker", "REP", 400, 0.4)),
		grp("SOIL AND WATER", "92",
			cand("Solo", "UNA", 1000, 1.0)),
		grp("BOARD OF EDUCATION", "92",
			cand("C1", "DEM", 3000, 0.30),
			cand("C2", "REP", 2500, 0.25),
			cand("C3", "LIB", 1500, 0.15),
			cand("C4", "GRE", 1000, 0.10),
			cand("C5", "UNA", 900, 0.09),
			cand("C6", "DEM", 700, 0.07),
			cand("C7", "REP", 400, 0.04)),
	}, rank.Options{Method: rank.Percentage}, names{"92": "Wake"})
}

var (
	electionDay = time.Date(2024, 11, 5, 0, 0, 0, 0, time.Local)
	updatedAt   = time.Date(2024, 11, 6, 1, 2, 3, 0, time.Local)
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("HTML")
	require.NoError(t, err)
	assert.Equal(t, HTML, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrInvalidOutputFormat)
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, nil, Metadata{}, Format("xml"))
	assert.True(t, errors.Is(err, ErrInvalidOutputFormat))
}

func TestEnsureExtension(t *testing.T) {
	assert.Equal(t, "results.html", EnsureExtension("results", HTML))
	assert.Equal(t, "results.html", EnsureExtension("results.html", HTML))
	assert.Equal(t, "results.html.csv", EnsureExtension("results.html", CSV))
	assert.Equal(t, "out/report.csv", EnsureExtension("out/report.csv", CSV))
}

func TestCSVLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleContests(), Metadata{DataTimestamp: updatedAt}, CSV))

	lines := strings.SplitN(buf.String(), "\n", 2)
	assert.Equal(t, "# Data last updated on: 2024-11-06 01:02:03", lines[0])

	r := csv.NewReader(strings.NewReader(lines[1]))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	header := rows[0]
	assert.Len(t, header, 4+4*CandidateSlots+2)
	assert.Equal(t, []string{"contest", "total_votes", "pct_margin_between_top_two", "vote_margin_between_top_two"}, header[:4])
	assert.Equal(t, []string{"candidate_1", "candidate_1_party", "candidate_1_votes", "candidate_1_pct"}, header[4:8])
	assert.Equal(t, []string{"other_votes", "other_vote_pct"}, header[len(header)-2:])

	board := rows[1]
	assert.Equal(t, "BOARD OF EDUCATION (Wake)", board[0])
	assert.Equal(t, "10000", board[1])
	assert.Equal(t, "5.00%", board[2])
	assert.Equal(t, "500", board[3])
	assert.Equal(t, "1100", board[len(board)-2])
	assert.Equal(t, "11.00%", board[len(board)-1])

	sheriff := rows[2]
	assert.Equal(t, "SHERIFF (Wake)", sheriff[0])
	assert.Equal(t, "20.00%", sheriff[2])
	assert.Equal(t, "200", sheriff[3])
	assert.Equal(t, []string{"Ann Able", "DEM", "600", "60.00%"}, sheriff[4:8])
	assert.Equal(t, []string{"", "", "", ""}, sheriff[12:16])
	assert.Equal(t, []string{"", ""}, sheriff[len(sheriff)-2:])

	solo := rows[3]
	assert.Equal(t, "SOIL AND WATER (Wake)", solo[0])
	assert.Equal(t, "", solo[2])
	assert.Equal(t, "1000", solo[3])
}

func TestCSVRoundTrip(t *testing.T) {
	contests := sampleContests()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, contests, Metadata{DataTimestamp: updatedAt}, CSV))

	r := csv.NewReader(&buf)
	r.Comment = '#'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	rows = rows[1:]
	require.Len(t, rows, len(contests))

	for i, c := range contests {
		row := rows[i]
		for slot := 0; slot < CandidateSlots && slot < len(c.Candidates); slot++ {
			base := 4 + slot*4
			votes, err := strconv.Atoi(row[base+2])
			require.NoError(t, err)
			assert.Equal(t, c.Candidates[slot].Votes, votes)

			p, err := strconv.ParseFloat(strings.TrimSuffix(row[base+3], "%"), 64)
			require.NoError(t, err)
			assert.InDelta(t, c.Candidates[slot].Pct*100, p, 0.005)
		}
	}
}

func TestHTMLContents(t *testing.T) {
	contests := sampleContests()
	meta := Metadata{
		Election:      electionDay,
		DataTimestamp: updatedAt,
		Filters:       []string{"Method used to determine closest contests: Percentage"},
		Method:        rank.Percentage,
		Summary:       rank.Summarize(contests, nil),
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, contests, meta, HTML))
	out := buf.String()

	assert.Contains(t, out, "Closest Election Results for the 11-05-2024 Election")
	assert.Contains(t, out, "Data last updated on: 11-06-2024 at 01:02:03")
	assert.Contains(t, out, "<li>Method used to determine closest contests: Percentage</li>")
	assert.Contains(t, out, "Number of Contests by Type:")
	assert.Contains(t, out, "<th>CTY</th>")
	assert.Contains(t, out, "<td>3</td>")
	assert.Contains(t, out, "<h2>Sheriff (Wake)</h2>")
	assert.Contains(t, out, "Margin between top two candidates: 20.00% (200 votes)")
	assert.Contains(t, out, "<h2>Board of Education (Wake)</h2>")
	assert.Contains(t, out, "<td>Ann Able</td><td>DEM</td><td>600</td><td>60.00%</td>")
	assert.Contains(t, out, "<strong>10,000</strong>")
	assert.Contains(t, out, "Uncontested contest")
	assert.NotContains(t, out, "Toggle Debug Info")
}

func TestHTMLVotesMethodMarginLine(t *testing.T) {
	contests := sampleContests()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, contests, Metadata{Method: rank.Votes}, HTML))
	assert.Contains(t, buf.String(), "Margin between top two candidates: 200 votes (20.00%)")
}

func TestHTMLSingleContestHasNoSummary(t *testing.T) {
	contests := sampleContests()[:1]
	meta := Metadata{Summary: []rank.TypeCount{{Code: "CTY", Label: "County", Count: 1}}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, contests, meta, HTML))
	assert.NotContains(t, buf.String(), "Number of Contests by Type:")
}

func TestHTMLDebugEscapesRawRecords(t *testing.T) {
	g := grp("MAYOR", "92", cand("A", "DEM", 10, 0.5), cand("B", "REP", 10, 0.5))
	g.Candidates[0].Raw = []byte(`{"bnm":"<script>alert(1)</script>","vct":"10"}`)
	contests := rank.Rank([]contest.Group{g}, rank.Options{Method: rank.Percentage}, nil)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, contests, Metadata{Debug: true}, HTML))
	out := buf.String()

	assert.Contains(t, out, "Toggle Debug Info")
	assert.Contains(t, out, `id="debug-content-0"`)
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "alert(1)")
	assert.Contains(t, out, "&#34;bnm&#34;: &#34;B&#34;")
}

func TestHTMLEscapesNames(t *testing.T) {
	g := grp("MAYOR", "0", cand("Smith & <Sons>", "DEM", 10, 1.0))
	contests := rank.Rank([]contest.Group{g}, rank.Options{Method: rank.Percentage}, nil)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, contests, Metadata{}, HTML))
	assert.Contains(t, buf.String(), "Smith &amp; &lt;Sons&gt;")
}

func TestDescribeFilters(t *testing.T) {
	m := 2.5
	got := DescribeFilters(FilterSet{
		Counties:     []string{"Wake", "Durham"},
		ContestTypes: []string{"Federal"},
		Margin:       &m,
		Method:       rank.Percentage,
		Limit:        100,
	})
	assert.Equal(t, []string{
		"Only showing results for counties: Wake, Durham",
		"Contests of type: Federal",
		"Margin between top two candidates is less than or equal to 2.5%",
		"Limiting number of contests displayed to 100",
		"Method used to determine closest contests: Percentage",
	}, got)

	v := 1500.0
	got = DescribeFilters(FilterSet{Margin: &v, Method: rank.Votes})
	assert.Equal(t, []string{
		"Margin between top two candidates is less than or equal to 1,500 votes",
		"Method used to determine closest contests: Votes",
	}, got)
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "results.html")

	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
