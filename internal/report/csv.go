package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/AriannaStory/CloseNCElections/internal/rank"
)

// CandidateSlots is the number of candidates given their own CSV columns;
// the rest are folded into other_votes / other_vote_pct.
const CandidateSlots = 5

const timestampLayout = "2006-01-02 15:04:05"

// CSVHeader returns the fixed column layout.
func CSVHeader() []string {
	header := []string{
		"contest",
		"total_votes",
		"pct_margin_between_top_two",
		"vote_margin_between_top_two",
	}
	for i := 1; i <= CandidateSlots; i++ {
		header = append(header,
			fmt.Sprintf("candidate_%d", i),
			fmt.Sprintf("candidate_%d_party", i),
			fmt.Sprintf("candidate_%d_votes", i),
			fmt.Sprintf("candidate_%d_pct", i),
		)
	}
	return append(header, "other_votes", "other_vote_pct")
}

func csvRow(c rank.Contest) []string {
	margin := ""
	if c.PctMargin != nil {
		margin = pct(*c.PctMargin)
	}
	row := []string{
		c.DisplayName,
		strconv.Itoa(c.TotalVotes),
		margin,
		strconv.Itoa(c.VoteMargin),
	}

	for i := 0; i < CandidateSlots; i++ {
		if i >= len(c.Candidates) {
			row = append(row, "", "", "", "")
			continue
		}
		cand := c.Candidates[i]
		row = append(row, cand.Name, cand.Party, strconv.Itoa(cand.Votes), pct(cand.Pct))
	}

	if len(c.Candidates) <= CandidateSlots {
		return append(row, "", "")
	}
	var (
		otherVotes int
		otherPct   float64
	)
	for _, cand := range c.Candidates[CandidateSlots:] {
		otherVotes += cand.Votes
		otherPct += cand.Pct
	}
	return append(row, strconv.Itoa(otherVotes), pct(otherPct))
}

func renderCSV(w io.Writer, contests []rank.Contest, meta Metadata) error {
	if _, err := fmt.Fprintf(w, "# Data last updated on: %s\n", meta.DataTimestamp.Format(timestampLayout)); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader()); err != nil {
		return err
	}
	for _, c := range contests {
		if err := cw.Write(csvRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
