package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/AriannaStory/CloseNCElections/internal/rank"
)

// FilterSet is what a run was restricted to, in display form.
type FilterSet struct {
	Counties     []string
	ContestTypes []string
	Margin       *float64
	Method       rank.Method
	Limit        int
}

// DescribeFilters renders the filter bullets shown at the top of a report.
func DescribeFilters(f FilterSet) []string {
	var out []string
	if len(f.Counties) > 0 {
		out = append(out, "Only showing results for counties: "+strings.Join(f.Counties, ", "))
	}
	if len(f.ContestTypes) > 0 {
		out = append(out, "Contests of type: "+strings.Join(f.ContestTypes, ", "))
	}
	if f.Margin != nil {
		if f.Method == rank.Votes {
			out = append(out, fmt.Sprintf("Margin between top two candidates is less than or equal to %s votes",
				humanize.Comma(int64(*f.Margin))))
		} else {
			out = append(out, fmt.Sprintf("Margin between top two candidates is less than or equal to %s%%",
				strconv.FormatFloat(*f.Margin, 'f', -1, 64)))
		}
	}
	if f.Limit > 0 {
		out = append(out, fmt.Sprintf("Limiting number of contests displayed to %d", f.Limit))
	}
	if f.Method != "" {
		m := string(f.Method)
		out = append(out, "Method used to determine closest contests: "+strings.ToUpper(m[:1])+m[1:])
	}
	return out
}
