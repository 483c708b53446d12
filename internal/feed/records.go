package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ElectionRecord is one entry of the elections index, newest first.
type ElectionRecord struct {
	Date string `json:"edt"` // MM/DD/YYYY
}

type CountyRecord struct {
	ID   ID     `json:"cid"`
	Name string `json:"cnm"`
}

// OfficeRecord maps a contest-type code to its description.
type OfficeRecord struct {
	Code        string `json:"lbl"`
	Description string `json:"des"`
}

// ResultRecord is one candidate line in a results shard. Raw keeps the
// record exactly as published.
type ResultRecord struct {
	ContestName    string `json:"cnm"`
	Candidate      string `json:"bnm"`
	Party          string `json:"pty"`
	TypeCode       string `json:"ogl"`
	JurisdictionID ID     `json:"cid"`
	Votes          Count  `json:"vct"`
	Pct            Ratio  `json:"pct"`

	Raw json.RawMessage `json:"-"`
}

func (r *ResultRecord) UnmarshalJSON(data []byte) error {
	type plain ResultRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ResultRecord(p)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ID is an opaque identifier published either as a string or a number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := scalar(data)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(s)
	return nil
}

// Count is a non-negative vote count published either as a string or a number.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	s, err := scalar(data)
	if err != nil {
		return fmt.Errorf("vote count: %w", err)
	}
	if s == "" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return fmt.Errorf("vote count %q: %w", s, err)
	}
	if n < 0 {
		return fmt.Errorf("vote count %d is negative", n)
	}
	*c = Count(n)
	return nil
}

// Ratio is a vote share in [0,1] published either as a string or a number.
type Ratio float64

func (r *Ratio) UnmarshalJSON(data []byte) error {
	s, err := scalar(data)
	if err != nil {
		return fmt.Errorf("vote share: %w", err)
	}
	if s == "" {
		*r = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("vote share %q: %w", s, err)
	}
	*r = Ratio(f)
	return nil
}

// scalar returns a JSON string or number as text. null decodes to "".
func scalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
