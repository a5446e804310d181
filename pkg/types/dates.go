package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange bounds the publication date filter. Either bound may be nil.
type DateRange struct {
	StartDate *time.Time
	EndDate   *time.Time
}

type dateRangeJson struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

func (d DateRange) IsEmpty() bool {
	return d.StartDate == nil && d.EndDate == nil
}

// Copy returns a range that shares no pointers with d.
func (d DateRange) Copy() DateRange {
	ret := DateRange{}
	if d.StartDate != nil {
		t := *d.StartDate
		ret.StartDate = &t
	}
	if d.EndDate != nil {
		t := *d.EndDate
		ret.EndDate = &t
	}
	return ret
}

// Bounds returns the range as the two element item list used by the search
// backend, nil meaning an open bound.
func (d DateRange) Bounds() []*string {
	return []*string{FormatDate(d.StartDate), FormatDate(d.EndDate)}
}

func (d DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJson{
		StartDate: FormatDate(d.StartDate),
		EndDate:   FormatDate(d.EndDate),
	})
}

func (d *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJson
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.EndDate)
	if err != nil {
		return err
	}
	d.StartDate = start
	d.EndDate = end
	return nil
}

func (d DateRange) String() string {
	s, e := "null", "null"
	if d.StartDate != nil {
		s = d.StartDate.Format(DateLayout)
	}
	if d.EndDate != nil {
		e = d.EndDate.Format(DateLayout)
	}
	return s + ".." + e
}

func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// ParseDate parses an optional date bound. Empty strings and "null" are an open bound.
func ParseDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*value)
	if v == "" || v == "null" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", v, err)
	}
	return &t, nil
}

// MustDate is a helper for literals in tests and fixtures.
func MustDate(value string) *time.Time {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		panic(err)
	}
	return &t
}
