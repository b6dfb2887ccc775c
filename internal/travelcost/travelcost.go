// Package travelcost reads origin-destination travel cost tables.
package travelcost

import (
	"encoding/csv"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// Record is one origin-destination cost. Time is in minutes, Distance in
// kilometers; either may be missing.
type Record struct {
	From     string   `csv:"from"`
	To       string   `csv:"to"`
	Time     *float64 `csv:"time"`
	Distance *float64 `csv:"distance,omitempty"`
}

// Table holds every record of one travel cost file.
type Table struct {
	Records []Record
}

// ReadCSV decodes a headered CSV with at least from, to and time columns.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		if err == io.EOF {
			return nil, eris.New("travelcost: empty file")
		}
		return nil, eris.Wrap(err, "travelcost: read header")
	}
	for _, col := range []string{"from", "to", "time"} {
		if !slices.Contains(dec.Header(), col) {
			return nil, eris.Errorf("travelcost: missing column %q", col)
		}
	}

	var t Table
	for {
		var rec Record
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "travelcost: decode row")
		}
		rec.From = strings.TrimSpace(rec.From)
		rec.To = strings.TrimSpace(rec.To)
		t.Records = append(t.Records, rec)
	}
	return &t, nil
}

// LoadFile reads a travel cost CSV from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "travelcost: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f)
}

// Origins returns the distinct origin ids in sorted order.
func (t *Table) Origins() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Records {
		if _, ok := seen[r.From]; ok {
			continue
		}
		seen[r.From] = struct{}{}
		out = append(out, r.From)
	}
	slices.Sort(out)
	return out
}

// ForOrigin returns destination times from origin. Rows without a time are
// left out, as are repeated destinations after the first.
func (t *Table) ForOrigin(origin string) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range t.Records {
		if r.From != origin || r.Time == nil {
			continue
		}
		if _, dup := out[r.To]; dup {
			continue
		}
		out[r.To] = *r.Time
	}
	return out
}
