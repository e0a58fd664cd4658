package record

import (
	"encoding/json"
	"fmt"
	"maps"
)

type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Change is an update pair, encoded as [before, after].
type Change struct {
	Before Record
	After  Record
}

func (c Change) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Record{c.Before, c.After})
}

func (c *Change) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode change: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode change: expected pair, got %d elements", len(pair))
	}
	before, err := Decode(pair[0])
	if err != nil {
		return err
	}
	after, err := Decode(pair[1])
	if err != nil {
		return err
	}
	c.Before, c.After = before, after
	return nil
}

// Records maps record ids to record values.
type Records map[string]Record

func (r *Records) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}
	out := make(Records, len(raw))
	for id, item := range raw {
		rec, err := Decode(item)
		if err != nil {
			return err
		}
		out[id] = rec
	}
	*r = out
	return nil
}

// Diff is a History Entry: a set of record mutations. It is both the store's
// change notification and the unit sent over the wire.
type Diff struct {
	Added   Records           `json:"added"`
	Updated map[string]Change `json:"updated"`
	Removed Records           `json:"removed"`
	Source  Source            `json:"source"`
}

func NewDiff(source Source) Diff {
	return Diff{
		Added:   Records{},
		Updated: map[string]Change{},
		Removed: Records{},
		Source:  source,
	}
}

func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

func (d *Diff) Add(r Record) {
	d.ensure()
	d.Added[r.RecordID()] = r
}

func (d *Diff) Update(before, after Record) {
	d.ensure()
	d.Updated[after.RecordID()] = Change{Before: before, After: after}
}

func (d *Diff) Remove(r Record) {
	d.ensure()
	d.Removed[r.RecordID()] = r
}

func (d *Diff) ensure() {
	if d.Added == nil {
		d.Added = Records{}
	}
	if d.Updated == nil {
		d.Updated = map[string]Change{}
	}
	if d.Removed == nil {
		d.Removed = Records{}
	}
}

// Merge folds other into d by union of the three maps; other wins on
// conflicting ids.
func (d *Diff) Merge(other Diff) {
	d.ensure()
	maps.Copy(d.Added, other.Added)
	maps.Copy(d.Updated, other.Updated)
	maps.Copy(d.Removed, other.Removed)
}

// Compose returns the union of diffs, tagged with source.
func Compose(source Source, diffs ...Diff) Diff {
	out := NewDiff(source)
	for _, d := range diffs {
		out.Merge(d)
	}
	return out
}
