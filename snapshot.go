package pathcond

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Snapshot is the persisted form of a Constraints.
type Snapshot struct {
	Constraints []string `yaml:"constraints"`
	Concolic    int      `yaml:"concolic,omitempty"`
}

// Snapshot returns the persisted form of c.
func (c *Constraints) Snapshot() *Snapshot {
	snap := &Snapshot{
		Constraints: make([]string, len(c.exprs)),
		Concolic:    c.concolic,
	}
	for i, e := range c.exprs {
		snap.Constraints[i] = e.String()
	}
	return snap
}

// Restore rebuilds the constraints held by snap in a.
// Facts are restored as written, without simplification.
func Restore(a *Arena, snap *Snapshot) (*Constraints, error) {
	exprs := make([]*Expr, len(snap.Constraints))
	for i, s := range snap.Constraints {
		e, err := ParseExpr(a, s)
		if err != nil {
			return nil, errors.Wrapf(err, "constraint %d", i)
		} else if e.width != WidthBool {
			return nil, errors.Errorf("constraint %d: expected boolean, got width %d", i, e.width)
		}
		exprs[i] = e
	}

	if snap.Concolic < 0 || snap.Concolic > len(exprs) {
		return nil, errors.Errorf("concolic count out of range: %d (len=%d)", snap.Concolic, len(exprs))
	}

	c := NewConstraintsFrom(a, exprs)
	c.concolic = snap.Concolic
	return c, nil
}

// WriteSnapshot encodes snap to w as YAML.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	return errors.Wrap(enc.Close(), "encode snapshot")
}

// ReadSnapshot decodes a YAML snapshot from r.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return &snap, nil
}
