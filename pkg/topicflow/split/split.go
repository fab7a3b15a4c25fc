// Package split assigns records to named partitions deterministically.
package split

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"sort"

	"github.com/goccy/go-json"

	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
)

// Label names a partition. Unset means no partitioning was requested.
type Label string

// Unset is the label of records read without a schema.
const Unset Label = ""

// Common partition names.
const (
	Training   Label = "training"
	Validation Label = "validation"
	Testing    Label = "testing"
)

// MarshalJSON encodes Unset as null.
func (l Label) MarshalJSON() ([]byte, error) {
	if l == Unset {
		return []byte("null"), nil
	}
	return json.Marshal(string(l))
}

// UnmarshalJSON accepts a string or null.
func (l *Label) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = Unset
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = Label(s)
	return nil
}

// Schema maps partition names to the fraction of records they receive.
type Schema map[Label]float64

// DefaultSchema is the 80/10/10 training, validation, testing split.
func DefaultSchema() Schema {
	return Schema{Training: 0.8, Validation: 0.1, Testing: 0.1}
}

// Validate checks every fraction lies in [0,1] and that they sum to exactly 1.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return nil
	}
	total := 0.0
	for _, name := range s.Names() {
		if name == Unset {
			return internalerr.Configf("split.schema", "partition name must not be empty")
		}
		frac := s[name]
		if frac < 0 || frac > 1 {
			return internalerr.Configf("split.schema", "fraction for %q is %v, must be within [0,1]", name, frac)
		}
		total += frac
	}
	if total != 1 {
		return internalerr.Configf("split.schema", "fractions sum to %v, must sum to 1", total)
	}
	return nil
}

// Names returns the partition names in sorted order.
func (s Schema) Names() []Label {
	names := make([]Label, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Has reports whether name is a partition of s.
func (s Schema) Has(name Label) bool {
	_, ok := s[name]
	return ok
}

// Require fails with a configuration error if name is not a partition of s.
// Unset is always accepted.
func (s Schema) Require(name Label) error {
	if name == Unset || s.Has(name) {
		return nil
	}
	return internalerr.Configf("partition", "unknown partition %q", name)
}

type bound struct {
	label Label
	upper float64
}

// Splitter maps ordinal positions onto partitions.
type Splitter struct {
	seed   uint64
	bounds []bound
	last   Label
}

// New validates schema and builds the cumulative ranges. A nil or empty
// schema produces a splitter that always returns Unset.
func New(schema Schema, seed uint64) (*Splitter, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	sp := &Splitter{seed: seed}
	cumulative := 0.0
	for _, name := range schema.Names() {
		frac := schema[name]
		cumulative += frac
		sp.bounds = append(sp.bounds, bound{label: name, upper: cumulative})
		if frac > 0 {
			sp.last = name
		}
	}
	return sp, nil
}

// Enabled reports whether the splitter assigns partitions at all.
func (s *Splitter) Enabled() bool { return s != nil && len(s.bounds) > 0 }

// Value is the pseudo-random number in [0,1) drawn for pos. It depends only
// on the seed and the position, never on how many values were drawn before.
func (s *Splitter) Value(pos int) float64 {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[0:8], s.seed)
	binary.LittleEndian.PutUint64(key[8:16], uint64(pos))
	return rand.New(rand.NewChaCha8(key)).Float64()
}

// Assign returns the partition for pos. The same seed and position always
// produce the same label. Partition ranges are half-open, so a value on an
// upper bound belongs to the next partition.
func (s *Splitter) Assign(pos int) Label {
	if !s.Enabled() {
		return Unset
	}
	return s.locate(s.Value(pos))
}

// locate maps v onto the cumulative ranges. Rounding can leave the last
// upper bound a hair below 1; such values fall into the last non-empty
// partition.
func (s *Splitter) locate(v float64) Label {
	for _, b := range s.bounds {
		if v < b.upper {
			return b.label
		}
	}
	return s.last
}
