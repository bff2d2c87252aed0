package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
)

var ErrUnknownStream = errors.New("unknown stream")

func IsUnknownStreamErr(err error) bool { return errors.Is(err, ErrUnknownStream) }

type ReplicationMethod string

const (
	ReplicationIncremental ReplicationMethod = "INCREMENTAL"
	ReplicationFullTable   ReplicationMethod = "FULL_TABLE"
)

// StreamDefinition is the static description of one replicable stream.
type StreamDefinition struct {
	ID                string
	KeyProperties     []string
	ReplicationMethod ReplicationMethod
	// ReplicationKey is the canonical field whose value becomes the bookmark.
	ReplicationKey string
	// Bookmark is the state key the bookmark value is stored under.
	Bookmark string
	Mapping  []schema.FieldMapping
}

func (d StreamDefinition) clone() StreamDefinition {
	d.KeyProperties = slices.Clone(d.KeyProperties)
	d.Mapping = slices.Clone(d.Mapping)
	return d
}

func (d StreamDefinition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("stream id is empty")
	}

	targets := make(map[string]struct{}, len(d.Mapping))
	for _, m := range d.Mapping {
		if m.Source == "" {
			return fmt.Errorf("stream %s: mapping with empty source field", d.ID)
		}
		if _, dup := targets[m.Target()]; dup {
			return fmt.Errorf("stream %s: duplicate target field %q", d.ID, m.Target())
		}
		targets[m.Target()] = struct{}{}
	}

	for _, key := range d.KeyProperties {
		if _, ok := targets[key]; !ok {
			return fmt.Errorf("stream %s: key property %q is not a mapped field", d.ID, key)
		}
	}

	if d.ReplicationMethod == ReplicationIncremental {
		if _, ok := targets[d.ReplicationKey]; !ok {
			return fmt.Errorf("stream %s: replication key %q is not a mapped field", d.ID, d.ReplicationKey)
		}
		if d.Bookmark == "" {
			return fmt.Errorf("stream %s: incremental stream without bookmark key", d.ID)
		}
	}

	return nil
}

// Registry is an immutable lookup of stream definitions. Lookups return
// copies, so callers cannot alter the registered configuration.
type Registry struct {
	streams map[string]StreamDefinition
}

func New(defs ...StreamDefinition) (*Registry, error) {
	r := &Registry{streams: make(map[string]StreamDefinition, len(defs))}

	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.streams[d.ID]; dup {
			return nil, fmt.Errorf("stream %s registered twice", d.ID)
		}
		r.streams[d.ID] = d.clone()
	}

	return r, nil
}

func (r *Registry) Lookup(id string) (StreamDefinition, error) {
	d, ok := r.streams[id]
	if !ok {
		return StreamDefinition{}, fmt.Errorf("%w: %q", ErrUnknownStream, id)
	}
	return d.clone(), nil
}

// IDs returns the registered stream ids sorted alphabetically.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
