package indexes

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// IndexInfo describes an index that exists on the server.
type IndexInfo struct {
	Collection    string
	Name          string
	Keys          []Key
	Unique        bool
	Sparse        bool
	Hidden        bool
	TTL           *int64
	PartialFilter bson.Raw
	Collation     bson.Raw
}

// KeyPattern renders the key pattern like the shell does.
func (i IndexInfo) KeyPattern() string {
	return keyPattern(i.Keys)
}

// ExtraOptions lists the options set on i that no managed index uses.
// Any of them changes what the index enforces or which documents it holds.
func (i IndexInfo) ExtraOptions() []string {
	var out []string
	if i.Sparse {
		out = append(out, "sparse")
	}
	if i.TTL != nil {
		out = append(out, fmt.Sprintf("expireAfterSeconds: %d", *i.TTL))
	}
	if len(i.PartialFilter) > 0 {
		out = append(out, "partialFilterExpression: "+i.PartialFilter.String())
	}
	if len(i.Collation) > 0 {
		out = append(out, "collation: "+i.Collation.String())
	}
	if i.Hidden {
		out = append(out, "hidden")
	}
	return out
}

// Matches reports whether i has exactly the definition of s: name, ordered
// keys with directions, uniqueness, and none of the extra options.
func (i IndexInfo) Matches(s Spec) bool {
	return i.Name == s.Name && i.Unique == s.Unique && sameKeys(i.Keys, s.Keys) &&
		len(i.ExtraOptions()) == 0
}

// indexDocument is one listIndexes entry.
type indexDocument struct {
	Name               string   `bson:"name"`
	Key                bson.Raw `bson:"key"`
	Unique             bool     `bson:"unique,omitempty"`
	Sparse             bool     `bson:"sparse,omitempty"`
	Hidden             bool     `bson:"hidden,omitempty"`
	ExpireAfterSeconds *int64   `bson:"expireAfterSeconds,omitempty"`
	PartialFilter      bson.Raw `bson:"partialFilterExpression,omitempty"`
	Collation          bson.Raw `bson:"collation,omitempty"`
}

// infoFromDocument converts a raw listIndexes entry.
func infoFromDocument(collection string, raw bson.Raw) (IndexInfo, error) {
	var doc indexDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return IndexInfo{}, fmt.Errorf("decode index on %s: %w", collection, err)
	}
	keys, err := parseKeys(doc.Key)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("index %q: %w", doc.Name, err)
	}
	return IndexInfo{
		Collection:    collection,
		Name:          doc.Name,
		Keys:          keys,
		Unique:        doc.Unique,
		Sparse:        doc.Sparse,
		Hidden:        doc.Hidden,
		TTL:           doc.ExpireAfterSeconds,
		PartialFilter: doc.PartialFilter,
		Collation:     doc.Collation,
	}, nil
}

// parseKeys decodes an index key document. Numeric values of either sign
// are directions; strings are special index kinds.
func parseKeys(raw bson.Raw) ([]Key, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, len(elems))
	for _, e := range elems {
		k := Key{Field: e.Key()}
		v := e.Value()
		switch v.Type {
		case bsontype.Int32:
			k.Direction = sign(float64(v.Int32()))
		case bsontype.Int64:
			k.Direction = sign(float64(v.Int64()))
		case bsontype.Double:
			k.Direction = sign(v.Double())
		case bsontype.String:
			k.Kind = v.StringValue()
		default:
			return nil, fmt.Errorf("unsupported key value type %s for field %q", v.Type, k.Field)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func sign(f float64) Direction {
	if f < 0 {
		return Descending
	}
	return Ascending
}

type decision int

const (
	decisionCreate decision = iota
	decisionPresent
	decisionNameConflict
	decisionKeyConflict
)

// classify decides what to do with s given the indexes already on its
// collection. A name match decides alone; otherwise an index on the same key
// pattern under another name blocks creation, since the server would refuse it.
func classify(s Spec, existing []IndexInfo) (decision, *IndexInfo) {
	for i := range existing {
		if existing[i].Name != s.Name {
			continue
		}
		if existing[i].Matches(s) {
			return decisionPresent, &existing[i]
		}
		return decisionNameConflict, &existing[i]
	}
	for i := range existing {
		// the server allows a second index on the same keys when the
		// partial filter or collation differs
		if len(existing[i].PartialFilter) > 0 || len(existing[i].Collation) > 0 {
			continue
		}
		if sameKeys(existing[i].Keys, s.Keys) {
			return decisionKeyConflict, &existing[i]
		}
	}
	return decisionCreate, nil
}
