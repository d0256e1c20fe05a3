// Package indexes provisions and verifies the MongoDB indexes that back the
// mandate and mandate audit collections.
//
// Provisioning is idempotent: existing index metadata is read first, compared
// with the wanted definition, and an index is only created when it is absent.
// A same-named index with a different definition is reported, never replaced.
package indexes

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Direction is the sort order of an index key.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// Key is one field of an index key pattern. Kind is set instead of Direction
// for special index types ("text", "hashed", "2dsphere") found on the server.
type Key struct {
	Field     string
	Direction Direction
	Kind      string
}

func (k Key) String() string {
	if k.Kind != "" {
		return k.Field + ":" + k.Kind
	}
	return fmt.Sprintf("%s:%d", k.Field, k.Direction)
}

// Asc and Desc build ascending and descending keys.
func Asc(field string) Key  { return Key{Field: field, Direction: Ascending} }
func Desc(field string) Key { return Key{Field: field, Direction: Descending} }

// Spec is the wanted definition of a single index.
type Spec struct {
	Collection string
	Name       string
	Keys       []Key
	Unique     bool
}

// KeysDocument returns the ordered key pattern as sent to createIndexes.
func (s Spec) KeysDocument() bson.D {
	d := make(bson.D, 0, len(s.Keys))
	for _, k := range s.Keys {
		if k.Kind != "" {
			d = append(d, bson.E{Key: k.Field, Value: k.Kind})
			continue
		}
		d = append(d, bson.E{Key: k.Field, Value: int32(k.Direction)})
	}
	return d
}

// Model returns the driver index model for s.
func (s Spec) Model() mongo.IndexModel {
	opts := options.Index().SetName(s.Name)
	if s.Unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: s.KeysDocument(), Options: opts}
}

// Fields returns the key field names in order.
func (s Spec) Fields() []string {
	out := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		out[i] = k.Field
	}
	return out
}

// KeyPattern renders the key pattern like the shell does: {a: 1, b: -1}.
func (s Spec) KeyPattern() string {
	return keyPattern(s.Keys)
}

func (s Spec) String() string {
	u := ""
	if s.Unique {
		u = " unique"
	}
	return fmt.Sprintf("%s.%s %s%s", s.Collection, s.Name, s.KeyPattern(), u)
}

func keyPattern(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		if k.Kind != "" {
			parts[i] = fmt.Sprintf("%s: %q", k.Field, k.Kind)
		} else {
			parts[i] = fmt.Sprintf("%s: %d", k.Field, k.Direction)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sameKeys(a, b []Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
