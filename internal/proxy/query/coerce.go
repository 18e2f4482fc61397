// Package query turns loosely-typed operation requests into well-typed
// driver calls: it coerces wire-format scalars embedded in nested query and
// pipeline structures, normalizes per-operation argument shapes, and
// dispatches the result against a live session with per-operation timeout
// and result policy.
package query

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoercionConfig controls which string leaves are promoted to native
// identifier and timestamp types.
//
// The observed callers disagree on which field names carry object IDs, so
// the allowlist is explicit configuration rather than a fixed policy.
type CoercionConfig struct {
	// IDFields are field names whose bare 24-hex string values become
	// ObjectIDs.
	IDFields []string `json:"id-fields" mapstructure:"id-fields"`

	// IDSuffixes are field name suffixes (e.g. "Id", "_id") that mark a
	// field as a foreign-key reference for the same promotion.
	IDSuffixes []string `json:"id-suffixes" mapstructure:"id-suffixes"`

	// CoerceWrites applies coercion to insert documents as well.
	// Off by default: a document the caller supplies is stored verbatim.
	CoerceWrites bool `json:"coerce-writes" mapstructure:"coerce-writes"`
}

// DefaultCoercionConfig returns the coercion policy used when none is
// configured.
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		IDFields:   []string{"_id"},
		IDSuffixes: []string{"Id", "_id"},
	}
}

// Coercer converts textual encodings embedded anywhere inside a nested
// document or pipeline into native ObjectID and time values. It is a pure
// transform: the input structure is never mutated and every non-matching
// leaf passes through unchanged.
type Coercer struct {
	idFields   map[string]struct{}
	idSuffixes []string
}

// NewCoercer creates a Coercer from the given config.
func NewCoercer(cfg CoercionConfig) *Coercer {
	fields := make(map[string]struct{}, len(cfg.IDFields))
	for _, f := range cfg.IDFields {
		fields[f] = struct{}{}
	}
	return &Coercer{
		idFields:   fields,
		idSuffixes: cfg.IDSuffixes,
	}
}

var (
	objectIDCtorRe = regexp.MustCompile(`^ObjectId\("([0-9a-fA-F]{24})"\)$`)
	isoDateCtorRe  = regexp.MustCompile(`^ISODate\("(.*)"\)$`)
	iso8601Re      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,9})?Z?$`)
	hex24Re        = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
)

// isoDateLayouts are tried in order when parsing timestamp text.
var isoDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseISODate parses timestamp text in any accepted ISO-8601 layout.
func parseISODate(s string) (time.Time, bool) {
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Coerce walks v depth-first and returns a new structure with every
// coercible string leaf promoted. The input is assumed to be a tree, as
// produced by a JSON parse.
func (c *Coercer) Coerce(v interface{}) interface{} {
	return c.coerce("", v)
}

func (c *Coercer) coerce(key string, v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(bson.M, len(val))
		for k, item := range val {
			out[k] = c.coerce(childKey(key, k), item)
		}
		return out
	case bson.M:
		out := make(bson.M, len(val))
		for k, item := range val {
			out[k] = c.coerce(childKey(key, k), item)
		}
		return out
	case []interface{}:
		out := make(bson.A, len(val))
		for i, item := range val {
			// Array elements inherit the enclosing field name, so
			// {"userId": {"$in": [...]}} still promotes its members.
			out[i] = c.coerce(key, item)
		}
		return out
	case bson.A:
		out := make(bson.A, len(val))
		for i, item := range val {
			out[i] = c.coerce(key, item)
		}
		return out
	case string:
		return c.coerceString(key, val)
	default:
		// Numbers, booleans, nil, and already-typed values (ObjectID,
		// time.Time) pass through unchanged.
		return v
	}
}

// childKey resolves the field-name context for a nested value. Operator
// keys ($in, $eq, ...) inherit the enclosing field name so that
// {"userId": {"$in": [...]}} still promotes the listed identifiers.
func childKey(parent, k string) string {
	if strings.HasPrefix(k, "$") {
		return parent
	}
	return k
}

// coerceString applies the leaf patterns in precedence order. A string that
// matches a suggestive pattern but fails to parse is returned as-is;
// coercion degrades to a no-op per leaf, never an error.
func (c *Coercer) coerceString(key, s string) interface{} {
	if m := objectIDCtorRe.FindStringSubmatch(s); m != nil {
		if oid, err := primitive.ObjectIDFromHex(m[1]); err == nil {
			return oid
		}
		return s
	}

	if m := isoDateCtorRe.FindStringSubmatch(s); m != nil {
		if t, ok := parseISODate(m[1]); ok {
			return t
		}
		return s
	}

	if iso8601Re.MatchString(s) {
		if t, ok := parseISODate(s); ok {
			return t
		}
		return s
	}

	if c.isIDField(key) && hex24Re.MatchString(s) {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}

	return s
}

// isIDField reports whether the field name is allowlisted for bare hex
// identifier promotion.
func (c *Coercer) isIDField(key string) bool {
	if key == "" {
		return false
	}
	if _, ok := c.idFields[key]; ok {
		return true
	}
	for _, suffix := range c.idSuffixes {
		// A bare suffix match ("Id" on field "Id") is not a reference.
		if len(key) > len(suffix) && strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}
