package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const hexID = "507f1f77bcf86cd799439011"

func newTestCoercer() *Coercer {
	return NewCoercer(DefaultCoercionConfig())
}

func TestCoerceObjectIDConstructor(t *testing.T) {
	c := newTestCoercer()

	out := c.Coerce(map[string]interface{}{
		"ref": `ObjectId("` + hexID + `")`,
	})

	doc, ok := out.(bson.M)
	require.True(t, ok)

	want, _ := primitive.ObjectIDFromHex(hexID)
	assert.Equal(t, want, doc["ref"])
}

func TestCoerceISODateConstructor(t *testing.T) {
	c := newTestCoercer()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			name: "rfc3339",
			in:   `ISODate("2024-03-15T10:30:00Z")`,
			want: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "fractional seconds",
			in:   `ISODate("2024-03-15T10:30:00.250Z")`,
			want: time.Date(2024, 3, 15, 10, 30, 0, 250_000_000, time.UTC),
		},
		{
			name: "no zone",
			in:   `ISODate("2024-03-15T10:30:00")`,
			want: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "date only",
			in:   `ISODate("2024-03-15")`,
			want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Coerce(map[string]interface{}{"createdAt": tt.in})
			doc := out.(bson.M)
			got, ok := doc["createdAt"].(time.Time)
			require.True(t, ok, "expected time.Time, got %T", doc["createdAt"])
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestCoerceBareISO8601AtDepth(t *testing.T) {
	c := newTestCoercer()

	out := c.Coerce(map[string]interface{}{
		"meta": map[string]interface{}{
			"audit": map[string]interface{}{
				"modifiedAt": "2024-06-01T08:00:00Z",
			},
		},
	})

	doc := out.(bson.M)
	audit := doc["meta"].(bson.M)["audit"].(bson.M)
	got, ok := audit["modifiedAt"].(time.Time)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC).Equal(got))
}

func TestCoerceBareHexAllowlist(t *testing.T) {
	c := newTestCoercer()
	oid, _ := primitive.ObjectIDFromHex(hexID)

	tests := []struct {
		name string
		key  string
		want interface{}
	}{
		{name: "exact _id", key: "_id", want: oid},
		{name: "Id suffix", key: "userId", want: oid},
		{name: "_id suffix", key: "parent_id", want: oid},
		{name: "bare suffix name is not a reference", key: "Id", want: hexID},
		{name: "unlisted field preserved", key: "sku", want: hexID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Coerce(map[string]interface{}{tt.key: hexID})
			assert.Equal(t, tt.want, out.(bson.M)[tt.key])
		})
	}
}

func TestCoerceOperatorKeysInheritFieldName(t *testing.T) {
	c := newTestCoercer()
	oid, _ := primitive.ObjectIDFromHex(hexID)

	out := c.Coerce(map[string]interface{}{
		"_id": map[string]interface{}{
			"$in": []interface{}{hexID, hexID},
		},
		"status": map[string]interface{}{
			"$eq": hexID, // not an ID field: stays text
		},
	})

	doc := out.(bson.M)
	in := doc["_id"].(bson.M)["$in"].(bson.A)
	assert.Equal(t, bson.A{oid, oid}, in)
	assert.Equal(t, hexID, doc["status"].(bson.M)["$eq"])
}

func TestCoerceInvalidPatternsPreserved(t *testing.T) {
	c := newTestCoercer()

	tests := []struct {
		name string
		in   string
	}{
		{name: "short hex in constructor", in: `ObjectId("12345")`},
		{name: "unparseable date in constructor", in: `ISODate("not a date")`},
		{name: "almost iso timestamp", in: "2024-13-99T99:99:99Z"},
		{name: "hex of wrong length", in: "507f1f77bcf86cd7994390"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Coerce(map[string]interface{}{"_id": tt.in})
			assert.Equal(t, tt.in, out.(bson.M)["_id"])
		})
	}
}

func TestCoerceTypedLeavesPassThrough(t *testing.T) {
	c := newTestCoercer()
	oid := primitive.NewObjectID()
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	in := map[string]interface{}{
		"_id":       oid,
		"createdAt": when,
		"count":     float64(3),
		"active":    true,
		"note":      nil,
	}

	doc := c.Coerce(in).(bson.M)
	assert.Equal(t, oid, doc["_id"])
	assert.Equal(t, when, doc["createdAt"])
	assert.Equal(t, float64(3), doc["count"])
	assert.Equal(t, true, doc["active"])
	assert.Nil(t, doc["note"])
}

func TestCoerceDoesNotMutateInput(t *testing.T) {
	c := newTestCoercer()

	in := map[string]interface{}{
		"_id":  hexID,
		"tags": []interface{}{"2024-06-01T08:00:00Z"},
	}
	_ = c.Coerce(in)

	assert.Equal(t, hexID, in["_id"])
	assert.Equal(t, "2024-06-01T08:00:00Z", in["tags"].([]interface{})[0])
}

func TestCoerceCustomAllowlist(t *testing.T) {
	c := NewCoercer(CoercionConfig{IDFields: []string{"sku"}})
	oid, _ := primitive.ObjectIDFromHex(hexID)

	out := c.Coerce(map[string]interface{}{
		"sku":    hexID,
		"userId": hexID, // no suffixes configured
	})

	doc := out.(bson.M)
	assert.Equal(t, oid, doc["sku"])
	assert.Equal(t, hexID, doc["userId"])
}
