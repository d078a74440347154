package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObjectsPlainArray(t *testing.T) {
	response := `[{"name": "Microsoft", "type": "ORGANIZATION"}, {"name": "Bill Gates", "type": "PERSON"}]`
	objects, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "Microsoft", objects[0]["name"])
}

func TestExtractObjectsCodeFence(t *testing.T) {
	response := "Here are the entities:\n```json\n[{\"name\": \"Go\", \"type\": \"TECHNOLOGY\"}]\n```\nHope this helps!"
	objects, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "Go", objects[0]["name"])
}

func TestExtractObjectsSurroundingProse(t *testing.T) {
	response := `Sure! The entities are: [{"name": "Qdrant", "type": "TECHNOLOGY"}] — let me know.`
	objects, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	require.Len(t, objects, 1)
}

func TestExtractObjectsPythonLiterals(t *testing.T) {
	response := `[{"name": "X", "type": "CONCEPT", "verified": True, "extra": None}]`
	objects, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, true, objects[0]["verified"])
	assert.Nil(t, objects[0]["extra"])
}

func TestExtractObjectsTrailingCommas(t *testing.T) {
	response := `[{"name": "X", "type": "CONCEPT",},]`
	objects, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	require.Len(t, objects, 1)
}

func TestExtractObjectsSingleQuotedPreservesApostrophes(t *testing.T) {
	// Mixed quoting with a missing comma and a trailing comma; the
	// apostrophe inside L'Histoire must survive the repair.
	response := `[{'name': "L'Histoire", 'type': "DOCUMENT"} {'name':'Ulm','type':'LOCATION'},]`
	objects, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "L'Histoire", objects[0]["name"])
	assert.Equal(t, "DOCUMENT", objects[0]["type"])
	assert.Equal(t, "Ulm", objects[1]["name"])
}

func TestExtractObjectsEntityRequiresNameAndType(t *testing.T) {
	response := `[{"name": "valid", "type": "CONCEPT"}, {"name": "missing type"}, {"type": "orphan"}]`
	objects, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	require.Len(t, objects, 1)
}

func TestExtractObjectsRelationshipCanonical(t *testing.T) {
	response := `[{"source": "Bill Gates", "target": "Microsoft", "type": "FOUNDED_BY", "strength": 9}]`
	objects, err := ExtractObjects(response, KindRelationship)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "FOUNDED_BY", objects[0]["type"])
}

func TestExtractObjectsRelationshipAlternateShape(t *testing.T) {
	response := `[{"subject": "Guido van Rossum", "predicate": "created", "object": "Python"}]`
	objects, err := ExtractObjects(response, KindRelationship)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "Guido van Rossum", objects[0]["source"])
	assert.Equal(t, "Python", objects[0]["target"])
	assert.Equal(t, "CREATED", objects[0]["type"])
	assert.Equal(t, "created", objects[0]["description"])
}

func TestExtractObjectsSalvagesBrokenArray(t *testing.T) {
	// The array is irreparably broken, but both objects parse on their own.
	response := `[{"name": "A", "type": "CONCEPT"}, {"name": "B", "type": "CONCEPT"} oops trailing garbage [`
	objects, err := ExtractObjects(response, KindRelationship)
	assert.Error(t, err)
	_ = objects

	entities, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	assert.Len(t, entities, 2)
}

func TestExtractObjectsParseError(t *testing.T) {
	_, err := ExtractObjects("no json anywhere in this response", KindEntity)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.NotEmpty(t, perr.Strategy)
	assert.LessOrEqual(t, len(perr.Preview), 500)
}

func TestNormalizePredicate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"works at", "WORKS_AT"},
		{"founded by", "FOUNDED_BY"},
		{"created", "CREATED"},
		{"is a setting that can be tried", "IS_A"},
		{"orbits around the sun", "ORBITS_AROUND_THE"},
		{"", "RELATED_TO"},
		{"---", "RELATED_TO"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePredicate(tt.in))
		})
	}
}

func TestRepairControlCharacters(t *testing.T) {
	response := "[{\"name\": \"X\x07Y\", \"type\": \"CONCEPT\"}]"
	objects, err := ExtractObjects(response, KindEntity)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "XY", objects[0]["name"])
}
