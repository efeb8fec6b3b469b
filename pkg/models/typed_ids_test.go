package models

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoteID(t *testing.T) {
	id := NewNoteID()

	parsed, err := ParseNoteID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	for _, bad := range []string{"", "not-a-uuid", "123", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"} {
		_, err := ParseNoteID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestNoteIDJSON(t *testing.T) {
	note := Note{ID: NewNoteID(), OwnerID: NewUserID(), Title: "t", Content: "c"}

	data, err := json.Marshal(note)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, note.ID.String(), raw["id"])
	assert.Equal(t, note.OwnerID.String(), raw["userId"])

	var decoded Note
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, note.ID, decoded.ID)
	assert.Equal(t, note.OwnerID, decoded.OwnerID)
}

func TestNoteIDCBORRecordID(t *testing.T) {
	id := NewNoteID()

	data, err := id.MarshalCBOR()
	require.NoError(t, err)

	var tag cbor.Tag
	require.NoError(t, cbor.Unmarshal(data, &tag))
	assert.EqualValues(t, 8, tag.Number)
	assert.Equal(t, []any{"notes", id.String()}, tag.Content)

	var decoded NoteID
	require.NoError(t, decoded.UnmarshalCBOR(data))
	assert.Equal(t, id, decoded)

	var wrongTable UserID
	assert.Error(t, wrongTable.UnmarshalCBOR(data))
}

func TestUserIDScan(t *testing.T) {
	id := NewUserID()

	var fromString UserID
	require.NoError(t, fromString.Scan(id.String()))
	assert.Equal(t, id, fromString)

	var fromBytes UserID
	require.NoError(t, fromBytes.Scan([]byte(id.String())))
	assert.Equal(t, id, fromBytes)

	var fromNil UserID
	require.NoError(t, fromNil.Scan(nil))
	assert.True(t, fromNil.IsZero())

	assert.Error(t, fromNil.Scan(42))

	v, err := UserID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestUserIdentity(t *testing.T) {
	u := &User{ID: NewUserID(), Email: "a@example.com", Name: "A", PasswordHash: "secret"}

	ident := u.Identity()
	assert.Equal(t, u.ID, ident.UserID)
	assert.False(t, ident.IsZero())
	assert.True(t, Identity{}.IsZero())

	data, err := json.Marshal(ident)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}
