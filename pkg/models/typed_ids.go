package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	// NotesTable is the table, collection or label that holds notes in every backend.
	NotesTable = "notes"
	// UsersTable is the table, collection or label that holds users in every backend.
	UsersTable = "users"
)

// NoteID identifies a note. The zero value is the nil UUID.
type NoteID struct {
	uuid uuid.UUID
}

func NewNoteID() NoteID                     { return NoteID{uuid: uuid.New()} }
func NewNoteIDFromUUID(id uuid.UUID) NoteID { return NoteID{uuid: id} }

// ParseNoteID parses the canonical UUID form of a note identifier.
func ParseNoteID(s string) (NoteID, error) {
	id, err := parseUUID("note", s)
	return NoteID{uuid: id}, err
}

func (n NoteID) UUID() uuid.UUID              { return n.uuid }
func (n NoteID) String() string               { return n.uuid.String() }
func (n NoteID) IsZero() bool                 { return n.uuid == uuid.Nil }
func (n NoteID) Equal(other NoteID) bool      { return n.uuid == other.uuid }
func (NoteID) GormDataType() string           { return "uuid" }
func (n NoteID) Value() (driver.Value, error) { return sqlValue(n.uuid) }
func (n *NoteID) Scan(value any) error        { return scanUUID(value, &n.uuid) }

func (n NoteID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: NotesTable, ID: n.uuid.String()}
}

func (n NoteID) MarshalJSON() ([]byte, error)     { return json.Marshal(n.uuid.String()) }
func (n *NoteID) UnmarshalJSON(data []byte) error { return unmarshalJSONUUID(data, &n.uuid) }
func (n NoteID) MarshalCBOR() ([]byte, error)     { return marshalRecordID(NotesTable, n.uuid) }
func (n *NoteID) UnmarshalCBOR(data []byte) error { return unmarshalRecordID(data, NotesTable, &n.uuid) }

// UserID identifies a user. The zero value is the nil UUID.
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID                     { return UserID{uuid: uuid.New()} }
func NewUserIDFromUUID(id uuid.UUID) UserID { return UserID{uuid: id} }

// ParseUserID parses the canonical UUID form of a user identifier.
func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID("user", s)
	return UserID{uuid: id}, err
}

func (u UserID) UUID() uuid.UUID              { return u.uuid }
func (u UserID) String() string               { return u.uuid.String() }
func (u UserID) IsZero() bool                 { return u.uuid == uuid.Nil }
func (u UserID) Equal(other UserID) bool      { return u.uuid == other.uuid }
func (UserID) GormDataType() string           { return "uuid" }
func (u UserID) Value() (driver.Value, error) { return sqlValue(u.uuid) }
func (u *UserID) Scan(value any) error        { return scanUUID(value, &u.uuid) }

func (u UserID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: UsersTable, ID: u.uuid.String()}
}

func (u UserID) MarshalJSON() ([]byte, error)     { return json.Marshal(u.uuid.String()) }
func (u *UserID) UnmarshalJSON(data []byte) error { return unmarshalJSONUUID(data, &u.uuid) }
func (u UserID) MarshalCBOR() ([]byte, error)     { return marshalRecordID(UsersTable, u.uuid) }
func (u *UserID) UnmarshalCBOR(data []byte) error { return unmarshalRecordID(data, UsersTable, &u.uuid) }

func parseUUID(kind, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID: %w", kind, err)
	}
	return id, nil
}

// sqlValue stores the nil UUID as NULL.
func sqlValue(id uuid.UUID) (driver.Value, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return id.String(), nil
}

func scanUUID(value any, target *uuid.UUID) error {
	var (
		id  uuid.UUID
		err error
	)
	switch v := value.(type) {
	case nil:
		id = uuid.Nil
	case string:
		id, err = uuid.Parse(v)
	case []byte:
		id, err = uuid.ParseBytes(v)
	default:
		return fmt.Errorf("cannot scan %T into a UUID", value)
	}
	if err != nil {
		return err
	}
	*target = id
	return nil
}

func unmarshalJSONUUID(data []byte, target *uuid.UUID) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}

// recordIDTag is the CBOR tag SurrealDB uses for record ids, wrapping [table, id].
const recordIDTag = 8

func marshalRecordID(table string, id uuid.UUID) ([]byte, error) {
	return cbor.Marshal(cbor.Tag{Number: recordIDTag, Content: []any{table, id.String()}})
}

func unmarshalRecordID(data []byte, table string, target *uuid.UUID) error {
	if len(data) == 0 {
		return errors.New("empty record id")
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to decode record id: %w", err)
	}
	if tag.Number != recordIDTag {
		return fmt.Errorf("expected record id tag %d, got %d", recordIDTag, tag.Number)
	}

	parts, ok := tag.Content.([]any)
	if !ok || len(parts) != 2 {
		return errors.New("record id must be a [table, id] pair")
	}
	if got, _ := parts[0].(string); got != table {
		return fmt.Errorf("record id belongs to table %v, want %s", parts[0], table)
	}
	raw, ok := parts[1].(string)
	if !ok {
		return fmt.Errorf("record id key must be a string, got %T", parts[1])
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("record id key is not a UUID: %w", err)
	}
	*target = id
	return nil
}
