package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FileID identifies a file record. SQL stores use UUIDs, the Mongo store uses ObjectID hex.
type FileID string

// OwnerID identifies the user owning a record. The same type flows from
// session resolution through repository filters into thumbnail jobs.
type OwnerID string

type FileType string

const (
	FileTypeFolder FileType = "folder"
	FileTypeFile   FileType = "file"
	FileTypeImage  FileType = "image"
)

// Valid reports whether t is one of the known file types.
func (t FileType) Valid() bool {
	switch t {
	case FileTypeFolder, FileTypeFile, FileTypeImage:
		return true
	}
	return false
}

// HasContent reports whether records of this type carry a blob.
func (t FileType) HasContent() bool {
	return t == FileTypeFile || t == FileTypeImage
}

type File struct {
	ID        FileID    `db:"id" json:"id"`
	OwnerID   OwnerID   `db:"user_id" json:"userId"`
	Name      string    `db:"name" json:"name"`
	Type      FileType  `db:"type" json:"type"`
	IsPublic  bool      `db:"is_public" json:"isPublic"`
	ParentID  ParentRef `db:"parent_id" json:"parentId"`
	LocalPath string    `db:"local_path" json:"-"` // empty for folders
	CreatedAt time.Time `db:"created_at" json:"-"`
}

func (f *File) IsFolder() bool {
	return f.Type == FileTypeFolder
}

// rootSentinel is how the root parent is written in storage and query strings.
const rootSentinel = "0"

// ParentRef is either Root or a reference to a folder record.
// The zero value is Root.
type ParentRef struct {
	id FileID
}

// Root is the parent of top-level records.
var Root = ParentRef{}

// RefTo returns a reference to the folder with the given id.
func RefTo(id FileID) ParentRef {
	if id == "" || id == rootSentinel {
		return Root
	}
	return ParentRef{id: id}
}

// ParseParentRef parses the external representation used in requests and
// query strings: "", "0" mean Root, anything else is a folder id.
func ParseParentRef(s string) ParentRef {
	return RefTo(FileID(s))
}

func (p ParentRef) IsRoot() bool {
	return p.id == ""
}

// ID returns the referenced folder id, or "" for Root.
func (p ParentRef) ID() FileID {
	return p.id
}

func (p ParentRef) String() string {
	if p.IsRoot() {
		return rootSentinel
	}
	return string(p.id)
}

// MarshalJSON writes Root as the number 0 and references as strings.
func (p ParentRef) MarshalJSON() ([]byte, error) {
	if p.IsRoot() {
		return []byte(rootSentinel), nil
	}
	return json.Marshal(string(p.id))
}

// UnmarshalJSON accepts null, 0, "0" and "" as Root. Other numbers are
// kept as their decimal form and will not resolve to a folder.
func (p *ParentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Root
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ParseParentRef(s)
		return nil
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid parentId %s", data)
	}
	if n == 0 {
		*p = Root
		return nil
	}
	*p = ParseParentRef(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// Value implements driver.Valuer; Root is stored as "0".
func (p ParentRef) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner.
func (p *ParentRef) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Root
	case string:
		*p = ParseParentRef(v)
	case []byte:
		*p = ParseParentRef(string(v))
	case int64:
		*p = ParseParentRef(strconv.FormatInt(v, 10))
	default:
		return fmt.Errorf("cannot scan %T into ParentRef", src)
	}
	return nil
}
