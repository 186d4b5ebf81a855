package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileType is a capability bitset.
type FileType uint32

const (
	FileTypeReadable FileType = 1 << iota
	FileTypeWritable
	FileTypeExecutable
	FileTypeInvokable

	// FileTypeData marks a file whose bytes live in FileData.
	FileTypeData = FileTypeReadable | FileTypeWritable

	fileTypeMask = FileTypeReadable | FileTypeWritable | FileTypeExecutable | FileTypeInvokable
)

// Has reports whether every bit of flag is set.
func (t FileType) Has(flag FileType) bool {
	return t&flag == flag
}

// IsDataFile reports whether the file carries readable and writable content.
func (t FileType) IsDataFile() bool {
	return t.Has(FileTypeData)
}

// Valid reports whether t only uses known bits.
func (t FileType) Valid() bool {
	return t&^fileTypeMask == 0
}

func (t FileType) String() string {
	var b strings.Builder
	for _, f := range []struct {
		flag FileType
		c    byte
	}{
		{FileTypeReadable, 'r'},
		{FileTypeWritable, 'w'},
		{FileTypeExecutable, 'x'},
		{FileTypeInvokable, 'i'},
	} {
		if t.Has(f.flag) {
			b.WriteByte(f.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Computer is the per-account container of a directory tree.
type Computer struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Owner         primitive.ObjectID `bson:"owner" json:"owner"`
	RootDirectory primitive.ObjectID `bson:"root_directory" json:"root_directory"`
	IsDeleted     bool               `bson:"is_deleted" json:"-"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// Directory is a node that may hold children. The root has a nil parent.
type Directory struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ComputerID primitive.ObjectID `bson:"computer_id" json:"computer_id"`
	Name       string             `bson:"name" json:"name"`
	Parent     primitive.ObjectID `bson:"parent" json:"parent"`
	IsDeleted  bool               `bson:"is_deleted" json:"-"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsRoot reports whether d is the root of its computer.
func (d *Directory) IsRoot() bool {
	return d.Parent.IsZero()
}

// File is a leaf node.
type File struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ComputerID primitive.ObjectID `bson:"computer_id" json:"computer_id"`
	Name       string             `bson:"name" json:"name"`
	Parent     primitive.ObjectID `bson:"parent" json:"parent"`
	Type       FileType           `bson:"type" json:"type"`
	IsDeleted  bool               `bson:"is_deleted" json:"-"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// FileData holds the bytes of a data file, keyed by the file id.
type FileData struct {
	ID         primitive.ObjectID `bson:"_id"`
	ComputerID primitive.ObjectID `bson:"computer_id"`
	Content    []byte             `bson:"content"`
}
