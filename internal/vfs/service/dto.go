package service

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs/model"
)

// StatusResponse acknowledges an account operation.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	StatusResponse
	Token string `json:"token"`
}

type RegisterRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	ActivationCode string `json:"activation_code"`
}

type GenerateActivationCodeRequest struct {
	Count int `json:"count"`
}

type GenerateActivationCodeResponse struct {
	StatusResponse
	Codes []string `json:"codes"`
}

// ChangePasswordRequest changes the password of Username, or of the caller
// when Username is empty. Password is the caller's current password.
type ChangePasswordRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// ChangeUsernameRequest renames Username, or the caller when empty.
type ChangeUsernameRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	NewUsername string `json:"new_username"`
}

// DeleteAccountRequest deletes Username, or the caller when empty.
type DeleteAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type GetMyComputerRequest struct{}

type ComputerInfo struct {
	ID            primitive.ObjectID `json:"id"`
	Name          string             `json:"name"`
	Owner         primitive.ObjectID `json:"owner"`
	RootDirectory primitive.ObjectID `json:"root_directory"`
	CreatedAt     time.Time          `json:"created_at"`
}

type DirectoryInfo struct {
	ID         primitive.ObjectID `json:"id"`
	ComputerID primitive.ObjectID `json:"computer_id"`
	Name       string             `json:"name"`
	Parent     primitive.ObjectID `json:"parent"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type FileInfo struct {
	ID         primitive.ObjectID `json:"id"`
	ComputerID primitive.ObjectID `json:"computer_id"`
	Name       string             `json:"name"`
	Parent     primitive.ObjectID `json:"parent"`
	Type       model.FileType     `json:"type"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type CreateDirectoryRequest struct {
	ComputerID primitive.ObjectID `json:"computer_id"`
	ParentID   primitive.ObjectID `json:"parent_id"`
	Name       string             `json:"name"`
}

type CreateFileRequest struct {
	ComputerID primitive.ObjectID `json:"computer_id"`
	ParentID   primitive.ObjectID `json:"parent_id"`
	Name       string             `json:"name"`
	Type       model.FileType     `json:"type"`
	Data       []byte             `json:"data,omitempty"`
}

type CreateResponse struct {
	ID primitive.ObjectID `json:"id"`
}

type DirectoryRequest struct {
	ComputerID  primitive.ObjectID `json:"computer_id"`
	DirectoryID primitive.ObjectID `json:"directory_id"`
}

type FileRequest struct {
	ComputerID primitive.ObjectID `json:"computer_id"`
	FileID     primitive.ObjectID `json:"file_id"`
}

type DeleteDirectoryRequest struct {
	ComputerID  primitive.ObjectID `json:"computer_id"`
	DirectoryID primitive.ObjectID `json:"directory_id"`
	Recursive   bool               `json:"recursive"`
}

type RenameDirectoryRequest struct {
	ComputerID  primitive.ObjectID `json:"computer_id"`
	DirectoryID primitive.ObjectID `json:"directory_id"`
	NewName     string             `json:"new_name"`
}

type RenameFileRequest struct {
	ComputerID primitive.ObjectID `json:"computer_id"`
	FileID     primitive.ObjectID `json:"file_id"`
	NewName    string             `json:"new_name"`
}

type ListDirectoriesResponse struct {
	Directories []*DirectoryInfo `json:"directories"`
}

type ListFilesResponse struct {
	Files []*FileInfo `json:"files"`
}

type ReadDataFileResponse struct {
	Data []byte `json:"data"`
}

type ModifyDataFileRequest struct {
	ComputerID primitive.ObjectID `json:"computer_id"`
	FileID     primitive.ObjectID `json:"file_id"`
	Data       []byte             `json:"data"`
}

type FromIdToPathRequest struct {
	ComputerID primitive.ObjectID `json:"computer_id"`
	ID         primitive.ObjectID `json:"id"`
}

type FromIdToPathResponse struct {
	IsDirectory bool   `json:"is_directory"`
	Path        string `json:"path"`
}

// FromPathToIdRequest resolves Path. StartDirectoryID anchors relative
// paths and defaults to the root.
type FromPathToIdRequest struct {
	ComputerID       primitive.ObjectID `json:"computer_id"`
	StartDirectoryID primitive.ObjectID `json:"start_directory_id"`
	Path             string             `json:"path"`
}

type FromPathToIdResponse struct {
	IsDirectory bool               `json:"is_directory"`
	ID          primitive.ObjectID `json:"id"`
}

// Empty is returned by calls that only report success.
type Empty struct{}
