package service

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// FilesystemService implements the Filesystem RPCs. Every call must target
// a computer owned by the caller.
type FilesystemService struct {
	*core
}

// authorize checks the caller owns computer and returns the caller's username.
func (s *FilesystemService) authorize(caller Caller, computer primitive.ObjectID) (username string, err error) {
	err = s.view(func(tx docdb.Session) error {
		identity, _, err := s.gate.EnsurePermissionForComputer(tx, caller.Token, computer)
		if err != nil {
			return err
		}
		username = identity.Username
		return nil
	})
	return username, err
}

// CreateDirectory creates a directory under the parent.
func (s *FilesystemService) CreateDirectory(ctx context.Context, req *CreateDirectoryRequest) (resp *CreateResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "CreateDirectory", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	resp = new(CreateResponse)
	if err = s.update(ctx, func(tx docdb.Session) error {
		var err error
		resp.ID, err = s.fs.CreateDirectory(tx, req.ComputerID, req.ParentID, req.Name)
		return err
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateFile creates a file under the parent. Data files may carry
// initial content.
func (s *FilesystemService) CreateFile(ctx context.Context, req *CreateFileRequest) (resp *CreateResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "CreateFile", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}
	if err = s.validateContent(req.Data); err != nil {
		return nil, err
	}

	resp = new(CreateResponse)
	if err = s.update(ctx, func(tx docdb.Session) error {
		var err error
		resp.ID, err = s.fs.CreateFile(tx, req.ComputerID, req.ParentID, req.Name, req.Type, req.Data)
		return err
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteDirectory deletes a directory, and its subtree when Recursive is set.
func (s *FilesystemService) DeleteDirectory(ctx context.Context, req *DeleteDirectoryRequest) (resp *Empty, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "DeleteDirectory", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	if err = s.update(ctx, func(tx docdb.Session) error {
		return s.fs.DeleteDirectory(tx, req.ComputerID, req.DirectoryID, req.Recursive)
	}); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// DeleteFile removes one file.
func (s *FilesystemService) DeleteFile(ctx context.Context, req *FileRequest) (resp *Empty, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "DeleteFile", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	if err = s.update(ctx, func(tx docdb.Session) error {
		return s.fs.DeleteFile(tx, req.ComputerID, req.FileID)
	}); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// RenameDirectory renames a directory in place. The root cannot be renamed.
func (s *FilesystemService) RenameDirectory(ctx context.Context, req *RenameDirectoryRequest) (resp *Empty, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "RenameDirectory", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	if err = s.update(ctx, func(tx docdb.Session) error {
		return s.fs.RenameDirectory(tx, req.ComputerID, req.DirectoryID, req.NewName)
	}); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// RenameFile renames a file in place.
func (s *FilesystemService) RenameFile(ctx context.Context, req *RenameFileRequest) (resp *Empty, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "RenameFile", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	if err = s.update(ctx, func(tx docdb.Session) error {
		return s.fs.RenameFile(tx, req.ComputerID, req.FileID, req.NewName)
	}); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// ListDirectories lists the child directories of DirectoryID by name.
func (s *FilesystemService) ListDirectories(ctx context.Context, req *DirectoryRequest) (resp *ListDirectoriesResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "ListDirectories", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	var dirs []*model.Directory
	if err = s.view(func(tx docdb.Session) error {
		var err error
		dirs, err = s.fs.ListDirectories(tx, req.ComputerID, req.DirectoryID)
		return err
	}); err != nil {
		return nil, err
	}

	resp = &ListDirectoriesResponse{Directories: []*DirectoryInfo{}}
	if err = copier.Copy(&resp.Directories, dirs); err != nil {
		return nil, errors.Wrap(err, "copy directories")
	}
	return resp, nil
}

// ListFiles lists the child files of DirectoryID by name.
func (s *FilesystemService) ListFiles(ctx context.Context, req *DirectoryRequest) (resp *ListFilesResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "ListFiles", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	var files []*model.File
	if err = s.view(func(tx docdb.Session) error {
		var err error
		files, err = s.fs.ListFiles(tx, req.ComputerID, req.DirectoryID)
		return err
	}); err != nil {
		return nil, err
	}

	resp = &ListFilesResponse{Files: []*FileInfo{}}
	if err = copier.Copy(&resp.Files, files); err != nil {
		return nil, errors.Wrap(err, "copy files")
	}
	return resp, nil
}

// GetDirectoryInfo returns one directory's metadata.
func (s *FilesystemService) GetDirectoryInfo(ctx context.Context, req *DirectoryRequest) (resp *DirectoryInfo, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "GetDirectoryInfo", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	var dir *model.Directory
	if err = s.view(func(tx docdb.Session) error {
		var err error
		dir, err = s.fs.GetDirectoryByID(tx, req.ComputerID, req.DirectoryID)
		return err
	}); err != nil {
		return nil, err
	}

	resp = new(DirectoryInfo)
	if err = copier.Copy(resp, dir); err != nil {
		return nil, errors.Wrap(err, "copy directory")
	}
	return resp, nil
}

func (s *FilesystemService) GetFileInfo(ctx context.Context, req *FileRequest) (resp *FileInfo, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "GetFileInfo", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	var file *model.File
	if err = s.view(func(tx docdb.Session) error {
		var err error
		file, err = s.fs.GetFileByID(tx, req.ComputerID, req.FileID)
		return err
	}); err != nil {
		return nil, err
	}

	resp = new(FileInfo)
	if err = copier.Copy(resp, file); err != nil {
		return nil, errors.Wrap(err, "copy file")
	}
	return resp, nil
}

// ReadDataFile returns the content of a readable and writable file.
func (s *FilesystemService) ReadDataFile(ctx context.Context, req *FileRequest) (resp *ReadDataFileResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "ReadDataFile", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	resp = new(ReadDataFileResponse)
	if err = s.view(func(tx docdb.Session) error {
		var err error
		resp.Data, err = s.fs.ReadDataFile(tx, req.ComputerID, req.FileID)
		return err
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// ModifyDataFile replaces the content of a readable and writable file.
func (s *FilesystemService) ModifyDataFile(ctx context.Context, req *ModifyDataFileRequest) (resp *Empty, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "ModifyDataFile", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}
	if err = s.validateContent(req.Data); err != nil {
		return nil, err
	}

	if err = s.update(ctx, func(tx docdb.Session) error {
		return s.fs.ModifyDataFile(tx, req.ComputerID, req.FileID, req.Data)
	}); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// FromIdToPath returns the absolute path of a directory or file.
func (s *FilesystemService) FromIdToPath(ctx context.Context, req *FromIdToPathRequest) (resp *FromIdToPathResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "FromIdToPath", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	resp = new(FromIdToPathResponse)
	if err = s.view(func(tx docdb.Session) error {
		var err error
		resp.IsDirectory, resp.Path, err = s.fs.FromIdToPath(tx, req.ComputerID, req.ID)
		return err
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// FromPathToId resolves a path, relative to StartDirectoryID unless it is
// absolute.
func (s *FilesystemService) FromPathToId(ctx context.Context, req *FromPathToIdRequest) (resp *FromPathToIdResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "FromPathToId", caller, username, err) }()

	if username, err = s.authorize(caller, req.ComputerID); err != nil {
		return nil, err
	}

	resp = new(FromPathToIdResponse)
	if err = s.view(func(tx docdb.Session) error {
		var err error
		resp.IsDirectory, resp.ID, err = s.fs.FromPathToId(tx, req.ComputerID, req.StartDirectoryID, req.Path)
		return err
	}); err != nil {
		return nil, err
	}
	return resp, nil
}
