package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	"github.com/Laisky/laisky-vfs/internal/vfs/service"
	"github.com/Laisky/laisky-vfs/internal/vfs/vfstest"
)

func requireCode(t *testing.T, err error, code vfs.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, vfs.CodeOf(err), "%+v", err)
}

// TestNewRequiresDependencies verifies construction fails without its collaborators.
func TestNewRequiresDependencies(t *testing.T) {
	_, err := service.New(service.Options{})
	require.Error(t, err)
}

// TestDocsScenario verifies the create, resolve and delete walk through a
// small tree.
func TestDocsScenario(t *testing.T) {
	st := vfstest.NewStack(t)
	token := st.User(t, "alice_01", "alice-password")
	ctx := vfstest.Ctx(token)
	computer := st.Computer(t, token)
	fs := st.Services.Filesystem

	docs, err := fs.CreateDirectory(ctx, &service.CreateDirectoryRequest{
		ComputerID: computer.ID,
		ParentID:   computer.RootDirectory,
		Name:       "docs",
	})
	require.NoError(t, err)

	file, err := fs.CreateFile(ctx, &service.CreateFileRequest{
		ComputerID: computer.ID,
		ParentID:   docs.ID,
		Name:       "a.txt",
		Type:       model.FileTypeData,
		Data:       []byte("hello"),
	})
	require.NoError(t, err)

	path, err := fs.FromIdToPath(ctx, &service.FromIdToPathRequest{ComputerID: computer.ID, ID: file.ID})
	require.NoError(t, err)
	require.False(t, path.IsDirectory)
	require.Equal(t, "/docs/a.txt", path.Path)

	resolved, err := fs.FromPathToId(ctx, &service.FromPathToIdRequest{
		ComputerID:       computer.ID,
		StartDirectoryID: computer.RootDirectory,
		Path:             "/docs/a.txt",
	})
	require.NoError(t, err)
	require.False(t, resolved.IsDirectory)
	require.Equal(t, file.ID, resolved.ID)

	content, err := fs.ReadDataFile(ctx, &service.FileRequest{ComputerID: computer.ID, FileID: file.ID})
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), content.Data)

	_, err = fs.DeleteDirectory(ctx, &service.DeleteDirectoryRequest{ComputerID: computer.ID, DirectoryID: docs.ID})
	requireCode(t, err, vfs.CodeFailedPrecondition)

	_, err = fs.DeleteFile(ctx, &service.FileRequest{ComputerID: computer.ID, FileID: file.ID})
	require.NoError(t, err)
	_, err = fs.DeleteDirectory(ctx, &service.DeleteDirectoryRequest{ComputerID: computer.ID, DirectoryID: docs.ID})
	require.NoError(t, err)

	_, err = fs.GetDirectoryInfo(ctx, &service.DirectoryRequest{ComputerID: computer.ID, DirectoryID: docs.ID})
	requireCode(t, err, vfs.CodeNotFound)
}

// TestRegisterBadActivationCode verifies a rejected code is not consumed and
// the username stays available.
func TestRegisterBadActivationCode(t *testing.T) {
	st := vfstest.NewStack(t)
	accounts := st.Services.Account

	codes, err := accounts.CreateActivationCodes(context.Background(), 1)
	require.NoError(t, err)

	_, err = accounts.Register(vfstest.Ctx(""), &service.RegisterRequest{
		Username:       "newbie_1",
		Password:       "pw",
		ActivationCode: "badcode",
	})
	requireCode(t, err, vfs.CodeInvalidArgument)
	require.Equal(t, "Invalid activation code", vfs.PublicMessage(err))

	// the username shape is checked before the code is looked up
	_, err = accounts.Register(vfstest.Ctx(""), &service.RegisterRequest{
		Username:       "ab",
		Password:       "pw",
		ActivationCode: "badcode",
	})
	requireCode(t, err, vfs.CodeInvalidArgument)
	require.NotEqual(t, "Invalid activation code", vfs.PublicMessage(err))

	resp, err := accounts.Register(vfstest.Ctx(""), &service.RegisterRequest{
		Username:       "newbie_1",
		Password:       "pw",
		ActivationCode: codes[0],
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	// codes are single use
	_, err = accounts.Register(vfstest.Ctx(""), &service.RegisterRequest{
		Username:       "newbie_2",
		Password:       "pw",
		ActivationCode: codes[0],
	})
	requireCode(t, err, vfs.CodeInvalidArgument)
}

// TestRegisterValidation verifies malformed usernames and taken names.
func TestRegisterValidation(t *testing.T) {
	st := vfstest.NewStack(t)
	st.User(t, "alice_01", "pw")
	accounts := st.Services.Account

	codes, err := accounts.CreateActivationCodes(context.Background(), 1)
	require.NoError(t, err)

	_, err = accounts.Register(vfstest.Ctx(""), &service.RegisterRequest{Username: "ab", Password: "pw", ActivationCode: codes[0]})
	requireCode(t, err, vfs.CodeInvalidArgument)

	_, err = accounts.Register(vfstest.Ctx(""), &service.RegisterRequest{Username: "bobby_02", ActivationCode: codes[0]})
	requireCode(t, err, vfs.CodeInvalidArgument)

	_, err = accounts.Register(vfstest.Ctx(""), &service.RegisterRequest{Username: "alice_01", Password: "pw", ActivationCode: codes[0]})
	requireCode(t, err, vfs.CodeAlreadyExists)

	// the failed attempts left the code usable
	_, err = accounts.Register(vfstest.Ctx(""), &service.RegisterRequest{Username: "bobby_02", Password: "pw", ActivationCode: codes[0]})
	require.NoError(t, err)
}

// TestLogin verifies credentials are checked and the token identifies the account.
func TestLogin(t *testing.T) {
	st := vfstest.NewStack(t)
	token := st.User(t, "alice_01", "alice-password")

	identity, err := st.Issuer.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice_01", identity.Username)
	require.Equal(t, model.RoleUser, identity.Role)

	for _, req := range []*service.LoginRequest{
		{Username: "alice_01", Password: "wrong"},
		{Username: "nobody_9", Password: "alice-password"},
	} {
		_, err = st.Services.Account.Login(vfstest.Ctx(""), req)
		requireCode(t, err, vfs.CodeUnauthenticated)
	}

	_, err = st.Services.Account.Login(vfstest.Ctx(""), &service.LoginRequest{Username: "alice_01"})
	requireCode(t, err, vfs.CodeInvalidArgument)
}

// TestGenerateActivationCode verifies only admins mint codes within the allowed count.
func TestGenerateActivationCode(t *testing.T) {
	st := vfstest.NewStack(t)
	admin := st.Admin(t, "admin_01", "admin-password")
	user := st.User(t, "alice_01", "pw")
	accounts := st.Services.Account

	resp, err := accounts.GenerateActivationCode(vfstest.Ctx(admin), &service.GenerateActivationCodeRequest{Count: 3})
	require.NoError(t, err)
	require.Len(t, resp.Codes, 3)

	_, err = accounts.GenerateActivationCode(vfstest.Ctx(user), &service.GenerateActivationCodeRequest{Count: 1})
	requireCode(t, err, vfs.CodePermissionDenied)

	_, err = accounts.GenerateActivationCode(vfstest.Ctx(""), &service.GenerateActivationCodeRequest{Count: 1})
	requireCode(t, err, vfs.CodeUnauthenticated)

	for _, n := range []int{0, 101} {
		_, err = accounts.GenerateActivationCode(vfstest.Ctx(admin), &service.GenerateActivationCodeRequest{Count: n})
		requireCode(t, err, vfs.CodeInvalidArgument)
	}
}

// TestChangePassword verifies self service, step-up and admin overrides.
func TestChangePassword(t *testing.T) {
	st := vfstest.NewStack(t)
	admin := st.Admin(t, "admin_01", "admin-password")
	alice := st.User(t, "alice_01", "old-password")
	st.User(t, "bobby_02", "bob-password")
	accounts := st.Services.Account

	_, err := accounts.ChangePassword(vfstest.Ctx(alice), &service.ChangePasswordRequest{
		Password:    "wrong",
		NewPassword: "new-password",
	})
	requireCode(t, err, vfs.CodeUnauthenticated)

	_, err = accounts.ChangePassword(vfstest.Ctx(alice), &service.ChangePasswordRequest{
		Username:    "bobby_02",
		Password:    "old-password",
		NewPassword: "stolen",
	})
	requireCode(t, err, vfs.CodePermissionDenied)

	_, err = accounts.ChangePassword(vfstest.Ctx(alice), &service.ChangePasswordRequest{
		Password:    "old-password",
		NewPassword: "new-password",
	})
	require.NoError(t, err)
	st.Login(t, "alice_01", "new-password")

	_, err = accounts.ChangePassword(vfstest.Ctx(admin), &service.ChangePasswordRequest{
		Username:    "bobby_02",
		Password:    "admin-password",
		NewPassword: "reset-by-admin",
	})
	require.NoError(t, err)
	st.Login(t, "bobby_02", "reset-by-admin")
}

// TestChangeUsername verifies a renamed account keeps its password and data.
func TestChangeUsername(t *testing.T) {
	st := vfstest.NewStack(t)
	alice := st.User(t, "alice_01", "alice-password")
	st.User(t, "bobby_02", "bob-password")
	before := st.Computer(t, alice)
	accounts := st.Services.Account

	_, err := accounts.ChangeUsername(vfstest.Ctx(alice), &service.ChangeUsernameRequest{
		Password:    "alice-password",
		NewUsername: "bobby_02",
	})
	requireCode(t, err, vfs.CodeAlreadyExists)

	_, err = accounts.ChangeUsername(vfstest.Ctx(alice), &service.ChangeUsernameRequest{
		Password:    "alice-password",
		NewUsername: "x",
	})
	requireCode(t, err, vfs.CodeInvalidArgument)

	_, err = accounts.ChangeUsername(vfstest.Ctx(alice), &service.ChangeUsernameRequest{
		Password:    "alice-password",
		NewUsername: "alice_99",
	})
	require.NoError(t, err)

	renamed := st.Login(t, "alice_99", "alice-password")
	require.Equal(t, before.ID, st.Computer(t, renamed).ID)

	_, err = accounts.Login(vfstest.Ctx(""), &service.LoginRequest{Username: "alice_01", Password: "alice-password"})
	requireCode(t, err, vfs.CodeUnauthenticated)
}

// TestDeleteAccount verifies deletion hides the account and its computer.
func TestDeleteAccount(t *testing.T) {
	st := vfstest.NewStack(t)
	admin := st.Admin(t, "admin_01", "admin-password")
	alice := st.User(t, "alice_01", "alice-password")
	bob := st.User(t, "bobby_02", "bob-password")
	computer := st.Computer(t, alice)
	accounts := st.Services.Account

	_, err := accounts.DeleteAccount(vfstest.Ctx(bob), &service.DeleteAccountRequest{
		Username: "alice_01",
		Password: "bob-password",
	})
	requireCode(t, err, vfs.CodePermissionDenied)

	_, err = accounts.DeleteAccount(vfstest.Ctx(alice), &service.DeleteAccountRequest{Password: "alice-password"})
	require.NoError(t, err)

	_, err = accounts.Login(vfstest.Ctx(""), &service.LoginRequest{Username: "alice_01", Password: "alice-password"})
	requireCode(t, err, vfs.CodeUnauthenticated)

	_, err = st.Services.Computer.GetMyComputer(vfstest.Ctx(alice), &service.GetMyComputerRequest{})
	requireCode(t, err, vfs.CodeNotFound)
	_, err = st.Services.Filesystem.ListDirectories(vfstest.Ctx(alice), &service.DirectoryRequest{
		ComputerID:  computer.ID,
		DirectoryID: computer.RootDirectory,
	})
	requireCode(t, err, vfs.CodeNotFound)

	_, err = accounts.DeleteAccount(vfstest.Ctx(admin), &service.DeleteAccountRequest{
		Username: "bobby_02",
		Password: "admin-password",
	})
	require.NoError(t, err)
}

// TestComputerOwnership verifies callers cannot touch other accounts' computers.
func TestComputerOwnership(t *testing.T) {
	st := vfstest.NewStack(t)
	alice := st.User(t, "alice_01", "pw")
	bob := st.User(t, "bobby_02", "pw")
	computer := st.Computer(t, alice)
	fs := st.Services.Filesystem

	_, err := fs.CreateDirectory(vfstest.Ctx(bob), &service.CreateDirectoryRequest{
		ComputerID: computer.ID,
		ParentID:   computer.RootDirectory,
		Name:       "intruder",
	})
	requireCode(t, err, vfs.CodePermissionDenied)

	_, err = fs.ListFiles(vfstest.Ctx(""), &service.DirectoryRequest{ComputerID: computer.ID, DirectoryID: computer.RootDirectory})
	requireCode(t, err, vfs.CodeUnauthenticated)

	_, err = fs.ListFiles(vfstest.Ctx(alice), &service.DirectoryRequest{ComputerID: primitive.NewObjectID(), DirectoryID: computer.RootDirectory})
	requireCode(t, err, vfs.CodeNotFound)
}

// TestFilesystemOperations verifies listing, renaming and content updates.
func TestFilesystemOperations(t *testing.T) {
	st := vfstest.NewStack(t)
	token := st.User(t, "alice_01", "pw")
	ctx := vfstest.Ctx(token)
	computer := st.Computer(t, token)
	root := computer.RootDirectory
	fs := st.Services.Filesystem

	mkdir := func(parent primitive.ObjectID, name string) primitive.ObjectID {
		resp, err := fs.CreateDirectory(ctx, &service.CreateDirectoryRequest{ComputerID: computer.ID, ParentID: parent, Name: name})
		require.NoError(t, err)
		return resp.ID
	}

	src := mkdir(root, "src")
	mkdir(root, "bin")
	tool, err := fs.CreateFile(ctx, &service.CreateFileRequest{
		ComputerID: computer.ID,
		ParentID:   root,
		Name:       "tool",
		Type:       model.FileTypeReadable | model.FileTypeExecutable,
	})
	require.NoError(t, err)

	_, err = fs.CreateFile(ctx, &service.CreateFileRequest{
		ComputerID: computer.ID,
		ParentID:   root,
		Name:       "src",
		Type:       model.FileTypeData,
	})
	requireCode(t, err, vfs.CodeAlreadyExists)

	_, err = fs.CreateFile(ctx, &service.CreateFileRequest{
		ComputerID: computer.ID,
		ParentID:   root,
		Name:       "blob",
		Type:       model.FileTypeReadable,
		Data:       []byte("x"),
	})
	requireCode(t, err, vfs.CodeInvalidArgument)

	dirs, err := fs.ListDirectories(ctx, &service.DirectoryRequest{ComputerID: computer.ID, DirectoryID: root})
	require.NoError(t, err)
	require.Len(t, dirs.Directories, 2)
	require.Equal(t, "bin", dirs.Directories[0].Name)
	require.Equal(t, "src", dirs.Directories[1].Name)
	require.Equal(t, root, dirs.Directories[1].Parent)

	files, err := fs.ListFiles(ctx, &service.DirectoryRequest{ComputerID: computer.ID, DirectoryID: root})
	require.NoError(t, err)
	require.Len(t, files.Files, 1)
	require.Equal(t, tool.ID, files.Files[0].ID)

	empty, err := fs.ListFiles(ctx, &service.DirectoryRequest{ComputerID: computer.ID, DirectoryID: src})
	require.NoError(t, err)
	require.Empty(t, empty.Files)

	_, err = fs.ReadDataFile(ctx, &service.FileRequest{ComputerID: computer.ID, FileID: tool.ID})
	requireCode(t, err, vfs.CodeInvalidArgument)

	_, err = fs.RenameDirectory(ctx, &service.RenameDirectoryRequest{ComputerID: computer.ID, DirectoryID: src, NewName: "lib"})
	require.NoError(t, err)
	info, err := fs.GetDirectoryInfo(ctx, &service.DirectoryRequest{ComputerID: computer.ID, DirectoryID: src})
	require.NoError(t, err)
	require.Equal(t, "lib", info.Name)

	_, err = fs.RenameDirectory(ctx, &service.RenameDirectoryRequest{ComputerID: computer.ID, DirectoryID: root, NewName: "top"})
	requireCode(t, err, vfs.CodeInvalidArgument)

	_, err = fs.RenameFile(ctx, &service.RenameFileRequest{ComputerID: computer.ID, FileID: tool.ID, NewName: "bin"})
	requireCode(t, err, vfs.CodeAlreadyExists)
	_, err = fs.RenameFile(ctx, &service.RenameFileRequest{ComputerID: computer.ID, FileID: tool.ID, NewName: "tool2"})
	require.NoError(t, err)
	finfo, err := fs.GetFileInfo(ctx, &service.FileRequest{ComputerID: computer.ID, FileID: tool.ID})
	require.NoError(t, err)
	require.Equal(t, "tool2", finfo.Name)
	require.Equal(t, model.FileTypeReadable|model.FileTypeExecutable, finfo.Type)

	notes, err := fs.CreateFile(ctx, &service.CreateFileRequest{ComputerID: computer.ID, ParentID: src, Name: "notes", Type: model.FileTypeData})
	require.NoError(t, err)
	read, err := fs.ReadDataFile(ctx, &service.FileRequest{ComputerID: computer.ID, FileID: notes.ID})
	require.NoError(t, err)
	require.Empty(t, read.Data)

	_, err = fs.ModifyDataFile(ctx, &service.ModifyDataFileRequest{ComputerID: computer.ID, FileID: notes.ID, Data: []byte("v2")})
	require.NoError(t, err)
	read, err = fs.ReadDataFile(ctx, &service.FileRequest{ComputerID: computer.ID, FileID: notes.ID})
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), read.Data)

	rel, err := fs.FromPathToId(ctx, &service.FromPathToIdRequest{ComputerID: computer.ID, StartDirectoryID: src, Path: "../lib/notes"})
	require.NoError(t, err)
	require.Equal(t, notes.ID, rel.ID)

	_, err = fs.DeleteDirectory(ctx, &service.DeleteDirectoryRequest{ComputerID: computer.ID, DirectoryID: src, Recursive: true})
	require.NoError(t, err)
	_, err = fs.GetFileInfo(ctx, &service.FileRequest{ComputerID: computer.ID, FileID: notes.ID})
	requireCode(t, err, vfs.CodeNotFound)

	_, err = fs.DeleteDirectory(ctx, &service.DeleteDirectoryRequest{ComputerID: computer.ID, DirectoryID: root, Recursive: true})
	requireCode(t, err, vfs.CodePermissionDenied)
}

// TestAuditTrail verifies each call leaves one entry with its outcome.
func TestAuditTrail(t *testing.T) {
	st := vfstest.NewStack(t)
	token := st.User(t, "alice_01", "pw")

	_, err := st.Services.Account.Login(vfstest.Ctx(""), &service.LoginRequest{Username: "alice_01", Password: "bad"})
	require.Error(t, err)

	entries, err := st.Audit.List(context.Background(), "alice_01", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	latest := entries[0]
	require.Equal(t, "Login", latest.Type)
	require.False(t, latest.Success)
	require.Equal(t, vfstest.Address, latest.Address)
	require.Equal(t, "UNAUTHENTICATED: invalid username or password", latest.Detail)

	st.Computer(t, token)
	entries, err = st.Audit.List(context.Background(), "alice_01", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "GetMyComputer", entries[0].Type)
	require.True(t, entries[0].Success)
}

// TestConcurrentModifyDataFile verifies overlapping writes to one file all
// succeed and the file ends with one of the written payloads.
func TestConcurrentModifyDataFile(t *testing.T) {
	st := vfstest.NewStack(t)
	token := st.User(t, "alice_01", "pw")
	ctx := vfstest.Ctx(token)
	computer := st.Computer(t, token)
	fs := st.Services.Filesystem

	file, err := fs.CreateFile(ctx, &service.CreateFileRequest{
		ComputerID: computer.ID,
		ParentID:   computer.RootDirectory,
		Name:       "shared",
		Type:       model.FileTypeData,
	})
	require.NoError(t, err)

	payloads := [][]byte{[]byte("v1"), []byte("v2"), []byte("v3"), []byte("v4")}
	var pool errgroup.Group
	for _, data := range payloads {
		pool.Go(func() error {
			_, err := fs.ModifyDataFile(ctx, &service.ModifyDataFileRequest{
				ComputerID: computer.ID,
				FileID:     file.ID,
				Data:       data,
			})
			return err
		})
	}
	require.NoError(t, pool.Wait())

	read, err := fs.ReadDataFile(ctx, &service.FileRequest{ComputerID: computer.ID, FileID: file.ID})
	require.NoError(t, err)
	require.Contains(t, payloads, read.Data)
}
