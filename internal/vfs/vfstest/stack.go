// Package vfstest builds a complete in-memory service stack for tests.
package vfstest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/audit"
	"github.com/Laisky/laisky-vfs/internal/vfs/credential"
	"github.com/Laisky/laisky-vfs/internal/vfs/service"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// Address is the caller address attached by Ctx.
const Address = "192.0.2.10:4242"

// Stack is a wired set of services over an in-memory store.
type Stack struct {
	DB       *docdb.DB
	Issuer   *credential.Issuer
	Audit    *audit.StoreSink
	Services *service.Services
}

// NewStack builds a stack whose resources are released with t.
func NewStack(t *testing.T) *Stack {
	t.Helper()

	db, err := docdb.Open(context.Background(), docdb.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	keys, err := credential.NewKeyStore(t.TempDir(), nil)
	require.NoError(t, err)

	settings := vfs.DefaultSettings()
	issuer, err := credential.NewIssuer(keys, time.Hour, settings.TokenIssuer, nil)
	require.NoError(t, err)

	sink, err := audit.NewStoreSink(db)
	require.NoError(t, err)
	recorder, err := audit.NewRecorder(sink, nil, nil)
	require.NoError(t, err)

	svcs, err := service.New(service.Options{
		DB:       db,
		Issuer:   issuer,
		Recorder: recorder,
		Settings: settings,
	})
	require.NoError(t, err)

	return &Stack{DB: db, Issuer: issuer, Audit: sink, Services: svcs}
}

// Ctx returns a context carrying token as the caller's credential.
func Ctx(token string) context.Context {
	return service.WithCaller(context.Background(), service.Caller{Token: token, Address: Address})
}

// Login returns a token for username.
func (s *Stack) Login(t *testing.T, username, password string) string {
	t.Helper()
	resp, err := s.Services.Account.Login(Ctx(""), &service.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	require.True(t, resp.Success)
	return resp.Token
}

// Admin creates an admin account and returns its token.
func (s *Stack) Admin(t *testing.T, username, password string) string {
	t.Helper()
	require.NoError(t, s.Services.Account.CreateAdmin(context.Background(), username, password))
	return s.Login(t, username, password)
}

// User registers a user account with a fresh activation code and returns
// its token.
func (s *Stack) User(t *testing.T, username, password string) string {
	t.Helper()
	codes, err := s.Services.Account.CreateActivationCodes(context.Background(), 1)
	require.NoError(t, err)

	_, err = s.Services.Account.Register(Ctx(""), &service.RegisterRequest{
		Username:       username,
		Password:       password,
		ActivationCode: codes[0],
	})
	require.NoError(t, err)
	return s.Login(t, username, password)
}

// Computer returns the caller's computer.
func (s *Stack) Computer(t *testing.T, token string) *service.ComputerInfo {
	t.Helper()
	info, err := s.Services.Computer.GetMyComputer(Ctx(token), &service.GetMyComputerRequest{})
	require.NoError(t, err)
	return info
}
