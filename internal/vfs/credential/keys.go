// Package credential manages the signing key pair, password hashes and
// bearer tokens.
package credential

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync/atomic"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/library/log"
)

const (
	privateKeyFile = "signing_key.pem"
	publicKeyFile  = "signing_key.pub.pem"

	pemTypePrivate = "PRIVATE KEY"
	pemTypePublic  = "PUBLIC KEY"
)

// ErrCorruptedKeyMaterial means the persisted key pair is unusable.
var ErrCorruptedKeyMaterial = vfs.NewError(vfs.CodeInternal, "corrupted key material")

// KeyPair is the token signing pair.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// KeyStore lazily loads, or creates on first use, the key pair kept in dir.
type KeyStore struct {
	dir    string
	logger logSDK.Logger
	group  singleflight.Group
	pair   atomic.Pointer[KeyPair]
}

// NewKeyStore returns a key store rooted at dir. Nothing touches the disk
// until KeyPair is called.
func NewKeyStore(dir string, logger logSDK.Logger) (*KeyStore, error) {
	if dir == "" {
		return nil, errors.New("key directory is required")
	}
	if logger == nil {
		logger = log.Logger.Named("keystore")
	}

	return &KeyStore{dir: dir, logger: logger}, nil
}

// KeyPair returns the cached pair, loading or generating it on first call.
// Concurrent first callers share a single load.
func (k *KeyStore) KeyPair() (*KeyPair, error) {
	if pair := k.pair.Load(); pair != nil {
		return pair, nil
	}

	v, err, _ := k.group.Do("keypair", func() (any, error) {
		if pair := k.pair.Load(); pair != nil {
			return pair, nil
		}
		pair, err := k.loadOrCreate()
		if err != nil {
			return nil, err
		}
		k.pair.Store(pair)
		return pair, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*KeyPair), nil
}

func (k *KeyStore) loadOrCreate() (*KeyPair, error) {
	privPath := filepath.Join(k.dir, privateKeyFile)
	pubPath := filepath.Join(k.dir, publicKeyFile)

	privPEM, privErr := os.ReadFile(privPath)
	pubPEM, pubErr := os.ReadFile(pubPath)
	privMissing := errors.Is(privErr, os.ErrNotExist)
	pubMissing := errors.Is(pubErr, os.ErrNotExist)
	if privErr != nil && !privMissing {
		return nil, errors.Wrapf(privErr, "read %q", privPath)
	}
	if pubErr != nil && !pubMissing {
		return nil, errors.Wrapf(pubErr, "read %q", pubPath)
	}

	switch {
	case privMissing && pubMissing:
		return k.create(privPath, pubPath)
	case privMissing || pubMissing:
		k.logger.Error("only one half of the signing key pair exists",
			zap.Bool("private_missing", privMissing),
			zap.Bool("public_missing", pubMissing),
			zap.String("dir", k.dir))
		return nil, errors.Wrap(ErrCorruptedKeyMaterial, "incomplete key pair")
	}

	pair, err := decodeKeyPair(privPEM, pubPEM)
	if err != nil {
		return nil, err
	}
	k.logger.Info("load signing key pair", zap.String("dir", k.dir))
	return pair, nil
}

func (k *KeyStore) create(privPath, pubPath string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate ed25519 key")
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, errors.Wrap(err, "marshal private key")
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, errors.Wrap(err, "marshal public key")
	}

	if err = os.MkdirAll(k.dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create key directory %q", k.dir)
	}
	if err = os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: privDER}), 0o600); err != nil {
		return nil, errors.Wrapf(err, "write %q", privPath)
	}
	if err = os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: pubDER}), 0o644); err != nil {
		return nil, errors.Wrapf(err, "write %q", pubPath)
	}

	k.logger.Info("generate signing key pair", zap.String("dir", k.dir))
	return &KeyPair{Private: priv, Public: pub}, nil
}

func decodeKeyPair(privPEM, pubPEM []byte) (*KeyPair, error) {
	privBlock, _ := pem.Decode(privPEM)
	if privBlock == nil || privBlock.Type != pemTypePrivate {
		return nil, errors.Wrap(ErrCorruptedKeyMaterial, "decode private key pem")
	}
	pubBlock, _ := pem.Decode(pubPEM)
	if pubBlock == nil || pubBlock.Type != pemTypePublic {
		return nil, errors.Wrap(ErrCorruptedKeyMaterial, "decode public key pem")
	}

	rawPriv, err := x509.ParsePKCS8PrivateKey(privBlock.Bytes)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptedKeyMaterial, "parse private key")
	}
	priv, ok := rawPriv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.Wrap(ErrCorruptedKeyMaterial, "private key is not ed25519")
	}

	rawPub, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptedKeyMaterial, "parse public key")
	}
	pub, ok := rawPub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.Wrap(ErrCorruptedKeyMaterial, "public key is not ed25519")
	}

	if !bytes.Equal(priv.Public().(ed25519.PublicKey), pub) {
		return nil, errors.Wrap(ErrCorruptedKeyMaterial, "public key does not match private key")
	}

	return &KeyPair{Private: priv, Public: pub}, nil
}
