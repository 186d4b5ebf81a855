package badger

import (
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned when a key has no document.
var ErrNotFound = errors.New("document not found")

const keySeparator = "/"

// Session reads and writes raw values. Implementations are not safe for
// concurrent use.
type Session interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Iterate calls fn for every key starting with prefix, in key order.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// Key joins parts into a document key.
func Key(parts ...string) []byte {
	return []byte(strings.Join(parts, keySeparator))
}

// Prefix joins parts into a scan prefix that only matches keys below them.
func Prefix(parts ...string) []byte {
	return []byte(strings.Join(parts, keySeparator) + keySeparator)
}

type txnSession struct {
	txn *badger.Txn
}

// NewTxnSession adapts a badger transaction. The caller owns the
// transaction's lifecycle.
func NewTxnSession(txn *badger.Txn) Session {
	return &txnSession{txn: txn}
}

func (s *txnSession) Get(key []byte) ([]byte, error) {
	item, err := s.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %q", key)
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Wrapf(err, "read value of %q", key)
	}
	return val, nil
}

func (s *txnSession) Set(key, value []byte) error {
	if err := s.txn.Set(key, value); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

func (s *txnSession) Delete(key []byte) error {
	if err := s.txn.Delete(key); err != nil {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

func (s *txnSession) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := s.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return errors.Wrapf(err, "read value of %q", item.Key())
		}
		if err := fn(item.KeyCopy(nil), val); err != nil {
			return err
		}
	}

	return nil
}

// GetDoc decodes the document stored at key into out.
func GetDoc(s Session, key []byte, out any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %q", key)
	}
	return nil
}

// PutDoc encodes doc and stores it at key.
func PutDoc(s Session, key []byte, doc any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "encode %q", key)
	}
	return s.Set(key, raw)
}

// FindDocs decodes every document under prefix and keeps those accepted by
// match. A nil match keeps everything.
func FindDocs[T any](s Session, prefix []byte, match func(*T) bool) ([]*T, error) {
	var docs []*T
	err := s.Iterate(prefix, func(key, value []byte) error {
		doc := new(T)
		if err := bson.Unmarshal(value, doc); err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		if match == nil || match(doc) {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// FindOne returns the first document under prefix accepted by match.
func FindOne[T any](s Session, prefix []byte, match func(*T) bool) (*T, error) {
	var found *T
	errStop := errors.New("stop")
	err := s.Iterate(prefix, func(key, value []byte) error {
		doc := new(T)
		if err := bson.Unmarshal(value, doc); err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		if match == nil || match(doc) {
			found = doc
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}

	return found, nil
}
