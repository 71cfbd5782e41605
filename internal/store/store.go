package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidPath is returned for malformed document or collection paths
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidOp is returned for batch operations that cannot be applied
	ErrInvalidOp = errors.New("invalid operation")
	// ErrInvalidQuery is returned for unsupported filters or orderings
	ErrInvalidQuery = errors.New("invalid query")
)

// Fields is the content of a document. Numbers are normalized to float64.
type Fields map[string]interface{}

// Document is a stored document with its full path
type Document struct {
	Path string
	Data Fields
}

// ID returns the last path segment of the document
func (d Document) ID() string {
	return d.Path[strings.LastIndex(d.Path, "/")+1:]
}

// OpKind is the kind of write in a batch
type OpKind string

const (
	OpSet       OpKind = "set"
	OpDelete    OpKind = "delete"
	OpIncrement OpKind = "increment"
)

// Op is one write in an atomic batch
type Op struct {
	Kind OpKind
	Path string

	// Fields and Merge apply to OpSet. Merge replaces only the given top-level fields.
	Fields Fields
	Merge  bool

	// Field, Delta and DeleteAtZero apply to OpIncrement.
	// The result is floored at 0. With DeleteAtZero the document is removed when it reaches 0.
	Field        string
	Delta        int64
	DeleteAtZero bool
}

// SetOp creates a set operation
func SetOp(path string, fields Fields, merge bool) Op {
	return Op{Kind: OpSet, Path: path, Fields: fields, Merge: merge}
}

// DeleteOp creates a delete operation
func DeleteOp(path string) Op {
	return Op{Kind: OpDelete, Path: path}
}

// IncrementOp creates an increment operation
func IncrementOp(path, field string, delta int64, deleteAtZero bool) Op {
	return Op{Kind: OpIncrement, Path: path, Field: field, Delta: delta, DeleteAtZero: deleteAtZero}
}

// FilterOp is a comparison operator
type FilterOp string

const (
	OpEqual          FilterOp = "=="
	OpNotEqual       FilterOp = "!="
	OpLess           FilterOp = "<"
	OpLessOrEqual    FilterOp = "<="
	OpGreater        FilterOp = ">"
	OpGreaterOrEqual FilterOp = ">="
)

// Filter compares a top-level field against a value.
// Documents without the field never match.
type Filter struct {
	Field string
	Op    FilterOp
	Value interface{}
}

// Order sorts by a top-level field. Documents without the field are excluded.
type Order struct {
	Field string
	Desc  bool
}

// Query selects documents of a collection. Collection may be a group pattern
// with "*" in place of document ids, e.g. "users/*/likes".
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    []Order
	// IDPrefix keeps only documents whose id starts with it
	IDPrefix string
	// Limit of 0 means unlimited
	Limit int
}

// Where returns a copy of the query with an extra filter
func (q Query) Where(field string, op FilterOp, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Order returns a copy of the query with an extra ordering
func (q Query) Order(field string, desc bool) Query {
	q.OrderBy = append(append([]Order(nil), q.OrderBy...), Order{Field: field, Desc: desc})
	return q
}

// WithIDPrefix returns a copy of the query restricted to document ids starting with prefix
func (q Query) WithIDPrefix(prefix string) Query {
	q.IDPrefix = prefix
	return q
}

// WithLimit returns a copy of the query with the limit set
func (q Query) WithLimit(limit int) Query {
	q.Limit = limit
	return q
}

// Store is the document store the ledger persists through
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Get returns the document at path, or nil when it does not exist
	Get(ctx context.Context, path string) (*Document, error)
	// Set writes the document, replacing it unless merge is true
	Set(ctx context.Context, path string, fields Fields, merge bool) error
	// Delete removes the document; deleting a missing document is not an error
	Delete(ctx context.Context, path string) error
	// AtomicIncrement adds delta to a numeric field, creating the document when missing
	AtomicIncrement(ctx context.Context, path, field string, delta int64) error
	// CommitBatch applies every op or none of them
	CommitBatch(ctx context.Context, ops []Op) error
	// Query returns the documents selected by the query
	Query(ctx context.Context, q Query) ([]Document, error)
	// Subscribe delivers the query result now and again after every matching change,
	// until the returned func is called or ctx is done
	Subscribe(ctx context.Context, q Query, onChange func([]Document)) (func(), error)
	// Close releases the store's resources
	Close() error
}
