package store

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// ValidateDocumentPath checks that path names a document: collection/id pairs without wildcards
func ValidateDocumentPath(path string) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segments)%2 != 0 {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, path)
	}
	for _, s := range segments {
		if s == "*" {
			return fmt.Errorf("%w: wildcard in document path %q", ErrInvalidPath, path)
		}
	}
	return nil
}

func validateCollectionPattern(pattern string) error {
	segments, err := splitPath(pattern)
	if err != nil {
		return err
	}
	if len(segments)%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, pattern)
	}
	for i, s := range segments {
		if s == "*" && i%2 == 0 {
			return fmt.Errorf("%w: wildcard collection name in %q", ErrInvalidPath, pattern)
		}
	}
	return nil
}

// CollectionOf returns the collection a document path belongs to
func CollectionOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// GroupOf replaces every document id of a collection path with "*"
func GroupOf(collection string) string {
	segments := strings.Split(collection, "/")
	for i := 1; i < len(segments); i += 2 {
		segments[i] = "*"
	}
	return strings.Join(segments, "/")
}

// CollectionMatches reports whether a concrete collection path matches a pattern
func CollectionMatches(pattern, collection string) bool {
	if pattern == collection {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}

	ps := strings.Split(pattern, "/")
	cs := strings.Split(collection, "/")
	if len(ps) != len(cs) {
		return false
	}
	for i := range ps {
		if ps[i] != "*" && ps[i] != cs[i] {
			return false
		}
	}
	return true
}

func validateQuery(q Query) error {
	if err := validateCollectionPattern(q.Collection); err != nil {
		return err
	}
	for _, f := range q.Filters {
		if !fieldNamePattern.MatchString(f.Field) {
			return fmt.Errorf("%w: field %q", ErrInvalidQuery, f.Field)
		}
		switch f.Op {
		case OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
		if _, ok := normalizeValue(f.Value); !ok {
			return fmt.Errorf("%w: unsupported value %v for field %q", ErrInvalidQuery, f.Value, f.Field)
		}
	}
	for _, o := range q.OrderBy {
		if !fieldNamePattern.MatchString(o.Field) {
			return fmt.Errorf("%w: order field %q", ErrInvalidQuery, o.Field)
		}
	}
	if strings.Contains(q.IDPrefix, "/") {
		return fmt.Errorf("%w: id prefix %q", ErrInvalidQuery, q.IDPrefix)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

func validateOps(ops []Op) error {
	for _, op := range ops {
		if err := ValidateDocumentPath(op.Path); err != nil {
			return err
		}
		switch op.Kind {
		case OpSet, OpDelete:
		case OpIncrement:
			if !fieldNamePattern.MatchString(op.Field) {
				return fmt.Errorf("%w: increment field %q", ErrInvalidOp, op.Field)
			}
		default:
			return fmt.Errorf("%w: kind %q", ErrInvalidOp, op.Kind)
		}
	}
	return nil
}

// normalizeValue maps scalar values, including named types such as domain.FID,
// onto the float64/string/bool forms documents hold after a JSON round trip
func normalizeValue(v interface{}) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	default:
		return nil, false
	}
}

// compareValues returns the ordering of two normalized values and whether they are comparable
func compareValues(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

func matchFilter(data Fields, f Filter) bool {
	actual, ok := data[f.Field]
	if !ok {
		return false
	}
	expected, _ := normalizeValue(f.Value)

	c, ok := compareValues(actual, expected)
	if !ok {
		return false
	}

	switch f.Op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpLess:
		return c < 0
	case OpLessOrEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterOrEqual:
		return c >= 0
	default:
		return false
	}
}

func matchDocument(doc Document, q Query) bool {
	if !strings.HasPrefix(doc.ID(), q.IDPrefix) {
		return false
	}
	for _, f := range q.Filters {
		if !matchFilter(doc.Data, f) {
			return false
		}
	}
	for _, o := range q.OrderBy {
		if _, ok := doc.Data[o.Field]; !ok {
			return false
		}
	}
	return true
}

// applyQuery filters, sorts and limits documents already scoped to the query collection.
// Ties are broken by path so every backend returns the same order.
func applyQuery(docs []Document, q Query) []Document {
	result := make([]Document, 0, len(docs))
	for _, d := range docs {
		if matchDocument(d, q) {
			result = append(result, d)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		for _, o := range q.OrderBy {
			c, ok := compareValues(result[i].Data[o.Field], result[j].Data[o.Field])
			if !ok || c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return result[i].Path < result[j].Path
	})

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result
}

// write is the resulting state of one document after a batch
type write struct {
	Path    string
	Data    Fields
	Deleted bool
}

type pendingDoc struct {
	data   Fields
	exists bool
}

// applyOps runs ops in order against the current documents provided by load,
// returning the final state of every touched path in first-touch order
func applyOps(ops []Op, load func(path string) (Fields, bool, error)) ([]write, error) {
	state := make(map[string]*pendingDoc, len(ops))
	order := make([]string, 0, len(ops))

	get := func(path string) (*pendingDoc, error) {
		if p, ok := state[path]; ok {
			return p, nil
		}
		data, exists, err := load(path)
		if err != nil {
			return nil, err
		}
		p := &pendingDoc{data: data, exists: exists}
		state[path] = p
		order = append(order, path)
		return p, nil
	}

	for _, op := range ops {
		p, err := get(op.Path)
		if err != nil {
			return nil, err
		}

		switch op.Kind {
		case OpSet:
			next, err := CloneFields(op.Fields)
			if err != nil {
				return nil, err
			}
			if op.Merge && p.exists {
				merged := copyFields(p.data)
				for k, v := range next {
					merged[k] = v
				}
				next = merged
			}
			p.data, p.exists = next, true

		case OpDelete:
			p.data, p.exists = nil, false

		case OpIncrement:
			current := 0.0
			if p.exists {
				if v, ok := p.data[op.Field]; ok {
					f, ok := v.(float64)
					if !ok {
						return nil, fmt.Errorf("%w: field %q of %s is not numeric", ErrInvalidOp, op.Field, op.Path)
					}
					current = f
				}
			}

			next := math.Max(current+float64(op.Delta), 0)
			if op.DeleteAtZero && next <= 0 {
				p.data, p.exists = nil, false
				continue
			}

			data := copyFields(p.data)
			data[op.Field] = next
			p.data, p.exists = data, true
		}
	}

	writes := make([]write, 0, len(order))
	for _, path := range order {
		p := state[path]
		writes = append(writes, write{Path: path, Data: p.data, Deleted: !p.exists})
	}
	return writes, nil
}

// touchedCollections lists the distinct collections of the written paths
func touchedCollections(writes []write) []string {
	seen := make(map[string]struct{}, len(writes))
	collections := make([]string, 0, len(writes))
	for _, w := range writes {
		c := CollectionOf(w.Path)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		collections = append(collections, c)
	}
	sort.Strings(collections)
	return collections
}

func copyFields(f Fields) Fields {
	out := make(Fields, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// CloneFields deep-copies fields through JSON, normalizing numbers to float64
func CloneFields(f Fields) (Fields, error) {
	if f == nil {
		return Fields{}, nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOp, err)
	}
	return decodeFields(raw)
}

func decodeFields(raw []byte) (Fields, error) {
	var out Fields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if out == nil {
		out = Fields{}
	}
	return out, nil
}

// Encode converts a struct into document fields using its json tags
func Encode(v interface{}) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return decodeFields(raw)
}

// Decode fills a struct from document fields using its json tags
func Decode(data Fields, v interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}
