// Package hashdesc maps Go structs onto Redis hashes.
//
// A struct describes its hash layout with `redis` tags:
//
//	type Account struct {
//	    ID       int64  `redis:"id"`
//	    Username string `redis:"username,maxlen=32"`
//	    Password string `redis:"-"`
//	}
//
// Fields without a tag, or tagged "-", are not part of the hash. The
// resulting Table is computed once per type and cached.
package hashdesc

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag read by Describe.
const TagName = "redis"

var (
	ErrNotStruct       = errors.New("hashdesc: type is not a struct")
	ErrNoFields        = errors.New("hashdesc: no mapped fields")
	ErrDuplicateField  = errors.New("hashdesc: duplicate field name")
	ErrUnsupportedKind = errors.New("hashdesc: unsupported field kind")
	ErrInvalidTag      = errors.New("hashdesc: invalid tag")
	ErrUnknownField    = errors.New("hashdesc: unknown field")
	ErrInvalidTarget   = errors.New("hashdesc: target must be a non-nil pointer to the described struct")
	ErrDecode          = errors.New("hashdesc: cannot decode value")
)

// Kind is the storage class of a mapped field.
type Kind int

const (
	String Kind = iota + 1
	Int
	Uint
	Float
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Field describes one hash field.
type Field struct {
	Name   string
	Index  int
	Kind   Kind
	MaxLen int // 0 means unbounded; only meaningful for String
}

// Table is the hash layout of a struct type.
type Table struct {
	typ    reflect.Type
	fields []Field
	byName map[string]int
}

var tables sync.Map // reflect.Type -> *Table

// Of returns the table for v, which must be a struct or a pointer to one.
func Of(v interface{}) (*Table, error) {
	if v == nil {
		return nil, ErrNotStruct
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return Describe(t)
}

// Describe builds (or fetches from cache) the table for struct type t.
func Describe(t reflect.Type) (*Table, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}
	if cached, ok := tables.Load(t); ok {
		return cached.(*Table), nil
	}

	table := &Table{typ: t, byName: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(TagName)
		if !ok || tag == "-" || !sf.IsExported() {
			continue
		}

		f, err := parseField(sf, tag)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
		f.Index = i

		if _, dup := table.byName[f.Name]; dup {
			return nil, fmt.Errorf("%s.%s: %w: %q", t.Name(), sf.Name, ErrDuplicateField, f.Name)
		}
		table.byName[f.Name] = len(table.fields)
		table.fields = append(table.fields, f)
	}
	if len(table.fields) == 0 {
		return nil, fmt.Errorf("%s: %w", t.Name(), ErrNoFields)
	}

	actual, _ := tables.LoadOrStore(t, table)
	return actual.(*Table), nil
}

func parseField(sf reflect.StructField, tag string) (Field, error) {
	parts := strings.Split(tag, ",")
	f := Field{Name: parts[0]}
	if f.Name == "" {
		f.Name = strings.ToLower(sf.Name)
	}

	for _, opt := range parts[1:] {
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "maxlen":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return Field{}, fmt.Errorf("%w: maxlen=%q", ErrInvalidTag, val)
			}
			f.MaxLen = n
		default:
			return Field{}, fmt.Errorf("%w: unknown option %q", ErrInvalidTag, key)
		}
	}

	switch sf.Type.Kind() {
	case reflect.String:
		f.Kind = String
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.Kind = Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f.Kind = Uint
	case reflect.Float32, reflect.Float64:
		f.Kind = Float
	case reflect.Bool:
		f.Kind = Bool
	default:
		return Field{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, sf.Type)
	}
	if f.MaxLen > 0 && f.Kind != String {
		return Field{}, fmt.Errorf("%w: maxlen on %s field", ErrInvalidTag, f.Kind)
	}
	return f, nil
}

// Type returns the described struct type.
func (t *Table) Type() reflect.Type { return t.typ }

// Len returns the number of mapped fields.
func (t *Table) Len() int { return len(t.fields) }

// Lookup finds a field by hash field name.
func (t *Table) Lookup(name string) (Field, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Field{}, false
	}
	return t.fields[i], true
}

// Fields returns the mapped fields in declaration order.
func (t *Table) Fields() []Field {
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Names returns the hash field names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		out[i] = f.Name
	}
	return out
}

// Check reports ErrUnknownField for the first name not in the table.
func (t *Table) Check(names ...string) error {
	for _, name := range names {
		if _, ok := t.byName[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}
	return nil
}

// Encode returns alternating field/value arguments for the named fields
// of v, or for every field when names is empty. Empty strings are skipped
// and strings longer than their maxlen are truncated.
func (t *Table) Encode(v interface{}, names ...string) ([]interface{}, error) {
	rv, err := t.value(v, false)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = t.Names()
	} else if err := t.Check(names...); err != nil {
		return nil, err
	}

	args := make([]interface{}, 0, 2*len(names))
	for _, name := range names {
		f := t.fields[t.byName[name]]
		s, ok := encodeValue(f, rv.Field(f.Index))
		if !ok {
			continue
		}
		args = append(args, f.Name, s)
	}
	return args, nil
}

func encodeValue(f Field, fv reflect.Value) (string, bool) {
	switch f.Kind {
	case String:
		s := fv.String()
		if s == "" {
			return "", false
		}
		return truncate(s, f.MaxLen), true
	case Int:
		return strconv.FormatInt(fv.Int(), 10), true
	case Uint:
		return strconv.FormatUint(fv.Uint(), 10), true
	case Float:
		return strconv.FormatFloat(fv.Float(), 'f', -1, fv.Type().Bits()), true
	case Bool:
		if fv.Bool() {
			return "1", true
		}
		return "0", true
	}
	return "", false
}

// Decode stores values (keyed by hash field name) into dst, a pointer to
// the described struct. Keys that are not table fields are ignored.
func (t *Table) Decode(dst interface{}, values map[string]string) error {
	rv, err := t.value(dst, true)
	if err != nil {
		return err
	}

	for name, raw := range values {
		i, ok := t.byName[name]
		if !ok {
			continue
		}
		f := t.fields[i]
		fv := rv.Field(f.Index)
		if err := mapstructure.WeakDecode(raw, fv.Addr().Interface()); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrDecode, name, err)
		}
		if f.Kind == String && f.MaxLen > 0 {
			fv.SetString(truncate(fv.String(), f.MaxLen))
		}
	}
	return nil
}

// Zero resets the named fields of dst, or every mapped field when names is
// empty.
func (t *Table) Zero(dst interface{}, names ...string) error {
	rv, err := t.value(dst, true)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = t.Names()
	} else if err := t.Check(names...); err != nil {
		return err
	}

	for _, name := range names {
		fv := rv.Field(t.fields[t.byName[name]].Index)
		fv.Set(reflect.Zero(fv.Type()))
	}
	return nil
}

func (t *Table) value(v interface{}, settable bool) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Value{}, ErrInvalidTarget
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, ErrInvalidTarget
		}
		rv = rv.Elem()
	} else if settable {
		return reflect.Value{}, ErrInvalidTarget
	}
	if rv.Type() != t.typ {
		return reflect.Value{}, fmt.Errorf("%w: got %s, table describes %s", ErrInvalidTarget, rv.Type(), t.typ)
	}
	return rv, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
