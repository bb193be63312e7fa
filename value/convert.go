package value

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Pair is a key and an arbitrary Go value.
type Pair struct {
	Key   string
	Value any
}

// Pairs converts to a keyed Value with its order preserved. Use it instead of
// a map when the order of the rendered pairs matters.
type Pairs []Pair

// TimeFormat is the layout used to render time.Time arguments as text.
const TimeFormat = "2006-01-02 15:04:05.999999"

var (
	valueType  = reflect.TypeOf(Value{})
	pairsType  = reflect.TypeOf(Pairs{})
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// Of converts a Go value into a Value:
//
//   - nil and nil pointers become Null;
//   - a Value is returned as is;
//   - a driver.Valuer is converted from the result of its Value method;
//   - booleans, integers, floats and strings become the matching scalar, byte
//     slices and times become text;
//   - slices and arrays become lists;
//   - Pairs become keyed arrays in order;
//   - maps with string keys become keyed arrays sorted by key; maps with
//     integer keys become lists when the keys are exactly 0..n-1 and keyed
//     arrays sorted by key otherwise;
//   - structs become keyed arrays of their fields tagged with `db`.
//
// A pointer, map or slice that contains itself is an error.
func Of(arg any) (Value, error) {
	var c converter
	return c.of(reflect.ValueOf(arg))
}

// visit identifies a pointer, map or slice being converted.
type visit struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// converter holds the pointers, maps and slices on the path from the
// argument to the value being converted.
type converter struct {
	path map[visit]struct{}
}

// enter adds rv to the path, failing if it is already on it.
func (c *converter) enter(rv reflect.Value) (visit, error) {
	v := visit{typ: rv.Type(), ptr: rv.Pointer()}
	if rv.Kind() == reflect.Slice {
		v.len = rv.Len()
	}
	if _, ok := c.path[v]; ok {
		return v, fmt.Errorf("%s contains itself", rv.Type())
	}
	if c.path == nil {
		c.path = make(map[visit]struct{})
	}
	c.path[v] = struct{}{}
	return v, nil
}

// guarded converts rv with convert while rv is on the path.
func (c *converter) guarded(rv reflect.Value, convert func(reflect.Value) (Value, error)) (Value, error) {
	v, err := c.enter(rv)
	if err != nil {
		return Value{}, err
	}
	defer delete(c.path, v)
	return convert(rv)
}

func (c *converter) of(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
	}

	switch t := rv.Type(); {
	case t == valueType:
		return rv.Interface().(Value), nil
	case t == pairsType:
		return c.guarded(rv, func(rv reflect.Value) (Value, error) { return c.ofPairs(rv.Interface().(Pairs)) })
	case t == timeType:
		return Text(rv.Interface().(time.Time).Format(TimeFormat)), nil
	case t.Implements(valuerType):
		dv, err := rv.Interface().(driver.Valuer).Value()
		if err != nil {
			return Value{}, fmt.Errorf("cannot get value of %s: %w", t, err)
		}
		if dv != nil && reflect.TypeOf(dv) == t {
			return Value{}, fmt.Errorf("%s returns itself as driver value", t)
		}
		return c.of(reflect.ValueOf(dv))
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return c.guarded(rv, func(rv reflect.Value) (Value, error) { return c.of(rv.Elem()) })
	case reflect.Interface:
		return c.of(rv.Elem())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", u)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Text(string(rv.Bytes())), nil
		}
		return c.guarded(rv, c.ofList)
	case reflect.Array:
		return c.ofList(rv)
	case reflect.Map:
		return c.guarded(rv, c.ofMap)
	case reflect.Struct:
		return c.ofStruct(rv)
	}
	return Value{}, fmt.Errorf("unsupported type %s", rv.Type())
}

func (c *converter) ofList(rv reflect.Value) (Value, error) {
	elems := make([]Value, rv.Len())
	for i := range elems {
		v, err := c.of(rv.Index(i))
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		elems[i] = v
	}
	return List(elems...), nil
}

func (c *converter) ofPairs(pairs Pairs) (Value, error) {
	fields := make([]Field, len(pairs))
	for i, p := range pairs {
		v, err := c.of(reflect.ValueOf(p.Value))
		if err != nil {
			return Value{}, fmt.Errorf("key %q: %w", p.Key, err)
		}
		fields[i] = Field{Key: p.Key, Value: v}
	}
	return Keyed(fields...), nil
}

func (c *converter) ofMap(rv reflect.Value) (Value, error) {
	keys := rv.MapKeys()
	switch rv.Type().Key().Kind() {
	case reflect.String:
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		fields := make([]Field, len(keys))
		for i, k := range keys {
			v, err := c.of(rv.MapIndex(k))
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k.String(), err)
			}
			fields[i] = Field{Key: k.String(), Value: v}
		}
		return Keyed(fields...), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return c.ofIntMap(rv, keys)
	}
	return Value{}, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
}

// ofIntMap converts a map with integer keys. Keys 0..n-1 form a list, any
// other set of keys a keyed array.
func (c *converter) ofIntMap(rv reflect.Value, keys []reflect.Value) (Value, error) {
	type entry struct {
		key int64
		val reflect.Value
	}
	entries := make([]entry, len(keys))
	for i, k := range keys {
		var n int64
		if k.CanInt() {
			n = k.Int()
		} else {
			u := k.Uint()
			if u > math.MaxInt64 {
				return Value{}, fmt.Errorf("map key %d overflows int64", u)
			}
			n = int64(u)
		}
		entries[i] = entry{key: n, val: rv.MapIndex(k)}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	sequential := true
	for i, e := range entries {
		if e.key != int64(i) {
			sequential = false
			break
		}
	}

	if sequential {
		elems := make([]Value, len(entries))
		for i, e := range entries {
			v, err := c.of(e.val)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = v
		}
		return List(elems...), nil
	}

	fields := make([]Field, len(entries))
	for i, e := range entries {
		key := strconv.FormatInt(e.key, 10)
		v, err := c.of(e.val)
		if err != nil {
			return Value{}, fmt.Errorf("key %s: %w", key, err)
		}
		fields[i] = Field{Key: key, Value: v}
	}
	return Keyed(fields...), nil
}

func (c *converter) ofStruct(rv reflect.Value) (Value, error) {
	info, err := getStructInfo(rv.Type())
	if err != nil {
		return Value{}, err
	}
	fields := make([]Field, 0, len(info.fields))
	for _, sf := range info.fields {
		fv := rv.Field(sf.index)
		if sf.omitEmpty && fv.IsZero() {
			continue
		}
		v, err := c.of(fv)
		if err != nil {
			return Value{}, fmt.Errorf("field %s: %w", sf.name, err)
		}
		fields = append(fields, Field{Key: sf.tag, Value: v})
	}
	return Keyed(fields...), nil
}
