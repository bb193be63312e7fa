package value

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var cmutex sync.RWMutex
var cache = make(map[reflect.Type]*structInfo)

// structInfo holds the fields of a struct type that have a "db" tag, in
// declaration order.
type structInfo struct {
	fields []structField
}

type structField struct {
	// index is the position of the field in the struct.
	index     int
	name      string
	tag       string
	omitEmpty bool
}

// getStructInfo returns the structInfo of a struct type, generating and
// caching it as required.
func getStructInfo(t reflect.Type) (*structInfo, error) {
	cmutex.RLock()
	info, found := cache[t]
	cmutex.RUnlock()
	if found {
		return info, nil
	}

	info, err := generate(t)
	if err != nil {
		return nil, err
	}

	cmutex.Lock()
	cache[t] = info
	cmutex.Unlock()
	return info, nil
}

func generate(t reflect.Type) (*structInfo, error) {
	info := &structInfo{}
	tags := map[string]bool{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		// Fields without a "db" tag are not part of the keyed array.
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		if !field.IsExported() {
			return nil, fmt.Errorf("field %s of %s has a db tag but is not exported", field.Name, t)
		}
		tag, omitEmpty, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("field %s of %s: %w", field.Name, t, err)
		}
		if tags[tag] {
			return nil, fmt.Errorf("db tag %q appears more than once in %s", tag, t)
		}
		tags[tag] = true
		info.fields = append(info.fields, structField{
			index:     i,
			name:      field.Name,
			tag:       tag,
			omitEmpty: omitEmpty,
		})
	}
	if len(info.fields) == 0 {
		return nil, fmt.Errorf(`no "db" tags found in struct %s`, t)
	}
	return info, nil
}

// parseTag parses the input tag string and returns its name and whether it
// contains the "omitempty" option.
func parseTag(tag string) (string, bool, error) {
	options := strings.Split(tag, ",")

	var omitEmpty bool
	if len(options) > 1 {
		if strings.ToLower(options[1]) != "omitempty" || len(options) > 2 {
			return "", false, fmt.Errorf("unexpected tag value %q", strings.Join(options[1:], ","))
		}
		omitEmpty = true
	}
	if options[0] == "" {
		return "", false, fmt.Errorf("empty db tag name")
	}

	return options[0], omitEmpty, nil
}
