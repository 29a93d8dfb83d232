package router

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vango-dev/waypoint/pkg/pattern"
)

// Params maps parameter names to decoded values. A splat is stored
// under "*".
type Params map[string]string

// Get returns the named value or "".
func (p Params) Get(name string) string {
	return p[name]
}

// Splat returns the splat value.
func (p Params) Splat() string {
	return p[pattern.SplatParam]
}

// Clone returns a copy; a nil Params clones to an empty one.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Decode populates a struct with values from the params.
// The target must be a pointer to a struct with `param` tags:
//
//	var p struct {
//	    ID   int      `param:"id"`
//	    Path []string `param:"*"`
//	}
//	err := match.Params.Decode(&p)
func (p Params) Decode(target any) error {
	if target == nil {
		return nil
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer, got %s", v.Kind())
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct, got pointer to %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("param")
		if name == "" {
			continue
		}

		value, ok := p[name]
		if !ok {
			continue
		}

		fieldValue := v.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if err := setField(fieldValue, value); err != nil {
			return fmt.Errorf("parsing param %q: %w", name, err)
		}
	}

	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		// Splats: "a/b/c" → ["a", "b", "c"]
		var parts []string
		if value != "" {
			parts = strings.Split(value, "/")
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}

	return nil
}

// ParamTypes accepted in Route.ParamTypes.
var paramTypes = map[string]bool{
	"": true, "string": true,
	"int": true, "int64": true, "int32": true, "int16": true, "int8": true,
	"uint": true, "uint64": true, "uint32": true, "uint16": true, "uint8": true,
	"uuid": true,
}

// IsKnownParamType reports whether t can be used in Route.ParamTypes.
func IsKnownParamType(t string) bool {
	return paramTypes[t]
}

// ValidateParam validates a parameter value against its expected type.
func ValidateParam(value, paramType string) error {
	switch paramType {
	case "int", "int64", "int32", "int16", "int8":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
	case "uint", "uint64", "uint32", "uint16", "uint8":
		if _, err := strconv.ParseUint(value, 10, 64); err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
	case "uuid":
		if _, err := uuid.Parse(value); err != nil {
			return fmt.Errorf("invalid UUID: %s", value)
		}
	}
	return nil
}
