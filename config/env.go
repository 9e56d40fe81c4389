package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// loadFromEnv overrides fields tagged `env:"NAME"` with set, non-empty variables.
func loadFromEnv(cfg *Config) error {
	return applyEnv(reflect.ValueOf(cfg).Elem(), os.LookupEnv)
}

// applyEnv walks v depth-first; nested structs are visited whether or not they carry a tag.
func applyEnv(v reflect.Value, lookup func(string) (string, bool)) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field, meta := v.Field(i), t.Field(i)
		if !meta.IsExported() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, lookup); err != nil {
				return err
			}
			continue
		}
		name := meta.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := lookup(name)
		if !ok || raw == "" {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q", raw)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", raw)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float %q", raw)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem().Kind())
		}
		parts := splitList(raw)
		out := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			out.Index(i).SetString(p)
		}
		field.Set(out)
	case reflect.Map:
		if field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported map type %s", field.Type())
		}
		out := reflect.MakeMap(field.Type())
		for _, pair := range splitList(raw) {
			k, val, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("invalid map entry %q, want key=value", pair)
			}
			out.SetMapIndex(reflect.ValueOf(strings.TrimSpace(k)), reflect.ValueOf(strings.TrimSpace(val)))
		}
		field.Set(out)
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
