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

// loadFromEnv walks the config struct and overrides any field whose `env`
// tag names a set environment variable. Nested structs are visited so each
// section declares its own HOLYFIT_* tags.
func loadFromEnv(cfg *Config) error {
	return overrideFromEnv(reflect.ValueOf(cfg).Elem())
}

func overrideFromEnv(v reflect.Value) error {
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct, got %s", v.Kind())
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		sf := t.Field(i)

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			if err := overrideFromEnv(field); err != nil {
				return err
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		if err := setField(field, sf, raw); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, sf reflect.StructField, raw string) error {
	if !field.CanSet() {
		return fmt.Errorf("field %s is not settable", sf.Name)
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
		if sf.Type == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid duration %q", raw)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", raw)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q", raw)
		}
		field.SetFloat(f)

	case reflect.Slice:
		if sf.Type.Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element %s", sf.Type.Elem().Kind())
		}
		// comma-separated list
		parts := strings.Split(raw, ",")
		out := reflect.MakeSlice(sf.Type, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			out = reflect.Append(out, reflect.ValueOf(p).Convert(sf.Type.Elem()))
		}
		field.Set(out)

	case reflect.Map:
		if sf.Type.Key().Kind() != reflect.String || sf.Type.Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported map %s -> %s", sf.Type.Key().Kind(), sf.Type.Elem().Kind())
		}
		// key=value,key=value
		out := reflect.MakeMap(sf.Type)
		for _, pair := range strings.Split(raw, ",") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) != 2 {
				return fmt.Errorf("invalid map entry %q", pair)
			}
			out.SetMapIndex(reflect.ValueOf(kv[0]), reflect.ValueOf(kv[1]))
		}
		field.Set(out)

	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}

	return nil
}
