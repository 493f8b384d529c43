package interpolation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

const tagName = "env_interpolation"

// InterpolateStruct expands environment variable references in the fields of
// the struct v points to that are tagged `env_interpolation:"yes"`. String
// fields, string slices and nested (pointer to) structs are supported; the
// nested struct field itself must carry the tag for its fields to be visited.
func InterpolateStruct(v any) error {
	if v == nil {
		return nil
	}

	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("expected pointer to struct, got %T", v)
	}
	if val.IsNil() {
		return nil
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("expected pointer to struct, got %T", v)
	}

	typ := val.Type()
	var errs []error

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		meta := typ.Field(i)

		if !field.CanSet() || !strings.EqualFold(meta.Tag.Get(tagName), "yes") {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if err := expandValue(field); err != nil {
				errs = append(errs, fmt.Errorf("field %s: %w", meta.Name, err))
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < field.Len(); j++ {
				if err := expandValue(field.Index(j)); err != nil {
					errs = append(errs, fmt.Errorf("field %s[%d]: %w", meta.Name, j, err))
				}
			}

		case reflect.Struct:
			if err := InterpolateStruct(field.Addr().Interface()); err != nil {
				errs = append(errs, fmt.Errorf("field %s: %w", meta.Name, err))
			}

		case reflect.Ptr:
			if field.IsNil() || field.Type().Elem().Kind() != reflect.Struct {
				continue
			}
			if err := InterpolateStruct(field.Interface()); err != nil {
				errs = append(errs, fmt.Errorf("field %s: %w", meta.Name, err))
			}
		}
	}

	return errors.Join(errs...)
}

func expandValue(v reflect.Value) error {
	original := v.String()
	if original == "" {
		return nil
	}
	expanded, err := ExpandEnvVars(original)
	if err != nil {
		return err
	}
	v.SetString(expanded)
	return nil
}
