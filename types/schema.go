package types

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/frostbytespace/hiven-go/errors"
)

// compileSchema compiles a JSON schema document at package init. The schemas
// are fixed, so a compilation failure is a programming error.
func compileSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("types: invalid schema: %v", err))
	}
	return schema
}

// validateRecord checks a record against the given kind's schema. Violations
// surface as malformed-payload errors carrying every failed field.
func validateRecord(schema *gojsonschema.Schema, kind string, r Record) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(r))
	if err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err),
			"types", "validateRecord", "load "+kind+" payload")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s schema violation: %s", errors.ErrMalformedPayload, kind, strings.Join(details, "; ")),
			"types", "validateRecord", "validate "+kind+" payload")
	}
	return nil
}

// malformed builds a malformed-payload error for coercion and discriminant
// failures outside schema validation.
func malformed(kind string, cause error) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s: %v", errors.ErrMalformedPayload, kind, cause),
		"types", "Normalize", "normalize "+kind+" payload")
}

// flattenRef replaces an embedded object under objKey with its id stored
// under idKey. The extracted embedded record, if any, is returned so the
// caller can upsert it into its own partition.
func flattenRef(r Record, objKey, idKey, kind string) (Record, error) {
	v, ok := r[objKey]
	if !ok || v == nil {
		return nil, nil
	}

	switch val := v.(type) {
	case map[string]any:
		id, ok := asString(val["id"])
		if !ok {
			return nil, malformed(kind, fmt.Errorf("embedded %s has no usable id", objKey))
		}
		if _, present := r[idKey]; !present || r[idKey] == nil || r[idKey] == "" {
			r[idKey] = id
		}
		if objKey == idKey {
			r[objKey] = id
		} else {
			delete(r, objKey)
		}
		return CopyRecord(val), nil
	case string:
		if _, present := r[idKey]; !present || r[idKey] == nil || r[idKey] == "" {
			r[idKey] = val
		}
		if objKey != idKey {
			delete(r, objKey)
		}
		return nil, nil
	default:
		if s, ok := asString(val); ok {
			r[idKey] = s
			if objKey != idKey {
				delete(r, objKey)
			}
			return nil, nil
		}
		return nil, malformed(kind, fmt.Errorf("field %q is neither an object nor an id", objKey))
	}
}
