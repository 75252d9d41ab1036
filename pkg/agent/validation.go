package agent

import (
	"encoding/json"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateFunc validates data against a JSON schema (bytes) and returns an
// error on failure. Validation of tool arguments happens here, upstream of
// the handlers themselves.
type ValidateFunc func(schema []byte, data any) error

// JSONSchemaValidator is a ValidateFunc using jsonschema/v6. An empty schema
// accepts everything.
func JSONSchemaValidator(schema []byte, data any) error {
	sch, err := compileSchema(schema)
	if err != nil || sch == nil {
		return err
	}
	// Round-trip to generic JSON values for validation.
	b, _ := json.Marshal(data)
	var v any
	_ = json.Unmarshal(b, &v)
	return sch.Validate(v)
}

// CompileJSONSchema reports whether the schema itself is well-formed without
// validating any instance data.
func CompileJSONSchema(schema []byte) error {
	_, err := compileSchema(schema)
	return err
}

func compileSchema(schema []byte) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("mem://schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("mem://schema.json")
}
