package validation

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	contextutils "surveyapp/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Schema names for request bodies
const (
	SchemaCredentials   = "Credentials"
	SchemaSurveyRequest = "SurveyRequest"
	SchemaAnswerRequest = "AnswerRequest"
)

//go:embed schemas/api.yaml
var schemaFS embed.FS

// SchemaLoader holds compiled JSON schemas keyed by component name
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaLoader compiles the embedded request schemas
func NewSchemaLoader() (*SchemaLoader, error) {
	data, err := schemaFS.ReadFile("schemas/api.yaml")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read embedded schemas")
	}
	return LoadSchemas(data)
}

// LoadSchemas compiles every entry of components.schemas in an OpenAPI style YAML document
func LoadSchemas(document []byte) (*SchemaLoader, error) {
	var doc struct {
		Components struct {
			Schemas map[string]interface{} `yaml:"schemas"`
		} `yaml:"components"`
	}
	if err := yaml.Unmarshal(document, &doc); err != nil {
		return nil, contextutils.WrapError(err, "failed to parse schema document as YAML")
	}
	if len(doc.Components.Schemas) == 0 {
		return nil, contextutils.ErrorWithContextf("no schemas section found in schema document")
	}

	converted := make(map[string]interface{}, len(doc.Components.Schemas))
	for name, schema := range doc.Components.Schemas {
		converted[name] = convertNullable(schema)
	}

	sl := &SchemaLoader{schemas: make(map[string]*gojsonschema.Schema, len(converted))}
	for name := range converted {
		// Each schema is compiled with the full components block so $ref resolves
		complete := map[string]interface{}{
			"$schema":    "http://json-schema.org/draft-07/schema#",
			"components": map[string]interface{}{"schemas": converted},
			"$ref":       "#/components/schemas/" + name,
		}
		raw, err := json.Marshal(complete)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to marshal schema %s", name)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to compile schema %s", name)
		}
		sl.schemas[name] = schema
	}

	return sl, nil
}

// convertNullable rewrites OpenAPI "nullable: true" into a JSON schema type union with null
func convertNullable(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		nullable := false
		for key, val := range v {
			if key == "nullable" {
				if b, ok := val.(bool); ok && b {
					nullable = true
				}
				continue
			}
			result[key] = convertNullable(val)
		}
		if nullable {
			switch t := result["type"].(type) {
			case string:
				result["type"] = []interface{}{t, "null"}
			case []interface{}:
				result["type"] = append(t, "null")
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = convertNullable(val)
		}
		return result
	default:
		return data
	}
}

// Has reports whether a schema with the given name was loaded
func (sl *SchemaLoader) Has(schemaName string) bool {
	_, ok := sl.schemas[schemaName]
	return ok
}

// ValidateJSON checks a raw JSON body against the named schema.
// Malformed JSON is INVALID_INPUT; schema violations are VALIDATION_FAILED with one message per field.
func (sl *SchemaLoader) ValidateJSON(schemaName string, body []byte) error {
	schema, ok := sl.schemas[schemaName]
	if !ok {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	if !json.Valid(body) {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
			"Invalid request body", "request body is not valid JSON")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return contextutils.WrapError(err, "validation error")
	}
	if result.Valid() {
		return nil
	}

	fields := make(map[string]string)
	for _, resultErr := range result.Errors() {
		field := schemaFieldName(resultErr)
		if existing, ok := fields[field]; ok {
			fields[field] = existing + "; " + resultErr.Description()
			continue
		}
		fields[field] = resultErr.Description()
	}
	return contextutils.NewValidationError(dedupeMessages(fields))
}

// schemaFieldName names the offending field; "required" errors point at the missing property
func schemaFieldName(resultErr gojsonschema.ResultError) string {
	field := resultErr.Field()
	if resultErr.Type() == "required" {
		if prop, ok := resultErr.Details()["property"].(string); ok {
			if field == prop || strings.HasSuffix(field, "."+prop) {
				return field
			}
			if field == "(root)" {
				return prop
			}
			return field + "." + prop
		}
	}
	if field == "(root)" {
		return "body"
	}
	return field
}

func dedupeMessages(fields map[string]string) map[string]string {
	for field, msg := range fields {
		parts := strings.Split(msg, "; ")
		seen := make(map[string]bool, len(parts))
		unique := parts[:0]
		for _, p := range parts {
			if !seen[p] {
				seen[p] = true
				unique = append(unique, p)
			}
		}
		sort.Strings(unique)
		fields[field] = strings.Join(unique, "; ")
	}
	return fields
}

// String lists the loaded schema names
func (sl *SchemaLoader) String() string {
	names := make([]string, 0, len(sl.schemas))
	for name := range sl.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("SchemaLoader%v", names)
}
