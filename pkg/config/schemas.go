package config

import (
	"encoding/json"
	"fmt"

	"github.com/go-openapi/spec"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
	"github.com/hashicorp/go-multierror"
)

const ConfigKind = "PamSyncConfig"

var Schemas = map[string]string{
	ConfigKind: `
type: object
additionalProperties: false
properties:
  url:
    description: |
      PAM360 base URL, scheme and port included
    type: string
    minLength: 1
  token:
    description: |
      AUTHTOKEN of the PAM360 API user. Prefer PAM_TOKEN env.
    type: string
  insecureSkipVerify:
    type: boolean
  timeout:
    description: |
      Per request timeout, Go duration syntax
    type: string
  targetUsers:
    type: array
    minItems: 1
    uniqueItems: true
    items:
      type: string
      minLength: 1
  resourceGroup:
    type: string
  resourceType:
    type: string
  passwordPolicy:
    type: string
  passwordLength:
    type: integer
    minimum: 1
  resetType:
    type: string
    enum:
    - LOCAL
    - REMOTE
  resetReason:
    type: string
  shareUserId:
    type: string
    minLength: 1
  shareAccessType:
    type: string
    enum:
    - view
    - modify
    - fullaccess
  chpasswd:
    type: string
    minLength: 1
  shadowPath:
    type: string
  shadowBackup:
    type: string
  dryRun:
    type: boolean
`,
}

var SchemasCache = map[string]*spec.Schema{}

// GetSchema returns loaded schema.
func GetSchema(name string) *spec.Schema {
	if s, ok := SchemasCache[name]; ok {
		return s
	}
	if _, ok := Schemas[name]; !ok {
		return nil
	}

	// ignore error because load is guaranteed by tests
	SchemasCache[name], _ = LoadSchema(name)
	return SchemasCache[name]
}

// LoadSchema returns spec.Schema object loaded from yaml in Schemas map.
func LoadSchema(name string) (*spec.Schema, error) {
	yml, err := swag.BytesToYAMLDoc([]byte(Schemas[name]))
	if err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %v", err)
	}
	d, err := swag.YAMLToJSON(yml)
	if err != nil {
		return nil, fmt.Errorf("yaml to json: %v", err)
	}

	s := new(spec.Schema)

	if err := json.Unmarshal(d, s); err != nil {
		return nil, fmt.Errorf("json unmarshal: %v", err)
	}

	err = spec.ExpandSchema(s, s, nil)
	if err != nil {
		return nil, fmt.Errorf("expand schema: %v", err)
	}

	return s, nil
}

// ValidateConfig checks obj against the schema and returns all violations at once.
func ValidateConfig(obj interface{}, s *spec.Schema, rootName string) error {
	if s == nil {
		return fmt.Errorf("schema for '%s' is not loaded", rootName)
	}

	validator := validate.NewSchemaValidator(s, nil, rootName, strfmt.Default)
	result := validator.Validate(obj)
	if result.IsValid() {
		return nil
	}

	var allErrs *multierror.Error
	allErrs = multierror.Append(allErrs, result.Errors...)
	return allErrs.ErrorOrNil()
}
