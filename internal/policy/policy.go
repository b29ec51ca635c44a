// Package policy loads the suite-wide engine policy: a small YAML document, validated
// against an embedded JSON schema, naming how unmatched calls are handled and whether
// matching is traced.
//
//	unmatched: default   # or "fail"
//	trace: true
package policy

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the path of a policy file.
const EnvVar = "IMPMOCK_POLICY"

// Unmatched policy values.
const (
	UnmatchedDefault = "default"
	UnmatchedFail    = "fail"
)

// ErrInvalid is returned for documents that do not satisfy the policy schema.
var ErrInvalid = errors.New("invalid policy")

// Policy is the suite-wide engine policy.
type Policy struct {
	Unmatched string `yaml:"unmatched"`
	Trace     bool   `yaml:"trace"`
}

// Default is the policy used when none is configured.
func Default() Policy {
	return Policy{Unmatched: UnmatchedFail}
}

// FromEnv loads the policy file named by EnvVar. ok is false when the variable is unset.
func FromEnv() (Policy, bool, error) {
	path := strings.TrimSpace(os.Getenv(EnvVar))
	if path == "" {
		return Default(), false, nil
	}

	pol, err := Load(path)
	if err != nil {
		return Default(), true, err
	}

	return pol, true, nil
}

// Load reads and validates the policy file at path.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read policy: %w", err)
	}

	pol, err := Parse(data)
	if err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}

	return pol, nil
}

// Parse validates a YAML policy document and decodes it. Missing keys keep their defaults.
func Parse(data []byte) (Policy, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Default(), fmt.Errorf("parse policy: %w", err)
	}

	if raw == nil {
		return Default(), nil
	}

	if err := validate(raw); err != nil {
		return Default(), fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	pol := Default()
	if err := yaml.Unmarshal(data, &pol); err != nil {
		return Default(), fmt.Errorf("decode policy: %w", err)
	}

	return pol, nil
}

const schemaURL = "policy.schema.json"

//go:embed policy.schema.json
var schemaText string

//nolint:gochecknoglobals // compiled once per process
var compiledSchema = sync.OnceValues(compileSchema)

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaText)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return schema, nil
}

// validate checks the decoded YAML against the schema. The document goes through JSON first so
// the validator sees JSON types only.
func validate(raw any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("policy is not JSON-compatible: %w", err)
	}

	var payload any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return err
	}

	return schema.Validate(payload)
}
