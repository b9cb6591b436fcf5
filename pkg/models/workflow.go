package models

import "time"

// SourceKind represents where a workflow reads its input text from.
type SourceKind string

const (
	SourceSelectedText    SourceKind = "selected_text"
	SourceClipboard       SourceKind = "clipboard"
	SourceActiveFieldText SourceKind = "active_field_text"
)

// ConnectorType represents the transport a connector speaks.
type ConnectorType string

const (
	ConnectorTypeRest ConnectorType = "rest"
)

// AuthKind represents how outbound requests authenticate.
type AuthKind string

const (
	AuthKindNone   AuthKind = "none"
	AuthKindBearer AuthKind = "bearer"
	AuthKindAPIKey AuthKind = "api-key"
)

// BackoffKind represents the retry backoff curve.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

// InputSpec declares where a workflow's input comes from and the length
// bounds it must satisfy. Bounds are inclusive and counted in runes; zero
// values disable the corresponding bound.
type InputSpec struct {
	Source    SourceKind `yaml:"source" json:"source"`
	MinLength int        `yaml:"minLength" json:"minLength"`
	MaxLength int        `yaml:"maxLength" json:"maxLength"`
}

// RequestSpec declares the outbound request of a workflow.
type RequestSpec struct {
	Template string `yaml:"template" json:"template"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Method   string `yaml:"method" json:"method"`
}

// ResponseMapping binds one output variable to an extraction path. Mappings
// are evaluated in declaration order.
type ResponseMapping struct {
	Variable string `yaml:"variable" json:"variable"`
	Path     string `yaml:"path" json:"path"`
	Required bool   `yaml:"required" json:"required"`
}

// ValidationRules declares post-extraction checks for a workflow.
type ValidationRules struct {
	RequiredVariables []string `yaml:"requiredVariables" json:"requiredVariables"`
	CodeFormat        bool     `yaml:"codeFormat" json:"codeFormat"`
	CodeExists        bool     `yaml:"codeExists" json:"codeExists"`
}

// OutputSpec is one declared insertion, rendered against the extracted
// variables in declaration order.
type OutputSpec struct {
	TargetField  string       `yaml:"targetField" json:"targetField"`
	Content      string       `yaml:"content" json:"content"`
	Mode         InsertMode   `yaml:"mode" json:"mode"`
	Kind         FieldKind    `yaml:"kind" json:"kind"`
	Navigation   string       `yaml:"navigation" json:"navigation,omitempty"`
	Label        string       `yaml:"label" json:"label,omitempty"`
	ClickBefore  string       `yaml:"clickBefore" json:"clickBefore,omitempty"`
	InsertMethod InsertMethod `yaml:"insertMethod" json:"insertMethod,omitempty"`
}

// WorkflowDefinition is one declarative trigger-to-action pipeline. Built
// once at load, immutable thereafter, shared by reference across concurrent
// executions.
type WorkflowDefinition struct {
	ID            string            `yaml:"id" json:"id"`
	Name          string            `yaml:"name" json:"name"`
	Trigger       string            `yaml:"trigger" json:"trigger"`
	Enabled       bool              `yaml:"-" json:"enabled"`
	Input         InputSpec         `yaml:"input" json:"input"`
	ConnectorID   string            `yaml:"connector" json:"connector"`
	Request       RequestSpec       `yaml:"request" json:"request"`
	Mappings      []ResponseMapping `yaml:"mappings" json:"mappings"`
	Validation    ValidationRules   `yaml:"validation" json:"validation"`
	Outputs       []OutputSpec      `yaml:"outputs" json:"outputs"`
	AllowedFields []string          `yaml:"allowedFields" json:"allowedFields"`
}

// AuthSpec declares outbound authentication for a connector. Credential may
// be inlined or resolved from the environment variable named by CredentialEnv.
type AuthSpec struct {
	Kind          AuthKind `yaml:"kind" json:"kind"`
	Credential    string   `yaml:"credential" json:"-"`
	CredentialEnv string   `yaml:"credentialEnv" json:"credentialEnv,omitempty"`
	Header        string   `yaml:"header" json:"header,omitempty"`
}

// RetryPolicy declares the retry behavior for transient connector failures.
// Total attempts = MaxRetries + 1.
type RetryPolicy struct {
	MaxRetries int           `yaml:"maxRetries" json:"maxRetries"`
	Backoff    BackoffKind   `yaml:"backoff" json:"backoff"`
	BaseDelay  time.Duration `yaml:"baseDelay" json:"baseDelay"`
}

// ConnectorDefinition is one configured external service endpoint with auth
// and retry policy. Immutable after load.
type ConnectorDefinition struct {
	ID        string            `yaml:"-" json:"id"`
	Type      ConnectorType     `yaml:"type" json:"type"`
	BaseURL   string            `yaml:"baseUrl" json:"baseUrl"`
	Auth      AuthSpec          `yaml:"auth" json:"auth"`
	Endpoints map[string]string `yaml:"endpoints" json:"endpoints"`
	Headers   map[string]string `yaml:"headers" json:"headers,omitempty"`
	Timeout   time.Duration     `yaml:"timeout" json:"timeout"`
	Retry     RetryPolicy       `yaml:"retry" json:"retry"`
}

// CatalogCode is one entry of the diagnosis-code catalog.
type CatalogCode struct {
	Code     string `yaml:"code" json:"code"`
	Label    string `yaml:"label" json:"label,omitempty"`
	Category string `yaml:"category" json:"category,omitempty"`
}
