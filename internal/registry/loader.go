package registry

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fieldbridge/internal/extract"
	"fieldbridge/internal/template"
	"fieldbridge/internal/validate"
	"fieldbridge/pkg/models"
)

// Variables every request template may reference. Output variables only
// exist after extraction, so request templates are limited to these.
var requestVariables = map[string]bool{
	"input_text":   true,
	"user_id":      true,
	"window_title": true,
	"active_field": true,
}

// Sources holds the definition file paths for one load.
type Sources struct {
	WorkflowsPath  string
	ConnectorsPath string
	CatalogPath    string // optional
}

type workflowDoc struct {
	Workflows []workflowYAML `yaml:"workflows"`
}

type workflowYAML struct {
	models.WorkflowDefinition `yaml:",inline"`
	Enabled                   *bool `yaml:"enabled"`
}

type connectorDoc struct {
	Connectors map[string]connectorYAML `yaml:"connectors"`
}

// connectorYAML mirrors models.ConnectorDefinition with durations as strings
// ("30s", "1.5s") so operators write them the way Go parses them.
type connectorYAML struct {
	Type      models.ConnectorType `yaml:"type"`
	BaseURL   string               `yaml:"baseUrl"`
	Auth      models.AuthSpec      `yaml:"auth"`
	Endpoints map[string]string    `yaml:"endpoints"`
	Headers   map[string]string    `yaml:"headers"`
	Timeout   string               `yaml:"timeout"`
	Retry     struct {
		MaxRetries *int               `yaml:"maxRetries"`
		Backoff    models.BackoffKind `yaml:"backoff"`
		BaseDelay  string             `yaml:"baseDelay"`
	} `yaml:"retry"`
}

type catalogDoc struct {
	Codes map[string]models.CatalogCode `yaml:"codes"`
}

// Load parses and validates all definition sources. Every problem across all
// definitions is collected into one ConfigError rather than failing on the
// first.
func Load(src Sources) (*Registry, error) {
	var problems []string

	wfDoc, err := readYAML[workflowDoc](src.WorkflowsPath)
	if err != nil {
		return nil, &ConfigError{Problems: []string{err.Error()}}
	}
	connDoc, err := readYAML[connectorDoc](src.ConnectorsPath)
	if err != nil {
		return nil, &ConfigError{Problems: []string{err.Error()}}
	}

	catalog := validate.Catalog{}
	if src.CatalogPath != "" {
		if _, statErr := os.Stat(src.CatalogPath); statErr == nil {
			catDoc, err := readYAML[catalogDoc](src.CatalogPath)
			if err != nil {
				return nil, &ConfigError{Problems: []string{err.Error()}}
			}
			for code, entry := range catDoc.Codes {
				normalized := strings.ToUpper(strings.TrimSpace(code))
				if res := validate.CodeFormat(normalized); !res.Valid {
					problems = append(problems, fmt.Sprintf("catalog: %s", res.Error))
					continue
				}
				entry.Code = normalized
				catalog[normalized] = entry
			}
		}
	}

	connectors := make(map[string]models.ConnectorDefinition, len(connDoc.Connectors))
	for id, raw := range connDoc.Connectors {
		def, errs := buildConnector(id, raw)
		if len(errs) > 0 {
			problems = append(problems, errs...)
			continue
		}
		connectors[id] = def
	}

	reg := &Registry{
		byTrigger:  make(map[string]*models.WorkflowDefinition),
		byID:       make(map[string]*models.WorkflowDefinition),
		connectors: connectors,
		catalog:    catalog,
	}

	for _, raw := range wfDoc.Workflows {
		wf := raw.WorkflowDefinition
		wf.Enabled = raw.Enabled == nil || *raw.Enabled
		applyWorkflowDefaults(&wf)

		problems = append(problems, checkWorkflow(&wf, connectors)...)

		if wf.ID != "" {
			if _, dup := reg.byID[wf.ID]; dup {
				problems = append(problems, fmt.Sprintf("workflow %q: duplicate id", wf.ID))
				continue
			}
			reg.byID[wf.ID] = &wf
		}
		reg.workflows = append(reg.workflows, &wf)

		if !wf.Enabled {
			continue
		}
		key := NormalizeTrigger(wf.Trigger)
		if owner, taken := reg.byTrigger[key]; taken {
			problems = append(problems, fmt.Sprintf(
				"workflow %q: trigger %q already owned by enabled workflow %q", wf.ID, wf.Trigger, owner.ID))
			continue
		}
		reg.byTrigger[key] = &wf
	}

	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}
	return reg, nil
}

func readYAML[T any](path string) (T, error) {
	var doc T
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

func applyWorkflowDefaults(wf *models.WorkflowDefinition) {
	if wf.Input.Source == "" {
		wf.Input.Source = models.SourceSelectedText
	}
	if wf.Request.Method == "" {
		wf.Request.Method = "POST"
	}
	for i := range wf.Outputs {
		if wf.Outputs[i].Mode == "" {
			wf.Outputs[i].Mode = models.InsertModeReplace
		}
		if wf.Outputs[i].Kind == "" {
			wf.Outputs[i].Kind = models.FieldKindText
		}
		if wf.Outputs[i].InsertMethod == "" {
			wf.Outputs[i].InsertMethod = models.InsertMethodType
		}
	}
}

func buildConnector(id string, raw connectorYAML) (models.ConnectorDefinition, []string) {
	var errs []string
	prefix := fmt.Sprintf("connector %q", id)

	def := models.ConnectorDefinition{
		ID:        id,
		Type:      raw.Type,
		BaseURL:   raw.BaseURL,
		Auth:      raw.Auth,
		Endpoints: raw.Endpoints,
		Headers:   raw.Headers,
	}
	if def.Type == "" {
		def.Type = models.ConnectorTypeRest
	}
	if def.Type != models.ConnectorTypeRest {
		errs = append(errs, fmt.Sprintf("%s: unknown type %q", prefix, def.Type))
	}
	if def.BaseURL == "" {
		errs = append(errs, fmt.Sprintf("%s: baseUrl is required", prefix))
	}
	if len(def.Endpoints) == 0 {
		errs = append(errs, fmt.Sprintf("%s: at least one endpoint is required", prefix))
	}
	switch def.Auth.Kind {
	case "", models.AuthKindNone:
		def.Auth.Kind = models.AuthKindNone
	case models.AuthKindBearer, models.AuthKindAPIKey:
		if def.Auth.Credential == "" && def.Auth.CredentialEnv == "" {
			errs = append(errs, fmt.Sprintf("%s: auth kind %q needs credential or credentialEnv", prefix, def.Auth.Kind))
		}
	default:
		errs = append(errs, fmt.Sprintf("%s: unknown auth kind %q", prefix, def.Auth.Kind))
	}

	def.Timeout = 30 * time.Second
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid timeout %q", prefix, raw.Timeout))
		} else {
			def.Timeout = d
		}
	}

	def.Retry = models.RetryPolicy{MaxRetries: 2, Backoff: models.BackoffExponential, BaseDelay: time.Second}
	if raw.Retry.MaxRetries != nil {
		if *raw.Retry.MaxRetries < 0 {
			errs = append(errs, fmt.Sprintf("%s: maxRetries must be >= 0", prefix))
		} else {
			def.Retry.MaxRetries = *raw.Retry.MaxRetries
		}
	}
	if raw.Retry.Backoff != "" {
		if raw.Retry.Backoff != models.BackoffFixed && raw.Retry.Backoff != models.BackoffExponential {
			errs = append(errs, fmt.Sprintf("%s: unknown backoff kind %q", prefix, raw.Retry.Backoff))
		} else {
			def.Retry.Backoff = raw.Retry.Backoff
		}
	}
	if raw.Retry.BaseDelay != "" {
		d, err := time.ParseDuration(raw.Retry.BaseDelay)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid baseDelay %q", prefix, raw.Retry.BaseDelay))
		} else {
			def.Retry.BaseDelay = d
		}
	}
	return def, errs
}

// checkWorkflow validates one workflow definition against its connector and
// its own variable references.
func checkWorkflow(wf *models.WorkflowDefinition, connectors map[string]models.ConnectorDefinition) []string {
	var errs []string
	prefix := fmt.Sprintf("workflow %q", wf.ID)

	if wf.ID == "" {
		errs = append(errs, "workflow with empty id")
	}
	if wf.Trigger == "" {
		errs = append(errs, fmt.Sprintf("%s: trigger is required", prefix))
	}
	switch wf.Input.Source {
	case models.SourceSelectedText, models.SourceClipboard, models.SourceActiveFieldText:
	default:
		errs = append(errs, fmt.Sprintf("%s: unknown input source %q", prefix, wf.Input.Source))
	}
	if wf.Input.MinLength < 0 || wf.Input.MaxLength < 0 {
		errs = append(errs, fmt.Sprintf("%s: input length bounds must be >= 0", prefix))
	}
	if wf.Input.MaxLength > 0 && wf.Input.MinLength > wf.Input.MaxLength {
		errs = append(errs, fmt.Sprintf("%s: minLength %d exceeds maxLength %d", prefix, wf.Input.MinLength, wf.Input.MaxLength))
	}

	conn, hasConn := connectors[wf.ConnectorID]
	if wf.ConnectorID == "" {
		errs = append(errs, fmt.Sprintf("%s: connector is required", prefix))
	} else if !hasConn {
		errs = append(errs, fmt.Sprintf("%s: references unknown connector %q", prefix, wf.ConnectorID))
	}

	if wf.Request.Template == "" {
		errs = append(errs, fmt.Sprintf("%s: request template is required", prefix))
	}
	for _, v := range template.Variables(wf.Request.Template) {
		if !requestVariables[v] {
			errs = append(errs, fmt.Sprintf("%s: request template references unknown variable %q", prefix, v))
		}
	}
	if hasConn {
		endpoint := wf.Request.Endpoint
		if endpoint != "" {
			if _, ok := conn.Endpoints[endpoint]; !ok {
				errs = append(errs, fmt.Sprintf("%s: connector %q has no endpoint %q", prefix, wf.ConnectorID, endpoint))
			}
		} else if len(conn.Endpoints) != 1 {
			errs = append(errs, fmt.Sprintf("%s: request endpoint is required when connector %q declares multiple endpoints", prefix, wf.ConnectorID))
		}
	}

	mapped := make(map[string]bool, len(wf.Mappings))
	for _, m := range wf.Mappings {
		if m.Variable == "" {
			errs = append(errs, fmt.Sprintf("%s: mapping with empty variable name", prefix))
			continue
		}
		if mapped[m.Variable] {
			errs = append(errs, fmt.Sprintf("%s: duplicate mapping variable %q", prefix, m.Variable))
		}
		mapped[m.Variable] = true
		if _, err := extract.Parse(m.Path); err != nil {
			errs = append(errs, fmt.Sprintf("%s: mapping %q: %v", prefix, m.Variable, err))
		}
	}

	for _, name := range wf.Validation.RequiredVariables {
		if !mapped[name] {
			errs = append(errs, fmt.Sprintf("%s: validation requires unmapped variable %q", prefix, name))
		}
	}
	if wf.Validation.CodeExists && !wf.Validation.CodeFormat {
		errs = append(errs, fmt.Sprintf("%s: codeExists requires codeFormat", prefix))
	}

	if len(wf.Outputs) == 0 {
		errs = append(errs, fmt.Sprintf("%s: at least one output is required", prefix))
	}
	for i, out := range wf.Outputs {
		oprefix := fmt.Sprintf("%s: output %d", prefix, i)
		if out.TargetField == "" {
			errs = append(errs, oprefix+": targetField is required")
		}
		if out.Content == "" {
			errs = append(errs, oprefix+": content template is required")
		}
		switch out.Mode {
		case models.InsertModeReplace, models.InsertModeAppend, models.InsertModePrepend:
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown mode %q", oprefix, out.Mode))
		}
		switch out.Kind {
		case models.FieldKindText, models.FieldKindCode:
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown kind %q", oprefix, out.Kind))
		}
		for _, v := range template.Variables(out.Content) {
			if !mapped[v] {
				errs = append(errs, fmt.Sprintf("%s: content references unmapped variable %q", oprefix, v))
			}
		}
		for _, v := range template.Variables(out.Label) {
			if !mapped[v] {
				errs = append(errs, fmt.Sprintf("%s: label references unmapped variable %q", oprefix, v))
			}
		}
	}
	return errs
}
