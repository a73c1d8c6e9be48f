// Package rule defines compliance rule definitions and the store boundary
// the engine queries them through. Rule configuration is decoded into typed
// per-family structs at load time; evaluation code never digs through untyped
// maps.
package rule

import (
	"fmt"
	"regexp"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/artifactguard/validation"
)

// Type identifies which analyzer family evaluates a rule.
type Type string

const (
	TypeStatic   Type = "static"
	TypeSemantic Type = "semantic"
	TypeSecurity Type = "security"
)

// Wildcard matches every artifact type in an applicability list.
const Wildcard = "*"

// slugPattern constrains rule IDs to lowercase slugs.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Definition is one compliance rule. Definitions are immutable once loaded
// into an engine invocation; their lifecycle is owned by the store.
type Definition struct {
	ID          string              `yaml:"id" json:"id"`
	Name        string              `yaml:"name" json:"name"`
	Description string              `yaml:"description" json:"description"`
	Version     string              `yaml:"version" json:"version"`
	Type        Type                `yaml:"type" json:"type"`
	Severity    validation.Severity `yaml:"severity" json:"severity"`
	Enabled     bool                `yaml:"enabled" json:"enabled"`

	// Exactly one of the following is set, matching Type.
	Static   *StaticConfig   `yaml:"-" json:"static_config,omitempty"`
	Security *SecurityConfig `yaml:"-" json:"security_config,omitempty"`
	Semantic *SemanticConfig `yaml:"-" json:"semantic_config,omitempty"`
}

// StaticConfig configures a static-analysis rule.
type StaticConfig struct {
	// Tool is the external linter command line; empty when SyntaxCheck is set.
	Tool string `yaml:"tool" json:"tool"`
	// SyntaxCheck parses the artifact in-process instead of running a tool.
	SyntaxCheck bool `yaml:"syntax_check" json:"syntax_check"`
	// Timeout bounds one tool invocation, as a duration string ("30s").
	// Empty means the analyzer default.
	Timeout string `yaml:"timeout" json:"timeout"`

	ApplicableTypes []string `yaml:"applicable_types" json:"applicable_types"`
}

// PatternSpec is one regex pattern evaluated by a security rule. Severity
// overrides the rule severity when set.
type PatternSpec struct {
	Name     string              `yaml:"name" json:"name"`
	Regex    string              `yaml:"regex" json:"regex"`
	Severity validation.Severity `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// SecurityConfig configures a pattern-scanning security rule.
type SecurityConfig struct {
	Patterns        []PatternSpec `yaml:"patterns" json:"patterns"`
	ApplicableTypes []string      `yaml:"applicable_types" json:"applicable_types"`
}

// SemanticConfig configures an LLM-reviewed semantic rule.
type SemanticConfig struct {
	// PromptTemplate supports {artifact_type}, {file_path}, {metadata} and
	// {content} placeholders.
	PromptTemplate string  `yaml:"prompt_template" json:"prompt_template"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`
	MaxTokens      int     `yaml:"max_tokens" json:"max_tokens"`
	// ConfidenceThreshold drops reported issues below this confidence (0..1).
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	ApplicableTypes []string `yaml:"applicable_types" json:"applicable_types"`
}

// rawDefinition mirrors the on-disk YAML shape, with a config block decoded
// per rule type.
type rawDefinition struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Version     string              `yaml:"version"`
	Type        Type                `yaml:"type"`
	Severity    validation.Severity `yaml:"severity"`
	Enabled     bool                `yaml:"enabled"`
	Config      yaml.Node           `yaml:"config"`
}

// UnmarshalYAML decodes a Definition, dispatching the config block to the
// variant matching the rule type.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	var raw rawDefinition
	if err := node.Decode(&raw); err != nil {
		return err
	}

	d.ID = raw.ID
	d.Name = raw.Name
	d.Description = raw.Description
	d.Version = raw.Version
	d.Type = raw.Type
	d.Severity = raw.Severity
	d.Enabled = raw.Enabled

	if raw.Config.IsZero() {
		return fmt.Errorf("rule %s: config is required", raw.ID)
	}

	switch raw.Type {
	case TypeStatic:
		var cfg StaticConfig
		if err := raw.Config.Decode(&cfg); err != nil {
			return fmt.Errorf("rule %s: decode static config: %w", raw.ID, err)
		}
		d.Static = &cfg
	case TypeSecurity:
		var cfg SecurityConfig
		if err := raw.Config.Decode(&cfg); err != nil {
			return fmt.Errorf("rule %s: decode security config: %w", raw.ID, err)
		}
		d.Security = &cfg
	case TypeSemantic:
		var cfg SemanticConfig
		if err := raw.Config.Decode(&cfg); err != nil {
			return fmt.Errorf("rule %s: decode semantic config: %w", raw.ID, err)
		}
		d.Semantic = &cfg
	default:
		return fmt.Errorf("rule %s: unknown rule type %q", raw.ID, raw.Type)
	}

	return nil
}

// applicableTypes returns the applicability list of whichever config variant
// is set.
func (d *Definition) applicableTypes() []string {
	switch {
	case d.Static != nil:
		return d.Static.ApplicableTypes
	case d.Security != nil:
		return d.Security.ApplicableTypes
	case d.Semantic != nil:
		return d.Semantic.ApplicableTypes
	default:
		return nil
	}
}

// AppliesTo reports whether the rule applies to the given artifact type.
// Entries are matched as globs so rule authors can write "terraform*" to
// cover terraform and terraform-vars; the wildcard entry matches everything.
func (d *Definition) AppliesTo(artifactType string) bool {
	for _, t := range d.applicableTypes() {
		if t == Wildcard {
			return true
		}
		if ok, err := doublestar.Match(t, artifactType); err == nil && ok {
			return true
		}
	}
	return false
}

// Validate checks structural correctness of a definition. Invalid rules are
// rejected at load time so the engine never sees them.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if !slugPattern.MatchString(d.ID) {
		return fmt.Errorf("rule %s: id must be a lowercase slug", d.ID)
	}
	if d.Name == "" {
		return fmt.Errorf("rule %s: name is required", d.ID)
	}
	switch d.Severity {
	case validation.SeverityLow, validation.SeverityMedium, validation.SeverityHigh, validation.SeverityCritical:
	default:
		return fmt.Errorf("rule %s: invalid severity %q", d.ID, d.Severity)
	}
	if len(d.applicableTypes()) == 0 {
		return fmt.Errorf("rule %s: applicable_types is required", d.ID)
	}

	switch d.Type {
	case TypeStatic:
		if d.Static.Tool == "" && !d.Static.SyntaxCheck {
			return fmt.Errorf("rule %s: static rule needs a tool or syntax_check", d.ID)
		}
		if d.Static.Timeout != "" {
			if _, err := time.ParseDuration(d.Static.Timeout); err != nil {
				return fmt.Errorf("rule %s: invalid timeout: %w", d.ID, err)
			}
		}
	case TypeSecurity:
		if len(d.Security.Patterns) == 0 {
			return fmt.Errorf("rule %s: security rule needs at least one pattern", d.ID)
		}
		for _, p := range d.Security.Patterns {
			if _, err := regexp.Compile(p.Regex); err != nil {
				return fmt.Errorf("rule %s: pattern %s: %w", d.ID, p.Name, err)
			}
		}
	case TypeSemantic:
		if d.Semantic.PromptTemplate == "" {
			return fmt.Errorf("rule %s: semantic rule needs a prompt_template", d.ID)
		}
		if d.Semantic.ConfidenceThreshold < 0 || d.Semantic.ConfidenceThreshold > 1 {
			return fmt.Errorf("rule %s: confidence_threshold must be between 0 and 1", d.ID)
		}
	default:
		return fmt.Errorf("rule %s: unknown rule type %q", d.ID, d.Type)
	}

	return nil
}
