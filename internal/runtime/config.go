package runtime

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/espalier/pkg/schedule"
)

// decodeConfig maps a node's free-form action data onto the typed
// configuration struct for its kind. Weak typing tolerates the usual
// JSON/YAML drift (numbers as strings, floats for ints).
func decodeConfig(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("config decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("invalid action config: %w", err)
	}
	return nil
}

type messageConfig struct {
	Text string `mapstructure:"text"`
}

type menuConfig struct {
	Text           string `mapstructure:"text"`
	InvalidText    string `mapstructure:"invalid_text"`
	Interactive    bool   `mapstructure:"interactive"`
	OverflowTarget string `mapstructure:"overflow_target"`
}

type askConfig struct {
	Text          string   `mapstructure:"text"`
	Variable      string   `mapstructure:"variable"`
	Type          string   `mapstructure:"type"` // text | number | option | regex
	Options       []string `mapstructure:"options"`
	Pattern       string   `mapstructure:"pattern"`
	InvalidText   string   `mapstructure:"invalid_text"`
	InvalidTarget string   `mapstructure:"invalid_target"`
	AnswerTarget  string   `mapstructure:"answer_target"`
}

type conditionRule struct {
	Operator string   `mapstructure:"operator"`
	Value    string   `mapstructure:"value"`
	Target   string   `mapstructure:"target"`
	Keywords []string `mapstructure:"keywords"`
	Match    string   `mapstructure:"match"` // contains | exact (keyword rules)
}

type conditionConfig struct {
	Source        string          `mapstructure:"source"` // message | variable | crm_field | keywords
	Variable      string          `mapstructure:"variable"`
	EntityType    string          `mapstructure:"entity_type"`
	Field         string          `mapstructure:"field"`
	Rules         []conditionRule `mapstructure:"rules"`
	MatchMode     string          `mapstructure:"match_mode"` // any (default) | all
	DefaultTarget string          `mapstructure:"default_target"`
}

type keywordGroup struct {
	Keywords []string `mapstructure:"keywords"`
	Match    string   `mapstructure:"match"` // contains | exact
	Target   string   `mapstructure:"target"`
}

type validationCheck struct {
	Kind string `mapstructure:"kind"` // format | variable | range | options | length | regex | entity_exists | field_equals

	// format
	Format    string `mapstructure:"format"` // email | phone | dni | ruc | number | url | date | custom
	Pattern   string `mapstructure:"pattern"`
	CaptureTo string `mapstructure:"capture_to"`

	// variable comparison
	Variable string `mapstructure:"variable"`
	Operator string `mapstructure:"operator"`
	Value    string `mapstructure:"value"`

	// numeric range
	Min       *float64 `mapstructure:"min"`
	Max       *float64 `mapstructure:"max"`
	Exclusive bool     `mapstructure:"exclusive"`

	// option membership
	Options []string `mapstructure:"options"`

	// length bounds
	MinLen *int `mapstructure:"min_len"`
	MaxLen *int `mapstructure:"max_len"`

	// CRM checks (validation_bitrix)
	EntityType string `mapstructure:"entity_type"`
	Field      string `mapstructure:"field"`
}

type validationConfig struct {
	Text          string            `mapstructure:"text"` // optional prompt on first visit
	Variable      string            `mapstructure:"variable"`
	Groups        []keywordGroup    `mapstructure:"groups"`
	NoMatchTarget string            `mapstructure:"no_match_target"`
	Checks        []validationCheck `mapstructure:"checks"`
	ValidTarget   string            `mapstructure:"valid_target"`
	InvalidTarget string            `mapstructure:"invalid_target"`
	InvalidText   string            `mapstructure:"invalid_text"`
}

type schedulerConfig struct {
	Mode            string            `mapstructure:"mode"` // "" | "bitrix"
	Schedule        schedule.Schedule `mapstructure:"schedule"`
	InWindowTarget  string            `mapstructure:"in_window_target"`
	OutWindowTarget string            `mapstructure:"out_window_target"`
}

type webhookConfig struct {
	URL           string            `mapstructure:"url"`
	Method        string            `mapstructure:"method"`
	Headers       map[string]string `mapstructure:"headers"`
	Body          any               `mapstructure:"body"` // string or JSON object
	TimeoutMs     int               `mapstructure:"timeout_ms"`
	SuccessTarget string            `mapstructure:"success_target"`
	ErrorTarget   string            `mapstructure:"error_target"`
}

type delayConfig struct {
	Seconds int `mapstructure:"seconds"`
}

type transferConfig struct {
	Text    string `mapstructure:"text"`
	Queue   string `mapstructure:"queue"`
	Advisor string `mapstructure:"advisor"`
	FlowID  string `mapstructure:"flow_id"`
}

type crmField struct {
	Field    string `mapstructure:"field"`
	Value    string `mapstructure:"value"`
	Variable string `mapstructure:"variable"`
}

type crmConfig struct {
	Operation      string     `mapstructure:"operation"` // create | update | delete | search
	EntityType     string     `mapstructure:"entity_type"`
	EntityID       string     `mapstructure:"entity_id"`
	MatchField     string     `mapstructure:"match_field"`
	Fields         []crmField `mapstructure:"fields"`
	SuccessTarget  string     `mapstructure:"success_target"`
	ErrorTarget    string     `mapstructure:"error_target"`
	FoundTarget    string     `mapstructure:"found_target"`
	NotFoundTarget string     `mapstructure:"not_found_target"`
}

type completionConfig struct {
	System      string `mapstructure:"system"`
	Greeting    string `mapstructure:"greeting"`
	ErrorTarget string `mapstructure:"error_target"`
}

type endConfig struct {
	Text string `mapstructure:"text"`
}
