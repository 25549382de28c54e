package main

import (
	"encoding/json"
	"fmt"
	"io"

	assignrepo "leadflow_backend/internal/assignment/repository"
	"leadflow_backend/internal/leads/domain"
	scoringrepo "leadflow_backend/internal/scoring/repository"
	workflowrepo "leadflow_backend/internal/workflow/repository"
	workflow "leadflow_backend/internal/workflow/service"
	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Pack is a YAML rule pack for one tenant.
type Pack struct {
	Scoring    []ScoringRule    `yaml:"scoring" validate:"dive"`
	Assignment []AssignmentRule `yaml:"assignment" validate:"dive"`
	Workflows  []WorkflowRule   `yaml:"workflows" validate:"dive"`
}

type ScoringRule struct {
	Name      string `yaml:"name" validate:"required"`
	Category  string `yaml:"category"`
	Field     string `yaml:"field"`
	Operator  string `yaml:"operator"`
	Value     string `yaml:"value"`
	Points    int    `yaml:"points" validate:"min=-100,max=100"`
	DecayDays *int   `yaml:"decayDays" validate:"omitempty,min=1"`
	Disabled  bool   `yaml:"disabled"`
}

type AssignmentRule struct {
	Name      string            `yaml:"name" validate:"required"`
	Priority  int               `yaml:"priority"`
	Strategy  string            `yaml:"strategy" validate:"required,oneof=RoundRobin Territory Capacity SkillBased"`
	Territory map[string]string `yaml:"territory"`
	Members   []Member          `yaml:"members" validate:"required,min=1,dive"`
	Disabled  bool              `yaml:"disabled"`
}

type Member struct {
	UserID   uuid.UUID `yaml:"userId" validate:"required"`
	Capacity int       `yaml:"capacity" validate:"min=0"`
	Skill    string    `yaml:"skill" validate:"omitempty,oneof=Senior Junior"`
}

type WorkflowRule struct {
	Name         string            `yaml:"name" validate:"required"`
	EntityType   string            `yaml:"entityType" validate:"required"`
	Event        string            `yaml:"event" validate:"required"`
	Condition    map[string]string `yaml:"condition"`
	Action       string            `yaml:"action" validate:"required"`
	Config       map[string]any    `yaml:"config"`
	DelayMinutes int               `yaml:"delayMinutes" validate:"min=0"`
	Disabled     bool              `yaml:"disabled"`
}

// LoadPack decodes and validates a rule pack. Workflow action configs are
// decoded with the engine's own decoder so a bad pack fails before any insert.
func LoadPack(r io.Reader, val *validator.Validator) (Pack, error) {
	var pack Pack
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pack); err != nil {
		return Pack{}, fmt.Errorf("decode rule pack: %w", err)
	}
	if err := val.Struct(pack); err != nil {
		return Pack{}, fmt.Errorf("invalid rule pack: %s", validator.Describe(err))
	}

	for _, w := range pack.Workflows {
		if _, ok := domain.ParseEntityType(w.EntityType); !ok {
			return Pack{}, fmt.Errorf("workflow %q: unknown entity type %q", w.Name, w.EntityType)
		}
		config, err := encodeObject(w.Config)
		if err != nil {
			return Pack{}, fmt.Errorf("workflow %q: %w", w.Name, err)
		}
		if _, err := workflow.DecodeAction(w.Action, config, val); err != nil {
			return Pack{}, fmt.Errorf("workflow %q: %w", w.Name, err)
		}
	}
	return pack, nil
}

func (p Pack) scoringRules(tenantID uuid.UUID) []scoringrepo.Rule {
	out := make([]scoringrepo.Rule, 0, len(p.Scoring))
	for _, s := range p.Scoring {
		out = append(out, scoringrepo.Rule{
			TenantID:          tenantID,
			Name:              s.Name,
			Category:          s.Category,
			ConditionField:    s.Field,
			ConditionOperator: s.Operator,
			ConditionValue:    s.Value,
			Points:            s.Points,
			DecayDays:         s.DecayDays,
			IsActive:          !s.Disabled,
		})
	}
	return out
}

func (p Pack) assignmentRules(tenantID uuid.UUID) []assignrepo.Rule {
	out := make([]assignrepo.Rule, 0, len(p.Assignment))
	for _, a := range p.Assignment {
		rule := assignrepo.Rule{
			TenantID:           tenantID,
			Name:               a.Name,
			Priority:           a.Priority,
			Strategy:           a.Strategy,
			TerritoryCondition: a.Territory,
			IsEnabled:          !a.Disabled,
		}
		for i, m := range a.Members {
			rule.Members = append(rule.Members, assignrepo.Member{
				UserID:     m.UserID,
				IsActive:   true,
				Capacity:   m.Capacity,
				SkillLevel: m.Skill,
				SortOrder:  i,
			})
		}
		out = append(out, rule)
	}
	return out
}

func (p Pack) workflowRules(tenantID uuid.UUID) ([]workflowrepo.Rule, error) {
	out := make([]workflowrepo.Rule, 0, len(p.Workflows))
	for _, w := range p.Workflows {
		condition, err := encodeObject(w.Condition)
		if err != nil {
			return nil, fmt.Errorf("workflow %q condition: %w", w.Name, err)
		}
		config, err := encodeObject(w.Config)
		if err != nil {
			return nil, fmt.Errorf("workflow %q config: %w", w.Name, err)
		}
		entityType, _ := domain.ParseEntityType(w.EntityType)
		out = append(out, workflowrepo.Rule{
			TenantID:     tenantID,
			Name:         w.Name,
			EntityType:   string(entityType),
			TriggerEvent: w.Event,
			Condition:    condition,
			ActionType:   w.Action,
			ActionConfig: config,
			DelayMinutes: w.DelayMinutes,
			IsActive:     !w.Disabled,
		})
	}
	return out, nil
}

func encodeObject[V any](v map[string]V) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
