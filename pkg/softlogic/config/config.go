// Package config loads model and fact definitions from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/softlogic/pkg/softlogic/internalerr"
	"github.com/cognicore/softlogic/pkg/softlogic/predicate"
	"github.com/cognicore/softlogic/pkg/softlogic/rule"
)

// Model is the YAML shape of a rule model.
type Model struct {
	Predicates []PredicateDef `yaml:"predicates"`
	Open       []string       `yaml:"open"`
	Rules      []RuleDef      `yaml:"rules"`
}

// PredicateDef declares one predicate schema.
type PredicateDef struct {
	Name     string   `yaml:"name"`
	Args     []string `yaml:"args"`
	ArgNames []string `yaml:"arg_names,omitempty"`
}

// RuleDef declares one rule template. Body literals are a conjunction
// implying the Head disjunction; Hard marks an unweighted constraint.
type RuleDef struct {
	Name   string   `yaml:"name,omitempty"`
	Body   []string `yaml:"body"`
	Head   []string `yaml:"head"`
	Weight float64  `yaml:"weight,omitempty"`
	Hard   bool     `yaml:"hard,omitempty"`
}

// LoadModel reads and parses a model YAML file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if len(m.Predicates) == 0 {
		return nil, fmt.Errorf("%w: model %s declares no predicates", internalerr.ErrInvalidConfig, path)
	}
	return &m, nil
}

// Build registers the model's predicates and parses its rules,
// returning the templates and the open predicates.
func (m *Model) Build(reg *predicate.Registry) ([]*rule.Template, []*predicate.Predicate, error) {
	for _, def := range m.Predicates {
		types := make([]predicate.ArgType, len(def.Args))
		for i, s := range def.Args {
			t, err := predicate.ParseArgType(s)
			if err != nil {
				return nil, nil, fmt.Errorf("predicate %s: %w", def.Name, err)
			}
			types[i] = t
		}
		if _, err := reg.Register(def.Name, types, def.ArgNames...); err != nil {
			return nil, nil, err
		}
	}

	open := make([]*predicate.Predicate, 0, len(m.Open))
	for _, name := range m.Open {
		p, err := reg.Lookup(name)
		if err != nil {
			return nil, nil, fmt.Errorf("open predicate: %w", err)
		}
		open = append(open, p)
	}

	templates := make([]*rule.Template, 0, len(m.Rules))
	for i, def := range m.Rules {
		tpl := &rule.Template{Name: def.Name, Weight: def.Weight, Hard: def.Hard}
		if tpl.Name == "" {
			tpl.Name = fmt.Sprintf("rule-%d", i+1)
		}
		for _, s := range def.Body {
			lit, err := rule.ParseLiteral(reg, s)
			if err != nil {
				return nil, nil, fmt.Errorf("rule %q: %w", tpl.Name, err)
			}
			tpl.Body = append(tpl.Body, lit)
		}
		for _, s := range def.Head {
			lit, err := rule.ParseLiteral(reg, s)
			if err != nil {
				return nil, nil, fmt.Errorf("rule %q: %w", tpl.Name, err)
			}
			tpl.Head = append(tpl.Head, lit)
		}
		if err := tpl.Validate(); err != nil {
			return nil, nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, open, nil
}

// Facts is the YAML shape of an observed-fact file.
type Facts struct {
	Facts []FactDef `yaml:"facts"`
}

// FactDef is one observed ground atom, e.g. atom "Knows(alice, bob)"
// with a truth value. A missing value means 1.
type FactDef struct {
	Atom  string   `yaml:"atom"`
	Value *float64 `yaml:"value,omitempty"`
}

// LoadFacts reads and parses a facts YAML file.
func LoadFacts(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f Facts
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse facts %s: %w", path, err)
	}
	return &f, nil
}

// TruthValue returns the fact's value, defaulting to 1.
func (d FactDef) TruthValue() float64 {
	if d.Value == nil {
		return 1
	}
	return *d.Value
}
