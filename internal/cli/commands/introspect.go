package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/conduit-lang/facetmodel/internal/cli/ui"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	// Flags for introspect commands
	outputFormat string
	showAll      bool
	verbose      bool
)

// NewIntrospectCommand creates the introspect command group
func NewIntrospectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Introspect object specifications",
		Long: `Introspect the object specifications built by the facet factories.

Every command loads the sample orders domain through the configured
programming model, so programming_model.add and programming_model.remove
in facetmodel.yaml change what is shown.`,
		Example: `  # List the domain specifications
  facetmodel introspect specs

  # Include value types such as string and time.Time
  facetmodel introspect specs --all

  # Show the members and facets of one specification
  facetmodel introspect spec Customer --verbose

  # Output in YAML for tooling
  facetmodel introspect spec Order --format yaml`,
	}

	cmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json or yaml")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show facet types")

	cmd.AddCommand(newIntrospectSpecsCommand())
	cmd.AddCommand(newIntrospectSpecCommand())

	return cmd
}

func newIntrospectSpecsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specs",
		Short: "List loaded specifications",
		RunE:  runIntrospectSpecs,
	}
	cmd.Flags().BoolVar(&showAll, "all", false, "Include value and collection specifications")
	return cmd
}

func newIntrospectSpecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "spec <name>",
		Short: "Show one specification",
		Long: `Show the properties, collections and actions of one specification.

The name is either the full name (github.com/acme/orders.Customer) or the
short name (Customer) when that is unambiguous.`,
		Args: cobra.ExactArgs(1),
		RunE: runIntrospectSpec,
	}
}

// SpecSummary describes one specification for output
type SpecSummary struct {
	Name        string          `json:"name" yaml:"name"`
	FullName    string          `json:"full_name" yaml:"full_name"`
	Singular    string          `json:"singular" yaml:"singular"`
	Plural      string          `json:"plural" yaml:"plural"`
	Kind        string          `json:"kind" yaml:"kind"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Facets      []string        `json:"facets,omitempty" yaml:"facets,omitempty"`
	Properties  []MemberSummary `json:"properties,omitempty" yaml:"properties,omitempty"`
	Collections []MemberSummary `json:"collections,omitempty" yaml:"collections,omitempty"`
	Actions     []ActionSummary `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// MemberSummary describes a property or collection
type MemberSummary struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	Mandatory    bool     `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	NotPersisted bool     `json:"not_persisted,omitempty" yaml:"not_persisted,omitempty"`
	Facets       []string `json:"facets,omitempty" yaml:"facets,omitempty"`
}

// ActionSummary describes an action and its parameters
type ActionSummary struct {
	ID         string             `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Returns    string             `json:"returns,omitempty" yaml:"returns,omitempty"`
	Parameters []ParameterSummary `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Facets     []string           `json:"facets,omitempty" yaml:"facets,omitempty"`
}

// ParameterSummary describes one action parameter
type ParameterSummary struct {
	Name      string   `json:"name" yaml:"name"`
	Type      string   `json:"type" yaml:"type"`
	Mandatory bool     `json:"mandatory" yaml:"mandatory"`
	Facets    []string `json:"facets,omitempty" yaml:"facets,omitempty"`
}

func kindOf(s *spec.ObjectSpecification) string {
	switch {
	case s.IsCollection():
		return "collection"
	case s.IsValue():
		return "value"
	default:
		return "object"
	}
}

func facetNames(h facet.Holder) []string {
	types := h.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

func typeName(s *spec.ObjectSpecification) string {
	if s == nil {
		return ""
	}
	return s.ShortName()
}

// Summarize builds the output form of s; facet types are included when withFacets is set.
func Summarize(s *spec.ObjectSpecification, withFacets bool) SpecSummary {
	summary := SpecSummary{
		Name:        s.ShortName(),
		FullName:    s.FullName(),
		Singular:    s.SingularName(),
		Plural:      s.PluralName(),
		Kind:        kindOf(s),
		Description: s.Description(),
	}
	facetsOf := func(h facet.Holder) []string {
		if !withFacets {
			return nil
		}
		return facetNames(h)
	}
	summary.Facets = facetsOf(s)

	for _, p := range s.Properties() {
		summary.Properties = append(summary.Properties, MemberSummary{
			ID: p.ID(), Name: p.Name(), Type: typeName(p.Specification()),
			Mandatory: p.IsMandatory(), NotPersisted: p.IsNotPersisted(), Facets: facetsOf(p),
		})
	}
	for _, c := range s.Collections() {
		summary.Collections = append(summary.Collections, MemberSummary{
			ID: c.ID(), Name: c.Name(), Type: typeName(c.Specification()),
			NotPersisted: c.IsNotPersisted(), Facets: facetsOf(c),
		})
	}
	for _, a := range s.Actions() {
		action := ActionSummary{ID: a.ID(), Name: a.Name(), Returns: typeName(a.Specification()), Facets: facetsOf(a)}
		for _, p := range a.Parameters() {
			action.Parameters = append(action.Parameters, ParameterSummary{
				Name: p.Name(), Type: typeName(p.Specification()), Mandatory: p.IsMandatory(), Facets: facetsOf(p),
			})
		}
		summary.Actions = append(summary.Actions, action)
	}
	return summary
}

// writeFormatted encodes data as JSON or YAML and reports false for the table format.
func writeFormatted(w io.Writer, data any) (bool, error) {
	switch strings.ToLower(outputFormat) {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return true, encoder.Encode(data)
	case "yaml", "yml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return true, err
		}
		return true, encoder.Close()
	case "table", "":
		return false, nil
	default:
		return true, fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", outputFormat)
	}
}

func runIntrospectSpecs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg)
	if err != nil {
		return err
	}
	defer env.close()

	var summaries []SpecSummary
	for _, s := range env.loader.AllSpecifications() {
		if !showAll && (s.IsValue() || s.IsCollection()) {
			continue
		}
		summaries = append(summaries, Summarize(s, verbose))
	}

	out := cmd.OutOrStdout()
	if done, err := writeFormatted(out, summaries); done {
		return err
	}

	headers := []string{"NAME", "PLURAL", "KIND", "PROPERTIES", "COLLECTIONS", "ACTIONS"}
	if verbose {
		headers = append(headers, "FACETS")
	}
	table := ui.NewTable(out, noColor, headers...)
	for _, s := range summaries {
		table.AddRow(s.Name, s.Plural, s.Kind,
			strconv.Itoa(len(s.Properties)), strconv.Itoa(len(s.Collections)), strconv.Itoa(len(s.Actions)),
			strings.Join(s.Facets, ","))
	}
	table.Render()
	return nil
}

func runIntrospectSpec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg)
	if err != nil {
		return err
	}
	defer env.close()

	s, err := env.loader.LoadSpecificationByName(args[0])
	if err != nil {
		if errors.Is(err, spec.ErrNotFound) {
			var names []string
			for _, known := range env.loader.AllSpecifications() {
				names = append(names, known.ShortName())
			}
			ui.WriteNotFound(cmd.ErrOrStderr(), ui.NotFound{
				Kind:       "specification",
				Name:       args[0],
				Candidates: names,
				Help:       "See all specifications: facetmodel introspect specs --all",
			}, noColor)
		}
		return err
	}

	summary := Summarize(s, verbose)
	out := cmd.OutOrStdout()
	if done, err := writeFormatted(out, summary); done {
		return err
	}
	renderSpec(out, summary)
	return nil
}

func renderSpec(w io.Writer, s SpecSummary) {
	ui.Header(w, s.FullName, noColor)
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Singular", s.Singular)
	kv.AddRow("Plural", s.Plural)
	kv.AddRow("Kind", s.Kind)
	if s.Description != "" {
		kv.AddRow("Description", s.Description)
	}
	if len(s.Facets) > 0 {
		kv.AddRow("Facets", strings.Join(s.Facets, ", "))
	}
	kv.Render()

	if len(s.Properties)+len(s.Collections) > 0 {
		fmt.Fprintln(w)
		members := ui.NewTable(w, noColor, "MEMBER", "NAME", "KIND", "TYPE", "FLAGS")
		for _, p := range s.Properties {
			members.AddRow(p.ID, p.Name, "property", p.Type, memberFlags(p))
		}
		for _, c := range s.Collections {
			members.AddRow(c.ID, c.Name, "collection", c.Type, memberFlags(c))
		}
		members.Render()
	}

	if len(s.Actions) > 0 {
		fmt.Fprintln(w)
		actions := ui.NewTable(w, noColor, "ACTION", "NAME", "PARAMETERS", "RETURNS")
		for _, a := range s.Actions {
			params := make([]string, len(a.Parameters))
			for i, p := range a.Parameters {
				params[i] = p.Name + " " + p.Type
				if !p.Mandatory {
					params[i] += "?"
				}
			}
			actions.AddRow(a.ID, a.Name, strings.Join(params, ", "), a.Returns)
		}
		actions.Render()
	}

	if verbose {
		for _, m := range append(append([]MemberSummary(nil), s.Properties...), s.Collections...) {
			fmt.Fprintf(w, "\n%s: %s", m.ID, strings.Join(m.Facets, ", "))
		}
		for _, a := range s.Actions {
			fmt.Fprintf(w, "\n%s: %s", a.ID, strings.Join(a.Facets, ", "))
		}
		fmt.Fprintln(w)
	}
}

func memberFlags(m MemberSummary) string {
	var flags []string
	if m.Mandatory {
		flags = append(flags, "mandatory")
	}
	if m.NotPersisted {
		flags = append(flags, "not-persisted")
	}
	return strings.Join(flags, ",")
}
