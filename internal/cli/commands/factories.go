package commands

import (
	"strconv"
	"strings"

	"github.com/conduit-lang/facetmodel/internal/cli/ui"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/progmodel"
	"github.com/spf13/cobra"
)

var showCatalog bool

// FactorySummary describes one roster entry
type FactorySummary struct {
	Position     int      `json:"position,omitempty" yaml:"position,omitempty"`
	Name         string   `json:"name" yaml:"name"`
	FeatureTypes []string `json:"feature_types,omitempty" yaml:"feature_types,omitempty"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Active       bool     `json:"active" yaml:"active"`
}

// NewFactoriesCommand creates the factories command
func NewFactoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factories",
		Short: "List the facet factory roster",
		Long: `List the facet factories of the configured programming model in the order
the processor runs them, with the feature types each one handles.

Use --catalog to list every factory that programming_model.add can name.`,
		Example: `  # Show the active roster
  facetmodel factories

  # Show every known factory and whether it is active
  facetmodel factories --catalog --format json`,
		RunE: runFactories,
	}
	cmd.Flags().BoolVar(&showCatalog, "catalog", false, "List the whole factory catalog")
	cmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json or yaml")
	return cmd
}

// capabilities lists the optional factory contracts f implements
func capabilities(f facetfactory.FacetFactory) []string {
	var caps []string
	if p, ok := f.(facetfactory.MethodPrefixBased); ok && len(p.Prefixes()) > 0 {
		caps = append(caps, "prefixes="+strings.Join(p.Prefixes(), "|"))
	}
	if _, ok := f.(facetfactory.MethodFiltering); ok {
		caps = append(caps, "filtering")
	}
	if _, ok := f.(facetfactory.PropertyOrCollectionIdentifying); ok {
		caps = append(caps, "identifying")
	}
	return caps
}

func runFactories(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg)
	if err != nil {
		return err
	}
	defer env.close()

	names := env.model.Names()
	instances := env.model.List()
	var summaries []FactorySummary
	active := make(map[string]bool, len(names))
	for i, name := range names {
		active[name] = true
		summary := FactorySummary{Position: i + 1, Name: name, Active: true}
		if i < len(instances) {
			for _, ft := range instances[i].FeatureTypes() {
				summary.FeatureTypes = append(summary.FeatureTypes, ft.String())
			}
			summary.Capabilities = capabilities(instances[i])
		}
		summaries = append(summaries, summary)
	}
	if showCatalog {
		for _, name := range progmodel.Catalog().Names() {
			if !active[name] {
				summaries = append(summaries, FactorySummary{Name: name})
			}
		}
	}

	out := cmd.OutOrStdout()
	if done, err := writeFormatted(out, summaries); done {
		return err
	}

	table := ui.NewTable(out, noColor, "#", "FACTORY", "FEATURE TYPES", "CAPABILITIES")
	for _, s := range summaries {
		position := "-"
		if s.Active {
			position = strconv.Itoa(s.Position)
		}
		table.AddRow(position, s.Name, strings.Join(s.FeatureTypes, ","), strings.Join(s.Capabilities, " "))
	}
	table.Render()
	return nil
}
