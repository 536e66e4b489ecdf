package commands

import (
	"encoding/json"
	"testing"

	"github.com/conduit-lang/facetmodel/internal/progmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoriesCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "factories")
	require.NoError(t, err)
	assert.Contains(t, stdout, "IgnoredMethodsFacetFactory")
	assert.Contains(t, stdout, "FEATURE TYPES")

	stdout, _, err = execute(t, "", "factories", "--format", "json")
	require.NoError(t, err)
	var roster []FactorySummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &roster))
	require.Len(t, roster, len(progmodel.DefaultOrder))
	for i, f := range roster {
		assert.Equal(t, progmodel.DefaultOrder[i], f.Name)
		assert.Equal(t, i+1, f.Position)
		assert.True(t, f.Active)
		assert.NotEmpty(t, f.FeatureTypes, f.Name)
	}
}

func TestFactoriesCommand_Catalog(t *testing.T) {
	stdout, _, err := execute(t, "programming_model:\n  remove:\n    - PluralMethodFacetFactory\n",
		"factories", "--catalog", "--format", "json")
	require.NoError(t, err)

	var all []FactorySummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &all))
	assert.Len(t, all, len(progmodel.Catalog()))

	byName := map[string]FactorySummary{}
	for _, f := range all {
		byName[f.Name] = f
	}
	assert.False(t, byName["PluralMethodFacetFactory"].Active)
	assert.True(t, byName["TitleMethodFacetFactory"].Active)
}
