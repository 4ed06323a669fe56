package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, []string{"deal", "growth_hack", "task", "ticket"}, cfg.CardTypeNames())
	require.Equal(t, []string{"company", "customer"}, cfg.ContactTypeNames())
	require.Equal(t, 100.0, cfg.Ordering.EmptyStageOrder)
	require.Equal(t, "deals", cfg.Pipeline.CardTypes["deal"].Collection)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"no card types": `pipeline: {archived_status: archived}
ordering: {empty_stage_order: 100, tail_step: 10}`,
		"shared collection": `pipeline:
  card_types: {deal: {collection: x}, task: {collection: x}}
  archived_status: archived
ordering: {empty_stage_order: 100, tail_step: 10}`,
		"reserved collection": `pipeline:
  card_types: {deal: {collection: conformities}}
  archived_status: archived
ordering: {empty_stage_order: 100, tail_step: 10}`,
		"type in both sections": `pipeline:
  card_types: {deal: {collection: deals}}
  archived_status: archived
ordering: {empty_stage_order: 100, tail_step: 10}
contacts:
  types: {deal: {collection: people}}`,
		"bad step": `pipeline:
  card_types: {deal: {collection: deals}}
  archived_status: archived
ordering: {empty_stage_order: 100, tail_step: 0}`,
		"bad log level": `pipeline:
  card_types: {deal: {collection: deals}}
  archived_status: archived
ordering: {empty_stage_order: 100, tail_step: 10}
log: {level: loud}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = Load(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(GenerateDefault()), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	require.Equal(t, "/v0", cfg.Server.BasePath)
}
