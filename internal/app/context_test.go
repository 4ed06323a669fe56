package app

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"crmcore/internal/config"
	"crmcore/internal/engine"
)

func TestOpenWithoutConfigUsesDefaults(t *testing.T) {
	var logs bytes.Buffer
	rt, err := Open(context.Background(), Options{Workspace: t.TempDir(), LogLevel: "debug", LogOutput: &logs})
	require.NoError(t, err)
	defer rt.Close()

	require.Equal(t, config.Default().CardTypeNames(), rt.Config.CardTypeNames())
	require.Contains(t, logs.String(), "workspace opened")

	card, err := rt.Engine.CreateCard(context.Background(), engine.CardCreateOptions{Type: "deal", Name: "first", StageID: "lead"})
	require.NoError(t, err)
	require.Equal(t, 0.0, card.Order)
}

func TestOpenReadsWorkspaceConfig(t *testing.T) {
	workspace := t.TempDir()
	yml := `pipeline:
  card_types:
    lead:
      collection: leads
  archived_status: archived
ordering:
  empty_stage_order: 1000
  tail_step: 100
contacts:
  types:
    customer:
      collection: customers
log:
  level: warn
  format: json
`
	require.NoError(t, os.WriteFile(config.Path(workspace), []byte(yml), 0o644))
	var logs bytes.Buffer
	rt, err := Open(context.Background(), Options{Workspace: workspace, LogOutput: &logs})
	require.NoError(t, err)
	defer rt.Close()

	require.Equal(t, []string{"lead"}, rt.Config.CardTypeNames())
	order, err := rt.Engine.ComputeInsertOrder(context.Background(), "lead", "s", "")
	require.NoError(t, err)
	require.Equal(t, 1000.0, order)
	_, err = rt.Engine.ComputeInsertOrder(context.Background(), "deal", "s", "")
	require.ErrorIs(t, err, engine.ErrUnknownType)
	require.Empty(t, logs.String())
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(workspace), []byte("pipeline: {}\n"), 0o644))
	_, err := Open(context.Background(), Options{Workspace: workspace})
	require.Error(t, err)
}
