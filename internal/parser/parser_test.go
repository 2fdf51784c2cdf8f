package parser

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	common "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-coach/internal/matchtest"
	"github.com/pable/go-cs-coach/internal/model"
)

func TestLoad_JSON(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.C1, matchtest.T1, matchtest.Headshot())
	want := b.At(30).EndRound(model.TeamCT).Input()

	raw, err := json.Marshal(want)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "match.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	got, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, want.Meta.DemoHash, got.Meta.DemoHash)
	assert.Equal(t, want.Meta.TickRate, got.Meta.TickRate)
	assert.Equal(t, want.Events, got.Events)
	require.Len(t, got.Meta.Rounds, 1)
	assert.Equal(t, model.TeamT, got.Meta.Rounds[0].Sides[matchtest.T1])
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(context.Background(), filepath.Join(dir, "match.txt"), Options{})
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = Load(context.Background(), filepath.Join(dir, "missing.json"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"events": [`), 0o644))
	_, err = Load(context.Background(), bad, Options{})
	assert.ErrorContains(t, err, "decode events")

	_, err = Load(context.Background(), filepath.Join(dir, "missing.dem"), Options{})
	assert.ErrorContains(t, err, "open demo")
}

func TestTeamFromCommon(t *testing.T) {
	assert.Equal(t, model.TeamT, teamFromCommon(common.TeamTerrorists))
	assert.Equal(t, model.TeamCT, teamFromCommon(common.TeamCounterTerrorists))
	assert.Equal(t, model.TeamSpectators, teamFromCommon(common.TeamSpectators))
	assert.Equal(t, model.TeamUnknown, teamFromCommon(common.TeamUnassigned))
}

func TestSiteName(t *testing.T) {
	assert.Equal(t, "A", siteName(events.BombsiteA))
	assert.Equal(t, "B", siteName(events.BombsiteB))
	assert.Equal(t, "", siteName(events.Bombsite(0)))
}
