package cli

import (
	"bytes"
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HYBRIDREC_CONFIG", "")
	t.Setenv("HYBRIDREC_LOG__LEVEL", "error")

	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecommendFromFixture(t *testing.T) {
	out, err := execute(t, "recommend", "-f", "testdata/fixture.yaml", "--user", "u1", "--reasoning")
	require.NoError(t, err)

	var res core.RecommendationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, core.AlgorithmHybrid, res.Algorithm)
	assert.NotEmpty(t, res.Recommendations)

	ids := res.ProductIDs()
	assert.NotContains(t, ids, "P4", "purchased products are excluded")
	assert.NotContains(t, ids, "P5", "purchased products are excluded")
	assert.NotContains(t, ids, "E1", "blacklisted in fixture")
	for _, rec := range res.Recommendations {
		assert.GreaterOrEqual(t, rec.Confidence, core.MinConfidenceThreshold)
		assert.NotEmpty(t, rec.Reasoning)
	}
}

func TestRecommendAnonymousUsesTrending(t *testing.T) {
	out, err := execute(t, "recommend", "-f", "testdata/fixture.yaml", "--limit", "3")
	require.NoError(t, err)

	var res core.RecommendationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, core.AlgorithmTrendingFallback, res.Algorithm)
	assert.LessOrEqual(t, len(res.Recommendations), 3)
}

func TestTrackRequiresUser(t *testing.T) {
	_, err := execute(t, "track", "--product", "P1")
	require.Error(t, err)
}

func TestTrackRejectsUnknownAction(t *testing.T) {
	_, err := execute(t, "track", "--user", "u1", "--product", "P1", "--action", "like")
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
}

func TestTrackRecordsEvent(t *testing.T) {
	out, err := execute(t, "track", "--user", "u9", "--product", "P1", "--action", "view", "--duration", "12")
	require.NoError(t, err)

	var events []core.InteractionEvent
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "u9", events[0].UserID)
	assert.Equal(t, core.ActionView, events[0].Action)
	assert.NotEmpty(t, events[0].ID)
}

func TestConfigDump(t *testing.T) {
	t.Setenv("HYBRIDREC_ENGINE__DEFAULT_LIMIT", "7")
	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "default_limit: 7")
	assert.Contains(t, out, "backend: memory")
}
