package model_test

import (
	"testing"

	"github.com/codex7/codex7/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestValidIdentifier(t *testing.T) {
	assert.True(t, model.ValidIdentifier("/vercel/next.js"))
	assert.True(t, model.ValidIdentifier("/vercel/next.js/v14"))
	assert.False(t, model.ValidIdentifier("vercel/next.js"))
	assert.False(t, model.ValidIdentifier("/vercel"))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, model.EstimateTokens(""))
	assert.Equal(t, 1, model.EstimateTokens("abc"))
	assert.Equal(t, 3, model.EstimateTokens("0123456789"))
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "1.2.3", model.NormalizeVersion("v1.2.3"))
	assert.Equal(t, "1.2.0", model.NormalizeVersion("1.2"))
	assert.Equal(t, "1.0.0", model.NormalizeVersion("1"))
	assert.Equal(t, "1.2.3", model.NormalizeVersion("1.2.3-beta.1"))
	assert.Equal(t, "0.0.0", model.NormalizeVersion(""))
}

func TestQualityScore_EmptySnippetIsHalf(t *testing.T) {
	assert.Equal(t, 0.5, model.QualityScore(0, 0, 0))
}

func TestQualityScore_BoundariesDoNotEarnBonus(t *testing.T) {
	assert.Equal(t, 0.7, model.QualityScore(2, 500, 50))
}

func TestQualityScore_AllBonusesClampToOne(t *testing.T) {
	assert.Equal(t, 1.0, model.QualityScore(3, 600, 60))
}

func TestDeriveSnippetID_StableAndLibraryScoped(t *testing.T) {
	a := model.DeriveSnippetID("lib-1", "/docs/intro.md", 0, "Intro")
	b := model.DeriveSnippetID("lib-1", "/docs/intro.md", 0, "Intro")
	c := model.DeriveSnippetID("lib-2", "/docs/intro.md", 0, "Intro")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestValidEmbedding(t *testing.T) {
	assert.True(t, model.ValidEmbedding(nil))
	assert.True(t, model.ValidEmbedding(make([]float32, model.EmbeddingDim)))
	assert.False(t, model.ValidEmbedding(make([]float32, 10)))
}
