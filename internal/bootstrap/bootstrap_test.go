package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/llm/openai"
	"github.com/joseph-ayodele/docintake/internal/ocr"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
)

func testConfig(t *testing.T) *common.Config {
	cfg := common.DefaultConfig()
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "b.db")
	cfg.LLM.Provider = "none"
	return cfg
}

func TestBuild_WithStore(t *testing.T) {
	rt, err := Build(context.Background(), testConfig(t), nil, Options{})
	require.NoError(t, err)
	defer rt.Close()

	assert.NotNil(t, rt.Documents)
	assert.NotNil(t, rt.Exporter)
	assert.Nil(t, rt.Archiver)
	assert.False(t, rt.EnrichmentEnabled())

	doc, _, err := rt.Processor.ProcessFile(context.Background(), "a.xml", []byte("<a>oi</a>"), pipeline.Options{Enrich: true})
	require.NoError(t, err)
	assert.Positive(t, doc.ID())

	n, err := rt.Documents.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBuild_SkipStore(t *testing.T) {
	rt, err := Build(context.Background(), testConfig(t), nil, Options{SkipStore: true})
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.DB)
	doc, _, err := rt.Processor.ProcessFile(context.Background(), "a.xml", []byte("<a>oi</a>"), pipeline.Options{})
	require.NoError(t, err)
	assert.Zero(t, doc.ID())
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.OCR.Engine = "magic"
	_, err := Build(context.Background(), cfg, nil, Options{})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewEngineAndEnricher(t *testing.T) {
	e, err := NewEngine(context.Background(), common.DefaultConfig().OCR, nil)
	require.NoError(t, err)
	assert.IsType(t, &ocr.TesseractEngine{}, e)

	cfg := common.DefaultConfig().LLM
	cfg.APIKey = "k"
	en, err := NewEnricher(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, en)

	cfg.Provider = "vertex"
	_, err = NewEnricher(context.Background(), cfg, nil)
	require.Error(t, err, "vertex requires a project")
}
