package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-cli/internal/model"
)

func TestFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "property-analysis-665f1c2ab.pdf", Filename("665f1c2ab"))
	assert.Equal(t, "property-analysis-a_b_c.pdf", Filename("a/b..c"))
	assert.Equal(t, "property-analysis-unknown.pdf", Filename(""))
}

func TestExport_WritesPDF(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	exp := NewExporter(dir, WithClock(func() time.Time { return fixedNow }))
	rec := sampleRecord()

	path, err := exp.Export(context.Background(), &rec, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "property-analysis-665f1c2ab.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestExport_OverwritesDeterministically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exp := NewExporter(dir, WithCanvas(newRecordCanvas))
	rec := sampleRecord()

	first, err := exp.Export(context.Background(), &rec, nil)
	require.NoError(t, err)
	second, err := exp.Export(context.Background(), &rec, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExport_RenderFailureLeavesNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exp := NewExporter(dir, WithCanvas(func(string) Canvas {
		return &recordCanvas{outputErr: errOutput}
	}))
	rec := sampleRecord()

	_, err := exp.Export(context.Background(), &rec, nil)
	require.ErrorIs(t, err, errOutput)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExport_Rejects(t *testing.T) {
	t.Parallel()

	exp := NewExporter(t.TempDir(), WithCanvas(newRecordCanvas))

	_, err := exp.Export(context.Background(), &model.AnalysisRecord{}, nil)
	require.Error(t, err)

	_, err = exp.Export(context.Background(), nil, nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := sampleRecord()
	_, err = exp.Export(ctx, &rec, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRender_ToWriter(t *testing.T) {
	t.Parallel()

	exp := NewExporter("", WithCanvas(newRecordCanvas), WithFacilityCap(2))
	rec := sampleRecord()
	var buf bytes.Buffer
	require.NoError(t, exp.Render(&buf, &rec, nil))
	assert.Contains(t, buf.String(), "1|Property Analysis Report")
}
