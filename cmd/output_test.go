package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-cli/internal/model"
)

func TestWriteOutput(t *testing.T) {
	entry := model.HistoryEntry{ID: "q1", QueryText: "house near lake", City: "Kandy", Tags: []string{"garden"}}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "text", entry, func(w io.Writer) error {
		_, err := io.WriteString(w, "plain\n")
		return err
	}))
	assert.Equal(t, "plain\n", buf.String())

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "json", entry, nil))
	assert.Contains(t, buf.String(), `"query_text": "house near lake"`)

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "yaml", entry, nil))
	out := buf.String()
	assert.Contains(t, out, "id: q1\n")
	assert.Contains(t, out, "query_text: house near lake\n")
	assert.Contains(t, out, "- garden")
	assert.Contains(t, out, "created_at: null")
	assert.NotContains(t, out, "{")

	assert.Error(t, writeOutput(&buf, "xml", entry, nil))
}
