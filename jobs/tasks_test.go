package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchExportPayloadValidate(t *testing.T) {
	assert.NoError(t, BatchExportPayload{From: "2026-08-01", To: "2026-08-31"}.Validate())
	assert.NoError(t, BatchExportPayload{}.Validate())

	assert.ErrorIs(t, BatchExportPayload{From: "01.08.2026", To: "2026-08-31"}.Validate(), ErrInvalidPayload)
	assert.ErrorIs(t, BatchExportPayload{From: "2026-08-01"}.Validate(), ErrInvalidPayload)
}

func TestBatchExportPayloadRange(t *testing.T) {
	now := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)

	from, to := BatchExportPayload{}.Range(now)
	assert.Equal(t, "2026-08-28", from)
	assert.Equal(t, "2026-08-28", to)

	from, to = BatchExportPayload{From: "2026-08-01", To: "2026-08-31"}.Range(now)
	assert.Equal(t, "2026-08-01", from)
	assert.Equal(t, "2026-08-31", to)
}

func TestNewBatchExportTask(t *testing.T) {
	task, err := NewBatchExportTask(BatchExportPayload{From: "2026-08-01", To: "2026-08-31", DocTypes: []string{"invoice"}})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeBatchExport, task.Type())

	var decoded BatchExportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, []string{"invoice"}, decoded.DocTypes)
}
