package sales

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status UploadStatus
		want   bool
	}{
		{"pending", UploadStatusPending, false},
		{"processing", UploadStatusProcessing, false},
		{"done", UploadStatusDone, true},
		{"failed", UploadStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
			assert.True(t, tt.status.IsValid())
		})
	}
	assert.False(t, UploadStatus("cancelled").IsValid())
}

func TestNewUpload(t *testing.T) {
	owner := uuid.New()

	t.Run("valid upload starts pending", func(t *testing.T) {
		u, err := NewUpload(owner, "sales.csv", FileFormatCSV)
		require.NoError(t, err)

		assert.Equal(t, UploadStatusPending, u.Status)
		assert.Equal(t, owner, u.OwnerID)
		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.Equal(t, u.ID.String()+"_sales.csv", u.StoragePath)
		assert.Empty(t, u.ErrorMessage)
	})

	t.Run("ids are never reused", func(t *testing.T) {
		a, err := NewUpload(owner, "sales.csv", FileFormatCSV)
		require.NoError(t, err)
		b, err := NewUpload(owner, "sales.csv", FileFormatCSV)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
		assert.NotEqual(t, a.StoragePath, b.StoragePath)
	})

	t.Run("path components are stripped from filename", func(t *testing.T) {
		u, err := NewUpload(owner, "../../etc/report.xlsx", FileFormatXLSX)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String()+"_report.xlsx", u.StoragePath)
	})

	t.Run("rejects nil owner", func(t *testing.T) {
		_, err := NewUpload(uuid.Nil, "sales.csv", FileFormatCSV)
		require.Error(t, err)
	})

	t.Run("rejects empty filename", func(t *testing.T) {
		_, err := NewUpload(owner, "  ", FileFormatCSV)
		require.Error(t, err)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := NewUpload(owner, "sales.json", FileFormat("json"))
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "UNSUPPORTED_FORMAT", domainErr.Code)
	})
}

func TestUpload_Lifecycle(t *testing.T) {
	newPending := func(t *testing.T) *Upload {
		u, err := NewUpload(uuid.New(), "sales.csv", FileFormatCSV)
		require.NoError(t, err)
		return u
	}

	t.Run("pending to processing to done", func(t *testing.T) {
		u := newPending(t)
		require.NoError(t, u.StartProcessing())
		assert.Equal(t, UploadStatusProcessing, u.Status)
		assert.NotNil(t, u.StartedAt)

		require.NoError(t, u.Complete(3, 1))
		assert.Equal(t, UploadStatusDone, u.Status)
		assert.Equal(t, 3, u.RowCount)
		assert.Equal(t, 1, u.DroppedCount)
		assert.NotNil(t, u.CompletedAt)
		assert.True(t, u.IsDone())
	})

	t.Run("processing to failed keeps message", func(t *testing.T) {
		u := newPending(t)
		require.NoError(t, u.StartProcessing())
		require.NoError(t, u.Fail("missing required columns: region"))
		assert.Equal(t, UploadStatusFailed, u.Status)
		assert.Equal(t, "missing required columns: region", u.ErrorMessage)
	})

	t.Run("pending can fail directly", func(t *testing.T) {
		u := newPending(t)
		require.NoError(t, u.Fail("queue full"))
		assert.Equal(t, UploadStatusFailed, u.Status)
	})

	t.Run("complete requires processing", func(t *testing.T) {
		u := newPending(t)
		assert.Error(t, u.Complete(1, 0))
	})

	t.Run("start requires pending", func(t *testing.T) {
		u := newPending(t)
		require.NoError(t, u.StartProcessing())
		assert.Error(t, u.StartProcessing())
	})

	t.Run("terminal states are final", func(t *testing.T) {
		done := newPending(t)
		require.NoError(t, done.StartProcessing())
		require.NoError(t, done.Complete(1, 0))
		assert.Error(t, done.Fail("late failure"))
		assert.Error(t, done.StartProcessing())
		assert.Equal(t, UploadStatusDone, done.Status)

		failed := newPending(t)
		require.NoError(t, failed.Fail("boom"))
		assert.Error(t, failed.Fail("again"))
		assert.Error(t, failed.StartProcessing())
		assert.Error(t, failed.Complete(1, 0))
		assert.Equal(t, "boom", failed.ErrorMessage)
	})

	t.Run("fail requires a message", func(t *testing.T) {
		u := newPending(t)
		assert.Error(t, u.Fail("   "))
		assert.Equal(t, UploadStatusPending, u.Status)
	})
}

func TestUpload_IsOwnedBy(t *testing.T) {
	owner := uuid.New()
	u, err := NewUpload(owner, "sales.csv", FileFormatCSV)
	require.NoError(t, err)

	assert.True(t, u.IsOwnedBy(owner))
	assert.False(t, u.IsOwnedBy(uuid.New()))
}
