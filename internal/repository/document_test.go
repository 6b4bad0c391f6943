package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
)

func openTestRepo(t *testing.T) DocumentRepository {
	t.Helper()
	db, dialect, err := Open(context.Background(), common.DatabaseConfig{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDocumentRepository(db, dialect, nil)
}

func strptr(s string) *string { return &s }

func TestInsertGetRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	doc := &entity.Document{
		Filename:     "blood-test.pdf",
		Category:     constants.LabReport,
		DocumentDate: strptr("2024-01-15"),
		DoctorName:   strptr("Dr. Smith"),
		HospitalName: strptr("City Hospital"),
		Summary:      strptr("Routine blood panel, all normal."),
		RawText:      "Blood test normal, Dr. Smith, City Hospital, 2024-01-15",
	}

	id, err := repo.Insert(ctx, doc)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, doc.Category, got.Category)
	assert.Equal(t, *doc.DocumentDate, *got.DocumentDate)
	assert.Equal(t, *doc.DoctorName, *got.DoctorName)
	assert.Equal(t, *doc.HospitalName, *got.HospitalName)
	assert.Equal(t, *doc.Summary, *got.Summary)
	assert.Equal(t, doc.RawText, got.RawText)
	assert.WithinDuration(t, doc.CreatedAt, got.CreatedAt, time.Second)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetByID(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestInsertDefaultsCategoryToOther(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, &entity.Document{Filename: "scan.jpg", RawText: "illegible"})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.Other, got.Category)
}

func TestListOrdersByDateDescUndatedTrailInsertionOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	insert := func(filename string, date *string) {
		_, err := repo.Insert(ctx, &entity.Document{
			Filename:     filename,
			Category:     constants.Other,
			DocumentDate: date,
			RawText:      "x",
		})
		require.NoError(t, err)
	}

	insert("old.pdf", strptr("2023-05-01"))
	insert("undated-a.pdf", nil)
	insert("new.pdf", strptr("2024-02-20"))
	insert("undated-b.pdf", nil)
	insert("mid.pdf", strptr("2023-11-11"))

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 5)

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Filename
	}
	assert.Equal(t, []string{"new.pdf", "mid.pdf", "old.pdf", "undated-a.pdf", "undated-b.pdf"}, names)
}

func TestListOmitsRawTextScanIncludesIt(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, &entity.Document{Filename: "a.pdf", RawText: "full ocr text"})
	require.NoError(t, err)

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].RawText)

	scanned, err := repo.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	assert.Equal(t, "full ocr text", scanned[0].RawText)
}

func TestConcurrentInsertAllocatesUniqueIDs(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	const n = 20
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := repo.Insert(ctx, &entity.Document{Filename: "c.pdf", RawText: "x"})
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
