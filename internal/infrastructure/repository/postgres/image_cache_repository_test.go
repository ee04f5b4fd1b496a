package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func newImageCacheWithMock(t *testing.T) (*ImageCacheRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := &ImageCacheRepository{db: db, now: func() time.Time { return fixedNow }}
	return repo, mock, func() { _ = db.Close() }
}

func TestImageCacheGetMissReturnsNil(t *testing.T) {
	repo, mock, done := newImageCacheWithMock(t)
	defer done()

	mock.ExpectQuery("UPDATE image_cache").
		WithArgs("04427-42180", fixedNow).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Get(context.Background(), "04427-42180")
	if err != nil || got != nil {
		t.Fatalf("Get() = %+v, %v; want nil, nil", got, err)
	}
}

func TestImageCacheGetHitMarksCached(t *testing.T) {
	repo, mock, done := newImageCacheWithMock(t)
	defer done()

	mock.ExpectQuery("UPDATE image_cache").
		WithArgs("04427-42180", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"image_url", "quality", "source"}).
			AddRow("https://img.example/p.jpg", "high", "google_images"))

	got, err := repo.Get(context.Background(), "04427-42180")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Found || !got.Cached || got.Quality != domain.ImageQualityHigh {
		t.Fatalf("unexpected cached result: %+v", got)
	}
}

func TestImageCachePutSkipsMisses(t *testing.T) {
	repo, mock, done := newImageCacheWithMock(t)
	defer done()

	if err := repo.Put(context.Background(), domain.NotFoundImage("04427-42180", "google_images")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestImageCachePrune(t *testing.T) {
	repo, mock, done := newImageCacheWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM image_cache").
		WithArgs(fixedNow.Add(-24 * time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.Prune(context.Background(), 24*time.Hour)
	if err != nil || removed != 3 {
		t.Fatalf("Prune() = %d, %v", removed, err)
	}
}
