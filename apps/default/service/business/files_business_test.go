package business_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shahadathhs/service-media/apps/default/config"
	"github.com/shahadathhs/service-media/apps/default/service"
	"github.com/shahadathhs/service-media/apps/default/service/business"
	"github.com/shahadathhs/service-media/apps/default/service/models"
	"github.com/shahadathhs/service-media/apps/default/service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeFileStore struct {
	mu      sync.Mutex
	files   map[string]*models.FileInstance
	listed  []*models.FileInstance
	total   int64
	listErr error
	getErr  error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: map[string]*models.FileInstance{}}
}

func (f *fakeFileStore) Create(_ context.Context, file *models.FileInstance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.GetID()] = file
	return nil
}

func (f *fakeFileStore) GetByID(_ context.Context, id string) (*models.FileInstance, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return file, nil
}

func (f *fakeFileStore) GetByIDs(_ context.Context, ids []string) ([]*models.FileInstance, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []*models.FileInstance
	for _, id := range ids {
		if file, ok := f.files[id]; ok {
			found = append(found, file)
		}
	}
	return found, nil
}

func (f *fakeFileStore) ListPaged(_ context.Context, _, _ int) ([]*models.FileInstance, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listed, f.total, nil
}

func (f *fakeFileStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, id)
	return nil
}

type fakeMergeJobStore struct {
	mu         sync.Mutex
	jobs       map[string]*models.VideoMergeJob
	unfinished []*models.VideoMergeJob
	statuses   map[string]string
}

func newFakeMergeJobStore() *fakeMergeJobStore {
	return &fakeMergeJobStore{
		jobs:     map[string]*models.VideoMergeJob{},
		statuses: map[string]string{},
	}
}

func (f *fakeMergeJobStore) Create(_ context.Context, job *models.VideoMergeJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.GetID()] = job
	return nil
}

func (f *fakeMergeJobStore) GetByID(_ context.Context, id string) (*models.VideoMergeJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return job, nil
}

func (f *fakeMergeJobStore) GetUnfinished(_ context.Context, _ int) ([]*models.VideoMergeJob, error) {
	return f.unfinished, nil
}

func (f *fakeMergeJobStore) UpdateStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
}

type notifiedEvent struct {
	userID string
	event  string
	mode   string
}

func (f *fakeNotifier) NotifyUser(_ context.Context, userID, event string, _ any, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notifiedEvent{userID: userID, event: event, mode: "first"})
	return nil
}

func (f *fakeNotifier) BroadcastToUser(_ context.Context, userID, event string, _ any, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notifiedEvent{userID: userID, event: event, mode: "broadcast"})
	return nil
}

func (f *fakeNotifier) recorded() []notifiedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifiedEvent(nil), f.events...)
}

type fakeObjectStorage struct {
	mu      sync.Mutex
	stored  []storage.UploadInput
	deleted []string
	err     error
}

func (f *fakeObjectStorage) Upload(_ context.Context, input storage.UploadInput) (*storage.StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.stored = append(f.stored, input)
	key := "videos/stored-" + input.OriginalFilename
	return &storage.StoredObject{
		Key:      key,
		URL:      "https://bucket.s3.us-east-1.amazonaws.com/" + key,
		Filename: "stored-" + input.OriginalFilename,
	}, nil
}

func (f *fakeObjectStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func testMediaConfig() *config.MediaConfig {
	return &config.MediaConfig{
		MaxUploadFiles:     5,
		MinMergeVideos:     2,
		MaxMergeVideos:     10,
		MaxMergeFileSizeMB: 500,
		TotalShards:        1,
	}
}

func newFileBusiness(
	fileStore *fakeFileStore,
	store *fakeObjectStorage,
	notifier *fakeNotifier,
) business.FileBusiness {
	return business.NewFileBusiness(testMediaConfig(), fileStore, store, nil, notifier)
}

func TestFileBusiness_UploadFiles_Validation(t *testing.T) {
	ctx := context.Background()
	fb := newFileBusiness(newFakeFileStore(), &fakeObjectStorage{}, &fakeNotifier{})

	t.Run("no files", func(t *testing.T) {
		_, err := fb.UploadFiles(ctx, "user1", nil)
		assert.ErrorIs(t, err, service.ErrNoFilesUploaded)
	})

	t.Run("too many files", func(t *testing.T) {
		files := make([]business.UploadFile, 6)
		_, err := fb.UploadFiles(ctx, "user1", files)
		assert.ErrorIs(t, err, service.ErrTooManyUploadFiles)
	})
}

func TestFileBusiness_DeleteFiles_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("no file ids", func(t *testing.T) {
		fb := newFileBusiness(newFakeFileStore(), &fakeObjectStorage{}, &fakeNotifier{})
		_, err := fb.DeleteFiles(ctx, "user1", nil)
		assert.ErrorIs(t, err, service.ErrNoFileIDsProvided)
	})

	t.Run("none of the ids exist", func(t *testing.T) {
		fb := newFileBusiness(newFakeFileStore(), &fakeObjectStorage{}, &fakeNotifier{})
		_, err := fb.DeleteFiles(ctx, "user1", []string{"ghost"})
		assert.ErrorIs(t, err, service.ErrFilesNotFound)
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		fileStore := newFakeFileStore()
		fileStore.getErr = errors.New("db offline")
		fb := newFileBusiness(fileStore, &fakeObjectStorage{}, &fakeNotifier{})
		_, err := fb.DeleteFiles(ctx, "user1", []string{"file1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db offline")
	})
}

func TestFileBusiness_ListFiles(t *testing.T) {
	ctx := context.Background()
	fileStore := newFakeFileStore()
	fileStore.listed = []*models.FileInstance{{Filename: "a"}, {Filename: "b"}}
	fileStore.total = 12
	fb := newFileBusiness(fileStore, &fakeObjectStorage{}, &fakeNotifier{})

	t.Run("explicit paging", func(t *testing.T) {
		files, meta, err := fb.ListFiles(ctx, 2, 5)
		require.NoError(t, err)
		assert.Len(t, files, 2)
		assert.Equal(t, 2, meta.Page)
		assert.Equal(t, 5, meta.Limit)
		assert.Equal(t, int64(12), meta.Total)
	})

	t.Run("defaults applied for out of range paging", func(t *testing.T) {
		_, meta, err := fb.ListFiles(ctx, 0, -3)
		require.NoError(t, err)
		assert.Equal(t, 1, meta.Page)
		assert.Equal(t, 10, meta.Limit)
	})

	t.Run("list failure propagates", func(t *testing.T) {
		fileStore.listErr = errors.New("db offline")
		defer func() { fileStore.listErr = nil }()
		_, _, err := fb.ListFiles(ctx, 1, 10)
		require.Error(t, err)
	})
}

func TestFileBusiness_GetFile(t *testing.T) {
	ctx := context.Background()
	fileStore := newFakeFileStore()
	existing := &models.FileInstance{OriginalFilename: "cat.png"}
	existing.ID = "file1"
	fileStore.files["file1"] = existing
	fb := newFileBusiness(fileStore, &fakeObjectStorage{}, &fakeNotifier{})

	t.Run("found", func(t *testing.T) {
		file, err := fb.GetFile(ctx, "file1")
		require.NoError(t, err)
		assert.Equal(t, "cat.png", file.OriginalFilename)
	})

	t.Run("missing maps to not found", func(t *testing.T) {
		_, err := fb.GetFile(ctx, "ghost")
		assert.ErrorIs(t, err, service.ErrFileNotFound)
	})

	t.Run("other errors are not masked", func(t *testing.T) {
		fileStore.getErr = errors.New("db offline")
		defer func() { fileStore.getErr = nil }()
		_, err := fb.GetFile(ctx, "file1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, service.ErrFileNotFound)
	})
}
