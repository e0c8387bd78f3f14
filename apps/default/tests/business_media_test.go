package tests

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pitabwire/frame/frametests/definition"
	"github.com/pitabwire/util"
	"github.com/stretchr/testify/suite"

	"github.com/shahadathhs/service-media/apps/default/config"
	"github.com/shahadathhs/service-media/apps/default/service/business"
	"github.com/shahadathhs/service-media/apps/default/service/models"
	"github.com/shahadathhs/service-media/apps/default/service/repository"
	"github.com/shahadathhs/service-media/apps/default/service/storage"
)

// memObjectStorage keeps uploaded objects in memory. Safe for the
// parallel uploads the worker pool issues.
type memObjectStorage struct {
	mu      sync.Mutex
	objects map[string]storage.UploadInput
	deleted []string
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: map[string]storage.UploadInput{}}
}

func (m *memObjectStorage) Upload(_ context.Context, input storage.UploadInput) (*storage.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "videos/" + util.IDString()
	m.objects[key] = input
	return &storage.StoredObject{
		Key:      key,
		URL:      "https://bucket.s3.us-east-1.amazonaws.com/" + key,
		Filename: key,
	}, nil
}

func (m *memObjectStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memObjectStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type recordedNotification struct {
	userID string
	event  string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedNotification
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID, event string, _ any, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedNotification{userID: userID, event: event})
	return nil
}

func (n *recordingNotifier) BroadcastToUser(ctx context.Context, userID, event string, _ any, _ string) error {
	return n.NotifyUser(ctx, userID, event, nil, "")
}

type scriptedConverter struct {
	jobID  string
	status string
	inputs []string
}

func (c *scriptedConverter) CreateMergeJob(_ context.Context, videoURLs []string) (*storage.MergeJob, error) {
	c.inputs = videoURLs
	return &storage.MergeJob{
		JobID:     c.jobID,
		OutputURL: "https://bucket.s3.us-east-1.amazonaws.com/merged/output.mp4",
	}, nil
}

func (c *scriptedConverter) GetJobStatus(_ context.Context, _ string) (string, error) {
	return c.status, nil
}

type MediaBusinessTestSuite struct {
	BaseTestSuite
}

func TestMediaBusinessTestSuite(t *testing.T) {
	suite.Run(t, new(MediaBusinessTestSuite))
}

func mediaConfigForTests() *config.MediaConfig {
	return &config.MediaConfig{
		MaxUploadFiles:       5,
		MaxUploadSizeMB:      100,
		MinMergeVideos:       2,
		MaxMergeVideos:       10,
		MaxMergeFileSizeMB:   500,
		MergePollIntervalSec: 30,
		TotalShards:          1,
	}
}

func uploads(n int) []business.UploadFile {
	files := make([]business.UploadFile, 0, n)
	for i := range n {
		files = append(files, business.UploadFile{
			Filename: fmt.Sprintf("clip-%d.mp4", i),
			MimeType: "video/mp4",
			Size:     2048,
			Content:  strings.NewReader("video bytes"),
		})
	}
	return files
}

func (s *MediaBusinessTestSuite) TestUploadFiles() {
	s.WithTestDependencies(s.T(), func(t *testing.T, dep *definition.DependencyOption) {
		ctx, svc := s.CreateService(t, dep)
		workMan, dbPool := s.GetRepoDeps(ctx, svc)

		fileRepo := repository.NewFileInstanceRepository(ctx, dbPool, workMan)
		store := newMemObjectStorage()
		notifier := &recordingNotifier{}
		fb := business.NewFileBusiness(mediaConfigForTests(), fileRepo, store, workMan, notifier)

		result, err := fb.UploadFiles(ctx, "user1", uploads(3))
		s.Require().NoError(err)
		s.Equal(3, result.Count)
		s.Len(result.Files, 3)
		s.Equal(3, store.count())

		for _, file := range result.Files {
			s.Equal("user1", file.OwnerID)
			s.Equal(models.FileTypeVideo, file.FileType)
			s.NotEmpty(file.GetID())
		}

		persisted, total, err := fileRepo.ListPaged(ctx, 1, 10)
		s.NoError(err)
		s.Len(persisted, 3)
		s.Equal(int64(3), total)

		s.Require().Len(notifier.events, 1)
		s.Equal("user1", notifier.events[0].userID)
	})
}

func (s *MediaBusinessTestSuite) TestDeleteFiles() {
	s.WithTestDependencies(s.T(), func(t *testing.T, dep *definition.DependencyOption) {
		ctx, svc := s.CreateService(t, dep)
		workMan, dbPool := s.GetRepoDeps(ctx, svc)

		fileRepo := repository.NewFileInstanceRepository(ctx, dbPool, workMan)
		store := newMemObjectStorage()
		notifier := &recordingNotifier{}
		fb := business.NewFileBusiness(mediaConfigForTests(), fileRepo, store, workMan, notifier)

		uploaded, err := fb.UploadFiles(ctx, "user1", uploads(2))
		s.Require().NoError(err)

		ids := []string{uploaded.Files[0].GetID(), uploaded.Files[1].GetID()}
		result, err := fb.DeleteFiles(ctx, "user1", ids)
		s.Require().NoError(err)
		s.Equal(2, result.Count)

		s.Equal(0, store.count())
		s.Len(store.deleted, 2)

		remaining, err := fileRepo.GetByIDs(ctx, ids)
		s.NoError(err)
		s.Empty(remaining)
	})
}

func (s *MediaBusinessTestSuite) TestMergeVideos() {
	s.WithTestDependencies(s.T(), func(t *testing.T, dep *definition.DependencyOption) {
		ctx, svc := s.CreateService(t, dep)
		workMan, dbPool := s.GetRepoDeps(ctx, svc)

		fileRepo := repository.NewFileInstanceRepository(ctx, dbPool, workMan)
		mergeRepo := repository.NewVideoMergeJobRepository(ctx, dbPool, workMan)
		store := newMemObjectStorage()
		notifier := &recordingNotifier{}
		converter := &scriptedConverter{jobID: "mc-job-1"}
		mb := business.NewMergeBusiness(
			mediaConfigForTests(), fileRepo, mergeRepo, store, converter, workMan, notifier,
		)

		submission, err := mb.MergeVideos(ctx, "user1", uploads(2))
		s.Require().NoError(err)
		s.Equal("mc-job-1", submission.JobID)
		s.Equal(models.MergeStatusSubmitted, submission.Status)
		s.Len(submission.SourceFiles, 2)
		s.Len(converter.inputs, 2)

		record, err := mergeRepo.GetByID(ctx, submission.MergeID)
		s.NoError(err)
		s.Equal("mc-job-1", record.JobID)
		s.Equal(models.MergeStatusSubmitted, record.Status)
		s.Equal("user1", record.SubmittedBy)
		s.Len(record.SourceFileIDs(), 2)
	})
}

func (s *MediaBusinessTestSuite) TestMergeJobStatusPersistsTransition() {
	s.WithTestDependencies(s.T(), func(t *testing.T, dep *definition.DependencyOption) {
		ctx, svc := s.CreateService(t, dep)
		workMan, dbPool := s.GetRepoDeps(ctx, svc)

		fileRepo := repository.NewFileInstanceRepository(ctx, dbPool, workMan)
		mergeRepo := repository.NewVideoMergeJobRepository(ctx, dbPool, workMan)
		store := newMemObjectStorage()
		notifier := &recordingNotifier{}
		converter := &scriptedConverter{jobID: "mc-job-2", status: models.MergeStatusProgressing}
		mb := business.NewMergeBusiness(
			mediaConfigForTests(), fileRepo, mergeRepo, store, converter, workMan, notifier,
		)

		submission, err := mb.MergeVideos(ctx, "user1", uploads(2))
		s.Require().NoError(err)

		status, err := mb.MergeJobStatus(ctx, submission.MergeID)
		s.Require().NoError(err)
		s.Equal(models.MergeStatusProgressing, status.Status)

		record, err := mergeRepo.GetByID(ctx, submission.MergeID)
		s.NoError(err)
		s.Equal(models.MergeStatusProgressing, record.Status)
	})
}
