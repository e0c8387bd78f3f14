package tests

import (
	"context"
	"testing"

	"github.com/pitabwire/frame/frametests/definition"
	"github.com/stretchr/testify/suite"

	"github.com/shahadathhs/service-media/apps/default/service/models"
	"github.com/shahadathhs/service-media/apps/default/service/repository"
)

type VideoMergeJobRepositoryTestSuite struct {
	BaseTestSuite
}

func TestVideoMergeJobRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(VideoMergeJobRepositoryTestSuite))
}

func seedMergeJob(
	ctx context.Context,
	repo repository.VideoMergeJobRepository,
	jobID, status string,
) (*models.VideoMergeJob, error) {
	job := &models.VideoMergeJob{
		JobID:       jobID,
		OutputURL:   "https://bucket.s3.us-east-1.amazonaws.com/merged/" + jobID + ".mp4",
		Status:      status,
		SubmittedBy: "user1",
	}
	job.SetSourceFileIDs([]string{"file1", "file2"})
	job.GenID(ctx)
	return job, repo.Create(ctx, job)
}

func (s *VideoMergeJobRepositoryTestSuite) TestGetByJobID() {
	s.WithTestDependencies(s.T(), func(t *testing.T, dep *definition.DependencyOption) {
		ctx, svc := s.CreateService(t, dep)
		workMan, dbPool := s.GetRepoDeps(ctx, svc)
		repo := repository.NewVideoMergeJobRepository(ctx, dbPool, workMan)

		job, err := seedMergeJob(ctx, repo, "job-abc", models.MergeStatusSubmitted)
		s.Require().NoError(err)

		retrieved, err := repo.GetByJobID(ctx, "job-abc")
		s.NoError(err)
		s.Equal(job.GetID(), retrieved.GetID())
		s.Equal([]string{"file1", "file2"}, retrieved.SourceFileIDs())
	})
}

func (s *VideoMergeJobRepositoryTestSuite) TestGetUnfinished() {
	s.WithTestDependencies(s.T(), func(t *testing.T, dep *definition.DependencyOption) {
		ctx, svc := s.CreateService(t, dep)
		workMan, dbPool := s.GetRepoDeps(ctx, svc)
		repo := repository.NewVideoMergeJobRepository(ctx, dbPool, workMan)

		submitted, err := seedMergeJob(ctx, repo, "job-1", models.MergeStatusSubmitted)
		s.Require().NoError(err)
		progressing, err := seedMergeJob(ctx, repo, "job-2", models.MergeStatusProgressing)
		s.Require().NoError(err)
		_, err = seedMergeJob(ctx, repo, "job-3", models.MergeStatusComplete)
		s.Require().NoError(err)
		_, err = seedMergeJob(ctx, repo, "job-4", models.MergeStatusError)
		s.Require().NoError(err)

		jobs, err := repo.GetUnfinished(ctx, 10)
		s.NoError(err)
		s.Len(jobs, 2)

		ids := []string{jobs[0].GetID(), jobs[1].GetID()}
		s.Contains(ids, submitted.GetID())
		s.Contains(ids, progressing.GetID())
	})
}

func (s *VideoMergeJobRepositoryTestSuite) TestGetUnfinishedHonoursLimit() {
	s.WithTestDependencies(s.T(), func(t *testing.T, dep *definition.DependencyOption) {
		ctx, svc := s.CreateService(t, dep)
		workMan, dbPool := s.GetRepoDeps(ctx, svc)
		repo := repository.NewVideoMergeJobRepository(ctx, dbPool, workMan)

		for _, jobID := range []string{"job-1", "job-2", "job-3"} {
			_, err := seedMergeJob(ctx, repo, jobID, models.MergeStatusSubmitted)
			s.Require().NoError(err)
		}

		jobs, err := repo.GetUnfinished(ctx, 2)
		s.NoError(err)
		s.Len(jobs, 2)
	})
}

func (s *VideoMergeJobRepositoryTestSuite) TestUpdateStatus() {
	s.WithTestDependencies(s.T(), func(t *testing.T, dep *definition.DependencyOption) {
		ctx, svc := s.CreateService(t, dep)
		workMan, dbPool := s.GetRepoDeps(ctx, svc)
		repo := repository.NewVideoMergeJobRepository(ctx, dbPool, workMan)

		job, err := seedMergeJob(ctx, repo, "job-xyz", models.MergeStatusSubmitted)
		s.Require().NoError(err)

		err = repo.UpdateStatus(ctx, job.GetID(), models.MergeStatusComplete)
		s.NoError(err)

		retrieved, err := repo.GetByID(ctx, job.GetID())
		s.NoError(err)
		s.Equal(models.MergeStatusComplete, retrieved.Status)

		jobs, err := repo.GetUnfinished(ctx, 10)
		s.NoError(err)
		s.Empty(jobs)
	})
}
