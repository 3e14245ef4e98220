package service_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/service"
	st "github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
)

// fakeQueue records enqueue and cancel calls instead of talking to river.
type fakeQueue struct {
	enqueued    []uuid.UUID
	cancelled   []int64
	nextTaskRef int64
	enqueueErr  error
}

func (q *fakeQueue) EnqueueExtract(_ context.Context, jobID uuid.UUID) (int64, error) {
	if q.enqueueErr != nil {
		return 0, q.enqueueErr
	}
	q.enqueued = append(q.enqueued, jobID)
	q.nextTaskRef++
	return q.nextTaskRef, nil
}

func (q *fakeQueue) CancelTask(_ context.Context, taskRef int64) error {
	q.cancelled = append(q.cancelled, taskRef)
	return nil
}

var _ service.Enqueuer = (*fakeQueue)(nil)

var _ = Describe("pipeline service", Ordered, func() {
	var (
		s      st.Store
		gormDB *gorm.DB
		queue  *fakeQueue
		svc    *service.PipelineService
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())
		gormDB = db

		s = st.NewStore(db, st.DefaultTTL)
		Expect(s.InitialMigration()).To(BeNil())
	})

	BeforeEach(func() {
		queue = &fakeQueue{}
		svc = service.NewPipelineService(s, queue)
	})

	AfterEach(func() {
		gormDB.Exec("DELETE from jobs;")
	})

	AfterAll(func() {
		_ = s.Close()
	})

	Context("create", func() {
		It("creates a pending job and enqueues extraction", func() {
			job, err := svc.CreateJob(context.TODO(), service.CreateJobRequest{
				FilePath:       "/tmp/input.pdf",
				SourceLanguage: "en",
				TargetLanguage: "vi",
				Tier:           api.TierPremium,
			})
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(job.Tier).To(Equal("premium"))
			Expect(job.PipelineTaskRef).ToNot(BeNil())

			Expect(queue.enqueued).To(HaveLen(1))
			Expect(queue.enqueued[0]).To(Equal(job.ID))
		})

		It("defaults the tier to standard", func() {
			job, err := svc.CreateJob(context.TODO(), service.CreateJobRequest{
				FilePath:       "/tmp/input.pdf",
				TargetLanguage: "vi",
			})
			Expect(err).To(BeNil())
			Expect(job.Tier).To(Equal("standard"))
		})

		It("rejects a request without a file path", func() {
			_, err := svc.CreateJob(context.TODO(), service.CreateJobRequest{TargetLanguage: "vi"})
			var invalid *service.ErrInvalidRequest
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("rejects a request without a target language", func() {
			_, err := svc.CreateJob(context.TODO(), service.CreateJobRequest{FilePath: "/tmp/input.pdf"})
			var invalid *service.ErrInvalidRequest
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("rejects an unknown tier", func() {
			_, err := svc.CreateJob(context.TODO(), service.CreateJobRequest{
				FilePath:       "/tmp/input.pdf",
				TargetLanguage: "vi",
				Tier:           api.Tier("platinum"),
			})
			var invalid *service.ErrInvalidRequest
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("marks the job failed when enqueueing fails", func() {
			queue.enqueueErr = errors.New("queue unavailable")

			_, err := svc.CreateJob(context.TODO(), service.CreateJobRequest{
				FilePath:       "/tmp/input.pdf",
				TargetLanguage: "vi",
			})
			Expect(err).To(MatchError(queue.enqueueErr))

			jobs, err := svc.ListJobs(context.TODO(), st.NewJobQueryFilter().ByStatus(model.JobStatusFailed))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].Error).ToNot(BeNil())
		})
	})

	Context("get", func() {
		It("returns a typed error for an unknown job", func() {
			_, err := svc.GetJob(context.TODO(), uuid.New())
			var notFound *service.ErrJobNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("returns a typed error for a missing result", func() {
			_, err := svc.GetResult(context.TODO(), uuid.New())
			var notFound *service.ErrJobNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})

	Context("cancel", func() {
		It("cancels a pending job and its queue task", func() {
			job, err := svc.CreateJob(context.TODO(), service.CreateJobRequest{
				FilePath:       "/tmp/input.pdf",
				TargetLanguage: "vi",
			})
			Expect(err).To(BeNil())

			cancelled, err := svc.CancelJob(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(cancelled.Status).To(Equal(model.JobStatusCancelled))
			Expect(queue.cancelled).To(HaveLen(1))
		})

		It("refuses to cancel a finished job", func() {
			job, err := svc.CreateJob(context.TODO(), service.CreateJobRequest{
				FilePath:       "/tmp/input.pdf",
				TargetLanguage: "vi",
			})
			Expect(err).To(BeNil())

			_, err = svc.CancelJob(context.TODO(), job.ID)
			Expect(err).To(BeNil())

			_, err = svc.CancelJob(context.TODO(), job.ID)
			var finished *service.ErrJobFinished
			Expect(errors.As(err, &finished)).To(BeTrue())
		})
	})
})
