package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/nclamvn/prismy-ultimate/internal/config"
	st "github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
)

func newTestJob() *model.Job {
	return &model.Job{
		FilePath:       "/tmp/input.pdf",
		SourceLanguage: "en",
		TargetLanguage: "vi",
		Tier:           "standard",
	}
}

var _ = Describe("job store", Ordered, func() {
	var (
		s      st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())
		gormDB = db

		s = st.NewStore(db, st.DefaultTTL)
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		_ = s.Close()
	})

	AfterEach(func() {
		gormDB.Exec("DELETE from jobs;")
	})

	Context("create and get", func() {
		It("fills in id, status and expiry on create", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())
			Expect(job.ID).ToNot(Equal(uuid.UUID{}))
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(job.ExpiresAt).To(BeTemporally(">", time.Now()))

			found, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(found.FilePath).To(Equal("/tmp/input.pdf"))
			Expect(found.TargetLanguage).To(Equal("vi"))
		})

		It("returns not found for an unknown id", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("filters by status", func() {
			job1, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())
			_, err = s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			_, err = s.Job().Transition(context.TODO(), job1.ID, model.JobStatusExtracting, st.JobUpdate{})
			Expect(err).To(BeNil())

			jobs, err := s.Job().List(context.TODO(), st.NewJobQueryFilter().ByStatus(model.JobStatusExtracting))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(job1.ID))
		})

		It("honors the limit option", func() {
			for i := 0; i < 3; i++ {
				_, err := s.Job().Create(context.TODO(), newTestJob())
				Expect(err).To(BeNil())
			}

			jobs, err := s.Job().List(context.TODO(), st.NewJobQueryFilter().WithLimit(2))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
		})
	})

	Context("update", func() {
		It("writes only the selected fields", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			pages := 12
			fileType := "pdf"
			_, err = s.Job().Update(context.TODO(), job.ID, st.JobUpdate{TotalPages: &pages, FileType: &fileType})
			Expect(err).To(BeNil())

			found, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(found.TotalPages).To(Equal(12))
			Expect(found.FileType).To(Equal("pdf"))
			Expect(found.FilePath).To(Equal("/tmp/input.pdf"))
			Expect(found.Status).To(Equal(model.JobStatusPending))
		})

		It("returns not found for an unknown id", func() {
			progress := 10
			_, err := s.Job().Update(context.TODO(), uuid.New(), st.JobUpdate{Progress: &progress})
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("refreshes the record expiry", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			past := time.Now().Add(-time.Hour)
			Expect(gormDB.Exec("UPDATE jobs SET expires_at = ? WHERE id = ?", past, job.ID).Error).To(BeNil())

			progress := 10
			_, err = s.Job().Update(context.TODO(), job.ID, st.JobUpdate{Progress: &progress})
			Expect(err).To(BeNil())

			found, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(found.ExpiresAt).To(BeTemporally(">", time.Now()))
		})
	})

	Context("transition", func() {
		It("walks the happy path", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			for _, next := range []model.JobStatus{
				model.JobStatusExtracting,
				model.JobStatusChunking,
				model.JobStatusTranslating,
				model.JobStatusReconstructing,
				model.JobStatusCompleted,
			} {
				updated, err := s.Job().Transition(context.TODO(), job.ID, next, st.JobUpdate{})
				Expect(err).To(BeNil())
				Expect(updated.Status).To(Equal(next))
			}
		})

		It("rejects a skipped stage", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			_, err = s.Job().Transition(context.TODO(), job.ID, model.JobStatusTranslating, st.JobUpdate{})
			Expect(err).To(MatchError(model.ErrInvalidTransition))
		})

		It("rejects leaving a terminal state", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			_, err = s.Job().Transition(context.TODO(), job.ID, model.JobStatusCancelled, st.JobUpdate{})
			Expect(err).To(BeNil())

			_, err = s.Job().Transition(context.TODO(), job.ID, model.JobStatusExtracting, st.JobUpdate{})
			Expect(err).To(MatchError(model.ErrInvalidTransition))
		})

		It("never lowers progress", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			progress := 30
			_, err = s.Job().Update(context.TODO(), job.ID, st.JobUpdate{Progress: &progress})
			Expect(err).To(BeNil())

			lower := 5
			updated, err := s.Job().Transition(context.TODO(), job.ID, model.JobStatusExtracting, st.JobUpdate{Progress: &lower})
			Expect(err).To(BeNil())
			Expect(updated.Progress).To(Equal(30))
		})
	})

	Context("progress", func() {
		It("drops writes that would move progress backwards", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			Expect(s.Job().UpdateProgress(context.TODO(), job.ID, 50)).To(BeNil())
			Expect(s.Job().UpdateProgress(context.TODO(), job.ID, 30)).To(BeNil())

			found, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(found.Progress).To(Equal(50))

			Expect(s.Job().UpdateProgress(context.TODO(), job.ID, 60)).To(BeNil())
			found, err = s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(found.Progress).To(Equal(60))
		})
	})

	Context("delete", func() {
		It("is idempotent", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			Expect(s.Job().Delete(context.TODO(), job.ID)).To(BeNil())
			Expect(s.Job().Delete(context.TODO(), job.ID)).To(BeNil())

			_, err = s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})
})
