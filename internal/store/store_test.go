package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	st "github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
)

var _ = Describe("Store", Ordered, func() {
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
		gormDB.Exec("DELETE from results;")
		gormDB.Exec("DELETE from chunks;")
		gormDB.Exec("DELETE from jobs;")
	})

	Context("transaction", func() {
		It("commits a job and its result together", func() {
			ctx, err := s.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			job, err := s.Job().Create(ctx, newTestJob())
			Expect(err).To(BeNil())
			Expect(s.Result().Set(ctx, &model.Result{JobID: job.ID, Content: "done", Format: "txt"})).To(BeNil())

			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			Expect(gormDB.Raw("SELECT COUNT(*) from jobs;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
			count = 0
			Expect(gormDB.Raw("SELECT COUNT(*) from results;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rolls back everything written in the transaction", func() {
			ctx, err := s.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			job, err := s.Job().Create(ctx, newTestJob())
			Expect(err).To(BeNil())

			// visible inside the transaction
			_, err = s.Job().Get(ctx, job.ID)
			Expect(err).To(BeNil())

			_, cerr := st.Rollback(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			Expect(gormDB.Raw("SELECT COUNT(*) from jobs;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
		})
	})

	Context("expiry sweep", func() {
		It("removes only records whose ttl elapsed", func() {
			expired, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())
			live, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())

			chunk := []model.Chunk{{JobID: expired.ID, ChunkID: 0, Payload: model.MakeJSONField(api.Chunk{})}}
			Expect(s.Chunk().CreateAll(context.TODO(), chunk)).To(BeNil())

			past := time.Now().Add(-time.Minute)
			Expect(gormDB.Exec("UPDATE jobs SET expires_at = ? WHERE id = ?", past, expired.ID).Error).To(BeNil())
			Expect(gormDB.Exec("UPDATE chunks SET expires_at = ? WHERE job_id = ?", past, expired.ID).Error).To(BeNil())

			deleted, err := s.DeleteExpired(context.TODO())
			Expect(err).To(BeNil())
			Expect(deleted).To(Equal(int64(2)))

			_, err = s.Job().Get(context.TODO(), expired.ID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
			_, err = s.Job().Get(context.TODO(), live.ID)
			Expect(err).To(BeNil())

			count, err := s.Chunk().Count(context.TODO(), expired.ID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})
	})

	Context("ttl", func() {
		It("never stores a record without an expiry", func() {
			job, err := s.Job().Create(context.TODO(), newTestJob())
			Expect(err).To(BeNil())
			Expect(job.ExpiresAt).To(BeTemporally("~", time.Now().Add(st.DefaultTTL), time.Minute))
		})
	})
})
