package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	st "github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
)

var _ = Describe("artifact stores", Ordered, func() {
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
		gormDB.Exec("DELETE from extraction_batches;")
		gormDB.Exec("DELETE from chunks;")
		gormDB.Exec("DELETE from translated_chunks;")
		gormDB.Exec("DELETE from results;")
	})

	Context("batches", func() {
		It("lists batches in batch order", func() {
			jobID := uuid.New()
			for _, batchID := range []int{2, 0, 1} {
				batch := &model.ExtractionBatch{
					JobID:     jobID,
					BatchID:   batchID,
					PageStart: batchID*10 + 1,
					PageEnd:   batchID*10 + 10,
					Elements:  model.MakeJSONField([]api.Element{{Type: api.ElementTypeText, Content: "x"}}),
				}
				Expect(s.Batch().Create(context.TODO(), batch)).To(BeNil())
			}

			batches, err := s.Batch().List(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(batches).To(HaveLen(3))
			Expect(batches[0].BatchID).To(Equal(0))
			Expect(batches[2].BatchID).To(Equal(2))
			Expect(batches[0].Elements.Data).To(HaveLen(1))
		})

		It("scopes deletes to one job", func() {
			jobID := uuid.New()
			otherID := uuid.New()
			for _, id := range []uuid.UUID{jobID, otherID} {
				batch := &model.ExtractionBatch{
					JobID:    id,
					Elements: model.MakeJSONField([]api.Element{}),
				}
				Expect(s.Batch().Create(context.TODO(), batch)).To(BeNil())
			}

			Expect(s.Batch().DeleteForJob(context.TODO(), jobID)).To(BeNil())

			count, err := s.Batch().Count(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))

			count, err = s.Batch().Count(context.TODO(), otherID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Context("chunks", func() {
		It("creates all chunks and lists them in chunk order", func() {
			jobID := uuid.New()
			chunks := []model.Chunk{
				{JobID: jobID, ChunkID: 1, Payload: model.MakeJSONField(api.Chunk{ChunkID: 1, Text: "b"})},
				{JobID: jobID, ChunkID: 0, Payload: model.MakeJSONField(api.Chunk{ChunkID: 0, Text: "a"})},
			}
			Expect(s.Chunk().CreateAll(context.TODO(), chunks)).To(BeNil())

			stored, err := s.Chunk().List(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(stored).To(HaveLen(2))
			Expect(stored[0].Payload.Data.Text).To(Equal("a"))
			Expect(stored[1].Payload.Data.Text).To(Equal("b"))
		})

		It("accepts an empty chunk list", func() {
			Expect(s.Chunk().CreateAll(context.TODO(), nil)).To(BeNil())
		})
	})

	Context("translated chunks", func() {
		It("overwrites an existing chunk on save", func() {
			jobID := uuid.New()
			chunk := &model.TranslatedChunk{
				JobID:   jobID,
				ChunkID: 0,
				Payload: model.MakeJSONField(api.TranslatedChunk{TranslatedText: "first attempt"}),
			}
			Expect(s.Translated().Save(context.TODO(), chunk)).To(BeNil())

			chunk = &model.TranslatedChunk{
				JobID:   jobID,
				ChunkID: 0,
				Payload: model.MakeJSONField(api.TranslatedChunk{TranslatedText: "second attempt"}),
			}
			Expect(s.Translated().Save(context.TODO(), chunk)).To(BeNil())

			count, err := s.Translated().Count(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))

			stored, err := s.Translated().List(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(stored[0].Payload.Data.TranslatedText).To(Equal("second attempt"))
		})
	})

	Context("results", func() {
		It("stores one result per job", func() {
			jobID := uuid.New()
			Expect(s.Result().Set(context.TODO(), &model.Result{JobID: jobID, Content: "v1", Format: "txt"})).To(BeNil())
			Expect(s.Result().Set(context.TODO(), &model.Result{JobID: jobID, Content: "v2", Format: "txt", ChunkCount: 3})).To(BeNil())

			result, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(result.Content).To(Equal("v2"))
			Expect(result.ChunkCount).To(Equal(3))
		})

		It("returns not found for a job without a result", func() {
			_, err := s.Result().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})
})
