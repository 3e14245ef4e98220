package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/pipeline"
	"github.com/nclamvn/prismy-ultimate/internal/service"
	"github.com/nclamvn/prismy-ultimate/internal/store"
)

var (
	submitFile   string
	submitSource string
	submitTarget string
	submitTier   string
)

// withService builds a store-backed service with an insert-only queue client
// and hands it to fn.
func withService(fn func(ctx context.Context, svc *service.PipelineService) error) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	logger := initLogger(cfg)
	defer func() { _ = logger.Sync() }()

	db, err := store.InitDB(cfg)
	if err != nil {
		return err
	}
	dataStore := store.NewStore(db, cfg.Pipeline.JobTTL)
	defer dataStore.Close()

	ctx := context.Background()
	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	client, err := pipeline.NewInsertClient(pool)
	if err != nil {
		return err
	}
	return fn(ctx, service.NewPipelineService(dataStore, client))
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a document for translation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *service.PipelineService) error {
			job, err := svc.CreateJob(ctx, service.CreateJobRequest{
				FilePath:       submitFile,
				SourceLanguage: submitSource,
				TargetLanguage: submitTarget,
				Tier:           api.Tier(submitTier),
			})
			if err != nil {
				return err
			}
			fmt.Println(job.ID)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get JOB_ID",
	Short: "Show a translation job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		return withService(func(ctx context.Context, svc *service.PipelineService) error {
			job, err := svc.GetJob(ctx, id)
			if err != nil {
				return err
			}
			fmt.Println(job)
			return nil
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel JOB_ID",
	Short: "Cancel a translation job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		return withService(func(ctx context.Context, svc *service.PipelineService) error {
			job, err := svc.CancelJob(ctx, id)
			if err != nil {
				return err
			}
			fmt.Println(job)
			return nil
		})
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "path to the document")
	submitCmd.Flags().StringVarP(&submitSource, "source", "s", "auto", "source language")
	submitCmd.Flags().StringVarP(&submitTarget, "target", "t", "", "target language")
	submitCmd.Flags().StringVar(&submitTier, "tier", "standard", "translation tier (basic, standard, premium)")
	_ = submitCmd.MarkFlagRequired("file")
	_ = submitCmd.MarkFlagRequired("target")
}
