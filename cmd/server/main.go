package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/duel/arena"
	"github.com/programme-lv/duel/conf"
	duelhttp "github.com/programme-lv/duel/http"
	"github.com/programme-lv/duel/judgesrvc"
	"github.com/programme-lv/duel/queuesrvc"
	"github.com/programme-lv/duel/s3bucket"
	"github.com/programme-lv/duel/schedclient"
	"github.com/programme-lv/duel/statestore"
	"github.com/programme-lv/duel/submsrvc"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	if cfg.JwtKey == "" {
		return errors.New("DUEL_JWT_KEY is not set")
	}
	contest, err := conf.ReadContest(cfg.ContestFile)
	if err != nil {
		return err
	}
	variant, err := judgesrvc.NewVariant(contest)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	queue, err := openQueue(ctx, cfg, store)
	if err != nil {
		return err
	}

	a, err := arena.New(ctx, variant.Rules, store)
	if err != nil {
		return err
	}

	sched, err := schedclient.NewClient(cfg.SchedulerURL, cfg.SchedulerTimeout, schedclient.WithGzipAbove(64*1024))
	if err != nil {
		return err
	}
	judge := judgesrvc.NewJudgeSrvc(sched, variant)
	worker := queuesrvc.NewWorker(queue, store, store, judge, a, cfg.PollInterval)

	bucket, err := s3bucket.NewS3Bucket(ctx, cfg.AwsRegion, cfg.S3Endpoint, contest.Buckets.UserContent)
	if err != nil {
		return err
	}
	subms := submsrvc.NewSubmSrvc(variant, bucket, store, store, queue, cfg.RateLimit, cfg.MaxSourceBytes)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: duelhttp.NewHttpServer(subms, a, []byte(cfg.JwtKey)).Handler(),
	}

	slog.Info("starting server", "address", server.Addr, "variant", variant.Name, "store", cfg.Store, "queue", cfg.Queue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if c, ok := queue.(interface{ Close() }); ok {
			defer c.Close()
		}
		return worker.Run(gctx)
	})
	g.Go(func() error {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg conf.Config) (statestore.Store, error) {
	switch cfg.Store {
	case "memory":
		return statestore.NewMemStore(), nil
	case "pebble":
		return statestore.NewPebbleStore(cfg.PebblePath)
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AwsRegion))
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		return statestore.NewDdbStore(dynamodb.NewFromConfig(awsCfg), cfg.DdbTable), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func openQueue(ctx context.Context, cfg conf.Config, store statestore.Store) (queuesrvc.Queue, error) {
	if cfg.Queue != "sqs" {
		return queuesrvc.NewStoreQueue(ctx, store)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AwsRegion))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return queuesrvc.NewSqsQueue(sqs.NewFromConfig(awsCfg), cfg.SqsQueueUrl), nil
}
