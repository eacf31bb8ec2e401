package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kestrel-retail/discovery-engine/internal/catalogjob"
	"github.com/kestrel-retail/discovery-engine/internal/config"
	"github.com/kestrel-retail/discovery-engine/internal/db"
	"github.com/kestrel-retail/discovery-engine/internal/embedding"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var productIDs idList
	var limit int
	var dryRun bool
	flag.Var(&productIDs, "product", "product id to embed (repeatable; default: all recent candidates)")
	flag.IntVar(&limit, "limit", 100000, "max products to consider when no -product flags are given")
	flag.BoolVar(&dryRun, "dry-run", false, "print the job that would run without executing it")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load(log)

	dbService, err := db.New(cfg.Database, log)
	if err != nil {
		fmt.Printf("connect database: %v\n", err)
		os.Exit(1)
	}
	gdb := dbService.DB()

	productRepo := repos.NewProductRepo(gdb, log)
	embeddingRepo := repos.NewEmbeddingRepo(gdb, log)
	catalogJobRepo := repos.NewCatalogUploadJobRepo(gdb, log)

	index, err := vectorindex.New(cfg.Vector, log)
	if err != nil {
		fmt.Printf("build vector index: %v\n", err)
		os.Exit(1)
	}
	embedder := embedding.New(cfg.Embed, log)

	ctx := context.Background()

	var ids []int64
	if len(productIDs) > 0 {
		for _, raw := range productIDs {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				fmt.Printf("skipping invalid product id %q: %v\n", raw, err)
				continue
			}
			ids = append(ids, id)
		}
	} else {
		products, err := productRepo.RecentCandidates(ctx, nil, limit)
		if err != nil {
			fmt.Printf("load candidates: %v\n", err)
			os.Exit(1)
		}
		for _, p := range products {
			ids = append(ids, p.ID)
		}
	}

	if len(ids) == 0 {
		fmt.Println("no products to embed")
		return
	}

	if dryRun {
		fmt.Printf("[dry-run] would embed %d products\n", len(ids))
		return
	}

	jobSvc := catalogjob.NewService(log, catalogJobRepo, productRepo, embeddingRepo, index, embedder)
	job, err := jobSvc.StartJob(ctx, "embedbackfill-cli", len(ids))
	if err != nil {
		fmt.Printf("start job: %v\n", err)
		os.Exit(1)
	}

	if err := jobSvc.Run(ctx, job.ID, ids); err != nil {
		fmt.Printf("job %s failed: %v\n", job.ID, err)
		os.Exit(1)
	}

	fmt.Printf("done; job=%s total=%d\n", job.ID, len(ids))
}
