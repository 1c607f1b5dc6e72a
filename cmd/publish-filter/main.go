//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package main runs the filter condition HTTP server.
//
// Usage:
//
//	go run ./cmd/publish-filter -addr :8080 -conditions conditions.yaml
//	go run ./cmd/publish-filter -conditions-root ./conditions -conditions-pattern '**/*.yaml'
//	go run ./cmd/publish-filter -mongo-uri mongodb://localhost:27017 -es-addr http://localhost:9200
//
// Without -mongo-uri the records live in memory and are lost on exit.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition"
	"trpc.group/trpc-go/trpc-publish-filter-go/log"
	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
	reselastic "trpc.group/trpc-go/trpc-publish-filter-go/resource/elasticsearch"
	"trpc.group/trpc-go/trpc-publish-filter-go/resource/inmemory"
	resmongo "trpc.group/trpc-go/trpc-publish-filter-go/resource/mongodb"
	"trpc.group/trpc-go/trpc-publish-filter-go/server/filter"
	"trpc.group/trpc-go/trpc-publish-filter-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-publish-filter-go/telemetry/trace"
)

const defaultListenAddr = ":8080"

func main() {
	addr := flag.String("addr", defaultListenAddr, "Listen address")
	conditionsFile := flag.String("conditions", "", "YAML file with the known filter conditions")
	conditionsRoot := flag.String("conditions-root", "", "Directory searched for condition files with -conditions-pattern")
	conditionsPattern := flag.String("conditions-pattern", "**/*.yaml", "Glob of condition files below -conditions-root")
	mongoURI := flag.String("mongo-uri", "", "MongoDB connection string; records stay in memory when empty")
	mongoDB := flag.String("mongo-db", "publish", "MongoDB database")
	esAddrs := flag.String("es-addr", "", "Comma separated Elasticsearch addresses")
	keywordFields := flag.String("es-keyword-fields", "headline", "Comma separated fields mapped as keyword in new indices")
	otel := flag.Bool("otel", false, "Export traces and metrics over OTLP")
	logLevel := flag.String("log-level", log.LevelInfo, "Log level")
	flag.Parse()

	log.SetLevel(*logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *otel {
		cleanTrace, err := trace.Start(ctx)
		if err != nil {
			log.Fatalf("start trace telemetry: %v", err)
		}
		cleanMetric, err := metric.Start(ctx)
		if err != nil {
			log.Fatalf("start metric telemetry: %v", err)
		}
		defer func() {
			if err := cleanTrace(); err != nil {
				log.Warnf("clean trace telemetry: %v", err)
			}
			if err := cleanMetric(); err != nil {
				log.Warnf("clean metric telemetry: %v", err)
			}
		}()
	}

	var opts []filter.Option
	if *conditionsFile != "" {
		conds, err := filtercondition.LoadConditionsFile(*conditionsFile)
		if err != nil {
			log.Fatalf("load conditions: %v", err)
		}
		log.Infof("loaded %d filter conditions from %s", len(conds), *conditionsFile)
		opts = append(opts, filter.WithConditions(conds))
	}
	if *conditionsRoot != "" {
		conds, err := filtercondition.LoadConditionsGlob(*conditionsRoot, *conditionsPattern)
		if err != nil {
			log.Fatalf("load conditions: %v", err)
		}
		log.Infof("loaded %d filter conditions from %s/%s", len(conds), *conditionsRoot, *conditionsPattern)
		opts = append(opts, filter.WithConditions(conds))
	}

	svc, closeStores, err := newResourceService(ctx, *mongoURI, *mongoDB, splitList(*esAddrs), splitList(*keywordFields))
	if err != nil {
		log.Fatalf("create resource service: %v", err)
	}
	defer closeStores()
	opts = append(opts, filter.WithResourceService(svc))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           filter.New(opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("publish filter server listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}

func newResourceService(ctx context.Context, mongoURI, mongoDB string, esAddrs, keywordFields []string) (*resource.Service, func(), error) {
	var (
		docs    resource.DocumentStore
		search  resource.SearchStore
		closeFn = func() {}
	)
	if mongoURI == "" {
		store := inmemory.New()
		docs, search = store, store
	} else {
		store, err := resmongo.New(ctx, resmongo.WithClientURI(mongoURI), resmongo.WithDatabase(mongoDB))
		if err != nil {
			return nil, nil, err
		}
		docs = store
		closeFn = func() {
			if err := store.Close(context.Background()); err != nil {
				log.Warnf("close mongodb: %v", err)
			}
		}
	}
	if len(esAddrs) > 0 {
		store, err := reselastic.New(reselastic.WithAddresses(esAddrs), reselastic.WithKeywordFields(keywordFields...))
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		search = store
	}

	var opts []resource.Option
	if search != nil {
		opts = append(opts, resource.WithSearchStore(search))
	}
	svc, err := resource.New(docs, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
