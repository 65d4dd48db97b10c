package natskv_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	natsadapter "github.com/taskdesk/taskdesk/internal/adapter/nats"
	"github.com/taskdesk/taskdesk/internal/adapter/natskv"
	"github.com/taskdesk/taskdesk/internal/port/cache/cachetest"
)

func testBucket(t *testing.T) *natskv.Cache {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	ctx := context.Background()
	q, err := natsadapter.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })

	bucket := "test_" + strings.ReplaceAll(strings.ToLower(t.Name()), "/", "_")
	kv, err := q.KeyValue(ctx, bucket, time.Minute)
	if err != nil {
		t.Fatalf("kv bucket: %v", err)
	}
	return natskv.New(kv)
}

func TestCacheCompliance(t *testing.T) {
	cachetest.Run(t, testBucket(t))
}
