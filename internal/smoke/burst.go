package smoke

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/cinescope/pkg/logger"
)

// burst appends cfg.Appends movies from cfg.Workers goroutines, replays
// every key once and checks the catalogue grew by exactly cfg.Appends.
func (r *runner) burst(ctx context.Context) (int, error) {
	before := r.records(ctx)

	keys := make([]string, r.cfg.Appends)
	for i := range keys {
		keys[i] = uuid.NewString()
	}

	created, dup, failed := r.submit(ctx, keys)
	r.log.Info(ctx, "burst submitted",
		logger.Int("created", int(created)),
		logger.Int("duplicate", int(dup)),
		logger.Int("failed", int(failed)))
	if failed > 0 || created != int64(len(keys)) {
		return http.StatusCreated, fmt.Errorf("%w: %d created, %d failed", ErrCheck, created, failed)
	}

	// Replays must not grow the catalogue.
	_, dup, failed = r.submit(ctx, keys)
	if failed > 0 || dup != int64(len(keys)) {
		return http.StatusOK, fmt.Errorf("%w: %d of %d replays acknowledged", ErrCheck, dup, len(keys))
	}

	if before >= 0 {
		if after := r.records(ctx); after != before+len(keys) {
			return http.StatusOK, fmt.Errorf("%w: records %d, want %d", ErrCheck, after, before+len(keys))
		}
	}
	return http.StatusOK, nil
}

// submit posts one movie per key using a fixed worker pool.
func (r *runner) submit(ctx context.Context, keys []string) (created, duplicate, failed int64) {
	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	keyChan := make(chan string, workers*2)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range keyChan {
				if ctx.Err() != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				var out added
				status, err := r.add(ctx, key, &out)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					if r.cfg.Verbose {
						r.log.Warn(ctx, "append failed", logger.String("key", key), logger.Error(err))
					}
				case status == http.StatusOK && out.Status == "duplicate":
					atomic.AddInt64(&duplicate, 1)
				case status == http.StatusCreated:
					atomic.AddInt64(&created, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	for _, key := range keys {
		keyChan <- key
	}
	close(keyChan)
	wg.Wait()
	return created, duplicate, failed
}
