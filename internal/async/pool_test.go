package async

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PreservesOrderAndIsolatesFailures(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			p := NewPool(nil, WithWorkers(workers))
			tasks := make([]Task[string], 6)
			for i := range tasks {
				tasks[i] = func(context.Context) (string, error) {
					// later tasks finish first
					time.Sleep(time.Duration(6-i) * time.Millisecond)
					if i == 2 {
						return "", errors.New("entry 2 broken")
					}
					return fmt.Sprintf("entry-%d", i), nil
				}
			}

			results := Run(context.Background(), p, tasks)
			require.Len(t, results, 6)
			for i, r := range results {
				assert.Equal(t, i, r.Index)
				if i == 2 {
					assert.Error(t, r.Err)
					continue
				}
				assert.NoError(t, r.Err)
				assert.Equal(t, fmt.Sprintf("entry-%d", i), r.Value)
			}
		})
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	p := NewPool(nil, WithWorkers(2))
	var running, peak atomic.Int32
	tasks := make([]Task[int], 8)
	for i := range tasks {
		tasks[i] = func(context.Context) (int, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return i, nil
		}
	}
	Run(context.Background(), p, tasks)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_PerTaskTimeout(t *testing.T) {
	p := NewPool(nil, WithProcessTimeout(10*time.Millisecond))
	results := Run(context.Background(), p, []Task[int]{
		func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
		func(context.Context) (int, error) { return 7, nil },
	})
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.Equal(t, 7, results[1].Value)
}

func TestRun_Empty(t *testing.T) {
	assert.Empty(t, Run[int](context.Background(), NewPool(nil), nil))
}

func TestNewPool_Defaults(t *testing.T) {
	p := NewPool(nil, WithWorkers(0), WithProcessTimeout(-1))
	assert.Equal(t, 1, p.Workers())
	assert.Equal(t, 3*time.Minute, p.timeout)
}
