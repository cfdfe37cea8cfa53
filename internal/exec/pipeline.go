package exec

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/mmrzaf/tdgen/internal/domain"
)

// Drain feeds every batch of stream to sink, in order, from a single
// goroutine. With prefetch > 0 production runs ahead of the sink by up to
// prefetch batches; sink is still never called concurrently.
func Drain(ctx context.Context, stream *BatchStream, prefetch int, sink func(domain.Batch) error) error {
	if prefetch <= 0 {
		return drainSequential(ctx, stream, sink)
	}

	g, gctx := errgroup.WithContext(ctx)
	ch := make(chan domain.Batch, prefetch)

	g.Go(func() error {
		defer close(ch)
		for {
			batch, err := stream.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case ch <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for batch := range ch {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := sink(batch); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

func drainSequential(ctx context.Context, stream *BatchStream, sink func(domain.Batch) error) error {
	for {
		batch, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := sink(batch); err != nil {
			return err
		}
	}
}
