package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"portfoliochat/internal/domain/repository"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

// watchQuery runs a Firestore listener for q and hands every snapshot to
// decode. The watch stream already retries transient failures; an error
// returned by Next is terminal, so it is logged and the last good snapshot
// is delivered again instead of surfacing the failure.
func watchQuery[T any](ctx context.Context, q firestore.Query, label string, decode func([]*firestore.DocumentSnapshot) T, onChange func(T)) repository.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	listener := repository.NewListener(onChange, cancel)
	it := q.Snapshots(ctx)

	go func() {
		defer it.Stop()
		var (
			last T
			seen bool
		)
		for {
			snap, err := it.Next()
			if listener.Closed() {
				return
			}
			if err != nil {
				if stoppedWatch(ctx, err) {
					return
				}
				logger.Error("%v", errors.SubscriptionError(label, err))
				listener.Deliver(last)
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("%v", errors.SubscriptionError(label, err))
				if seen {
					listener.Deliver(last)
				}
				continue
			}
			last, seen = decode(docs), true
			listener.Deliver(last)
		}
	}()

	return listener.Unsubscribe()
}

// watchDoc is watchQuery for a single document. Missing documents arrive as
// a snapshot with Exists() == false.
func watchDoc[T any](ctx context.Context, ref *firestore.DocumentRef, label string, decode func(*firestore.DocumentSnapshot) T, onChange func(T)) repository.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	listener := repository.NewListener(onChange, cancel)
	it := ref.Snapshots(ctx)

	go func() {
		defer it.Stop()
		var last T
		for {
			snap, err := it.Next()
			if listener.Closed() {
				return
			}
			if err != nil {
				if stoppedWatch(ctx, err) {
					return
				}
				logger.Error("%v", errors.SubscriptionError(label, err))
				listener.Deliver(last)
				return
			}
			last = decode(snap)
			listener.Deliver(last)
		}
	}()

	return listener.Unsubscribe()
}

func stoppedWatch(ctx context.Context, err error) bool {
	if err == iterator.Done || ctx.Err() != nil {
		return true
	}
	return status.Code(err) == codes.Canceled
}
