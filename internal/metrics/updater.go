package metrics

import (
	"context"
	"log/slog"

	"github.com/gateway-fm/crl-publisher/internal/store"
)

// Updater recounts the stored-artifact gauges from prefix listings. It
// is triggered after commits rather than on a timer, so gauges track the
// store without a hot polling loop.
type Updater struct {
	store    store.ObjectStore
	prefixes []string
	trigger  chan struct{}
}

func NewUpdater(objects store.ObjectStore, prefixes []string) *Updater {
	return &Updater{
		store:    objects,
		prefixes: prefixes,
		// buffered channel to avoid blocking and all we need to know is that "something"
		// has happened whilst we were busy
		trigger: make(chan struct{}, 1),
	}
}

func (u *Updater) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-u.trigger:
				u.UpdateGauges(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (u *Updater) Trigger() {
	select {
	case u.trigger <- struct{}{}:
	default:
		// channel is full, so we don't need to do anything
	}
}

// UpdateGauges recounts every tracked prefix.
func (u *Updater) UpdateGauges(ctx context.Context) {
	for _, prefix := range u.prefixes {
		infos, err := u.store.List(ctx, prefix)
		if err != nil {
			slog.Error("metrics: failed to list prefix", "prefix", prefix, "err", err)
			continue
		}
		storedObjects.WithLabelValues(prefix).Set(float64(len(infos)))
	}
}
