package changefeed

import (
	"context"
	"reflect"
	"time"
)

// Watch emits load's result once, then again after every signal on topic, until ctx is done.
// On a resync feed the query is also re-run periodically; those results are emitted only when
// they differ from the last snapshot. It returns nil on cancellation and the load error otherwise.
func Watch[T any](ctx context.Context, f *Feed, topic string, load func(context.Context) ([]T, error), emit func([]T)) error {
	w := f.Subscribe(topic)
	defer w.Stop()

	var tick <-chan time.Time
	if f.resync > 0 {
		t := time.NewTicker(f.resync)
		defer t.Stop()
		tick = t.C
	}

	var last []T
	signalled := true
	for {
		snap, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if signalled || !reflect.DeepEqual(snap, last) {
			emit(snap)
			last = snap
		}

		select {
		case <-ctx.Done():
			return nil
		case <-w.C:
			signalled = true
		case <-tick:
			signalled = false
		}
	}
}
