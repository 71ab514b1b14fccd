package worker_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/prems/pkg/eventstream"
	"github.com/papercomputeco/prems/pkg/eventstream/worker"
	"github.com/papercomputeco/prems/pkg/linestream"
)

// recorder is an in-memory publisher. When gate is non-nil every Publish
// blocks until it is closed.
type recorder struct {
	mu     sync.Mutex
	events []*eventstream.RecordedEvent
	gate   chan struct{}
	err    error
	closed bool
}

func (r *recorder) Publish(_ context.Context, ev *eventstream.RecordedEvent) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) sequences() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	seqs := make([]int, 0, len(r.events))
	for _, ev := range r.events {
		seqs = append(seqs, ev.Sequence)
	}
	return seqs
}

func recorded(seq int) *eventstream.RecordedEvent {
	return eventstream.NewRecordedEvent("req", seq, linestream.Event{Type: "reply", Payload: "x"})
}

var _ = Describe("Worker Pool", func() {
	var (
		rec *recorder
		ctx context.Context
	)

	BeforeEach(func() {
		rec = &recorder{}
		ctx = context.Background()
	})

	It("requires a publisher", func() {
		_, err := worker.NewPool(&worker.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("publishes every event in order with the default single worker", func() {
		wp, err := worker.NewPool(&worker.Config{Publisher: rec})
		Expect(err).NotTo(HaveOccurred())

		for i := range 50 {
			Expect(wp.Publish(ctx, recorded(i))).To(Succeed())
		}
		Expect(wp.Close()).To(Succeed())

		expected := make([]int, 50)
		for i := range expected {
			expected[i] = i
		}
		Expect(rec.sequences()).To(Equal(expected))
		Expect(rec.closed).To(BeTrue())
	})

	It("drops events when the queue is full", func() {
		rec.gate = make(chan struct{})
		wp, err := worker.NewPool(&worker.Config{Publisher: rec, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		// The first event is picked up by the worker and blocks on the gate,
		// the second fills the queue.
		Expect(wp.Enqueue(recorded(0))).To(BeTrue())
		Eventually(func() bool { return wp.Enqueue(recorded(1)) }).Should(BeTrue())

		Expect(wp.Publish(ctx, recorded(2))).To(MatchError(worker.ErrQueueFull))

		close(rec.gate)
		Expect(wp.Close()).To(Succeed())
		Expect(rec.sequences()).To(Equal([]int{0, 1}))
	})

	It("keeps running when the sink fails", func() {
		rec.err = errors.New("disk full")
		wp, err := worker.NewPool(&worker.Config{Publisher: rec})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Publish(ctx, recorded(0))).To(Succeed())
		Expect(wp.Close()).To(Succeed())
		Expect(rec.sequences()).To(BeEmpty())
	})

	It("rejects events after close", func() {
		wp, err := worker.NewPool(&worker.Config{Publisher: rec})
		Expect(err).NotTo(HaveOccurred())
		Expect(wp.Close()).To(Succeed())
		Expect(wp.Close()).To(Succeed())

		Expect(wp.Enqueue(recorded(0))).To(BeFalse())
		Expect(wp.Publish(ctx, recorded(0))).To(MatchError(eventstream.ErrClosed))
	})

	It("rejects nil events", func() {
		wp, err := worker.NewPool(&worker.Config{Publisher: rec})
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(wp.Publish(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
	})
})
