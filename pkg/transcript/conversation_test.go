package transcript_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/prems/pkg/chatapi"
	"github.com/papercomputeco/prems/pkg/eventstream"
	"github.com/papercomputeco/prems/pkg/transcript"
)

type memoryPublisher struct {
	mu     sync.Mutex
	events []*eventstream.RecordedEvent
}

func (m *memoryPublisher) Publish(_ context.Context, ev *eventstream.RecordedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memoryPublisher) Close() error { return nil }

var _ = Describe("Conversation", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		pub     *memoryPublisher
		conv    *transcript.Conversation
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		pub = &memoryPublisher{}
		client := chatapi.NewClient(&chatapi.Config{BaseURL: server.URL})
		conv = transcript.NewConversation(transcript.New(), &transcript.ConversationConfig{
			Streamer:  client,
			Publisher: pub,
		})
	})

	AfterEach(func() {
		server.Close()
	})

	It("applies and records a streamed reply", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("reply: \"Hel\"\ntool_call_started: {\"function\":\"lookup\"}\nreply: lo\n"))
		}

		var kinds []transcript.ChangeKind
		err := conv.Send(ctx, "hi", func(c transcript.Change) {
			kinds = append(kinds, c.Kind)
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(kinds).To(Equal([]transcript.ChangeKind{
			transcript.ChangeDraft, transcript.ChangeSystem, transcript.ChangeDraft,
		}))

		draft, _ := conv.Transcript().Draft()
		Expect(draft.Text).To(Equal("Hello"))

		Expect(pub.events).To(HaveLen(3))
		for i, ev := range pub.events {
			Expect(ev.Sequence).To(Equal(i))
			Expect(ev.RequestID).To(Equal(pub.events[0].RequestID))
		}
		Expect(pub.events[1].Event.Type).To(Equal("tool_call_started"))
		Expect(conv.Busy()).To(BeFalse())
	})

	It("records HTTP failures on the transcript", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}

		err := conv.Send(ctx, "hi", nil)
		var statusErr *chatapi.StatusError
		Expect(err).To(BeAssignableToTypeOf(statusErr))
		Expect(conv.Transcript().Err()).To(Equal("HTTP 503: overloaded"))
		Expect(pub.events).To(BeEmpty())
	})

	It("rejects a second send while one is streaming", func() {
		release := make(chan struct{})
		started := make(chan struct{})
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("reply: a\n"))
			w.(http.Flusher).Flush()
			close(started)
			<-release
		}

		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			done <- conv.Send(ctx, "first", nil)
		}()

		Eventually(started).Should(BeClosed())
		Eventually(conv.Busy).Should(BeTrue())
		Expect(conv.Send(ctx, "second", nil)).To(MatchError(transcript.ErrBusy))

		close(release)
		Eventually(done).Should(Receive(BeNil()))
		Expect(conv.Busy()).To(BeFalse())
	})
})
