package linestream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/prems/pkg/linestream"
)

const chatTranscript = "reply: Hello\n" +
	"reply:  there\n" +
	"\n" +
	`tool_call_started: {"function":"lookup"}` + "\n" +
	`tool_call_response: {"value":{"rows":2}}` + "\r\n" +
	"garbage without separator\n" +
	"error: upstream timed out\n"

// splitAll feeds input to a fresh Splitter in pieces of the given size.
func splitAll(input string, size int, opts ...linestream.Option) []linestream.Event {
	s := linestream.NewSplitter(opts...)

	var events []linestream.Event
	for start := 0; start < len(input); start += size {
		end := min(start+size, len(input))
		events = append(events, s.Write([]byte(input[start:end]))...)
	}
	return append(events, s.Close()...)
}

var _ = Describe("Splitter", func() {
	It("emits one event per terminated line in arrival order", func() {
		events := splitAll(chatTranscript, len(chatTranscript))

		Expect(events).To(HaveLen(6))
		Expect(events[0]).To(Equal(linestream.Event{Type: "reply", Payload: "Hello"}))
		Expect(events[1]).To(Equal(linestream.Event{Type: "reply", Payload: "there"}))
		Expect(events[2].Type).To(Equal("tool_call_started"))
		Expect(events[3].Payload).To(Equal(map[string]any{"value": map[string]any{"rows": float64(2)}}))
		Expect(events[4]).To(Equal(linestream.Event{Type: "unknown", Raw: "garbage without separator"}))
		Expect(events[5]).To(Equal(linestream.Event{Type: "error", Payload: "upstream timed out"}))
	})

	It("is independent of chunk boundaries", func() {
		whole := splitAll(chatTranscript, len(chatTranscript))

		for size := 1; size <= len(chatTranscript); size++ {
			Expect(splitAll(chatTranscript, size)).To(Equal(whole), "chunk size %d", size)
		}
	})

	It("is independent of chunk boundaries inside multi-byte runes", func() {
		input := "reply: héllo wörld ✓\nreply: 日本語\n"
		whole := splitAll(input, len(input))
		Expect(whole).To(HaveLen(2))
		Expect(whole[1].Payload).To(Equal("日本語"))

		for size := 1; size < len(input); size++ {
			Expect(splitAll(input, size)).To(Equal(whole), "chunk size %d", size)
		}
	})

	It("holds a partial line until its newline arrives", func() {
		s := linestream.NewSplitter()

		Expect(s.Write([]byte("rep"))).To(BeEmpty())
		Expect(s.Pending()).To(Equal(3))

		Expect(s.Write([]byte("ly: hi"))).To(BeEmpty())
		Expect(s.Pending()).To(Equal(9))

		events := s.Write([]byte("\nreply: x"))
		Expect(events).To(Equal([]linestream.Event{{Type: "reply", Payload: "hi"}}))
		Expect(s.Pending()).To(Equal(len("reply: x")))
	})

	It("accepts empty chunks", func() {
		s := linestream.NewSplitter()
		Expect(s.Write(nil)).To(BeEmpty())
		Expect(s.Write([]byte{})).To(BeEmpty())
		Expect(s.Pending()).To(BeZero())
	})

	It("never retains a newline between calls", func() {
		s := linestream.NewSplitter()
		s.Write([]byte("a: 1\n\n\nb: 2\nc"))
		Expect(s.Pending()).To(Equal(1))
	})

	It("discards an unterminated trailing line at end of stream", func() {
		events := splitAll("reply: one\nreply: two", 4)
		Expect(events).To(Equal([]linestream.Event{{Type: "reply", Payload: "one"}}))
	})

	It("emits the trailing line when flushing is enabled", func() {
		events := splitAll("reply: one\nreply: two", 4, linestream.WithFlushTrailing(true))
		Expect(events).To(Equal([]linestream.Event{
			{Type: "reply", Payload: "one"},
			{Type: "reply", Payload: "two"},
		}))
	})

	It("clears the buffer on close and ignores later writes", func() {
		s := linestream.NewSplitter()
		s.Write([]byte("reply: partial"))

		Expect(s.Close()).To(BeEmpty())
		Expect(s.Pending()).To(BeZero())
		Expect(s.Write([]byte("\nreply: late\n"))).To(BeEmpty())
		Expect(s.Close()).To(BeEmpty())
	})
})

var _ = Describe("Splitter discarded tail", func() {
	It("reports the size of the dropped tail", func() {
		s := linestream.NewSplitter()
		s.Write([]byte("reply: a\nreply: b"))
		Expect(s.Discarded()).To(BeZero())

		s.Close()
		Expect(s.Discarded()).To(Equal(len("reply: b")))
	})

	It("reports nothing when the tail was flushed", func() {
		s := linestream.NewSplitter(linestream.WithFlushTrailing(true))
		s.Write([]byte("reply: b"))
		Expect(s.Close()).To(HaveLen(1))
		Expect(s.Discarded()).To(BeZero())
	})
})
