package transcript_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/prems/pkg/linestream"
	"github.com/papercomputeco/prems/pkg/transcript"
)

func parse(line string) linestream.Event {
	ev, ok := linestream.ParseLine(line)
	Expect(ok).To(BeTrue())
	return ev
}

var _ = Describe("Transcript", func() {
	var t *transcript.Transcript

	BeforeEach(func() {
		t = transcript.New()
	})

	Describe("New", func() {
		It("starts empty", func() {
			Expect(t.Messages()).To(BeEmpty())
			_, ok := t.Draft()
			Expect(ok).To(BeFalse())
		})

		It("seeds the default greeting", func() {
			t = transcript.New(transcript.WithGreeting(""))
			msgs := t.Messages()
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Role).To(Equal(transcript.RoleAssistant))
			Expect(msgs[0].Text).To(Equal(transcript.Greeting))
		})

		It("seeds a custom greeting", func() {
			t = transcript.New(transcript.WithGreeting("Hello"))
			Expect(t.Messages()[0].Text).To(Equal("Hello"))
		})
	})

	Describe("Begin", func() {
		It("appends the user message and an empty draft", func() {
			id := t.Begin("What is PREMS?")
			msgs := t.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(transcript.RoleUser))
			Expect(msgs[0].Text).To(Equal("What is PREMS?"))
			Expect(msgs[1].ID).To(Equal(id))
			Expect(msgs[1].Role).To(Equal(transcript.RoleAssistant))
			Expect(msgs[1].Text).To(BeEmpty())
			Expect(msgs[0].ID).NotTo(Equal(msgs[1].ID))
		})

		It("clears a previous error", func() {
			t.Fail(errors.New("boom"))
			t.Begin("again")
			Expect(t.Err()).To(BeEmpty())
		})
	})

	Describe("Apply", func() {
		BeforeEach(func() {
			t.Begin("hi")
		})

		It("accumulates reply fragments into the draft", func() {
			c := t.Apply(parse(`reply: "Hel"`))
			Expect(c.Kind).To(Equal(transcript.ChangeDraft))
			Expect(c.Delta).To(Equal("Hel"))

			c = t.Apply(parse(`reply: lo`))
			Expect(c.Message.Text).To(Equal("Hello"))

			draft, ok := t.Draft()
			Expect(ok).To(BeTrue())
			Expect(draft.Text).To(Equal("Hello"))
		})

		It("renders non-string reply payloads as JSON", func() {
			t.Apply(parse(`reply: 42`))
			t.Apply(parse(`reply: {"a":1}`))
			draft, _ := t.Draft()
			Expect(draft.Text).To(Equal(`42{"a":1}`))
		})

		It("notes tool calls with the function name", func() {
			c := t.Apply(parse(`tool_call_started: {"function":"search"}`))
			Expect(c.Kind).To(Equal(transcript.ChangeSystem))
			Expect(c.Message.Role).To(Equal(transcript.RoleSystem))
			Expect(c.Message.Text).To(Equal(`Calling tool "search"…`))
		})

		It("renders missing and non-string function names", func() {
			c := t.Apply(parse(`tool_call_started: {"args":{}}`))
			Expect(c.Message.Text).To(Equal(`Calling tool "undefined"…`))

			c = t.Apply(parse(`tool_call_started: {"function":100000000}`))
			Expect(c.Message.Text).To(Equal(`Calling tool "100000000"…`))
		})

		It("appends null reply payloads as text", func() {
			t.Apply(parse(`reply: a`))
			t.Apply(parse(`reply: null`))
			draft, _ := t.Draft()
			Expect(draft.Text).To(Equal("anull"))
		})

		It("notes tool calls without an object payload", func() {
			c := t.Apply(parse(`tool_call_started: search`))
			Expect(c.Message.Text).To(Equal("Calling tool…"))
		})

		It("shows the value of a tool response", func() {
			c := t.Apply(parse(`tool_call_response: {"value":[1,2]}`))
			Expect(c.Message.Text).To(Equal("Tool result: [1,2]"))
		})

		It("shows the whole tool response without a value field", func() {
			c := t.Apply(parse(`tool_call_response: {"rows":3}`))
			Expect(c.Message.Text).To(Equal(`Tool result: {"rows":3}`))

			c = t.Apply(parse(`tool_call_response: done`))
			Expect(c.Message.Text).To(Equal(`Tool result: "done"`))
		})

		It("records backend errors", func() {
			c := t.Apply(parse(`error: "rate limited"`))
			Expect(c.Kind).To(Equal(transcript.ChangeError))
			Expect(c.Err).To(Equal("rate limited"))
			Expect(t.Err()).To(Equal("rate limited"))

			t.Apply(parse(`error: {"code":429}`))
			Expect(t.Err()).To(Equal(`{"code":429}`))
		})

		It("reports other events as unhandled", func() {
			before := t.Messages()
			Expect(t.Apply(parse(`status: {"ok":true}`)).Kind).To(Equal(transcript.ChangeUnhandled))
			Expect(t.Apply(parse(`no separator`)).Kind).To(Equal(transcript.ChangeUnhandled))
			Expect(t.Messages()).To(Equal(before))
		})

		It("keeps system notes after the draft", func() {
			t.Apply(parse(`reply: a`))
			t.Apply(parse(`tool_call_started: {"function":"f"}`))
			t.Apply(parse(`reply: b`))

			msgs := t.Messages()
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[1].Text).To(Equal("ab"))
			Expect(msgs[2].Role).To(Equal(transcript.RoleSystem))
		})
	})

	It("opens a draft for replies that arrive before Begin", func() {
		t.Apply(parse(`reply: orphan`))
		draft, ok := t.Draft()
		Expect(ok).To(BeTrue())
		Expect(draft.Text).To(Equal("orphan"))
	})

	It("ignores nil failures", func() {
		t.Fail(nil)
		Expect(t.Err()).To(BeEmpty())
	})

	It("names change kinds", func() {
		Expect(transcript.ChangeDraft.String()).To(Equal("draft"))
		Expect(transcript.ChangeUnhandled.String()).To(Equal("unhandled"))
	})
})
