// Package transcript turns decoded stream events into the list of messages a
// chat front end renders: the user's prompt, an assistant reply that grows as
// reply fragments arrive, and system notes for tool activity.
package transcript

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/prems/pkg/linestream"
)

// Greeting is the assistant message a new transcript is seeded with when
// WithGreeting is used without an explicit text.
const Greeting = "Hi! Ask me a question."

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of the transcript.
type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ChangeKind describes what applying an event did to the transcript.
type ChangeKind int

const (
	// ChangeUnhandled means the event type is not one the transcript knows.
	ChangeUnhandled ChangeKind = iota

	// ChangeDraft means reply text was appended to the assistant draft.
	ChangeDraft

	// ChangeSystem means a system message was appended.
	ChangeSystem

	// ChangeError means the backend reported an error.
	ChangeError
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeDraft:
		return "draft"
	case ChangeSystem:
		return "system"
	case ChangeError:
		return "error"
	default:
		return "unhandled"
	}
}

// Change is the result of Apply.
type Change struct {
	Kind ChangeKind

	// Message is the assistant draft for ChangeDraft and the new system
	// message for ChangeSystem.
	Message Message

	// Delta is the reply fragment appended by a ChangeDraft.
	Delta string

	// Err is the error text of a ChangeError.
	Err string
}

// Option configures a new Transcript.
type Option func(*Transcript)

// WithGreeting seeds the transcript with an assistant message. An empty text
// uses Greeting.
func WithGreeting(text string) Option {
	return func(t *Transcript) {
		if text == "" {
			text = Greeting
		}
		t.messages = append(t.messages, Message{ID: newID(), Role: RoleAssistant, Text: text})
	}
}

// Transcript is the ordered message list of one conversation. It is safe for
// concurrent use so a renderer can read while a stream is applied.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
	draftIdx int
	err      string
}

// New creates an empty transcript.
func New(opts ...Option) *Transcript {
	t := &Transcript{draftIdx: -1}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Begin records the user's text, opens an empty assistant draft for the reply
// and clears any previous error. It returns the draft's message ID.
func (t *Transcript) Begin(userText string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.err = ""
	t.messages = append(t.messages, Message{ID: newID(), Role: RoleUser, Text: userText})

	id := newID()
	t.messages = append(t.messages, Message{ID: id, Role: RoleAssistant})
	t.draftIdx = len(t.messages) - 1
	return id
}

// Apply folds one event into the transcript.
func (t *Transcript) Apply(ev linestream.Event) Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Type {
	case linestream.TypeReply:
		if t.draftIdx < 0 {
			t.messages = append(t.messages, Message{ID: newID(), Role: RoleAssistant})
			t.draftIdx = len(t.messages) - 1
		}
		delta := ev.Text()
		t.messages[t.draftIdx].Text += delta
		return Change{Kind: ChangeDraft, Message: t.messages[t.draftIdx], Delta: delta}

	case linestream.TypeToolCallStarted:
		return t.appendSystem(toolStartedText(ev))

	case linestream.TypeToolCallResponse:
		return t.appendSystem("Tool result: " + toolResultText(ev))

	case linestream.TypeError:
		t.err = ev.Text()
		return Change{Kind: ChangeError, Err: t.err}

	default:
		return Change{Kind: ChangeUnhandled}
	}
}

// Fail records an error that ended the request, such as a transport failure.
func (t *Transcript) Fail(err error) {
	if err == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err.Error()
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Err returns the last recorded error text, or "" when there is none.
func (t *Transcript) Err() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Draft returns the current assistant draft.
func (t *Transcript) Draft() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.draftIdx < 0 {
		return Message{}, false
	}
	return t.messages[t.draftIdx], true
}

func (t *Transcript) appendSystem(text string) Change {
	msg := Message{ID: newID(), Role: RoleSystem, Text: text}
	t.messages = append(t.messages, msg)
	return Change{Kind: ChangeSystem, Message: msg}
}

func toolStartedText(ev linestream.Event) string {
	obj, ok := ev.Object()
	if !ok {
		return "Calling tool…"
	}
	return fmt.Sprintf("Calling tool %q…", toolName(obj))
}

// toolName renders the function field: strings verbatim, anything else as
// JSON, and "undefined" when the field is absent.
func toolName(obj map[string]any) string {
	fn, ok := obj["function"]
	if !ok {
		return "undefined"
	}
	if s, ok := fn.(string); ok {
		return s
	}

	b, err := json.Marshal(fn)
	if err != nil {
		return fmt.Sprint(fn)
	}
	return string(b)
}

func toolResultText(ev linestream.Event) string {
	var v any = ev.Payload
	if obj, ok := ev.Object(); ok {
		if value, ok := obj["value"]; ok {
			v = value
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func newID() string {
	return uuid.NewString()
}
