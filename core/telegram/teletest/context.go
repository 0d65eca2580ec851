// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Call records one outgoing action performed through the context.
type Call struct {
	Method string
	What   interface{}
	Opts   []interface{}
}

// Context implements the subset of tele.Context used by the bot's handlers.
// Methods that are not overridden panic through the nil embedded interface.
type Context struct {
	tele.Context

	Upd tele.Update
	// Err, when set, is returned by Send, Reply and Edit.
	Err error

	mu        sync.Mutex
	store     map[string]interface{}
	calls     []Call
	responses []*tele.CallbackResponse
}

// NewMessage builds a context for a private text message from user.
func NewMessage(updateID int, user *tele.User, text string) *Context {
	return &Context{Upd: tele.Update{
		ID: updateID,
		Message: &tele.Message{
			ID:     updateID,
			Sender: user,
			Chat:   &tele.Chat{ID: user.ID, Type: tele.ChatPrivate},
			Text:   text,
		},
	}}
}

// NewCallback builds a context for an inline button press with the given unique key.
func NewCallback(updateID int, user *tele.User, unique string) *Context {
	return &Context{Upd: tele.Update{
		ID: updateID,
		Callback: &tele.Callback{
			ID:     "cb",
			Sender: user,
			Unique: unique,
			Message: &tele.Message{
				ID:   updateID,
				Chat: &tele.Chat{ID: user.ID, Type: tele.ChatPrivate},
			},
		},
	}}
}

func (c *Context) Update() tele.Update { return c.Upd }

func (c *Context) Message() *tele.Message {
	if c.Upd.Message != nil {
		return c.Upd.Message
	}
	if c.Upd.Callback != nil {
		return c.Upd.Callback.Message
	}
	return nil
}

func (c *Context) Callback() *tele.Callback { return c.Upd.Callback }

func (c *Context) Sender() *tele.User {
	switch {
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Sender
	case c.Upd.Message != nil:
		return c.Upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Text() string {
	if c.Upd.Message != nil {
		return c.Upd.Message.Text
	}
	return ""
}

func (c *Context) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = val
}

func (c *Context) Send(what interface{}, opts ...interface{}) error {
	return c.record("send", what, opts)
}

func (c *Context) Reply(what interface{}, opts ...interface{}) error {
	return c.record("reply", what, opts)
}

func (c *Context) Edit(what interface{}, opts ...interface{}) error {
	return c.record("edit", what, opts)
}

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		c.responses = append(c.responses, &tele.CallbackResponse{})
		return nil
	}
	c.responses = append(c.responses, resp[0])
	return nil
}

func (c *Context) record(method string, what interface{}, opts []interface{}) error {
	if c.Err != nil {
		return c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: method, What: what, Opts: opts})
	return nil
}

// Calls returns the recorded Send, Reply and Edit calls in order.
func (c *Context) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Texts returns the string payloads of the recorded calls.
func (c *Context) Texts() []string {
	var out []string
	for _, call := range c.Calls() {
		if s, ok := call.What.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Responses returns the recorded callback answers in order.
func (c *Context) Responses() []*tele.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*tele.CallbackResponse(nil), c.responses...)
}
