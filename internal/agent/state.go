package agent

import "github.com/cloudwego/eino/schema"

// State is the append-only message sequence of one turn. It belongs to a
// single engine run and is never shared between turns.
type State struct {
	messages []*schema.Message
}

// NewState seeds a turn with its initial messages.
func NewState(initial []*schema.Message) *State {
	s := &State{messages: make([]*schema.Message, 0, len(initial)+4)}
	s.messages = append(s.messages, initial...)
	return s
}

// Append adds messages to the end of the turn.
func (s *State) Append(msgs ...*schema.Message) {
	s.messages = append(s.messages, msgs...)
}

func (s *State) Len() int { return len(s.messages) }

// Last returns the most recent message, or nil for an empty state.
func (s *State) Last() *schema.Message {
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}

// Messages returns a copy of the sequence.
func (s *State) Messages() []*schema.Message {
	return append([]*schema.Message(nil), s.messages...)
}
