package thread

import (
	"sync/atomic"
)

// ReplyState is the "hide replies" flag for a single thread render. It is created by the root invocation and shared by reference with every ancestor node, so a single expand action un-collapses the whole chain.
type ReplyState struct {
	shown atomic.Bool
}

// Replies start hidden.
func NewReplyState() *ReplyState {
	return &ReplyState{}
}

func (s *ReplyState) Hidden() bool {
	return !s.shown.Load()
}

// Expand shows all hidden replies. Returns true only for the call which actually changed the state.
func (s *ReplyState) Expand() bool {
	return s.shown.CompareAndSwap(false, true)
}
