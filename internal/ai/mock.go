package ai

import "context"

// Mock is a deterministic Ai implementation for tests: it returns Reply
// for every question, unless Err is set, in which case it always fails.
type Mock struct {
	Reply string
	Err   error
	Asked []Question
}

// Ask implements Ai.
func (m *Mock) Ask(_ context.Context, q Question) (Answer, error) {
	m.Asked = append(m.Asked, q)
	if m.Err != nil {
		return Answer{}, m.Err
	}
	return Answer{Message: m.Reply, Tokens: uint64(len(m.Reply))}, nil
}
