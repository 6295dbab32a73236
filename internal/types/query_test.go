package types

import (
	"testing"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/wire"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) identity.PrivateKey {
	t.Helper()
	key, err := identity.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestNodeResultNodeKeyAcrossVariants(t *testing.T) {
	worker := mustKey(t).PublicKey()

	sent := SentRequest(worker)
	require.Equal(t, worker, sent.NodeKey())

	resp := SignResponse(mustKey(t), AiResponse{PubKey: worker})
	responded := Responded(resp)
	require.Equal(t, worker, responded.NodeKey())

	errResult := ErrorResult(worker, "boom")
	require.Equal(t, worker, errResult.NodeKey())

	timeout := TimedOut(sent)
	require.Equal(t, worker, timeout.NodeKey())

	relevance, err := NewPercent(80)
	require.NoError(t, err)
	verdict := SignVerification(mustKey(t), VerificationResult{Material: resp, Relevance: relevance})
	verified := VerifiedResult(verdict)
	require.Equal(t, worker, verified.NodeKey())
}

func TestNodeResultIsTerminal(t *testing.T) {
	worker := mustKey(t).PublicKey()
	require.False(t, SentRequest(worker).IsTerminal())
	require.False(t, Responded(SignedAiResponse{}).IsTerminal())
	require.True(t, ErrorResult(worker, "x").IsTerminal())
	require.True(t, TimedOut(SentRequest(worker)).IsTerminal())
	require.True(t, VerifiedResult(SignedVerificationResult{}).IsTerminal())
}

func TestQueryRankedOrdersByDisplayRankThenRelevance(t *testing.T) {
	worker := mustKey(t).PublicKey()

	lowRelevance, _ := NewPercent(30)
	highRelevance, _ := NewPercent(90)

	low := VerifiedResult(SignedVerificationResult{Result: VerificationResult{Relevance: lowRelevance}})
	high := VerifiedResult(SignedVerificationResult{Result: VerificationResult{Relevance: highRelevance}})
	sent := SentRequest(worker)
	responded := Responded(SignedAiResponse{})
	errored := ErrorResult(worker, "boom")
	timedOut := TimedOut(sent)

	q := Query{Responses: []NodeResult{sent, errored, low, timedOut, high, responded}}
	ranked := q.Ranked()

	require.Equal(t, KindVerified, ranked[0].Kind)
	require.Equal(t, highRelevance, ranked[0].Verdict.Result.Relevance)
	require.Equal(t, KindVerified, ranked[1].Kind)
	require.Equal(t, lowRelevance, ranked[1].Verdict.Result.Relevance)
	require.Equal(t, KindNodeResponse, ranked[2].Kind)
	require.Equal(t, KindTimeout, ranked[3].Kind)
	require.Equal(t, KindSentRequest, ranked[4].Kind)
	require.Equal(t, KindError, ranked[5].Kind)
}

func TestQueryIsComplete(t *testing.T) {
	worker := mustKey(t).PublicKey()
	q := Query{Responses: []NodeResult{SentRequest(worker)}}
	require.False(t, q.IsComplete())

	q.Responses = []NodeResult{ErrorResult(worker, "x"), TimedOut(SentRequest(worker))}
	require.True(t, q.IsComplete())
}

func TestQueryWireRoundTrip(t *testing.T) {
	key := mustKey(t)
	worker := mustKey(t).PublicKey()
	req := Sign(key, AiRequest{Timestamp: Now(), Message: "hello", PubKey: key.PublicKey()})

	relevance, _ := NewPercent(55)
	verdict := SignVerification(key, VerificationResult{
		Material:  SignResponse(key, AiResponse{Message: "answer", PubKey: worker}),
		Inspector: key.PublicKey(),
		Relevance: relevance,
	})

	want := Query{
		ID:       NewQueryId([16]byte{1}, req),
		Sequence: 7,
		Request:  req,
		Responses: []NodeResult{
			SentRequest(worker),
			ErrorResult(worker, "timed out upstream"),
			VerifiedResult(verdict),
			TimedOut(SentRequest(worker)),
		},
	}

	raw := wire.Encode(want)
	var got Query
	require.NoError(t, wire.Decode(raw, &got))
	require.Equal(t, want, got)
}
