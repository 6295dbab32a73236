package storage

import (
	"testing"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T, pk identity.PublicKey) types.SignedAiRequest {
	t.Helper()
	key, err := identity.GenerateKey()
	require.NoError(t, err)
	return types.Sign(key, types.AiRequest{Timestamp: types.Now(), Message: "hi", PubKey: pk})
}

func TestPutAndGetQuery(t *testing.T) {
	store := openTestStore(t)
	pk := testPubKey(t)
	q := types.Query{
		ID:       types.NewQueryId([16]byte{1}, signedRequest(t, pk)),
		Sequence: 1,
		Request:  signedRequest(t, pk),
	}
	q.Request.Query.PubKey = pk

	ws := NewWriteSet()
	store.PutQuery(q, ws)
	require.NoError(t, store.Commit(ws))

	got, found, err := store.GetQuery(q.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, q.ID, got.ID)
}

func TestGetQueryMissingReturnsNotFound(t *testing.T) {
	store := openTestStore(t)
	_, found, err := store.GetQuery(types.QueryId{0xAB})
	require.NoError(t, err)
	require.False(t, found)
}

func TestInProgressIndexTracksCompletion(t *testing.T) {
	store := openTestStore(t)
	pk := testPubKey(t)
	worker := testPubKey(t)

	incomplete := types.Query{
		ID:        types.NewQueryId([16]byte{2}, signedRequest(t, pk)),
		Sequence:  1,
		Request:   signedRequest(t, pk),
		Responses: []types.NodeResult{types.SentRequest(worker)},
	}
	incomplete.Request.Query.PubKey = pk

	ws := NewWriteSet()
	store.PutQuery(incomplete, ws)
	require.NoError(t, store.Commit(ws))

	ids, err := store.InProgressIds(10, 0)
	require.NoError(t, err)
	require.Contains(t, ids, incomplete.ID)

	complete := incomplete
	complete.Responses = []types.NodeResult{types.ErrorResult(worker, "done")}
	ws = NewWriteSet()
	store.PutQuery(complete, ws)
	require.NoError(t, store.Commit(ws))

	ids, err = store.InProgressIds(10, 0)
	require.NoError(t, err)
	require.NotContains(t, ids, complete.ID)
}

func TestUsersQueryIdsOrderingAndPagination(t *testing.T) {
	store := openTestStore(t)
	pk := testPubKey(t)

	var ids []types.QueryId
	for seq := uint64(0); seq < 3; seq++ {
		q := types.Query{
			ID:       types.NewQueryId([16]byte{byte(seq) + 1}, signedRequest(t, pk)),
			Sequence: seq,
			Request:  signedRequest(t, pk),
		}
		q.Request.Query.PubKey = pk
		ids = append(ids, q.ID)

		ws := NewWriteSet()
		store.PutQuery(q, ws)
		require.NoError(t, store.Commit(ws))
	}

	got, err := store.UsersQueryIds(pk, 10, 0)
	require.NoError(t, err)
	require.Equal(t, ids, got)

	paged, err := store.UsersQueryIds(pk, 1, 1)
	require.NoError(t, err)
	require.Equal(t, []types.QueryId{ids[1]}, paged)
}
