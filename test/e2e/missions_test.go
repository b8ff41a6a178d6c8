//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zktrails/zktrails/internal/chains"
	"github.com/zktrails/zktrails/pkg/client"
)

const (
	walletA = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"
	walletB = "GAAZI4TCR3TY5OJHCTJC2A4QSY6CJWJH5IAJTGKIN2ER7LBNVKOCCWN7"
	walletC = "GAB2CB576PHBBPQ5ODORRZ2LYCMWPZGWGCN2KDK7DXOIMZASKUY3QZ6Q"
)

func TestCatalog_PublicViewIsRedacted(t *testing.T) {
	c := newClient("")
	ctx := context.Background()

	missions, err := c.ListMissions(ctx)
	require.NoError(t, err)
	require.Len(t, missions, 6)

	questions, err := c.Questions(ctx, "m5")
	require.NoError(t, err)
	assert.Len(t, questions, 5)

	_, err = c.GetMission(ctx, "m42")
	assertHTTPError(t, err, "NOT_FOUND")
}

func TestGeofence_Verdicts(t *testing.T) {
	c := newClient("")
	ctx := context.Background()

	in, err := c.VerifyLocation(ctx, "m0", client.Location{Lat: 40.414, Lon: -3.706})
	require.NoError(t, err)
	assert.True(t, in.Verified)

	out, err := c.VerifyLocation(ctx, "m0", client.Location{Lat: 40.420, Lon: -3.706})
	require.NoError(t, err)
	assert.False(t, out.Verified)
}

func TestMemoTransaction_Verdicts(t *testing.T) {
	testCtx.Ledger.addTx(chains.Transaction{Hash: questTx, SourceAccount: walletB, Memo: "ZK-TRAILS-QUEST", MemoType: "text", Successful: true})
	testCtx.Ledger.addTx(chains.Transaction{Hash: wrongTx, SourceAccount: walletB, Memo: "WRONG", MemoType: "text", Successful: true})

	c := newClient("")
	ctx := context.Background()

	ok, err := c.VerifyTransaction(ctx, "m4", questTx, walletB)
	require.NoError(t, err)
	assert.True(t, ok.Verified)

	bad, err := c.VerifyTransaction(ctx, "m4", wrongTx, walletB)
	require.NoError(t, err)
	assert.False(t, bad.Verified)
	assert.Contains(t, bad.Reason, "ZK-TRAILS-QUEST")
	assert.Contains(t, bad.Reason, "WRONG")
}

func TestQuiz_FourOfFivePasses(t *testing.T) {
	res, err := newClient("").VerifyAnswers(context.Background(), "m5", map[string]int{
		"q1": 1, "q2": 2, "q3": 3, "q4": 0, "q5": 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Correct)
	assert.Equal(t, 5, res.Total)
	assert.True(t, res.Passed)
	assert.Equal(t, 80, res.ScorePercent)
}

func TestSessionFlow_LocationMission(t *testing.T) {
	c := newClient("")
	ctx := context.Background()
	endsBefore := testCtx.Ledger.countCalls("end_game")

	started, err := c.StartMission(ctx, "m0", walletA)
	require.NoError(t, err)
	assert.True(t, started.GameHubStarted)

	res, err := c.CompleteMission(ctx, client.CompleteRequest{
		MissionID:     "m0",
		WalletAddress: walletA,
		SessionID:     started.SessionID,
		Evidence:      client.Evidence{Lat: ptr(40.4145), Lon: ptr(-3.7065)},
	})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.True(t, res.OnChain)
	assert.True(t, res.GameHubEnded)
	assert.Equal(t, 100, res.Reward)
	assert.Equal(t, endsBefore+1, testCtx.Ledger.countCalls("end_game"))

	player, err := c.GetPlayer(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, 100, player.Score, "score tracks the points registered on-chain")
	assert.Contains(t, player.CompletedMissions, "m0")

	admin := newClient(createTestAPIKey(t, "e2e-sessions"))
	sess, err := admin.GetSession(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "ENDED", sess.State)
	assert.True(t, sess.GameHubEnded)

	// Single completion is enabled for this server
	_, err = c.CompleteMission(ctx, client.CompleteRequest{
		MissionID:     "m0",
		WalletAddress: walletA,
		Evidence:      client.Evidence{Lat: ptr(40.4145), Lon: ptr(-3.7065)},
	})
	assertHTTPError(t, err, "ALREADY_COMPLETED")
}

func TestSettlement_FallsBackWhenLedgerFails(t *testing.T) {
	testCtx.Ledger.setFailSettling(true)
	defer testCtx.Ledger.setFailSettling(false)

	c := newClient("")
	ctx := context.Background()

	res, err := c.CompleteMission(ctx, client.CompleteRequest{
		MissionID:     "m5",
		WalletAddress: walletC,
		Evidence:      client.Evidence{Answers: map[string]int{"q1": 1, "q2": 2, "q3": 3, "q4": 0, "q5": 2}},
	})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.False(t, res.OnChain)
	assert.NotEmpty(t, res.TxHash)

	admin := newClient(createTestAPIKey(t, "e2e-completions"))
	completions, err := admin.ListCompletions(ctx, client.CompletionFilter{Wallet: walletC})
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.False(t, completions[0].OnChain)
	assert.Equal(t, res.TxHash, completions[0].TxHash)
}

func TestFailedVerification_NeverSettles(t *testing.T) {
	c := newClient("")
	ctx := context.Background()
	before := testCtx.Ledger.countCalls("complete_mission")

	res, err := c.CompleteMission(ctx, client.CompleteRequest{
		MissionID:     "m0",
		WalletAddress: walletB,
		Evidence:      client.Evidence{Lat: ptr(48.8566), Lon: ptr(2.3522)},
	})
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, before, testCtx.Ledger.countCalls("complete_mission"))
}

func TestAdmin_RequiresKey(t *testing.T) {
	_, err := newClient("").ListCompletions(context.Background(), client.CompletionFilter{})
	assertHTTPError(t, err, "UNAUTHORIZED")

	_, err = newClient("zkt_key_0000").ListSessions(context.Background(), "", 1)
	assertHTTPError(t, err, "UNAUTHORIZED")
}

func TestProofs_DisabledWithoutToolchain(t *testing.T) {
	c := newClient("")
	ctx := context.Background()

	st, err := c.ProverStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "disabled", st.Status)

	_, err = c.GenerateLocationProof(ctx, "m0", walletA, 40.4145, -3.7065)
	assertHTTPError(t, err, "PROVER_UNAVAILABLE")
}
