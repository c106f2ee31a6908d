package club

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denbedilov/the-archivist/internal/models"
	"github.com/denbedilov/the-archivist/internal/store"
)

type recordingNotifier struct {
	notes []string
}

func (n *recordingNotifier) Notify(_ int64, text string) {
	n.notes = append(n.notes, text)
}

type fixture struct {
	store    *store.MemoryStore
	exec     *Executor
	notifier *recordingNotifier
	face     int // forced die face
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: store.NewMemoryStore(), notifier: &recordingNotifier{}, face: 1}
	policy := NewPolicy(curatorID, f.store)
	f.exec = NewExecutor(f.store, policy, EmptyDirectory{}, f.notifier,
		func() int { return f.face }, ExecutorConfig{})
	return f
}

func (f *fixture) handle(t *testing.T, m *Message) *Reply {
	t.Helper()
	reply, err := f.exec.Handle(context.Background(), m)
	require.NoError(t, err)
	return reply
}

func from(id int64, text string) *Message {
	return &Message{ChatID: 1, Sender: models.Member{ID: id, Handle: fmt.Sprintf("m%d", id)}, Text: text}
}

func fromTo(id, targetID int64, text string) *Message {
	m := from(id, text)
	m.ReplyTo = &models.Member{ID: targetID, Handle: fmt.Sprintf("m%d", targetID)}
	return m
}

func (f *fixture) credit(t *testing.T, id, amount int64) {
	t.Helper()
	_, err := f.store.Credit(context.Background(), id, amount, "seed", curatorID)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, id int64) int64 {
	t.Helper()
	balance, err := f.store.Balance(context.Background(), id)
	require.NoError(t, err)
	return balance
}

func TestHandle_UnrecognizedTextIsSilent(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.handle(t, from(5, "what a lovely evening")))
}

func TestHandle_Pocket(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 5, 12)

	reply := f.handle(t, from(5, "pocket"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "12 noirs")
}

func TestHandle_GrantRevokeTransferScenario(t *testing.T) {
	// The full scenario: a key holder grants 5 to A, fails to take 10,
	// then A gives their 5 to B.
	f := newFixture(t)
	ctx := context.Background()
	keyHolder, a, b := int64(2), int64(3), int64(4)
	require.NoError(t, f.store.SetKey(ctx, keyHolder, true))

	reply := f.handle(t, fromTo(keyHolder, a, "grant 5"))
	require.NotNil(t, reply)
	assert.Equal(t, int64(5), f.balance(t, a))

	entries := f.store.LedgerEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, a, entries[0].AccountID)
	assert.Equal(t, int64(5), entries[0].Delta)
	assert.Equal(t, keyHolder, entries[0].ActorID)

	reply = f.handle(t, fromTo(keyHolder, a, "take 10"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "only 5 noirs")
	assert.Equal(t, int64(5), f.balance(t, a), "failed debit must not change the balance")
	assert.Len(t, f.store.LedgerEntries(), 1, "failed debit must not log")

	reply = f.handle(t, fromTo(a, b, "give 5"))
	require.NotNil(t, reply)
	assert.Equal(t, int64(0), f.balance(t, a))
	assert.Equal(t, int64(5), f.balance(t, b))
	assert.Len(t, f.store.LedgerEntries(), 3, "a transfer logs a debit and a credit")
}

func TestHandle_TransferConservesTotal(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 3, 40)
	f.credit(t, 4, 10)

	f.handle(t, fromTo(3, 4, "give 15"))
	assert.Equal(t, int64(50), f.balance(t, 3)+f.balance(t, 4))
}

func TestHandle_SelfTransferRejected(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 3, 40)

	reply := f.handle(t, fromTo(3, 3, "give 5"))
	require.NotNil(t, reply)
	assert.Equal(t, int64(40), f.balance(t, 3))
	assert.Len(t, f.store.LedgerEntries(), 1, "only the seed entry remains")
}

func TestHandle_NegativeAndZeroAmountsRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetKey(context.Background(), 2, true))

	for _, text := range []string{"grant -5", "grant 0"} {
		reply := f.handle(t, fromTo(2, 3, text))
		require.NotNil(t, reply, "text %q", text)
		assert.Contains(t, reply.Text, "positive", "text %q", text)
	}
	assert.Equal(t, int64(0), f.balance(t, 3))
}

func TestHandle_GrantByUnknownHandle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetKey(context.Background(), 2, true))

	reply := f.handle(t, from(2, "grant @ghost 5"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "@ghost")
	assert.Empty(t, f.store.LedgerEntries())
}

func TestHandle_Authorization(t *testing.T) {
	f := newFixture(t)

	t.Run("keyless grant gets explicit denial and no state change", func(t *testing.T) {
		reply := f.handle(t, fromTo(7, 3, "grant 5"))
		require.NotNil(t, reply)
		assert.Contains(t, reply.Text, "key holders")
		assert.Equal(t, int64(0), f.balance(t, 3))
		assert.Empty(t, f.store.LedgerEntries())
	})

	t.Run("curator command from non-curator gets silence and no state change", func(t *testing.T) {
		assert.Nil(t, f.handle(t, fromTo(7, 3, "grant key")))
		assert.Nil(t, f.handle(t, from(7, "burn the club")))
		assert.Nil(t, f.handle(t, fromTo(7, 3, `bestow "Usurper" pretender`)))

		hasKey, err := f.store.HasKey(context.Background(), 3)
		require.NoError(t, err)
		assert.False(t, hasKey)
		_, err = f.store.Role(context.Background(), 3)
		assert.ErrorIs(t, err, store.ErrNoRole)
	})
}

func TestHandle_RoleRoundTrip(t *testing.T) {
	f := newFixture(t)
	u := int64(3)

	reply := f.handle(t, fromTo(curatorID, u, `bestow "Envoy" keeper of quiet words`))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "Envoy")

	reply = f.handle(t, from(u, "my role"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "Envoy")
	assert.Contains(t, reply.Text, "keeper of quiet words")

	// Attach a portrait, then strip the title: the portrait survives.
	photo := fromTo(curatorID, u, "role image for the archive")
	photo.PhotoRef = "file-789"
	require.NotNil(t, f.handle(t, photo))

	require.NotNil(t, f.handle(t, fromTo(curatorID, u, "strip role")))

	reply = f.handle(t, from(u, "my role"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "no role")

	reply = f.handle(t, fromTo(int64(8), u, "role"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "no role")
	assert.Equal(t, "file-789", reply.PhotoRef, "the image outlives the title")
}

func TestHandle_Roles(t *testing.T) {
	f := newFixture(t)

	reply := f.handle(t, from(5, "roles"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "No roles")

	require.NotNil(t, f.handle(t, fromTo(curatorID, 3, `bestow "Envoy" keeper of quiet words`)))
	require.NotNil(t, f.handle(t, fromTo(curatorID, 4, `bestow "Sommelier" keeper of the cellar`)))
	require.NotNil(t, f.handle(t, fromTo(curatorID, 4, "strip role")))

	reply = f.handle(t, from(5, "roles"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "Envoy")
	assert.Contains(t, reply.Text, "member 3")
	assert.NotContains(t, reply.Text, "Sommelier", "stripped roles are not listed")
}

func TestHandle_KeyLifecycle(t *testing.T) {
	f := newFixture(t)
	u := int64(3)

	require.NotNil(t, f.handle(t, fromTo(curatorID, u, "grant key")))
	hasKey, err := f.store.HasKey(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, hasKey)

	// Key holders may now mint.
	require.NotNil(t, f.handle(t, fromTo(u, 4, "grant 3")))
	assert.Equal(t, int64(3), f.balance(t, 4))

	require.NotNil(t, f.handle(t, fromTo(curatorID, u, "revoke key")))
	hasKey, err = f.store.HasKey(context.Background(), u)
	require.NoError(t, err)
	assert.False(t, hasKey)
}

func TestHandle_Wager(t *testing.T) {
	t.Run("winning face pays six to one", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 5, 10)
		f.face = 6

		reply := f.handle(t, from(5, "wager 10 "+DieToken))
		require.NotNil(t, reply)
		assert.Equal(t, int64(70), f.balance(t, 5))
		assert.Contains(t, reply.Text, "70")
	})

	t.Run("losing face forfeits the stake", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 5, 10)
		f.face = 3

		reply := f.handle(t, from(5, "wager 10 "+DieToken))
		require.NotNil(t, reply)
		assert.Equal(t, int64(0), f.balance(t, 5))
		assert.Contains(t, reply.Text, "carry 0", "the reply reports the balance the wager produced")

		entries := f.store.LedgerEntries()
		require.Len(t, entries, 2, "seed plus one wager entry")
		assert.Equal(t, int64(-10), entries[1].Delta)
		assert.Contains(t, entries[1].Reason, "wager lost")
	})

	t.Run("stake above balance is rejected before the roll", func(t *testing.T) {
		f := newFixture(t)
		f.credit(t, 5, 4)
		f.face = 6

		reply := f.handle(t, from(5, "wager 10 "+DieToken))
		require.NotNil(t, reply)
		assert.Equal(t, int64(4), f.balance(t, 5))
		assert.Len(t, f.store.LedgerEntries(), 1)
	})
}

func TestHandle_ResetAllIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 3, 25)
	f.credit(t, 4, 5)

	require.NotNil(t, f.handle(t, from(curatorID, "empty all pockets")))
	first := len(f.store.LedgerEntries())
	assert.Equal(t, int64(0), f.balance(t, 3))
	assert.Equal(t, int64(0), f.balance(t, 4))

	require.NotNil(t, f.handle(t, from(curatorID, "empty all pockets")))
	assert.Equal(t, first, len(f.store.LedgerEntries()), "second reset logs nothing")
}

func TestHandle_EmptyPocket(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 3, 25)

	require.NotNil(t, f.handle(t, fromTo(curatorID, 3, "empty pocket")))
	assert.Equal(t, int64(0), f.balance(t, 3))
}

func TestHandle_BurnClub(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.credit(t, 3, 25)
	require.NoError(t, f.store.UpsertRole(ctx, 3, "Envoy", ""))

	reply := f.handle(t, from(curatorID, "burn the club"))
	require.NotNil(t, reply)
	require.Len(t, f.notifier.notes, 1, "the ack lands before the wipe")

	assert.Equal(t, int64(0), f.balance(t, 3))
	assert.Empty(t, f.store.LedgerEntries())
	_, err := f.store.Role(ctx, 3)
	assert.ErrorIs(t, err, store.ErrNoRole)
}

func TestHandle_Ledger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.handle(t, from(5, "ledger"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "empty")

	for i := 0; i < 7; i++ {
		_, err := f.store.Credit(ctx, 3, int64(i+1), fmt.Sprintf("entry %d", i), curatorID)
		require.NoError(t, err)
	}
	reply = f.handle(t, from(5, "ledger"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "entry 6", "newest entries are shown")
	assert.NotContains(t, reply.Text, "entry 0", "only the last five are shown")
}

func TestHandle_Rating(t *testing.T) {
	f := newFixture(t)
	f.credit(t, 3, 25)
	f.credit(t, 4, 40)

	reply := f.handle(t, from(5, "rating"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "40")
	assert.Contains(t, reply.Text, "25")
}

func TestBalancesNeverGoNegative(t *testing.T) {
	// Random command sequences: whatever happens, no balance ends below
	// zero and every ledger delta matched a real mutation.
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetKey(ctx, 2, true))

	rng := rand.New(rand.NewSource(1))
	accounts := []int64{2, 3, 4, 5}
	for i := 0; i < 500; i++ {
		actor := accounts[rng.Intn(len(accounts))]
		target := accounts[rng.Intn(len(accounts))]
		amount := rng.Intn(30) + 1
		f.face = rng.Intn(6) + 1

		var m *Message
		switch rng.Intn(4) {
		case 0:
			m = fromTo(2, target, fmt.Sprintf("grant %d", amount))
		case 1:
			m = fromTo(2, target, fmt.Sprintf("take %d", amount))
		case 2:
			m = fromTo(actor, target, fmt.Sprintf("give %d", amount))
		case 3:
			m = from(actor, fmt.Sprintf("wager %d %s", amount, DieToken))
		}
		_, err := f.exec.Handle(ctx, m)
		require.NoError(t, err)

		for _, id := range accounts {
			assert.GreaterOrEqual(t, f.balance(t, id), int64(0))
		}
	}

	var total int64
	for _, e := range f.store.LedgerEntries() {
		total += e.Delta
	}
	var held int64
	for _, id := range accounts {
		held += f.balance(t, id)
	}
	assert.Equal(t, held, total, "ledger deltas must sum to the noirs in circulation")
}
