package blueprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	"coipond/internal/domain/repositories"
	bpRepo "coipond/internal/domain/repositories/blueprint"
	authSvc "coipond/internal/service/auth"
)

func TestUpdateContent_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	bp := f.create(t, "user-1", "B1")
	assert.Equal(t, "1.2.0", bp.GameVersion)
	assert.Equal(t, models.KindSingle, bp.Kind)

	ledger, err := f.store.Ledgers().Get(ctx, bp.ID)
	require.NoError(t, err)
	assert.Nil(t, ledger, "no ledger before the first edit")

	res, err := f.updater.UpdateContent(ctx, "user-1", bp.ID, "B2")
	require.NoError(t, err)
	assert.False(t, res.NoOp)
	assert.Equal(t, "1.3.0", res.Blueprint.GameVersion)
	require.Len(t, res.Versions.Versions, 2)
	assert.Equal(t, "B2", res.Versions.Versions[0].BlueprintText)
	assert.Equal(t, "1.3.0", res.Versions.Versions[0].GameVersion)
	assert.Equal(t, "B1", res.Versions.Versions[1].BlueprintText)
	assert.Equal(t, "1.2.0", res.Versions.Versions[1].GameVersion)
	assert.Equal(t, bp.CreatedAt, res.Versions.Versions[1].CreatedAt)
	assert.Equal(t, "user-1", res.Versions.OwnerID)

	stored, err := f.store.Blueprints().GetByID(ctx, bp.ID)
	require.NoError(t, err)
	assert.Equal(t, "B2", stored.BlueprintText)
	assert.Equal(t, "1.3.0", stored.GameVersion)
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))

	res, err = f.updater.UpdateContent(ctx, "user-1", bp.ID, "B2")
	require.NoError(t, err)
	assert.True(t, res.NoOp)

	ledger, err = f.store.Ledgers().Get(ctx, bp.ID)
	require.NoError(t, err)
	assert.Len(t, ledger.Versions, 2)
}

func TestUpdateContent_PrependsToExistingLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bp := f.create(t, "user-1", "B1")

	_, err := f.updater.UpdateContent(ctx, "user-1", bp.ID, "B2")
	require.NoError(t, err)
	res, err := f.updater.UpdateContent(ctx, "user-1", bp.ID, "F1")
	require.NoError(t, err)

	require.Len(t, res.Versions.Versions, 3)
	assert.Equal(t, "F1", res.Versions.Versions[0].BlueprintText)
	assert.Equal(t, "1.0.10", res.Versions.Versions[0].GameVersion)
	assert.Equal(t, res.Blueprint.BlueprintText, res.Versions.Versions[0].BlueprintText)
	assert.Equal(t, models.KindFolder, res.Blueprint.Kind)
	assert.Equal(t, "1.0.10", res.Blueprint.GameVersion)
}

func TestUpdateContent_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		id      func(bp *models.Blueprint) string
		text    string
		wantErr error
		parsed  bool
	}{
		{name: "non-owner", userID: "user-2", text: "B2", wantErr: domain.ErrForbidden},
		{name: "non-owner with malformed text", userID: "user-2", text: "garbage", wantErr: domain.ErrForbidden},
		{name: "anonymous", userID: "", text: "B2", wantErr: domain.ErrUnauthorized},
		{name: "anonymous with malformed text", userID: "", text: "garbage", wantErr: domain.ErrUnauthorized},
		{name: "malformed text", userID: "user-1", text: "garbage", wantErr: domain.ErrValidation, parsed: true},
		{name: "empty folder", userID: "user-1", text: "EMPTY", wantErr: domain.ErrValidation, parsed: true},
		{
			name:    "missing record",
			userID:  "user-1",
			id:      func(*models.Blueprint) string { return "missing" },
			text:    "garbage",
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			bp := f.create(t, "user-1", "B1")

			id := bp.ID
			if tt.id != nil {
				id = tt.id(bp)
			}
			before := f.parser.calls.Load()
			_, err := f.updater.UpdateContent(ctx, tt.userID, id, tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.parsed, f.parser.calls.Load() > before)

			stored, err := f.store.Blueprints().GetByID(ctx, bp.ID)
			require.NoError(t, err)
			assert.Equal(t, "B1", stored.BlueprintText)
			ledger, err := f.store.Ledgers().Get(ctx, bp.ID)
			require.NoError(t, err)
			assert.Nil(t, ledger)
		})
	}
}

func TestUpdateContent_RetriesOnConflict(t *testing.T) {
	tests := []struct {
		name      string
		conflicts int
		wantErr   error
		wantSaves int
	}{
		{name: "no conflict", conflicts: 0, wantSaves: 1},
		{name: "succeeds on last attempt", conflicts: 2, wantSaves: 3},
		{name: "retries exhausted", conflicts: 5, wantErr: domain.ErrConcurrentModification, wantSaves: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			bp := f.create(t, "user-1", "B1")
			f.ledgers.conflicts = tt.conflicts

			res, err := f.updater.UpdateContent(ctx, "user-1", bp.ID, "B2")
			assert.Equal(t, tt.wantSaves, f.ledgers.saves)

			stored, getErr := f.store.Blueprints().GetByID(ctx, bp.ID)
			require.NoError(t, getErr)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, "B1", stored.BlueprintText, "record untouched when every attempt failed")
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Versions.Versions, 2)
			assert.Equal(t, "B2", stored.BlueprintText)
		})
	}
}

// passthroughTx runs fn without isolation so a rival writer can interleave
type passthroughTx struct{}

func (passthroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

// rivalLedgers lets another writer save first, once
type rivalLedgers struct {
	bpRepo.LedgerRepository
	rival func()
}

func (r *rivalLedgers) Save(ctx context.Context, ledger *models.VersionLedger) error {
	if r.rival != nil {
		rival := r.rival
		r.rival = nil
		rival()
	}
	return r.LedgerRepository.Save(ctx, ledger)
}

func TestUpdateContent_LosingWriterRebuildsFromFreshRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bp := f.create(t, "user-1", "B1")

	_, err := f.updater.UpdateContent(ctx, "user-1", bp.ID, "B2")
	require.NoError(t, err)

	ledgers := f.store.Ledgers()
	raced := &rivalLedgers{LedgerRepository: ledgers, rival: func() {
		current, err := ledgers.Get(ctx, bp.ID)
		require.NoError(t, err)
		require.NoError(t, ledgers.Save(ctx, current.Prepend(models.VersionEntry{BlueprintText: "B3", GameVersion: "1.4.0"})))
	}}
	upd := NewContentUpdater(f.store.Blueprints(), raced, passthroughTx{}, f.parser,
		authSvc.NewOwnerBasedAuthorizer(), 3, testLogger())

	res, err := upd.UpdateContent(ctx, "user-1", bp.ID, "F1")
	require.NoError(t, err)

	require.Len(t, res.Versions.Versions, 4)
	texts := make([]string, 0, 4)
	for _, v := range res.Versions.Versions {
		texts = append(texts, v.BlueprintText)
	}
	assert.Equal(t, []string{"F1", "B3", "B2", "B1"}, texts)
	assert.Equal(t, int64(3), res.Versions.Revision)
}
