package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

func newOpinion(t *testing.T, folio string, codes ...string) *domain.Opinion {
	t.Helper()
	o, err := domain.NewOpinion(folio, "detail", 1, time.Now())
	require.NoError(t, err)
	for _, code := range codes {
		r, err := domain.NewReceptor(code, code, true, false)
		require.NoError(t, err)
		o.AddReceptor(r)
	}
	return o
}

func TestStore_DoRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Do(ctx, func(repos ports.Repositories) error {
		require.NoError(t, repos.Opinions().Create(ctx, newOpinion(t, "F-1", "R1")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	active, err := store.Opinions().FindActiveByFolio(ctx, "F-1")
	require.NoError(t, err)
	require.Nil(t, active)
	_, err = store.Receptors().GetByID(ctx, 1)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_OneActiveOpinionPerFolio(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := newOpinion(t, "F-1", "R1")
	require.NoError(t, store.Opinions().Create(ctx, first))
	require.ErrorIs(t, store.Opinions().Create(ctx, newOpinion(t, "F-1", "R1")), ports.ErrActiveOpinionExists)

	first.Active = false
	require.NoError(t, store.Opinions().Update(ctx, first))
	second := newOpinion(t, "F-1", "R1")
	require.NoError(t, store.Opinions().Create(ctx, second))

	first.Active = true
	require.ErrorIs(t, store.Opinions().Update(ctx, first), ports.ErrActiveOpinionExists)

	version, err := store.Opinions().MaxVersion(ctx, "F-1")
	require.NoError(t, err)
	require.Equal(t, 1, version)
}

func TestStore_ReadsAreCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	o := newOpinion(t, "F-2", "R1", "R2")
	require.NoError(t, store.Opinions().Create(ctx, o))

	loaded, err := store.Opinions().GetByID(ctx, o.ID)
	require.NoError(t, err)
	loaded.Receptors[0].Active = false
	loaded.Detail = "mutated"

	again, err := store.Opinions().GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, again.Receptors[0].Active)
	require.Equal(t, "detail", again.Detail)

	count, err := store.Receptors().CountActive(ctx, o.ID, again.Receptors[0].ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestStore_SoftDeleteHidesAttachments(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	o := newOpinion(t, "F-3", "R1")
	require.NoError(t, store.Opinions().Create(ctx, o))
	receptorID := o.Receptors[0].ID

	saved, err := store.Attachments().Append(ctx, []domain.Attachment{
		{Name: "a", ReceptorID: &receptorID, CreatedAt: time.Now()},
		{Name: "b", ReceptorID: &receptorID, CreatedAt: time.Now().Add(time.Second)},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	require.NoError(t, store.Attachments().SoftDelete(ctx, []int64{saved[0].ID}))
	receptor, err := store.Receptors().GetByID(ctx, receptorID)
	require.NoError(t, err)
	require.Len(t, receptor.Attachments, 1)
	require.Equal(t, "b", receptor.Attachments[0].Name)
}

func TestIdempotencyStore_Conflict(t *testing.T) {
	store := NewIdempotencyStore()
	ctx := context.Background()

	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k", RequestHash: "h1", OpinionID: 1})
	require.NoError(t, err)
	rec, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k", RequestHash: "h1", OpinionID: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), rec.OpinionID)

	rec, err = store.Save(ctx, ports.IdempotencyRecord{Key: "k", RequestHash: "h2", OpinionID: 1})
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
	require.Equal(t, "h1", rec.RequestHash)
}
