package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opmemory "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/memory"
	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

type fixture struct {
	store      *opmemory.Store
	delivery   *opmemory.DeliveryService
	caseStatus *opmemory.CaseStatusService
	keys       *opmemory.IdempotencyStore
	svc        *Service
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      opmemory.NewStore(),
		delivery:   opmemory.NewDeliveryService(map[string]any{"plantilla": "B025"}),
		caseStatus: opmemory.NewCaseStatusService(),
		keys:       opmemory.NewIdempotencyStore(),
		now:        time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	lookups := opmemory.NewLookupCatalog(map[domain.LookupKind][]domain.LookupEntry{
		domain.LookupElementType:  {{ID: 1, Name: "Documento"}, {ID: 2, Name: "Imagen"}},
		domain.LookupDocumentType: {{ID: 10, Name: "Oficio"}, {ID: 11, Name: "Anexo"}},
	})
	clock := func() time.Time {
		f.now = f.now.Add(time.Minute)
		return f.now
	}
	f.svc = NewService(f.store, lookups, Remotes{
		Design:       f.delivery,
		Registration: f.delivery,
		CaseStatus:   f.caseStatus,
	}, WithClock(clock), WithIdempotencyStore(f.keys))
	return f
}

func internalReceptor(code string) optypes.ReceptorInput {
	return optypes.ReceptorInput{Code: code, Name: "Area " + code, Internal: true, Mandatory: true}
}

func externalReceptor(code, entity string) optypes.ReceptorInput {
	return optypes.ReceptorInput{
		Code:   code,
		Name:   "Authority " + code,
		Entity: &domain.ExternalEntity{ID: entity, Type: "DEPENDENCIA"},
	}
}

func caseInput() *optypes.CaseInput {
	area := 7
	return &optypes.CaseInput{CaseID: "A-1", CaseFolio: "F-100", ResponsibleAreaID: &area}
}

func (f *fixture) request(t *testing.T, folio string, receptors ...optypes.ReceptorInput) int64 {
	t.Helper()
	id, err := f.svc.RequestOpinions(context.Background(), optypes.RequestOpinionsInput{
		Folio:     folio,
		Detail:    "please review",
		Receptors: receptors,
		Case:      caseInput(),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) receptorID(t *testing.T, opinionID int64, code string) int64 {
	t.Helper()
	opinion, err := f.store.Opinions().GetByID(context.Background(), opinionID)
	require.NoError(t, err)
	for _, r := range opinion.Receptors {
		if r.Code == code {
			return r.ID
		}
	}
	t.Fatalf("receptor %s not found on opinion %d", code, opinionID)
	return 0
}

func requireKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "unexpected error: %v", err)
}

func TestRequestOpinions_CreatesVersionOneThenRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.request(t, "F-100", internalReceptor("R1"))
	require.Equal(t, int64(1), id)

	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, opinion.Version)
	require.True(t, opinion.Active)
	require.Len(t, opinion.Receptors, 1)
	require.True(t, opinion.Receptors[0].Active)

	_, err = f.svc.RequestOpinions(ctx, optypes.RequestOpinionsInput{
		Folio:     "F-100",
		Receptors: []optypes.ReceptorInput{internalReceptor("R2")},
	})
	requireKind(t, err, domain.KindConflict)

	list, err := f.svc.ListByFolio(ctx, "F-100")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestRequestOpinions_ConcurrentCreatorsYieldOneActiveOpinion(t *testing.T) {
	store := opmemory.NewStore()
	caseStatus := opmemory.NewCaseStatusService()
	svc := NewService(store, opmemory.NewLookupCatalog(nil), Remotes{CaseStatus: caseStatus})

	const creators = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   []int64
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			id, err := svc.RequestOpinions(context.Background(), optypes.RequestOpinionsInput{
				Folio:     "F-RACE",
				Receptors: []optypes.ReceptorInput{internalReceptor("R1")},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created = append(created, id)
			case domain.KindOf(err) == domain.KindConflict:
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, others)
	require.Len(t, created, 1)
	assert.Equal(t, creators-1, conflicts)

	list, err := svc.ListByFolio(context.Background(), "F-RACE")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created[0], list[0].ID)
	assert.Equal(t, 1, list[0].Version)
}

func TestRequestOpinions_VersionFollowsClosedOpinions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		id := f.request(t, "F-200", internalReceptor("R1"))
		opinion, err := f.store.Opinions().GetByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, opinion.Version)

		require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{
			ReceptorID:  f.receptorID(t, id, "R1"),
			Comments:    "ok",
			FinalizedBy: "reviewer",
		}))
	}

	list, err := f.svc.ListByFolio(ctx, "F-200")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 3, list[0].Version)
	assert.Equal(t, 1, list[2].Version)
	for _, o := range list {
		assert.False(t, o.Active)
	}
}

func TestRequestOpinions_RegistersExternalDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.request(t, "F-300", internalReceptor("R1"), externalReceptor("E1", "SEP"))

	regs := f.delivery.Registrations()
	require.Len(t, regs, 1)
	assert.Equal(t, "SEP", regs[0].Entity.ID)
	assert.Equal(t, 7, regs[0].Design["idAreaResponsable"])
	assert.Equal(t, "F-100", regs[0].Design["folioCrearAsunto"])
	assert.Equal(t, "A-1", regs[0].Design["idAsunto"])
	assert.Equal(t, "B025", regs[0].Design["plantilla"])

	receptor, err := f.store.Receptors().GetByEnvioID(ctx, "ENV-1")
	require.NoError(t, err)
	assert.Equal(t, id, receptor.OpinionID)
	assert.False(t, receptor.Internal)
}

func TestRequestOpinions_RegistrationFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.delivery.FailRegistrationAfter(1, errors.New("gateway timeout"))

	_, err := f.svc.RequestOpinions(ctx, optypes.RequestOpinionsInput{
		Folio:     "F-400",
		Receptors: []optypes.ReceptorInput{externalReceptor("E1", "SEP"), externalReceptor("E2", "SHCP")},
		Case:      caseInput(),
	})
	requireKind(t, err, domain.KindRemoteService)
	assert.Contains(t, err.Error(), "ENV-1")

	active, err := f.store.Opinions().FindActiveByFolio(ctx, "F-400")
	require.NoError(t, err)
	assert.Nil(t, active)
	_, err = f.svc.ListByFolio(ctx, "F-400")
	requireKind(t, err, domain.KindNotFound)
}

func TestRequestOpinions_DesignFailure(t *testing.T) {
	f := newFixture(t)
	f.delivery.FailDesign(errors.New("503"))

	_, err := f.svc.RequestOpinions(context.Background(), optypes.RequestOpinionsInput{
		Folio:     "F-401",
		Receptors: []optypes.ReceptorInput{externalReceptor("E1", "SEP")},
		Case:      caseInput(),
	})
	requireKind(t, err, domain.KindRemoteService)
	assert.Empty(t, f.delivery.Registrations())
}

func TestRequestOpinions_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestOpinions(ctx, optypes.RequestOpinionsInput{Receptors: []optypes.ReceptorInput{internalReceptor("R1")}})
	requireKind(t, err, domain.KindInvalidOperation)

	_, err = f.svc.RequestOpinions(ctx, optypes.RequestOpinionsInput{Folio: "F-1"})
	requireKind(t, err, domain.KindInvalidOperation)

	_, err = f.svc.RequestOpinions(ctx, optypes.RequestOpinionsInput{
		Folio:     "F-1",
		Receptors: []optypes.ReceptorInput{externalReceptor("E1", "SEP")},
	})
	requireKind(t, err, domain.KindInvalidOperation)
}

func TestRequestOpinions_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := optypes.RequestOpinionsInput{
		Folio:          "F-500",
		Receptors:      []optypes.ReceptorInput{internalReceptor("R1")},
		IdempotencyKey: "key-1",
	}

	first, err := f.svc.RequestOpinions(ctx, input)
	require.NoError(t, err)
	again, err := f.svc.RequestOpinions(ctx, input)
	require.NoError(t, err)
	require.Equal(t, first, again)

	input.Detail = "changed"
	_, err = f.svc.RequestOpinions(ctx, input)
	requireKind(t, err, domain.KindConflict)
}

type unsavableKeys struct {
	*opmemory.IdempotencyStore
}

func (unsavableKeys) Save(context.Context, ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	return nil, errors.New("connection reset")
}

func TestRequestOpinions_KeySaveFailureStillReturnsCreatedOpinion(t *testing.T) {
	store := opmemory.NewStore()
	var logs bytes.Buffer
	svc := NewService(store, opmemory.NewLookupCatalog(nil), Remotes{CaseStatus: opmemory.NewCaseStatusService()},
		WithIdempotencyStore(unsavableKeys{opmemory.NewIdempotencyStore()}),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
	)

	id, err := svc.RequestOpinions(context.Background(), optypes.RequestOpinionsInput{
		Folio:          "F-KEY",
		Receptors:      []optypes.ReceptorInput{internalReceptor("R1")},
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	opinion, err := store.Opinions().GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, opinion.Active)
	assert.Contains(t, logs.String(), "failed to save idempotency key")
	assert.Contains(t, logs.String(), "key-1")
}

func TestFinalizeInternal_SoleReceptorClosesOpinionAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-100", internalReceptor("R1"))

	err := f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{
		ReceptorID:  f.receptorID(t, id, "R1"),
		Comments:    "approved",
		FinalizedBy: "jdoe",
		Signature:   &domain.Signature{Sequence: 3, Chain: "||chain||"},
		Attachments: []optypes.AttachmentInput{{Path: "/files/a.pdf", Name: "a.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
	})
	require.NoError(t, err)

	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.False(t, opinion.Active)
	receptor := opinion.Receptors[0]
	require.False(t, receptor.Active)
	require.NotNil(t, receptor.RespondedAt)
	assert.Equal(t, "approved", receptor.Comments)
	assert.Equal(t, "jdoe", receptor.FinalizedBy)
	require.NotNil(t, receptor.SignatureSequence)
	assert.Equal(t, 3, *receptor.SignatureSequence)
	require.Len(t, receptor.Attachments, 1)
	assert.Equal(t, int64(1), receptor.Attachments[0].ElementTypeID)
	assert.Equal(t, int64(10), receptor.Attachments[0].DocumentTypeID)

	require.Equal(t, []string{"F-100"}, f.caseStatus.Notified())
}

func TestFinalizeInternal_OpinionStaysActiveUntilLastReceptor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-600", internalReceptor("R1"), internalReceptor("R2"))

	require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: f.receptorID(t, id, "R1")}))
	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, opinion.Active)
	require.Empty(t, f.caseStatus.Notified())

	require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: f.receptorID(t, id, "R2")}))
	opinion, err = f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.False(t, opinion.Active)
	require.Equal(t, []string{"F-600"}, f.caseStatus.Notified())
	assertParentConsistent(t, f, id)
}

func TestFinalizeInternal_CaseStatusFailureCompensates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-100", internalReceptor("R1"))
	receptorID := f.receptorID(t, id, "R1")
	f.caseStatus.Fail(errors.New("case service down"))

	err := f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{
		ReceptorID:  receptorID,
		Comments:    "approved",
		FinalizedBy: "jdoe",
		Signature:   &domain.Signature{Sequence: 1, Chain: "c"},
		Attachments: []optypes.AttachmentInput{{Path: "/files/a.pdf", Name: "a.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
	})
	requireKind(t, err, domain.KindRemoteService)
	assert.Contains(t, err.Error(), msgCaseStatusFailed)

	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, opinion.Active)
	receptor := opinion.Receptors[0]
	require.True(t, receptor.Active)
	assert.Nil(t, receptor.RespondedAt)
	assert.Nil(t, receptor.SignatureSequence)
	assert.Empty(t, receptor.SignatureChain)
	assert.Empty(t, receptor.Comments)
	assert.Empty(t, receptor.FinalizedBy)
	assert.Empty(t, receptor.Attachments)

	// the receptor can be finalized again once the case service recovers
	f.caseStatus.Fail(nil)
	require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: receptorID}))
}

func TestFinalizeInternal_CompensationFailureIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-101", internalReceptor("R1"))
	f.caseStatus.Fail(errors.New("case service down"))
	// the first receptor update belongs to the finalize itself
	f.store.FailAfter("receptors.update", 1, errors.New("connection reset"))

	err := f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: f.receptorID(t, id, "R1")})
	requireKind(t, err, domain.KindRemoteService)
	assert.Contains(t, err.Error(), msgCompensationAlso)

	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.False(t, opinion.Active)
	require.False(t, opinion.Receptors[0].Active)
}

func TestFinalizeExternal_CaseStatusFailureReopensReceptor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-700", externalReceptor("E1", "SEP"))
	f.caseStatus.Fail(errors.New("case service down"))

	err := f.svc.FinalizeExternal(ctx, optypes.FinalizeExternalInput{EnvioID: "ENV-1", Signature: &domain.Signature{Sequence: 9, Chain: "x"}})
	requireKind(t, err, domain.KindRemoteService)

	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, opinion.Active)
	receptor := opinion.Receptors[0]
	require.True(t, receptor.Active)
	assert.Nil(t, receptor.RespondedAt)
	assert.Nil(t, receptor.SignatureSequence)
	assert.Equal(t, "ENV-1", receptor.EnvioID)
}

func TestFinalize_PathExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-800", internalReceptor("R1"), externalReceptor("E1", "SEP"))
	external := f.receptorID(t, id, "E1")

	err := f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: external, Comments: "nope"})
	requireKind(t, err, domain.KindInvalidOperation)

	internalReceptorID := f.receptorID(t, id, "R1")
	internal, err := f.store.Receptors().GetByID(ctx, internalReceptorID)
	require.NoError(t, err)
	internal.EnvioID = "ENV-INT"
	require.NoError(t, f.store.Receptors().Update(ctx, internal))
	err = f.svc.FinalizeExternal(ctx, optypes.FinalizeExternalInput{EnvioID: "ENV-INT"})
	requireKind(t, err, domain.KindInvalidOperation)

	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	for _, r := range opinion.Receptors {
		assert.True(t, r.Active)
		assert.Nil(t, r.RespondedAt)
		assert.Empty(t, r.Comments)
	}
	require.Empty(t, f.caseStatus.Notified())
}

func TestFinalize_AlreadyFinalizedIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-900", internalReceptor("R1"), externalReceptor("E1", "SEP"))
	internalID := f.receptorID(t, id, "R1")

	require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: internalID, Comments: "first"}))
	err := f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: internalID, Comments: "second"})
	requireKind(t, err, domain.KindConflict)

	receptor, err := f.store.Receptors().GetByID(ctx, internalID)
	require.NoError(t, err)
	assert.Equal(t, "first", receptor.Comments)

	require.NoError(t, f.svc.FinalizeExternal(ctx, optypes.FinalizeExternalInput{EnvioID: "ENV-1"}))
	err = f.svc.FinalizeExternal(ctx, optypes.FinalizeExternalInput{EnvioID: "ENV-1"})
	requireKind(t, err, domain.KindConflict)
	require.Equal(t, []string{"F-900"}, f.caseStatus.Notified())
}

func TestFinalize_UnknownReceptorIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: 42})
	requireKind(t, err, domain.KindNotFound)
	err = f.svc.FinalizeExternal(ctx, optypes.FinalizeExternalInput{EnvioID: "ENV-404"})
	requireKind(t, err, domain.KindNotFound)
	err = f.svc.FinalizeExternal(ctx, optypes.FinalizeExternalInput{})
	requireKind(t, err, domain.KindInvalidOperation)
}

func TestFinalize_StoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-950", internalReceptor("R1"))
	f.store.FailNext("opinions.update", errors.New("disk full"))

	err := f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{
		ReceptorID:  f.receptorID(t, id, "R1"),
		Attachments: []optypes.AttachmentInput{{Path: "/a", Name: "a", ElementType: "Documento", DocumentType: "Oficio"}},
	})
	requireKind(t, err, domain.KindPersistence)

	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, opinion.Active)
	require.True(t, opinion.Receptors[0].Active)
	require.Empty(t, opinion.Receptors[0].Attachments)
	require.Empty(t, f.caseStatus.Notified())
}

func TestFinalize_UnknownLookupIsNotFound(t *testing.T) {
	f := newFixture(t)
	id := f.request(t, "F-960", internalReceptor("R1"))

	err := f.svc.FinalizeInternal(context.Background(), optypes.FinalizeInternalInput{
		ReceptorID:  f.receptorID(t, id, "R1"),
		Attachments: []optypes.AttachmentInput{{Path: "/a", Name: "a", ElementType: "Video", DocumentType: "Oficio"}},
	})
	requireKind(t, err, domain.KindNotFound)
}

func TestCompensation_IsNoOpForActiveReceptor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-970", internalReceptor("R1"))

	require.NoError(t, f.svc.CompensateByReceptorID(ctx, f.receptorID(t, id, "R1")))
	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, opinion.Active)

	err = f.svc.CompensateByEnvioID(ctx, "ENV-missing")
	requireKind(t, err, domain.KindNotFound)
}

func TestFinalizationFailure_JoinsCompensationError(t *testing.T) {
	notifyErr := errors.New("notify")
	compErr := errors.New("compensate")

	err := FinalizationFailure(notifyErr, nil)
	requireKind(t, err, domain.KindRemoteService)
	require.ErrorIs(t, err, notifyErr)

	err = FinalizationFailure(notifyErr, compErr)
	requireKind(t, err, domain.KindRemoteService)
	require.ErrorIs(t, err, notifyErr)
	require.ErrorIs(t, err, compErr)
	assert.Contains(t, err.Error(), msgCompensationAlso)
}

func assertParentConsistent(t *testing.T, f *fixture, opinionID int64) {
	t.Helper()
	opinion, err := f.store.Opinions().GetByID(context.Background(), opinionID)
	require.NoError(t, err)
	anyActive := false
	for _, r := range opinion.Receptors {
		anyActive = anyActive || r.Active
	}
	require.Equal(t, anyActive, opinion.Active)
}
