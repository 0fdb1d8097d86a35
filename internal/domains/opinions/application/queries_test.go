package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

func TestListByFolio_OrdersReceptorsByResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-10", internalReceptor("R1"), internalReceptor("R2"), internalReceptor("R3"))

	require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: f.receptorID(t, id, "R2")}))
	require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{ReceptorID: f.receptorID(t, id, "R1")}))

	list, err := f.svc.ListByFolio(ctx, "F-10")
	require.NoError(t, err)
	require.Len(t, list, 1)
	receptors := list[0].Receptors
	require.Len(t, receptors, 3)
	assert.Equal(t, "R1", receptors[0].Code)
	assert.Equal(t, "R2", receptors[1].Code)
	assert.Equal(t, "R3", receptors[2].Code)
	assert.True(t, receptors[2].InProcess)
	assert.Nil(t, receptors[2].RespondedAt)

	_, err = f.svc.ListByFolio(ctx, "F-unknown")
	requireKind(t, err, domain.KindNotFound)
}

func TestGetReceptorDetail_ResolvesAttachmentTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-20", internalReceptor("R1"), internalReceptor("R2"))
	receptorID := f.receptorID(t, id, "R1")

	require.NoError(t, f.svc.AddAttachments(ctx, optypes.AddAttachmentsInput{
		OpinionID: id,
		Attachments: []optypes.AttachmentInput{
			{Path: "/o/1.pdf", Name: "1.pdf", ElementType: "documento", DocumentType: "Oficio"},
			{Path: "/o/2.png", Name: "2.png", ElementType: "Imagen", DocumentType: "Anexo"},
		},
	}))
	require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{
		ReceptorID:  receptorID,
		Comments:    "looks fine",
		FinalizedBy: "reviewer",
		Attachments: []optypes.AttachmentInput{{Path: "/r/1.pdf", Name: "r1.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
	}))

	detail, err := f.svc.GetReceptorDetail(ctx, receptorID)
	require.NoError(t, err)
	assert.Equal(t, id, detail.ID)
	assert.Equal(t, "F-20", detail.Folio)
	assert.True(t, detail.Active)
	require.Len(t, detail.Attachments, 2)
	assert.Equal(t, "2.png", detail.Attachments[0].Name)
	assert.Equal(t, "Imagen", detail.Attachments[0].ElementType)
	assert.Equal(t, "Anexo", detail.Attachments[0].DocumentType)

	require.NotNil(t, detail.Receptor)
	assert.Equal(t, "looks fine", detail.Receptor.Comments)
	assert.False(t, detail.Receptor.Active)
	require.Len(t, detail.Receptor.Attachments, 1)
	assert.Equal(t, "Oficio", detail.Receptor.Attachments[0].DocumentType)

	_, err = f.svc.GetReceptorDetail(ctx, 999)
	requireKind(t, err, domain.KindNotFound)
}

func TestGetExternalOpinion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-30", externalReceptor("E1", "SEP"))
	require.NoError(t, f.svc.AddAttachments(ctx, optypes.AddAttachmentsInput{
		OpinionID:   id,
		Attachments: []optypes.AttachmentInput{{Path: "/o/1.pdf", Name: "1.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
	}))

	ext, err := f.svc.GetExternalOpinion(ctx, "ENV-1")
	require.NoError(t, err)
	assert.Equal(t, id, ext.OpinionID)
	assert.Equal(t, "please review", ext.Detail)
	require.Len(t, ext.Attachments, 1)
	assert.Equal(t, "Documento", ext.Attachments[0].ElementType)

	_, err = f.svc.GetExternalOpinion(ctx, "ENV-2")
	requireKind(t, err, domain.KindNotFound)
}

func TestAddAttachments_UnknownOpinion(t *testing.T) {
	f := newFixture(t)
	err := f.svc.AddAttachments(context.Background(), optypes.AddAttachmentsInput{
		OpinionID:   7,
		Attachments: []optypes.AttachmentInput{{Path: "/a", Name: "a", ElementType: "Documento", DocumentType: "Oficio"}},
	})
	requireKind(t, err, domain.KindNotFound)
}

func TestPendingSignatureFolios(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := internalReceptor("R1")
	pending.RequestStatus = domain.StatusPendingSignature
	other := internalReceptor("R2")
	other.RequestStatus = domain.StatusPendingSignature

	f.request(t, "F-40", pending, other)
	f.request(t, "F-41", internalReceptor("R1"))
	f.request(t, "F-42", pending)

	folios, err := f.svc.PendingSignatureFolios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"F-40", "F-42"}, folios)
}

func TestAddAttachments_StoresLiveNewRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-40", internalReceptor("R1"))

	require.NoError(t, f.svc.AddAttachments(ctx, optypes.AddAttachmentsInput{
		OpinionID:   id,
		Attachments: []optypes.AttachmentInput{{ID: 777, Path: "/o/z.pdf", Name: "z.pdf", ElementType: "Documento", DocumentType: "Oficio", Deleted: true}},
	}))
	require.NoError(t, f.svc.FinalizeInternal(ctx, optypes.FinalizeInternalInput{
		ReceptorID:  f.receptorID(t, id, "R1"),
		Comments:    "ok",
		FinalizedBy: "reviewer",
		Attachments: []optypes.AttachmentInput{{ID: 778, Path: "/r/z.pdf", Name: "rz.pdf", ElementType: "Documento", DocumentType: "Oficio", Deleted: true}},
	}))

	opinion, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, opinion.Attachments, 1)
	assert.Equal(t, "z.pdf", opinion.Attachments[0].Name)
	assert.NotEqual(t, int64(777), opinion.Attachments[0].ID)
	require.Len(t, opinion.Receptors[0].Attachments, 1)
	assert.NotEqual(t, int64(778), opinion.Receptors[0].Attachments[0].ID)
}

func TestUpdateOpinion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.request(t, "F-50", internalReceptor("R1"))
	receptorID := f.receptorID(t, id, "R1")

	require.NoError(t, f.svc.AddAttachments(ctx, optypes.AddAttachmentsInput{
		OpinionID:   id,
		Attachments: []optypes.AttachmentInput{{Path: "/o/old.pdf", Name: "old.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
	}))
	before, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	oldID := before.Attachments[0].ID

	result, err := f.svc.UpdateOpinion(ctx, optypes.UpdateOpinionInput{
		OpinionID:         id,
		Detail:            "revised",
		SignatureSequence: 4,
		SignatureChain:    "||sig||",
		Attachments: []optypes.AttachmentInput{
			{ID: oldID, Path: "/o/old.pdf", Name: "old.pdf", ElementType: "Documento", DocumentType: "Oficio", Deleted: true},
			{Path: "/o/new.pdf", Name: "new.pdf", ElementType: "Documento", DocumentType: "Anexo"},
		},
		Receptors: []optypes.ReceptorUpdateInput{{
			ID:            receptorID,
			Signer:        "Director",
			RequestStatus: domain.StatusPendingSignature,
			SignerComment: "to sign",
			Attachments:   []optypes.AttachmentInput{{Path: "/r/x.pdf", Name: "x.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
		}},
	})
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, msgOpinionUpdated, result.Message)

	after, err := f.store.Opinions().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "revised", after.Detail)
	assert.Equal(t, 4, after.SignatureSequence)
	require.Len(t, after.Attachments, 1)
	assert.Equal(t, "new.pdf", after.Attachments[0].Name)
	receptor := after.Receptors[0]
	assert.Equal(t, "Director", receptor.Signer)
	assert.True(t, receptor.PendingSignature())
	require.Len(t, receptor.Attachments, 1)

	folios, err := f.svc.PendingSignatureFolios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"F-50"}, folios)
}

func TestUpdateOpinion_ForeignAttachmentIdIsInsertedAsNewRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.request(t, "F-70", internalReceptor("R1"))
	other := f.request(t, "F-71", internalReceptor("R1"))

	require.NoError(t, f.svc.AddAttachments(ctx, optypes.AddAttachmentsInput{
		OpinionID:   owner,
		Attachments: []optypes.AttachmentInput{{Path: "/o/a.pdf", Name: "a.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
	}))
	before, err := f.store.Opinions().GetByID(ctx, owner)
	require.NoError(t, err)
	require.Len(t, before.Attachments, 1)
	foreignID := before.Attachments[0].ID

	result, err := f.svc.UpdateOpinion(ctx, optypes.UpdateOpinionInput{
		OpinionID: other,
		Detail:    "revised",
		Attachments: []optypes.AttachmentInput{
			{ID: foreignID, Path: "/o/b.pdf", Name: "b.pdf", ElementType: "Documento", DocumentType: "Anexo"},
			{ID: 9999, Path: "/o/c.pdf", Name: "c.pdf", ElementType: "Documento", DocumentType: "Anexo"},
		},
		Receptors: []optypes.ReceptorUpdateInput{{
			ID:          f.receptorID(t, other, "R1"),
			Attachments: []optypes.AttachmentInput{{ID: foreignID, Path: "/r/d.pdf", Name: "d.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
		}},
	})
	require.NoError(t, err)
	assert.True(t, result.Found)

	ownerAfter, err := f.store.Opinions().GetByID(ctx, owner)
	require.NoError(t, err)
	require.Len(t, ownerAfter.Attachments, 1)
	assert.Equal(t, foreignID, ownerAfter.Attachments[0].ID)
	assert.Equal(t, "a.pdf", ownerAfter.Attachments[0].Name)

	otherAfter, err := f.store.Opinions().GetByID(ctx, other)
	require.NoError(t, err)
	require.Len(t, otherAfter.Attachments, 2)
	for _, a := range otherAfter.Attachments {
		assert.NotEqual(t, foreignID, a.ID)
		assert.NotEqual(t, int64(9999), a.ID)
	}
	require.Len(t, otherAfter.Receptors[0].Attachments, 1)
	assert.NotEqual(t, foreignID, otherAfter.Receptors[0].Attachments[0].ID)

	// Ids keep growing from the sequence, not from the rejected explicit id.
	require.NoError(t, f.svc.AddAttachments(ctx, optypes.AddAttachmentsInput{
		OpinionID:   owner,
		Attachments: []optypes.AttachmentInput{{Path: "/o/e.pdf", Name: "e.pdf", ElementType: "Documento", DocumentType: "Oficio"}},
	}))
	ownerAfter, err = f.store.Opinions().GetByID(ctx, owner)
	require.NoError(t, err)
	require.Len(t, ownerAfter.Attachments, 2)
	for _, a := range ownerAfter.Attachments {
		assert.Less(t, a.ID, int64(9999))
	}
}

func TestUpdateOpinion_UnknownOpinionIsSoft(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.UpdateOpinion(context.Background(), optypes.UpdateOpinionInput{OpinionID: 404})
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, msgOpinionNotFound, result.Message)
}

func TestUpdateOpinion_ForeignReceptorRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.request(t, "F-60", internalReceptor("R1"))
	second := f.request(t, "F-61", internalReceptor("R1"))

	result, err := f.svc.UpdateOpinion(ctx, optypes.UpdateOpinionInput{
		OpinionID: first,
		Detail:    "revised",
		Receptors: []optypes.ReceptorUpdateInput{{ID: f.receptorID(t, second, "R1"), Signer: "x"}},
	})
	requireKind(t, err, domain.KindInvalidOperation)
	assert.Contains(t, result.Message, msgOpinionUpdateFail)

	opinion, err := f.store.Opinions().GetByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "please review", opinion.Detail)
}
