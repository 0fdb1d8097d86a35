package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

func TestToRequestInput(t *testing.T) {
	area := 7
	input := ToRequestInput(SolicitarOpiniones{
		FolioAsunto:     "F-1",
		Comentarios:     "please review",
		SecuenciaFirma:  2,
		CadenaOriginal:  "||chain||",
		Asunto:          &Asunto{ID: "A-1", Folio: "F-100"},
		AreaResponsable: &area,
		Receptores: []ReceptorSolicitud{
			{Clave: "R1", Nombre: "Legal", EsInterna: true, EsObligatoria: true, Firmante: "ana", EstatusSolicitud: "PENDIENTE DE FIRMA"},
			{Clave: "E1", Nombre: "Authority", EntidadExterna: &Entidad{ID: "9", Tipo: "SECRETARIA"}},
		},
	}, " key-1 ")

	assert.Equal(t, "F-1", input.Folio)
	assert.Equal(t, "key-1", input.IdempotencyKey)
	require.NotNil(t, input.Case)
	assert.Equal(t, optypes.CaseInput{CaseID: "A-1", CaseFolio: "F-100", ResponsibleAreaID: &area}, *input.Case)
	require.Len(t, input.Receptors, 2)
	assert.True(t, input.Receptors[0].Internal)
	assert.Equal(t, "PENDIENTE DE FIRMA", input.Receptors[0].RequestStatus)
	assert.Nil(t, input.Receptors[0].Entity)
	assert.Equal(t, &domain.ExternalEntity{ID: "9", Type: "SECRETARIA"}, input.Receptors[1].Entity)
}

func TestToFinalizeInternalInput_SignatureNeedsBothParts(t *testing.T) {
	seq := 3
	chain := "||c||"
	in := ToFinalizeInternalInput(FinalizarOpinion{IDOpinionReceptor: 4, SecuenciaFirma: &seq})
	assert.Nil(t, in.Signature)

	in = ToFinalizeInternalInput(FinalizarOpinion{IDOpinionReceptor: 4, SecuenciaFirma: &seq, CadenaOriginal: &chain})
	require.NotNil(t, in.Signature)
	assert.Equal(t, domain.Signature{Sequence: 3, Chain: "||c||"}, *in.Signature)
}

func TestAppendOnlyInputs_DropIDAndDeletedFlag(t *testing.T) {
	files := []Archivo{{ID: 8, Ruta: "/a", Nombre: "a", TipoElemento: "Documento", TipoDocumento: "Oficio", Eliminado: true}}

	add := ToAddAttachmentsInput(ArchivosRequest{ID: 3, Archivos: files})
	require.Len(t, add.Attachments, 1)
	assert.Zero(t, add.Attachments[0].ID)
	assert.False(t, add.Attachments[0].Deleted)
	assert.Equal(t, "/a", add.Attachments[0].Path)

	fin := ToFinalizeInternalInput(FinalizarOpinion{IDOpinionReceptor: 4, Archivos: files})
	require.Len(t, fin.Attachments, 1)
	assert.Zero(t, fin.Attachments[0].ID)
	assert.False(t, fin.Attachments[0].Deleted)

	assert.True(t, files[0].Eliminado)
}

func TestToUpdateOpinionInput(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in := ToUpdateOpinionInput(ActualizarOpinion{
		ID:          5,
		Comentarios: "edited",
		Archivos:    []Archivo{{ID: 8, Ruta: "/a", Nombre: "a", TipoElemento: "Documento", TipoDocumento: "Oficio", Eliminado: true, FechaCreacion: &created}},
		Receptor:    []ActualizarReceptor{{ID: 9, Firmante: "luis", EstatusSolicitud: "FIRMADA"}},
	})
	assert.Equal(t, int64(5), in.OpinionID)
	require.Len(t, in.Attachments, 1)
	assert.True(t, in.Attachments[0].Deleted)
	assert.Equal(t, &created, in.Attachments[0].CreatedAt)
	require.Len(t, in.Receptors, 1)
	assert.Equal(t, "FIRMADA", in.Receptors[0].RequestStatus)
	assert.Nil(t, in.Receptors[0].Attachments)
}

func TestFromOpinionSummaries_EmptyListsEncodeAsArrays(t *testing.T) {
	out := FromOpinionSummaries([]optypes.OpinionSummary{{ID: 1, Folio: "F-1", Active: true, Version: 2}})
	require.Len(t, out, 1)
	assert.NotNil(t, out[0].Receptores)
	assert.True(t, out[0].EnProceso)

	detail := FromOpinionDetail(&optypes.OpinionDetail{ID: 1, Receptor: &optypes.ReceptorDetail{ID: 2, EnvioID: "ENV-1"}})
	require.NotNil(t, detail.Receptor)
	assert.NotNil(t, detail.Archivos)
	assert.Equal(t, "ENV-1", *detail.Receptor.IDEnvio)
	assert.Nil(t, FromOpinionDetail(nil))
}
