package mapper

import (
	"strings"
	"time"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

// Entidad addresses the external authority of a receptor.
type Entidad struct {
	ID   string `json:"id" binding:"required"`
	Tipo string `json:"tipo" binding:"required"`
}

// Asunto is the case an opinion request belongs to.
type Asunto struct {
	ID    string `json:"id"`
	Folio string `json:"folio"`
}

// ReceptorSolicitud is one receptor of an opinion request.
type ReceptorSolicitud struct {
	Clave            string   `json:"clave" binding:"required"`
	Nombre           string   `json:"nombre" binding:"required"`
	EsInterna        bool     `json:"esInterna"`
	EsObligatoria    bool     `json:"esObligatoria"`
	Firmante         string   `json:"firmante"`
	EstatusSolicitud string   `json:"estatusSolicitud"`
	EntidadExterna   *Entidad `json:"entidadExterna,omitempty"`
}

// SolicitarOpiniones is the payload of an opinion request.
type SolicitarOpiniones struct {
	FolioAsunto     string              `json:"folioAsunto" binding:"required"`
	Comentarios     string              `json:"comentarios"`
	SecuenciaFirma  int                 `json:"secuenciaFirma"`
	CadenaOriginal  string              `json:"cadenaOriginal"`
	Receptores      []ReceptorSolicitud `json:"receptores" binding:"required,min=1,dive"`
	Asunto          *Asunto             `json:"asunto,omitempty"`
	AreaResponsable *int                `json:"areaResponsable,omitempty"`
}

// Archivo references a stored file by catalogue names.
type Archivo struct {
	ID            int64      `json:"id,omitempty"`
	Ruta          string     `json:"ruta" binding:"required"`
	Nombre        string     `json:"nombre" binding:"required"`
	FechaCreacion *time.Time `json:"fechaCreacion,omitempty"`
	TipoElemento  string     `json:"tipoElemento" binding:"required"`
	TipoDocumento string     `json:"tipoDocumento" binding:"required"`
	Eliminado     bool       `json:"eliminado,omitempty"`
}

// ArchivosRequest appends files to an opinion.
type ArchivosRequest struct {
	ID       int64     `json:"id" binding:"required,gt=0"`
	Archivos []Archivo `json:"archivos" binding:"dive"`
}

// FinalizarOpinion is the response of an internal receptor.
type FinalizarOpinion struct {
	IDOpinionReceptor int64     `json:"idOpinionReceptor" binding:"required,gt=0"`
	FinalizadaPor     string    `json:"finalizadaPor"`
	Comentarios       string    `json:"comentarios"`
	Archivos          []Archivo `json:"archivos" binding:"dive"`
	SecuenciaFirma    *int      `json:"secuenciaFirma,omitempty"`
	CadenaOriginal    *string   `json:"cadenaOriginal,omitempty"`
}

// FirmaElectronica is the electronic signature of an external answer.
type FirmaElectronica struct {
	Secuencia      int    `json:"secuencia"`
	CadenaOriginal string `json:"cadenaOriginal"`
}

// OpinionExterna is the response of an external authority.
type OpinionExterna struct {
	IDEnvio          string            `json:"idEnvio" binding:"required"`
	FirmaElectronica *FirmaElectronica `json:"firmaElectronica,omitempty"`
}

// ActualizarReceptor edits the signer data of one receptor.
type ActualizarReceptor struct {
	ID                 int64     `json:"id" binding:"required,gt=0"`
	Firmante           string    `json:"firmante"`
	EstatusSolicitud   string    `json:"estatusSolicitud"`
	ComentarioFirmante string    `json:"comentarioFirmante"`
	Archivos           []Archivo `json:"archivos" binding:"dive"`
}

// ActualizarOpinion is the bulk maintenance edit of an opinion.
type ActualizarOpinion struct {
	ID             int64                `json:"id" binding:"required,gt=0"`
	Comentarios    string               `json:"comentarios"`
	SecuenciaFirma int                  `json:"secuenciaFirma"`
	CadenaOriginal string               `json:"cadenaOriginal"`
	Archivos       []Archivo            `json:"archivos" binding:"dive"`
	Receptor       []ActualizarReceptor `json:"receptor" binding:"dive"`
}

// ToRequestInput maps a request payload to the application input.
func ToRequestInput(in SolicitarOpiniones, idempotencyKey string) optypes.RequestOpinionsInput {
	out := optypes.RequestOpinionsInput{
		Folio:             in.FolioAsunto,
		Detail:            in.Comentarios,
		SignatureSequence: in.SecuenciaFirma,
		SignatureChain:    in.CadenaOriginal,
		IdempotencyKey:    strings.TrimSpace(idempotencyKey),
	}
	if in.Asunto != nil || in.AreaResponsable != nil {
		meta := &optypes.CaseInput{ResponsibleAreaID: in.AreaResponsable}
		if in.Asunto != nil {
			meta.CaseID = in.Asunto.ID
			meta.CaseFolio = in.Asunto.Folio
		}
		out.Case = meta
	}
	for _, r := range in.Receptores {
		receptor := optypes.ReceptorInput{
			Code:          r.Clave,
			Name:          r.Nombre,
			Internal:      r.EsInterna,
			Mandatory:     r.EsObligatoria,
			Signer:        r.Firmante,
			RequestStatus: r.EstatusSolicitud,
		}
		if r.EntidadExterna != nil {
			receptor.Entity = &domain.ExternalEntity{ID: r.EntidadExterna.ID, Type: r.EntidadExterna.Tipo}
		}
		out.Receptors = append(out.Receptors, receptor)
	}
	return out
}

// ToAttachmentInputs maps transport files to attachment inputs.
func ToAttachmentInputs(files []Archivo) []optypes.AttachmentInput {
	if len(files) == 0 {
		return nil
	}
	out := make([]optypes.AttachmentInput, 0, len(files))
	for _, f := range files {
		out = append(out, optypes.AttachmentInput{
			ID:           f.ID,
			Path:         f.Ruta,
			Name:         f.Nombre,
			CreatedAt:    f.FechaCreacion,
			ElementType:  f.TipoElemento,
			DocumentType: f.TipoDocumento,
			Deleted:      f.Eliminado,
		})
	}
	return out
}

// toNewAttachmentInputs maps files for append-only endpoints, dropping the id and deleted flag.
func toNewAttachmentInputs(files []Archivo) []optypes.AttachmentInput {
	out := ToAttachmentInputs(files)
	for i := range out {
		out[i].ID = 0
		out[i].Deleted = false
	}
	return out
}

func ToAddAttachmentsInput(in ArchivosRequest) optypes.AddAttachmentsInput {
	return optypes.AddAttachmentsInput{OpinionID: in.ID, Attachments: toNewAttachmentInputs(in.Archivos)}
}

// ToFinalizeInternalInput keeps the signature only when both parts are present.
func ToFinalizeInternalInput(in FinalizarOpinion) optypes.FinalizeInternalInput {
	out := optypes.FinalizeInternalInput{
		ReceptorID:  in.IDOpinionReceptor,
		Comments:    in.Comentarios,
		FinalizedBy: in.FinalizadaPor,
		Attachments: toNewAttachmentInputs(in.Archivos),
	}
	if in.SecuenciaFirma != nil && in.CadenaOriginal != nil {
		out.Signature = &domain.Signature{Sequence: *in.SecuenciaFirma, Chain: *in.CadenaOriginal}
	}
	return out
}

func ToFinalizeExternalInput(in OpinionExterna) optypes.FinalizeExternalInput {
	out := optypes.FinalizeExternalInput{EnvioID: strings.TrimSpace(in.IDEnvio)}
	if in.FirmaElectronica != nil {
		out.Signature = &domain.Signature{Sequence: in.FirmaElectronica.Secuencia, Chain: in.FirmaElectronica.CadenaOriginal}
	}
	return out
}

func ToUpdateOpinionInput(in ActualizarOpinion) optypes.UpdateOpinionInput {
	out := optypes.UpdateOpinionInput{
		OpinionID:         in.ID,
		Detail:            in.Comentarios,
		SignatureSequence: in.SecuenciaFirma,
		SignatureChain:    in.CadenaOriginal,
		Attachments:       ToAttachmentInputs(in.Archivos),
	}
	for _, r := range in.Receptor {
		out.Receptors = append(out.Receptors, optypes.ReceptorUpdateInput{
			ID:            r.ID,
			Signer:        r.Firmante,
			RequestStatus: r.EstatusSolicitud,
			SignerComment: r.ComentarioFirmante,
			Attachments:   ToAttachmentInputs(r.Archivos),
		})
	}
	return out
}
