package mapper

import (
	"time"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
)

// ArchivoRespuesta is an attachment with its catalogue names.
type ArchivoRespuesta struct {
	ID            int64     `json:"id"`
	Ruta          string    `json:"ruta"`
	FechaCreacion time.Time `json:"fechaCreacion"`
	Nombre        string    `json:"nombre"`
	TipoElemento  string    `json:"tipoElemento"`
	TipoDocumento string    `json:"tipoDocumento"`
}

// ReceptorResumen is the receptor row of a folio listing.
type ReceptorResumen struct {
	ID                 int64      `json:"id"`
	Clave              string     `json:"clave"`
	Nombre             string     `json:"nombre"`
	EsInterna          bool       `json:"esInterna"`
	FechaRespuesta     *time.Time `json:"fechaRespuesta"`
	Obligatoria        bool       `json:"obligatoria"`
	EnProceso          bool       `json:"enProceso"`
	IDEnvio            *string    `json:"idEnvio"`
	Firmante           string     `json:"firmante"`
	EstatusSolicitud   string     `json:"estatusSolicitud"`
	ComentarioFirmante string     `json:"comentarioFirmante"`
}

// OpinionResumen is one opinion of a folio listing.
type OpinionResumen struct {
	Identificador  int64             `json:"identificador"`
	FolioAsunto    string            `json:"folioAsunto"`
	FechaSolicitud time.Time         `json:"fechaSolicitud"`
	Comentarios    string            `json:"comentarios"`
	EnProceso      bool              `json:"enProceso"`
	Version        int               `json:"version"`
	Receptores     []ReceptorResumen `json:"receptores"`
}

// ReceptorDetalle is the full state of one receptor.
type ReceptorDetalle struct {
	ID                 int64              `json:"id"`
	Clave              string             `json:"clave"`
	Nombre             string             `json:"nombre"`
	EsInterna          bool               `json:"esInterna"`
	Obligatoria        bool               `json:"obligatoria"`
	EnProceso          bool               `json:"enProceso"`
	Comentarios        string             `json:"comentarios"`
	FinalizadaPor      string             `json:"finalizadaPor"`
	FechaRespuesta     *time.Time         `json:"fechaRespuesta"`
	SecuenciaFirma     *int               `json:"secuenciaFirma"`
	CadenaOriginal     string             `json:"cadenaOriginal"`
	IDEnvio            *string            `json:"idEnvio"`
	Firmante           string             `json:"firmante"`
	EstatusSolicitud   string             `json:"estatusSolicitud"`
	ComentarioFirmante string             `json:"comentarioFirmante"`
	Archivos           []ArchivoRespuesta `json:"archivos"`
}

// OpinionDetalle combines the opinion with one of its receptors.
type OpinionDetalle struct {
	ID             int64              `json:"id"`
	FolioAsunto    string             `json:"folioAsunto"`
	FechaSolicitud time.Time          `json:"fechaSolicitud"`
	Comentarios    string             `json:"comentarios"`
	EnProceso      bool               `json:"enProceso"`
	Version        int                `json:"version"`
	SecuenciaFirma int                `json:"secuenciaFirma"`
	CadenaOriginal string             `json:"cadenaOriginal"`
	Archivos       []ArchivoRespuesta `json:"archivos"`
	Receptor       *ReceptorDetalle   `json:"receptor"`
}

// OpinionExternaDetalle is what an external authority sees for its delivery.
type OpinionExternaDetalle struct {
	IDOpinion   int64              `json:"idOpinion"`
	FolioAsunto string             `json:"folioAsunto"`
	Detalle     string             `json:"detalle"`
	Archivos    []ArchivoRespuesta `json:"archivos"`
}

// FromAttachmentViews always returns a non-nil slice so lists encode as [].
func FromAttachmentViews(views []optypes.AttachmentView) []ArchivoRespuesta {
	out := make([]ArchivoRespuesta, 0, len(views))
	for _, v := range views {
		out = append(out, ArchivoRespuesta{
			ID:            v.ID,
			Ruta:          v.Path,
			FechaCreacion: v.CreatedAt,
			Nombre:        v.Name,
			TipoElemento:  v.ElementType,
			TipoDocumento: v.DocumentType,
		})
	}
	return out
}

func FromOpinionSummaries(list []optypes.OpinionSummary) []OpinionResumen {
	out := make([]OpinionResumen, 0, len(list))
	for _, o := range list {
		receptors := make([]ReceptorResumen, 0, len(o.Receptors))
		for _, r := range o.Receptors {
			receptors = append(receptors, ReceptorResumen{
				ID:                 r.ID,
				Clave:              r.Code,
				Nombre:             r.Name,
				EsInterna:          r.Internal,
				FechaRespuesta:     r.RespondedAt,
				Obligatoria:        r.Mandatory,
				EnProceso:          r.InProcess,
				IDEnvio:            optionalString(r.EnvioID),
				Firmante:           r.Signer,
				EstatusSolicitud:   r.RequestStatus,
				ComentarioFirmante: r.SignerComment,
			})
		}
		out = append(out, OpinionResumen{
			Identificador:  o.ID,
			FolioAsunto:    o.Folio,
			FechaSolicitud: o.RequestedAt,
			Comentarios:    o.Detail,
			EnProceso:      o.Active,
			Version:        o.Version,
			Receptores:     receptors,
		})
	}
	return out
}

func FromOpinionDetail(d *optypes.OpinionDetail) *OpinionDetalle {
	if d == nil {
		return nil
	}
	out := &OpinionDetalle{
		ID:             d.ID,
		FolioAsunto:    d.Folio,
		FechaSolicitud: d.RequestedAt,
		Comentarios:    d.Detail,
		EnProceso:      d.Active,
		Version:        d.Version,
		SecuenciaFirma: d.SignatureSequence,
		CadenaOriginal: d.SignatureChain,
		Archivos:       FromAttachmentViews(d.Attachments),
	}
	if r := d.Receptor; r != nil {
		out.Receptor = &ReceptorDetalle{
			ID:                 r.ID,
			Clave:              r.Code,
			Nombre:             r.Name,
			EsInterna:          r.Internal,
			Obligatoria:        r.Mandatory,
			EnProceso:          r.Active,
			Comentarios:        r.Comments,
			FinalizadaPor:      r.FinalizedBy,
			FechaRespuesta:     r.RespondedAt,
			SecuenciaFirma:     r.SignatureSequence,
			CadenaOriginal:     r.SignatureChain,
			IDEnvio:            optionalString(r.EnvioID),
			Firmante:           r.Signer,
			EstatusSolicitud:   r.RequestStatus,
			ComentarioFirmante: r.SignerComment,
			Archivos:           FromAttachmentViews(r.Attachments),
		}
	}
	return out
}

func FromExternalOpinion(e *optypes.ExternalOpinion) *OpinionExternaDetalle {
	if e == nil {
		return nil
	}
	return &OpinionExternaDetalle{
		IDOpinion:   e.OpinionID,
		FolioAsunto: e.Folio,
		Detalle:     e.Detail,
		Archivos:    FromAttachmentViews(e.Attachments),
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
