package opinionsserver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	opinionhttpmapper "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/http/mapper"
	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	opinionsports "github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

const (
	idempotencyHeader = "Idempotency-Key"

	msgAttachmentsStored = "the files were stored successfully"
	msgOpinionFinalized  = "the opinion was finalized successfully"
	msgExternalFinalized = "the external opinion was finalized successfully"
)

// OpinionAPI wires HTTP transport with the opinions service and the finalize workflows.
type OpinionAPI struct {
	service   opinionsports.Service
	workflows opinionsports.WorkflowOrchestrator
	logger    *slog.Logger
}

// NewOpinionAPI creates an OpinionAPI. A nil workflows runs finalizes on the service directly.
func NewOpinionAPI(service opinionsports.Service, workflows opinionsports.WorkflowOrchestrator, logger *slog.Logger) *OpinionAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpinionAPI{service: service, workflows: workflows, logger: logger}
}

// Post /api/opiniones/solicitaropiniones
func (api *OpinionAPI) RequestOpinions(c *gin.Context) {
	var payload opinionhttpmapper.SolicitarOpiniones
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	input := opinionhttpmapper.ToRequestInput(payload, c.GetHeader(idempotencyHeader))
	id, err := api.service.RequestOpinions(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Get /api/opiniones/obteneropiniones?folio=
func (api *OpinionAPI) ListByFolio(c *gin.Context) {
	folio := strings.TrimSpace(c.Query("folio"))
	if folio == "" {
		responder.BadRequest(c, "folio is required")
		return
	}
	list, err := api.service.ListByFolio(c.Request.Context(), folio)
	if err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opiniones": opinionhttpmapper.FromOpinionSummaries(list)})
}

// Get /api/opiniones/obtenerdetalleopinion?idOpinionReceptor=
func (api *OpinionAPI) GetReceptorDetail(c *gin.Context) {
	id, ok := parseIDQuery(c, "idOpinionReceptor")
	if !ok {
		return
	}
	detail, err := api.service.GetReceptorDetail(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opinion": opinionhttpmapper.FromOpinionDetail(detail)})
}

// Patch /api/opiniones/agregarArchivos
func (api *OpinionAPI) AddAttachments(c *gin.Context) {
	var payload opinionhttpmapper.ArchivosRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	if err := api.service.AddAttachments(c.Request.Context(), opinionhttpmapper.ToAddAttachmentsInput(payload)); err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": msgAttachmentsStored})
}

// Patch /api/opiniones/finalizaropinion
func (api *OpinionAPI) FinalizeInternal(c *gin.Context) {
	var payload opinionhttpmapper.FinalizarOpinion
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	if err := api.finalizeInternal(c.Request.Context(), opinionhttpmapper.ToFinalizeInternalInput(payload)); err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": msgOpinionFinalized})
}

func (api *OpinionAPI) finalizeInternal(ctx context.Context, input optypes.FinalizeInternalInput) error {
	if api.workflows != nil {
		return api.workflows.FinalizeInternal(ctx, input)
	}
	return api.service.FinalizeInternal(ctx, input)
}

// Patch /api/opiniones/finalizaropinionexterna
func (api *OpinionAPI) FinalizeExternal(c *gin.Context) {
	var payload opinionhttpmapper.OpinionExterna
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	if err := api.finalizeExternal(c.Request.Context(), opinionhttpmapper.ToFinalizeExternalInput(payload)); err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": msgExternalFinalized})
}

func (api *OpinionAPI) finalizeExternal(ctx context.Context, input optypes.FinalizeExternalInput) error {
	if api.workflows != nil {
		return api.workflows.FinalizeExternal(ctx, input)
	}
	return api.service.FinalizeExternal(ctx, input)
}

// Get /api/opiniones/consultaropinionexterna?idEnvio=
func (api *OpinionAPI) GetExternalOpinion(c *gin.Context) {
	envioID := strings.TrimSpace(c.Query("idEnvio"))
	if envioID == "" {
		responder.BadRequest(c, "idEnvio is required")
		return
	}
	opinion, err := api.service.GetExternalOpinion(c.Request.Context(), envioID)
	if err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, opinionhttpmapper.FromExternalOpinion(opinion))
}

// Put /api/opiniones/actualizaropinion
// A missing opinion is reported in the message with a 200, like a successful update.
func (api *OpinionAPI) UpdateOpinion(c *gin.Context) {
	var payload opinionhttpmapper.ActualizarOpinion
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	result, err := api.service.UpdateOpinion(c.Request.Context(), opinionhttpmapper.ToUpdateOpinionInput(payload))
	if err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": result.Message})
}

// Get /api/opiniones/pendientesfirma
func (api *OpinionAPI) PendingSignatureFolios(c *gin.Context) {
	folios, err := api.service.PendingSignatureFolios(c.Request.Context())
	if err != nil {
		respondServiceError(c, api.logger, err)
		return
	}
	if folios == nil {
		folios = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"folios": folios})
}

func parseIDQuery(c *gin.Context, name string) (int64, bool) {
	value := strings.TrimSpace(c.Query(name))
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		responder.BadRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
