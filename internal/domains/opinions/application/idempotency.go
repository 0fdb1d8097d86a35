package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
)

type normalizedRequest struct {
	Folio             string               `json:"folio"`
	Detail            string               `json:"detail"`
	SignatureSequence int                  `json:"signatureSequence"`
	SignatureChain    string               `json:"signatureChain"`
	Receptors         []normalizedReceptor `json:"receptors"`
	Case              *normalizedCase      `json:"case,omitempty"`
}

type normalizedReceptor struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Internal      bool   `json:"internal"`
	Mandatory     bool   `json:"mandatory"`
	Signer        string `json:"signer,omitempty"`
	RequestStatus string `json:"requestStatus,omitempty"`
	EntityID      string `json:"entityId,omitempty"`
	EntityType    string `json:"entityType,omitempty"`
}

type normalizedCase struct {
	CaseID            string `json:"caseId"`
	CaseFolio         string `json:"caseFolio"`
	ResponsibleAreaID *int   `json:"responsibleAreaId,omitempty"`
}

// FingerprintRequest hashes the creation payload, excluding the idempotency key.
// Receptor order is part of the request and is kept as sent.
func FingerprintRequest(input optypes.RequestOpinionsInput) (string, error) {
	payload, err := json.Marshal(normalizeRequest(input))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeRequest(input optypes.RequestOpinionsInput) normalizedRequest {
	n := normalizedRequest{
		Folio:             strings.TrimSpace(input.Folio),
		Detail:            input.Detail,
		SignatureSequence: input.SignatureSequence,
		SignatureChain:    input.SignatureChain,
		Receptors:         make([]normalizedReceptor, 0, len(input.Receptors)),
	}
	for _, r := range input.Receptors {
		nr := normalizedReceptor{
			Code:          strings.TrimSpace(r.Code),
			Name:          r.Name,
			Internal:      r.Internal,
			Mandatory:     r.Mandatory,
			Signer:        r.Signer,
			RequestStatus: r.RequestStatus,
		}
		if r.Entity != nil {
			nr.EntityID = r.Entity.ID
			nr.EntityType = r.Entity.Type
		}
		n.Receptors = append(n.Receptors, nr)
	}
	if input.Case != nil {
		n.Case = &normalizedCase{
			CaseID:            input.Case.CaseID,
			CaseFolio:         input.Case.CaseFolio,
			ResponsibleAreaID: input.Case.ResponsibleAreaID,
		}
	}
	return n
}
