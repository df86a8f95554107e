package lifecycle

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Source documento origen con sus líneas.
type Source struct {
	Doc   *entity.Document
	Lines []*entity.DocumentLine
}

// Draft borrador derivado listo para persistir. El número lo asigna quien lo persiste.
type Draft struct {
	Doc     *entity.Document
	Lines   []*entity.DocumentLine
	Origins []*entity.DocumentOrigin
}

// CloneAsDraft construye un borrador de tipo target a partir de uno o varios orígenes.
// Con un origen se enlaza vía OriginDocumentID; con varios se registra el conjunto de orígenes
// con la cantidad procesada de cada uno. Las líneas se copian en orden y se renumeran.
func CloneAsDraft(target entity.Kind, sources []Source, createdBy string, now time.Time) Draft {
	first := sources[0].Doc
	spec := target.Spec()
	doc := &entity.Document{
		ID:               uuid.New().String(),
		Kind:             target,
		Series:           first.Series,
		Date:             first.Date,
		PartnerID:        first.PartnerID,
		State:            spec.InitialState,
		WithholdingRate:  first.WithholdingRate,
		SurchargeApplies: first.SurchargeApplies,
		PaymentTermID:    first.PaymentTermID,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	draft := Draft{Doc: doc}
	var notes []string
	pos := 0
	for _, src := range sources {
		if src.Doc.Observations != "" {
			notes = append(notes, src.Doc.Observations)
		}
		processed := decimal.Zero
		for _, l := range src.Lines {
			pos++
			cp := *l
			cp.ID = uuid.New().String()
			cp.DocumentID = doc.ID
			cp.Position = pos
			draft.Lines = append(draft.Lines, &cp)
			processed = processed.Add(l.Quantity)
		}
		if len(sources) > 1 {
			draft.Origins = append(draft.Origins, &entity.DocumentOrigin{
				DocumentID:        doc.ID,
				OriginDocumentID:  src.Doc.ID,
				ProcessedQuantity: processed,
				CreatedAt:         now,
			})
		}
	}
	if len(sources) == 1 {
		doc.OriginDocumentID = first.ID
	}
	doc.Observations = strings.Join(notes, "\n")

	Recalculate(doc, draft.Lines)
	return draft
}
