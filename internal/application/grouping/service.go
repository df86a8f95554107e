package grouping

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/application/receipts"
	"github.com/jhoicas/erp-documentos/internal/application/stock"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/lifecycle"
)

// Config opciones de agrupación.
type Config struct {
	// AutoReceipts genera los recibos al agrupar en una factura con forma de pago.
	AutoReceipts bool
}

// Request documentos a agrupar. Target vacío = destino natural del tipo de origen.
type Request struct {
	SourceIDs []string
	Target    entity.Kind
	UserID    string
}

// UngroupCheck resultado de CanUngroup.
type UngroupCheck struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Service fusiona varios documentos homogéneos en uno nuevo y deshace la fusión.
type Service struct {
	tx       ports.TxRunner
	seq      *numbering.Sequencer
	stock    *stock.SyncService
	receipts *receipts.Generator
	cfg      Config
	now      ports.Clock
	log      zerolog.Logger
}

// NewService construye el servicio.
func NewService(tx ports.TxRunner, seq *numbering.Sequencer, stockSvc *stock.SyncService, gen *receipts.Generator, cfg Config, log zerolog.Logger) *Service {
	return &Service{tx: tx, seq: seq, stock: stockSvc, receipts: gen, cfg: cfg, now: time.Now, log: log}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(c ports.Clock) *Service {
	s.now = c
	return s
}

// Group valida todos los orígenes antes de tocar nada y crea el destino con el conjunto de orígenes,
// las líneas consolidadas y los totales recalculados.
func (s *Service) Group(ctx context.Context, req Request) (*entity.Document, error) {
	var out *entity.Document
	err := s.tx.Run(ctx, func(r ports.Repos) error {
		doc, err := s.GroupInTx(ctx, r, req)
		out = doc
		return err
	})
	return out, err
}

// GroupInTx igual que Group usando la transacción del llamador.
func (s *Service) GroupInTx(ctx context.Context, r ports.Repos, req Request) (*entity.Document, error) {
	sources, target, err := s.validate(ctx, r, req)
	if err != nil {
		return nil, err
	}

	draft := lifecycle.CloneAsDraft(target, sources, req.UserID, s.now())
	doc := draft.Doc
	iss, err := s.seq.Issue(ctx, r, target, doc.Series)
	if err != nil {
		return nil, err
	}
	doc.Number, doc.NumberingYear = iss.Number, iss.Year
	if err := r.Documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	for _, l := range draft.Lines {
		if err := r.Documents.CreateLine(ctx, l); err != nil {
			return nil, fmt.Errorf("insert line: %w", err)
		}
	}
	for _, o := range draft.Origins {
		if err := r.Documents.AddOrigin(ctx, o); err != nil {
			return nil, fmt.Errorf("insert origin: %w", err)
		}
	}

	if s.cfg.AutoReceipts && target.IsInvoice() && doc.PaymentTermID != "" {
		if _, err := s.receipts.GenerateInTx(ctx, r, doc.ID, req.UserID); err != nil {
			return nil, err
		}
	}
	s.log.Info().Str("document", doc.Number).Int("sources", len(sources)).Msg("documentos agrupados")
	return doc, nil
}

func (s *Service) validate(ctx context.Context, r ports.Repos, req Request) ([]lifecycle.Source, entity.Kind, error) {
	if len(req.SourceIDs) < 2 {
		return nil, "", domain.Invalid("grouping.min_sources", "se necesitan al menos dos documentos para agrupar")
	}
	seen := make(map[string]bool, len(req.SourceIDs))
	for _, id := range req.SourceIDs {
		if seen[id] {
			return nil, "", domain.Invalid("grouping.duplicate_source", "el documento %s está repetido", id)
		}
		seen[id] = true
	}
	// los bloqueos se toman siempre en orden de id para que dos agrupaciones no se esperen en cruz
	locked := make(map[string]*entity.Document, len(req.SourceIDs))
	for _, id := range slices.Sorted(maps.Keys(seen)) {
		doc, err := r.Documents.GetForUpdate(ctx, id)
		if err != nil {
			return nil, "", fmt.Errorf("lock document: %w", err)
		}
		if doc == nil {
			return nil, "", domain.NotFound("documento", id)
		}
		locked[id] = doc
	}
	sources := make([]lifecycle.Source, 0, len(req.SourceIDs))
	for _, id := range req.SourceIDs {
		sources = append(sources, lifecycle.Source{Doc: locked[id]})
	}

	first := sources[0].Doc
	for _, src := range sources[1:] {
		if src.Doc.Kind != first.Kind {
			return nil, "", domain.Invalid("grouping.same_type", "todos los documentos deben ser del mismo tipo (%s y %s)", first.Kind, src.Doc.Kind)
		}
		if src.Doc.PartnerID != first.PartnerID {
			return nil, "", domain.Invalid("grouping.same_partner", "todos los documentos deben ser del mismo tercero (%s)", src.Doc.Number)
		}
	}
	for i, src := range sources {
		if src.Doc.State == entity.StateCancelled {
			return nil, "", domain.Invalid("grouping.cancelled", "el documento %s está anulado", src.Doc.Number)
		}
		derived, err := r.Documents.ListDerived(ctx, src.Doc.ID, "")
		if err != nil {
			return nil, "", fmt.Errorf("list derived: %w", err)
		}
		if len(derived) > 0 {
			return nil, "", domain.Invalid("grouping.already_derived", "el documento %s ya fue procesado en %s", src.Doc.Number, derived[0].Number)
		}
		lines, err := r.Documents.ListLines(ctx, src.Doc.ID)
		if err != nil {
			return nil, "", fmt.Errorf("list lines: %w", err)
		}
		sources[i].Lines = lines
	}

	natural := first.Spec().GroupsInto
	target := req.Target
	if target == "" {
		target = natural
	}
	if natural == "" || target != natural {
		return nil, "", domain.Invalid("grouping.pair_not_permitted", "no se pueden agrupar documentos de tipo %s en %s", first.Kind, target)
	}
	return sources, target, nil
}

// CanUngroup indica si el destino puede desagruparse: al menos dos orígenes y ningún documento derivado.
func (s *Service) CanUngroup(ctx context.Context, documentID string) (UngroupCheck, error) {
	var out UngroupCheck
	err := s.tx.Run(ctx, func(r ports.Repos) error {
		doc, err := r.Documents.GetByID(ctx, documentID)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		if doc == nil {
			return domain.NotFound("documento", documentID)
		}
		out, err = s.check(ctx, r, doc)
		return err
	})
	return out, err
}

func (s *Service) check(ctx context.Context, r ports.Repos, doc *entity.Document) (UngroupCheck, error) {
	origins, err := r.Documents.ListOrigins(ctx, doc.ID)
	if err != nil {
		return UngroupCheck{}, fmt.Errorf("list origins: %w", err)
	}
	if len(origins) < 2 {
		return UngroupCheck{Rule: "grouping.not_grouped", Reason: fmt.Sprintf("el documento %s no procede de una agrupación", doc.Number)}, nil
	}
	derived, err := r.Documents.ListDerived(ctx, doc.ID, "")
	if err != nil {
		return UngroupCheck{}, fmt.Errorf("list derived: %w", err)
	}
	if len(derived) > 0 {
		return UngroupCheck{Rule: "grouping.has_derived", Reason: fmt.Sprintf("el documento %s tiene documentos derivados (%s)", doc.Number, derived[0].Number)}, nil
	}
	return UngroupCheck{Allowed: true}, nil
}

// Ungroup borra el destino (revirtiendo su stock si estaba aplicado) y libera los orígenes.
func (s *Service) Ungroup(ctx context.Context, documentID, userID string) error {
	return s.tx.Run(ctx, func(r ports.Repos) error {
		doc, err := r.Documents.GetForUpdate(ctx, documentID)
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
		if doc == nil {
			return domain.NotFound("documento", documentID)
		}
		chk, err := s.check(ctx, r, doc)
		if err != nil {
			return err
		}
		if !chk.Allowed {
			return domain.Invalid(chk.Rule, "%s", chk.Reason)
		}
		if doc.StockApplied {
			if _, err := s.stock.ReverseInTx(ctx, r, doc.ID, userID); err != nil {
				return err
			}
		}
		if err := r.Documents.DeleteOrigins(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete origins: %w", err)
		}
		if err := r.Documents.SoftDelete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		s.log.Info().Str("document", doc.Number).Msg("agrupación deshecha")
		return nil
	})
}
