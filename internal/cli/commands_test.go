package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-documentos/internal/application/dto"
	"github.com/jhoicas/erp-documentos/internal/bootstrap"
	"github.com/jhoicas/erp-documentos/internal/cli"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/lifecycle"
	"github.com/jhoicas/erp-documentos/internal/infrastructure/memory"
	"github.com/jhoicas/erp-documentos/pkg/config"
	"github.com/jhoicas/erp-documentos/pkg/jwt"
	"github.com/jhoicas/erp-documentos/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const testSecret = "cli-secret"

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: testSecret, Expiration: 60, Issuer: "erp-test"},
		Numbering: config.NumberingConfig{
			DefaultSeries: "A", Format: "{TYPE}-{SERIES}{YEAR}-{NUM}", Padding: 5, MaxAttempts: 50,
		},
		Tax:      config.TaxConfig{DefaultVATRate: "21"},
		Receipts: config.ReceiptsConfig{AutoGenerate: false},
	}
}

type harness struct {
	store    *memory.Store
	out      *bytes.Buffer
	deps     cli.Deps
	migrated []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: memory.NewStore(), out: &bytes.Buffer{}}
	cfg := testConfig()
	h.deps = cli.Deps{
		Config: cfg,
		Log:    logger.Nop(),
		Out:    h.out,
		Open: func(ctx context.Context) (*bootstrap.Services, func(), error) {
			svc, err := bootstrap.NewServices(cfg, h.store, logger.Nop())
			return svc, func() {}, err
		},
		Migrate: func(ctx context.Context) ([]string, error) { return h.migrated, nil },
	}
	return h
}

func (h *harness) run(args ...string) error {
	h.out.Reset()
	return cli.Execute(context.Background(), h.deps, args)
}

// ──────────────────────────────────────────────────────────────────────────────
// token
// ──────────────────────────────────────────────────────────────────────────────

func TestToken_EmiteTokenValido(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("token", "--role", "admin", "--user", "u-7"))

	claims, err := jwt.Parse(testSecret, strings.TrimSpace(h.out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-7", claims.UserID)
	assert.Equal(t, jwt.RoleAdmin, claims.Role)
}

func TestToken_RolDesconocido(t *testing.T) {
	h := newHarness(t)
	err := h.run("token", "--role", "superusuario")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "superusuario")
}

// ──────────────────────────────────────────────────────────────────────────────
// migrate / numbering
// ──────────────────────────────────────────────────────────────────────────────

func TestMigrate_ListaScripts(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("migrate"))
	assert.Equal(t, "esquema al día\n", h.out.String())

	h.migrated = []string{"001_documents.sql"}
	require.NoError(t, h.run("migrate"))
	assert.Equal(t, "aplicada: 001_documents.sql\n", h.out.String())
}

func TestNumberingNext_Consecutivos(t *testing.T) {
	h := newHarness(t)
	year := time.Now().Year()

	require.NoError(t, h.run("numbering", "next", "--kind", "order"))
	var resp dto.NumberingResponse
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &resp))
	assert.Equal(t, fmt.Sprintf("PED-A%d-00001", year), resp.Number)

	require.NoError(t, h.run("numbering", "next", "--kind", "order"))
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &resp))
	assert.Equal(t, fmt.Sprintf("PED-A%d-00002", year), resp.Number)
}

func TestNumberingNext_SinTipo(t *testing.T) {
	h := newHarness(t)
	require.Error(t, h.run("numbering", "next"))
}

// ──────────────────────────────────────────────────────────────────────────────
// group / ungroup / receipts
// ──────────────────────────────────────────────────────────────────────────────

func TestGroup_NecesitaDosOrigenes(t *testing.T) {
	h := newHarness(t)
	require.Error(t, h.run("group", "solo-uno"))
}

func TestUngroupCheck_DocumentoInexistente(t *testing.T) {
	h := newHarness(t)
	err := h.run("ungroup", "no-existe", "--check")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceiptsGenerate_FacturaInexistente(t *testing.T) {
	h := newHarness(t)
	err := h.run("receipts", "generate", "f-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factura f-404")
}

func TestGroup_AlbaranesEnFactura(t *testing.T) {
	h := newHarness(t)
	h.store.PutPartner(entity.Tercero{ID: "c1", Name: "Talleres Norte", TaxID: "B12345678", IsClient: true})
	now := time.Now().UTC()
	for _, id := range []string{"alb-1", "alb-2"} {
		doc := entity.Document{ID: id, Kind: entity.KindDeliveryNote, Number: "ALB-" + id, Series: "A",
			PartnerID: "c1", State: entity.StateConfirmed, Date: now}
		line := entity.DocumentLine{ID: id + "-l1", Position: 1, Description: "Servicio",
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10), VATRate: decimal.NewFromInt(21)}
		lifecycle.Recalculate(&doc, []*entity.DocumentLine{&line})
		h.store.PutDocument(doc, line)
	}

	require.NoError(t, h.run("group", "alb-1", "alb-2"))
	var resp dto.DocumentResponse
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &resp))
	assert.Equal(t, string(entity.KindInvoice), resp.Kind)

	require.NoError(t, h.run("ungroup", resp.ID, "--check"))
	assert.Contains(t, h.out.String(), `"allowed": true`)
}
