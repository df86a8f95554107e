package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// Plantilla y valores por defecto de la numeración.
const (
	DefaultFormat      = "{TYPE}-{SERIES}{YEAR}-{NUM}"
	DefaultPadding     = 5
	DefaultSeries      = "A"
	DefaultMaxAttempts = 50
)

// Config parámetros de numeración (vienen de la configuración de la app).
type Config struct {
	DefaultSeries string
	Format        string
	Padding       int
	MaxAttempts   int
	// Formats plantillas por tipo que reemplazan a Format.
	Formats map[entity.Kind]string
}

func (c Config) withDefaults() Config {
	if c.DefaultSeries == "" {
		c.DefaultSeries = DefaultSeries
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.Padding <= 0 {
		c.Padding = DefaultPadding
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Sequencer emite números de documento únicos por (tipo, serie, año).
type Sequencer struct {
	tx  ports.TxRunner
	cfg Config
	now ports.Clock
	log zerolog.Logger
}

// NewSequencer construye el secuenciador.
func NewSequencer(tx ports.TxRunner, cfg Config, log zerolog.Logger) *Sequencer {
	return &Sequencer{tx: tx, cfg: cfg.withDefaults(), now: time.Now, log: log}
}

// WithClock reemplaza el reloj (tests).
func (s *Sequencer) WithClock(c ports.Clock) *Sequencer {
	s.now = c
	return s
}

// Next genera un número en su propia transacción.
func (s *Sequencer) Next(ctx context.Context, kind entity.Kind, series string) (string, error) {
	var number string
	err := s.tx.Run(ctx, func(r ports.Repos) error {
		n, err := s.Generate(ctx, r, kind, series)
		number = n
		return err
	})
	return number, err
}

// ResolveSeries devuelve la serie a usar: la indicada, la primera serie activa de facturación o la de configuración.
func (s *Sequencer) ResolveSeries(ctx context.Context, r ports.Repos, series string) (string, error) {
	if series = entity.NormalizeSeries(series); series != "" {
		return series, nil
	}
	first, err := r.Series.FirstActiveBilling(ctx)
	if err != nil {
		return "", fmt.Errorf("first billing series: %w", err)
	}
	if first != nil {
		return entity.NormalizeSeries(first.Code), nil
	}
	return s.cfg.DefaultSeries, nil
}

// Issued número emitido y año del contador que lo emitió.
type Issued struct {
	Number string
	Year   int
}

// Generate emite el siguiente número libre usando los repos de la transacción del llamador.
func (s *Sequencer) Generate(ctx context.Context, r ports.Repos, kind entity.Kind, series string) (string, error) {
	iss, err := s.Issue(ctx, r, kind, series)
	return iss.Number, err
}

// Issue igual que Generate pero devuelve también el año del contador. El contador se incrementa
// de forma atómica; si el número ya existe en algún documento se reintenta hasta MaxAttempts veces.
func (s *Sequencer) Issue(ctx context.Context, r ports.Repos, kind entity.Kind, series string) (Issued, error) {
	series, err := s.ResolveSeries(ctx, r, series)
	if err != nil {
		return Issued{}, err
	}
	defaults := s.counterDefaults(kind, series, s.now().Year())

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		c, err := r.Counters.Increment(ctx, defaults)
		if err != nil {
			return Issued{}, fmt.Errorf("increment counter: %w", err)
		}
		number := Format(c.Format, kind.Spec().Prefix, c.Series, c.Year, c.LastNumber, c.Padding)
		exists, err := r.Documents.ExistsNumber(ctx, number)
		if err != nil {
			return Issued{}, fmt.Errorf("check number: %w", err)
		}
		if !exists {
			s.log.Debug().Str("kind", string(kind)).Str("number", number).Msg("número emitido")
			return Issued{Number: number, Year: c.Year}, nil
		}
		s.log.Warn().Str("kind", string(kind)).Str("number", number).Int("attempt", attempt).Msg("número ya usado, reintentando")
	}
	return Issued{}, fmt.Errorf("%s/%s/%d: %w", kind, series, defaults.Year, domain.ErrNumberingExhausted)
}

// ReserveFloor garantiza que el contador de (kind, series, year) no emitirá números <= floor.
func (s *Sequencer) ReserveFloor(ctx context.Context, r ports.Repos, kind entity.Kind, series string, year int, floor int64) error {
	series, err := s.ResolveSeries(ctx, r, series)
	if err != nil {
		return err
	}
	if err := r.Counters.RaiseTo(ctx, s.counterDefaults(kind, series, year), floor); err != nil {
		return fmt.Errorf("raise counter: %w", err)
	}
	return nil
}

// Now hora del reloj del secuenciador.
func (s *Sequencer) Now() time.Time { return s.now() }

func (s *Sequencer) counterDefaults(kind entity.Kind, series string, year int) entity.NumberingCounter {
	format := s.cfg.Format
	if f, ok := s.cfg.Formats[kind]; ok && f != "" {
		format = f
	}
	return entity.NumberingCounter{
		Kind:    kind,
		Series:  series,
		Year:    year,
		Format:  format,
		Padding: s.cfg.Padding,
	}
}

// Format aplica la plantilla: {TYPE} prefijo, {SERIES} serie, {YEAR} año, {NUM} número con ceros a la izquierda.
func Format(template, prefix, series string, year int, num int64, padding int) string {
	if template == "" {
		template = DefaultFormat
	}
	n := strconv.FormatInt(num, 10)
	if len(n) < padding {
		n = strings.Repeat("0", padding-len(n)) + n
	}
	return strings.NewReplacer(
		"{TYPE}", prefix,
		"{SERIES}", series,
		"{YEAR}", strconv.Itoa(year),
		"{NUM}", n,
	).Replace(template)
}
