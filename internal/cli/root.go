// Package cli comandos de erpctl: migraciones, numeración, recibos, agrupación y tokens.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jhoicas/erp-documentos/internal/bootstrap"
	"github.com/jhoicas/erp-documentos/pkg/config"
	"github.com/jhoicas/erp-documentos/pkg/logger"
)

var version = "1.0.0"

// Deps dependencias de los comandos. Open y Migrate se inyectan para poder
// ejecutar los comandos contra postgres o contra el almacén en memoria.
type Deps struct {
	Config  *config.Config
	Log     *logger.Logger
	Out     io.Writer
	Open    func(ctx context.Context) (*bootstrap.Services, func(), error)
	Migrate func(ctx context.Context) ([]string, error)
}

// NewRootCmd construye el árbol de comandos.
func NewRootCmd(d Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "erpctl",
		Short: "Operaciones por lotes sobre documentos comerciales",
		Long: `erpctl ejecuta las operaciones de mantenimiento del motor de documentos
sin pasar por la API HTTP: migraciones, numeración manual, generación de recibos,
agrupación de albaranes y emisión de tokens.

La configuración se lee de las mismas variables de entorno que el servidor
(DATABASE_URL, NUMBERING_*, TAX_*, RECEIPTS_AUTO_GENERATE, JWT_*).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(d.Out)
	root.PersistentFlags().String("user", "erpctl", "Usuario que figura como autor de los cambios")

	root.AddCommand(
		newMigrateCmd(d),
		newNumberingCmd(d),
		newReceiptsCmd(d),
		newGroupCmd(d),
		newUngroupCmd(d),
		newTokenCmd(d),
	)
	return root
}

// Execute ejecuta el comando raíz y registra el error si lo hay.
func Execute(ctx context.Context, d Deps, args []string) error {
	root := NewRootCmd(d)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		d.Log.Error().Err(err).Msg("comando fallido")
		return err
	}
	return nil
}

// withServices abre los servicios, ejecuta fn y cierra.
func withServices(cmd *cobra.Command, d Deps, fn func(svc *bootstrap.Services) error) error {
	svc, closeFn, err := d.Open(cmd.Context())
	if err != nil {
		return fmt.Errorf("abrir servicios: %w", err)
	}
	defer closeFn()
	return fn(svc)
}

func userFlag(cmd *cobra.Command) string {
	u, _ := cmd.Flags().GetString("user")
	return u
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
