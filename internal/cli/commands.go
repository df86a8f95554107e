package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/erp-documentos/internal/application/dto"
	"github.com/jhoicas/erp-documentos/internal/application/grouping"
	"github.com/jhoicas/erp-documentos/internal/bootstrap"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/pkg/jwt"
)

func newMigrateCmd(d Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes del esquema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := d.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "esquema al día")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "aplicada:", name)
			}
			return nil
		},
	}
}

func newNumberingCmd(d Deps) *cobra.Command {
	numbering := &cobra.Command{
		Use:   "numbering",
		Short: "Numeración de documentos",
	}
	next := &cobra.Command{
		Use:   "next",
		Short: "Emite el siguiente número de un tipo y serie",
		Example: `  erpctl numbering next --kind invoice
  erpctl numbering next --kind order --series B`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			series, _ := cmd.Flags().GetString("series")
			return withServices(cmd, d, func(svc *bootstrap.Services) error {
				num, err := svc.Sequencer.Next(cmd.Context(), entity.Kind(kind), series)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.NumberingResponse{Number: num})
			})
		},
	}
	next.Flags().String("kind", "", "Tipo de documento (quote, order, delivery_note, invoice, ...)")
	next.Flags().String("series", "", "Serie (vacío = primera serie de facturación o la de configuración)")
	_ = next.MarkFlagRequired("kind")
	numbering.AddCommand(next)
	return numbering
}

func newReceiptsCmd(d Deps) *cobra.Command {
	receipts := &cobra.Command{
		Use:   "receipts",
		Short: "Recibos de facturas",
	}
	generate := &cobra.Command{
		Use:   "generate <invoice-id>...",
		Short: "Genera los recibos de una o varias facturas",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, d, func(svc *bootstrap.Services) error {
				var out []dto.DocumentResponse
				for _, id := range args {
					list, err := svc.Receipts.Generate(cmd.Context(), id, userFlag(cmd))
					if err != nil {
						return fmt.Errorf("factura %s: %w", id, err)
					}
					out = append(out, dto.ToDocumentList(list)...)
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	regenerate := &cobra.Command{
		Use:   "regenerate <invoice-id>",
		Short: "Sustituye los recibos de una factura (rechazado si alguno está cobrado o pagado)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, d, func(svc *bootstrap.Services) error {
				list, err := svc.Receipts.Regenerate(cmd.Context(), args[0], userFlag(cmd))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToDocumentList(list))
			})
		},
	}
	receipts.AddCommand(generate, regenerate)
	return receipts
}

func newGroupCmd(d Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group <document-id> <document-id>...",
		Short: "Agrupa varios documentos del mismo tercero en uno nuevo",
		Example: `  # albaranes → factura
  erpctl group 6f1c... 9a2b...`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("target")
			return withServices(cmd, d, func(svc *bootstrap.Services) error {
				doc, err := svc.Grouping.Group(cmd.Context(), grouping.Request{
					SourceIDs: args,
					Target:    entity.Kind(target),
					UserID:    userFlag(cmd),
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToDocumentResponse(doc, nil))
			})
		},
	}
	cmd.Flags().String("target", "", "Tipo destino (vacío = el natural del tipo de origen)")
	return cmd
}

func newUngroupCmd(d Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ungroup <document-id>",
		Short: "Deshace una agrupación",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkOnly, _ := cmd.Flags().GetBool("check")
			return withServices(cmd, d, func(svc *bootstrap.Services) error {
				if checkOnly {
					chk, err := svc.Grouping.CanUngroup(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), chk)
				}
				if err := svc.Grouping.Ungroup(cmd.Context(), args[0], userFlag(cmd)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "agrupación deshecha:", args[0])
				return nil
			})
		},
	}
	cmd.Flags().Bool("check", false, "Solo comprueba si se puede deshacer")
	return cmd
}

func newTokenCmd(d Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un token JWT para la API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, _ := cmd.Flags().GetString("role")
			exp, _ := cmd.Flags().GetInt("exp")
			if role != jwt.RoleAdmin && role != jwt.RoleOperator {
				return fmt.Errorf("rol desconocido %q (admin | operador)", role)
			}
			if exp <= 0 {
				exp = d.Config.JWT.Expiration
			}
			tok, err := jwt.Generate(d.Config.JWT.Secret, userFlag(cmd), role, d.Config.JWT.Issuer, exp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("role", jwt.RoleOperator, "Rol del token (admin | operador)")
	cmd.Flags().Int("exp", 0, "Minutos de validez (0 = JWT_EXPIRATION_MINUTES)")
	return cmd
}
