package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainsri "github.com/Eridaras/SistemaMedico/internal/domain/sri"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

func newAccessKeyCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "accesskey",
		Short: "Generar o validar claves de acceso de 49 dígitos",
	}
	c.AddCommand(newAccessKeyGenerateCmd(), newAccessKeyValidateCmd())
	return c
}

func newAccessKeyGenerateCmd() *cobra.Command {
	var (
		p     domainsri.AccessKeyParams
		fecha string
	)
	c := &cobra.Command{
		Use:   "generate",
		Short: "Generar la clave de acceso de un comprobante",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := time.ParseInLocation("2006-01-02", fecha, time.Local)
			if err != nil {
				return fmt.Errorf("--fecha debe tener formato YYYY-MM-DD: %w", err)
			}
			p.IssueDate = d
			key, err := domainsri.GenerateAccessKey(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	f := c.Flags()
	f.StringVar(&fecha, "fecha", time.Now().Format("2006-01-02"), "Fecha de emisión (YYYY-MM-DD)")
	f.StringVar(&p.RUC, "ruc", "", "RUC del emisor (13 dígitos)")
	f.StringVar(&p.Environment, "ambiente", pkgsri.EnvironmentTest, "Ambiente: 1 pruebas, 2 producción")
	f.StringVar(&p.Establishment, "estab", "001", "Código de establecimiento")
	f.StringVar(&p.PointOfSale, "pto", "001", "Punto de emisión")
	f.Int64Var(&p.Sequence, "secuencial", 0, "Secuencial del comprobante")
	f.StringVar(&p.NumericCode, "codigo", "", "Código numérico (8 dígitos)")
	f.StringVar(&p.DocumentType, "tipo", pkgsri.DocumentTypeInvoice, "Tipo de comprobante")
	f.StringVar(&p.EmissionType, "emision", pkgsri.EmissionTypeNormal, "Tipo de emisión")
	_ = c.MarkFlagRequired("ruc")
	_ = c.MarkFlagRequired("secuencial")
	_ = c.MarkFlagRequired("codigo")
	return c
}

type accessKeyView struct {
	Clave           string `json:"clave_acceso"`
	FechaEmision    string `json:"fecha_emision"`
	TipoComprobante string `json:"tipo_comprobante"`
	RUC             string `json:"ruc"`
	Ambiente        string `json:"ambiente"`
	Serie           string `json:"serie"`
	Secuencial      int64  `json:"secuencial"`
	CodigoNumerico  string `json:"codigo_numerico"`
	TipoEmision     string `json:"tipo_emision"`
	Verificador     int    `json:"digito_verificador"`
}

func newAccessKeyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <clave>",
		Short: "Validar el dígito verificador y mostrar los campos de la clave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, err := domainsri.ParseAccessKey(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), accessKeyView{
				Clave:           args[0],
				FechaEmision:    parts.IssueDate.Format("2006-01-02"),
				TipoComprobante: parts.DocumentType,
				RUC:             parts.RUC,
				Ambiente:        pkgsri.EnvironmentName(parts.Environment),
				Serie:           parts.Establishment + "-" + parts.PointOfSale,
				Secuencial:      parts.Sequence,
				CodigoNumerico:  parts.NumericCode,
				TipoEmision:     parts.EmissionType,
				Verificador:     parts.CheckDigit,
			})
		},
	}
}
