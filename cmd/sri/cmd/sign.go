package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Eridaras/SistemaMedico/internal/infrastructure/sri/signer"
)

func newSignCmd() *cobra.Command {
	var (
		cred   credentialFlags
		output string
	)
	c := &cobra.Command{
		Use:   "sign <comprobante.xml>",
		Short: "Firmar un comprobante con XAdES-BES",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unsigned, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer comprobante: %w", err)
			}
			cert, err := cred.load()
			if err != nil {
				return err
			}
			ds, err := signer.NewDocumentSignerWithCertificate(cert, zerolog.Nop())
			if err != nil {
				return err
			}
			doc, err := ds.Sign(unsigned)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(doc.XML)
				return err
			}
			return os.WriteFile(output, doc.XML, 0o644)
		},
	}
	cred.register(c)
	c.Flags().StringVarP(&output, "output", "o", "", "Archivo de salida (por defecto stdout)")
	return c
}

type verifyView struct {
	Valida    bool                    `json:"firma_valida"`
	Firmante  *signer.CertificateInfo `json:"certificado,omitempty"`
	Detalle   string                  `json:"detalle,omitempty"`
	Documento string                  `json:"documento"`
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <comprobante_firmado.xml>",
		Short: "Verificar digests y firma XAdES de un comprobante",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signed, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer comprobante: %w", err)
			}
			view := verifyView{Documento: args[0]}
			cert, verr := signer.Verify(signed)
			if verr != nil {
				view.Detalle = verr.Error()
			} else {
				view.Valida = true
				info := signer.Describe(cert, timeNow())
				view.Firmante = &info
			}
			if err := printJSON(cmd.OutOrStdout(), view); err != nil {
				return err
			}
			return verr
		},
	}
}
