package cmd

import (
	"crypto/tls"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Eridaras/SistemaMedico/internal/infrastructure/sri/signer"
)

// credentialFlags origen de la credencial de firma, compartido por cert y sign.
type credentialFlags struct {
	certPath string
	keyPath  string
	password string
}

func (f *credentialFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.certPath, "cert", "", "Certificado .p12/.pfx o PEM (env: SRI_CERT_PATH)")
	c.Flags().StringVar(&f.keyPath, "key", "", "Llave privada PEM si --cert es solo el certificado")
	c.Flags().StringVar(&f.password, "password", "", "Contraseña del .p12 (env: SRI_CERT_PASSWORD)")
}

// resolve completa los flags vacíos con SRI_CERT_PATH / SRI_CERT_KEY_PATH / SRI_CERT_PASSWORD.
func (f *credentialFlags) resolve() {
	v := envViper()
	if f.certPath == "" {
		f.certPath = v.GetString("SRI_CERT_PATH")
	}
	if f.keyPath == "" {
		f.keyPath = v.GetString("SRI_CERT_KEY_PATH")
	}
	if f.password == "" {
		f.password = v.GetString("SRI_CERT_PASSWORD")
	}
}

func (f *credentialFlags) load() (tls.Certificate, error) {
	f.resolve()
	switch strings.ToLower(filepath.Ext(f.certPath)) {
	case ".p12", ".pfx":
		return signer.LoadFromP12(f.certPath, f.password)
	default:
		return signer.LoadFromPEM(f.certPath, f.keyPath)
	}
}

func newCertCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "cert",
		Short: "Diagnóstico del certificado de firma electrónica",
	}
	var cred credentialFlags
	info := &cobra.Command{
		Use:   "info",
		Short: "Sujeto, emisor, serial y vigencia del certificado",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cert, err := cred.load()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), signer.Describe(cert.Leaf, time.Now()))
		},
	}
	cred.register(info)
	c.AddCommand(info)
	return c
}
