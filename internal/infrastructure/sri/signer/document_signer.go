package signer

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	applog "github.com/Eridaras/SistemaMedico/pkg/logger"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// Mode modo de firma configurado con SRI_SIGNING_MODE.
type Mode string

const (
	// ModeRequired sin credencial válida no se emite ningún comprobante.
	ModeRequired Mode = "required"
	// ModeUnsigned emite el XML sin firma (solo ambiente de pruebas).
	ModeUnsigned Mode = "unsigned"
)

// Options origen de la credencial de firma.
type Options struct {
	Mode        Mode
	Environment string
	CertPath    string // .p12/.pfx o certificado PEM
	KeyPath     string // llave PEM (vacío = mismo archivo que CertPath)
	Password    string // contraseña del .p12
}

// SignedDocument resultado de DocumentSigner.Sign.
type SignedDocument struct {
	XML    []byte
	Signed bool // false solo en modo unsigned
}

// DocumentSigner aplica la política de firma del emisor sobre XAdESSignatureService.
type DocumentSigner struct {
	svc  pkgsri.Signer
	cert *tls.Certificate
	mode Mode
	log  zerolog.Logger
	now  func() time.Time
}

// NewDocumentSigner carga la credencial (si hay ruta) y valida el modo.
// En modo required sin ruta no falla aquí: cada Sign devolverá ErrSigningConfig.
func NewDocumentSigner(opts Options, log zerolog.Logger) (*DocumentSigner, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeRequired
	}
	if mode != ModeRequired && mode != ModeUnsigned {
		return nil, fmt.Errorf("%w: modo de firma %q no válido", domain.ErrSigningConfig, mode)
	}
	if mode == ModeUnsigned && opts.Environment == pkgsri.EnvironmentProduction {
		return nil, fmt.Errorf("%w: el modo sin firma no está permitido en producción", domain.ErrSigningConfig)
	}

	ds := &DocumentSigner{
		svc:  NewXAdESSignatureService(),
		mode: mode,
		log:  applog.Component(log, "sri_signer"),
		now:  time.Now,
	}
	if opts.CertPath == "" {
		return ds, nil
	}
	cert, err := loadCredential(opts)
	if err != nil {
		return nil, err
	}
	ds.cert = &cert
	info := Describe(cert.Leaf, ds.now())
	ds.log.Info().
		Str("sujeto", info.Subject).
		Time("valido_hasta", info.NotAfter).
		Int("dias_restantes", info.DaysRemaining).
		Msg("certificado de firma cargado")
	return ds, nil
}

// NewDocumentSignerWithCertificate construye el firmador con una credencial ya cargada.
func NewDocumentSignerWithCertificate(cert tls.Certificate, log zerolog.Logger) (*DocumentSigner, error) {
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("%w: parsear certificado: %v", domain.ErrSigningConfig, err)
		}
		cert.Leaf = leaf
	}
	return &DocumentSigner{
		svc:  NewXAdESSignatureService(),
		cert: &cert,
		mode: ModeRequired,
		log:  applog.Component(log, "sri_signer"),
		now:  time.Now,
	}, nil
}

func loadCredential(opts Options) (tls.Certificate, error) {
	switch strings.ToLower(filepath.Ext(opts.CertPath)) {
	case ".p12", ".pfx":
		return LoadFromP12(opts.CertPath, opts.Password)
	default:
		return LoadFromPEM(opts.CertPath, opts.KeyPath)
	}
}

// Sign firma el comprobante. En modo unsigned sin credencial devuelve el XML
// original y deja un WARN por documento.
func (d *DocumentSigner) Sign(unsigned []byte) (SignedDocument, error) {
	if d.cert == nil {
		if d.mode == ModeUnsigned {
			d.log.Warn().Str("step", "sign").Msg("documento SIN FIRMA")
			return SignedDocument{XML: unsigned, Signed: false}, nil
		}
		return SignedDocument{}, fmt.Errorf("%w: no hay certificado configurado (SRI_CERT_PATH)", domain.ErrSigningConfig)
	}
	if err := CheckValidity(d.cert.Leaf, d.now()); err != nil {
		return SignedDocument{}, err
	}
	out, err := d.svc.Sign(unsigned, *d.cert)
	if err != nil {
		return SignedDocument{}, err
	}
	return SignedDocument{XML: out, Signed: true}, nil
}

// Verify delega en Verify del paquete.
func (d *DocumentSigner) Verify(signed []byte) (*x509.Certificate, error) {
	return Verify(signed)
}

// Certificate describe la credencial cargada.
func (d *DocumentSigner) Certificate() (CertificateInfo, error) {
	if d.cert == nil {
		return CertificateInfo{}, fmt.Errorf("%w: no hay certificado configurado", domain.ErrSigningConfig)
	}
	return Describe(d.cert.Leaf, d.now()), nil
}

// Mode modo efectivo.
func (d *DocumentSigner) Mode() Mode { return d.mode }
