package billing

import (
	"context"

	infrasri "github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/sri/signer"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/storage"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// CertificateDescriber expone el certificado de firma cargado (implementado por *signer.DocumentSigner).
type CertificateDescriber interface {
	Certificate() (signer.CertificateInfo, error)
	Mode() signer.Mode
}

// AuthorityPinger chequeo de conectividad del SRI (implementado por *sri.SOAPClient).
type AuthorityPinger interface {
	Ping(ctx context.Context) []infrasri.EndpointStatus
}

// ArchiveStats estadísticas del archivo (implementado por *storage.XMLArchive).
type ArchiveStats interface {
	Stats() (storage.Stats, error)
}

// CertificateStatus respuesta de GET /api/sri/certificate.
type CertificateStatus struct {
	Mode        signer.Mode             `json:"modo"`
	Certificate *signer.CertificateInfo `json:"certificado,omitempty"`
}

// SRIServiceUseCase consultas operativas: catálogos, certificado, conectividad y archivo.
type SRIServiceUseCase struct {
	cert    CertificateDescriber
	pinger  AuthorityPinger
	archive ArchiveStats
}

// NewSRIServiceUseCase construye el caso de uso.
func NewSRIServiceUseCase(cert CertificateDescriber, pinger AuthorityPinger, archive ArchiveStats) *SRIServiceUseCase {
	return &SRIServiceUseCase{cert: cert, pinger: pinger, archive: archive}
}

// PaymentMethods catálogo de formas de pago.
func (uc *SRIServiceUseCase) PaymentMethods() []pkgsri.PaymentMethod {
	return pkgsri.ListPaymentMethods()
}

// Certificate estado del certificado. En modo unsigned sin credencial devuelve
// solo el modo; en required sin credencial devuelve ErrSigningConfig.
func (uc *SRIServiceUseCase) Certificate() (*CertificateStatus, error) {
	out := &CertificateStatus{Mode: uc.cert.Mode()}
	info, err := uc.cert.Certificate()
	if err != nil {
		if out.Mode == signer.ModeUnsigned {
			return out, nil
		}
		return nil, err
	}
	out.Certificate = &info
	return out, nil
}

// Health disponibilidad de recepción y autorización.
func (uc *SRIServiceUseCase) Health(ctx context.Context) (healthy bool, endpoints []infrasri.EndpointStatus) {
	endpoints = uc.pinger.Ping(ctx)
	healthy = true
	for _, e := range endpoints {
		if !e.Reachable {
			healthy = false
		}
	}
	return healthy, endpoints
}

// StorageStats conteos y tamaño del archivo de comprobantes.
func (uc *SRIServiceUseCase) StorageStats() (storage.Stats, error) {
	return uc.archive.Stats()
}
