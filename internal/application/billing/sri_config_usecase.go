package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Eridaras/SistemaMedico/internal/application/dto"
	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
	domainsri "github.com/Eridaras/SistemaMedico/internal/domain/sri"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// SRIConfigUseCase lectura y edición de la configuración del emisor.
// El secuencial solo lo mueve el orquestador.
type SRIConfigUseCase struct {
	repo repository.IssuerProfileRepository
	now  func() time.Time
}

// NewSRIConfigUseCase construye el caso de uso.
func NewSRIConfigUseCase(repo repository.IssuerProfileRepository) *SRIConfigUseCase {
	return &SRIConfigUseCase{repo: repo, now: time.Now}
}

// GetConfig devuelve la configuración activa con la contraseña enmascarada.
func (uc *SRIConfigUseCase) GetConfig(ctx context.Context) (*dto.SRIConfigResponse, error) {
	p, err := uc.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNoActiveConfig
	}
	return toConfigResponse(p), nil
}

// UpdateConfig aplica los campos enviados y valida el perfil resultante.
// Si no hay configuración activa la crea.
func (uc *SRIConfigUseCase) UpdateConfig(ctx context.Context, in dto.UpdateSRIConfigRequest) (*dto.SRIConfigResponse, error) {
	p, err := uc.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	create := p == nil
	now := uc.now()
	if create {
		p = &entity.IssuerProfile{
			ID:           uuid.New().String(),
			Environment:  pkgsri.EnvironmentTest,
			EmissionType: pkgsri.EmissionTypeNormal,
			Active:       true,
			CreatedAt:    now,
		}
	}
	if err := applyConfigPatch(p, in); err != nil {
		return nil, err
	}
	if err := domainsri.ValidateProfile(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = now

	if create {
		err = uc.repo.Create(ctx, p)
	} else {
		err = uc.repo.Update(ctx, p)
	}
	if err != nil {
		return nil, err
	}
	return toConfigResponse(p), nil
}

func applyConfigPatch(p *entity.IssuerProfile, in dto.UpdateSRIConfigRequest) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.RUC, in.RUC)
	set(&p.LegalName, in.RazonSocial)
	set(&p.TradeName, in.NombreComercial)
	set(&p.MainAddress, in.DirMatriz)
	set(&p.EstablishmentAddress, in.DirEstablecimiento)
	set(&p.Establishment, in.Establecimiento)
	set(&p.PointOfSale, in.PuntoEmision)
	set(&p.Environment, in.Ambiente)
	set(&p.EmissionType, in.TipoEmision)
	set(&p.NumericCode, in.CodigoNumerico)
	set(&p.SpecialTaxpayer, in.ContribuyenteEspecial)
	set(&p.Email, in.Email)
	set(&p.Phone, in.Telefono)
	set(&p.CertificatePath, in.CertPath)
	// La contraseña enmascarada que devuelve GetConfig no sobrescribe la real.
	if in.CertPassword != nil && *in.CertPassword != maskedSecret {
		p.CertificatePassword = *in.CertPassword
	}
	if in.ObligadoContabilidad != nil {
		switch strings.ToUpper(strings.TrimSpace(*in.ObligadoContabilidad)) {
		case "SI":
			p.RequiredAccounting = true
		case "NO":
			p.RequiredAccounting = false
		default:
			return fmt.Errorf("%w: obligado_contabilidad debe ser SI o NO", domain.ErrInvalidInput)
		}
	}
	return nil
}
