package repository

import (
	"context"

	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
)

// IssuerProfileRepository define el puerto de persistencia para la configuración SRI del emisor.
type IssuerProfileRepository interface {
	// GetActive devuelve el perfil activo; nil, nil si no hay ninguno.
	GetActive(ctx context.Context) (*entity.IssuerProfile, error)

	// NextSequence incrementa el secuencial del perfil activo en una sola sentencia
	// y devuelve el perfil con CurrentSequence ya incrementado. Es la única forma de
	// obtener un secuencial: dos llamadas concurrentes nunca reciben el mismo valor.
	NextSequence(ctx context.Context) (*entity.IssuerProfile, error)

	Create(ctx context.Context, p *entity.IssuerProfile) error

	// Update modifica los datos del emisor. Nunca toca CurrentSequence.
	Update(ctx context.Context, p *entity.IssuerProfile) error
}
