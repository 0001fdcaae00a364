package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
)

var allStates = []entity.LifecycleState{
	entity.StateDraft, entity.StateGenerated, entity.StateSubmitted, entity.StateReceived,
	entity.StateAuthorized, entity.StateNotAuthorized, entity.StateError,
}

// AUTORIZADO no puede pasar a ningún otro estado.
func TestLifecycle_AutorizadoEsTerminal(t *testing.T) {
	for _, next := range allStates {
		assert.False(t, entity.StateAuthorized.CanTransitionTo(next),
			"AUTHORIZED no debe poder pasar a %s", next)
	}
}

func TestLifecycle_FlujoFeliz(t *testing.T) {
	path := []entity.LifecycleState{
		entity.StateDraft, entity.StateGenerated, entity.StateSubmitted,
		entity.StateReceived, entity.StateAuthorized,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanTransitionTo(path[i+1]), "%s → %s", path[i], path[i+1])
	}
}

func TestLifecycle_RegeneracionSoloDesdeRechazo(t *testing.T) {
	assert.True(t, entity.StateError.CanTransitionTo(entity.StateGenerated))
	assert.True(t, entity.StateNotAuthorized.CanTransitionTo(entity.StateGenerated))
	assert.False(t, entity.StateError.CanTransitionTo(entity.StateSubmitted), "ERROR no se reenvía con la misma clave")
	assert.False(t, entity.StateGenerated.CanTransitionTo(entity.StateAuthorized), "no se salta la recepción")
}

func TestLifecycle_Valid(t *testing.T) {
	for _, s := range allStates {
		assert.True(t, s.Valid())
	}
	assert.False(t, entity.LifecycleState("AUTORIZADA").Valid())
}
