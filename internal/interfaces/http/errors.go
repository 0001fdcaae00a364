package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Eridaras/SistemaMedico/internal/application/dto"
	"github.com/Eridaras/SistemaMedico/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable orden de evaluación: el primer sentinel que coincide gana.
var errorTable = []errorMapping{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInvalidAccessKey, fiber.StatusBadRequest, "INVALID_ACCESS_KEY"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrNoActiveConfig, fiber.StatusConflict, "NO_ACTIVE_CONFIG"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrAlreadyAuthorized, fiber.StatusConflict, "ALREADY_AUTHORIZED"},
	{domain.ErrRegenerationRequired, fiber.StatusConflict, "REGENERATION_REQUIRED"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrArchiveConflict, fiber.StatusConflict, "ARCHIVE_CONFLICT"},
	{domain.ErrCertificateExpired, fiber.StatusUnprocessableEntity, "CERTIFICATE_EXPIRED"},
	{domain.ErrCertificateNotYetValid, fiber.StatusUnprocessableEntity, "CERTIFICATE_NOT_YET_VALID"},
	{domain.ErrSigningConfig, fiber.StatusUnprocessableEntity, "SIGNING_CONFIG"},
	{domain.ErrSignatureInvalid, fiber.StatusUnprocessableEntity, "SIGNATURE_INVALID"},
	{domain.ErrTransport, fiber.StatusServiceUnavailable, "SRI_UNAVAILABLE"},
	{domain.ErrAuthorityFault, fiber.StatusBadGateway, "SRI_FAULT"},
	{domain.ErrChecksumMismatch, fiber.StatusInternalServerError, "CHECKSUM_MISMATCH"},
	{domain.ErrArchive, fiber.StatusInternalServerError, "ARCHIVE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
}

// statusFor traduce un error de dominio a status HTTP y código.
func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError responde con dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}
