package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Eridaras/SistemaMedico/pkg/config"
	"github.com/Eridaras/SistemaMedico/pkg/jwt"
)

// newTokenCmd emite tokens de servicio firmados con JWT_SECRET. La API no
// gestiona usuarios; el rol viaja en el token.
func newTokenCmd() *cobra.Command {
	var (
		userID    string
		companyID string
		role      string
		minutes   int
	)
	c := &cobra.Command{
		Use:   "token",
		Short: "Emitir un token Bearer para la API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !jwt.ValidRole(role) {
				return fmt.Errorf("rol %q no válido (admin | facturador | auditor)", role)
			}
			cfg := config.FromViper(envViper())
			if minutes <= 0 {
				minutes = cfg.JWT.Expiration
			}
			id := jwt.Identity{UserID: userID, CompanyID: companyID, Role: role}
			token, err := jwt.Generate(cfg.JWT.Secret, cfg.JWT.Issuer, id, time.Duration(minutes)*time.Minute)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	c.Flags().StringVar(&userID, "user", "", "Identificador del usuario")
	c.Flags().StringVar(&companyID, "company", "", "Identificador de la empresa")
	c.Flags().StringVar(&role, "role", "facturador", "Rol: admin, facturador o auditor")
	c.Flags().IntVar(&minutes, "minutos", 0, "Vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	_ = c.MarkFlagRequired("user")
	return c
}
