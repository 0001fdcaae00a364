package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	infrasri "github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
	"github.com/Eridaras/SistemaMedico/pkg/config"
)

// envViper lee las mismas variables que la API, sin validar el resto de la configuración.
func envViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func newPingCmd() *cobra.Command {
	var env string
	c := &cobra.Command{
		Use:   "ping",
		Short: "Comprobar disponibilidad de recepción y autorización del SRI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromViper(envViper())
			if env != "" {
				cfg.SRI.Environment = env
			}
			client := infrasri.NewSOAPClient(infrasri.ClientConfig{
				Environment:      cfg.SRI.Environment,
				ReceptionURL:     cfg.SRI.ReceptionURL,
				AuthorizationURL: cfg.SRI.AuthorizationURL,
				Timeout:          cfg.SRI.Timeout,
			}, zerolog.Nop())

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.SRI.Timeout)
			defer cancel()
			status := client.Ping(ctx)
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			for _, s := range status {
				if !s.Reachable {
					return fmt.Errorf("servicio %s no disponible", s.Service)
				}
			}
			return nil
		},
	}
	c.Flags().StringVar(&env, "ambiente", "", "Ambiente a consultar (por defecto SRI_ENVIRONMENT)")
	return c
}
