package cli

import (
	"fmt"

	"airecruiter/internal/config"
	"airecruiter/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for candidates and recruiters.

Candidates upload a CV to POST /applications and continue the interview with
POST /sessions/{id}/messages. Recruiters manage the job description at
/job-description, list uploads at GET /candidates and request a fit report
with POST /candidates/{id}/report.

TLS:
- --tls-mode disabled or server
- --cert-file and --key-file point to the PEM pair`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd.Flags())
}

func addServeFlags(flags *pflag.FlagSet) {
	flags.StringP("port", "p", "", "Port to listen on (default from config)")
	flags.String("host", "", "Host to bind to (default from config)")
	flags.String("tls-mode", "", "TLS mode: disabled or server (overrides config)")
	flags.String("cert-file", "", "Server certificate file (PEM, overrides config)")
	flags.String("key-file", "", "Server private key file (PEM, overrides config)")
	flags.String("job-file", "", "Job description file (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	applyServeFlags(cmd.Flags(), cfg)

	tempConfig := &config.Config{Server: cfg.Server}
	if err := tempConfig.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	a, err := newApp(cmd.Context(), cfg, logger, appOptions{Watch: true, Observability: true})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, a.service, a.models(), a.obs, logger).Start(cmd.Context())
}

// applyServeFlags copies explicitly set flags over the loaded config,
// which is read before cobra parses flags.
func applyServeFlags(flags *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	set("port", &cfg.Server.Port)
	set("host", &cfg.Server.Host)
	set("tls-mode", &cfg.Server.TLS.Mode)
	set("cert-file", &cfg.Server.TLS.CertFile)
	set("key-file", &cfg.Server.TLS.KeyFile)
	set("job-file", &cfg.JobDescription.File)
}
