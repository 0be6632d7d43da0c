package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/floodgatehq/floodgate/internal/auth"
	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/server"
	"github.com/floodgatehq/floodgate/internal/service"
)

const banner = `
  ___ _              _            _
 | __| |___  ___  __| |__ _ __ _| |_ ___
 | _|| / _ \/ _ \/ _` + "`" + ` / _` + "`" + `/ _` + "`" + ` |  _/ -_)
 |_| |_\___/\___/\__,_\__, \__,_|\__\___|
                      |___/
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Floodgate API server",
		Long:  "Start the HTTP server that exposes authentication, API key management, the service registry, and the admin API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging, ephemeral JWT secret)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging, dev)

	// 1. Resolve the JWT signing secret. Env wins over file; a missing
	// secret is fatal outside dev mode so restarts never silently rotate
	// every outstanding session.
	jwtSecret := viper.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		jwtSecret = cfg.Auth.JWTSecret
	}
	if jwtSecret == "" {
		if !dev {
			return fmt.Errorf("auth.jwt_secret is not set (set it in floodgate.yaml or FLOODGATE_AUTH_JWT_SECRET)")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate dev secret: %w", err)
		}
		jwtSecret = hex.EncodeToString(buf)
		logger.Warn("using ephemeral JWT secret, all tokens die with this process")
	}

	// 2. Open the backing store and run migrations.
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	logger.Info("store ready", "driver", cfg.Store.Driver)

	// 3. Wire services.
	tokens := auth.NewTokenServiceTTL(jwtSecret,
		parseDuration(cfg.Auth.AccessExpiry, auth.AccessTokenTTL),
		parseDuration(cfg.Auth.RefreshExpiry, auth.RefreshTokenTTL),
	)
	authSvc := service.NewAuthService(st, tokens, logger)
	keySvc := service.NewAPIKeyService(st, logger)

	// 4. First-run hint: no admin account yet.
	if users, err := st.ListUsers(context.Background()); err == nil {
		hasAdmin := false
		for _, u := range users {
			if u.Role == model.RoleAdmin && u.IsActive {
				hasAdmin = true
				break
			}
		}
		if !hasAdmin {
			logger.Warn("no admin account found - run: floodgate user create --admin")
		}
	}

	// 5. Build and start the HTTP server.
	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: parseDuration(cfg.Server.ShutdownTimeout, 30*time.Second),
		CORSOrigins:     cfg.Server.CORS.Origins,
		AuthRateLimit:   cfg.Auth.RateLimit,
	}
	if len(srvCfg.CORSOrigins) == 0 {
		srvCfg.CORSOrigins = []string{"*"}
	}

	srv := server.New(srvCfg, st, authSvc, keySvc, logger)

	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", host, port)
	fmt.Printf("→ API:     http://%s:%d/api\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}
