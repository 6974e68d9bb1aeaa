package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/codesync/codesync-backend/config"
	"github.com/codesync/codesync-backend/internal/coordinator"
	"github.com/codesync/codesync-backend/internal/registry"
	"github.com/codesync/codesync-backend/internal/security"
	"github.com/codesync/codesync-backend/internal/service"
	"github.com/codesync/codesync-backend/internal/store"
	grpcx "github.com/codesync/codesync-backend/internal/transport/grpc"
	httpx "github.com/codesync/codesync-backend/internal/transport/http"
	"github.com/codesync/codesync-backend/internal/transport/ws"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, websocket and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting codesync",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	// spans are kept in-process; they give log lines a trace_id per ws message
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	signer, err := newSigner(cfg.Security.JWT)
	if err != nil {
		return err
	}

	srv := buildServers(cfg, st, signer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		err := srv.http.Run(gctx)
		srv.ws.CloseAll()
		return err
	})
	g.Go(func() error {
		return srv.grpc.Run(gctx)
	})

	err = g.Wait()
	slog.Info("stopped", "err", err)
	return err
}

type servers struct {
	http *httpx.Server
	grpc *grpcx.Server
	ws   *ws.Server
}

func buildServers(cfg *config.Config, st store.Store, signer *security.JWTSigner) servers {
	reg := registry.New()
	hub := ws.NewHub()
	coord := coordinator.New(st, reg, hub)

	authSvc := service.NewAuthService(st, signer, security.BcryptConfig{
		Cost:      cfg.Security.Password.BcryptCost,
		MinLength: cfg.Security.Password.MinLength,
	}, nil)
	roomSvc := service.NewRoomService(st, reg)

	wsServer := ws.NewServer(authSvc, coord, ws.Options{
		SendBuffer:     cfg.WS.SendBuffer,
		PingPeriod:     cfg.WS.PingPeriod,
		MaxMessageSize: cfg.WS.MaxMessageSize,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	router := httpx.NewRouter(httpx.Deps{
		Handler:        httpx.NewHandler(authSvc, roomSvc),
		Auth:           authSvc,
		WS:             wsServer.HandleWS,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	return servers{
		http: httpx.New(httpx.Config{
			Addr:            cfg.HTTP.Addr,
			ReadTimeout:     cfg.HTTP.ReadTimeout,
			IdleTimeout:     cfg.HTTP.IdleTimeout,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		}, router),
		grpc: grpcx.NewServer(cfg.GRPC.Addr, st, cfg.GRPC.ProbeEvery),
		ws:   wsServer,
	}
}

// newSigner builds the token signer. In dev an empty secret is replaced by a
// random one, which invalidates tokens on every restart.
func newSigner(cfg config.JWT) (*security.JWTSigner, error) {
	secret := cfg.Secret
	if secret == "" {
		s, err := security.RandomStringURLSafe(32)
		if err != nil {
			return nil, err
		}
		slog.Warn("security.jwt.secret is empty, using a random secret for this run")
		secret = s
	}
	return security.NewJWTSigner([]byte(secret), cfg.Issuer, cfg.TTL, cfg.ClockSkew), nil
}
