// Command rb-server starts the recipebook backend: auth, documents with live
// snapshots and blobs over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/recipebook/internal/api"
	"github.com/and161185/recipebook/internal/blobstore"
	blobmem "github.com/and161185/recipebook/internal/blobstore/memory"
	blobs3 "github.com/and161185/recipebook/internal/blobstore/s3"
	"github.com/and161185/recipebook/internal/config"
	"github.com/and161185/recipebook/internal/docstore"
	docmem "github.com/and161185/recipebook/internal/docstore/memory"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/limiter"
	"github.com/and161185/recipebook/internal/migrate"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/projection"
	"github.com/and161185/recipebook/internal/repository"
	repomem "github.com/and161185/recipebook/internal/repository/memory"
	"github.com/and161185/recipebook/internal/repository/postgres"
	grpcserver "github.com/and161185/recipebook/internal/server/grpc"
	"github.com/and161185/recipebook/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// backend is what the selected store mode provides.
type backend struct {
	docs   docstore.Store
	users  repository.UserRepository
	resets repository.ResetTokenRepository
	lim    limiter.Limiter
	// listen feeds live subscriptions from the database; nil for memory.
	listen func(ctx context.Context) error
	close  func()
}

// main loads configuration, wires stores and services, and serves until SIGINT/SIGTERM.
func main() {
	// Flags override the config file.
	cfgPath := flag.String("config", "", "TOML config file")
	addr := flag.String("addr", "", "listen address")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (selects the postgres store)")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key")
	plaintext := flag.Bool("plaintext", false, "serve without TLS (dev only)")
	dev := flag.Bool("dev", false, "enable server reflection (dev only)")
	debug := flag.Bool("debug", false, "development logging")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addr
		case "dsn":
			cfg.Store.Backend, cfg.Store.DSN = config.BackendPostgres, *dsn
		case "jwt-key":
			cfg.Auth.JWTKey = *jwtKey
		case "plaintext":
			cfg.Server.Plaintext = *plaintext
		case "dev":
			cfg.Server.Reflection = *dev
		case "debug":
			cfg.Log.Debug = *debug
		}
	})

	logger, _ := zap.NewProduction()
	if cfg.Log.Debug {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
		zap.String("store", cfg.Store.Backend),
		zap.String("blobs", cfg.Blobs.Backend),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer be.close()

	blobs, err := openBlobs(ctx, cfg.Blobs)
	if err != nil {
		logger.Fatal("open blobs", zap.Error(err))
	}

	if err := seedAdmins(ctx, be.docs, cfg.Auth.Admins); err != nil {
		logger.Fatal("seed admins", zap.Error(err))
	}

	roles, err := policy.NewRoleResolver(be.docs, cfg.Auth.RoleCache)
	if err != nil {
		logger.Fatal("role cache", zap.Error(err))
	}

	key := []byte(cfg.Auth.JWTKey)
	authSvc := service.NewAuthService(be.users, be.resets, service.LogMailer{Log: logger}, key, cfg.Auth.AccessTTL.Std(), be.lim)
	app := grpcserver.New(authSvc, be.docs, blobs, roles, key, logger)

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			app.AuthUnary(),
		),
		grpc.ChainStreamInterceptor(
			grpcserver.RecoverStream(logger),
			grpcserver.LoggingStream(logger),
			app.AuthStream(),
		),
	}
	if !cfg.Server.Plaintext {
		creds, err := credentials.NewServerTLSFromFile(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)
	api.RegisterBackendServer(s, app)

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if cfg.Server.Reflection {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.Bool("tls", !cfg.Server.Plaintext))
		return s.Serve(lis)
	})
	if be.listen != nil {
		g.Go(func() error { return be.listen(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		hs.Shutdown()
		// graceful shutdown
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (*backend, error) {
	p := limiter.Policy{
		Window:   cfg.Limiter.Window.Std(),
		MaxFails: cfg.Limiter.MaxFails,
		BlockFor: cfg.Limiter.BlockFor.Std(),
	}
	if cfg.Store.Backend == config.BackendMemory {
		lim, err := limiter.NewMemory(cfg.Limiter.Size, p)
		if err != nil {
			return nil, err
		}
		log.Warn("in-memory store: data is lost on exit")
		return &backend{
			docs:   docmem.New(),
			users:  repomem.NewUserRepo(),
			resets: repomem.NewResetTokenRepo(),
			lim:    lim,
			close:  func() {},
		}, nil
	}

	if err := migrate.Up(ctx, cfg.Store.DSN, log); err != nil {
		return nil, err
	}
	db, err := postgres.New(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	docs := postgres.NewDocumentStore(db, log)
	return &backend{
		docs:   docs,
		users:  postgres.NewUserRepo(db),
		resets: postgres.NewResetTokenRepo(db),
		lim:    limiter.NewPG(db.Pool, p),
		listen: func(ctx context.Context) error { return listen(ctx, cfg.Store.DSN, docs, log) },
		close:  db.Close,
	}, nil
}

// listen keeps a dedicated LISTEN connection open, reconnecting with backoff.
// Subscribers are resynced on every connect.
func listen(ctx context.Context, dsn string, docs *postgres.DocumentStore, log *zap.Logger) error {
	b := retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			log.Warn("notify connection", zap.Error(err))
			return retry.RetryableError(err)
		}
		defer func() { _ = conn.Close(context.Background()) }()
		if err := docs.Listen(ctx, conn); err != nil {
			log.Warn("notification listener stopped", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// seedAdmins gives each email the admin role, creating its profile if needed.
func seedAdmins(ctx context.Context, docs docstore.Store, admins []string) error {
	for _, email := range admins {
		patch := model.Fields{projection.FieldRole: string(model.RoleAdmin)}
		err := docs.Update(ctx, model.CollectionUsers, email, patch)
		if errors.Is(err, errs.ErrNotFound) {
			p := model.UserProfile{Email: email, Role: model.RoleAdmin}
			err = docs.Set(ctx, model.CollectionUsers, email, projection.ProfileFields(p))
		}
		if err != nil {
			return fmt.Errorf("%s: %w", email, err)
		}
	}
	return nil
}

func openBlobs(ctx context.Context, c config.BlobConfig) (blobstore.Store, error) {
	if c.Backend == config.BackendS3 {
		return blobs3.New(ctx, blobs3.Config{
			Bucket:        c.Bucket,
			Region:        c.Region,
			Endpoint:      c.Endpoint,
			AccessKey:     c.AccessKey,
			SecretKey:     c.SecretKey,
			PublicBaseURL: c.PublicBaseURL,
			PresignTTL:    c.PresignTTL.Std(),
		})
	}
	return blobmem.New(c.PublicBaseURL), nil
}
