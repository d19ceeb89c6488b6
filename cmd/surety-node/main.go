package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	grpcMiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcZap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpcRecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpcCtxTags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	grpcPrometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/goodnatureofminers/flightsurety-backend/internal/archive"
	"github.com/goodnatureofminers/flightsurety-backend/internal/clock"
	"github.com/goodnatureofminers/flightsurety-backend/internal/eventlog"
	"github.com/goodnatureofminers/flightsurety-backend/internal/metrics"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/internal/repository/clickhouse"
	"github.com/goodnatureofminers/flightsurety-backend/internal/simulator"
	"github.com/goodnatureofminers/flightsurety-backend/internal/surety"
	"github.com/goodnatureofminers/flightsurety-backend/internal/transport"
)

type config struct {
	Owner          string `long:"owner" env:"FLIGHTSURETY_OWNER" description:"address of the contract owner" required:"true"`
	GenesisAirline string `long:"genesis-airline" env:"FLIGHTSURETY_GENESIS_AIRLINE" description:"address of the first airline" required:"true"`
	GenesisName    string `long:"genesis-name" env:"FLIGHTSURETY_GENESIS_NAME" description:"name of the first airline" default:"Genesis Airline"`

	GRPCAddr string `long:"grpc-addr" env:"FLIGHTSURETY_GRPC_ADDR" description:"gRPC health listen address" default:":8000"`
	RestAddr string `long:"rest-addr" env:"FLIGHTSURETY_REST_ADDR" description:"HTTP API and metrics listen address" default:":8001"`

	ClickhouseDSN      string        `long:"clickhouse-dsn" env:"FLIGHTSURETY_CLICKHOUSE_DSN" description:"ClickHouse DSN; enables the event archive when set"`
	ArchiveFlushSize   int           `long:"archive-flush-size" env:"FLIGHTSURETY_ARCHIVE_FLUSH_SIZE" description:"events per archive batch" default:"1000"`
	ArchiveFlushPeriod time.Duration `long:"archive-flush-period" env:"FLIGHTSURETY_ARCHIVE_FLUSH_PERIOD" description:"max time events wait before being archived" default:"2s"`

	Simulate          bool   `long:"simulate" env:"FLIGHTSURETY_SIMULATE" description:"run simulated oracles and enable the demo routes"`
	Seed              bool   `long:"seed" env:"FLIGHTSURETY_SEED" description:"bootstrap demo airlines, flights and oracles on start (implies --simulate)"`
	Oracles           int    `long:"oracles" env:"FLIGHTSURETY_ORACLES" description:"number of simulated oracles" default:"20"`
	DemoAirlines      int    `long:"demo-airlines" env:"FLIGHTSURETY_DEMO_AIRLINES" description:"demo airlines registered besides the genesis airline" default:"3"`
	FlightsPerAirline int    `long:"flights-per-airline" env:"FLIGHTSURETY_FLIGHTS_PER_AIRLINE" description:"demo flights per airline" default:"5"`
	FixedStatus       int    `long:"fixed-status" env:"FLIGHTSURETY_FIXED_STATUS" description:"status code every simulated oracle reports instead of a random one; negative picks at random" default:"-1"`
	Workers           int    `long:"workers" env:"FLIGHTSURETY_WORKERS" description:"simulator concurrency" default:"4"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()
	grpcZap.ReplaceGrpcLoggerV2(logger)

	if _, err := flags.Parse(&cfg); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("surety node failed", zap.Error(err))
	}
}

func parseAddress(name, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s %q is not a hex address", name, raw)
	}
	return common.HexToAddress(raw), nil
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	owner, err := parseAddress("owner", cfg.Owner)
	if err != nil {
		return err
	}
	genesis, err := parseAddress("genesis airline", cfg.GenesisAirline)
	if err != nil {
		return err
	}

	log := eventlog.New()
	ledger, err := surety.NewLedger(surety.Config{
		Owner:          owner,
		GenesisAirline: genesis,
		GenesisName:    cfg.GenesisName,
		Clock:          clock.System{},
	}, log, metrics.NewLedger(), logger)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	health := transport.NewHealth(ledger.IsOperational, log, logger)
	g.Go(func() error { return health.Run(ctx) })

	opts := []transport.Option{transport.WithHealth(health)}

	if cfg.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Error("failed to close clickhouse connection", zap.Error(err))
			}
		}()

		archiver := archive.NewArchiver(log, repo, metrics.NewArchive(), logger, archive.Config{
			RunID:         uuid.New(),
			FlushSize:     cfg.ArchiveFlushSize,
			FlushInterval: cfg.ArchiveFlushPeriod,
		})
		g.Go(func() error { return archiver.Run(ctx) })
		opts = append(opts, transport.WithHistory(repo))
	}

	if cfg.Simulate || cfg.Seed {
		var picker simulator.StatusPicker = simulator.NewRandomPicker(uint64(time.Now().UnixNano()))
		if cfg.FixedStatus >= 0 {
			status := model.StatusCode(cfg.FixedStatus)
			if cfg.FixedStatus > 255 || !status.Valid() {
				return fmt.Errorf("fixed status %d is not a known status code", cfg.FixedStatus)
			}
			picker = simulator.FixedPicker{Status: status}
		}

		oracles := simulator.NewOracles(ledger, log, picker, metrics.NewOracleSimulator(), logger, cfg.Oracles, cfg.Workers)
		seeder := simulator.NewSeeder(ledger, oracles, clock.System{}, logger, simulator.SeedConfig{
			Genesis:           genesis,
			Airlines:          cfg.DemoAirlines,
			FlightsPerAirline: cfg.FlightsPerAirline,
			Workers:           cfg.Workers,
		})
		if cfg.Seed {
			if _, err := seeder.All(ctx); err != nil {
				return fmt.Errorf("seed demo data: %w", err)
			}
		} else if _, err := oracles.Register(ctx); err != nil {
			return fmt.Errorf("register simulated oracles: %w", err)
		}
		g.Go(func() error { return oracles.Run(ctx) })
		opts = append(opts, transport.WithSeeder(seeder))
	}

	grpcServer := newGRPCServer(logger)
	healthpb.RegisterHealthServer(grpcServer, health.Server())
	grpcPrometheus.Register(grpcServer)

	socket, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	g.Go(func() error {
		logger.Info("starting gRPC server", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(socket)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down gRPC server")
		grpcServer.GracefulStop()
		return nil
	})

	gw := gwruntime.NewServeMux()
	if err := transport.NewHandler(ledger, log, logger, opts...).Register(gw); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", gw)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.RestAddr,
		Handler:           cors.AllowAll().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("addr", cfg.RestAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newGRPCServer(logger *zap.Logger) *grpc.Server {
	chain := []grpc.UnaryServerInterceptor{
		grpcRecovery.UnaryServerInterceptor(),
		grpcCtxTags.UnaryServerInterceptor(),
		grpcPrometheus.UnaryServerInterceptor,
		grpcZap.UnaryServerInterceptor(logger),
	}
	streamChain := []grpc.StreamServerInterceptor{
		grpcRecovery.StreamServerInterceptor(),
		grpcCtxTags.StreamServerInterceptor(),
		grpcPrometheus.StreamServerInterceptor,
		grpcZap.StreamServerInterceptor(logger),
	}
	grpcPrometheus.EnableHandlingTimeHistogram()
	return grpc.NewServer(
		grpc.UnaryInterceptor(grpcMiddleware.ChainUnaryServer(chain...)),
		grpc.StreamInterceptor(grpcMiddleware.ChainStreamServer(streamChain...)),
	)
}
