package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/kbukum/faultkit/convert"
	apperrors "github.com/kbukum/faultkit/errors"
	"github.com/kbukum/faultkit/grpc/client"
	"github.com/kbukum/faultkit/grpc/interceptor"
	"github.com/kbukum/faultkit/handler"
	"github.com/kbukum/faultkit/logger"
	"github.com/kbukum/faultkit/observability"
	"github.com/kbukum/faultkit/resilience"
	"github.com/kbukum/faultkit/server"
	"github.com/kbukum/faultkit/server/middleware"
	"github.com/kbukum/faultkit/validation"
)

const gamesService = "games"

type app struct {
	cfg       Config
	log       *logger.Logger
	httpChain *middleware.HTTPChain
	grpcChain *interceptor.GRPCChain
	limiters  *resilience.Limiters
	games     *gameStore

	http     *server.Server
	grpc     *grpc.Server
	health   *health.Server
	upstream *grpc.ClientConn
	grpcLn   net.Listener
}

func newApp(cfg Config, log *logger.Logger, metrics *observability.Metrics) (*app, error) {
	classifier := convert.NewClassifier(convert.TokenRule, convert.StorageRule, middleware.BodyTooLargeRule)
	opts := []handler.Option{
		handler.WithLogger(log),
		handler.WithMetrics(metrics),
		handler.WithClassifier(classifier),
		handler.WithExposeDetail(cfg.Errors.ExposeDetail),
	}

	api, batch := cfg.Resilience.LimiterConfigs()
	a := &app{
		cfg:       cfg,
		log:       log.WithComponent("faultdemo"),
		httpChain: handler.NewHTTPChain(opts...),
		grpcChain: handler.NewGRPCChain(opts...),
		limiters:  resilience.NewLimiters(metrics.ObserveLimiter(api), metrics.ObserveLimiter(batch)),
		games: newGameStore(
			resilience.NewBulkhead(resilience.BulkheadConfig{
				Name:          gamesService,
				MaxConcurrent: cfg.Games.MaxConcurrent,
				MaxWait:       cfg.Games.MaxWait,
			}),
			metrics.ObservePolicy(cfg.Resilience.Policy("storage")),
		),
		health: health.NewServer(),
	}

	a.grpc = grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.GRPC.MaxRecvMsgSize),
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryServerErrors(a.grpcChain),
			interceptor.UnaryServerRateLimit(a.limiters, interceptor.BatchMethods(cfg.GRPC.BatchMethods...), a.grpcChain),
		),
		grpc.ChainStreamInterceptor(
			interceptor.StreamServerErrors(a.grpcChain),
			interceptor.StreamServerRateLimit(a.limiters, interceptor.BatchMethods(cfg.GRPC.BatchMethods...), a.grpcChain),
		),
	)
	a.health.SetServingStatus(gamesService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(a.grpc, a.health)

	upstream, err := client.NewClient(gamesService, cfg.Upstream,
		metrics.ObservePolicy(cfg.Resilience.Policy(cfg.Upstream.RetryPolicy)), log)
	if err != nil {
		return nil, fmt.Errorf("creating upstream client: %w", err)
	}
	a.upstream = upstream

	a.http = server.New(cfg.Server, log)
	a.http.ApplyMiddleware(a.httpChain, a.limiters)
	a.http.RegisterHealth(cfg.Name)
	if !cfg.GRPC.Enabled {
		a.http.Handle("/"+healthpb.Health_ServiceDesc.ServiceName+"/", a.grpc)
	}
	a.routes(a.http.GinEngine())
	return a, nil
}

func (a *app) routes(r *gin.Engine) {
	r.GET("/ready", a.ready)

	games := r.Group("/games")
	games.GET("", a.listGames)
	games.GET("/active", a.activeGame)
	games.GET("/:id", a.getGame)

	secret := []byte(a.cfg.Auth.Secret)
	write := games.Group("", middleware.Auth(middleware.AuthConfig{
		KeyFunc:       func(*jwt.Token) (interface{}, error) { return secret, nil },
		ParserOptions: []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})},
	}, a.httpChain))
	write.POST("", a.createGame)
	write.POST("/:id/start", a.startGame)

	r.POST("/batch/export", a.exportGames)
}

type createGameRequest struct {
	Name string `json:"name" binding:"required,max=64"`
	Mode string `json:"mode" binding:"required"`
}

func (a *app) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	if err := validation.New().OneOf("mode", req.Mode, gameModes).Err(); err != nil {
		_ = c.Error(err)
		return
	}

	g, err := a.games.Create(c.Request.Context(), req.Name, req.Mode)
	if err != nil {
		_ = c.Error(err)
		return
	}
	server.RespondCreated(c, g)
}

// bindError leaves field failures and oversized bodies to the chain and
// reports any other decode failure as BAD_REQUEST.
func bindError(err error) error {
	var (
		verrs    validator.ValidationErrors
		tooLarge *http.MaxBytesError
	)
	if errors.As(err, &verrs) || errors.As(err, &tooLarge) {
		return err
	}
	return apperrors.Wrap(apperrors.KindBadRequest, "Malformed request body", err)
}

func (a *app) getGame(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), "games.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, err := validation.ParseUUID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, a.httpChain, err)
		return
	}
	g, err := a.games.Get(ctx, id)
	if err != nil {
		server.RespondWithError(c, a.httpChain, err)
		return
	}
	server.RespondOK(c, g)
}

func (a *app) startGame(c *gin.Context) {
	id, err := validation.ParseUUID("id", c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	g, err := a.games.Start(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	server.RespondOK(c, g)
}

func (a *app) activeGame(c *gin.Context) {
	g, err := a.games.Active(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	server.RespondOK(c, g)
}

func (a *app) listGames(c *gin.Context) {
	all, err := a.games.All(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	server.RespondOKWithMeta(c, all, &server.Meta{Total: len(all)})
}

func (a *app) exportGames(c *gin.Context) {
	all, err := a.games.All(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": all})
}

// ready checks the games health service through the upstream client, so a
// failure arrives as EXTERNAL_SERVICE_* like any other remote fault.
func (a *app) ready(c *gin.Context) {
	resp, err := healthpb.NewHealthClient(a.upstream).Check(c.Request.Context(),
		&healthpb.HealthCheckRequest{Service: gamesService})
	if err != nil {
		_ = c.Error(err)
		return
	}
	server.RespondOK(c, gin.H{"status": resp.GetStatus().String()})
}

func (a *app) start(ctx context.Context) error {
	if a.cfg.GRPC.Enabled {
		ln, err := net.Listen("tcp", a.cfg.GRPC.Address())
		if err != nil {
			return fmt.Errorf("grpc server failed to bind %s: %w", a.cfg.GRPC.Address(), err)
		}
		a.grpcLn = ln
		go func() {
			if err := a.grpc.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				a.log.Error("gRPC server error", logger.Fields(logger.FieldError, err.Error()))
			}
		}()
		a.log.Info("gRPC server started", logger.Fields("addr", ln.Addr().String()))
	}
	return a.http.Start(ctx)
}

func (a *app) stop(ctx context.Context) error {
	a.health.Shutdown()
	err := a.http.Stop(ctx)
	if a.grpcLn != nil {
		a.grpc.GracefulStop()
	} else {
		a.grpc.Stop()
	}
	if cerr := a.upstream.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
