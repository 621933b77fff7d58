package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/ansaralyh/AX-server/internal/application"
	"github.com/ansaralyh/AX-server/internal/common/config"
	"github.com/ansaralyh/AX-server/internal/common/db"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/common/middleware"
	"github.com/ansaralyh/AX-server/internal/common/server"
	"github.com/ansaralyh/AX-server/internal/common/tracing"
	"github.com/ansaralyh/AX-server/internal/docstore"
	"github.com/ansaralyh/AX-server/internal/notify"
	"github.com/ansaralyh/AX-server/internal/shift"
	"github.com/ansaralyh/AX-server/internal/trip"
	"github.com/ansaralyh/AX-server/internal/user"
	"github.com/ansaralyh/AX-server/internal/vehicle"
	"github.com/go-chi/chi/v5"
)

var (
	configPath = flag.String("config", "configs/api-server.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 数据库
	gdb, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := gdb.AutoMigrate(
		&user.User{},
		&application.Application{},
		&shift.Shift{},
		&trip.Trip{},
		&vehicle.Vehicle{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	// 文件与邮件
	docs, err := docstore.NewDiskStore(cfg.Upload.Dir)
	if err != nil {
		log.Fatalf("failed to init document store: %v", err)
	}
	mailer := notify.NewMailer(cfg.SMTP, log)

	// 领域服务
	userStore := user.NewRepo(gdb)
	userSvc := user.NewService(userStore, mailer, cfg.Auth, log)
	appSvc := application.NewService(application.NewRepo(gdb), userStore, docs, mailer, log)
	vehicleStore := vehicle.NewRepo(gdb)
	vehicleSvc := vehicle.NewService(vehicleStore, log)
	shiftSvc := shift.NewService(shift.NewRepo(gdb), log)
	tripSvc := trip.NewService(trip.NewRepo(gdb), shiftSvc, vehicleStore, log)

	handler := buildRouter(cfg, log,
		user.NewHandler(userSvc, log),
		application.NewHandler(appSvc, log),
		shift.NewHandler(shiftSvc, log),
		trip.NewHandler(tripSvc, log),
		vehicle.NewHandler(vehicleSvc, log),
	)

	if err := server.RunHTTPServer(cfg, log, handler); err != nil {
		log.Fatalf("api-server exited with error: %v", err)
	}
}

// buildRouter 组装中间件链与各域路由。
// 角色分组：司机走 /shifts /trips，管理员走 /drivers /users /vehicles。
func buildRouter(
	cfg *config.Config,
	log logger.Logger,
	userH *user.Handler,
	appH *application.Handler,
	shiftH *shift.Handler,
	tripH *trip.Handler,
	vehicleH *vehicle.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(server.Recovery(log))
	r.Use(server.Tracing(cfg.Server.Name))
	r.Use(server.AccessLog(log))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewLimiter(
			cfg.RateLimit.Strategy,
			cfg.RateLimit.Capacity,
			cfg.RateLimit.RefillRate,
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		)
		r.Use(server.RateLimit(limiter))
	}
	r.Use(server.JWTAuth(cfg.Auth, log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		server.RespondMessage(w, http.StatusOK, true, "ok")
	})

	userH.RegisterAuthRoutes(r)
	appH.RegisterPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(server.RequireRoles(string(user.RoleDriver)))
		shiftH.RegisterRoutes(r)
		tripH.RegisterRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(server.RequireRoles(string(user.RoleAdmin), string(user.RoleSuperAdmin)))
		userH.RegisterAdminRoutes(r)
		appH.RegisterAdminRoutes(r)
		vehicleH.RegisterRoutes(r)
	})

	return r
}
