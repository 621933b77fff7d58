package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/config"
	"github.com/ansaralyh/AX-server/internal/common/db"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/notify"
	"github.com/ansaralyh/AX-server/internal/user"
)

// admin-bootstrap 一次性创建 super-admin 账号。
// 只有持有配置里 setup_secret_key 的运维能执行，且已存在
// super-admin 时直接失败。
var (
	configPath = flag.String("config", "configs/api-server.json", "配置文件路径")
	secretKey  = flag.String("secret-key", "", "setup_secret_key")
	email      = flag.String("email", "", "super-admin 邮箱")
	password   = flag.String("password", "", "super-admin 初始密码")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

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
	if err := gdb.AutoMigrate(&user.User{}); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	svc := user.NewService(user.NewRepo(gdb), notify.NewMailer(cfg.SMTP, log), cfg.Auth, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := svc.BootstrapSuperAdmin(ctx, *secretKey, *email, *password)
	if err != nil {
		log.Fatalf("bootstrap super-admin: %v", err)
	}
	log.Infof("super-admin created: %s (%s)", u.Email, u.ID)
}
