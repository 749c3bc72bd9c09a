package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hotel-booking/availability"
	"hotel-booking/database"
	"hotel-booking/handlers"
	"hotel-booking/middleware"
)

const demoHotels = 8

func main() {
	// 加载配置
	config, err := LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("配置加载失败")
	}
	setupLogging(config)

	// 设置Gin模式
	gin.SetMode(config.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	// 初始化数据库
	store, err := database.InitDatabase(ctx, database.Options{
		Driver:        config.DBDriver,
		Path:          config.DatabasePath,
		URL:           config.DatabaseURL,
		MongoDatabase: config.MongoDatabase,
	})
	if err != nil {
		cancel()
		logrus.WithError(err).Fatal("数据库初始化失败")
	}
	if err := database.EnsureAdmin(ctx, store, database.AdminAccount{
		Username: config.AdminUsername,
		Email:    config.AdminEmail,
		Password: config.AdminPassword,
	}); err != nil {
		cancel()
		logrus.WithError(err).Fatal("创建管理员账户失败")
	}
	if config.SeedDemo {
		if err := database.SeedDemo(ctx, store, demoHotels); err != nil {
			logrus.WithError(err).Warn("seeding demo catalog failed")
		}
	}

	var locker availability.Locker
	if config.RedisURL != "" {
		rdb, err := availability.DialRedis(ctx, config.RedisURL)
		if err != nil {
			cancel()
			logrus.WithError(err).Fatal("连接Redis失败")
		}
		defer rdb.Close()
		locker = availability.NewRedisLocker(rdb)
	}
	cancel()

	engine := availability.NewEngine(store, locker, config.LockTTL)
	jwt := middleware.NewJWT(config.JWTSecret, config.TokenTTL)
	r := handlers.NewRouter(handlers.New(store, engine, jwt, config.CookieSecure), config.CORSOrigins)

	srv := &http.Server{
		Addr:    config.ServerPort,
		Handler: r,
	}

	// 启动服务器
	go func() {
		logRoutes(config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("服务器启动失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("server shutdown")
	}
	if err := store.Close(shutdownCtx); err != nil {
		logrus.WithError(err).Error("closing store")
	}
}

func setupLogging(config *Config) {
	if config.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		logrus.WithField("level", config.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func logRoutes(port string) {
	logrus.Infof("服务器启动在端口 %s", port)
	logrus.Infof("健康检查: http://localhost%s/health", port)
	logrus.Info("API文档:")
	for _, line := range []string{
		"POST   /api/auth/register - 用户注册",
		"POST   /api/auth/login - 用户登录",
		"POST   /api/auth/logout - 退出登录",
		"GET    /api/hotel?city=&type=&featured=&min=&max=&limit= - 酒店列表",
		"GET    /api/hotel/countByCity?cities=a,b - 按城市统计",
		"GET    /api/hotel/countByType - 按类型统计",
		"GET    /api/hotel/find/:id - 酒店详情",
		"GET    /api/hotel/room/:id - 酒店的房间",
		"GET    /api/hotel/occupancy/:id - 导出入住详单(管理员)",
		"POST   /api/hotel - 创建酒店(管理员)",
		"PUT    /api/hotel/:id - 修改酒店(管理员)",
		"DELETE /api/hotel/:id - 删除酒店(管理员)",
		"GET    /api/room - 房间列表",
		"GET    /api/room/:id - 房间详情",
		"GET    /api/room/:id/availability?checkIn=&checkOut= - 查询空房",
		"PUT    /api/room/availability/:unitId - 标记入住日期",
		"POST   /api/room/reserve - 订房",
		"POST   /api/room/:hotelId - 创建房间(管理员)",
		"PUT    /api/room/:id - 修改房间(管理员)",
		"DELETE /api/room/:id?hotelId= - 删除房间(管理员)",
		"GET    /api/user - 用户列表(管理员)",
		"GET    /api/user/:id - 用户详情",
		"PUT    /api/user/:id - 修改用户",
		"DELETE /api/user/:id - 删除用户",
	} {
		logrus.Info("  " + line)
	}
}
