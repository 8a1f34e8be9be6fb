package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kesh3805/job-portal/global"
	"github.com/Kesh3805/job-portal/logger"
	mid "github.com/Kesh3805/job-portal/middleware"
	"github.com/Kesh3805/job-portal/module/chat/api"
	"github.com/Kesh3805/job-portal/module/chat/store"
	"github.com/Kesh3805/job-portal/module/user"
	usermodel "github.com/Kesh3805/job-portal/module/user/model"
	mgoSrv "github.com/Kesh3805/job-portal/service/mgo"
	"github.com/Kesh3805/job-portal/service/notify"
	rds "github.com/Kesh3805/job-portal/service/storage/redis"
	security "github.com/Kesh3805/job-portal/tools/security"
	"github.com/gin-gonic/gin"

	"github.com/Kesh3805/job-portal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global.ConfigAll(ctx)

	gwID := os.Getenv("GATEWAY_ID")
	if gwID == "" {
		gwID = "jb-gw-1"
	}

	wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := mgoSrv.WaitReady(wctx); err != nil {
		cancel()
		log.Fatalf("mongo not ready: %v", err)
	}
	cancel()
	db := mgoSrv.GetDB()

	st := store.NewStore(db)
	if err := st.EnsureIndexes(ctx); err != nil {
		logger.Warnf("[boot] ensure indexes failed: %v", err)
	}
	dir := usermodel.NewDirectory(db)

	jwtOpts := security.DefaultOptions(global.JwtSecret())
	rt := chat.NewServer(gwID, chat.ServerConf{}, st, st, dir, jwtOpts)
	nd := notify.NewDispatcher(st, rt)
	rt.SetNotifier(nd)

	h := api.NewHandlers(st, nd, rt)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/chat", rt.HandleWS) // ws://host:8080/chat
	mid.POST(r, "/api/login", user.HandlerLogin(dir), mid.RouteOpt{IsAuth: false})

	auth := mid.RouteOpt{IsAuth: true, Secret: global.JwtSecret()}
	mid.GET(r, "/api/conversations", h.ListConversations, auth)
	mid.POST(r, "/api/conversations", h.CreateConversation, auth)
	mid.GET(r, "/api/conversations/:id/messages", h.ListMessages, auth)
	mid.GET(r, "/api/notifications", h.ListNotifications, auth)
	mid.POST(r, "/api/notifications/:id/read", h.MarkNotificationRead, auth)
	mid.POST(r, "/api/notifications/read-all", h.MarkAllNotificationsRead, auth)
	mid.GET(r, "/api/online-users", h.OnlineUsers, auth)
	mid.GET(r, "/api/users/:id/presence", h.UserPresence, auth)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Infof("[boot] gateway %s listening on %s", gwID, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("[boot] shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)

	rt.Close()
	rds.CloseRedis()
}
