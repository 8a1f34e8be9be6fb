package global

import (
	"context"
	"os"
	"strconv"

	"github.com/Kesh3805/job-portal/data/database/mgo/mongoutil"
	"github.com/Kesh3805/job-portal/logger"
	mgoSrv "github.com/Kesh3805/job-portal/service/mgo"
	redis "github.com/Kesh3805/job-portal/service/storage/redis"
	ids "github.com/Kesh3805/job-portal/tools/ids"
)

func ConfigAll(ctx context.Context) {
	ConfigIds()
	ConfigRedis()
	ConfigMgo(ctx)
}

func ConfigIds() {
	node := int64(1)
	if v := os.Getenv("NODE_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			node = n
		}
	}
	ids.SetNodeID(node)
}

func JwtSecret() []byte {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		return []byte(v)
	}
	// dev fallback only
	return []byte("job-portal-dev-secret")
}

func ConfigRedis() {
	cfg := redis.Config{
		Addr:     envOr("REDIS_ADDR", "127.0.0.1:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	}
	if err := redis.InitRedis(cfg); err != nil {
		// presence mirror is best-effort; the gateway runs without it
		logger.Warnf("[config] redis init failed: %v", err)
	}
}

func ConfigMgo(ctx context.Context) {
	cfg := &mongoutil.Config{
		Uri:         envOr("MONGO_URI", "mongodb://localhost:27017"),
		Database:    envOr("MONGO_DB", "jobportal"),
		Username:    os.Getenv("MONGO_USER"),
		Password:    os.Getenv("MONGO_PASSWORD"),
		MaxPoolSize: 20,
	}
	mgoSrv.StartAsync(ctx, cfg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
