// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/volunteerhub/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Redis         redis.UniversalClient // nil when redis_addr is blank

	// Background work started by BuildHandler and stopped by Shutdown.
	bg *background
}

type background struct {
	cleanup  *workers.SessionCleanup
	limiters []*ratelimit.Limiter // in-memory limiters, when Redis is not used
}
