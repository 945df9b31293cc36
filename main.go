package main

import (
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"rivo-reminders/api"
	"rivo-reminders/domain"
	"rivo-reminders/mailer"
	"rivo-reminders/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	settingsTableName := os.Getenv("SETTINGS_TABLE")
	usersTableName := os.Getenv("USERS_TABLE")
	if connStr == "" || tasksTableName == "" || settingsTableName == "" || usersTableName == "" {
		log.Fatal("missing storage config")
	}
	anomalyQueueName := os.Getenv("ANOMALY_QUEUE")

	logger := log.New()
	store, err := storage.New(connStr, tasksTableName, settingsTableName, usersTableName, anomalyQueueName, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	mailerURL := os.Getenv("MAILER_URL")
	mailerToken := os.Getenv("MAILER_TOKEN")
	if mailerURL == "" || mailerToken == "" {
		log.Fatal("missing mailer config")
	}
	mail := mailer.New(mailerURL, mailerToken)

	appBase := os.Getenv("APP_BASE_URL")
	if appBase == "" {
		log.Fatal("missing APP_BASE_URL")
	}
	scheduleURL := strings.TrimRight(appBase, "/") + "/dashboard/maintenance"

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)
	guard := api.NewRedisDispatchGuard(rc, envDur("DISPATCH_GUARD_TTL", 6*time.Hour))

	pipeline := domain.NewPipeline(domain.PipelineConfig{
		Store:       store,
		Prefs:       store,
		Identities:  store,
		Sender:      mail,
		Guard:       guard,
		Anomalies:   store,
		ScheduleURL: scheduleURL,
		Workers:     envInt("REMINDER_WORKERS", 8),
		Logger:      logger,
	})

	e := api.NewServer(pipeline, os.Getenv("REMINDER_TRIGGER_TOKEN"), logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
