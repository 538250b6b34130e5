package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/tendant/simple-media/migrations"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL" env-default:""`
	DB          DbConfig
}

// DbConfig assembles a connection string from discrete variables when
// DATABASE_URL is not set.
type DbConfig struct {
	Port     uint16 `env:"MEDIA_PG_PORT" env-default:"5432"`
	Host     string `env:"MEDIA_PG_HOST" env-default:"localhost"`
	Name     string `env:"MEDIA_PG_NAME" env-default:"media_db"`
	User     string `env:"MEDIA_PG_USER" env-default:"media"`
	Password string `env:"MEDIA_PG_PASSWORD" env-default:"pwd"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func main() {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	databaseURL := config.DatabaseURL
	if databaseURL == "" {
		databaseURL = config.DB.toDatabaseUrl()
	}
	command := flag.String("command", "up", "goose command: up, down, status")
	flag.Parse()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Bridge the pgx pool to the database/sql interface goose expects.
	db := stdlib.OpenDBFromPool(pool)

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&slogAdapter{slog.Default()})
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	switch *command {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "status":
		err = goose.StatusContext(ctx, db, ".")
	default:
		log.Fatalf("Unknown command: %s", *command)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", *command, err)
	}
}

type slogAdapter struct {
	log *slog.Logger
}

func (a *slogAdapter) Printf(format string, args ...any) {
	a.log.Info(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Fatalf(format string, args ...any) {
	a.log.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
