package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const defaultPath = "./config/local.yaml"

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"prod" validate:"oneof=local dev prod"`
	HTTPServer  `yaml:"http_server"`
	Storage     Storage    `yaml:"storage"`
	Roster      Roster     `yaml:"roster"`
	Validation  Validation `yaml:"validation"`
	AdminLogin  string     `yaml:"admin_login" env:"ADMIN_LOGIN" validate:"required"`
	AdminPass   string     `yaml:"admin_pass" env:"ADMIN_PASS" validate:"required"`
	CORSOrigins []string   `yaml:"cors_origins" env-default:"http://localhost:5173"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// MaxUploadMB caps the multipart body of a consolidation request.
	MaxUploadMB int64 `yaml:"max_upload_mb" env-default:"64" validate:"gt=0"`
}

// Storage selects the roster table backend. Path is only read for sqlite.
type Storage struct {
	Driver     string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite" validate:"oneof=mysql sqlite"`
	Path       string `yaml:"path" env-default:"./storage/kpi.db"`
	DBUser     string `yaml:"db_user" env:"DB_USER"`
	DBPassword string `yaml:"db_password" env:"DB_PASSWORD"`
	DBHost     string `yaml:"db_host" env-default:"localhost"`
	DBPort     int    `yaml:"db_port" env-default:"3306"`
	DBName     string `yaml:"db_name" env:"DB_NAME" validate:"required_if=Driver mysql"`
	ParseTime  bool   `yaml:"parse_time" env-default:"true"`
}

func (s Storage) DSN() string {
	if s.Driver == "sqlite" {
		return s.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=%v",
		s.DBUser,
		s.DBPassword,
		s.DBHost,
		s.DBPort,
		s.DBName,
		s.ParseTime,
	)
}

// Roster says where assignment rules come from: a csv/xlsx file or the roster table.
type Roster struct {
	Source string `yaml:"source" env:"ROSTER_SOURCE" env-default:"file" validate:"oneof=file db"`
	Path   string `yaml:"path" env:"ROSTER_PATH" env-default:"./data/roster.csv" validate:"required_if=Source file"`
}

type Validation struct {
	ExpectedFrom         string  `yaml:"expected_from" env-default:"2025-01-13" validate:"omitempty,datetime=2006-01-02"`
	ExpectedTo           string  `yaml:"expected_to" env-default:"2025-10-19" validate:"omitempty,datetime=2006-01-02"`
	UPDTMax              float64 `yaml:"updt_max" env-default:"50" validate:"gt=0"`
	RangeViolationsBlock bool    `yaml:"range_violations_block" env-default:"false"`
	MaxNullRatio         float64 `yaml:"max_null_ratio" env-default:"0.5" validate:"gte=0,lte=1"`
	Workers              int     `yaml:"workers" env-default:"4" validate:"gte=1"`
}

// Window returns the expected data window. Zero times mean the bound is not set.
func (v Validation) Window() (from, to time.Time, err error) {
	const op = "config.Validation.Window"

	if v.ExpectedFrom != "" {
		if from, err = time.Parse(time.DateOnly, v.ExpectedFrom); err != nil {
			return from, to, fmt.Errorf("%s: expected_from: %w", op, err)
		}
	}
	if v.ExpectedTo != "" {
		if to, err = time.Parse(time.DateOnly, v.ExpectedTo); err != nil {
			return from, to, fmt.Errorf("%s: expected_to: %w", op, err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("%s: expected_to %s is before expected_from %s", op, v.ExpectedTo, v.ExpectedFrom)
	}
	return from, to, nil
}

// Load reads the yaml at path, applies env overrides and validates the result.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	if _, _, err := cfg.Validation.Window(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func MustConfig() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}

	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return cfg
}
