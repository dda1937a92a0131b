package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Die Heim-Institution, deren Autoren die autorenzentrischen Relationen bilden.
	HomeInstitutionID string `envconfig:"HOME_INSTITUTION_ID" default:"https://openalex.org/I2799468983"`

	// Kanonisches Präfix für Paper-IDs; IDs ohne Präfix werden ergänzt.
	IDPrefix string `envconfig:"OPENALEX_ID_PREFIX" default:"https://openalex.org/"`

	// Mindest-Score, ab dem ein Konzept in die Topic-Aggregation einfließt.
	ConceptMinScore float64 `envconfig:"CONCEPT_MIN_SCORE" default:"0.5"`

	RefreshWorkers   int    `envconfig:"REFRESH_WORKERS" default:"4"`
	RefreshBatchSize int    `envconfig:"REFRESH_BATCH_SIZE" default:"500"`
	CronSchedule     string `envconfig:"CRON_SCHEDULE" default:"0 2 * * *"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
