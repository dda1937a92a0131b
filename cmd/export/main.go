package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"khcc-bibliometrics/storage"
)

// ExportConfig konfiguriert den Relation-Export unabhängig vom Service.
type ExportConfig struct {
	PostgresHost     string `envconfig:"POSTGRES_HOST" required:"true"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" required:"true"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	PostgresDB       string `envconfig:"POSTGRES_DB" required:"true"`
	ExportBucket     string `envconfig:"EXPORT_S3_BUCKET" required:"true"`
	ExportEndpoint   string `envconfig:"EXPORT_S3_ENDPOINT" required:"true"`
	ExportAccessKey  string `envconfig:"EXPORT_S3_ACCESS_KEY" required:"true"`
	ExportSecretKey  string `envconfig:"EXPORT_S3_SECRET_KEY" required:"true"`
	ExportRegion     string `envconfig:"EXPORT_S3_REGION" required:"true"`
	KeepExports      int    `envconfig:"KEEP_EXPORTS" default:"4"`
}

// Die abgeleiteten Relationen, die als NDJSON exportiert werden.
var exportTables = []string{
	"papers_summary",
	"khcc_authors",
	"journal_metrics",
	"collaborating_institutions",
	"research_topics",
	"author_productivity",
	"author_collaborations",
}

func main() {
	log.Println("Starte Export der abgeleiteten Relationen...")

	var cfg ExportConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresPort)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Fehler beim Verbinden mit der Datenbank: %v", err)
	}

	s3Client, err := storage.NewS3Client(cfg.ExportAccessKey, cfg.ExportSecretKey, cfg.ExportEndpoint, cfg.ExportRegion)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("exports/%s", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	for _, table := range exportTables {
		data, count, err := dumpTable(db, table)
		if err != nil {
			log.Fatalf("Fehler beim Export von %s: %v", table, err)
		}
		key := fmt.Sprintf("%s/%s.ndjson.gz", prefix, table)
		if _, err := storage.UploadFile(ctx, s3Client, cfg.ExportEndpoint, cfg.ExportBucket, key, data); err != nil {
			log.Fatalf("Fehler beim Hochladen von %s: %v", key, err)
		}
		log.Printf("%s: %d Zeilen nach s3://%s/%s exportiert", table, count, cfg.ExportBucket, key)
	}

	if err := pruneExports(ctx, s3Client, cfg); err != nil {
		log.Fatalf("Fehler bei der Rotation alter Exporte: %v", err)
	}

	log.Println("Export erfolgreich abgeschlossen.")
}

// dumpTable serialisiert eine Tabelle als gzip-komprimiertes NDJSON.
func dumpTable(db *gorm.DB, table string) ([]byte, int, error) {
	var rows []map[string]interface{}
	if err := db.Table(table).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	encoder := json.NewEncoder(gzipWriter)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return nil, 0, err
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(rows), nil
}

// pruneExports behält die letzten KeepExports Export-Läufe und löscht den Rest.
func pruneExports(ctx context.Context, client *s3.Client, cfg ExportConfig) error {
	output, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.ExportBucket),
		Prefix: aws.String("exports/"),
	})
	if err != nil {
		return err
	}

	// Objekte nach Export-Lauf (zweites Pfadsegment) gruppieren
	runs := map[string][]string{}
	for _, obj := range output.Contents {
		parts := strings.Split(*obj.Key, "/")
		if len(parts) < 3 {
			continue
		}
		runs[parts[1]] = append(runs[parts[1]], *obj.Key)
	}
	if len(runs) <= cfg.KeepExports {
		log.Printf("Weniger als %d Exporte vorhanden, keine Rotation nötig.", cfg.KeepExports)
		return nil
	}

	stamps := make([]string, 0, len(runs))
	for stamp := range runs {
		stamps = append(stamps, stamp)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(stamps)))

	for _, stamp := range stamps[cfg.KeepExports:] {
		for _, key := range runs[stamp] {
			log.Printf("Lösche alten Export: %s", key)
			_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(cfg.ExportBucket),
				Key:    aws.String(key),
			})
			if err != nil {
				log.Printf("Fehler beim Löschen von %s: %v", key, err)
			}
		}
	}

	return nil
}
