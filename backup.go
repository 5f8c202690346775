package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pocketbase/pocketbase/core"

	"github.com/grtshw/lead-dispatch/utils"
)

const (
	appName       = "lead-dispatch"
	backupHour    = 3 // 3 AM AEST
	retentionDays = 30
)

// backupTarget is the S3-compatible bucket backups are written to.
type backupTarget struct {
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func backupTargetFromEnv() backupTarget {
	return backupTarget{
		Bucket:    os.Getenv("BACKUP_BUCKET_NAME"),
		Endpoint:  os.Getenv("BACKUP_ENDPOINT_URL"),
		AccessKey: os.Getenv("BACKUP_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("BACKUP_SECRET_ACCESS_KEY"),
	}
}

func (t backupTarget) configured() bool {
	return t.Bucket != "" && t.AccessKey != "" && t.SecretKey != ""
}

// prefix is the folder database backups live under.
func (t backupTarget) prefix() string {
	return appName + "/database/"
}

func (t backupTarget) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(t.AccessKey, t.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if t.Endpoint != "" {
			o.BaseEndpoint = aws.String(t.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// nextRun returns the next backupHour in loc strictly after now.
func nextRun(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), backupHour, 0, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// scheduleMaintenance runs runMaintenance daily at backupHour Sydney time
func scheduleMaintenance(app core.App) {
	// Wait for app to fully start
	time.Sleep(30 * time.Second)

	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		log.WithError(err).Warn("[Backup] Could not load timezone, using UTC")
		loc = time.UTC
	}

	for {
		next := nextRun(time.Now(), loc)
		duration := time.Until(next)
		log.Infof("[Backup] Next run scheduled for %s (in %v)", next.Format("2006-01-02 15:04 MST"), duration.Round(time.Minute))

		time.Sleep(duration)

		if err := runMaintenance(app); err != nil {
			log.WithError(err).Error("[Backup] Nightly run failed")
		}
	}
}

// runMaintenance prunes old fetch logs and backs the database up to S3
func runMaintenance(app core.App) error {
	pruned, err := utils.PruneFetchLogs(app, utils.FetchLogRetentionDays)
	if err != nil {
		log.WithError(err).Warn("[Backup] Failed to prune fetch logs")
	} else if pruned > 0 {
		log.Infof("[Backup] Pruned %d fetch log(s)", pruned)
	}

	target := backupTargetFromEnv()
	if !target.configured() {
		return fmt.Errorf("backup S3 credentials not configured (BACKUP_BUCKET_NAME, BACKUP_ACCESS_KEY_ID, BACKUP_SECRET_ACCESS_KEY)")
	}

	return runBackup(app, target)
}

// runBackup creates a PocketBase backup and uploads it to S3
func runBackup(app core.App, target backupTarget) error {
	log.Info("[Backup] Starting daily backup...")

	backupName := fmt.Sprintf("%s-db-%s.zip", appName, time.Now().Format("2006-01-02"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := app.CreateBackup(ctx, backupName); err != nil {
		return fmt.Errorf("create backup: %w", err)
	}

	backupPath := filepath.Join(app.DataDir(), "backups", backupName)
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found at %s", backupPath)
	}

	client, err := target.client(ctx)
	if err != nil {
		return err
	}

	if err := uploadBackup(ctx, client, target, backupPath, backupName); err != nil {
		return fmt.Errorf("upload to S3: %w", err)
	}

	// Delete local backup to save space
	if err := os.Remove(backupPath); err != nil {
		log.WithError(err).Warn("[Backup] Failed to delete local backup")
	}

	if err := cleanOldBackups(ctx, client, target, time.Now().AddDate(0, 0, -retentionDays)); err != nil {
		log.WithError(err).Warn("[Backup] Failed to clean old backups")
	}

	log.Infof("[Backup] Completed successfully: %s", backupName)
	return nil
}

func uploadBackup(ctx context.Context, client *s3.Client, target backupTarget, localPath, backupName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer file.Close()

	key := target.prefix() + backupName
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return err
	}

	log.Infof("[Backup] Uploaded to s3://%s/%s", target.Bucket, key)
	return nil
}

// cleanOldBackups removes backups last modified before cutoff
func cleanOldBackups(ctx context.Context, client *s3.Client, target backupTarget, cutoff time.Time) error {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(target.Bucket),
		Prefix: aws.String(target.prefix()),
	})

	var toDelete []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(cutoff) {
				toDelete = append(toDelete, aws.ToString(obj.Key))
			}
		}
	}

	for _, key := range toDelete {
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(target.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			log.WithError(err).Warnf("[Backup] Failed to delete old backup %s", key)
		} else {
			log.Infof("[Backup] Deleted old backup: %s", key)
		}
	}

	if len(toDelete) > 0 {
		log.Infof("[Backup] Cleaned up %d old backup(s)", len(toDelete))
	}
	return nil
}
