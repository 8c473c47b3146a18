package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/flagx"
	"github.com/dmitrijs2005/fieldmate/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent fields
// keep the values already in Config.
type JsonConfig struct {
	ServerURL    *string `json:"server_url"`
	APIKey       *string `json:"api_key"`
	DataDir      *string `json:"data_dir"`
	DatabaseFile *string `json:"database_file"`
	StoreKeyFile *string `json:"store_key_file"`

	RequestTimeout           *timex.Duration `json:"request_timeout"`
	OnlineCheckInterval      *timex.Duration `json:"online_check_interval"`
	NotificationPollInterval *timex.Duration `json:"notification_poll_interval"`
	LocationFlushInterval    *timex.Duration `json:"location_flush_interval"`
	ReconcileInterval        *timex.Duration `json:"reconcile_interval"`

	LocationBatchSize   *int     `json:"location_batch_size"`
	LocationQueueCap    *int     `json:"location_queue_cap"`
	LocationMaxAttempts *int     `json:"location_max_attempts"`
	MinDistanceMeters   *float64 `json:"min_distance_meters"`

	ErrorReportURL    *string `json:"error_report_url"`
	UpdateManifestURL *string `json:"update_manifest_url"`
	AppVersion        *string `json:"app_version"`
	AppVersionCode    *int    `json:"app_version_code"`

	DocumentBucket    *string `json:"document_bucket"`
	DocumentEndpoint  *string `json:"document_endpoint"`
	DocumentRegion    *string `json:"document_region"`
	DocumentPublicURL *string `json:"document_public_url"`

	LogLevel       *string `json:"log_level"`
	LogFormat      *string `json:"log_format"`
	LogFile        *string `json:"log_file"`
	MetricsEnabled *bool   `json:"metrics_enabled"`
}

// parseJson overlays cfg with the JSON file named by -c/-config (or
// $FIELDMATE_CONFIG). No file means no changes.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.APIKey, jc.APIKey)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.DatabaseFile, jc.DatabaseFile)
	setString(&cfg.StoreKeyFile, jc.StoreKeyFile)

	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.NotificationPollInterval, jc.NotificationPollInterval)
	setDuration(&cfg.LocationFlushInterval, jc.LocationFlushInterval)
	setDuration(&cfg.ReconcileInterval, jc.ReconcileInterval)

	setInt(&cfg.LocationBatchSize, jc.LocationBatchSize)
	setInt(&cfg.LocationQueueCap, jc.LocationQueueCap)
	setInt(&cfg.LocationMaxAttempts, jc.LocationMaxAttempts)
	if jc.MinDistanceMeters != nil {
		cfg.MinDistanceMeters = *jc.MinDistanceMeters
	}

	setString(&cfg.ErrorReportURL, jc.ErrorReportURL)
	setString(&cfg.UpdateManifestURL, jc.UpdateManifestURL)
	setString(&cfg.AppVersion, jc.AppVersion)
	setInt(&cfg.AppVersionCode, jc.AppVersionCode)

	setString(&cfg.DocumentBucket, jc.DocumentBucket)
	setString(&cfg.DocumentEndpoint, jc.DocumentEndpoint)
	setString(&cfg.DocumentRegion, jc.DocumentRegion)
	setString(&cfg.DocumentPublicURL, jc.DocumentPublicURL)

	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogFile, jc.LogFile)
	if jc.MetricsEnabled != nil {
		cfg.MetricsEnabled = *jc.MetricsEnabled
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
