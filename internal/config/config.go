package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusar/wayfinder/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "wayfinder.cfg.json"

// SceneConfig holds the deployment-time constants of the selection and lifecycle core.
type SceneConfig struct {
	MetersPerUnit     float64       `json:"metersPerUnit" mapstructure:"metersPerUnit"`
	WalkingSpeed      float64       `json:"walkingSpeed" mapstructure:"walkingSpeed"`
	HeightOffset      float64       `json:"heightOffset" mapstructure:"heightOffset"`
	HideOnLoss        bool          `json:"hideOnLoss" mapstructure:"hideOnLoss"`
	TapSameToDeselect bool          `json:"tapSameToDeselect" mapstructure:"tapSameToDeselect"`
	RefreshInterval   time.Duration `json:"refreshInterval" mapstructure:"refreshInterval"`
	ColorA            core.Color    `json:"-"`
	ColorB            core.Color    `json:"-"`
}

// GestureConfig holds tap/hold disambiguation thresholds.
type GestureConfig struct {
	HoldDuration    time.Duration `json:"holdDuration" mapstructure:"holdDuration"`
	MoveTolerancePx float64       `json:"moveTolerancePx" mapstructure:"moveTolerancePx"`
	PickRadiusPx    float64       `json:"pickRadiusPx" mapstructure:"pickRadiusPx"`
	PixelsPerUnit   float64       `json:"pixelsPerUnit" mapstructure:"pixelsPerUnit"`
	ScreenCenterX   float64       `json:"screenCenterX" mapstructure:"screenCenterX"`
	ScreenCenterY   float64       `json:"screenCenterY" mapstructure:"screenCenterY"`
}

// DataConfig locates the room and student tables.
type DataConfig struct {
	Source      string        `json:"source" mapstructure:"source"`
	RoomsCSV    string        `json:"roomsCsv" mapstructure:"roomsCsv"`
	StudentsCSV string        `json:"studentsCsv" mapstructure:"studentsCsv"`
	CacheTTL    time.Duration `json:"cacheTTL" mapstructure:"cacheTTL"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// StorageConfig selects and configures the session recording backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds the postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN formats the settings as a libpq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// InfluxConfig holds telemetry settings.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	URL        string `json:"-"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GeoConfig anchors the scene origin to a WGS84 location. Zero disables georeferencing.
type GeoConfig struct {
	OriginLon float64 `json:"originLon" mapstructure:"originLon"`
	OriginLat float64 `json:"originLat" mapstructure:"originLat"`
}

// MonitorConfig controls the periodic status report written while serving.
type MonitorConfig struct {
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile  string        `json:"statusFile" mapstructure:"statusFile"`
	MetricsAddr string        `json:"metricsAddr" mapstructure:"metricsAddr"` // Prometheus listen address, empty disables
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("sessionTag", "campus")

	viper.SetDefault("scene.metersPerUnit", 100.0)
	viper.SetDefault("scene.walkingSpeed", 1.4)
	viper.SetDefault("scene.heightOffset", 0.03)
	viper.SetDefault("scene.hideOnLoss", true)
	viper.SetDefault("scene.tapSameToDeselect", true)
	viper.SetDefault("scene.refreshInterval", "16ms")

	viper.SetDefault("overlay.colorA", "#3399FF73")
	viper.SetDefault("overlay.colorB", "#FF595973")

	viper.SetDefault("gesture.holdDuration", "600ms")
	viper.SetDefault("gesture.moveTolerancePx", 20.0)
	viper.SetDefault("gesture.pickRadiusPx", 48.0)
	viper.SetDefault("gesture.pixelsPerUnit", 400.0)
	viper.SetDefault("gesture.screenCenterX", 540.0)
	viper.SetDefault("gesture.screenCenterY", 960.0)

	viper.SetDefault("data.source", "csv")
	viper.SetDefault("data.roomsCsv", "./data/room_db.csv")
	viper.SetDefault("data.studentsCsv", "./data/students.csv")
	viper.SetDefault("data.cacheTTL", "5m")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings/wayfinder.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "wayfinder")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "wayfinder")
	viper.SetDefault("influx.bucket", "scene_telemetry")
	viper.SetDefault("influx.backupPath", "./logs/influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "wayfinder")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "./logs/status.json")
	viper.SetDefault("monitor.metricsAddr", "")

	viper.SetDefault("geo.originLon", 0.0)
	viper.SetDefault("geo.originLat", 0.0)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("WAYFINDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults applies defaults without reading a file. Used when no config
// directory is supplied.
func LoadDefaults() {
	setDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSceneConfig returns the scene constants. Unparseable overlay colors fall
// back to the built-in defaults.
func GetSceneConfig() SceneConfig {
	return SceneConfig{
		MetersPerUnit:     viper.GetFloat64("scene.metersPerUnit"),
		WalkingSpeed:      viper.GetFloat64("scene.walkingSpeed"),
		HeightOffset:      viper.GetFloat64("scene.heightOffset"),
		HideOnLoss:        viper.GetBool("scene.hideOnLoss"),
		TapSameToDeselect: viper.GetBool("scene.tapSameToDeselect"),
		RefreshInterval:   viper.GetDuration("scene.refreshInterval"),
		ColorA:            colorOr(viper.GetString("overlay.colorA"), core.Color{R: 0.2, G: 0.6, B: 1, A: 0.45}),
		ColorB:            colorOr(viper.GetString("overlay.colorB"), core.Color{R: 1, G: 0.35, B: 0.35, A: 0.45}),
	}
}

func colorOr(hex string, fallback core.Color) core.Color {
	c, err := core.ParseHexColor(hex)
	if err != nil {
		return fallback
	}
	return c
}

// GetGestureConfig returns the gesture thresholds and the hit-test projection.
func GetGestureConfig() GestureConfig {
	return GestureConfig{
		HoldDuration:    viper.GetDuration("gesture.holdDuration"),
		MoveTolerancePx: viper.GetFloat64("gesture.moveTolerancePx"),
		PickRadiusPx:    viper.GetFloat64("gesture.pickRadiusPx"),
		PixelsPerUnit:   viper.GetFloat64("gesture.pixelsPerUnit"),
		ScreenCenterX:   viper.GetFloat64("gesture.screenCenterX"),
		ScreenCenterY:   viper.GetFloat64("gesture.screenCenterY"),
	}
}

// GetDataConfig returns the data table locations.
func GetDataConfig() DataConfig {
	return DataConfig{
		Source:      viper.GetString("data.source"),
		RoomsCSV:    viper.GetString("data.roomsCsv"),
		StudentsCSV: viper.GetString("data.studentsCsv"),
		CacheTTL:    viper.GetDuration("data.cacheTTL"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

// GetDBConfig returns the postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the telemetry configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGeoConfig returns the scene georeference.
func GetGeoConfig() GeoConfig {
	return GeoConfig{
		OriginLon: viper.GetFloat64("geo.originLon"),
		OriginLat: viper.GetFloat64("geo.originLat"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:    viper.GetDuration("monitor.interval"),
		StatusFile:  viper.GetString("monitor.statusFile"),
		MetricsAddr: viper.GetString("monitor.metricsAddr"),
	}
}
