package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"sessionTag": "open-day",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "open-day", viper.GetString("sessionTag"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "wayfinder", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetSceneConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	sc := GetSceneConfig()
	assert.Equal(t, 100.0, sc.MetersPerUnit)
	assert.Equal(t, 1.4, sc.WalkingSpeed)
	assert.Equal(t, 0.03, sc.HeightOffset)
	assert.True(t, sc.HideOnLoss)
	assert.True(t, sc.TapSameToDeselect)
	assert.Equal(t, 16*time.Millisecond, sc.RefreshInterval)
	assert.Equal(t, "#3399FF73", sc.ColorA.Hex())
	assert.Equal(t, "#FF595973", sc.ColorB.Hex())
}

func TestGetSceneConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"scene": {
			"metersPerUnit": 98,
			"walkingSpeed": 1.2,
			"hideOnLoss": false,
			"tapSameToDeselect": false,
			"refreshInterval": "33ms"
		},
		"overlay": { "colorA": "not-a-color", "colorB": "#00FF00" }
	}`)))

	sc := GetSceneConfig()
	assert.Equal(t, 98.0, sc.MetersPerUnit)
	assert.Equal(t, 1.2, sc.WalkingSpeed)
	assert.False(t, sc.HideOnLoss)
	assert.False(t, sc.TapSameToDeselect)
	assert.Equal(t, 33*time.Millisecond, sc.RefreshInterval)
	assert.Equal(t, "#3399FF73", sc.ColorA.Hex(), "bad color falls back to default")
	assert.Equal(t, "#00FF00FF", sc.ColorB.Hex())
}

func TestGetGestureConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	gc := GetGestureConfig()
	assert.Equal(t, 600*time.Millisecond, gc.HoldDuration)
	assert.Equal(t, 20.0, gc.MoveTolerancePx)
	assert.Equal(t, 48.0, gc.PickRadiusPx)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./recordings", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
}

func TestGetInfluxConfig_URL(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "influx": { "host": "metrics", "port": "9999", "protocol": "https" } }`)))

	ic := GetInfluxConfig()
	assert.Equal(t, "https://metrics:9999", ic.URL)
	assert.Equal(t, "scene_telemetry", ic.Bucket)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "wayfinder", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetGeoConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "geo": { "originLon": 2.35, "originLat": 48.85 } }`)))

	gc := GetGeoConfig()
	assert.Equal(t, 2.35, gc.OriginLon)
	assert.Equal(t, 48.85, gc.OriginLat)
}

func TestGetDBConfig_DSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "db": { "host": "db.local", "password": "s3cret" } }`)))

	dc := GetDBConfig()
	assert.Equal(t, "db.local", dc.Host)
	assert.Equal(t, "host=db.local port=5432 user=postgres password=s3cret dbname=wayfinder sslmode=disable", dc.DSN())
}

func TestGetMonitorConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "monitor": { "interval": "250ms" } }`)))

	mc := GetMonitorConfig()
	assert.Equal(t, 250*time.Millisecond, mc.Interval)
	assert.Equal(t, "./logs/status.json", mc.StatusFile)
	assert.Empty(t, mc.MetricsAddr)
}
