package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/midnightgrind/racedirector/pkg/core"
)

// FileName is the config file looked up in the config directory.
const FileName = "racedirector.cfg.json"

// DirectorConfig holds everything needed to build a director.
type DirectorConfig struct {
	Style      core.DirectorStyle
	MaxRacers  int
	Difficulty string
	RubberBand core.RubberBandConfig
	Drama      core.DramaConfig
	Pacing     core.PacingConfig
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// DBConfig holds database connection settings for the gorm backend.
type DBConfig struct {
	Driver     string
	Host       string
	Port       string
	Username   string
	Password   string
	Database   string
	SQLitePath string
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type   string
	Memory MemoryConfig
	DB     DBConfig
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Enabled   bool
	Host      string
	Port      string
	Protocol  string
	Token     string
	Org       string
	Bucket    string
	BackupDir string
}

// URL returns the server URL built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds the GELF endpoint.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// SetDefaults registers default values for every known key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("director.style", core.StyleBalanced.String())
	viper.SetDefault("director.maxRacers", 32)
	viper.SetDefault("director.difficulty", "Normal")

	rb := core.DefaultRubberBandConfig()
	viper.SetDefault("rubberBand.level", rb.Level.String())
	viper.SetDefault("rubberBand.maxSpeedBoost", rb.MaxSpeedBoost)
	viper.SetDefault("rubberBand.maxSpeedReduction", rb.MaxSpeedReduction)
	viper.SetDefault("rubberBand.activationDistance", rb.ActivationDistance)
	viper.SetDefault("rubberBand.cooldownTime", rb.CooldownTime)
	viper.SetDefault("rubberBand.rampUpTime", rb.RampUpTime)
	viper.SetDefault("rubberBand.handlingBoost", rb.HandlingBoost)
	viper.SetDefault("rubberBand.nitrousRechargeBonus", rb.NitrousRechargeBonus)
	viper.SetDefault("rubberBand.affectsPlayer", rb.AffectsPlayer)
	viper.SetDefault("rubberBand.affectsAI", rb.AffectsAI)
	viper.SetDefault("rubberBand.scaleWithPosition", rb.ScaleWithPosition)

	dc := core.DefaultDramaConfig()
	viper.SetDefault("drama.closeRaceThreshold", dc.CloseRaceThreshold)
	viper.SetDefault("drama.photoFinishWindow", dc.PhotoFinishWindow)
	viper.SetDefault("drama.photoFinishTimeWindow", dc.PhotoFinishTimeWindow)
	viper.SetDefault("drama.comebackThreshold", dc.ComebackThreshold)
	viper.SetDefault("drama.comebackWindow", dc.ComebackWindow)
	viper.SetDefault("drama.closeRaceSustain", dc.CloseRaceSustain)
	viper.SetDefault("drama.dominanceFactor", dc.DominanceFactor)
	viper.SetDefault("drama.underdogSkill", dc.UnderdogSkill)
	viper.SetDefault("drama.leadChangeWeight", dc.LeadChangeWeight)
	viper.SetDefault("drama.tensionBuildupRate", dc.TensionBuildupRate)
	viper.SetDefault("drama.tensionBaseline", dc.TensionBaseline)
	viper.SetDefault("drama.minDramaCooldown", dc.MinDramaCooldown)
	viper.SetDefault("drama.enableDramaticMoments", dc.EnableDramaticMoments)
	viper.SetDefault("drama.enableRivalrySystem", dc.EnableRivalrySystem)
	viper.SetDefault("drama.enableUnderdogBonus", dc.EnableUnderdogBonus)
	viper.SetDefault("drama.enableNearMissMoments", dc.EnableNearMissMoments)
	viper.SetDefault("drama.enablePerfectLapMoments", dc.EnablePerfectLapMoments)

	pc := core.DefaultPacingConfig()
	viper.SetDefault("pacing.earlyRacePercent", pc.EarlyRacePercent)
	viper.SetDefault("pacing.midRacePercent", pc.MidRacePercent)
	viper.SetDefault("pacing.lateRacePercent", pc.LateRacePercent)
	viper.SetDefault("pacing.finishZonePercent", pc.FinishZonePercent)
	viper.SetDefault("pacing.finalLapIntensity", pc.FinalLapIntensity)
	viper.SetDefault("pacing.startChaosWindow", pc.StartChaosWindow)
	viper.SetDefault("pacing.aggregate", "leader")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./races")
	viper.SetDefault("storage.memory.compressOutput", true)

	viper.SetDefault("db.driver", "postgres")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "racedirector")
	viper.SetDefault("db.sqlitePath", "./racedirector.db")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "race-metrics")
	viper.SetDefault("influx.bucket", "race-director")
	viper.SetDefault("influx.backupDir", "./influx_backup")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "race-director")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
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

// GetDirectorConfig returns the clamped director tuning.
func GetDirectorConfig() DirectorConfig {
	rb := core.RubberBandConfig{
		Level:                core.ParseRubberBandLevel(viper.GetString("rubberBand.level")),
		MaxSpeedBoost:        viper.GetFloat64("rubberBand.maxSpeedBoost"),
		MaxSpeedReduction:    viper.GetFloat64("rubberBand.maxSpeedReduction"),
		ActivationDistance:   viper.GetFloat64("rubberBand.activationDistance"),
		CooldownTime:         viper.GetFloat64("rubberBand.cooldownTime"),
		RampUpTime:           viper.GetFloat64("rubberBand.rampUpTime"),
		HandlingBoost:        viper.GetFloat64("rubberBand.handlingBoost"),
		NitrousRechargeBonus: viper.GetFloat64("rubberBand.nitrousRechargeBonus"),
		AffectsPlayer:        viper.GetBool("rubberBand.affectsPlayer"),
		AffectsAI:            viper.GetBool("rubberBand.affectsAI"),
		ScaleWithPosition:    viper.GetBool("rubberBand.scaleWithPosition"),
	}

	dc := core.DramaConfig{
		CloseRaceThreshold:      viper.GetFloat64("drama.closeRaceThreshold"),
		PhotoFinishWindow:       viper.GetFloat64("drama.photoFinishWindow"),
		PhotoFinishTimeWindow:   viper.GetFloat64("drama.photoFinishTimeWindow"),
		ComebackThreshold:       viper.GetInt("drama.comebackThreshold"),
		ComebackWindow:          viper.GetFloat64("drama.comebackWindow"),
		CloseRaceSustain:        viper.GetFloat64("drama.closeRaceSustain"),
		DominanceFactor:         viper.GetFloat64("drama.dominanceFactor"),
		UnderdogSkill:           viper.GetFloat64("drama.underdogSkill"),
		LeadChangeWeight:        viper.GetFloat64("drama.leadChangeWeight"),
		TensionBuildupRate:      viper.GetFloat64("drama.tensionBuildupRate"),
		TensionBaseline:         viper.GetFloat64("drama.tensionBaseline"),
		MinDramaCooldown:        viper.GetFloat64("drama.minDramaCooldown"),
		EnableDramaticMoments:   viper.GetBool("drama.enableDramaticMoments"),
		EnableRivalrySystem:     viper.GetBool("drama.enableRivalrySystem"),
		EnableUnderdogBonus:     viper.GetBool("drama.enableUnderdogBonus"),
		EnableNearMissMoments:   viper.GetBool("drama.enableNearMissMoments"),
		EnablePerfectLapMoments: viper.GetBool("drama.enablePerfectLapMoments"),
	}

	pc := core.PacingConfig{
		EarlyRacePercent:  viper.GetFloat64("pacing.earlyRacePercent"),
		MidRacePercent:    viper.GetFloat64("pacing.midRacePercent"),
		LateRacePercent:   viper.GetFloat64("pacing.lateRacePercent"),
		FinishZonePercent: viper.GetFloat64("pacing.finishZonePercent"),
		FinalLapIntensity: viper.GetFloat64("pacing.finalLapIntensity"),
		StartChaosWindow:  viper.GetFloat64("pacing.startChaosWindow"),
	}
	if viper.GetString("pacing.aggregate") == "field_mean" {
		pc.Aggregate = core.AggregateFieldMean
	}

	return DirectorConfig{
		Style:      core.ParseDirectorStyle(viper.GetString("director.style")),
		MaxRacers:  viper.GetInt("director.maxRacers"),
		Difficulty: viper.GetString("director.difficulty"),
		RubberBand: rb.Clamp(),
		Drama:      dc.Clamp(),
		Pacing:     pc.Clamp(),
	}
}

// presetEntry mirrors AIDifficultyConfig with the rubber-band level as a name.
type presetEntry struct {
	core.AIDifficultyConfig `mapstructure:",squash"`
	RubberBand              string `mapstructure:"rubberBand"`
}

// GetDifficultyPresets returns the configured preset table, or the built-in
// table when none is configured.
func GetDifficultyPresets() ([]core.AIDifficultyConfig, error) {
	if !viper.IsSet("difficultyPresets") {
		return core.DefaultDifficultyPresets(), nil
	}

	var entries []presetEntry
	if err := viper.UnmarshalKey("difficultyPresets", &entries); err != nil {
		return nil, fmt.Errorf("decoding difficultyPresets: %w", err)
	}

	out := make([]core.AIDifficultyConfig, 0, len(entries))
	for _, e := range entries {
		p := e.AIDifficultyConfig
		if e.RubberBand != "" {
			p.RubberBandLevel = core.ParseRubberBandLevel(e.RubberBand)
		}
		out = append(out, p.Clamp())
	}
	return out, nil
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		DB: DBConfig{
			Driver:     viper.GetString("db.driver"),
			Host:       viper.GetString("db.host"),
			Port:       viper.GetString("db.port"),
			Username:   viper.GetString("db.username"),
			Password:   viper.GetString("db.password"),
			Database:   viper.GetString("db.database"),
			SQLitePath: viper.GetString("db.sqlitePath"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Protocol:  viper.GetString("influx.protocol"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

// GetGraylogConfig returns the Graylog settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
