package log

// Config holds logging settings.
type Config struct {
	Level  string     `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format string     `mapstructure:"format" yaml:"format"` // text / json
	File   FileOutput `mapstructure:"file" yaml:"file"`
}

// FileOutput configures the optional rotating log file.
type FileOutput struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}
