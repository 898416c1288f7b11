package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// EnvPrefix prefixes every environment override, e.g. SCORMKIT_HTTP_ADDR.
const EnvPrefix = "SCORMKIT"

// DefaultHMACSecret signs tokens when no secret is configured. Online
// deployments must override it.
const DefaultHMACSecret = "dev-secret-change-me"

// TemplateBundled selects the runtime assets compiled into the binary.
const TemplateBundled = "bundled"

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogMode  string

	DBDriver string
	DBDSN    string

	OutputDir string

	// Export defaults; template_source is "bundled", a zip file or a
	// directory. A stored preference overrides it.
	TemplateSource string
	ExportPrefix   string
	Stylesheet     string
	Locale         string

	EnableAuth     bool
	AuthHMACSecret string
	AdminUser      string
	AdminPassHash  string // bcrypt

	CORSOrigins []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("output_dir", "./data")
	v.SetDefault("template_source", TemplateBundled)
	v.SetDefault("export_prefix", "")
	v.SetDefault("stylesheet", "")
	v.SetDefault("locale", "en")
	v.SetDefault("enable_auth", false)
	v.SetDefault("auth_hmac_secret", DefaultHMACSecret)
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass_hash", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji")
	v.SetDefault("cors_origins", "http://localhost:3000,http://localhost:5173")
}

// Load reads defaults, then the config file when cfgFile is set (yaml, toml
// or json by extension), then SCORMKIT_* environment variables.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", cfgFile)
		}
	}

	mode := Mode(strings.ToLower(v.GetString("mode")))
	switch mode {
	case ModeOffline, ModeOnline:
	default:
		return Config{}, errors.Errorf("unknown mode %q", mode)
	}
	return Config{
		Mode:           mode,
		HTTPAddr:       v.GetString("http_addr"),
		LogMode:        v.GetString("log_mode"),
		DBDriver:       v.GetString("db_driver"),
		DBDSN:          v.GetString("db_dsn"),
		OutputDir:      v.GetString("output_dir"),
		TemplateSource: v.GetString("template_source"),
		ExportPrefix:   v.GetString("export_prefix"),
		Stylesheet:     v.GetString("stylesheet"),
		Locale:         v.GetString("locale"),
		EnableAuth:     v.GetBool("enable_auth"),
		AuthHMACSecret: v.GetString("auth_hmac_secret"),
		AdminUser:      v.GetString("admin_user"),
		AdminPassHash:  v.GetString("admin_pass_hash"),
		CORSOrigins:    csv(v.GetString("cors_origins")),
	}, nil
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
