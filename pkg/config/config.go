package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in defaults matching the relay's original deployment. They apply
// when neither flags, env, nor the config file say otherwise.
const (
	DefaultAssetsDir  = "./public"
	DefaultDataDir    = "./data"
	DefaultGroupName  = "Bongo SMS Group"
	DefaultGroupImage = "/default-group.png"
)

// EffectiveConfig is the merged result of flags, environment and config
// file, with flags winning over env and env winning over the file.
type EffectiveConfig struct {
	Config    *Config
	Addr      string
	DataDir   string
	AssetsDir string
	Source    string
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr, dataDir, assetsDir, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":3000", "HTTP listen address")
	dataPtr := flag.String("data", DefaultDataDir, "Data directory for persisted documents")
	assetsPtr := flag.String("assets", DefaultAssetsDir, "Static asset directory")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dataPtr, *assetsPtr, *cfgPtr, setFlags
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and the CHATRELAY_CONFIG env var when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CHATRELAY_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// ApplyEnvOverrides applies CHATRELAY_* environment overrides onto cfg and
// reports whether any env var was used.
func ApplyEnvOverrides(cfg *Config) bool {
	envUsed := false
	parseList := func(v string) []string {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("CHATRELAY_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("CHATRELAY_ADDRESS"); host != "" {
			envUsed = true
			cfg.Server.Address = host
		}
		if port := os.Getenv("CHATRELAY_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("CHATRELAY_DATA_DIR"); v != "" {
		envUsed = true
		cfg.Storage.Path = v
	}
	if v := os.Getenv("CHATRELAY_STORAGE_BACKEND"); v != "" {
		envUsed = true
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("CHATRELAY_ASSETS_DIR"); v != "" {
		envUsed = true
		cfg.Server.AssetsDir = v
	}
	if v := os.Getenv("CHATRELAY_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("CHATRELAY_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("CHATRELAY_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	return envUsed
}

// LoadEffective merges the config file (optional), env overrides and the
// parsed flags into the effective runtime configuration.
func LoadEffective(addrFlag, dataFlag, assetsFlag, cfgPath string, setFlags map[string]bool) EffectiveConfig {
	var srcs []string

	cfg, err := Load(cfgPath)
	if err != nil {
		cfg = &Config{}
	} else {
		srcs = append(srcs, "config")
	}
	if ApplyEnvOverrides(cfg) {
		srcs = append(srcs, "env")
	}
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}

	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrFlag
	}
	dataDir := cfg.Storage.Path
	if dataDir == "" || setFlags["data"] {
		dataDir = dataFlag
	}
	assetsDir := cfg.Server.AssetsDir
	if assetsDir == "" || setFlags["assets"] {
		assetsDir = assetsFlag
	}

	if cfg.Group.Name == "" {
		cfg.Group.Name = DefaultGroupName
	}
	if cfg.Group.Image == "" {
		cfg.Group.Image = DefaultGroupImage
	}

	return EffectiveConfig{
		Config:    cfg,
		Addr:      addr,
		DataDir:   dataDir,
		AssetsDir: assetsDir,
		Source:    strings.Join(srcs, ", "),
	}
}
