package configuration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"gopkg.in/ini.v1"
)

// LocalOverrides is read after the main file; its keys win.
const LocalOverrides = "settings.local.cfg"

// Config holds INI-style settings grouped by section.
type Config struct {
	settings map[string]map[string]string
	filePath string
	mu       sync.RWMutex
}

var (
	globalConfig *Config
	once         sync.Once
)

// sectionOrder fixes the layout of a generated settings file.
var sectionOrder = []string{"Server", "Interpreter", "Network", "Security", "Authentication", "JWT", "TLS", "Database", "Debug"}

// Initialize loads configPath into the global configuration, writing a
// default file first when none exists. settings.local.cfg, if present,
// overrides individual keys.
func Initialize(configPath string) error {
	var err error
	once.Do(func() {
		globalConfig, err = loadConfig(configPath)
		if err != nil {
			return
		}
		if _, statErr := os.Stat(LocalOverrides); statErr == nil {
			// a broken override file leaves the base values in place
			_ = globalConfig.loadFile(LocalOverrides)
		}
	})
	return err
}

// InitializeDefaults installs the built-in defaults without touching disk.
func InitializeDefaults() {
	c := &Config{settings: make(map[string]map[string]string)}
	c.createDefaultConfig()
	globalConfig = c
}

func loadConfig(filePath string) (*Config, error) {
	config := &Config{
		settings: make(map[string]map[string]string),
		filePath: filePath,
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		config.createDefaultConfig()
		if err := config.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %v", err)
		}
		return config, nil
	}

	if err := config.loadFile(filePath); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadFile(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	return parseINI(file, c.settings)
}

// iniOptions keep the settings dialect: ';' and '#' start comment lines,
// values are taken verbatim up to the end of the line and lines without
// '=' are ignored.
var iniOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	SkipUnrecognizableLines: true,
}

// parseINI merges "[Section]" and "key = value" lines into settings.
// Keys outside a section are ignored.
func parseINI(r io.Reader, settings map[string]map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	file, err := ini.LoadSources(iniOptions, data)
	if err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		values := settings[section.Name()]
		if values == nil {
			values = make(map[string]string)
			settings[section.Name()] = values
		}
		for _, key := range section.Keys() {
			values[key.Name()] = key.Value()
		}
	}
	return nil
}

func (c *Config) createDefaultConfig() {
	c.settings["Server"] = map[string]string{
		"listen_addr": ":8080",
		"static_dir":  "./static",
	}

	c.settings["Interpreter"] = map[string]string{
		"max_script_lines":   "2000",
		"max_line_length":    "256",
		"max_call_depth":     "32",
		"max_executed_lines": "100000",
		"canvas_width":       "640",
		"canvas_height":      "480",
	}

	c.settings["Network"] = map[string]string{
		"pong_timeout":            "90s",
		"write_wait_timeout":      "10s",
		"max_message_size_kb":     "64",
		"max_channel_buffer":      "10000",
		"max_messages_per_second": "50",
		"allowed_origins":         "",
	}

	c.settings["Security"] = map[string]string{
		"max_sessions_per_ip":  "5",
		"session_idle_timeout": "30m",
	}

	c.settings["Authentication"] = map[string]string{
		"min_username_length": "3",
		"max_username_length": "20",
		"min_password_length": "6",
		"max_password_length": "100",
		"password_hash_cost":  "12",
	}

	c.settings["JWT"] = map[string]string{
		"secret_key":             "",
		"token_expiration_hours": "24",
	}

	c.settings["TLS"] = map[string]string{
		"enable_tls":           "false",
		"enable_letsencrypt":   "false",
		"domain":               "",
		"letsencrypt_email":    "",
		"cert_cache_dir":       "./certs",
		"cert_file":            "./certs/server.crt",
		"key_file":             "./certs/server.key",
		"https_addr":           ":8443",
		"force_https_redirect": "false",
	}

	c.settings["Database"] = map[string]string{
		"path": "turtleterm.db",
	}

	c.settings["Debug"] = map[string]string{
		"enable_debug_logging": "true",
		"log_level":            "INFO",
		"log_file":             "turtleterm.log",
		"max_log_size_mb":      "10",
		"log_rotation_count":   "3",
		"log_websocket":        "false",
		"log_terminal":         "false",
		"log_auth":             "true",
		"log_database":         "false",
		"log_session":          "false",
		"log_config":           "true",
		"log_general":          "true",
		"log_interpreter":      "false",
		"log_canvas":           "false",
		"log_gallery":          "true",
		"log_security":         "true",
	}
}

func (c *Config) saveToFile() error {
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}
	file, err := os.Create(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	w.WriteString("; turtleterm configuration\n")
	w.WriteString("; Generated automatically - modify with care\n")
	w.WriteString(";\n\n")

	out := ini.Empty(iniOptions)
	for _, name := range orderedSections(c.settings) {
		settings := c.settings[name]
		section, err := out.NewSection(name)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if _, err := section.NewKey(key, settings[key]); err != nil {
				return err
			}
		}
	}
	if _, err := out.WriteTo(w); err != nil {
		return err
	}
	return w.Flush()
}

// orderedSections lists the known sections first, then any extras sorted.
func orderedSections(settings map[string]map[string]string) []string {
	known := make(map[string]bool, len(sectionOrder))
	out := make([]string, 0, len(settings))
	for _, s := range sectionOrder {
		known[s] = true
		if _, ok := settings[s]; ok {
			out = append(out, s)
		}
	}
	var extra []string
	for s := range settings {
		if !known[s] {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// GetString returns the value of section.key or defaultValue.
func GetString(section, key, defaultValue string) string {
	if globalConfig == nil {
		return defaultValue
	}

	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()

	if sectionMap, ok := globalConfig.settings[section]; ok {
		if value, ok := sectionMap[key]; ok {
			return value
		}
	}
	return defaultValue
}

// GetInt returns section.key as int, or defaultValue if missing or invalid.
func GetInt(section, key string, defaultValue int) int {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(str); err == nil {
		return value
	}
	return defaultValue
}

// GetFloat returns section.key as float64.
func GetFloat(section, key string, defaultValue float64) float64 {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	if value, err := strconv.ParseFloat(str, 64); err == nil {
		return value
	}
	return defaultValue
}

// GetBool returns section.key as bool.
func GetBool(section, key string, defaultValue bool) bool {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(str); err == nil {
		return value
	}
	return defaultValue
}

// GetDuration returns section.key parsed with time.ParseDuration.
func GetDuration(section, key string, defaultValue time.Duration) time.Duration {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(str); err == nil {
		return value
	}
	return defaultValue
}

// GetSection returns a copy of all keys in a section.
func GetSection(sectionName string) map[string]string {
	result := make(map[string]string)
	if globalConfig == nil {
		return result
	}

	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()

	for key, value := range globalConfig.settings[sectionName] {
		result[key] = value
	}
	return result
}

// SetString stores a value in memory. Call Save to persist it.
func SetString(section, key, value string) {
	if globalConfig == nil {
		InitializeDefaults()
	}

	globalConfig.mu.Lock()
	defer globalConfig.mu.Unlock()

	if globalConfig.settings[section] == nil {
		globalConfig.settings[section] = make(map[string]string)
	}
	globalConfig.settings[section][key] = value
}

// Save writes the configuration back to the file it was loaded from.
func Save() error {
	if globalConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}
	if globalConfig.filePath == "" {
		return fmt.Errorf("configuration has no backing file")
	}

	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()
	return globalConfig.saveToFile()
}
