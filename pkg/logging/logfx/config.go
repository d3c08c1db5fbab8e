package logfx

import (
	"os"
	"strconv"

	"github.com/JailtonJunior94/logkit/pkg/logging"
	"go.uber.org/fx"
)

// Config configures the fx modules.
type Config struct {
	ConfigFile        string
	CallerInference   bool
	ManagementAddress string
}

// ConfigFromEnvModule provides Config from environment variables:
//   - LOGKIT_CONFIG_FILE: properties or YAML file (default: built-in console setup)
//   - LOGKIT_CALLER_INFERENCE: resolve call sites for records (default: false)
//   - LOGKIT_MANAGEMENT_ADDR: management server address (default: ":9090")
var ConfigFromEnvModule = fx.Provide(ConfigFromEnv)

func ConfigFromEnv() Config {
	return Config{
		ConfigFile:        os.Getenv(logging.ConfigFileEnv),
		CallerInference:   getEnvBool("LOGKIT_CALLER_INFERENCE", false),
		ManagementAddress: getEnv("LOGKIT_MANAGEMENT_ADDR", ":9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
