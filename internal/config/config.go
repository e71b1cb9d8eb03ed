package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ppemonitor/internal/ppe"
)

type Config struct {
	Port     int
	Password string

	CameraSource    string            // device index, stream URL or udp://:PORT
	CameraFallbacks []int             // device indices tried when the source does not open
	CameraNames     map[string]string // UDP camera IP -> display name

	ModelPath       string
	ModelNamesPath  string // dataset yaml the model was trained with
	CatalogPath     string // empty: built-in PPE catalog
	ModelConfidence float64
	ModelNMS        float64
	ModelInputSize  int

	Thresholds ppe.Thresholds

	FrameInterval time.Duration
	ErrorBackoff  time.Duration
	JPEGQuality   int

	LogDirectory string
	LogMaxSizeMB int
	LogDebug     bool
	StaticDir    string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	defaults := ppe.DefaultThresholds()
	return &Config{
		Port:            getEnvAsInt("PORT", 5000),
		Password:        getEnv("PASSWORD", "changeme"),
		CameraSource:    getEnv("CAMERA_SOURCE", "0"),
		CameraFallbacks: getEnvAsIntList("CAMERA_FALLBACKS", []int{0, 1, 2, 3}),
		CameraNames:     getEnvAsMap("CAMERA_NAMES"),
		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		ModelNamesPath:  getEnv("MODEL_NAMES_PATH", filepath.Join(".", "models", "data.yaml")),
		CatalogPath:     getEnv("CATALOG_PATH", ""),
		ModelConfidence: getEnvAsFloat("MODEL_CONFIDENCE", 0.10),
		ModelNMS:        getEnvAsFloat("MODEL_NMS", 0.45),
		ModelInputSize:  getEnvAsInt("MODEL_INPUT_SIZE", 640),
		Thresholds: ppe.Thresholds{
			DarkBrightness:     getEnvAsFloat("DARK_BRIGHTNESS", defaults.DarkBrightness),
			MaxHeadAspect:      getEnvAsFloat("MAX_HEAD_ASPECT", defaults.MaxHeadAspect),
			HeadMinConfidence:  getEnvAsFloat("HEAD_MIN_CONFIDENCE", defaults.HeadMinConfidence),
			SmallMinConfidence: getEnvAsFloat("SMALL_MIN_CONFIDENCE", defaults.SmallMinConfidence),
		},
		FrameInterval: getEnvAsDuration("FRAME_INTERVAL", 33*time.Millisecond),
		ErrorBackoff:  getEnvAsDuration("ERROR_BACKOFF", time.Second),
		JPEGQuality:   getEnvAsInt("JPEG_QUALITY", 80),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogMaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 10),
		LogDebug:      getEnvAsBool("LOG_DEBUG", false),
		StaticDir:     getEnv("STATIC_DIR", filepath.Join(".", "static")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsIntList parses "0,1,2". Invalid entries are skipped.
func getEnvAsIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsMap parses "key=value,key2=value2".
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
