package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var envPrefixes = []string{"CHUNKSTREAM_", ""}

func lookupEnv(key string) (value string, ok bool) {
	for _, prefix := range envPrefixes {
		value, ok = os.LookupEnv(prefix + key)
		if ok && value != "" {
			return value, true
		}
	}
	return "", false
}

func getEnv[T any](key string, defaultValue T, parser func(string) (T, error)) T {
	value, ok := lookupEnv(key)
	if !ok {
		return defaultValue
	}
	parsed, err := parser(value)
	if err != nil {
		log.Fatal().Err(err).Msgf("env %s: invalid value %q", key, value)
	}
	return parsed
}

func GetEnvString(key string, defaultValue string) string {
	return getEnv(key, defaultValue, func(s string) (string, error) { return s, nil })
}

func GetEnvBool(key string, defaultValue bool) bool {
	return getEnv(key, defaultValue, strconv.ParseBool)
}

func GetEnvInt(key string, defaultValue int) int {
	return getEnv(key, defaultValue, strconv.Atoi)
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return getEnv(key, defaultValue, time.ParseDuration)
}

// GetEnvCommaSep returns the trimmed, non-empty parts of a comma separated env value.
func GetEnvCommaSep(key string, defaultValue string) []string {
	value := GetEnvString(key, defaultValue)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	res := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}

// ParsePorts converts port strings to numbers.
func ParsePorts(values []string) ([]int, error) {
	ports := make([]int, 0, len(values))
	for _, v := range values {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", v)
		}
		ports = append(ports, port)
	}
	return ports, nil
}
