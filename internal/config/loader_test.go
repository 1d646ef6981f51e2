package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvUsesDefaultWhenUnset(t *testing.T) {
	got := expandEnv("host: ${CFG_TEST_HOST:localhost}")
	assert.Equal(t, "host: localhost", got)
}

func TestExpandEnvPrefersEnvValue(t *testing.T) {
	t.Setenv("CFG_TEST_HOST", "db.internal")
	got := expandEnv("host: ${CFG_TEST_HOST:localhost}")
	assert.Equal(t, "host: db.internal", got)
}

func TestExpandEnvEmptyDefault(t *testing.T) {
	got := expandEnv("password: ${CFG_TEST_PASSWORD:}")
	assert.Equal(t, "password: ", got)
}

func TestExpandEnvKeepsUnknownWithoutDefault(t *testing.T) {
	// 没有默认值且未定义时保留原样，便于排查缺失的配置
	got := expandEnv("key: ${CFG_TEST_MISSING}")
	assert.Equal(t, "key: ${CFG_TEST_MISSING}", got)
}

func TestExpandEnvMultiplePlaceholders(t *testing.T) {
	t.Setenv("CFG_TEST_USER", "svc")
	got := expandEnv("dsn: ${CFG_TEST_USER:postgres}@${CFG_TEST_DB_HOST:localhost}")
	assert.Equal(t, "dsn: svc@localhost", got)
}
