package internal

import (
	"chat-relay/errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal("localhost", config.Host)
	req.Equal(8888, config.Port)
	req.Equal("localhost:8888", config.Address())
	req.Equal(10, config.CoreWorkers)
	req.Equal(50, config.MaxWorkers)
	req.Equal(100, config.QueueSize)
	req.Equal(60*time.Second, config.WorkerKeepAlive)
	req.Equal(10*time.Second, config.WriteTimeout)
	req.Equal(5*time.Second, config.ShutdownTimeout)
	req.Equal(4096, config.MaxLineLength)
	req.Equal(32, config.MaxNameLength)
	req.Equal("INFO", config.LogLevel)
	req.Equal("localhost:9090", config.AdminAddr)
	req.False(config.WebSocketEnabled)
	req.Empty(config.GRPCHealthAddr)
	req.Empty(config.CensoredWordList())
	req.Equal("*", config.CharReplacement)
}

func TestLoadConfig_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "7000")
	t.Setenv("MAX_WORKERS", "20")
	t.Setenv("CENSORED_WORDS", " spam, troll ,,spam")
	t.Setenv("CHARACTER_REPLACEMENT", "#")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal("0.0.0.0:7000", config.Address())
	req.Equal(20, config.MaxWorkers)
	req.Equal([]string{"spam", "troll"}, config.CensoredWordList())
	char, err := CharacterRune(config.CharReplacement)
	req.NoError(err)
	req.Equal('#', char)
}

func TestLoadConfig_Env_File(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(path, []byte("CORE_WORKERS=3\nLOG_LEVEL=DEBUG\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("CORE_WORKERS")
		_ = os.Unsetenv("LOG_LEVEL")
	})
	// the environment wins over the file
	t.Setenv("LOG_LEVEL", "WARN")

	config, err := LoadConfig(path)

	req.NoError(err)
	req.Equal(3, config.CoreWorkers)
	req.Equal("WARN", config.LogLevel)
}

func TestLoadConfig_Missing_Env_File(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid, err := LoadConfig()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"max below core", func(c *Config) { c.MaxWorkers = c.CoreWorkers - 1 }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "LOUD" }},
		{"empty host", func(c *Config) { c.Host = "" }},
		{"websocket without admin", func(c *Config) { c.WebSocketEnabled = true; c.AdminAddr = "" }},
		{"replacement too long", func(c *Config) { c.CharReplacement = "**" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			require.Error(t, config.Validate())
		})
	}
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("é")
	req.NoError(err)
	req.Equal('é', r)

	_, err = CharacterRune("")
	req.ErrorIs(err, errors.ErrInvalidCensorChar)
}
