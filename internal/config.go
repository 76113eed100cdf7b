package internal

import (
	"chat-relay/errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

var validate = validator.New()

type Config struct {
	Host            string        `env:"HOST,default=localhost" validate:"required"`
	Port            int           `env:"PORT,default=8888" validate:"gte=0,lte=65535"`
	CoreWorkers     int           `env:"CORE_WORKERS,default=10" validate:"gte=1"`
	MaxWorkers      int           `env:"MAX_WORKERS,default=50" validate:"gtefield=CoreWorkers"`
	QueueSize       int           `env:"QUEUE_SIZE,default=100" validate:"gte=0"`
	WorkerKeepAlive time.Duration `env:"WORKER_KEEP_ALIVE,default=60s" validate:"gt=0"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	MaxLineLength   int           `env:"MAX_LINE_LENGTH,default=4096" validate:"gte=1"`
	MaxNameLength   int           `env:"MAX_NAME_LENGTH,default=32" validate:"gte=1"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`

	AdminAddr        string `env:"ADMIN_ADDR,default=localhost:9090"`
	WebSocketEnabled bool   `env:"WEBSOCKET_ENABLED,default=false"`
	GRPCHealthAddr   string `env:"GRPC_HEALTH_ADDR"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// LoadConfig reads the given .env files, if any exist, then the environment.
// Variables already set in the environment win over the files.
func LoadConfig(envFiles ...string) (Config, error) {
	var config Config
	files := lo.Filter(envFiles, func(f string, _ int) bool { return f != "" })
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return config, fmt.Errorf("loading env files %v: %w", files, err)
		}
	}
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return config, fmt.Errorf("config error: %w", err)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.WebSocketEnabled && c.AdminAddr == "" {
		return fmt.Errorf("invalid config: WEBSOCKET_ENABLED requires ADMIN_ADDR")
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

// Address is the chat listening address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CensoredWordList splits CENSORED_WORDS on commas, dropping blanks.
func (c Config) CensoredWordList() []string {
	words := lo.Map(strings.Split(c.CensoredWords, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	})
	return lo.Uniq(lo.Compact(words))
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("%w: CHARACTER_REPLACEMENT got %q", errors.ErrInvalidCensorChar, str)
	}
	return r[0], nil
}
