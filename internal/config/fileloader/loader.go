package fileloader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ahrav/see-armada/internal/config"
)

var _ config.Loader = (*FileLoader)(nil)

// EnvPrefix prefixes environment variables that override file settings, e.g.
// SEE_GOAL_COUNT overrides goal.count.
const EnvPrefix = "SEE"

// FileLoader loads campaign configuration from a YAML file on disk, layered
// over built-in defaults and under environment overrides.
type FileLoader struct {
	// path is the filesystem path to the configuration file. Empty means
	// defaults and environment only.
	path     string
	validate *validator.Validate
}

// NewFileLoader creates a new FileLoader that will load configuration from the
// specified file path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Load reads, merges and validates the configuration.
func (l *FileLoader) Load(ctx context.Context) (*config.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.path != "" {
		v.SetConfigFile(l.path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg config.Campaign
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := l.validate.Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid config: %s", describe(verrs))
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "default")
	v.SetDefault("max_signal_width", 128)
	v.SetDefault("rounds_per_goal_check", 1)
	v.SetDefault("pulse_mode", "")

	v.SetDefault("timer.kind", string(config.TimerKindExponential))
	v.SetDefault("timer.mean", "1us")

	v.SetDefault("strategy.faults_per_round", 1)
	v.SetDefault("strategy.seu_ratio", 0.5)
	v.SetDefault("strategy.seed", 1)

	v.SetDefault("goal.kind", string(config.GoalKindTotalFaults))
	v.SetDefault("goal.count", 100)

	v.SetDefault("observability.events", true)
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
