// Package config holds the queue-name configuration consulted when a job is
// dispatched without an explicit queue and when assertions infer the queue a
// job kind is expected on.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
)

// EnvPrefix prefixes environment overrides, e.g. JOBTEST_DEFAULT=low.
const EnvPrefix = "JOBTEST"

// QueueConfig maps job kinds to queues. Values may be nil, a string or a
// job.Symbol; YAML strings written as ":name" load as job.Symbol("name").
type QueueConfig struct {
	Default any            `mapstructure:"default" yaml:"default"`
	Kinds   map[string]any `mapstructure:"kinds" yaml:"kinds"`
}

var _ job.QueueResolver = QueueConfig{}

// Default returns a configuration that routes every kind to job.DefaultQueue.
func Default() QueueConfig { return QueueConfig{Default: job.DefaultQueue} }

// With returns a copy of c with kind routed to queue.
func (c QueueConfig) With(kind string, queue any) QueueConfig {
	kinds := make(map[string]any, len(c.Kinds)+1)
	for k, v := range c.Kinds {
		kinds[k] = v
	}

	kinds[kind] = queue
	c.Kinds = kinds

	return c
}

// ResolveQueue implements job.QueueResolver. A kind configured with nil falls
// back to Default; kind lookup is case-insensitive because viper lowercases keys.
func (c QueueConfig) ResolveQueue(kind string) (string, error) {
	if q, ok := job.QueueKey(c.lookup(kind)); ok {
		return q, nil
	}

	if q, ok := job.QueueKey(c.Default); ok {
		return q, nil
	}

	return "", fmt.Errorf("no queue configured for %q and no default: %w", kind, berr.ErrUnresolvableQueueName)
}

func (c QueueConfig) lookup(kind string) any {
	if v, ok := c.Kinds[kind]; ok {
		return v
	}

	for k, v := range c.Kinds {
		if strings.EqualFold(k, kind) {
			return v
		}
	}

	return nil
}

// Parse decodes a YAML document.
func Parse(b []byte) (QueueConfig, error) {
	var c QueueConfig
	if err := yaml.Unmarshal(b, &c); err != nil {
		return QueueConfig{}, fmt.Errorf("parse queue config: %w", err)
	}

	return c.symbolize(), nil
}

// Load reads the configuration from path, or from jobtest.yaml in the current
// directory or ./configs when path is empty. A missing search-path file is not
// an error; environment variables prefixed JOBTEST_ override file values.
func Load(path string) (QueueConfig, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("jobtest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("::", "_"))
	v.AutomaticEnv()
	v.SetDefault("default", job.DefaultQueue)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return QueueConfig{}, fmt.Errorf("read queue config: %w", err)
		}
	}

	var c QueueConfig
	if err := v.Unmarshal(&c); err != nil {
		return QueueConfig{}, fmt.Errorf("unmarshal queue config: %w", err)
	}

	return c.symbolize(), nil
}

func (c QueueConfig) symbolize() QueueConfig {
	c.Default = symbol(c.Default)

	for k, v := range c.Kinds {
		c.Kinds[k] = symbol(v)
	}

	return c
}

func symbol(v any) any {
	if s, ok := v.(string); ok && len(s) > 1 && s[0] == ':' {
		return job.Symbol(s[1:])
	}

	return v
}
