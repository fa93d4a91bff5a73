package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	k *koanf.Koanf
}

// New loads the optional .env file at envPath and then the process
// environment, which takes precedence. When watchEnv is set, callback runs
// after every change to the .env file.
func New(envPath string, watchEnv bool, callback func()) (*Config, error) {
	app := &Config{k: koanf.New(".")}
	f := file.Provider(envPath)
	hasFile := false
	if _, err := os.Stat(envPath); err == nil {
		if err := app.k.Load(f, dotenv.Parser()); err != nil {
			color.Red.Println("Error loading .env file: " + err.Error())
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
		hasFile = true
	} else {
		color.Yellow.Println("No .env file found at " + envPath + ", using environment only")
	}

	if err := app.k.Load(env.Provider("", ".", nil), nil); err != nil {
		color.Red.Println("Error loading environment variables: " + err.Error())
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if watchEnv && hasFile {
		err := f.Watch(func(event any, err error) {
			if err != nil {
				color.Red.Println("Error watching .env file: " + err.Error())
				return
			}
			if err := app.k.Load(f, dotenv.Parser()); err != nil {
				color.Red.Println("Error reloading .env file: " + err.Error())
				return
			}
			if callback != nil {
				callback()
			}
		})
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", envPath, err)
		}
	}
	return app, nil
}

// FromMap builds a Config from literal values, for tests and embedding.
func FromMap(values map[string]any) *Config {
	app := &Config{k: koanf.New(".")}
	for key, value := range values {
		app.Add(key, value)
	}
	return app
}

// Env retrieves a config value from the environment with an optional default.
func (app *Config) Env(envName string, defaultValue ...any) any {
	return app.Get(envName, defaultValue...)
}

// Add adds a configuration to the application.
func (app *Config) Add(name string, configuration any) {
	if err := app.k.Set(name, configuration); err != nil {
		panic(err)
	}
}

func (app *Config) Get(path string, defaultValue ...any) any {
	value := app.k.Get(path)
	if value == nil {
		if len(defaultValue) > 0 {
			return defaultValue[0]
		}
		return nil
	}
	return value
}

func (app *Config) GetString(path string, defaultValue ...any) string {
	switch v := app.Get(path, defaultValue...).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (app *Config) GetInt(path string, defaultValue ...any) int {
	switch v := app.Get(path, defaultValue...).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if len(defaultValue) > 0 {
		if n, ok := defaultValue[0].(int); ok {
			return n
		}
	}
	return 0
}

// GetDuration accepts time.Duration values, Go duration strings such as
// "15m", and bare integers which are read as seconds.
func (app *Config) GetDuration(path string, defaultValue ...any) time.Duration {
	if d, ok := toDuration(app.Get(path, defaultValue...)); ok {
		return d
	}
	if len(defaultValue) > 0 {
		if d, ok := toDuration(defaultValue[0]); ok {
			return d
		}
	}
	return 0
}

func toDuration(value any) (time.Duration, bool) {
	switch v := value.(type) {
	case time.Duration:
		return v, true
	case int:
		return time.Duration(v) * time.Second, true
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d, true
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second, true
		}
	}
	return 0, false
}

func (app *Config) GetBool(path string, defaultValue ...any) bool {
	switch v := app.Get(path, defaultValue...).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if len(defaultValue) > 0 {
		if b, ok := defaultValue[0].(bool); ok {
			return b
		}
	}
	return false
}
