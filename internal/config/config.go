// Package config содержит параметры запуска синхронизации и API архива тиражей.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/marksix/internal/hkjc"
)

// Значения по умолчанию.
const (
	DefaultOutput        = "data/marksix.csv"
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 5177
	DefaultIntervalHours = 24
	DefaultStartYear     = 1993
	DefaultTimeout       = 30 * time.Second
	DefaultRetries       = 2
)

// ErrInvalidConfig возвращается при недопустимых значениях параметров.
var ErrInvalidConfig = errors.New("invalid config")

// Config содержит параметры команд init, update и serve.
type Config struct {
	Output        string        `env:"MARKSIX_OUTPUT"`
	APIURL        string        `env:"MARKSIX_API_URL"`
	Timeout       time.Duration `env:"MARKSIX_TIMEOUT"`
	Retries       int           `env:"MARKSIX_RETRIES"`
	DatabaseURI   string        `env:"DATABASE_URI"`
	StartYear     int           `env:"MARKSIX_START_YEAR"`
	EndYear       int           `env:"MARKSIX_END_YEAR"`
	Host          string        `env:"MARKSIX_HOST"`
	Port          int           `env:"MARKSIX_PORT"`
	AutoUpdate    bool          `env:"MARKSIX_AUTO_UPDATE"`
	IntervalHours int           `env:"MARKSIX_INTERVAL_HOURS"`
}

// Default возвращает конфигурацию по умолчанию. Конечный год равен текущему.
func Default() *Config {
	return &Config{
		Output:        DefaultOutput,
		APIURL:        hkjc.DefaultEndpoint,
		Timeout:       DefaultTimeout,
		Retries:       DefaultRetries,
		StartYear:     DefaultStartYear,
		EndYear:       time.Now().Year(),
		Host:          DefaultHost,
		Port:          DefaultPort,
		IntervalHours: DefaultIntervalHours,
	}
}

// ApplyEnv перекрывает значения (обычно взятые из флагов) заданными переменными окружения
// и проверяет результат.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return c.Validate()
}

// Validate проверяет допустимость значений.
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative, got %d", ErrInvalidConfig, c.Retries)
	}
	if c.StartYear > c.EndYear {
		return fmt.Errorf("%w: start year %d is after end year %d", ErrInvalidConfig, c.StartYear, c.EndYear)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port out of range: %d", ErrInvalidConfig, c.Port)
	}
	if c.IntervalHours < 1 {
		return fmt.Errorf("%w: interval must be at least one hour, got %d", ErrInvalidConfig, c.IntervalHours)
	}
	return nil
}

// Interval возвращает период автообновления.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// Addr возвращает адрес HTTP-сервера.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
