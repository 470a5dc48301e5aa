package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"retrievalagent/websearch"
)

var validLogLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

// Validate проверяет корректность конфигурации и возвращает все найденные проблемы
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Server.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Server.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Server.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}
	if c.Server.RunTimeout < time.Second {
		errors = append(errors, "run timeout must be at least 1 second")
	}

	// Валидация уровня логирования
	if c.Log.Level != "" {
		valid := false
		logLevelUpper := strings.ToUpper(c.Log.Level)
		for _, level := range validLogLevels {
			if logLevelUpper == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
				c.Log.Level, strings.Join(validLogLevels, ", ")))
		}
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format: %s (valid: text, json)", c.Log.Format))
	}

	// Валидация контроллера
	if err := c.Controller.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	// Валидация источников
	if err := c.Providers.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	// Валидация советника
	if c.Advisor.Enabled && strings.TrimSpace(c.Advisor.Model) == "" {
		errors = append(errors, "advisor model is required when advisor is enabled")
	}

	// Валидация обогащения
	if c.Enrichment.Enabled && c.Enrichment.Cache.Enabled && c.Enrichment.Cache.TTL < time.Minute {
		errors = append(errors, "enrichment cache TTL must be at least 1 minute")
	}

	// Валидация трассировки
	if err := c.Tracing.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	// Валидация авторизации
	if c.Auth.SigningKey != "" && c.Auth.TokenTTL < time.Minute {
		errors = append(errors, "token TTL must be at least 1 minute")
	}
	for user, hash := range c.Auth.Users {
		if !strings.HasPrefix(hash, "$2") {
			errors = append(errors, fmt.Sprintf("password hash for user %s is not a bcrypt hash", user))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate проверяет конфигурацию источников
func (pc *ProvidersConfig) Validate() error {
	var errors []string

	switch pc.Strategy {
	case "", websearch.StrategyOrdered, websearch.StrategyRoundRobin, websearch.StrategyWeighted:
	default:
		errors = append(errors, fmt.Sprintf("invalid router strategy: %s", pc.Strategy))
	}
	if pc.MaxAttempts < 0 {
		errors = append(errors, "router max attempts must not be negative")
	}
	for _, d := range pc.RetryDelays {
		if d < 0 {
			errors = append(errors, "retry delays must not be negative")
			break
		}
	}

	if !pc.Google.Enabled && !pc.Catalog.Enabled && !pc.Elastic.Enabled {
		errors = append(errors, "at least one place provider must be enabled")
	}
	if pc.Google.Enabled {
		if pc.Google.APIKey == "" {
			errors = append(errors, "google places api key is required")
		}
		if pc.Google.Timeout < time.Second {
			errors = append(errors, "google places timeout must be at least 1 second")
		}
	}
	if pc.Catalog.Enabled && pc.Catalog.Path == "" {
		errors = append(errors, "catalog database path is required")
	}
	if pc.Elastic.Enabled && pc.Elastic.URL == "" {
		errors = append(errors, "elasticsearch url is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("providers: %s", strings.Join(errors, "; "))
	}
	return nil
}
