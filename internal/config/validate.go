// ABOUTME: Validation of loaded configuration values
// ABOUTME: Struct tags cover ranges and enums; cron expressions are parsed up front

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var validate = validator.New()

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check (got %v)", strings.ToLower(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("validate config: %w", err)
	}
	if c.Schedule.Base < c.Schedule.Min || c.Schedule.Base > c.Schedule.Max {
		return errors.New("schedule.base_interval must lie between min_interval and max_interval")
	}
	for name, spec := range map[string]string{
		"recommend.cron":    c.Recommend.Cron,
		"daemon.crawl_cron": c.Daemon.CrawlCron,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
