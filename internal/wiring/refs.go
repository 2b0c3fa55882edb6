package wiring

import (
	"fmt"
	"sort"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

// ReferencedNames returns every appender name referenced by root or by a
// named logger.
func ReferencedNames(cfg *config.LoggingConfig) map[string]struct{} {
	refs := make(map[string]struct{})
	for _, name := range cfg.AppenderRefs {
		refs[name] = struct{}{}
	}
	for _, logger := range cfg.Loggers {
		for _, name := range logger.AppenderRefs {
			refs[name] = struct{}{}
		}
	}
	return refs
}

// Validate checks a configuration without creating anything: appender names
// must be non-empty and unique, every reference must resolve and every level
// must parse.
func Validate(cfg *config.LoggingConfig) error {
	declared := make(map[string]int, len(cfg.Appenders))
	for i, decl := range cfg.Appenders {
		name := decl.Common().Name
		if name == nil {
			continue
		}
		component := fmt.Sprintf("log.appenders[%d]", i)
		if *name == "" {
			return errors.NewConfigError(component, "", errors.ErrEmptyName)
		}
		if first, dup := declared[*name]; dup {
			return errors.NewConfigError(component,
				fmt.Sprintf("%q is also declared by log.appenders[%d]", *name, first), errors.ErrDuplicateName)
		}
		declared[*name] = i
	}

	check := func(component string, refs []string) error {
		for _, ref := range refs {
			if _, ok := declared[ref]; !ok {
				return errors.NewConfigError(component, fmt.Sprintf("no appender named %q", ref), errors.ErrDanglingRef)
			}
		}
		return nil
	}
	if err := check("log.appenderRefs", cfg.AppenderRefs); err != nil {
		return err
	}
	if _, err := interfaces.ParseLevelOr(cfg.Level, interfaces.INFO); err != nil {
		return errors.NewConfigError("log.level", "", fmt.Errorf("%w: %v", errors.ErrInvalidLevel, err))
	}

	for _, name := range sortedLoggerNames(cfg) {
		logger := cfg.Loggers[name]
		component := fmt.Sprintf("log.loggers[%q]", name)
		if err := check(component+".appenderRefs", logger.AppenderRefs); err != nil {
			return err
		}
		if _, err := interfaces.ParseLevelOr(logger.Level, interfaces.INFO); err != nil {
			return errors.NewConfigError(component+".level", "", fmt.Errorf("%w: %v", errors.ErrInvalidLevel, err))
		}
	}
	return nil
}

func sortedLoggerNames(cfg *config.LoggingConfig) []string {
	names := make([]string, 0, len(cfg.Loggers))
	for name := range cfg.Loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
