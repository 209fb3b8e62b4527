package config

import "reflect"

// Changes describes what differs between two configs.
type Changes struct {
	// LogLevelChanged is set when server.log_level differs. The new level
	// can be applied without a restart.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired lists the changed sections that only take effect
	// after a restart, in a stable order.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return !c.LogLevelChanged && len(c.RestartRequired) == 0
}

// Diff compares old and new configs.
func Diff(old, new *Config) Changes {
	var c Changes

	if old.Server.LogLevel != new.Server.LogLevel {
		c.LogLevelChanged = true
		c.NewLogLevel = new.Server.LogLevel
	}

	sections := []struct {
		name     string
		old, new any
	}{
		{"server.ops_addr", old.Server.OpsAddr, new.Server.OpsAddr},
		{"providers.llm", old.Providers.LLM, new.Providers.LLM},
		{"providers.stt", old.Providers.STT, new.Providers.STT},
		{"store", old.Store, new.Store},
		{"resilience", old.Resilience, new.Resilience},
		{"tutor", old.Tutor, new.Tutor},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			c.RestartRequired = append(c.RestartRequired, s.name)
		}
	}
	return c
}
