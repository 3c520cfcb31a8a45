// Package commands implements the taskctl command-line interface.
package commands

import (
	"github.com/nhle/advisor-tasks/internal/model"
)

// Flags are the global flags shared by every command.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string

	Tenant  string
	Backend string
	BaseURL string
	DBPath  string
	Token   string

	// Where is the raw filter query the task commands start from
	// (e.g. "status=late&take=20").
	Where string
}

// Apply overrides the loaded configuration with the flags that were set.
func (f *Flags) Apply(cfg *model.AppConfig) {
	if f.Tenant != "" {
		cfg.Tenant = f.Tenant
	}
	if f.Backend != "" {
		cfg.Backend.Kind = f.Backend
	}
	if f.BaseURL != "" {
		cfg.Backend.BaseURL = f.BaseURL
	}
	if f.DBPath != "" {
		cfg.Backend.DBPath = f.DBPath
	}
	if f.Token != "" {
		cfg.Backend.Token = f.Token
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
}
