package config

import (
	"reflect"

	logx "homecmd/pkg/logx"
)

// SummarizeChange lists the sections that differ between two configs and
// returns log fields describing the new values. Secrets are never included:
// the query section only reports the env var name, not its value.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var (
		changed []string
		attrs   []logx.Field
	)
	if oldCfg.Assistant != newCfg.Assistant {
		changed = append(changed, "assistant")
		attrs = append(attrs,
			logx.String("assistant.mode", newCfg.Assistant.Mode),
			logx.String("assistant.timezone", newCfg.Assistant.Timezone),
		)
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Int("scheduler.history_size", newCfg.Scheduler.HistorySize),
			logx.Int("scheduler.routines", len(newCfg.Scheduler.Routines)),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	if oldCfg.Query != newCfg.Query {
		changed = append(changed, "query")
		attrs = append(attrs,
			logx.Bool("query.enabled", newCfg.Query.Enabled),
			logx.String("query.model", newCfg.Query.Model),
			logx.String("query.api_key_env", newCfg.Query.APIKeyEnv),
		)
	}
	if oldCfg.Music != newCfg.Music {
		changed = append(changed, "music")
	}
	if oldCfg.REPL != newCfg.REPL {
		changed = append(changed, "repl")
	}
	return changed, attrs
}

// RestartRequired lists changed sections that only take effect on restart.
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		switch s {
		case "logging", "scheduler":
		default:
			out = append(out, s)
		}
	}
	return out
}
