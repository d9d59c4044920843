package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-netforecast/internal/models"
)

// CommandTemplate is the advisory text for one alert type. Templates may reference
// {{peak}}, {{util}} and {{threshold}}.
type CommandTemplate struct {
	Message  string `yaml:"message"`
	Command  string `yaml:"command"`
	Rollback string `yaml:"rollback"`
}

// CommandPackFile is the YAML root structure.
type CommandPackFile struct {
	Commands map[string]CommandTemplate `yaml:"commands"`
}

// CommandPack resolves alert types to advisory commands.
type CommandPack struct {
	templates map[models.AlertType]CommandTemplate
}

var defaultTemplates = map[models.AlertType]CommandTemplate{
	models.AlertPredictedCongestion: {
		Message:  "Congestion predicted: peak utilization {{peak}}% within horizon (threshold {{threshold}}%)",
		Command:  "reroute --mode proactive --shift-percent 30 --reason predicted-congestion",
		Rollback: "reroute --mode restore --reason predicted-congestion-cleared",
	},
	models.AlertSuddenSpike: {
		Message:  "Sudden utilization spike to {{util}}%",
		Command:  "reroute --mode reactive --shift-percent 20 --reason sudden-spike",
		Rollback: "reroute --mode restore --reason sudden-spike-cleared",
	},
	models.AlertSustainedOverload: {
		Message:  "Sustained overload: mean utilization {{util}}% with high flow count",
		Command:  "rate-limit --class bulk --limit-mbps 200",
		Rollback: "rate-limit --class bulk --clear",
	},
	models.AlertLatencyDegradation: {
		Message:  "Latency degradation at moderate utilization {{util}}%",
		Command:  "flow-class shift --from best-effort --to low-latency",
		Rollback: "flow-class restore --class best-effort",
	},
}

// DefaultCommandPack returns the built-in templates.
func DefaultCommandPack() *CommandPack {
	templates := make(map[models.AlertType]CommandTemplate, len(defaultTemplates))
	for k, v := range defaultTemplates {
		templates[k] = v
	}
	return &CommandPack{templates: templates}
}

// LoadCommandPack overlays templates from a YAML file onto the defaults. An empty path or
// a missing file yields the defaults. Unknown alert types are rejected.
func LoadCommandPack(path string, logger *slog.Logger) (*CommandPack, error) {
	pack := DefaultCommandPack()
	if path == "" {
		return pack, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("command pack not found, using defaults", slog.String("path", path))
			return pack, nil
		}
		return nil, err
	}
	var file CommandPackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse command pack: %w", err)
	}
	for name, tmpl := range file.Commands {
		alertType := models.AlertType(strings.TrimSpace(name))
		base, ok := pack.templates[alertType]
		if !ok {
			return nil, fmt.Errorf("command pack: unknown alert type %q", name)
		}
		pack.templates[alertType] = mergeTemplate(base, tmpl)
	}
	logger.Info("command pack loaded", slog.String("path", path), slog.Int("overrides", len(file.Commands)))
	return pack, nil
}

func mergeTemplate(base, override CommandTemplate) CommandTemplate {
	if override.Message != "" {
		base.Message = override.Message
	}
	if override.Command != "" {
		base.Command = override.Command
	}
	if override.Rollback != "" {
		base.Rollback = override.Rollback
	}
	return base
}

// TemplateVars are the values substituted into a template.
type TemplateVars struct {
	Peak      float64
	Util      float64
	Threshold float64
}

// Render expands the template for alertType.
func (p *CommandPack) Render(alertType models.AlertType, vars TemplateVars) CommandTemplate {
	tmpl := p.templates[alertType]
	r := strings.NewReplacer(
		"{{peak}}", formatPercent(vars.Peak),
		"{{util}}", formatPercent(vars.Util),
		"{{threshold}}", formatPercent(vars.Threshold),
	)
	return CommandTemplate{
		Message:  r.Replace(tmpl.Message),
		Command:  r.Replace(tmpl.Command),
		Rollback: r.Replace(tmpl.Rollback),
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
