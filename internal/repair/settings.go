package repair

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/coinledger/internal/model"
)

// Settings overlays loaded settings on defaults. When raw is nil nothing was
// stored and the defaults are returned unreported.
func Settings(raw map[string]any, defaults model.Settings) (model.Settings, Report) {
	s := defaults.Clone()
	var report Report
	if raw == nil {
		return s, report
	}

	note := func(field, desc string) {
		report.Repaired++
		report.Issues = append(report.Issues, Issue{Index: -1, Field: field, Description: desc})
	}

	if v, ok := raw["goal"]; ok {
		goal, exact, ok := Int(v)
		switch {
		case !ok:
			note("goal", fmt.Sprintf("%v is not an integer, default kept", v))
		case goal < 0:
			s.Goal = 0
			note("goal", "negative goal clamped to 0")
		default:
			s.Goal = goal
			if !exact {
				note("goal", "coerced to integer")
			}
		}
	}

	if v, ok := raw["dark_mode"]; ok {
		if b, isBool := v.(bool); isBool {
			s.DarkMode = b
		} else {
			note("dark_mode", fmt.Sprintf("%v is not a boolean, default kept", v))
		}
	}

	list, ok := raw["quick_actions"].([]any)
	if !ok {
		if len(s.QuickActions) == 0 {
			s.QuickActions = model.DefaultQuickActions()
		}
		note("quick_actions", "missing or not a list, defaults restored")
		return s, report
	}

	s.QuickActions = make([]model.QuickAction, 0, len(list))
	for i, item := range list {
		qa, err := quickAction(item)
		if err != nil {
			note("quick_actions", fmt.Sprintf("entry %d dropped: %v", i, err))
			continue
		}
		s.QuickActions = append(s.QuickActions, qa)
	}
	return s, report
}

func quickAction(v any) (model.QuickAction, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.QuickAction{}, fmt.Errorf("entry is %T, want object", v)
	}
	text, _ := m["text"].(string)
	if strings.TrimSpace(text) == "" {
		return model.QuickAction{}, fmt.Errorf("missing text")
	}
	value, exact, ok := Int(m["value"])
	if !ok || !exact || value < 0 {
		return model.QuickAction{}, fmt.Errorf("value %v is not a non-negative integer", m["value"])
	}
	positive := true
	if p, present := m["is_positive"]; present {
		b, isBool := p.(bool)
		if !isBool {
			return model.QuickAction{}, fmt.Errorf("is_positive %v is not a boolean", p)
		}
		positive = b
	}
	return model.QuickAction{Text: text, Value: value, IsPositive: positive}, nil
}
