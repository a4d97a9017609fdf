package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
)

// Settings returns a copy of the profile settings.
func (l *Ledger) Settings() model.Settings { return l.settings.Clone() }

// SetGoal sets the savings goal. A negative goal is stored as 0.
func (l *Ledger) SetGoal(ctx context.Context, goal int64) (storage.SaveResult, error) {
	l.settings.Goal = max(goal, 0)
	return l.persist(ctx)
}

// SetDarkMode records the display preference.
func (l *Ledger) SetDarkMode(ctx context.Context, on bool) (storage.SaveResult, error) {
	l.settings.DarkMode = on
	return l.persist(ctx)
}

// SetQuickActions replaces the quick action list.
func (l *Ledger) SetQuickActions(ctx context.Context, actions []model.QuickAction) (storage.SaveResult, error) {
	clean, err := checkQuickActions(actions)
	if err != nil {
		return storage.SaveResult{}, err
	}
	l.settings.QuickActions = clean
	return l.persist(ctx)
}

// ReplaceSettings stores a full settings value in one save.
func (l *Ledger) ReplaceSettings(ctx context.Context, s model.Settings) (storage.SaveResult, error) {
	clean, err := checkQuickActions(s.QuickActions)
	if err != nil {
		return storage.SaveResult{}, err
	}
	l.settings = model.Settings{Goal: max(s.Goal, 0), DarkMode: s.DarkMode, QuickActions: clean}
	return l.persist(ctx)
}

func checkQuickActions(actions []model.QuickAction) ([]model.QuickAction, error) {
	clean := make([]model.QuickAction, len(actions))
	for i, qa := range actions {
		qa.Text = strings.TrimSpace(qa.Text)
		if qa.Text == "" {
			return nil, model.Invalid("quick_actions", fmt.Sprintf("entry %d has blank text", i))
		}
		if qa.Value < 0 {
			return nil, model.Invalid("quick_actions", fmt.Sprintf("entry %d has negative value", i))
		}
		clean[i] = qa
	}
	return clean, nil
}
