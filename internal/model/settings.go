package model

import "slices"

// QuickAction is a preset amount and sign used to pre-fill a transaction.
type QuickAction struct {
	Text       string `json:"text" yaml:"text"`
	Value      int64  `json:"value" yaml:"value"`
	IsPositive bool   `json:"is_positive" yaml:"is_positive"`
}

// Signed returns the quick action's value as a transaction amount.
func (q QuickAction) Signed() int64 {
	if q.IsPositive {
		return q.Value
	}
	return -q.Value
}

// Settings are the per-profile preferences stored alongside transactions.
type Settings struct {
	Goal         int64         `json:"goal" yaml:"goal"`
	DarkMode     bool          `json:"dark_mode" yaml:"dark_mode"`
	QuickActions []QuickAction `json:"quick_actions" yaml:"quick_actions"`
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.QuickActions = slices.Clone(s.QuickActions)
	if s.QuickActions == nil {
		s.QuickActions = []QuickAction{}
	}
	return s
}

// DefaultQuickActions is the preset list used when a profile has none.
func DefaultQuickActions() []QuickAction {
	return []QuickAction{
		{Text: "Event Reward", Value: 50, IsPositive: true},
		{Text: "Ads", Value: 10, IsPositive: true},
		{Text: "Daily Games", Value: 100, IsPositive: true},
		{Text: "Login", Value: 50, IsPositive: true},
		{Text: "Campaign Reward", Value: 50, IsPositive: true},
		{Text: "Box Draw (Single Spin)", Value: 100, IsPositive: false},
		{Text: "Box Draw (10 Spins)", Value: 900, IsPositive: false},
	}
}

// DefaultSettings returns the settings given to a new profile.
func DefaultSettings() Settings {
	return Settings{
		Goal:         0,
		DarkMode:     false,
		QuickActions: DefaultQuickActions(),
	}
}
