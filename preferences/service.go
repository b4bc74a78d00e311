// Package preferences validates and persists the cosmetic choices of a viewer.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"math"

	"studyquiz-server/config"
	"studyquiz-server/db"
	"studyquiz-server/logger"
	"studyquiz-server/models"
)

const (
	ThemeDark   = "dark"
	ThemeLight  = "light"
	ThemeOrange = "orange"

	DefaultTheme     = ThemeDark
	MinTextScale     = 0.8
	MaxTextScale     = 1.4
	TextScaleStep    = 0.1
	DefaultTextScale = 1.0
)

var (
	ErrUnknownTheme        = errors.New("unknown theme")
	ErrTextScaleOutOfRange = errors.New("text scale out of range")
)

// Themes lists the accepted themes in display order.
var Themes = []string{ThemeDark, ThemeLight, ThemeOrange}

var themeLabels = map[string]string{
	ThemeDark:   "Tmavý",
	ThemeLight:  "Světlý",
	ThemeOrange: "Oranžový",
}

var textScaleLabels = []string{"Velmi malý", "Malý", "Normální", "Velký", "Velmi velký", "Extra velký", "Maximální"}

func ThemeLabel(theme string) string { return themeLabels[theme] }

// TextScaleLabel names the step nearest to v.
func TextScaleLabel(v float64) string {
	i := int(math.Round((v - MinTextScale) / TextScaleStep))
	if i < 0 || i >= len(textScaleLabels) {
		return textScaleLabels[2]
	}
	return textScaleLabels[i]
}

// TextScaleSteps returns every accepted text scale.
func TextScaleSteps() []float64 {
	out := make([]float64, 0, len(textScaleLabels))
	for i := range textScaleLabels {
		out = append(out, snap(MinTextScale+float64(i)*TextScaleStep))
	}
	return out
}

func ValidTheme(theme string) bool {
	_, ok := themeLabels[theme]
	return ok
}

// NormalizeTextScale snaps v to the step grid or rejects it.
func NormalizeTextScale(v float64) (float64, error) {
	const eps = 1e-9
	if math.IsNaN(v) || v < MinTextScale-eps || v > MaxTextScale+eps {
		return 0, fmt.Errorf("%w: %v not in [%.1f, %.1f]", ErrTextScaleOutOfRange, v, MinTextScale, MaxTextScale)
	}
	steps := math.Round((v - MinTextScale) / TextScaleStep)
	return snap(MinTextScale + steps*TextScaleStep), nil
}

func snap(v float64) float64 { return math.Round(v*10) / 10 }

// Defaults are the preferences of a viewer that never chose anything.
func Defaults(viewerID string) models.Preferences {
	return models.Preferences{
		ViewerID:     viewerID,
		Theme:        DefaultTheme,
		TextScale:    DefaultTextScale,
		StatsEnabled: true,
	}
}

// IntroFlags keeps the intro flag per browsing session.
type IntroFlags interface {
	IntroSeen(tabID string) bool
	SetIntroSeen(tabID string, seen bool)
}

// Viewer identifies whose preferences are read: ID is the long lived viewer,
// Tab the current browsing session.
type Viewer struct {
	ID  string
	Tab string
}

type Service struct {
	repo  db.PreferenceRepository
	stats db.StatsRepository
	intro IntroFlags
	scope string
	log   *logger.Logger
}

// NewService wires the preference store. With the session intro scope the
// intro flag lives in flags instead of the repository.
func NewService(repo db.PreferenceRepository, stats db.StatsRepository, flags IntroFlags, scope string, log *logger.Logger) *Service {
	if scope == "" {
		scope = config.IntroScopeSession
	}
	return &Service{repo: repo, stats: stats, intro: flags, scope: scope, log: log}
}

func (s *Service) Scope() string { return s.scope }

func (s *Service) sessionScoped() bool {
	return s.scope == config.IntroScopeSession && s.intro != nil
}

// Get returns the stored preferences or the defaults.
func (s *Service) Get(ctx context.Context, v Viewer) (models.Preferences, error) {
	p, err := s.repo.GetPreferences(ctx, v.ID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		p = Defaults(v.ID)
	case err != nil:
		return models.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	// repair values written by an older build
	if !ValidTheme(p.Theme) {
		p.Theme = DefaultTheme
	}
	if ts, err := NormalizeTextScale(p.TextScale); err == nil {
		p.TextScale = ts
	} else {
		p.TextScale = DefaultTextScale
	}
	if s.sessionScoped() {
		p.IntroSeen = s.intro.IntroSeen(v.Tab)
	}
	return p, nil
}

func (s *Service) update(ctx context.Context, v Viewer, fn func(*models.Preferences)) (models.Preferences, error) {
	p, err := s.Get(ctx, v)
	if err != nil {
		return models.Preferences{}, err
	}
	fn(&p)
	stored := p
	if s.sessionScoped() {
		// never persist a session scoped flag
		if old, err := s.repo.GetPreferences(ctx, v.ID); err == nil {
			stored.IntroSeen = old.IntroSeen
		} else {
			stored.IntroSeen = false
		}
	}
	if err := s.repo.SavePreferences(ctx, stored); err != nil {
		return models.Preferences{}, fmt.Errorf("failed to save preferences: %w", err)
	}
	return p, nil
}

func (s *Service) Theme(ctx context.Context, v Viewer) (string, error) {
	p, err := s.Get(ctx, v)
	return p.Theme, err
}

func (s *Service) SetTheme(ctx context.Context, v Viewer, theme string) (models.Preferences, error) {
	if !ValidTheme(theme) {
		return models.Preferences{}, fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}
	return s.update(ctx, v, func(p *models.Preferences) { p.Theme = theme })
}

func (s *Service) TextScale(ctx context.Context, v Viewer) (float64, error) {
	p, err := s.Get(ctx, v)
	return p.TextScale, err
}

func (s *Service) SetTextScale(ctx context.Context, v Viewer, value float64) (models.Preferences, error) {
	ts, err := NormalizeTextScale(value)
	if err != nil {
		return models.Preferences{}, err
	}
	return s.update(ctx, v, func(p *models.Preferences) { p.TextScale = ts })
}

func (s *Service) IntroSeen(ctx context.Context, v Viewer) (bool, error) {
	p, err := s.Get(ctx, v)
	return p.IntroSeen, err
}

func (s *Service) SetIntroSeen(ctx context.Context, v Viewer, seen bool) (models.Preferences, error) {
	if s.sessionScoped() {
		s.intro.SetIntroSeen(v.Tab, seen)
		return s.Get(ctx, v)
	}
	return s.update(ctx, v, func(p *models.Preferences) { p.IntroSeen = seen })
}

func (s *Service) StatsEnabled(ctx context.Context, v Viewer) (bool, error) {
	p, err := s.Get(ctx, v)
	return p.StatsEnabled, err
}

// SetStatsEnabled toggles statistics recording. Disabling also clears what
// was recorded so far.
func (s *Service) SetStatsEnabled(ctx context.Context, v Viewer, enabled bool) (models.Preferences, error) {
	p, err := s.update(ctx, v, func(p *models.Preferences) { p.StatsEnabled = enabled })
	if err != nil {
		return p, err
	}
	if !enabled && s.stats != nil {
		if err := s.stats.ResetStats(ctx, v.ID); err != nil {
			return p, fmt.Errorf("failed to clear statistics: %w", err)
		}
		s.log.Info("Statistics disabled and cleared", "viewer_id", v.ID)
	}
	return p, nil
}
