package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// Manager 管理翻译内容。
type Manager struct {
	defaultLang  string
	translations map[string]map[string]string
	matcher      language.Matcher
	tags         []string
	logger       *slog.Logger
	mu           sync.RWMutex
}

// Option 用于配置 Manager。
type Option func(*Manager)

// WithLogger 设置 Manager 使用的日志实例。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithDefaultLang 设置默认语言。
func WithDefaultLang(lang string) Option {
	return func(m *Manager) {
		m.defaultLang = lang
	}
}

// NewManager 创建 i18n Manager，并加载内置语言包。
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaultLang:  "en-US",
		translations: make(map[string]map[string]string),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadEmbeddedTranslations(); err != nil {
		return nil, err
	}
	if _, ok := m.translations[m.defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no locale file", m.defaultLang)
	}
	m.buildMatcher()
	return m, nil
}

func (m *Manager) loadEmbeddedTranslations() error {
	entries, err := embeddedLocales.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("failed to read locales directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".json")
		data, err := embeddedLocales.ReadFile("locales/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}
		var content map[string]string
		if err := json.Unmarshal(data, &content); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", entry.Name(), err)
		}
		m.translations[lang] = content
	}
	return nil
}

// buildMatcher 以默认语言优先构建匹配器。
func (m *Manager) buildMatcher() {
	m.tags = []string{m.defaultLang}
	for lang := range m.translations {
		if lang != m.defaultLang {
			m.tags = append(m.tags, lang)
		}
	}
	sort.Strings(m.tags[1:])

	supported := make([]language.Tag, 0, len(m.tags))
	for _, lang := range m.tags {
		supported = append(supported, language.Make(lang))
	}
	m.matcher = language.NewMatcher(supported)
}

// Match 将任意语言标识（或 Accept-Language 头）映射到已支持的语言。
func (m *Manager) Match(raw string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return m.defaultLang
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return m.defaultLang
	}
	_, idx, confidence := m.matcher.Match(tags...)
	if confidence == language.No {
		return m.defaultLang
	}
	return m.tags[idx]
}

// Translate 按语言与键名返回翻译内容，找不到时回退到默认语言，再回退为 key。
func (m *Manager) Translate(lang, key string, args ...any) string {
	lang = m.Match(lang)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, candidate := range []string{lang, m.defaultLang} {
		if val, ok := m.translations[candidate][key]; ok {
			if len(args) > 0 {
				return fmt.Sprintf(val, args...)
			}
			return val
		}
	}
	return key
}

// SupportedLanguages 返回支持的语言列表，默认语言在前。
func (m *Manager) SupportedLanguages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.tags...)
}
