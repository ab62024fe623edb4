package player

import "strings"

// NoBackground значение идентификатора фоновой дорожки, означающее ее отсутствие
const NoBackground = "none"

// Locator необязательный локатор ресурса
type Locator struct {
	value string
	ok    bool
}

// None пустой локатор
var None = Locator{}

// Some создает заданный локатор
func Some(value string) Locator {
	return Locator{value: value, ok: true}
}

// Get возвращает значение и признак наличия
func (l Locator) Get() (string, bool) {
	return l.value, l.ok
}

// IsSet сообщает, задан ли локатор
func (l Locator) IsSet() bool {
	return l.ok
}

// String возвращает значение или "none"
func (l Locator) String() string {
	if !l.ok {
		return NoBackground
	}
	return l.value
}

// Config входные данные координатора
type Config struct {
	Narration  Locator // Локатор дорожки с озвучкой
	Background Locator // Идентификатор фоновой дорожки для Resolver
}

// NewConfig нормализует строковые параметры: пустая строка означает отсутствие
// дорожки, а для фона то же самое означает "none"
func NewConfig(narration, background string) Config {
	cfg := Config{}
	if narration != "" {
		cfg.Narration = Some(narration)
	}
	bg := strings.TrimSpace(background)
	if bg != "" && !strings.EqualFold(bg, NoBackground) {
		cfg.Background = Some(bg)
	}
	return cfg
}
