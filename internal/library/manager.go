// Package library содержит логику управления библиотекой медитаций
package library

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ssbullock/serene/internal/data"
)

// Manager управляет медитациями и сохраняет изменения в файл библиотеки
type Manager struct {
	appData  *data.AppData
	dataFile string
}

// NewManager создает новый экземпляр Manager. Пустой dataFile отключает сохранение.
func NewManager(appData *data.AppData, dataFile string) *Manager {
	return &Manager{
		appData:  appData,
		dataFile: dataFile,
	}
}

// List возвращает список всех медитаций
func (m *Manager) List() []data.Meditation {
	return m.appData.Meditations
}

// Get возвращает копию медитации по ID
func (m *Manager) Get(id int) (data.Meditation, error) {
	med, err := m.appData.MeditationByID(id)
	if err != nil {
		return data.Meditation{}, err
	}
	return *med, nil
}

// Add добавляет медитацию и сохраняет библиотеку
func (m *Manager) Add(med data.Meditation) (data.Meditation, error) {
	med.ID = m.appData.AddMeditation(med)
	if err := m.save(); err != nil {
		_ = m.appData.DeleteMeditationByID(med.ID)
		return data.Meditation{}, err
	}
	return m.Get(med.ID)
}

// Update сохраняет изменения медитации
func (m *Manager) Update(med data.Meditation) error {
	if strings.TrimSpace(med.Title) == "" {
		return fmt.Errorf("название медитации не может быть пустым")
	}
	if err := m.appData.UpdateMeditation(med); err != nil {
		return err
	}
	return m.save()
}

// Delete удаляет медитацию из библиотеки
func (m *Manager) Delete(id int) error {
	if err := m.appData.DeleteMeditationByID(id); err != nil {
		return err
	}
	return m.save()
}

// ByIntention возвращает медитации с заданным намерением без учета регистра
func (m *Manager) ByIntention(intention string) []data.Meditation {
	want := strings.ToLower(strings.TrimSpace(intention))
	if want == "" {
		return m.List()
	}

	var result []data.Meditation
	for _, med := range m.appData.Meditations {
		if strings.ToLower(strings.TrimSpace(med.Intention)) == want {
			result = append(result, med)
		}
	}
	return result
}

// Intentions возвращает отсортированный список намерений
func (m *Manager) Intentions() []string {
	seen := make(map[string]bool)
	var result []string
	for _, med := range m.appData.Meditations {
		i := strings.ToLower(strings.TrimSpace(med.Intention))
		if i == "" || seen[i] {
			continue
		}
		seen[i] = true
		result = append(result, i)
	}
	sort.Strings(result)
	return result
}

func (m *Manager) save() error {
	if m.dataFile == "" {
		return nil
	}
	if err := m.appData.SaveData(m.dataFile); err != nil {
		return fmt.Errorf("ошибка сохранения библиотеки: %w", err)
	}
	return nil
}
