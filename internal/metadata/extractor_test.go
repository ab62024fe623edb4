package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

func writeWAV(t *testing.T, path string, d time.Duration) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Take(format.SampleRate.N(d), beep.Silence(-1)), format); err != nil {
		t.Fatalf("Ошибка записи WAV: %v", err)
	}
}

func TestExtractFromNoMetadataFile(t *testing.T) {
	testFilePath := filepath.Join(t.TempDir(), "Анна - Утреннее дыхание.mp3")
	if err := os.WriteFile(testFilePath, []byte("fake content"), 0644); err != nil {
		t.Fatalf("Ошибка создания тестового файла: %v", err)
	}

	metadata := NewExtractor().ExtractFromFile(testFilePath)

	if metadata.Narrator != "Анна" {
		t.Errorf("Ожидался Narrator: Анна, получено: %s", metadata.Narrator)
	}
	if metadata.Title != "Утреннее дыхание" {
		t.Errorf("Ожидался Title: Утреннее дыхание, получено: %s", metadata.Title)
	}
}

func TestMetadataFromName(t *testing.T) {
	tests := []struct {
		source   string
		narrator string
		title    string
	}{
		{"/path/to/Narrator - Title.mp3", "Narrator", "Title"},
		{"/path/to/BodyScan.wav", "", "BodyScan"},
		{"/path/to/Narrator - Series - Title.mp3", "Narrator", "Series - Title"},
	}

	for _, test := range tests {
		// Несуществующий файл: сведения берутся из имени
		metadata := NewExtractor().ExtractFromFile(test.source)
		if metadata.Narrator != test.narrator || metadata.Title != test.title {
			t.Errorf("ExtractFromFile(%s) = %+v, ожидалось %s / %s", test.source, metadata, test.narrator, test.title)
		}
	}
}

func TestExtractFromReaderCorrupted(t *testing.T) {
	reader := bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD})
	metadata := NewExtractor().ExtractFromReader(reader, "Голос - Сон.mp3")

	if metadata.Narrator != "Голос" || metadata.Title != "Сон" {
		t.Errorf("Неожиданные метаданные: %+v", metadata)
	}
}

func TestGetFileInfoWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narration.wav")
	writeWAV(t, path, 2*time.Second)

	info, err := NewExtractor().GetFileInfo(path)
	if err != nil {
		t.Fatalf("Ошибка получения информации о файле: %v", err)
	}
	if info.Duration != 2*time.Second {
		t.Errorf("Ожидалась длительность 2s, получено: %s", info.Duration)
	}
	if info.Size <= 44 {
		t.Errorf("Неожиданный размер файла: %d", info.Size)
	}
	if info.ContentType != "audio/wav" {
		t.Errorf("Ожидался audio/wav, получено: %s", info.ContentType)
	}
}

func TestGetDurationErrors(t *testing.T) {
	dir := t.TempDir()
	extractor := NewExtractor()

	if _, err := extractor.GetDuration(filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("Ожидалась ошибка для несуществующего файла")
	}

	corrupted := filepath.Join(dir, "broken.mp3")
	if err := os.WriteFile(corrupted, []byte("not an mp3"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := extractor.GetDuration(corrupted); err == nil {
		t.Error("Ожидалась ошибка декодирования")
	}

	ogg := filepath.Join(dir, "track.ogg")
	if err := os.WriteFile(ogg, []byte("OggS"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := extractor.GetDuration(ogg); err == nil {
		t.Error("Ожидалась ошибка для неподдерживаемого формата")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.MP3": "audio/mpeg",
		"b.wav": "audio/wav",
		"c.ogg": "application/octet-stream",
	}
	for path, expected := range tests {
		if got := ContentType(path); got != expected {
			t.Errorf("ContentType(%s) = %s, ожидалось %s", path, got, expected)
		}
	}
}
