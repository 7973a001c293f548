// Package labels maps detector class ids to human-readable sign names.
package labels

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// defaultClasses is the class table shipped with the Vietnamese sign language model.
var defaultClasses = map[string]string{
	"0":  "an",
	"1":  "ban",
	"2":  "ban_be",
	"3":  "bao_nhieu",
	"4":  "cai_gi",
	"5":  "cam_on",
	"6":  "gia_dinh",
	"7":  "khat",
	"8":  "khoe",
	"9":  "lam_on",
	"10": "nhu_the_nao",
	"11": "tam_biet",
	"12": "ten_la",
	"13": "toi",
	"14": "tuoi",
	"15": "xin_chao",
	"16": "xin_loi",
}

// Table is a read-only class id to label mapping.
// It is built once at startup and shared by all requests.
type Table struct {
	classes map[string]string
}

// New creates a Table from the given mapping. The mapping is copied.
func New(classes map[string]string) *Table {
	t := &Table{classes: make(map[string]string, len(classes))}
	for id, name := range classes {
		t.classes[id] = name
	}
	return t
}

// Default returns the built-in 17-class table.
func Default() *Table {
	return New(defaultClasses)
}

// Load reads a class table from a JSON file.
// Both the model_info.json layout ({"classes": {...}}) and a bare {"0": "an", ...}
// object are accepted.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class table: %w", err)
	}

	var info struct {
		Classes map[string]string `json:"classes"`
	}
	if err := json.Unmarshal(data, &info); err == nil && len(info.Classes) > 0 {
		return New(info.Classes), nil
	}

	var bare map[string]string
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse class table %s: %w", path, err)
	}
	if len(bare) == 0 {
		return nil, fmt.Errorf("class table %s is empty", path)
	}

	return New(bare), nil
}

// Resolve returns the label for classID, or "Unknown_<id>" when the id is not in the table.
func (t *Table) Resolve(classID int) string {
	key := strconv.Itoa(classID)
	if name, ok := t.classes[key]; ok {
		return name
	}
	return "Unknown_" + key
}

// All returns a copy of the full mapping.
func (t *Table) All() map[string]string {
	out := make(map[string]string, len(t.classes))
	for id, name := range t.classes {
		out[id] = name
	}
	return out
}

// Len returns the number of classes in the table.
func (t *Table) Len() int {
	return len(t.classes)
}
