package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StorageState mirrors Playwright's storage-state JSON so snapshots written
// by either engine can be read by the other.
type StorageState struct {
	Cookies []Cookie      `json:"cookies"`
	Origins []OriginState `json:"origins"`
}

// Cookie is one persisted browser cookie. Expires is seconds since the
// epoch, -1 for session cookies.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// OriginState holds the local storage of one origin.
type OriginState struct {
	Origin       string      `json:"origin"`
	LocalStorage []NameValue `json:"localStorage"`
}

// NameValue is a single local storage item.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ReadStorageState loads a snapshot file.
func ReadStorageState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading storage state: %w", err)
	}

	var st StorageState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing storage state %s: %w", path, err)
	}
	return &st, nil
}

// WriteStorageState writes a snapshot atomically (temp file + rename) with
// owner-only permissions.
func WriteStorageState(path string, st *StorageState) error {
	if st.Cookies == nil {
		st.Cookies = []Cookie{}
	}
	if st.Origins == nil {
		st.Origins = []OriginState{}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding storage state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing storage state: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming storage state: %w", err)
	}

	return nil
}

// localStorageByOrigin indexes origin -> name -> value.
func (st *StorageState) localStorageByOrigin() map[string]map[string]string {
	out := make(map[string]map[string]string, len(st.Origins))
	for _, o := range st.Origins {
		if len(o.LocalStorage) == 0 {
			continue
		}
		items := make(map[string]string, len(o.LocalStorage))
		for _, kv := range o.LocalStorage {
			items[kv.Name] = kv.Value
		}
		out[o.Origin] = items
	}
	return out
}

// localStorageScript returns a script that restores local storage for the
// document's origin before any page script runs. Empty when there is
// nothing to restore.
func (st *StorageState) localStorageScript() (string, error) {
	byOrigin := st.localStorageByOrigin()
	if len(byOrigin) == 0 {
		return "", nil
	}

	data, err := json.Marshal(byOrigin)
	if err != nil {
		return "", fmt.Errorf("encoding local storage: %w", err)
	}

	return fmt.Sprintf(`(() => {
	const items = (%s)[location.origin];
	if (!items) return;
	for (const [k, v] of Object.entries(items)) {
		try { localStorage.setItem(k, v); } catch (e) {}
	}
})();`, data), nil
}

// mergeOrigin replaces or appends the local storage of one origin.
func (st *StorageState) mergeOrigin(o OriginState) {
	if o.Origin == "" || o.Origin == "null" {
		return
	}
	for i := range st.Origins {
		if st.Origins[i].Origin == o.Origin {
			st.Origins[i] = o
			return
		}
	}
	st.Origins = append(st.Origins, o)
}
