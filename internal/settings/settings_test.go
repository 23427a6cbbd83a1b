package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smokyabdulrahman/masjid-times/internal/solar"
)

// tempSettingsPath returns a path to a settings file inside a temp directory.
func tempSettingsPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "settings.toml")
}

// --- Defaults ---

func TestDefaults(t *testing.T) {
	d := Defaults()

	if d.Location.Latitude != 3.1390 || d.Location.Longitude != 101.6869 {
		t.Errorf("default coordinates = %v,%v, want Kuala Lumpur", d.Location.Latitude, d.Location.Longitude)
	}
	if d.Location.Elevation != 50 {
		t.Errorf("default elevation = %v, want 50", d.Location.Elevation)
	}
	if d.Calculation.Method != "Makkah" {
		t.Errorf("default method = %q, want %q", d.Calculation.Method, "Makkah")
	}
	if d.Calculation.FajrAngle != 18.5 {
		t.Errorf("default fajr angle = %v, want 18.5", d.Calculation.FajrAngle)
	}
	if d.Calculation.IshaInterval != 90 {
		t.Errorf("default isha interval = %v, want 90", d.Calculation.IshaInterval)
	}
	if d.Calculation.MaghribAngle != 1.0 {
		t.Errorf("default maghrib angle = %v, want 1.0", d.Calculation.MaghribAngle)
	}
	if d.Calculation.IqamahDelays.Fajr != 20 || d.Calculation.IqamahDelays.Isha != 15 {
		t.Errorf("default iqamah delays = %+v", d.Calculation.IqamahDelays)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Defaults().Validate() = %v, want nil", err)
	}
}

func TestLocationLabel(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Location{City: "London", Country: "United Kingdom"}, "London, United Kingdom"},
		{Location{City: "London"}, "London"},
		{Location{Latitude: 51.50741, Longitude: -0.12782}, "51.5074, -0.1278"},
	}
	for _, tt := range tests {
		if got := tt.loc.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestLocationValidate(t *testing.T) {
	good := DefaultLocation()
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	bad := good
	bad.Latitude = 91
	if err := bad.Validate(); err == nil {
		t.Error("expected error for latitude 91")
	}

	bad = good
	bad.Timezone = "Mars/Olympus_Mons"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

// --- Dir and Path with XDG ---

func TestDir_XDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}

	want := filepath.Join("/tmp/xdg-test", "prayer-times")
	if dir != want {
		t.Errorf("Dir() = %q, want %q", dir, want)
	}
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	path, err := Path()
	if err != nil {
		t.Fatalf("Path() error: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join("prayer-times", "settings.toml")) {
		t.Errorf("Path() = %q, want suffix prayer-times/settings.toml", path)
	}
}

// --- FileStore ---

func TestFileStore_LoadMissingReturnsDefaults(t *testing.T) {
	fs, err := NewFileStore(tempSettingsPath(t))
	if err != nil {
		t.Fatal(err)
	}

	s, err := fs.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s != Defaults() {
		t.Errorf("Load() of missing file = %+v, want defaults", s)
	}
}

func TestFileStore_SaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dir", "settings.toml")
	fs, _ := NewFileStore(path)

	original := Defaults()
	original.Location = Location{
		Latitude: 24.7136, Longitude: 46.6753, Elevation: 612,
		City: "Riyadh", Country: "Saudi Arabia", Timezone: "Asia/Riyadh",
	}
	original.Calculation.AsrMethod = solar.AsrHanafi
	original.Calculation.Adjustments.Maghrib = 3

	if err := fs.Save(original); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not survive a successful save")
	}

	loaded, err := fs.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded != original {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", loaded, original)
	}
}

func TestFileStore_PartialFileKeepsDefaults(t *testing.T) {
	path := tempSettingsPath(t)
	content := "[location]\nlatitude = 21.4225\nlongitude = 39.8262\ncity = \"Makkah\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fs, _ := NewFileStore(path)
	s, err := fs.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Location.City != "Makkah" || s.Location.Latitude != 21.4225 {
		t.Errorf("location = %+v", s.Location)
	}
	if s.Calculation != DefaultCalculation() {
		t.Errorf("calculation should keep defaults, got %+v", s.Calculation)
	}
}

func TestFileStore_InvalidTOML(t *testing.T) {
	path := tempSettingsPath(t)
	if err := os.WriteFile(path, []byte("[location\nlatitude ="), 0o644); err != nil {
		t.Fatal(err)
	}

	fs, _ := NewFileStore(path)
	if _, err := fs.Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestFileStore_Reset(t *testing.T) {
	path := tempSettingsPath(t)
	fs, _ := NewFileStore(path)

	if err := fs.Save(Defaults()); err != nil {
		t.Fatal(err)
	}
	if err := fs.Reset(); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Reset should have deleted the file")
	}
	if err := fs.Reset(); err != nil {
		t.Errorf("Reset of missing file should not error, got %v", err)
	}
}

// --- Set / Get ---

func TestSet_ValidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"latitude", "21.4225", "21.4225"},
		{"longitude", "-0.1278", "-0.1278"},
		{"elevation", "612", "612"},
		{"city", "Riyadh", "Riyadh"},
		{"country", "Saudi Arabia", "Saudi Arabia"},
		{"timezone", "Asia/Riyadh", "Asia/Riyadh"},
		{"method", "isna", "ISNA"},
		{"asr_method", "hanafi", "Hanafi"},
		{"high_latitude", "OneSeventh", "OneSeventh"},
		{"hijri_offset", "-1", "-1"},
		{"adjust.maghrib", "3", "3"},
		{"iqamah.fajr", "25", "25"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			s := Defaults()
			if err := s.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q, %q) error: %v", tt.key, tt.value, err)
			}
			got, err := s.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSet_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"latitude", "north"},
		{"latitude", "91"},
		{"longitude", "-181"},
		{"elevation", "high"},
		{"timezone", "Nowhere/Special"},
		{"method", "Unknown"},
		{"fajr_angle", "45"},
		{"isha_interval", "-5"},
		{"asr_method", "Maliki-ish"},
		{"high_latitude", "Sometimes"},
		{"hijri_offset", "9"},
		{"adjust.maghrib", "three"},
		{"adjust.tahajjud", "3"},
		{"iqamah.isha", "-1"},
		{"unknown_key", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			s := Defaults()
			if err := s.Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) expected error, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestSet_MethodFillsAngles(t *testing.T) {
	s := Defaults()
	if err := s.Set("method", "Jafari"); err != nil {
		t.Fatal(err)
	}
	c := s.Calculation
	if c.FajrAngle != 16 || c.IshaAngle != 14 || c.MaghribAngle != 4 || c.IshaInterval != 0 {
		t.Errorf("Jafari params = %+v", c)
	}
}

func TestSet_AngleSwitchesToCustom(t *testing.T) {
	s := Defaults()
	if err := s.Set("fajr_angle", "17"); err != nil {
		t.Fatal(err)
	}
	if s.Calculation.Method != solar.MethodCustom {
		t.Errorf("Method = %q, want %q", s.Calculation.Method, solar.MethodCustom)
	}
	if s.Calculation.IshaInterval != 90 {
		t.Errorf("unrelated params should be kept, isha_interval = %v", s.Calculation.IshaInterval)
	}
}

func TestGet_UnknownKey(t *testing.T) {
	s := Defaults()
	if _, err := s.Get("nope"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := s.Get("iqamah.witr"); err == nil {
		t.Error("expected error for unknown prayer")
	}
}

func TestDisplayKeys(t *testing.T) {
	keys := DisplayKeys()
	s := Defaults()
	for _, k := range keys {
		if _, err := s.Get(k); err != nil {
			t.Errorf("Get(%q) from DisplayKeys failed: %v", k, err)
		}
	}
	if !contains(keys, "adjust.isha") || !contains(keys, "iqamah.fajr") {
		t.Errorf("DisplayKeys() = %v, want expanded per-prayer keys", keys)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- Store ---

func TestStore_GenerationBumpsOnChange(t *testing.T) {
	st, err := NewStore(NewMemory(Defaults()))
	if err != nil {
		t.Fatal(err)
	}
	if st.Generation() != 1 {
		t.Fatalf("initial generation = %d, want 1", st.Generation())
	}

	london := Location{Latitude: 51.5074, Longitude: -0.1278, City: "London", Country: "United Kingdom", Timezone: "Europe/London"}
	snap, err := st.SetLocation(london)
	if err != nil {
		t.Fatalf("SetLocation error: %v", err)
	}
	if snap.Generation != 2 || st.Generation() != 2 {
		t.Errorf("generation after change = %d, want 2", snap.Generation)
	}
	if st.Current().Location != london {
		t.Errorf("Current().Location = %+v", st.Current().Location)
	}

	calc := DefaultCalculation()
	calc.AsrMethod = solar.AsrHanafi
	if _, err := st.SetCalculation(calc); err != nil {
		t.Fatal(err)
	}
	if st.Generation() != 3 {
		t.Errorf("generation = %d, want 3", st.Generation())
	}
}

func TestStore_InvalidUpdateKeepsSnapshot(t *testing.T) {
	mem := NewMemory(Defaults())
	st, _ := NewStore(mem)
	before := st.Current()

	_, err := st.SetLocation(Location{Latitude: 100})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if st.Current() != before {
		t.Error("snapshot changed after failed update")
	}
	saved, _ := mem.Load()
	if saved != Defaults() {
		t.Error("failed update should not be persisted")
	}
}

type failingPersister struct{ Memory }

func (f *failingPersister) Save(Settings) error { return errors.New("disk full") }

func TestStore_PersistFailureKeepsGeneration(t *testing.T) {
	st, _ := NewStore(&failingPersister{Memory: Memory{s: Defaults()}})

	_, err := st.Update(func(s *Settings) error { return s.Set("city", "Ipoh") })
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Update error = %v, want disk full", err)
	}
	if st.Generation() != 1 {
		t.Errorf("generation = %d, want 1", st.Generation())
	}
}

func TestStore_SnapshotIsImmutable(t *testing.T) {
	st, _ := NewStore(NewMemory(Defaults()))

	snap := st.Current()
	snap.Location.City = "Changed"
	if st.Current().Location.City == "Changed" {
		t.Error("mutating a snapshot must not affect the store")
	}
}
