package config

import "testing"

func TestRWMutexManagerGetSet(t *testing.T) {
	initial := &Config{Scraper: Scraper{DailyLimitPerChannel: 5}}
	mgr := NewManager(initial)

	got := mgr.Get()
	if got == nil {
		t.Fatal("expected initial config snapshot")
	}
	if got == initial {
		t.Fatal("expected manager to store a clone on construction")
	}
	if got.Scraper.DailyLimitPerChannel != 5 {
		t.Fatalf("unexpected daily limit: %d", got.Scraper.DailyLimitPerChannel)
	}

	next := &Config{Scraper: Scraper{DailyLimitPerChannel: 9}}
	mgr.Set(next)
	next.Scraper.DailyLimitPerChannel = 99

	updated := mgr.Get()
	if updated.Scraper.DailyLimitPerChannel != 9 {
		t.Fatalf("expected Set to isolate its snapshot from caller mutation, got %d", updated.Scraper.DailyLimitPerChannel)
	}
}

func TestRWMutexManagerReload(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	mgr := NewManager(&Config{})

	if err := mgr.Reload(path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Reliability.Quotas.YouTubeDailyLimit != 10000 {
		t.Fatalf("unexpected config after reload: %+v", cfg.Reliability.Quotas)
	}
}

func TestRWMutexManagerReloadRemembersPath(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	mgr, err := LoadManager(path)
	if err != nil {
		t.Fatalf("LoadManager failed: %v", err)
	}

	if err := mgr.Reload(""); err != nil {
		t.Fatalf("parameterless reload failed: %v", err)
	}
}

func TestRWMutexManagerReloadRequiresPath(t *testing.T) {
	mgr := NewManager(&Config{})
	if err := mgr.Reload(""); err == nil {
		t.Fatal("expected error when no path is known")
	}
}

func TestRWMutexManagerNilReceiverIsSafe(t *testing.T) {
	var mgr *RWMutexManager
	if mgr.Get() != nil {
		t.Fatal("expected nil Get on nil manager")
	}
	mgr.Set(&Config{}) // must not panic
}
