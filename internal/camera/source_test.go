package camera

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestStaticSourceReturnsCopy(t *testing.T) {
	src := NewStaticSource([]string{"Cam1", "Cam2"})

	got, err := src.Cameras(context.Background(), "dev")
	if err != nil {
		t.Fatalf("Cameras: %v", err)
	}
	got[0] = "mutated"

	again, _ := src.Cameras(context.Background(), "dev")
	if again[0] != "Cam1" {
		t.Fatalf("static list was mutated through returned slice: %v", again)
	}
}

func TestAPISource(t *testing.T) {
	var gotDevice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cameras" {
			http.NotFound(w, r)
			return
		}
		gotDevice = r.URL.Query().Get("device_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cameras":["Global","Cam1","Cam2"]}`))
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL+"/api/", time.Second)
	got, err := src.Cameras(context.Background(), "store 7")
	if err != nil {
		t.Fatalf("Cameras: %v", err)
	}
	if gotDevice != "store 7" {
		t.Fatalf("device_id = %q", gotDevice)
	}
	if want := []string{"Global", "Cam1", "Cam2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Cameras = %v, want %v", got, want)
	}
}

func TestAPISourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPISource(srv.URL, time.Second).Cameras(context.Background(), "dev")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]string
	err   error
}

func (c *memoryCache) Get(ctx context.Context, deviceID string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.items[deviceID]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, deviceID string, cameras []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[string][]string{}
	}
	c.items[deviceID] = cameras
	return nil
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	list  []string
	err   error
}

func (s *countingSource) Cameras(ctx context.Context, deviceID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.list, s.err
}

func TestCachedSource(t *testing.T) {
	upstream := &countingSource{list: []string{"Cam1", "Cam2"}}
	cache := &memoryCache{}
	src := NewCachedSource(upstream, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := src.Cameras(ctx, "dev-1")
		if err != nil {
			t.Fatalf("Cameras: %v", err)
		}
		if !reflect.DeepEqual(got, upstream.list) {
			t.Fatalf("Cameras = %v", got)
		}
	}
	if upstream.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", upstream.calls)
	}
}

func TestCachedSourceBypassesBrokenCache(t *testing.T) {
	upstream := &countingSource{list: []string{"Cam1"}}
	src := NewCachedSource(upstream, &memoryCache{err: errors.New("redis down")})

	got, err := src.Cameras(context.Background(), "dev")
	if err != nil {
		t.Fatalf("Cameras: %v", err)
	}
	if len(got) != 1 || got[0] != "Cam1" {
		t.Fatalf("Cameras = %v", got)
	}
}

func TestCachedSourcePropagatesUpstreamError(t *testing.T) {
	upstream := &countingSource{err: ErrSourceUnavailable}
	src := NewCachedSource(upstream, &memoryCache{})

	if _, err := src.Cameras(context.Background(), "dev"); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestGormSource(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Model{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	rows := []Model{
		{DeviceID: "dev-1", Name: "Cam3", Position: 2, Enabled: true},
		{DeviceID: "dev-1", Name: "Cam1", Position: 0, Enabled: true},
		{DeviceID: "dev-1", Name: "Cam2", Position: 1, Enabled: true},
		{DeviceID: "dev-2", Name: "Lobby", Position: 0, Enabled: true},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	// GORM skips zero-value fields that carry a default, so disable explicitly.
	if err := db.Create(&Model{DeviceID: "dev-1", Name: "Broken", Position: 3}).Error; err != nil {
		t.Fatalf("seed disabled: %v", err)
	}
	if err := db.Model(&Model{}).Where("name = ?", "Broken").Update("enabled", false).Error; err != nil {
		t.Fatalf("disable: %v", err)
	}

	got, err := NewGormSource(db).Cameras(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("Cameras: %v", err)
	}
	if want := []string{"Cam1", "Cam2", "Cam3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Cameras = %v, want %v", got, want)
	}

	empty, err := NewGormSource(db).Cameras(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Cameras unknown: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("unknown device returned %v", empty)
	}
}
