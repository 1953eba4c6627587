package config

import (
	"errors"
	"testing"

	"github.com/MrWong99/kalamu/pkg/provider/stt"
	sttmock "github.com/MrWong99/kalamu/pkg/provider/stt/mock"
)

func TestRegistryCreateBackend(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var gotEntry BackendEntry
	r.RegisterBackend("mock", func(entry BackendEntry) (stt.Provider, error) {
		gotEntry = entry
		return &sttmock.Provider{}, nil
	})

	p, err := r.CreateBackend(BackendEntry{Name: "mock", Model: "base", Language: "sw"})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if p == nil {
		t.Fatal("CreateBackend returned nil provider")
	}
	if gotEntry.Model != "base" || gotEntry.Language != "sw" {
		t.Errorf("factory received %+v, want model/language forwarded", gotEntry)
	}
}

func TestRegistryUnknownBackend(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.CreateBackend(BackendEntry{Name: "nope"})
	if !errors.Is(err, ErrBackendNotRegistered) {
		t.Fatalf("CreateBackend = %v, want ErrBackendNotRegistered", err)
	}
}

func TestRegistryOverwrite(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := &sttmock.Provider{}
	second := &sttmock.Provider{}
	r.RegisterBackend("mock", func(BackendEntry) (stt.Provider, error) { return first, nil })
	r.RegisterBackend("mock", func(BackendEntry) (stt.Provider, error) { return second, nil })

	p, err := r.CreateBackend(BackendEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if p != second {
		t.Error("CreateBackend should use the latest registration")
	}

	if names := r.Names(); len(names) != 1 || names[0] != "mock" {
		t.Errorf("Names = %v, want [mock]", names)
	}
}
