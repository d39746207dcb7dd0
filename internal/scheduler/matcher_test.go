package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udaykr117/smartsched/internal/model"
)

func TestFindMachine(t *testing.T) {
	machines := []model.Machine{
		{ID: "LATHE-1", Name: "Manual Lathe"},
		{ID: "cnc-7", Name: "Haas Mill"},
		{ID: "M-3", Name: "Big CNC Router"},
	}

	tests := []struct {
		name     string
		required string
		wantID   string
		wantOK   bool
	}{
		{"id equality ignores case", "CNC-7", "cnc-7", true},
		{"name substring ignores case", "router", "M-3", true},
		{"first in directory order wins", "l", "LATHE-1", true},
		{"id prefix alone is not a match", "cnc", "M-3", true},
		{"no match", "3D Printer", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := FindMachine(model.Job{RequiredMachine: tt.required}, machines)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, m.ID)
		})
	}
}

func TestFindWorker(t *testing.T) {
	workers := []model.Worker{
		{ID: "W1", Skill: "Welding, Painting"},
		{ID: "W2", Skill: "CNC Programming"},
		{ID: "W3", Skill: "cnc, lathe"},
	}

	tests := []struct {
		name     string
		required string
		wantID   string
		wantOK   bool
	}{
		{"exact token ignores case and spaces", "PAINTING", "W1", true},
		{"substring fallback in directory order", "CNC", "W2", true},
		{"token match", "Lathe", "W3", true},
		{"no match", "Assembly", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := FindWorker(model.Job{RequiredSkill: tt.required}, workers)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, w.ID)
		})
	}
}

func TestFindOnEmptyDirectory(t *testing.T) {
	_, ok := FindMachine(model.Job{RequiredMachine: "CNC"}, nil)
	assert.False(t, ok)
	_, ok = FindWorker(model.Job{RequiredSkill: "CNC"}, nil)
	assert.False(t, ok)
}
