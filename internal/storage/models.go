package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// RunRecord is the catalog entry for one brainstorm or consulting run.
// ResultJSON holds the full run result so the catalog stays schema-light;
// the columns exist for listing and filtering.
type RunRecord struct {
	ID             string
	CreatedAt      time.Time
	Mode           string // "swarm" or "consult"
	Model          string
	Query          string
	Brief          string
	IdeaCount      int
	CritiqueCount  int
	Degraded       bool
	DegradedReason string
	ArtifactDir    string
	ResultJSON     string
}

// IdeaRow is the per-idea projection stored alongside a run so lists can
// be ranked without unpacking ResultJSON.
type IdeaRow struct {
	ID             string
	RunID          string
	Name           string
	TargetCustomer string
	WhatItIs       string
	MeanScore      float64
	FatalFlagCount int
	ArchiveVotes   int
}
