// Package artifacts holds the mutable collections produced during a run:
// documents, deductions, and risk findings.
package artifacts

import (
	"fmt"
	"sync"

	"github.com/agentictax/taxpilot/internal/model"
)

// Store owns a run's artifact collections. Deductions and risk findings
// are appended in bulk under one lock so a reader never observes a
// partially committed stage result.
type Store struct {
	mu           sync.RWMutex
	runID        string
	documents    []model.Document
	deductions   []model.Deduction
	riskFindings []model.RiskFinding
}

// NewStore creates an empty store for the given run.
func NewStore(runID string) *Store {
	return &Store{runID: runID}
}

// AddDocument appends one document.
func (s *Store) AddDocument(doc model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, doc)
}

// UpdateDocumentStatus moves a document's status forward. Backward moves
// are rejected.
func (s *Store) UpdateDocumentStatus(docID string, status model.DocumentStatus, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID != docID {
			continue
		}
		if !s.documents[i].Status.CanAdvanceTo(status) {
			return fmt.Errorf("document %s: cannot move status %s -> %s", docID, s.documents[i].Status, status)
		}
		s.documents[i].Status = status
		if confidence > 0 {
			s.documents[i].Confidence = confidence
		}
		return nil
	}
	return fmt.Errorf("document %s: not found", docID)
}

// AddDeductions appends a stage's full deduction output atomically. Every
// deduction is validated first; one invalid entry rejects the whole batch.
func (s *Store) AddDeductions(deductions []model.Deduction) error {
	for _, d := range deductions {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deductions = append(s.deductions, deductions...)
	return nil
}

// AddRiskFindings appends a stage's full finding output atomically.
func (s *Store) AddRiskFindings(findings []model.RiskFinding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskFindings = append(s.riskFindings, findings...)
}

// Documents returns a copy of the document list.
func (s *Store) Documents() []model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Document, len(s.documents))
	copy(out, s.documents)
	return out
}

// Snapshot returns a deep-copied, read-only view of all artifacts for
// consumers outside the pipeline goroutine.
func (s *Store) Snapshot(phase model.Phase) model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.Snapshot{
		RunID:        s.runID,
		Phase:        phase,
		Documents:    make([]model.Document, len(s.documents)),
		Deductions:   make([]model.Deduction, len(s.deductions)),
		RiskFindings: make([]model.RiskFinding, len(s.riskFindings)),
	}
	copy(snap.Documents, s.documents)
	copy(snap.Deductions, s.deductions)
	copy(snap.RiskFindings, s.riskFindings)
	return snap
}
