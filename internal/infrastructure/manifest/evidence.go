package manifest

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
	"github.com/closebooks/backend/internal/domain/shared"
)

// DefaultEvidenceSource is stamped on manifest entries without a source
const DefaultEvidenceSource = "fixture"

// evidenceManifest accepts both wrapper keys seen in the wild: the evidence
// manifest files use "evidence", the canonical bundle uses "items".
type evidenceManifest struct {
	Evidence []review.EvidenceItem `json:"evidence"`
	Items    []review.EvidenceItem `json:"items"`
}

func (m evidenceManifest) entries() []review.EvidenceItem {
	if len(m.Evidence) > 0 {
		return m.Evidence
	}
	return m.Items
}

// DecodeEvidenceManifest parses an evidence manifest document into a bundle.
// Every entry must carry an evidence_type; amounts and dates are optional and
// parsed when present; source defaults to "fixture".
func DecodeEvidenceManifest(raw []byte) (review.EvidenceBundle, error) {
	var doc evidenceManifest
	if err := decodeJSON(raw, &doc); err != nil {
		return review.EvidenceBundle{}, fmt.Errorf("%w: evidence manifest: %v", shared.ErrInvalidInput, err)
	}
	items, err := normalizeEvidence(doc.entries())
	if err != nil {
		return review.EvidenceBundle{}, err
	}
	return review.EvidenceBundle{Items: items}, nil
}

func normalizeEvidence(entries []review.EvidenceItem) ([]review.EvidenceItem, error) {
	items := make([]review.EvidenceItem, 0, len(entries))
	for i, entry := range entries {
		if entry.EvidenceType == "" {
			return nil, fmt.Errorf("%w: evidence entry %d missing required field evidence_type",
				shared.ErrMissingData, i)
		}
		if entry.Source == "" {
			entry.Source = DefaultEvidenceSource
		}
		items = append(items, entry)
	}
	return items, nil
}
