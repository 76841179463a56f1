package memory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/memoir-labs/memoir/internal/domain"
)

// Hash field names for memory records.
const (
	fieldID         = "id"
	fieldOwnerID    = "owner_id"
	fieldTitle      = "title"
	fieldContent    = "content"
	fieldSourceType = "source_type"
	fieldSourceURL  = "source_url"
	fieldCategory   = "category"
	fieldConfidence = "confidence"
	fieldTags       = "tags"
	fieldMetadata   = "metadata"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
)

// toFields serializes a memory into flat hash fields. Tags and metadata are
// JSON-encoded; confidence is written only once classification has run, so
// its absence keeps the nullable semantics.
func toFields(m *domain.Memory) (map[string]string, error) {
	fields := map[string]string{
		fieldID:         m.ID,
		fieldOwnerID:    m.OwnerID,
		fieldTitle:      m.Title,
		fieldContent:    m.Content,
		fieldSourceType: string(m.SourceType),
		fieldSourceURL:  m.SourceURL,
		fieldCategory:   m.Category,
		fieldCreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:  m.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	if m.Classified {
		fields[fieldConfidence] = strconv.FormatFloat(m.Confidence, 'f', -1, 64)
	}

	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	fields[fieldTags] = string(tags)

	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	fields[fieldMetadata] = string(metaJSON)

	return fields, nil
}

// fromFields reconstructs a memory from hash fields.
func fromFields(fields map[string]string) (domain.Memory, error) {
	m := domain.Memory{
		ID:         fields[fieldID],
		OwnerID:    fields[fieldOwnerID],
		Title:      fields[fieldTitle],
		Content:    fields[fieldContent],
		SourceType: domain.ParseSourceType(fields[fieldSourceType]),
		SourceURL:  fields[fieldSourceURL],
		Category:   fields[fieldCategory],
	}

	if raw, ok := fields[fieldConfidence]; ok && raw != "" {
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Memory{}, fmt.Errorf("parse confidence: %w", err)
		}
		m.Confidence = conf
		m.Classified = true
	}

	if raw := fields[fieldTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.Tags); err != nil {
			return domain.Memory{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if raw := fields[fieldMetadata]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.Metadata); err != nil {
			return domain.Memory{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	var err error
	if raw := fields[fieldCreatedAt]; raw != "" {
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return domain.Memory{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	if raw := fields[fieldUpdatedAt]; raw != "" {
		if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return domain.Memory{}, fmt.Errorf("parse updated_at: %w", err)
		}
	}

	return m, nil
}
