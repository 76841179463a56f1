package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/memoir-labs/memoir/internal/db"
)

// distanceField is the alias FT.SEARCH assigns to the KNN score.
const distanceField = "__vector_distance"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH, results
// ordered by ascending distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	filterStr := buildTagFilter(q.TagFilters)

	knnPart := fmt.Sprintf("[KNN %d @vector $BLOB AS %s]", q.K, distanceField)
	var queryStr string
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		returns := append([]string{distanceField}, q.ReturnFields...)
		args = append(args, "RETURN", strconv.Itoa(len(returns)))
		args = append(args, returns...)
	} else {
		args = append(args, "RETURN", "1", distanceField)
	}

	args = append(args,
		"SORTBY", distanceField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.VectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// buildTagFilter renders equality tag filters as `@field:{value}` clauses.
func buildTagFilter(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}

	fields := make([]string, 0, len(filters))
	for f := range filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	clauses := make([]string, 0, len(fields))
	for _, f := range fields {
		clauses = append(clauses, fmt.Sprintf("@%s:{%s}", f, escapeTag(filters[f])))
	}
	return strings.Join(clauses, " ")
}

// escapeTag escapes query-syntax characters inside a TAG value (UUIDs carry dashes).
func escapeTag(v string) string {
	var sb strings.Builder
	for _, r := range v {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if distStr, ok := entry.Fields[distanceField]; ok {
			if d, err := strconv.ParseFloat(distStr, 64); err == nil {
				entry.Distance = d
			}
			delete(entry.Fields, distanceField)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseFieldPairs converts an alternating name/value array into a map.
func parseFieldPairs(raw []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		name, err := raw[i].ToString()
		if err != nil {
			continue
		}
		val, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		fields[name] = val
	}
	return fields
}

