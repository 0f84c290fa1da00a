package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vitrine/internal/db"
)

const scoreField = "__vector_score"

// CreateVectorIndex runs FT.CREATE for the product embedding schema:
// model TAG plus an HNSW cosine FLOAT32 vector.
func (s *Store) CreateVectorIndex(ctx context.Context, spec *db.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(createArgs(spec)...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if serverErrorMentions(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Key: spec.Name, Err: err}
	}
	return nil
}

func createArgs(spec *db.IndexSpec) []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(spec.Dim),
		"DISTANCE_METRIC", "COSINE",
	}
	if spec.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(spec.M))
	}
	if spec.EFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(spec.EFConstruct))
	}

	args := []string{
		spec.Name, "ON", "HASH",
		"PREFIX", "1", spec.Prefix,
		"SCHEMA",
		db.FieldModel, "TAG",
		db.FieldEmbedding, "VECTOR", "HNSW", strconv.Itoa(len(attrs)),
	}
	return append(args, attrs...)
}

// DropVectorIndex runs FT.DROPINDEX, with DD when deleteDocs is set.
func (s *Store) DropVectorIndex(ctx context.Context, name string, deleteDocs bool) error {
	args := []string{name}
	if deleteDocs {
		args = append(args, "DD")
	}
	if err := s.client.Do(ctx, s.client.B().Arbitrary("FT.DROPINDEX").Args(args...).Build()).Error(); err != nil {
		if missingIndex(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Key: name, Err: err}
	}
	return nil
}

// IndexExists probes the index via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	if err := s.client.Do(ctx, s.client.B().Arbitrary("FT.INFO").Args(name).Build()).Error(); err != nil {
		if missingIndex(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Key: name, Err: err}
	}
	return true, nil
}

// PutVectors writes every document as a hash in one pipelined round-trip.
func (s *Store) PutVectors(ctx context.Context, docs []db.VectorDoc) error {
	if len(docs) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		cmds = append(cmds, s.client.B().Hset().Key(d.Key).FieldValue().
			FieldValue(db.FieldProductID, d.ProductID).
			FieldValue(db.FieldModel, d.Model).
			FieldValue(db.FieldEmbedding, db.EncodeVector(d.Embedding)).
			Build())
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Key: docs[i].Key, Err: err}
		}
	}
	return nil
}

// HasKeys checks keys in one pipelined round-trip.
func (s *Store) HasKeys(ctx context.Context, keys []string) ([]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make(rueidis.Commands, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, s.client.B().Exists().Key(key).Build())
	}

	out := make([]bool, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		n, err := res.AsInt64()
		if err != nil {
			return nil, &db.Error{Op: db.OpExists, Key: keys[i], Err: err}
		}
		out[i] = n > 0
	}
	return out, nil
}

// SearchKNN runs a KNN query via FT.SEARCH (dialect 2). Cosine distances come back as
// similarities in [0,1], best first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) ([]db.KNNHit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	args := []string{
		q.Index, knnQuery(q),
		"RETURN", "2", scoreField, db.FieldProductID,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.EncodeVector(q.Vector),
		"DIALECT", "2",
	}

	raw, err := s.client.Do(ctx, s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		if missingIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Key: q.Index, Err: err}
	}
	return parseHits(raw)
}

func knnQuery(q *db.KNNQuery) string {
	knn := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, db.FieldEmbedding, scoreField)
	if q.Model == "" {
		return "*=>" + knn
	}
	return fmt.Sprintf("(@%s:{%s})=>%s", db.FieldModel, tagEscaper.Replace(q.Model), knn)
}

// parseHits reads the RESP2 reply [total, key1, [field, value, ...], key2, ...].
// Entries with unreadable keys or fields are skipped.
func parseHits(raw []rueidis.RedisMessage) ([]db.KNNHit, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if _, err := raw[0].AsInt64(); err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	hits := make([]db.KNNHit, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].AsStrMap()
		if err != nil {
			continue
		}

		hit := db.KNNHit{Key: key, ProductID: fields[db.FieldProductID]}
		if d, err := strconv.ParseFloat(fields[scoreField], 64); err == nil {
			hit.Score = min(1, max(0, 1-d))
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// tagEscaper escapes TAG query syntax characters with a backslash.
var tagEscaper = func() *strings.Replacer {
	const special = ",.<>{}[]\"':;!@#$%^&*()-+=~|/\\ "
	pairs := make([]string, 0, 2*len(special))
	for _, r := range special {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}()
