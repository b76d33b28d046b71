// Package semantic stores entry summaries with embeddings and retrieves the
// most similar ones for a query. It is a side index: Postgres remains the
// source of truth and a missing record only degrades retrieval.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/storage"
)

var tracer = otel.Tracer("forest/semantic")

// fetchConcurrency bounds parallel record reads during a search.
const fetchConcurrency = 8

// Embedder turns text into a vector. Vectors from one Embedder must share a length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Metadata is attached to a record. Values that are not strings, numbers or
// booleans are stored as their JSON encoding.
type Metadata map[string]any

// Record is one stored document.
type Record struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	EntryID   int64             `json:"entry_id"`
	Document  string            `json:"document"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata"`
}

// Index is safe for concurrent use if its store and embedder are.
type Index struct {
	store    storage.ObjectStore
	embedder Embedder
}

func NewIndex(store storage.ObjectStore, embedder Embedder) *Index {
	return &Index{store: store, embedder: embedder}
}

// RecordID is "{session}_{entry}".
func RecordID(sessionID string, entryID int64) string {
	return sessionID + "_" + strconv.FormatInt(entryID, 10)
}

func sessionPrefix(sessionID string) string {
	return "semantic/" + sessionID + "/"
}

func recordKey(sessionID string, entryID int64) string {
	return sessionPrefix(sessionID) + RecordID(sessionID, entryID) + ".json"
}

// Store embeds text and writes the record for (sessionID, entryID).
// Storing the same entry again overwrites the previous record.
func (ix *Index) Store(ctx context.Context, sessionID string, entryID int64, text string, md Metadata) error {
	ctx, span := tracer.Start(ctx, "semantic.store",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int64("entry.id", entryID),
		))
	defer span.End()

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to embed document: %w", err)
	}

	flat := Flatten(md)
	flat["entry_id"] = strconv.FormatInt(entryID, 10)
	flat["session_id"] = sessionID

	rec := Record{
		ID:        RecordID(sessionID, entryID),
		SessionID: sessionID,
		EntryID:   entryID,
		Document:  text,
		Embedding: vec,
		Metadata:  flat,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if err := ix.store.Put(ctx, recordKey(sessionID, entryID), data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Search returns up to limit documents of the session most similar to query,
// skipping the given entries. It never fails: errors are logged and yield
// an empty or partial result.
func (ix *Index) Search(ctx context.Context, query, sessionID string, exclude []int64, limit int) []string {
	ctx, span := tracer.Start(ctx, "semantic.search",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("search.exclude", len(exclude)),
			attribute.Int("search.limit", limit),
		))
	defer span.End()

	log := logger.Ctx(ctx).With("session_id", sessionID)
	if limit <= 0 || query == "" {
		return []string{}
	}

	qvec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		log.Warn("semantic search: embedding query failed", "error", err)
		return []string{}
	}

	keys, err := ix.store.List(ctx, sessionPrefix(sessionID))
	if err != nil {
		span.RecordError(err)
		log.Warn("semantic search: listing records failed", "error", err)
		return []string{}
	}

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[strconv.FormatInt(id, 10)] = true
	}

	records := make([]*Record, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			data, err := ix.store.Get(gctx, key)
			if err != nil {
				log.Warn("semantic search: reading record failed", "key", key, "error", err)
				return nil
			}
			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				log.Warn("semantic search: decoding record failed", "key", key, "error", err)
				return nil
			}
			records[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	type scored struct {
		doc   string
		score float64
		entry int64
	}
	var hits []scored
	for _, rec := range records {
		if rec == nil || skip[rec.Metadata["entry_id"]] {
			continue
		}
		if len(rec.Embedding) != len(qvec) {
			log.Warn("semantic search: embedding size mismatch", "record", rec.ID,
				"got", len(rec.Embedding), "want", len(qvec))
			continue
		}
		hits = append(hits, scored{doc: rec.Document, score: Cosine(qvec, rec.Embedding), entry: rec.EntryID})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry > hits[j].entry
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = h.doc
	}
	span.SetAttributes(attribute.Int("search.results", len(docs)))
	return docs
}

// DeleteSession removes every record of a session.
func (ix *Index) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "semantic.delete_session",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	n, err := ix.store.DeletePrefix(ctx, sessionPrefix(sessionID))
	span.SetAttributes(attribute.Int("records.deleted", n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete session records: %w", err)
	}
	return nil
}

// Flatten converts metadata to string values. Strings pass through, numbers
// and booleans are formatted, and everything else is JSON encoded.
func Flatten(md Metadata) map[string]string {
	out := make(map[string]string, len(md)+2)
	for k, v := range md {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'g', -1, 64)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
