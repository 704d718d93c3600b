package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/gcp"
	"airecruiter/internal/types"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/iterator"
)

// Warehouse column names
const (
	colCandidateID    = "id_kandydata"
	colFileName       = "nazwa_pliku_cv"
	colStorageURL     = "url_cv_gcs"
	colAppliedAt      = "data_aplikacji"
	colResumeText     = "tresc_cv"
	colSummary        = "umiejetnosci_tech"
	colTranscriptText = "transkrypcja_rozmowy_ai"
	colTranscriptJSON = "transkrypcja_json"
	colStatus         = "status_rekrutacji"
	colEventType      = "event_type"
)

// BigQueryStore writes events to one BigQuery table with streaming inserts
type BigQueryStore struct {
	client  *bigquery.Client
	dataset string
	table   string
	logger  *errors.Logger
}

var _ Store = (*BigQueryStore)(nil)

// NewBigQueryStore creates the BigQuery client
func NewBigQueryStore(ctx context.Context, cfg config.WarehouseConfig, gcpConfig config.GCPConfig, logger *errors.Logger) (*BigQueryStore, error) {
	opts, err := gcp.ClientOptions(ctx, gcpConfig)
	if err != nil {
		return nil, err
	}

	client, err := bigquery.NewClient(ctx, gcpConfig.ProjectID, opts...)
	if err != nil {
		return nil, errors.NewUnavailableError(errors.ErrCodeServiceUnavailable,
			"Failed to create BigQuery client", err)
	}

	return &BigQueryStore{
		client:  client,
		dataset: cfg.Dataset,
		table:   cfg.Table,
		logger:  logger.With("component", "store", "backend", "bigquery"),
	}, nil
}

// uploadRow is the cv_uploaded insert
type uploadRow struct {
	event types.UploadEvent
}

func (r uploadRow) Save() (map[string]bigquery.Value, string, error) {
	e := r.event
	return map[string]bigquery.Value{
		colCandidateID: e.CandidateID,
		colFileName:    e.FileName,
		colStorageURL:  e.StorageURL,
		colAppliedAt:   e.AppliedAt,
		colResumeText:  e.ResumeText,
		colSummary:     e.Summary,
		colStatus:      e.Status,
		colEventType:   types.EventCVUploaded,
	}, e.CandidateID + ":" + types.EventCVUploaded, nil
}

// transcriptRow is the transcript_saved insert
type transcriptRow struct {
	event types.TranscriptEvent
}

func (r transcriptRow) Save() (map[string]bigquery.Value, string, error) {
	e := r.event
	transcriptJSON, err := EncodeTranscript(e.Messages)
	if err != nil {
		return nil, "", err
	}
	return map[string]bigquery.Value{
		colCandidateID:    e.CandidateID,
		colAppliedAt:      e.SavedAt,
		colTranscriptText: types.FlattenTranscript(e.Messages),
		colTranscriptJSON: transcriptJSON,
		colStatus:         e.Status,
		colEventType:      types.EventTranscriptSaved,
	}, e.CandidateID + ":" + types.EventTranscriptSaved + ":" + strconv.FormatInt(e.SavedAt.UnixNano(), 10), nil
}

func (s *BigQueryStore) RecordUpload(ctx context.Context, event types.UploadEvent) error {
	return s.insert(ctx, "store.record_upload", event.CandidateID, uploadRow{event: event})
}

func (s *BigQueryStore) RecordTranscript(ctx context.Context, event types.TranscriptEvent) error {
	return s.insert(ctx, "store.record_transcript", event.CandidateID, transcriptRow{event: event})
}

func (s *BigQueryStore) insert(ctx context.Context, spanName, candidateID string, row bigquery.ValueSaver) error {
	ctx, span := s.startSpan(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("candidate.id", candidateID))

	if err := s.client.Dataset(s.dataset).Table(s.table).Inserter().Put(ctx, row); err != nil {
		span.RecordError(err)
		return errors.NewNetworkError(errors.ErrCodeWarehouseWriteFailed,
			"Failed to insert candidate event", err).WithContext("candidate_id", candidateID)
	}
	return nil
}

type candidateRow struct {
	CandidateID string              `bigquery:"id_kandydata"`
	FileName    bigquery.NullString `bigquery:"nazwa_pliku_cv"`
	AppliedAt   time.Time           `bigquery:"data_aplikacji"`
	Status      bigquery.NullString `bigquery:"status_rekrutacji"`
}

func (s *BigQueryStore) ListCandidates(ctx context.Context, limit int) ([]types.CandidateSummary, error) {
	ctx, span := s.startSpan(ctx, "store.list_candidates")
	defer span.End()

	sql, params := s.listQuery(limit)
	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, readError("Failed to query candidates", err)
	}

	var out []types.CandidateSummary
	for {
		var row candidateRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			span.RecordError(err)
			return nil, readError("Failed to read candidate row", err)
		}
		out = append(out, types.CandidateSummary{
			CandidateID: row.CandidateID,
			FileName:    row.FileName.StringVal,
			AppliedAt:   row.AppliedAt,
			Status:      row.Status.StringVal,
		})
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

type recordRow struct {
	Summary        bigquery.NullString `bigquery:"summary"`
	TranscriptJSON bigquery.NullString `bigquery:"transcript_json"`
}

// recordQuery picks the latest upload and LEFT JOINs the latest transcript
func (s *BigQueryStore) recordQuery() string {
	table := s.tableRef()
	return fmt.Sprintf(`WITH upload AS (
  SELECT %[2]s, %[3]s FROM %[1]s
  WHERE %[4]s = @upload_event AND %[2]s = @candidate_id
  ORDER BY %[5]s DESC LIMIT 1
), transcript AS (
  SELECT %[2]s, %[6]s FROM %[1]s
  WHERE %[4]s = @transcript_event AND %[2]s = @candidate_id
  ORDER BY %[5]s DESC LIMIT 1
)
SELECT upload.%[3]s AS summary, transcript.%[6]s AS transcript_json
FROM upload LEFT JOIN transcript USING (%[2]s)`,
		table, colCandidateID, colSummary, colEventType, colAppliedAt, colTranscriptJSON)
}

func (s *BigQueryStore) CandidateRecord(ctx context.Context, candidateID string) (types.CandidateRecord, error) {
	ctx, span := s.startSpan(ctx, "store.candidate_record")
	defer span.End()
	span.SetAttributes(attribute.String("candidate.id", candidateID))

	q := s.client.Query(s.recordQuery())
	q.Parameters = []bigquery.QueryParameter{
		{Name: "candidate_id", Value: candidateID},
		{Name: "upload_event", Value: types.EventCVUploaded},
		{Name: "transcript_event", Value: types.EventTranscriptSaved},
	}

	it, err := q.Read(ctx)
	if err != nil {
		span.RecordError(err)
		return types.CandidateRecord{}, readError("Failed to query candidate record", err)
	}

	var row recordRow
	err = it.Next(&row)
	if err == iterator.Done {
		return types.CandidateRecord{}, candidateNotFound(candidateID)
	}
	if err != nil {
		span.RecordError(err)
		return types.CandidateRecord{}, readError("Failed to read candidate record", err)
	}

	return recordFromRow(candidateID, row)
}

func recordFromRow(candidateID string, row recordRow) (types.CandidateRecord, error) {
	record := types.CandidateRecord{CandidateID: candidateID, Summary: row.Summary.StringVal}
	if !row.TranscriptJSON.Valid || row.TranscriptJSON.StringVal == "" {
		return record, nil
	}

	messages, err := DecodeTranscript(row.TranscriptJSON.StringVal)
	if err != nil {
		return types.CandidateRecord{}, readError("Stored transcript is not valid JSON", err)
	}
	record.Transcript = messages
	record.HasTranscript = true
	return record, nil
}

func (s *BigQueryStore) Close() error {
	return s.client.Close()
}

// listQuery selects the newest uploads. A limit <= 0 means no limit.
func (s *BigQueryStore) listQuery(limit int) (string, []bigquery.QueryParameter) {
	sql := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s = @event_type ORDER BY %s DESC",
		colCandidateID, colFileName, colAppliedAt, colStatus, s.tableRef(), colEventType, colAppliedAt)
	params := []bigquery.QueryParameter{{Name: "event_type", Value: types.EventCVUploaded}}
	if limit > 0 {
		sql += " LIMIT @limit"
		params = append(params, bigquery.QueryParameter{Name: "limit", Value: int64(limit)})
	}
	return sql, params
}

func (s *BigQueryStore) tableRef() string {
	return fmt.Sprintf("`%s.%s.%s`", s.client.Project(), s.dataset, s.table)
}

func (s *BigQueryStore) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("airecruiter.store").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "bigquery"),
		attribute.String("db.name", s.dataset),
		attribute.String("db.sql.table", s.table),
	)
	return ctx, span
}

func readError(message string, err error) error {
	return errors.NewNetworkError(errors.ErrCodeWarehouseReadFailed, message, err)
}
