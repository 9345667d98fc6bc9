package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/utils"
)

const (
	documentsTable = "documents"
	// DefaultListLimit bounds List when the caller passes no limit.
	DefaultListLimit = 100
)

var documentColumns = []string{
	"id", "file_name", "document_type", "processed_at",
	"extracted_content", "dynamic_fields", "source_object",
}

// ListFilter narrows List; zero values mean no filter.
type ListFilter struct {
	Limit        int
	DocumentType string
}

// TypeCount is one row of the per-type summary.
type TypeCount struct {
	DocumentType string `db:"document_type"`
	Count        int64  `db:"n"`
}

// DocumentRepository is the append-only store for processed documents.
type DocumentRepository interface {
	Insert(ctx context.Context, doc *entity.Document) (int64, error)
	Get(ctx context.Context, id int64) (*entity.Document, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Document, error)
	CountByType(ctx context.Context) ([]TypeCount, error)
	Count(ctx context.Context) (int64, error)
}

type documentRepo struct {
	db     *DB
	mu     sync.Mutex
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

type documentRow struct {
	ID               int64          `db:"id"`
	FileName         string         `db:"file_name"`
	DocumentType     string         `db:"document_type"`
	ProcessedAt      string         `db:"processed_at"`
	ExtractedContent sql.NullString `db:"extracted_content"`
	DynamicFields    string         `db:"dynamic_fields"`
	SourceObject     sql.NullString `db:"source_object"`
}

func (r documentRow) toEntity() (*entity.Document, error) {
	dyn, err := utils.DecodeDynamic(r.DynamicFields)
	if err != nil {
		return nil, fmt.Errorf("document %d: %w", r.ID, err)
	}
	return entity.RestoreDocument(
		r.ID,
		r.FileName,
		r.DocumentType,
		utils.ParseTimestamp(r.ProcessedAt),
		utils.StrOrEmpty(r.ExtractedContent),
		dyn,
		utils.StrOrEmpty(r.SourceObject),
	), nil
}

// Insert validates and stores doc, then marks it persisted (sealed) with its new id.
func (r *documentRepo) Insert(ctx context.Context, doc *entity.Document) (int64, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	dyn, err := doc.DynamicJSON()
	if err != nil {
		return 0, fmt.Errorf("encode dynamic fields: %w", err)
	}
	var source any
	if so := doc.SourceObject(); so != "" {
		source = so
	}

	ins := entsql.Dialect(r.db.Dialect).
		Insert(documentsTable).
		Columns("file_name", "document_type", "processed_at", "extracted_content", "dynamic_fields", "source_object").
		Values(doc.FileName(), doc.DocumentType(), doc.ProcessedAtISO(), doc.ExtractedContent(), string(dyn), source)

	r.mu.Lock()
	defer r.mu.Unlock()

	var id int64
	if r.db.Dialect == dialect.Postgres {
		query, args := ins.Returning("id").Query()
		err = r.db.SQL.QueryRowxContext(ctx, query, args...).Scan(&id)
	} else {
		query, args := ins.Query()
		var res sql.Result
		if res, err = r.db.SQL.ExecContext(ctx, query, args...); err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		r.logger.Error("repository.insert.failed", "file_name", doc.FileName(), "error", err)
		return 0, fmt.Errorf("%w: insert document: %w", common.ErrDatabase, err)
	}
	doc.MarkPersisted(id)
	r.logger.Info("repository.insert.ok", "id", id, "file_name", doc.FileName(), "document_type", doc.DocumentType())
	return id, nil
}

func (r *documentRepo) Get(ctx context.Context, id int64) (*entity.Document, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	var row documentRow
	if err := r.db.SQL.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %d: %w", id, common.ErrNotFound)
		}
		r.logger.Error("failed to get document", "id", id, "error", err)
		return nil, fmt.Errorf("%w: get document: %w", common.ErrDatabase, err)
	}
	return row.toEntity()
}

// List returns the newest documents first.
func (r *documentRepo) List(ctx context.Context, filter ListFilter) ([]*entity.Document, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	sel := entsql.Dialect(r.db.Dialect).
		Select(documentColumns...).
		From(entsql.Table(documentsTable))
	if filter.DocumentType != "" {
		sel = sel.Where(entsql.EQ("document_type", filter.DocumentType))
	}
	query, args := sel.OrderBy(entsql.Desc("id")).Limit(limit).Query()

	var rows []documentRow
	if err := r.db.SQL.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("failed to list documents", "document_type", filter.DocumentType, "error", err)
		return nil, fmt.Errorf("%w: list documents: %w", common.ErrDatabase, err)
	}
	docs := make([]*entity.Document, 0, len(rows))
	for _, row := range rows {
		d, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// CountByType returns per-type counts ordered by count, largest first.
func (r *documentRepo) CountByType(ctx context.Context) ([]TypeCount, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select("document_type", entsql.As(entsql.Count("*"), "n")).
		From(entsql.Table(documentsTable)).
		GroupBy("document_type").
		OrderBy(entsql.Desc("n"), "document_type").
		Query()

	var out []TypeCount
	if err := r.db.SQL.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.Error("failed to count documents by type", "error", err)
		return nil, fmt.Errorf("%w: count documents: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *documentRepo) Count(ctx context.Context) (int64, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select(entsql.Count("*")).
		From(entsql.Table(documentsTable)).
		Query()

	var n int64
	if err := r.db.SQL.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("%w: count documents: %w", common.ErrDatabase, err)
	}
	return n, nil
}
