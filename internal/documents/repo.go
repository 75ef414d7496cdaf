package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("document not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

type ListFilter struct {
	Status string // optional
	Query  string // optional ILIKE on title/filename
	Limit  int
	Offset int
}

const docColumns = `
d.id, d.title, d.filename, d.file_path, d.file_size_bytes, d.uploaded_by::text,
d.status, d.error_message, d.page_count, d.created_at, d.updated_at,
coalesce(c.total, 0), coalesce(c.embedded, 0)`

const docChunkJoin = `
left join (
  select document_id,
         count(*) as total,
         count(*) filter (where status = 'embedded') as embedded
  from chunks
  group by document_id
) c on c.document_id = d.id`

func scanDoc(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(
		&d.ID, &d.Title, &d.Filename, &d.FilePath, &d.FileSizeBytes, &d.UploadedBy,
		&d.Status, &d.ErrorMessage, &d.PageCount, &d.CreatedAt, &d.UpdatedAt,
		&d.ChunksTotal, &d.ChunksEmbedded,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *Repo) Create(ctx context.Context, title, filename, filePath string, sizeBytes int64, uploadedBy string) (*Document, error) {
	const q = `
insert into documents (title, filename, file_path, file_size_bytes, uploaded_by, status)
values ($1, $2, $3, $4, $5::uuid, 'uploaded')
returning id, created_at, updated_at;
`
	d := Document{
		Title:         title,
		Filename:      filename,
		FilePath:      filePath,
		FileSizeBytes: sizeBytes,
		UploadedBy:    uploadedBy,
		Status:        StatusUploaded,
	}
	if err := r.db.QueryRow(ctx, q, title, filename, filePath, sizeBytes, uploadedBy).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// List assembles the WHERE clause from optional filters and returns a page
// plus the unpaged total.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Document, int, error) {
	where := []string{"true"}
	args := []any{}

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("d.status = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where = append(where, fmt.Sprintf("(d.title ILIKE $%d OR d.filename ILIKE $%d)", len(args), len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int
	countQ := `select count(*) from documents d where ` + cond
	if err := r.db.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit)
	limitPos := len(args)
	args = append(args, f.Offset)
	offsetPos := len(args)

	q := fmt.Sprintf(`
select `+docColumns+`
from documents d
`+docChunkJoin+`
where %s
order by d.created_at desc
limit $%d offset $%d;
`, cond, limitPos, offsetPos)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Document, 0, f.Limit)
	for rows.Next() {
		var d Document
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Filename, &d.FilePath, &d.FileSizeBytes, &d.UploadedBy,
			&d.Status, &d.ErrorMessage, &d.PageCount, &d.CreatedAt, &d.UpdatedAt,
			&d.ChunksTotal, &d.ChunksEmbedded,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (*Detail, error) {
	q := `select ` + docColumns + ` from documents d ` + docChunkJoin + ` where d.id = $1;`
	d, err := scanDoc(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}

	const breakdownQ = `select status, count(*) from chunks where document_id = $1 group by status;`
	rows, err := r.db.Query(ctx, breakdownQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byStatus := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		byStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Detail{Document: *d, ChunksByStatus: byStatus}, nil
}

// Delete removes the row (chunks cascade) and reports the stored file path
// so the caller can clean up the file.
func (r *Repo) Delete(ctx context.Context, id int64) (string, error) {
	const q = `delete from documents where id = $1 returning file_path;`
	var filePath string
	if err := r.db.QueryRow(ctx, q, id).Scan(&filePath); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return filePath, nil
}

// ResetForReindex drops existing chunks and returns the document to the
// uploaded state so /index can run again.
func (r *Repo) ResetForReindex(ctx context.Context, id int64) (*Document, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `delete from chunks where document_id = $1;`, id); err != nil {
		return nil, err
	}

	const q = `
update documents
set status = 'uploaded', error_message = null, page_count = null, updated_at = now()
where id = $1
returning id, title, filename, file_path, file_size_bytes, uploaded_by::text,
          status, error_message, page_count, created_at, updated_at;
`
	var d Document
	err = tx.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.Title, &d.Filename, &d.FilePath, &d.FileSizeBytes, &d.UploadedBy,
		&d.Status, &d.ErrorMessage, &d.PageCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}
