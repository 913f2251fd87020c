package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/store"
)

// Image slots stored in blog_images.
const (
	slotFeatured = "featured"
	slotBody     = "body"
)

const blogColumns = `id, title, html, meta, backlink_url, primary_keyword,
	secondary_keywords, tone, word_count, created_at`

// BlogStore implements store.BlogStore on a SQL database.
type BlogStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.BlogStore = (*BlogStore)(nil)

// NewBlogStore creates a BlogStore on an open, migrated database.
func NewBlogStore(db *sql.DB, log *slog.Logger) (*BlogStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &BlogStore{db: db, logger: log.With(slog.String("component", "blog_store"))}, nil
}

// Save implements store.BlogStore. The blog row and its images are written
// in one transaction.
func (s *BlogStore) Save(ctx context.Context, blog *domain.GeneratedBlog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if blog == nil {
		return fmt.Errorf("%w: blog cannot be nil", store.ErrInvalidEntity)
	}
	if err := blog.Validate(); err != nil {
		log.Warn("blog validation failed during save",
			slog.String("error", err.Error()),
			slog.String("blog_id", blog.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	meta, err := json.Marshal(blog.Meta)
	if err != nil {
		return fmt.Errorf("encoding blog meta: %w", err)
	}
	keywords := blog.SecondaryKeywords
	if keywords == nil {
		keywords = []string{}
	}
	secondary, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("encoding secondary keywords: %w", err)
	}
	createdAt := blog.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO blogs (`+blogColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			blog.ID.String(),
			blog.Title,
			blog.HTML,
			string(meta),
			blog.BacklinkURL,
			blog.PrimaryKeyword,
			string(secondary),
			string(blog.Tone),
			blog.WordCount,
			createdAt.UnixMilli(),
		)
		if err != nil {
			return MapError(err)
		}

		for slot, img := range map[string]domain.GeneratedImage{
			slotFeatured: blog.Images.Featured,
			slotBody:     blog.Images.Body,
		} {
			if img.Data == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO blog_images (blog_id, slot, data, prompt, alt)
				VALUES ($1, $2, $3, $4, $5)`,
				blog.ID.String(), slot, img.Data, img.Prompt, img.Alt,
			); err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Warn("blog already exists", slog.String("blog_id", blog.ID.String()))
			return fmt.Errorf("%w: %s", store.ErrBlogExists, blog.ID)
		}
		log.Error("failed to save blog",
			slog.String("error", err.Error()),
			slog.String("blog_id", blog.ID.String()))
		return store.NewStoreError("blog", "save", "failed to insert blog", err)
	}

	log.Debug("blog saved", slog.String("blog_id", blog.ID.String()))
	return nil
}

// Get implements store.BlogStore.
func (s *BlogStore) Get(ctx context.Context, id uuid.UUID) (*domain.GeneratedBlog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, `SELECT `+blogColumns+` FROM blogs WHERE id = $1`, id.String())
	blog, err := scanBlog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrBlogNotFound, id)
		}
		log.Error("failed to get blog", slog.String("error", err.Error()), slog.String("blog_id", id.String()))
		return nil, store.NewStoreError("blog", "get", "failed to read blog", err)
	}

	images, err := loadImages(ctx, s.db, `WHERE blog_id = $1`, id.String())
	if err != nil {
		return nil, store.NewStoreError("blog", "get", "failed to read blog images", err)
	}
	blog.Images = images[blog.ID]
	return blog, nil
}

// List implements store.BlogStore.
func (s *BlogStore) List(ctx context.Context) ([]*domain.GeneratedBlog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT `+blogColumns+` FROM blogs ORDER BY created_at DESC, id ASC`)
	if err != nil {
		log.Error("failed to list blogs", slog.String("error", err.Error()))
		return nil, store.NewStoreError("blog", "list", "failed to query blogs", err)
	}
	defer func() { _ = rows.Close() }()

	var blogs []*domain.GeneratedBlog
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, store.NewStoreError("blog", "list", "failed to scan blog", err)
		}
		blogs = append(blogs, blog)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("blog", "list", "failed to iterate blogs", err)
	}

	images, err := loadImages(ctx, s.db, "")
	if err != nil {
		return nil, store.NewStoreError("blog", "list", "failed to read blog images", err)
	}
	for _, b := range blogs {
		b.Images = images[b.ID]
	}
	return blogs, nil
}

// Delete implements store.BlogStore.
func (s *BlogStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blog_images WHERE blog_id = $1`, id.String()); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id.String())
		if err != nil {
			return err
		}
		return checkRowsAffected(result, fmt.Errorf("%w: %s", store.ErrBlogNotFound, id))
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return err
		}
		log.Error("failed to delete blog", slog.String("error", err.Error()), slog.String("blog_id", id.String()))
		return store.NewStoreError("blog", "delete", "failed to delete blog", err)
	}

	log.Debug("blog deleted", slog.String("blog_id", id.String()))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (*domain.GeneratedBlog, error) {
	var (
		blog      domain.GeneratedBlog
		id        string
		meta      string
		secondary string
		tone      string
		createdAt int64
	)
	if err := row.Scan(
		&id,
		&blog.Title,
		&blog.HTML,
		&meta,
		&blog.BacklinkURL,
		&blog.PrimaryKeyword,
		&secondary,
		&tone,
		&blog.WordCount,
		&createdAt,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid blog id %q: %w", id, err)
	}
	blog.ID = parsed
	blog.Tone = domain.ToneStyle(tone)
	blog.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(meta), &blog.Meta); err != nil {
		return nil, fmt.Errorf("decoding meta for blog %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(secondary), &blog.SecondaryKeywords); err != nil {
		return nil, fmt.Errorf("decoding secondary keywords for blog %s: %w", id, err)
	}
	return &blog, nil
}

// loadImages reads image rows matching where, grouped by blog.
func loadImages(ctx context.Context, q store.DBTX, where string, args ...any) (map[uuid.UUID]domain.BlogImages, error) {
	rows, err := q.QueryContext(ctx, `SELECT blog_id, slot, data, prompt, alt FROM blog_images `+where, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID]domain.BlogImages)
	for rows.Next() {
		var (
			blogID, slot string
			img          domain.GeneratedImage
		)
		if err := rows.Scan(&blogID, &slot, &img.Data, &img.Prompt, &img.Alt); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(blogID)
		if err != nil {
			return nil, fmt.Errorf("invalid blog id %q: %w", blogID, err)
		}
		images := out[id]
		switch slot {
		case slotFeatured:
			images.Featured = img
		case slotBody:
			images.Body = img
		}
		out[id] = images
	}
	return out, rows.Err()
}
