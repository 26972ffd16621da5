package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voyago/designbot/internal/models"
)

// GenerationTTL is the validity window of a generation record, fixed at
// creation time and never extended.
const GenerationTTL = 48 * time.Hour

// ErrNotFound is returned when a lookup matches no row, including rows that
// exist physically but whose expiry has passed.
var ErrNotFound = errors.New("not found")

type Queries struct {
	db *sql.DB
}

func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// Users

func (q *Queries) UpsertUser(ctx context.Context, chatID int64, username, tier string) (*models.User, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id, chat_id, username, tier) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET username = excluded.username, tier = excluded.tier`,
		uuid.New().String(), chatID, username, tier,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	return q.GetUserByChatID(ctx, chatID)
}

func (q *Queries) GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	u := &models.User{}
	var createdAt string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, chat_id, username, tier, created_at FROM users WHERE chat_id = ?`, chatID,
	).Scan(&u.ID, &u.ChatID, &u.Username, &u.Tier, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return u, nil
}

// Generations

// CreateGeneration persists one produced image keyed by the identifier of
// the message that delivered it. Callers must only invoke it after delivery,
// once that identifier is known.
func (q *Queries) CreateGeneration(ctx context.Context, userID, originKey, prompt, imageURL string, mode models.Mode) (*models.Generation, error) {
	now := time.Now().UTC()
	g := &models.Generation{
		ID:        uuid.New().String(),
		UserID:    userID,
		OriginKey: originKey,
		Prompt:    prompt,
		ImageURL:  imageURL,
		Mode:      mode,
		CreatedAt: now,
		ExpiresAt: now.Add(GenerationTTL),
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO generations (id, user_id, origin_key, prompt, image_url, mode, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.OriginKey, g.Prompt, g.ImageURL, string(g.Mode),
		g.CreatedAt.Format(time.DateTime), g.ExpiresAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("creating generation: %w", err)
	}
	return g, nil
}

// GetGenerationByOriginKey returns the generation delivered by the given
// message, or ErrNotFound once its 48-hour window has passed.
func (q *Queries) GetGenerationByOriginKey(ctx context.Context, originKey string) (*models.Generation, error) {
	return q.getGeneration(ctx, `origin_key = ?`, originKey)
}

func (q *Queries) GetGenerationByID(ctx context.Context, id string) (*models.Generation, error) {
	return q.getGeneration(ctx, `id = ?`, id)
}

func (q *Queries) getGeneration(ctx context.Context, where string, arg any) (*models.Generation, error) {
	g := &models.Generation{}
	var createdAt, expiresAt string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, origin_key, prompt, image_url, mode, created_at, expires_at
		 FROM generations WHERE `+where+` AND expires_at > ?`,
		arg, time.Now().UTC().Format(time.DateTime),
	).Scan(&g.ID, &g.UserID, &g.OriginKey, &g.Prompt, &g.ImageURL, &g.Mode, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting generation: %w", err)
	}
	g.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	g.ExpiresAt, _ = time.Parse(time.DateTime, expiresAt)
	return g, nil
}

// ListRecentGenerations returns the user's unexpired generations, newest
// first.
func (q *Queries) ListRecentGenerations(ctx context.Context, userID string, limit int) ([]models.Generation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, origin_key, prompt, image_url, mode, created_at, expires_at
		 FROM generations
		 WHERE user_id = ? AND expires_at > ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		userID, time.Now().UTC().Format(time.DateTime), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	defer rows.Close()

	var results []models.Generation
	for rows.Next() {
		var g models.Generation
		var createdAt, expiresAt string
		if err := rows.Scan(&g.ID, &g.UserID, &g.OriginKey, &g.Prompt, &g.ImageURL, &g.Mode, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		g.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		g.ExpiresAt, _ = time.Parse(time.DateTime, expiresAt)
		results = append(results, g)
	}
	return results, rows.Err()
}

// DeleteExpiredGenerations removes rows past their expiry. Purely storage
// hygiene: reads already filter on expiry, so skipping this changes nothing
// observable.
func (q *Queries) DeleteExpiredGenerations(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM generations WHERE expires_at <= ?`,
		time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired generations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
