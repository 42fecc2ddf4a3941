package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/models"
)

// ListFolders retrieves a user's routine folders.
func (db *DB) ListFolders(ctx context.Context, userID int) ([]models.Folder, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name FROM folders WHERE user_id = $1 ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}
	defer rows.Close()

	var result []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name); err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// InsertFolder creates a folder for the user.
func (db *DB) InsertFolder(ctx context.Context, userID int, name string) (*models.Folder, error) {
	f := &models.Folder{ID: uuid.New(), UserID: userID, Name: name}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO folders (id, user_id, name) VALUES ($1,$2,$3)`,
		f.ID, f.UserID, f.Name)
	if err != nil {
		return nil, fmt.Errorf("inserting folder: %w", err)
	}
	return f, nil
}
