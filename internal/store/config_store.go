// Queries for the training configuration document store. Documents are
// opaque JSON blobs; the console never interprets their contents.

package store

import (
	"database/sql"
	"time"

	"github.com/akirol/trainwatch/internal/models"
)

// ListConfigDocuments returns all stored configuration documents, newest first.
func (s *Store) ListConfigDocuments() ([]*models.ConfigDocument, error) {
	rows, err := s.db.Query("SELECT id, name, data, created_at, updated_at FROM config_documents ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.ConfigDocument
	for rows.Next() {
		var doc models.ConfigDocument
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// GetConfigDocument retrieves a single configuration document by ID.
func (s *Store) GetConfigDocument(id int64) (*models.ConfigDocument, error) {
	var doc models.ConfigDocument
	query := "SELECT id, name, data, created_at, updated_at FROM config_documents WHERE id = ?"
	err := s.db.QueryRow(query, id).Scan(&doc.ID, &doc.Name, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateConfigDocument stores a new configuration document.
func (s *Store) CreateConfigDocument(name, data string) (*models.ConfigDocument, error) {
	now := time.Now()
	query := "INSERT INTO config_documents (name, data, created_at, updated_at) VALUES (?, ?, ?, ?)"
	res, err := s.db.Exec(query, name, data, now, now)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &models.ConfigDocument{
		ID:        id,
		Name:      name,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateConfigDocument replaces the name and payload of an existing document.
// It returns sql.ErrNoRows if the document does not exist.
func (s *Store) UpdateConfigDocument(id int64, name, data string) error {
	query := "UPDATE config_documents SET name = ?, data = ?, updated_at = ? WHERE id = ?"
	res, err := s.db.Exec(query, name, data, time.Now(), id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteConfigDocument removes a configuration document.
func (s *Store) DeleteConfigDocument(id int64) error {
	_, err := s.db.Exec("DELETE FROM config_documents WHERE id = ?", id)
	return err
}
